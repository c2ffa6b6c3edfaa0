package configsink

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/compose-network/bridge-tester/internal/infra/filesystem"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// YAMLField sets one dotted key path of a YAML document, leaving comments and key order intact.
type YAMLField struct {
	name   string
	path   string
	key    []string
	writer filesystem.Writer
}

// NewZkStackYAML patches base_token.address in the chain's ZkStack.yaml.
func NewZkStackYAML(path string, writer filesystem.Writer) *YAMLField {
	return &YAMLField{name: "zkstack", path: path, key: []string{"base_token", "address"}, writer: writer}
}

// NewContractsYAML patches l1.base_token_addr in chains/<chain>/configs/contracts.yaml.
func NewContractsYAML(path string, writer filesystem.Writer) *YAMLField {
	return &YAMLField{name: "contracts", path: path, key: []string{"l1", "base_token_addr"}, writer: writer}
}

// ChainZkStackPath is where zkstack keeps the chain's ZkStack.yaml.
func ChainZkStackPath(root, chain string) string {
	return filepath.Join(root, "chains", chain, "ZkStack.yaml")
}

// ChainContractsPath is where zkstack keeps the chain's contracts.yaml.
func ChainContractsPath(root, chain string) string {
	return filepath.Join(root, "chains", chain, "configs", "contracts.yaml")
}

func (y *YAMLField) Name() string {
	return y.name + ":" + y.path
}

func (y *YAMLField) Apply(token common.Address) error {
	data, err := os.ReadFile(y.path)
	if err != nil {
		return fmt.Errorf("failed to read yaml: %w", err)
	}

	out, err := setYAML(data, y.key, token.Hex())
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", strings.Join(y.key, "."), err)
	}

	return y.writer.WriteBytes(y.path, out)
}

func setYAML(data []byte, key []string, value string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("unexpected yaml document")
	}

	node := doc.Content[0]
	for i, k := range key {
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%s is not a mapping", strings.Join(key[:i], "."))
		}
		node = mappingValue(node, k, i == len(key)-1)
	}
	node.Kind = yaml.ScalarNode
	node.Tag = "!!str"
	node.Value = value
	node.Content = nil

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// mappingValue returns the value node under key, adding it when missing.
func mappingValue(mapping *yaml.Node, key string, leaf bool) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}

	value := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if leaf {
		value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str"}
	}
	mapping.Content = append(mapping.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
	return value
}
