package configsink

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	fsjson "github.com/compose-network/bridge-tester/internal/infra/filesystem/json"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var token = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

type files struct {
	*fsjson.Reader
	*fsjson.Writer
}

func newFiles() files {
	return files{Reader: fsjson.NewReader(), Writer: fsjson.NewWriter()}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSetEnv(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "empty",
			content: "",
			want:    "TOKEN_ADDRESS=0xabc\n",
		},
		{
			name:    "append without trailing newline",
			content: "L1_RPC=http://127.0.0.1:8545",
			want:    "L1_RPC=http://127.0.0.1:8545\nTOKEN_ADDRESS=0xabc\n",
		},
		{
			name:    "replace",
			content: "L1_RPC=http://127.0.0.1:8545\nTOKEN_ADDRESS=0x123\nCHAIN_NAME=x\n",
			want:    "L1_RPC=http://127.0.0.1:8545\nTOKEN_ADDRESS=0xabc\nCHAIN_NAME=x\n",
		},
		{
			name:    "replace exported",
			content: "export TOKEN_ADDRESS=0x123\n",
			want:    "TOKEN_ADDRESS=0xabc\n",
		},
		{
			name:    "similar key untouched",
			content: "L2_TOKEN_ADDRESS=0x123\n",
			want:    "L2_TOKEN_ADDRESS=0x123\nTOKEN_ADDRESS=0xabc\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, setEnv(tt.content, "TOKEN_ADDRESS", "0xabc"))
		})
	}
}

func TestEnvFileCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	require.NoError(t, NewEnvFile(path, fsjson.NewWriter()).Apply(token))
	assert.Equal(t, "TOKEN_ADDRESS="+token.Hex()+"\n", readFile(t, path))
}

func TestZkStackYAML(t *testing.T) {
	path := ChainZkStackPath(t.TempDir(), DefaultChainName)
	writeFile(t, path, `id: 2
name: custom_zkchain
base_token:
  address: "0x0000000000000000000000000000000000000001"
  nominator: 1
  denominator: 1
`)

	require.NoError(t, NewZkStackYAML(path, fsjson.NewWriter()).Apply(token))

	var got struct {
		ID        int    `yaml:"id"`
		Name      string `yaml:"name"`
		BaseToken struct {
			Address   string `yaml:"address"`
			Nominator int    `yaml:"nominator"`
		} `yaml:"base_token"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(readFile(t, path)), &got))
	assert.Equal(t, 2, got.ID)
	assert.Equal(t, "custom_zkchain", got.Name)
	assert.Equal(t, token.Hex(), got.BaseToken.Address)
	assert.Equal(t, 1, got.BaseToken.Nominator)
}

func TestContractsYAMLAddsMissingKey(t *testing.T) {
	path := ChainContractsPath(t.TempDir(), DefaultChainName)
	writeFile(t, path, "# generated\nl1:\n  diamond_proxy_addr: 0x01\n")

	require.NoError(t, NewContractsYAML(path, fsjson.NewWriter()).Apply(token))

	content := readFile(t, path)
	assert.Contains(t, content, "# generated")

	var got map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(content), &got))
	assert.Equal(t, token.Hex(), got["l1"]["base_token_addr"])
	assert.Contains(t, got["l1"], "diamond_proxy_addr")
}

func TestSetYAMLRejectsScalarParent(t *testing.T) {
	_, err := setYAML([]byte("l1: 3\n"), []string{"l1", "base_token_addr"}, "0x01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "l1 is not a mapping")
}

func TestPortalJSON(t *testing.T) {
	path := filepath.Join(AppsConfigDir(t.TempDir()), "portal.config.json")
	writeFile(t, path, `{
  "hyperchainsConfig": [
    {"network": {"key": "other"}, "tokens": [{"address": "0x000000000000000000000000000000000000800A", "l1Address": "0x01"}]},
    {"network": {"key": "custom_zkchain", "id": 271}, "tokens": [
      {"address": "0x000000000000000000000000000000000000800a", "l1Address": "0x01", "decimals": 18}
    ]}
  ]
}`)

	require.NoError(t, NewPortalJSON(path, DefaultChainName, newFiles()).Apply(token))

	var got struct {
		HyperchainsConfig []struct {
			Network struct {
				ID int `json:"id"`
			} `json:"network"`
			Tokens []struct {
				L1Address string `json:"l1Address"`
				Decimals  int    `json:"decimals"`
			} `json:"tokens"`
		} `json:"hyperchainsConfig"`
	}
	require.NoError(t, fsjson.NewReader().ReadJSON(path, &got))
	require.Len(t, got.HyperchainsConfig, 2)
	assert.Equal(t, "0x01", got.HyperchainsConfig[0].Tokens[0].L1Address)
	assert.Equal(t, token.Hex(), got.HyperchainsConfig[1].Tokens[0].L1Address)
	assert.Equal(t, 18, got.HyperchainsConfig[1].Tokens[0].Decimals)
	assert.Equal(t, 271, got.HyperchainsConfig[1].Network.ID)
}

func TestExplorerJSONUnknownChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "explorer.config.json")
	writeFile(t, path, `{"environmentConfig": {"networks": [{"name": "era"}]}}`)

	err := NewExplorerJSON(path, DefaultChainName, newFiles()).Apply(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), DefaultChainName)
}

func TestExplorerJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "explorer.config.json")
	writeFile(t, path, `{"environmentConfig": {"networks": [{"name": "custom_zkchain", "l2ChainId": 271}]}}`)

	require.NoError(t, NewExplorerJSON(path, DefaultChainName, newFiles()).Apply(token))

	var got struct {
		EnvironmentConfig struct {
			Networks []map[string]any `json:"networks"`
		} `json:"environmentConfig"`
	}
	require.NoError(t, fsjson.NewReader().ReadJSON(path, &got))
	require.Len(t, got.EnvironmentConfig.Networks, 1)
	assert.Equal(t, token.Hex(), got.EnvironmentConfig.Networks[0]["baseTokenAddress"])
}

type stubSink struct {
	name    string
	err     error
	applied []common.Address
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Apply(token common.Address) error {
	s.applied = append(s.applied, token)
	return s.err
}

func TestChainSkipsMissingFilesAndJoinsErrors(t *testing.T) {
	missing := NewZkStackYAML(filepath.Join(t.TempDir(), "absent.yaml"), fsjson.NewWriter())
	broken := &stubSink{name: "broken", err: errors.New("boom")}
	ok := &stubSink{name: "ok"}

	err := NewChain(missing, broken, ok).Apply(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: boom")
	assert.NotContains(t, err.Error(), "absent.yaml")
	assert.Equal(t, []common.Address{token}, ok.applied)
}

func TestProjectSinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, ChainZkStackPath(root, DefaultChainName), "base_token:\n  address: 0x01\n")

	require.NoError(t, NewChain(ProjectSinks(root, DefaultChainName, newFiles())...).Apply(token))
	assert.Contains(t, readFile(t, filepath.Join(root, ".env")), "TOKEN_ADDRESS="+token.Hex())
	assert.Contains(t, readFile(t, ChainZkStackPath(root, DefaultChainName)), token.Hex())
	assert.NoFileExists(t, ChainContractsPath(root, DefaultChainName))
}
