package configsink

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/compose-network/bridge-tester/internal/infra/filesystem"
	"github.com/ethereum/go-ethereum/common"
)

// baseTokenSystemAddress is how the portal lists the chain's base token.
const baseTokenSystemAddress = "0x000000000000000000000000000000000000800A"

// AppsConfigDir is where the portal and explorer configs live relative to the project root.
func AppsConfigDir(root string) string {
	return filepath.Join(root, "configs", "apps")
}

// PortalJSON sets the L1 address of the base token in portal.config.json for one chain.
type PortalJSON struct {
	path  string
	chain string
	files filesystem.ReadWriter
}

func NewPortalJSON(path, chain string, files filesystem.ReadWriter) *PortalJSON {
	return &PortalJSON{path: path, chain: chain, files: files}
}

func (p *PortalJSON) Name() string {
	return "portal:" + p.path
}

func (p *PortalJSON) Apply(token common.Address) error {
	var config map[string]any
	if err := p.files.ReadJSON(p.path, &config); err != nil {
		return err
	}

	updated := false
	for _, chain := range objects(config["hyperchainsConfig"]) {
		network, _ := chain["network"].(map[string]any)
		if network == nil || network["key"] != p.chain {
			continue
		}
		for _, t := range objects(chain["tokens"]) {
			if addr, _ := t["address"].(string); strings.EqualFold(addr, baseTokenSystemAddress) {
				t["l1Address"] = token.Hex()
				updated = true
				break
			}
		}
	}
	if !updated {
		return fmt.Errorf("no base token entry for chain %q", p.chain)
	}

	return p.files.WriteJSON(p.path, config)
}

// ExplorerJSON sets baseTokenAddress of one network in explorer.config.json.
type ExplorerJSON struct {
	path  string
	chain string
	files filesystem.ReadWriter
}

func NewExplorerJSON(path, chain string, files filesystem.ReadWriter) *ExplorerJSON {
	return &ExplorerJSON{path: path, chain: chain, files: files}
}

func (e *ExplorerJSON) Name() string {
	return "explorer:" + e.path
}

func (e *ExplorerJSON) Apply(token common.Address) error {
	var config map[string]any
	if err := e.files.ReadJSON(e.path, &config); err != nil {
		return err
	}

	env, _ := config["environmentConfig"].(map[string]any)
	updated := false
	for _, network := range objects(env["networks"]) {
		if network["name"] == e.chain {
			network["baseTokenAddress"] = token.Hex()
			updated = true
			break
		}
	}
	if !updated {
		return fmt.Errorf("no network named %q", e.chain)
	}

	return e.files.WriteJSON(e.path, config)
}

// objects returns the JSON objects of an array value, skipping anything else.
func objects(v any) []map[string]any {
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
