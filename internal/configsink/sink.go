// Package configsink propagates a freshly deployed token address into the local stack's config files.
package configsink

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/compose-network/bridge-tester/internal/infra/filesystem"
	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultChainName is the chain directory and network key used by zkstack for a custom-gas chain.
const DefaultChainName = "custom_zkchain"

// Sink writes the token address into one config file.
type Sink interface {
	Name() string
	Apply(token common.Address) error
}

// Chain applies sinks in order. A sink whose file does not exist is skipped with a warning; every other
// failure is collected and returned joined.
type Chain struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewChain(sinks ...Sink) *Chain {
	return &Chain{
		sinks:  sinks,
		logger: logger.Named("config_sink"),
	}
}

func (c *Chain) Apply(token common.Address) error {
	var errs []error
	for _, sink := range c.sinks {
		err := sink.Apply(token)
		switch {
		case err == nil:
			c.logger.With("sink", sink.Name()).With("token", token.Hex()).Info("config updated")
		case errors.Is(err, fs.ErrNotExist):
			c.logger.With("sink", sink.Name()).With("err", err).Warn("config file not found, skipping")
		default:
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}

	return errors.Join(errs...)
}

// ProjectSinks returns the sinks of a zkstack project checkout at root, in the order they are applied.
func ProjectSinks(root, chain string, files filesystem.ReadWriter) []Sink {
	apps := AppsConfigDir(root)
	return []Sink{
		NewEnvFile(filepath.Join(root, ".env"), files),
		NewZkStackYAML(ChainZkStackPath(root, chain), files),
		NewContractsYAML(ChainContractsPath(root, chain), files),
		NewPortalJSON(filepath.Join(apps, "portal.config.json"), chain, files),
		NewExplorerJSON(filepath.Join(apps, "explorer.config.json"), chain, files),
	}
}
