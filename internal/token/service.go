package token

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/compose-network/bridge-tester/configs"
	"github.com/compose-network/bridge-tester/internal/configsink"
	"github.com/compose-network/bridge-tester/internal/deploy"
	fsjson "github.com/compose-network/bridge-tester/internal/infra/filesystem/json"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

type files struct {
	*fsjson.Reader
	*fsjson.Writer
}

// Deploy deploys a token on L1 from the configured artifact.
func Deploy(ctx context.Context, cfg configs.Config, name, symbol string) (*deploy.Result, error) {
	key, err := crypto.HexToECDSA(cfg.Wallet.PrivateKeyHex())
	if err != nil {
		return nil, fmt.Errorf("invalid wallet private key: %w", err)
	}

	artifact, err := deploy.LoadArtifact(cfg.Token.Artifact)
	if err != nil {
		return nil, fmt.Errorf("%w (compile the contracts first)", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.L1.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial L1 RPC: %w", err)
	}
	defer client.Close()

	return deploy.NewDeployer(client, key, artifact, cfg.Token.DeployLog, fsjson.NewWriter()).Deploy(ctx, name, symbol)
}

// DeployGasToken deploys the chain's gas token and writes its address into the project configs.
func DeployGasToken(ctx context.Context, cfg configs.Config, log *slog.Logger) (*deploy.Result, error) {
	result, err := Deploy(ctx, cfg, cfg.Token.GasTokenName, cfg.Token.GasTokenSymbol)
	if err != nil {
		return nil, err
	}

	if !cfg.Sink.Enabled {
		log.Info("config sinks disabled, not propagating token address")
		return result, nil
	}

	chain := cfg.Sink.ChainName
	if chain == "" {
		chain = configsink.DefaultChainName
	}
	fs := files{Reader: fsjson.NewReader(), Writer: fsjson.NewWriter()}
	sinks := configsink.NewChain(configsink.ProjectSinks(cfg.Sink.ProjectRoot, chain, fs)...)
	if err := sinks.Apply(result.Address); err != nil {
		return result, fmt.Errorf("token deployed at %s but config update failed: %w", result.Address.Hex(), err)
	}

	return result, nil
}
