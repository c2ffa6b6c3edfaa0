package deploy

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/compose-network/bridge-tester/internal/bridge"
	"github.com/compose-network/bridge-tester/internal/infra/filesystem"
	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	DefaultTokenName  = "USD Coin"
	DefaultLogPath    = "logs/token-deploy.log"
	deployTimeout     = 2 * time.Minute
	symbolTimeLayout  = "0102150405"
	defaultSymbolStem = "USDC"
)

type (
	// Backend is the L1 connection a deployment needs. *ethclient.Client satisfies it.
	Backend interface {
		bind.ContractBackend
		bind.DeployBackend
		ChainID(ctx context.Context) (*big.Int, error)
		BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	}

	// Result is what a deployment produced; it is also the record written to the deploy log.
	Result struct {
		Contract    string         `json:"contract"`
		Name        string         `json:"name"`
		Symbol      string         `json:"symbol"`
		Address     common.Address `json:"address"`
		TxHash      common.Hash    `json:"txHash"`
		BlockNumber uint64         `json:"blockNumber"`
		ChainID     string         `json:"chainId"`
		Deployer    common.Address `json:"deployer"`
		TotalSupply string         `json:"totalSupply"`
		DeployedAt  time.Time      `json:"deployedAt"`
	}

	// Deployer deploys ERC-20 tokens to L1 from a compiled artifact.
	Deployer struct {
		backend  Backend
		key      *ecdsa.PrivateKey
		artifact *Artifact
		logPath  string
		writer   filesystem.Writer
		now      func() time.Time
		logger   *slog.Logger
	}
)

func NewDeployer(backend Backend, key *ecdsa.PrivateKey, artifact *Artifact, logPath string, writer filesystem.Writer) *Deployer {
	return &Deployer{
		backend:  backend,
		key:      key,
		artifact: artifact,
		logPath:  logPath,
		writer:   writer,
		now:      time.Now,
		logger:   logger.Named("token_deployer"),
	}
}

// DefaultSymbol is a symbol unique to the second, e.g. USDC-0501120000.
func DefaultSymbol(now time.Time) string {
	return fmt.Sprintf("%s-%s", defaultSymbolStem, now.Format(symbolTimeLayout))
}

// Deploy deploys the artifact with (name, symbol), waits for the receipt and records the result in the
// deploy log. An unfunded deployer fails before anything is sent.
func (d *Deployer) Deploy(ctx context.Context, name, symbol string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, deployTimeout)
	defer cancel()

	from := crypto.PubkeyToAddress(d.key.PublicKey)

	balance, err := d.backend.BalanceAt(ctx, from, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get deployer balance: %w", err)
	}
	if balance.Sign() == 0 {
		return nil, fmt.Errorf("%w: deployer %s has no ETH on L1", bridge.ErrPreconditionFailed, from.Hex())
	}

	chainID, err := d.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(d.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx

	d.logger.
		With("contract", d.artifact.Name).
		With("name", name).
		With("symbol", symbol).
		With("deployer", from.Hex()).
		With("chain_id", chainID).
		Info("deploying token")

	address, tx, contract, err := bind.DeployContract(auth, d.artifact.ABI, d.artifact.Bytecode, d.backend, name, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", d.artifact.Name, err)
	}

	d.logger.
		With("address", address.Hex()).
		With("tx_hash", tx.Hash().Hex()).
		Info("token deployment transaction sent")

	receipt, err := bind.WaitMined(ctx, d.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for deployment: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("token deployment failed with status %d", receipt.Status)
	}

	var supply []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &supply, "totalSupply"); err != nil {
		return nil, fmt.Errorf("failed to read total supply: %w", err)
	}
	totalSupply, ok := supply[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected totalSupply type %T", supply[0])
	}

	result := &Result{
		Contract:    d.artifact.Name,
		Name:        name,
		Symbol:      symbol,
		Address:     address,
		TxHash:      tx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		ChainID:     chainID.String(),
		Deployer:    from,
		TotalSupply: totalSupply.String(),
		DeployedAt:  d.now().UTC(),
	}

	d.logger.
		With("address", address.Hex()).
		With("total_supply", result.TotalSupply).
		Info("token deployed")

	if d.logPath != "" {
		if err := d.writer.WriteJSON(d.logPath, result); err != nil {
			d.logger.With("path", d.logPath).With("err", err).Warn("failed to write deploy log")
		}
	}

	return result, nil
}
