package zksync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

const DefaultReceiptPollInterval = time.Second

// Ledger reads balances and receipts from one chain.
type Ledger struct {
	name         string
	client       *ethclient.Client
	erc20        *abi.ABI
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewLedger(name string, client *ethclient.Client, pollInterval time.Duration) (*Ledger, error) {
	erc20, err := ERC20MetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = DefaultReceiptPollInterval
	}
	return &Ledger{
		name:         name,
		client:       client,
		erc20:        erc20,
		pollInterval: pollInterval,
		logger:       logger.Named(name + "_ledger"),
	}, nil
}

func (l *Ledger) NetworkID(ctx context.Context) (*big.Int, error) {
	id, err := l.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s chain id: %w", l.name, err)
	}
	return id, nil
}

func (l *Ledger) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := l.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s balance of %s: %w", l.name, account.Hex(), err)
	}
	return balance, nil
}

// TokenBalance calls balanceOf on token. A token without code is an error, not a zero balance.
func (l *Ledger) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	code, err := l.client.CodeAt(ctx, token, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get code at %s: %w", token.Hex(), err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("no contract deployed at %s on %s", token.Hex(), l.name)
	}

	var balance *big.Int
	if err := call(ctx, l.client, l.erc20, token, &balance, "balanceOf", account); err != nil {
		return nil, fmt.Errorf("failed to get %s token balance: %w", l.name, err)
	}
	return balance, nil
}

// WaitForInclusion polls for the receipt of txHash until it appears or ctx ends. Reverted receipts are
// returned as-is; judging them is the caller's job.
func (l *Ledger) WaitForInclusion(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := l.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			l.logger.
				With("tx_hash", txHash.Hex()).
				With("block_number", receipt.BlockNumber).
				With("status", receipt.Status).
				Debug("receipt found")
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			l.logger.With("tx_hash", txHash.Hex()).With("err", err).Debug("receipt lookup failed, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// call packs method, runs eth_call against to and unpacks the single result into out.
func call(ctx context.Context, client *ethclient.Client, contract *abi.ABI, to common.Address, out any, method string, args ...any) error {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("%s on %s failed: %w", method, to.Hex(), err)
	}

	if err := contract.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s: %w", method, err)
	}

	return nil
}
