package bridge

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Ledger is the read/wait side of one chain.
type Ledger interface {
	NetworkID(ctx context.Context) (*big.Int, error)
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error)
	WaitForInclusion(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Gateway is the L1/L2 bridge boundary: everything that needs both chains or the bridge contracts.
type Gateway interface {
	SubmitTransfer(ctx context.Context, intent TransferIntent) (common.Hash, error)
	// SubmitFinalize fails until the withdrawal is provable on L1.
	SubmitFinalize(ctx context.Context, withdrawTx common.Hash) (common.Hash, error)
	L2TokenAddress(ctx context.Context, l1Token common.Address) (common.Address, error)
	GasAssetAddress(ctx context.Context) (common.Address, error)
}

// Clients is the chain client pair bound to one run.
type Clients struct {
	L1      Ledger
	L2      Ledger
	Gateway Gateway
	Close   func()
}

// Observer receives run progress. It must not block.
type Observer interface {
	StepCompleted(step string, took float64)
	FinalizeAttempted(outcome AttemptOutcome)
	RunFinished(scenario Scenario, outcome string)
}

type nopObserver struct{}

func (nopObserver) StepCompleted(string, float64) {}
func (nopObserver) FinalizeAttempted(AttemptOutcome) {}
func (nopObserver) RunFinished(Scenario, string) {}
