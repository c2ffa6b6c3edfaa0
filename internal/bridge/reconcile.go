package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/compose-network/bridge-tester/internal/logger"
)

// BalanceFunc reads the tested asset's balance on one ledger.
type BalanceFunc func(ctx context.Context) (*big.Int, error)

// Deltas are signed final-minus-before amounts in the smallest unit.
type Deltas struct {
	L1 *big.Int
	L2 *big.Int
}

// Reconciler snapshots balances and computes deltas. It never converts units.
type Reconciler struct {
	readers map[LedgerName]BalanceFunc
	clock   Clock
	logger  *slog.Logger
}

func NewReconciler(l1, l2 BalanceFunc, clock Clock) *Reconciler {
	return &Reconciler{
		readers: map[LedgerName]BalanceFunc{LedgerL1: l1, LedgerL2: l2},
		clock:   clock,
		logger:  logger.Named("reconciler"),
	}
}

// Snapshot reads both ledgers and appends one snapshot per ledger to run.
func (r *Reconciler) Snapshot(ctx context.Context, run *ScenarioRun, step Step) error {
	for _, ledger := range []LedgerName{LedgerL1, LedgerL2} {
		amount, err := r.readers[ledger](ctx)
		if err != nil {
			return fmt.Errorf("failed to read %s balance at %s: %w", ledger, step, err)
		}

		snapshot := BalanceSnapshot{
			Step:    step,
			Ledger:  ledger,
			Asset:   run.Asset.Symbol,
			Address: run.Wallet,
			Amount:  amount,
			Offset:  r.clock.Now().Sub(run.StartedAt),
		}
		if err := run.addSnapshot(snapshot); err != nil {
			return err
		}

		r.logger.
			With("step", step).
			With("ledger", ledger).
			With("asset", run.Asset.Symbol).
			With("amount", amount.String()).
			Info("balance snapshot")
	}

	return nil
}

// Report computes final - before per ledger. It reads only the run and has no side effects.
func Report(run *ScenarioRun) (Deltas, error) {
	l1, err := ledgerDelta(run, LedgerL1)
	if err != nil {
		return Deltas{}, err
	}
	l2, err := ledgerDelta(run, LedgerL2)
	if err != nil {
		return Deltas{}, err
	}
	return Deltas{L1: l1, L2: l2}, nil
}

func ledgerDelta(run *ScenarioRun, ledger LedgerName) (*big.Int, error) {
	before, ok := run.Snapshot(StepBefore, ledger)
	if !ok {
		return nil, fmt.Errorf("no %s snapshot for %s", StepBefore, ledger)
	}
	final, ok := run.Snapshot(StepFinal, ledger)
	if !ok {
		return nil, fmt.Errorf("no %s snapshot for %s", StepFinal, ledger)
	}
	return new(big.Int).Sub(final.Amount, before.Amount), nil
}
