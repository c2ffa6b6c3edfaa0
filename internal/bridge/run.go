package bridge

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ScenarioRun is the state of one scenario execution. The orchestrator owns it; drivers write to it only
// during their call.
type ScenarioRun struct {
	ID        string
	Scenario  Scenario
	Asset     Asset
	Wallet    common.Address
	Endpoint  string
	GasAsset  common.Address
	StartedAt time.Time

	Snapshots []BalanceSnapshot
	Deposit   *TransferRecord
	Withdraw  *TransferRecord
	Report    *RunReport

	closed bool
}

// RunReport is the closing summary of a run.
type RunReport struct {
	RunID        string
	Scenario     Scenario
	Asset        string
	Wallet       common.Address
	Endpoint     string
	Ledgers      []LedgerReport
	DepositTx    common.Hash
	WithdrawTx   common.Hash
	Finalization FinalizationSummary
	// Err is set when the run aborted; ledgers then cover only the snapshots taken.
	Err error
}

type LedgerReport struct {
	Ledger LedgerName
	Before *big.Int
	After  *big.Int
	Delta  *big.Int
}

type FinalizationSummary struct {
	State   FinalizeState
	TxHash  common.Hash
	Elapsed time.Duration
	Tries   int
}

func newRun(scenario Scenario, asset Asset, wallet common.Address, now time.Time) *ScenarioRun {
	return &ScenarioRun{
		ID:        newRunID(),
		Scenario:  scenario,
		Asset:     asset,
		Wallet:    wallet,
		StartedAt: now,
	}
}

// Closed reports whether the closing report was emitted.
func (r *ScenarioRun) Closed() bool {
	return r.closed
}

func (r *ScenarioRun) addSnapshot(s BalanceSnapshot) error {
	if r.closed {
		return ErrRunClosed
	}
	r.Snapshots = append(r.Snapshots, s)
	return nil
}

func (r *ScenarioRun) setTransfer(rec *TransferRecord) error {
	if r.closed {
		return ErrRunClosed
	}
	switch rec.Direction {
	case DirectionDeposit:
		r.Deposit = rec
	case DirectionWithdraw:
		r.Withdraw = rec
	}
	return nil
}

func (r *ScenarioRun) setFinalization(f *FinalizationRecord) error {
	if r.closed {
		return ErrRunClosed
	}
	if r.Withdraw != nil {
		r.Withdraw.Finalization = f
	}
	return nil
}

// Snapshot returns the snapshot taken at step for ledger.
func (r *ScenarioRun) Snapshot(step Step, ledger LedgerName) (BalanceSnapshot, bool) {
	for _, s := range r.Snapshots {
		if s.Step == step && s.Ledger == ledger {
			return s, true
		}
	}
	return BalanceSnapshot{}, false
}

func (r *ScenarioRun) close(report *RunReport) {
	r.Report = report
	r.closed = true
}
