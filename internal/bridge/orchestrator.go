package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/compose-network/bridge-tester/internal/endpoint"
	"github.com/compose-network/bridge-tester/internal/logger"
)

type (
	// EndpointSelector picks the L2 endpoint for a run.
	EndpointSelector interface {
		Select(ctx context.Context, primary string) (endpoint.Endpoint, error)
	}

	// Connector builds a fresh client pair against the selected L2 endpoint.
	Connector func(ctx context.Context, l2URL string) (*Clients, error)

	// Orchestrator sequences one scenario run and decides what to do on partial failure.
	Orchestrator struct {
		cfg      Config
		selector EndpointSelector
		connect  Connector
		clock    Clock
		observer Observer
		logger   *slog.Logger
	}

	plan struct {
		l1Balance BalanceFunc
		l2Balance BalanceFunc
		approvals Approvals
	}
)

func NewOrchestrator(cfg Config, selector EndpointSelector, connect Connector, clock Clock, observer Observer) *Orchestrator {
	if clock == nil {
		clock = RealClock()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Orchestrator{
		cfg:      cfg,
		selector: selector,
		connect:  connect,
		clock:    clock,
		observer: observer,
		logger:   logger.Named("orchestrator"),
	}
}

// Run executes the scenario. The returned run is never nil and carries a closing report, also when err is
// a fatal abort. An exhausted finalization is not an error.
func (o *Orchestrator) Run(ctx context.Context) (*ScenarioRun, error) {
	run := newRun(o.cfg.Scenario(), o.cfg.Asset, o.cfg.Wallet, o.clock.Now())

	o.logger.
		With("run_id", run.ID).
		With("scenario", run.Scenario).
		With("asset", run.Asset.String()).
		With("wallet", run.Wallet.Hex()).
		With("deposit_amount", o.cfg.DepositAmount.String()).
		With("withdraw_amount", amountString(o.cfg.WithdrawAmount)).
		Info("starting bridge scenario")

	err := o.execute(ctx, run)
	run.close(buildReport(run, err))

	outcome := "completed"
	switch {
	case err != nil:
		outcome = "aborted"
		o.logger.With("run_id", run.ID).With("err", err).Error("bridge scenario aborted")
	case run.Withdraw != nil && run.Withdraw.Finalization != nil && run.Withdraw.Finalization.State == FinalizeExhausted:
		outcome = "unresolved"
		o.logger.
			With("run_id", run.ID).
			With("withdraw_tx", run.Withdraw.TxHash.Hex()).
			Warn("bridge scenario completed with unresolved withdrawal")
	default:
		o.logger.With("run_id", run.ID).Info("bridge scenario completed")
	}
	o.observer.RunFinished(run.Scenario, outcome)

	return run, err
}

func (o *Orchestrator) execute(ctx context.Context, run *ScenarioRun) error {
	ep, err := o.selector.Select(ctx, o.cfg.L2Endpoint)
	if err != nil {
		return err
	}
	run.Endpoint = ep.URL

	clients, err := o.connect(ctx, ep.URL)
	if err != nil {
		return fmt.Errorf("failed to connect chain clients: %w", err)
	}
	if clients.Close != nil {
		defer clients.Close()
	}

	var p *plan
	switch run.Scenario {
	case ScenarioNative:
		p, err = o.planNative(ctx, clients, run)
		if err != nil {
			return err
		}
	default:
		p, err = o.planCustomAsset(ctx, clients, run)
		if err != nil {
			return err
		}
	}

	reconciler := NewReconciler(p.l1Balance, p.l2Balance, o.clock)
	deposits := NewDepositDriver(clients.Gateway, clients.L1, o.clock, o.cfg.InclusionTimeout, o.cfg.SettleDelay)
	withdrawals := NewWithdrawDriver(clients.Gateway, clients.L2, o.cfg.InclusionTimeout)
	poller := NewPoller(clients.Gateway, clients.L1, o.clock, o.cfg.FinalizeInterval, o.cfg.InclusionTimeout, o.observer)

	if err := o.step("snapshot_before", func() error { return reconciler.Snapshot(ctx, run, StepBefore) }); err != nil {
		return err
	}

	depositIntent := TransferIntent{
		Asset:     run.Asset,
		Amount:    o.cfg.DepositAmount,
		Receiver:  run.Wallet,
		Approvals: p.approvals,
	}
	if err := o.step("deposit", func() error {
		_, err := deposits.Deposit(ctx, run, depositIntent)
		return err
	}); err != nil {
		return err
	}

	if o.cfg.DepositOnly {
		return o.step("snapshot_final", func() error { return reconciler.Snapshot(ctx, run, StepFinal) })
	}

	if err := o.step("snapshot_after_deposit", func() error { return reconciler.Snapshot(ctx, run, StepAfterDeposit) }); err != nil {
		return err
	}

	withdrawIntent := TransferIntent{
		Asset:    run.Asset,
		Amount:   o.cfg.WithdrawAmount,
		Receiver: run.Wallet,
	}
	if err := o.step("withdraw", func() error {
		_, err := withdrawals.Withdraw(ctx, run, withdrawIntent)
		return err
	}); err != nil {
		return err
	}

	// The withdrawal is on L2 already; a failed read here must not cost it its finalize attempts.
	if err := o.step("snapshot_after_withdraw", func() error { return reconciler.Snapshot(ctx, run, StepAfterWithdraw) }); err != nil {
		if ctx.Err() != nil {
			return err
		}
		o.logger.
			With("run_id", run.ID).
			With("withdraw_tx", run.Withdraw.TxHash.Hex()).
			With("err", err).
			Warn("after-withdraw snapshot failed, finalizing anyway")
	}

	if err := o.step("finalize", func() error {
		rec, err := poller.Finalize(ctx, run.Withdraw.TxHash, o.cfg.FinalizeDeadline)
		if setErr := run.setFinalization(rec); setErr != nil {
			return setErr
		}
		if errors.Is(err, ErrFinalizationExhausted) {
			return nil
		}
		return err
	}); err != nil {
		return err
	}

	if err := o.step("snapshot_final", func() error { return reconciler.Snapshot(ctx, run, StepFinal) }); err != nil {
		return err
	}

	deltas, err := Report(run)
	if err != nil {
		return err
	}

	o.logger.
		With("run_id", run.ID).
		With("l1_delta", deltas.L1.String()).
		With("l2_delta", deltas.L2.String()).
		Info("balances reconciled")

	return nil
}

// planNative requires ETH to be the chain's gas asset: on a custom gas token chain the L2 native balance and
// the 0x800A withdrawal move the gas token, not ETH.
func (o *Orchestrator) planNative(ctx context.Context, clients *Clients, run *ScenarioRun) (*plan, error) {
	gasAsset, err := clients.Gateway.GasAssetAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve gas asset: %w", err)
	}
	run.GasAsset = gasAsset

	if gasAsset != ETHAddressInContracts {
		return nil, fmt.Errorf("%w: chain gas asset is %s, not ETH; bridge it as a token instead", ErrPreconditionFailed, gasAsset.Hex())
	}

	wallet := run.Wallet
	return &plan{
		l1Balance: func(ctx context.Context) (*big.Int, error) { return clients.L1.Balance(ctx, wallet) },
		l2Balance: func(ctx context.Context) (*big.Int, error) { return clients.L2.Balance(ctx, wallet) },
	}, nil
}

// planCustomAsset resolves the gas asset, checks that gas can be paid and derives the L2 token.
func (o *Orchestrator) planCustomAsset(ctx context.Context, clients *Clients, run *ScenarioRun) (*plan, error) {
	gasAsset, err := clients.Gateway.GasAssetAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve gas asset: %w", err)
	}
	run.GasAsset = gasAsset

	asset := run.Asset
	wallet := run.Wallet
	isGasAsset := asset.L1Address == gasAsset

	o.logger.
		With("gas_asset", gasAsset.Hex()).
		With("asset_is_gas_asset", isGasAsset).
		Info("resolved gas asset")

	if !isGasAsset && gasAsset != ETHAddressInContracts {
		balance, err := clients.L1.TokenBalance(ctx, gasAsset, wallet)
		if err != nil {
			return nil, fmt.Errorf("failed to read L1 gas asset balance: %w", err)
		}
		if balance.Sign() == 0 {
			return nil, fmt.Errorf("%w: L1 gas asset %s balance of %s is zero", ErrPreconditionFailed, gasAsset.Hex(), wallet.Hex())
		}
	}

	l2Token, err := clients.Gateway.L2TokenAddress(ctx, asset.L1Address)
	if err != nil {
		return nil, fmt.Errorf("failed to derive L2 token address: %w", err)
	}
	asset.L2Address = l2Token
	run.Asset = asset

	o.logger.With("l1_token", asset.L1Address.Hex()).With("l2_token", l2Token.Hex()).Info("derived L2 token address")

	p := &plan{
		l1Balance: func(ctx context.Context) (*big.Int, error) {
			return clients.L1.TokenBalance(ctx, asset.L1Address, wallet)
		},
		approvals: ApprovalsFor(asset, gasAsset),
	}

	if isGasAsset {
		// The gas asset is the L2 native currency.
		p.l2Balance = func(ctx context.Context) (*big.Int, error) { return clients.L2.Balance(ctx, wallet) }
		return p, nil
	}

	p.l2Balance = func(ctx context.Context) (*big.Int, error) {
		balance, err := clients.L2.TokenBalance(ctx, l2Token, wallet)
		if err != nil {
			// Not deployed on L2 until the first deposit lands.
			o.logger.With("l2_token", l2Token.Hex()).With("err", err).Debug("L2 token balance unavailable, using zero")
			return new(big.Int), nil
		}
		return balance, nil
	}

	return p, nil
}

func (o *Orchestrator) step(name string, fn func() error) error {
	start := o.clock.Now()
	err := fn()
	o.observer.StepCompleted(name, o.clock.Now().Sub(start).Seconds())
	return err
}

func buildReport(run *ScenarioRun, runErr error) *RunReport {
	report := &RunReport{
		RunID:    run.ID,
		Scenario: run.Scenario,
		Asset:    run.Asset.String(),
		Wallet:   run.Wallet,
		Endpoint: run.Endpoint,
		Err:      runErr,
	}

	for _, ledger := range []LedgerName{LedgerL1, LedgerL2} {
		before, ok := run.Snapshot(StepBefore, ledger)
		if !ok {
			continue
		}
		lr := LedgerReport{Ledger: ledger, Before: before.Amount}
		if after, ok := latestSnapshot(run, ledger); ok {
			lr.After = after.Amount
			lr.Delta = new(big.Int).Sub(after.Amount, before.Amount)
		}
		report.Ledgers = append(report.Ledgers, lr)
	}

	if run.Deposit != nil {
		report.DepositTx = run.Deposit.TxHash
	}
	if run.Withdraw != nil {
		report.WithdrawTx = run.Withdraw.TxHash
		if f := run.Withdraw.Finalization; f != nil {
			report.Finalization = FinalizationSummary{
				State:   f.State,
				TxHash:  f.TxHash,
				Elapsed: f.Elapsed,
				Tries:   len(f.Attempts),
			}
		}
	}

	return report
}

func latestSnapshot(run *ScenarioRun, ledger LedgerName) (BalanceSnapshot, bool) {
	for i := len(run.Snapshots) - 1; i >= 0; i-- {
		if run.Snapshots[i].Ledger == ledger {
			return run.Snapshots[i], true
		}
	}
	return BalanceSnapshot{}, false
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

