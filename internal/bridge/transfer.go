package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/ethereum/go-ethereum/core/types"
)

// DepositDriver moves value L1 -> L2 and waits out the settling delay.
type DepositDriver struct {
	gateway          Gateway
	l1               Ledger
	clock            Clock
	inclusionTimeout time.Duration
	settleDelay      time.Duration
	logger           *slog.Logger
}

// WithdrawDriver starts an L2 -> L1 withdrawal. Finalization is the Poller's job.
type WithdrawDriver struct {
	gateway          Gateway
	l2               Ledger
	inclusionTimeout time.Duration
	logger           *slog.Logger
}

func NewDepositDriver(gateway Gateway, l1 Ledger, clock Clock, inclusionTimeout, settleDelay time.Duration) *DepositDriver {
	return &DepositDriver{
		gateway:          gateway,
		l1:               l1,
		clock:            clock,
		inclusionTimeout: inclusionTimeout,
		settleDelay:      settleDelay,
		logger:           logger.Named("deposit_driver"),
	}
}

func NewWithdrawDriver(gateway Gateway, l2 Ledger, inclusionTimeout time.Duration) *WithdrawDriver {
	return &WithdrawDriver{
		gateway:          gateway,
		l2:               l2,
		inclusionTimeout: inclusionTimeout,
		logger:           logger.Named("withdraw_driver"),
	}
}

// Deposit submits intent on L1, records the hash on run, waits for inclusion and then for the settling delay.
func (d *DepositDriver) Deposit(ctx context.Context, run *ScenarioRun, intent TransferIntent) (*TransferRecord, error) {
	intent.Direction = DirectionDeposit

	d.logger.
		With("asset", intent.Asset.String()).
		With("amount", intent.Amount.String()).
		With("approve_token", intent.Approvals.Token).
		With("approve_gas_asset", intent.Approvals.GasAsset).
		Info("submitting deposit")

	rec, err := submitAndWait(ctx, d.gateway, d.l1, run, intent, d.inclusionTimeout, d.logger)
	if err != nil {
		return rec, err
	}

	d.logger.With("delay", d.settleDelay).Info("deposit included, waiting for L2 to settle")
	if err := d.clock.Sleep(ctx, d.settleDelay); err != nil {
		return rec, fmt.Errorf("settling delay interrupted: %w", err)
	}

	return rec, nil
}

// Withdraw submits intent on L2 and waits for L2 inclusion only.
func (w *WithdrawDriver) Withdraw(ctx context.Context, run *ScenarioRun, intent TransferIntent) (*TransferRecord, error) {
	intent.Direction = DirectionWithdraw

	w.logger.
		With("asset", intent.Asset.String()).
		With("l2_token", intent.Asset.L2Address.Hex()).
		With("amount", intent.Amount.String()).
		Info("submitting withdrawal")

	return submitAndWait(ctx, w.gateway, w.l2, run, intent, w.inclusionTimeout, w.logger)
}

func submitAndWait(ctx context.Context, gateway Gateway, ledger Ledger, run *ScenarioRun, intent TransferIntent, timeout time.Duration, log *slog.Logger) (*TransferRecord, error) {
	if intent.Amount == nil || intent.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s amount must be positive", ErrSubmission, intent.Direction)
	}

	// Submission includes approvals waiting for their own receipts, so it shares the inclusion bound.
	submitCtx, cancelSubmit := context.WithTimeout(ctx, timeout)
	txHash, err := gateway.SubmitTransfer(submitCtx, intent)
	timedOut := errors.Is(submitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancelSubmit()
	if err != nil {
		if timedOut {
			return nil, fmt.Errorf("%w: %s not submitted after %s: %w", ErrInclusionTimeout, intent.Direction, timeout, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrSubmission, intent.Direction, err)
	}

	rec := &TransferRecord{
		Direction: intent.Direction,
		TxHash:    txHash,
		Status:    TransferSubmitted,
	}
	if err := run.setTransfer(rec); err != nil {
		return rec, err
	}

	log.With("tx_hash", txHash.Hex()).Info("transaction submitted, waiting for inclusion")

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	receipt, err := ledger.WaitForInclusion(waitCtx, txHash)
	if err != nil {
		// Only our own bound counts as an inclusion timeout; a cancelled parent is an interrupt.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return rec, fmt.Errorf("%w: %s %s after %s", ErrInclusionTimeout, intent.Direction, txHash.Hex(), timeout)
		}
		return rec, fmt.Errorf("failed to wait for %s %s: %w", intent.Direction, txHash.Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return rec, fmt.Errorf("%w: %s %s reverted", ErrSubmission, intent.Direction, txHash.Hex())
	}

	rec.Status = TransferIncluded
	rec.BlockNumber = receiptBlock(receipt)

	log.
		With("tx_hash", txHash.Hex()).
		With("block_number", rec.BlockNumber).
		Info("transaction included")

	return rec, nil
}
