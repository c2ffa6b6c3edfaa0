package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Poller finalizes a withdrawal on L1, retrying at a fixed interval until a deadline.
//
// Every failed attempt is treated as "not yet finalizable": an invalid request and a proof window that has
// not elapsed look the same. The loop runs at most ceil(deadline/interval) attempts.
type Poller struct {
	gateway          Gateway
	l1               Ledger
	clock            Clock
	interval         time.Duration
	inclusionTimeout time.Duration
	observer         Observer
	logger           *slog.Logger
}

func NewPoller(gateway Gateway, l1 Ledger, clock Clock, interval, inclusionTimeout time.Duration, observer Observer) *Poller {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Poller{
		gateway:          gateway,
		l1:               l1,
		clock:            clock,
		interval:         interval,
		inclusionTimeout: inclusionTimeout,
		observer:         observer,
		logger:           logger.Named("finalization_poller"),
	}
}

// Finalize drives Pending -> {Finalized, Exhausted}. Exhaustion returns the record together with an error
// wrapping ErrFinalizationExhausted; only context cancellation is terminal.
func (p *Poller) Finalize(ctx context.Context, withdrawTx common.Hash, deadline time.Duration) (*FinalizationRecord, error) {
	rec := &FinalizationRecord{State: FinalizePending}

	for seq := 1; rec.Elapsed < deadline; seq++ {
		p.logger.
			With("withdraw_tx", withdrawTx.Hex()).
			With("attempt", seq).
			With("elapsed", rec.Elapsed).
			With("deadline", deadline).
			Info("attempting finalize")

		txHash, err := p.attempt(ctx, withdrawTx)
		if err == nil {
			rec.State = FinalizeFinalized
			rec.TxHash = txHash
			rec.Attempts = append(rec.Attempts, FinalizationAttempt{Seq: seq, Elapsed: rec.Elapsed, Outcome: AttemptSuccess})
			p.observer.FinalizeAttempted(AttemptSuccess)

			p.logger.
				With("finalize_tx", txHash.Hex()).
				With("waited", rec.Elapsed).
				Info("withdrawal finalized")

			return rec, nil
		}

		if ctx.Err() != nil {
			rec.Attempts = append(rec.Attempts, FinalizationAttempt{Seq: seq, Elapsed: rec.Elapsed, Outcome: AttemptTerminalError, Err: ctx.Err()})
			p.observer.FinalizeAttempted(AttemptTerminalError)
			return rec, fmt.Errorf("finalize polling interrupted: %w", ctx.Err())
		}

		rec.Attempts = append(rec.Attempts, FinalizationAttempt{Seq: seq, Elapsed: rec.Elapsed, Outcome: AttemptPending, Err: err})
		p.observer.FinalizeAttempted(AttemptPending)
		p.logger.With("err", err).Debug("withdrawal not finalizable yet")

		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return rec, fmt.Errorf("finalize polling interrupted: %w", err)
		}
		rec.Elapsed += p.interval
	}

	rec.State = FinalizeExhausted

	p.logger.
		With("withdraw_tx", withdrawTx.Hex()).
		With("waited", rec.Elapsed).
		With("attempts", len(rec.Attempts)).
		Warn("finalize timed out, finalize manually later")

	return rec, fmt.Errorf("%w: %s after %s", ErrFinalizationExhausted, withdrawTx.Hex(), rec.Elapsed)
}

func (p *Poller) attempt(ctx context.Context, withdrawTx common.Hash) (common.Hash, error) {
	txHash, err := p.gateway.SubmitFinalize(ctx, withdrawTx)
	if err != nil {
		return common.Hash{}, err
	}

	p.logger.With("finalize_tx", txHash.Hex()).Info("finalize transaction submitted")

	waitCtx, cancel := context.WithTimeout(ctx, p.inclusionTimeout)
	defer cancel()

	receipt, err := p.l1.WaitForInclusion(waitCtx, txHash)
	if err != nil {
		return common.Hash{}, fmt.Errorf("finalize %s not included: %w", txHash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Hash{}, fmt.Errorf("finalize %s reverted", txHash.Hex())
	}

	return txHash, nil
}
