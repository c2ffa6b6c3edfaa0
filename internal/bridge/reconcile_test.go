package bridge

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(values ...int64) BalanceFunc {
	i := 0
	return func(context.Context) (*big.Int, error) {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return big.NewInt(v), nil
	}
}

func TestReconcilerSnapshotsBothLedgers(t *testing.T) {
	clock := newFakeClock()
	run := newRun(ScenarioNative, NativeAsset(), testWallet, clock.Now())
	r := NewReconciler(sequence(100, 80), sequence(0, 20), clock)

	require.NoError(t, r.Snapshot(context.Background(), run, StepBefore))
	require.NoError(t, clock.Sleep(context.Background(), 5*time.Second))
	require.NoError(t, r.Snapshot(context.Background(), run, StepFinal))

	require.Len(t, run.Snapshots, 4)
	assert.Equal(t, LedgerL1, run.Snapshots[0].Ledger)
	assert.Equal(t, LedgerL2, run.Snapshots[1].Ledger)

	final, ok := run.Snapshot(StepFinal, LedgerL1)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, final.Offset)
	assert.Equal(t, "ETH", final.Asset)
	assert.Equal(t, testWallet, final.Address)
}

func TestReportIsPure(t *testing.T) {
	clock := newFakeClock()
	run := newRun(ScenarioNative, NativeAsset(), testWallet, clock.Now())
	r := NewReconciler(sequence(100, 90), sequence(5, 15), clock)

	require.NoError(t, r.Snapshot(context.Background(), run, StepBefore))
	require.NoError(t, r.Snapshot(context.Background(), run, StepFinal))

	first, err := Report(run)
	require.NoError(t, err)
	second, err := Report(run)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(-10), first.L1.Int64())
	assert.Equal(t, int64(10), first.L2.Int64())
	assert.Len(t, run.Snapshots, 4)
}

func TestReportRequiresBeforeAndFinal(t *testing.T) {
	clock := newFakeClock()
	run := newRun(ScenarioNative, NativeAsset(), testWallet, clock.Now())
	r := NewReconciler(sequence(1), sequence(1), clock)

	require.NoError(t, r.Snapshot(context.Background(), run, StepBefore))

	_, err := Report(run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(StepFinal))
}

func TestReconcilerReadError(t *testing.T) {
	clock := newFakeClock()
	run := newRun(ScenarioNative, NativeAsset(), testWallet, clock.Now())
	failing := func(context.Context) (*big.Int, error) { return nil, errors.New("rpc down") }
	r := NewReconciler(sequence(1), failing, clock)

	err := r.Snapshot(context.Background(), run, StepBefore)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "L2")
}

func TestReconcilerRejectsClosedRun(t *testing.T) {
	clock := newFakeClock()
	run := newRun(ScenarioNative, NativeAsset(), testWallet, clock.Now())
	run.close(&RunReport{})

	err := NewReconciler(sequence(1), sequence(1), clock).Snapshot(context.Background(), run, StepFinal)
	require.ErrorIs(t, err, ErrRunClosed)
	assert.Empty(t, run.Snapshots)
}
