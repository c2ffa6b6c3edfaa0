package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/compose-network/bridge-tester/internal/endpoint"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	testWallet   = common.HexToAddress("0x36615Cf349d7F6344891B1e7CA7C72883F5dc049")
	testToken    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testGasToken = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testL2Token  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testEndpoint = "http://127.0.0.1:3050"

	errNotFinalizable = errors.New("withdrawal not yet provable")
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

type fakeLedger struct {
	mu       sync.Mutex
	chainID  int64
	native   map[common.Address]*big.Int
	tokens   map[common.Address]map[common.Address]*big.Int
	receipts map[common.Hash]*types.Receipt
	// hang makes WaitForInclusion block until its context ends.
	hang bool
	// failBalanceCall makes the n-th Balance call fail; zero never fails.
	failBalanceCall int
	balanceCalls    int
}

func newFakeLedger(chainID int64) *fakeLedger {
	return &fakeLedger{
		chainID:  chainID,
		native:   map[common.Address]*big.Int{},
		tokens:   map[common.Address]map[common.Address]*big.Int{},
		receipts: map[common.Hash]*types.Receipt{},
	}
}

func (l *fakeLedger) NetworkID(context.Context) (*big.Int, error) {
	return big.NewInt(l.chainID), nil
}

func (l *fakeLedger) Balance(_ context.Context, account common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balanceCalls++
	if l.balanceCalls == l.failBalanceCall {
		return nil, errors.New("header not found")
	}
	return new(big.Int).Set(valueOrZero(l.native[account])), nil
}

func (l *fakeLedger) TokenBalance(_ context.Context, token, account common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	holders, ok := l.tokens[token]
	if !ok {
		return nil, fmt.Errorf("no contract code at %s", token.Hex())
	}
	return new(big.Int).Set(valueOrZero(holders[account])), nil
}

func (l *fakeLedger) WaitForInclusion(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if l.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.receipts[txHash]; ok {
		return r, nil
	}
	return &types.Receipt{TxHash: txHash, Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(7)}, nil
}

func (l *fakeLedger) setNative(account common.Address, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.native[account] = big.NewInt(amount)
}

func (l *fakeLedger) setToken(token, account common.Address, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokens[token] == nil {
		l.tokens[token] = map[common.Address]*big.Int{}
	}
	l.tokens[token][account] = big.NewInt(amount)
}

func (l *fakeLedger) addNative(account common.Address, delta *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.native[account] = new(big.Int).Add(valueOrZero(l.native[account]), delta)
}

func (l *fakeLedger) addToken(token, account common.Address, delta *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokens[token] == nil {
		l.tokens[token] = map[common.Address]*big.Int{}
	}
	l.tokens[token][account] = new(big.Int).Add(valueOrZero(l.tokens[token][account]), delta)
}

func (l *fakeLedger) revert(txHash common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.receipts[txHash] = &types.Receipt{TxHash: txHash, Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(7)}
}

// fakeGateway moves balances between two fake ledgers the way a bridge would.
type fakeGateway struct {
	mu       sync.Mutex
	l1, l2   *fakeLedger
	gasAsset common.Address
	l2Token  common.Address

	submitErr error
	// hangSubmit makes SubmitTransfer block until its context ends, like a stalled approval receipt.
	hangSubmit bool
	// finalizeFailures is the number of failing finalize calls before one succeeds; negative never succeeds.
	finalizeFailures int
	onFinalize       func(call int)

	transfers     []TransferIntent
	finalizeCalls int
	nonce         int64
	pending       *TransferIntent
}

func newFakeGateway(l1, l2 *fakeLedger) *fakeGateway {
	return &fakeGateway{l1: l1, l2: l2, gasAsset: ETHAddressInContracts, l2Token: testL2Token}
}

func (g *fakeGateway) SubmitTransfer(ctx context.Context, intent TransferIntent) (common.Hash, error) {
	if g.hangSubmit {
		<-ctx.Done()
		return common.Hash{}, fmt.Errorf("waiting for approval receipt: %w", ctx.Err())
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.submitErr != nil {
		return common.Hash{}, g.submitErr
	}
	g.transfers = append(g.transfers, intent)

	amount := new(big.Int).Set(intent.Amount)
	neg := new(big.Int).Neg(amount)
	switch intent.Direction {
	case DirectionDeposit:
		g.adjustL1(intent.Asset, neg)
		g.adjustL2(intent.Asset, amount)
	case DirectionWithdraw:
		g.adjustL2(intent.Asset, neg)
		pending := intent
		g.pending = &pending
	}

	return g.nextHash(), nil
}

func (g *fakeGateway) SubmitFinalize(_ context.Context, _ common.Hash) (common.Hash, error) {
	g.mu.Lock()
	g.finalizeCalls++
	call := g.finalizeCalls
	hook := g.onFinalize
	g.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finalizeFailures < 0 || call <= g.finalizeFailures {
		return common.Hash{}, errNotFinalizable
	}
	if g.pending != nil {
		g.adjustL1(g.pending.Asset, g.pending.Amount)
		g.pending = nil
	}
	return g.nextHash(), nil
}

func (g *fakeGateway) L2TokenAddress(_ context.Context, l1Token common.Address) (common.Address, error) {
	if l1Token == g.gasAsset {
		return common.HexToAddress("0x000000000000000000000000000000000000800A"), nil
	}
	return g.l2Token, nil
}

func (g *fakeGateway) GasAssetAddress(context.Context) (common.Address, error) {
	return g.gasAsset, nil
}

func (g *fakeGateway) adjustL1(asset Asset, delta *big.Int) {
	if asset.IsNative() {
		g.l1.addNative(testWallet, delta)
		return
	}
	g.l1.addToken(asset.L1Address, testWallet, delta)
}

func (g *fakeGateway) adjustL2(asset Asset, delta *big.Int) {
	if asset.IsNative() || asset.L1Address == g.gasAsset {
		g.l2.addNative(testWallet, delta)
		return
	}
	g.l2.addToken(g.l2Token, testWallet, delta)
}

func (g *fakeGateway) nextHash() common.Hash {
	g.nonce++
	return common.BigToHash(big.NewInt(0xb000 + g.nonce))
}

func (g *fakeGateway) submitted() []TransferIntent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]TransferIntent(nil), g.transfers...)
}

type fakeSelector struct {
	err   error
	calls int
}

func (s *fakeSelector) Select(_ context.Context, primary string) (endpoint.Endpoint, error) {
	s.calls++
	if s.err != nil {
		return endpoint.Endpoint{URL: primary}, s.err
	}
	return endpoint.Endpoint{URL: primary, Healthy: true}, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	steps    []string
	attempts []AttemptOutcome
	outcome  string
}

func (o *recordingObserver) StepCompleted(step string, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, step)
}

func (o *recordingObserver) FinalizeAttempted(outcome AttemptOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts = append(o.attempts, outcome)
}

func (o *recordingObserver) RunFinished(_ Scenario, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcome = outcome
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
