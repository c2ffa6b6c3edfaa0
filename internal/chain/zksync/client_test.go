package zksync

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/compose-network/bridge-tester/internal/bridge"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testBridgehub = common.HexToAddress("0x35A54c8C757806eB6820629bc82d90E056394C92")
	testL1Bridge  = common.HexToAddress("0x4A9D2bF6A0e6a8eA6b9a3c6ee63D3c0DA2bB2Cc1")
	testL2Bridge  = common.HexToAddress("0x681A1AFdC2e06776816386500D2D461a6C96cB45")
	testAccount   = common.HexToAddress("0x36615Cf349d7F6344891B1e7CA7C72883F5dc049")
	testToken     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testGasToken  = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestDiscoverContracts(t *testing.T) {
	srv := newRPCServer(t, map[string]func([]json.RawMessage) any{
		getBridgehubMethod: result(testBridgehub),
		getBridgesMethod: result(map[string]any{
			"l1Erc20DefaultBridge":  testL1Bridge,
			"l2Erc20DefaultBridge":  testL2Bridge,
			"l1SharedDefaultBridge": testL1Bridge,
			"l2SharedDefaultBridge": testL2Bridge,
		}),
	})

	client, err := rpc.Dial(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	contracts, err := discoverContracts(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, BridgeContracts{Bridgehub: testBridgehub, L1SharedBridge: testL1Bridge, L2SharedBridge: testL2Bridge}, contracts)
}

func TestDiscoverContractsRejectsMissingBridges(t *testing.T) {
	srv := newRPCServer(t, map[string]func([]json.RawMessage) any{
		getBridgehubMethod: result(testBridgehub),
		getBridgesMethod:   result(map[string]any{"l1Erc20DefaultBridge": testL1Bridge}),
	})

	client, err := rpc.Dial(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	_, err = discoverContracts(context.Background(), client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "L1 shared bridge")
	assert.Contains(t, err.Error(), "L2 shared bridge")
}

func TestLedgerTokenBalanceWithoutCode(t *testing.T) {
	srv := newRPCServer(t, map[string]func([]json.RawMessage) any{
		"eth_getCode": result("0x"),
	})

	client, err := ethclient.Dial(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	ledger, err := NewLedger("l2", client, time.Millisecond)
	require.NoError(t, err)

	_, err = ledger.TokenBalance(context.Background(), testToken, testAccount)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no contract deployed")
	assert.Zero(t, srv.count("eth_call"))
}

func TestLedgerTokenBalance(t *testing.T) {
	srv := newRPCServer(t, map[string]func([]json.RawMessage) any{
		"eth_getCode": result("0x6080"),
		"eth_call":    result(common.BigToHash(big.NewInt(4200)).Hex()),
	})

	client, err := ethclient.Dial(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	ledger, err := NewLedger("l1", client, time.Millisecond)
	require.NoError(t, err)

	balance, err := ledger.TokenBalance(context.Background(), testToken, testAccount)
	require.NoError(t, err)
	assert.Equal(t, int64(4200), balance.Int64())
}

func TestLedgerWaitForInclusionPollsUntilReceipt(t *testing.T) {
	txHash := common.HexToHash("0xfeed")
	lookups := 0
	srv := newRPCServer(t, map[string]func([]json.RawMessage) any{
		"eth_getTransactionReceipt": func([]json.RawMessage) any {
			lookups++
			if lookups < 3 {
				return nil
			}
			return map[string]any{
				"transactionHash":   txHash,
				"blockHash":         common.HexToHash("0xb10c"),
				"blockNumber":       "0x2a",
				"transactionIndex":  "0x0",
				"status":            "0x1",
				"cumulativeGasUsed": "0x5208",
				"gasUsed":           "0x5208",
				"logsBloom":         "0x" + strings.Repeat("0", 512),
				"logs":              []any{},
				"type":              "0x2",
			}
		},
	})

	client, err := ethclient.Dial(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	ledger, err := NewLedger("l1", client, time.Millisecond)
	require.NoError(t, err)

	receipt, err := ledger.WaitForInclusion(context.Background(), txHash)
	require.NoError(t, err)
	assert.Equal(t, int64(42), receipt.BlockNumber.Int64())
	assert.Equal(t, 3, srv.count("eth_getTransactionReceipt"))
}

func TestLedgerWaitForInclusionHonoursContext(t *testing.T) {
	srv := newRPCServer(t, map[string]func([]json.RawMessage) any{
		"eth_getTransactionReceipt": result(nil),
	})

	client, err := ethclient.Dial(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	ledger, err := NewLedger("l1", client, 5*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = ledger.WaitForInclusion(ctx, common.HexToHash("0xfeed"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ethereum.NotFound)
}

func TestPlanDeposit(t *testing.T) {
	amount := big.NewInt(100)
	baseCost := big.NewInt(7)

	tests := []struct {
		name     string
		asset    bridge.Asset
		gasAsset common.Address
		want     depositPlan
	}{
		{
			name:     "ETH on ETH chain",
			asset:    bridge.NativeAsset(),
			gasAsset: bridge.ETHAddressInContracts,
			want:     depositPlan{direct: true, mintValue: big.NewInt(107), l2Value: amount, msgValue: big.NewInt(107)},
		},
		{
			name:     "gas token",
			asset:    bridge.TokenAsset("GAS", testGasToken),
			gasAsset: testGasToken,
			want:     depositPlan{direct: true, mintValue: big.NewInt(107), l2Value: amount, msgValue: big.NewInt(0), tokenAllowance: big.NewInt(107)},
		},
		{
			name:     "ETH on custom gas chain",
			asset:    bridge.NativeAsset(),
			gasAsset: testGasToken,
			want:     depositPlan{mintValue: baseCost, secondBridgeValue: amount, msgValue: amount, gasAllowance: baseCost},
		},
		{
			name:     "token on ETH chain",
			asset:    bridge.TokenAsset("USDC", testToken),
			gasAsset: bridge.ETHAddressInContracts,
			want:     depositPlan{mintValue: baseCost, secondBridgeValue: big.NewInt(0), msgValue: baseCost, tokenAllowance: amount},
		},
		{
			name:     "token on custom gas chain",
			asset:    bridge.TokenAsset("USDC", testToken),
			gasAsset: testGasToken,
			want:     depositPlan{mintValue: baseCost, secondBridgeValue: big.NewInt(0), msgValue: big.NewInt(0), tokenAllowance: amount, gasAllowance: baseCost},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, planDeposit(tt.asset, tt.gasAsset, amount, baseCost))
		})
	}
}

func TestSecondBridgeCalldataLayout(t *testing.T) {
	data, err := secondBridgeCalldata(testToken, big.NewInt(5), testAccount)
	require.NoError(t, err)
	require.Len(t, data, 96)

	assert.Equal(t, testToken, common.BytesToAddress(data[:32]))
	assert.Equal(t, int64(5), new(big.Int).SetBytes(data[32:64]).Int64())
	assert.Equal(t, testAccount, common.BytesToAddress(data[64:]))
}
