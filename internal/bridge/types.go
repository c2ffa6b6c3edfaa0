package bridge

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

type (
	AssetKind      string
	Direction      string
	Scenario       string
	Step           string
	LedgerName     string
	TransferStatus string
	AttemptOutcome string
	FinalizeState  string

	// Asset identifies what is being moved across the bridge.
	Asset struct {
		Kind   AssetKind
		Symbol string
		// L1Address is the zero address for the native asset.
		L1Address common.Address
		// L2Address is resolved by the orchestrator, never supplied by the user.
		L2Address common.Address
	}

	// Approvals tells the gateway which source-chain allowances to grant before the transfer.
	Approvals struct {
		Token    bool
		GasAsset bool
	}

	TransferIntent struct {
		Direction Direction
		Asset     Asset
		Amount    *big.Int
		Receiver  common.Address
		Approvals Approvals
	}

	TransferRecord struct {
		Direction    Direction
		TxHash       common.Hash
		Status       TransferStatus
		BlockNumber  *big.Int
		Finalization *FinalizationRecord
	}

	FinalizationAttempt struct {
		Seq     int
		Elapsed time.Duration
		Outcome AttemptOutcome
		Err     error
	}

	FinalizationRecord struct {
		State    FinalizeState
		TxHash   common.Hash
		Elapsed  time.Duration
		Attempts []FinalizationAttempt
	}

	BalanceSnapshot struct {
		Step    Step
		Ledger  LedgerName
		Asset   string
		Address common.Address
		Amount  *big.Int
		// Offset is measured from the start of the run.
		Offset time.Duration
	}
)

const (
	AssetKindNative AssetKind = "native"
	AssetKindERC20  AssetKind = "erc20"

	DirectionDeposit  Direction = "deposit"
	DirectionWithdraw Direction = "withdraw"

	ScenarioNative      Scenario = "native"
	ScenarioCustomAsset Scenario = "custom-asset"

	StepBefore        Step = "before"
	StepAfterDeposit  Step = "after-deposit"
	StepAfterWithdraw Step = "after-withdraw"
	StepFinal         Step = "final"

	LedgerL1 LedgerName = "L1"
	LedgerL2 LedgerName = "L2"

	TransferSubmitted TransferStatus = "submitted"
	TransferIncluded  TransferStatus = "included"

	AttemptPending       AttemptOutcome = "pending"
	AttemptSuccess       AttemptOutcome = "success"
	AttemptTerminalError AttemptOutcome = "terminal-error"

	FinalizePending   FinalizeState = "pending"
	FinalizeFinalized FinalizeState = "finalized"
	FinalizeExhausted FinalizeState = "unresolved"
)

// ETHAddressInContracts is how bridge contracts refer to ETH.
var ETHAddressInContracts = common.HexToAddress("0x0000000000000000000000000000000000000001")

// NativeAsset returns the chain-native gas asset (ETH).
func NativeAsset() Asset {
	return Asset{Kind: AssetKindNative, Symbol: "ETH"}
}

// TokenAsset returns an ERC-20 asset living at l1Address on L1.
func TokenAsset(symbol string, l1Address common.Address) Asset {
	return Asset{Kind: AssetKindERC20, Symbol: symbol, L1Address: l1Address}
}

func (a Asset) IsNative() bool {
	return a.Kind == AssetKindNative
}

// ContractAddress is the L1 address bridge contracts expect for this asset.
func (a Asset) ContractAddress() common.Address {
	if a.IsNative() {
		return ETHAddressInContracts
	}
	return a.L1Address
}

func (a Asset) String() string {
	if a.IsNative() {
		return a.Symbol
	}
	return fmt.Sprintf("%s(%s)", a.Symbol, a.L1Address.Hex())
}

// ApprovalsFor decides which allowances a deposit of asset needs when the L2 pays gas in gasAsset.
func ApprovalsFor(asset Asset, gasAsset common.Address) Approvals {
	ethGas := gasAsset == ETHAddressInContracts
	if asset.IsNative() {
		return Approvals{GasAsset: !ethGas}
	}
	if asset.L1Address == gasAsset {
		return Approvals{Token: true, GasAsset: true}
	}
	return Approvals{Token: true, GasAsset: !ethGas}
}

// Included reports whether the transfer reached its source chain.
func (r *TransferRecord) Included() bool {
	return r != nil && r.Status == TransferIncluded
}

// LastAttempt returns the most recent finalize attempt, if any.
func (f *FinalizationRecord) LastAttempt() (FinalizationAttempt, bool) {
	if f == nil || len(f.Attempts) == 0 {
		return FinalizationAttempt{}, false
	}
	return f.Attempts[len(f.Attempts)-1], true
}

func newRunID() string {
	return uuid.NewString()
}

// receiptBlock copies the inclusion block out of a receipt.
func receiptBlock(r *types.Receipt) *big.Int {
	if r == nil || r.BlockNumber == nil {
		return nil
	}
	return new(big.Int).Set(r.BlockNumber)
}
