package bridge

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultSettleDelay      = 10 * time.Second
	DefaultFinalizeInterval = 3 * time.Second
	DefaultFinalizeDeadline = 120 * time.Second
	DefaultInclusionTimeout = 2 * time.Minute
)

// Config is everything a run needs, resolved before the orchestrator is built.
type Config struct {
	Asset          Asset
	Wallet         common.Address
	L2Endpoint     string
	DepositAmount  *big.Int
	WithdrawAmount *big.Int
	// DepositOnly stops the run after the deposit has settled.
	DepositOnly bool

	SettleDelay      time.Duration
	InclusionTimeout time.Duration
	FinalizeInterval time.Duration
	FinalizeDeadline time.Duration
}

// Scenario is selected by the asset under test.
func (c Config) Scenario() Scenario {
	if c.Asset.IsNative() {
		return ScenarioNative
	}
	return ScenarioCustomAsset
}

func (c Config) Validate() error {
	var errs []error

	if c.Wallet == (common.Address{}) {
		errs = append(errs, errors.New("wallet address is required"))
	}
	if c.L2Endpoint == "" {
		errs = append(errs, errors.New("L2 endpoint is required"))
	}
	if !c.Asset.IsNative() && c.Asset.L1Address == (common.Address{}) {
		errs = append(errs, fmt.Errorf("asset %s has no L1 address", c.Asset.Symbol))
	}
	if c.DepositAmount == nil || c.DepositAmount.Sign() <= 0 {
		errs = append(errs, errors.New("deposit amount must be greater than 0"))
	}
	if !c.DepositOnly && (c.WithdrawAmount == nil || c.WithdrawAmount.Sign() <= 0) {
		errs = append(errs, errors.New("withdraw amount must be greater than 0"))
	}
	if c.SettleDelay < 0 {
		errs = append(errs, errors.New("settle delay must not be negative"))
	}
	if c.InclusionTimeout <= 0 {
		errs = append(errs, errors.New("inclusion timeout must be greater than 0"))
	}
	if c.FinalizeInterval <= 0 {
		errs = append(errs, errors.New("finalize interval must be greater than 0"))
	}
	if c.FinalizeDeadline <= c.FinalizeInterval {
		errs = append(errs, errors.New("finalize deadline must be greater than finalize interval"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("scenario configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}
