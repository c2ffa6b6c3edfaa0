package configs

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var Values Config

type (
	Config struct {
		L1          L1          `mapstructure:"l1"`
		L2          L2          `mapstructure:"l2"`
		Wallet      Wallet      `mapstructure:"wallet"`
		Scenario    Scenario    `mapstructure:"scenario"`
		Token       Token       `mapstructure:"token"`
		Sink        Sink        `mapstructure:"sink"`
		Diagnostics Diagnostics `mapstructure:"diagnostics"`
		Metrics     Metrics     `mapstructure:"metrics"`
		Log         Log         `mapstructure:"log"`
		Report      Report      `mapstructure:"report"`
	}

	L1 struct {
		RPCURL string `mapstructure:"rpc-url"`
	}

	L2 struct {
		RPCURL        string        `mapstructure:"rpc-url"`
		PrimaryPort   int           `mapstructure:"primary-port"`
		FallbackPort  int           `mapstructure:"fallback-port"`
		ProbeTimeout  time.Duration `mapstructure:"probe-timeout"`
		GasLimit      uint64        `mapstructure:"gas-limit"`
		GasPerPubdata uint64        `mapstructure:"gas-per-pubdata"`
	}

	Wallet struct {
		PrivateKey string `mapstructure:"private-key"`
	}

	Scenario struct {
		// Amounts are whole token units, e.g. "20" or "0.5".
		DepositAmount       string        `mapstructure:"deposit-amount"`
		WithdrawAmount      string        `mapstructure:"withdraw-amount"`
		BaseTokenAmount     string        `mapstructure:"base-token-amount"`
		SettleDelay         time.Duration `mapstructure:"settle-delay"`
		InclusionTimeout    time.Duration `mapstructure:"inclusion-timeout"`
		FinalizeInterval    time.Duration `mapstructure:"finalize-interval"`
		FinalizeDeadline    time.Duration `mapstructure:"finalize-deadline"`
		ReceiptPollInterval time.Duration `mapstructure:"receipt-poll-interval"`
	}

	Token struct {
		// Address reuses an already deployed L1 token in the ERC-20 scenario instead of deploying one.
		Address string `mapstructure:"address"`
		Name    string `mapstructure:"name"`
		Symbol  string `mapstructure:"symbol"`
		// GasTokenAddress is the chain's ERC-20 gas token, as written to .env by token deploy.
		GasTokenAddress string `mapstructure:"gas-token-address"`
		GasTokenName    string `mapstructure:"gas-token-name"`
		GasTokenSymbol  string `mapstructure:"gas-token-symbol"`
		Artifact        string `mapstructure:"artifact"`
		DeployLog       string `mapstructure:"deploy-log"`
	}

	Sink struct {
		Enabled     bool   `mapstructure:"enabled"`
		ProjectRoot string `mapstructure:"project-root"`
		ChainName   string `mapstructure:"chain-name"`
	}

	Diagnostics struct {
		Enabled   bool     `mapstructure:"enabled"`
		Container string   `mapstructure:"container"`
		RPCPort   int      `mapstructure:"rpc-port"`
		Tail      int      `mapstructure:"tail"`
		MaxLines  int      `mapstructure:"max-lines"`
		Keywords  []string `mapstructure:"keywords"`
	}

	Metrics struct {
		PushgatewayURL string `mapstructure:"pushgateway-url"`
	}

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	}

	Report struct {
		Dir string `mapstructure:"dir"`
	}
)

// EnvPrefix prefixes every environment override, e.g. BRIDGE_TESTER_L1_RPC_URL.
const EnvPrefix = "BRIDGE_TESTER"

// LegacyEnv maps config keys to the unprefixed variables the bridge scripts used to read.
var LegacyEnv = map[string]string{
	"l1.rpc-url":               "L1_RPC",
	"l2.rpc-url":               "L2_RPC",
	"wallet.private-key":       "WALLET_PRIVATE_KEY",
	"token.gas-token-address":  "TOKEN_ADDRESS",
	"token.name":               "TOKEN_NAME",
	"token.symbol":             "TOKEN_SYMBOL",
	"sink.chain-name":          "CHAIN_NAME",
	"scenario.deposit-amount":  "DEPOSIT_AMOUNT",
	"scenario.withdraw-amount": "WITHDRAW_AMOUNT",
}

// LegacySecondsEnv maps duration keys to legacy variables holding whole seconds.
var LegacySecondsEnv = map[string]string{
	"scenario.settle-delay":      "DEPOSIT_WAIT_SECONDS",
	"scenario.finalize-deadline": "WITHDRAW_FINALIZE_WAIT",
}

// Validate checks what every bridge command needs.
func (c *Config) Validate() error {
	var errs []error

	if err := validateURL(c.L1.RPCURL); err != nil {
		errs = append(errs, fmt.Errorf("l1.rpc-url: %w", err))
	}
	if err := validateURL(c.L2.RPCURL); err != nil {
		errs = append(errs, fmt.Errorf("l2.rpc-url: %w", err))
	}
	if c.Wallet.PrivateKey == "" {
		errs = append(errs, errors.New("wallet.private-key is required"))
	}
	if c.Token.Address != "" && !common.IsHexAddress(c.Token.Address) {
		errs = append(errs, fmt.Errorf("token.address %q is not a hex address", c.Token.Address))
	}
	if c.Token.GasTokenAddress != "" && !common.IsHexAddress(c.Token.GasTokenAddress) {
		errs = append(errs, fmt.Errorf("token.gas-token-address %q is not a hex address", c.Token.GasTokenAddress))
	}
	if c.L2.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("l2.probe-timeout must be greater than 0"))
	}
	if c.Scenario.ReceiptPollInterval <= 0 {
		errs = append(errs, errors.New("scenario.receipt-poll-interval must be greater than 0"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// PrivateKeyHex returns the wallet key without a 0x prefix.
func (w Wallet) PrivateKeyHex() string {
	return strings.TrimPrefix(strings.TrimPrefix(w.PrivateKey, "0x"), "0X")
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}
