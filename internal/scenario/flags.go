package scenario

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagDef defines a command-line flag with its configuration.
type (
	flagType interface {
		string | int | bool
	}

	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}
)

var (
	stringFlags = []flagDef[string]{
		// Connections
		{"l1-rpc", "l1.rpc-url", "", "L1 RPC URL"},
		{"l2-rpc", "l2.rpc-url", "", "L2 RPC URL; the port is toggled between the primary and fallback port when unreachable"},
		{"wallet-private-key", "wallet.private-key", "", "Wallet private key"},

		// Amounts in whole units
		{"deposit-amount", "scenario.deposit-amount", "", "Amount to deposit L1 -> L2"},
		{"withdraw-amount", "scenario.withdraw-amount", "", "Amount to withdraw L2 -> L1"},
		{"base-token-amount", "scenario.base-token-amount", "", "Amount of the gas token to deposit"},

		// Token
		{"token", "token.address", "", "Existing L1 token for the erc20 scenario instead of deploying one"},
		{"gas-token", "token.gas-token-address", "", "L1 address of the chain's gas token (default TOKEN_ADDRESS)"},
		{"token-name", "token.name", "", "Name of the deployed token"},
		{"token-symbol", "token.symbol", "", "Symbol of the deployed token (default USDC-<MMDDhhmmss>)"},

		// Output
		{"report-dir", "report.dir", "", "Directory for run reports"},
		{"pushgateway-url", "metrics.pushgateway-url", "", "Prometheus Pushgateway URL"},
	}

	intFlags = []flagDef[int]{
		{"primary-port", "l2.primary-port", 0, "Primary L2 RPC port"},
		{"fallback-port", "l2.fallback-port", 0, "Fallback L2 RPC port"},
	}

	boolFlags = []flagDef[bool]{
		{"diagnostics", "diagnostics.enabled", false, "Collect L2 container diagnostics when a run fails or stays unresolved"},
	}
)

func init() {
	flags := CMD.PersistentFlags()
	if err := declareFlags(flags, stringFlags); err != nil {
		panic(err)
	}
	if err := declareFlags(flags, intFlags); err != nil {
		panic(err)
	}
	if err := declareFlags(flags, boolFlags); err != nil {
		panic(err)
	}
}

// declareFlags declares multiple flags and binds them to viper configuration keys.
func declareFlags[T flagType](flags *pflag.FlagSet, defs []flagDef[T]) error {
	for _, flag := range defs {
		if err := declareFlag(flags, flag.name, flag.viperKey, flag.defaultValue, flag.description); err != nil {
			return err
		}
	}
	return nil
}

// declareFlag declares a single flag and binds it to a viper configuration key.
// The type parameter T determines the flag type (string, int, or bool).
func declareFlag[T flagType](flags *pflag.FlagSet, flagName, viperKey string, defaultValue T, description string) error {
	var zero T
	switch any(zero).(type) {
	case string:
		flags.String(flagName, any(defaultValue).(string), description)
	case int:
		flags.Int(flagName, any(defaultValue).(int), description)
	case bool:
		flags.Bool(flagName, any(defaultValue).(bool), description)
	}
	return viper.BindPFlag(viperKey, flags.Lookup(flagName))
}
