package token

import (
	"fmt"

	"github.com/compose-network/bridge-tester/configs"
	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var CMD = &cobra.Command{
	Use:   "token",
	Short: "L1 token commands",
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the gas token on L1 and write its address into the chain configs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configs.Values
		if err := cfg.Validate(); err != nil {
			return err
		}

		log := logger.Named("token_cmd")
		result, err := DeployGasToken(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "token %s (%s) deployed at %s, total supply %s\n",
			result.Name, result.Symbol, result.Address.Hex(), result.TotalSupply)
		return nil
	},
}

func init() {
	flags := deployCmd.Flags()
	flags.String("name", "", "Token name (default token.gas-token-name)")
	flags.String("symbol", "", "Token symbol (default token.gas-token-symbol)")
	flags.String("chain-name", "", "zkstack chain whose configs are updated (default sink.chain-name)")
	flags.Bool("no-sinks", false, "Do not update project config files")

	for key, flag := range map[string]string{
		"token.gas-token-name":   "name",
		"token.gas-token-symbol": "symbol",
		"sink.chain-name":        "chain-name",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	deployCmd.PreRun = func(cmd *cobra.Command, args []string) {
		if noSinks, _ := cmd.Flags().GetBool("no-sinks"); noSinks {
			configs.Values.Sink.Enabled = false
		}
	}

	CMD.AddCommand(deployCmd)
}
