package endpoint

import (
	"fmt"

	"github.com/compose-network/bridge-tester/configs"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "endpoint",
	Short: "L2 RPC endpoint commands",
}

var probeCmd = &cobra.Command{
	Use:   "probe [url]",
	Short: "Check an L2 RPC endpoint and print the one that answers, trying the alternate port on failure",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l2 := configs.Values.L2
		target := l2.RPCURL
		if len(args) == 1 {
			target = args[0]
		}

		selected, err := NewProber(l2.PrimaryPort, l2.FallbackPort, l2.ProbeTimeout).Select(cmd.Context(), target)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), selected.URL)
		return nil
	},
}

func init() {
	CMD.AddCommand(probeCmd)
}
