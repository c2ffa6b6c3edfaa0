package scenario

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/compose-network/bridge-tester/configs"
	"github.com/compose-network/bridge-tester/internal/bridge"
	"github.com/compose-network/bridge-tester/internal/deploy"
	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/compose-network/bridge-tester/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "bridge",
	Short: "Run L1 <-> L2 bridge scenarios",
}

var ethCmd = &cobra.Command{
	Use:   "eth",
	Short: "Deposit ETH to L2, withdraw part of it and finalize the withdrawal on L1",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configs.Values
		if err := cfg.Validate(); err != nil {
			return err
		}

		return NewService(cfg, cmd.OutOrStdout()).Execute(cmd.Context(), Request{
			Asset:          bridge.NativeAsset(),
			DepositAmount:  cfg.Scenario.DepositAmount,
			WithdrawAmount: cfg.Scenario.WithdrawAmount,
		})
	},
}

var erc20Cmd = &cobra.Command{
	Use:   "erc20",
	Short: "Deploy an ERC-20 on L1 (unless --token is set), bridge it to L2 and back",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configs.Values
		if err := cfg.Validate(); err != nil {
			return err
		}

		log := logger.Named("bridge_cmd")
		symbol := cfg.Token.Symbol
		address := cfg.Token.Address

		if address == "" {
			if symbol == "" {
				symbol = deploy.DefaultSymbol(time.Now())
			}
			result, err := token.Deploy(cmd.Context(), cfg, cfg.Token.Name, symbol)
			if err != nil {
				return fmt.Errorf("failed to deploy token: %w", err)
			}
			address = result.Address.Hex()
			log.With("token", address).With("symbol", symbol).Info("token deployed for scenario")
		} else {
			if symbol == "" {
				symbol = "TOKEN"
			}
			warn := log.With("token", address)
			if strings.EqualFold(address, cfg.Token.GasTokenAddress) {
				warn = warn.With("gas_token", true)
			}
			warn.Warn("reusing existing token instead of deploying one")
		}

		return NewService(cfg, cmd.OutOrStdout()).Execute(cmd.Context(), Request{
			Asset:          bridge.TokenAsset(symbol, common.HexToAddress(address)),
			DepositAmount:  cfg.Scenario.DepositAmount,
			WithdrawAmount: cfg.Scenario.WithdrawAmount,
		})
	},
}

var depositBaseTokenCmd = &cobra.Command{
	Use:   "deposit-base-token",
	Short: "Deposit the chain's ERC-20 gas token from L1 to L2",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configs.Values
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.Token.GasTokenAddress == "" {
			return errors.New("token.gas-token-address (--gas-token or TOKEN_ADDRESS) must name the gas token")
		}

		return NewService(cfg, cmd.OutOrStdout()).Execute(cmd.Context(), Request{
			Asset:         bridge.TokenAsset(cfg.Token.GasTokenSymbol, common.HexToAddress(cfg.Token.GasTokenAddress)),
			DepositAmount: cfg.Scenario.BaseTokenAmount,
			DepositOnly:   true,
		})
	},
}

func init() {
	CMD.AddCommand(ethCmd)
	CMD.AddCommand(erc20Cmd)
	CMD.AddCommand(depositBaseTokenCmd)
}
