package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/compose-network/bridge-tester/configs"
	"github.com/compose-network/bridge-tester/internal/endpoint"
	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/compose-network/bridge-tester/internal/scenario"
	"github.com/compose-network/bridge-tester/internal/token"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "bridge-tester"

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "CLI for exercising L1 <-> L2 bridge flows against a local zkSync-style stack",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := configs.Prepare(viper.GetViper()); err != nil {
			const errMsg = "unable to load default config"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}

		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if execPath, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(execPath))
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")

		// Defaults, env and flags are enough to run, so a missing file is fine
		configFile := ""
		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				const errMsg = "error reading config file"
				slog.With("err", err.Error()).Error(errMsg)
				return errors.Join(err, errors.New(errMsg))
			}
		} else {
			configFile = viper.ConfigFileUsed()
		}

		// Token deploys write TOKEN_ADDRESS into the project .env; later runs pick it up from there
		envFiles, err := configs.LoadDotEnv(".", viper.GetString("sink.project-root"))
		if err != nil {
			const errMsg = "error reading .env file"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}

		if err := configs.Decode(viper.GetViper(), &configs.Values); err != nil {
			const errMsg = "unable to decode application config"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}

		logger.Initialize(logger.ParseLevel(configs.Values.Log.Level), configs.Values.Log.Format)
		if configFile != "" {
			slog.With("config_file", configFile).Debug("config file loaded")
		} else {
			slog.Debug("no config file found, relying on flags, env and defaults")
		}
		for _, path := range envFiles {
			slog.With("env_file", path).Debug("env file loaded")
		}

		return nil
	},
}

func main() {
	rootCmd.AddCommand(scenario.CMD)
	rootCmd.AddCommand(token.CMD)
	rootCmd.AddCommand(endpoint.CMD)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.With("err", err.Error()).Error("failed to execute root command")
		stop()
		os.Exit(1)
	}
}
