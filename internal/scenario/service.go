package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/compose-network/bridge-tester/configs"
	"github.com/compose-network/bridge-tester/internal/bridge"
	"github.com/compose-network/bridge-tester/internal/chain/zksync"
	"github.com/compose-network/bridge-tester/internal/diagnostics"
	"github.com/compose-network/bridge-tester/internal/endpoint"
	fsjson "github.com/compose-network/bridge-tester/internal/infra/filesystem/json"
	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/compose-network/bridge-tester/internal/metrics"
	"github.com/compose-network/bridge-tester/internal/report"
	"github.com/ethereum/go-ethereum/crypto"
)

const metricsPushTimeout = 10 * time.Second

// Request selects what a run bridges.
type Request struct {
	Asset          bridge.Asset
	DepositAmount  string
	WithdrawAmount string
	DepositOnly    bool
}

type Service struct {
	cfg    configs.Config
	out    io.Writer
	logger *slog.Logger
}

func NewService(cfg configs.Config, out io.Writer) *Service {
	return &Service{
		cfg:    cfg,
		out:    out,
		logger: logger.Named("scenario"),
	}
}

// Execute runs one scenario end to end, then prints and stores its report. An unresolved withdrawal is
// reported but is not an error.
func (s *Service) Execute(ctx context.Context, req Request) error {
	bridgeCfg, zkCfg, err := s.configure(req)
	if err != nil {
		return err
	}

	prober := endpoint.NewProber(s.cfg.L2.PrimaryPort, s.cfg.L2.FallbackPort, s.cfg.L2.ProbeTimeout)
	recorder := metrics.NewRecorder()
	orchestrator := bridge.NewOrchestrator(bridgeCfg, prober, zksync.Connector(zkCfg), bridge.RealClock(), recorder)

	run, runErr := orchestrator.Run(ctx)

	if err := report.NewRenderer(s.out).Render(run.Report); err != nil {
		s.logger.With("err", err).Warn("failed to render run report")
	}
	if path, err := report.NewWriter(s.cfg.Report.Dir, fsjson.NewWriter()).Write(run.Report); err != nil {
		s.logger.With("err", err).Warn("failed to write run report")
	} else {
		s.logger.With("path", path).Info("run report written")
	}

	if s.cfg.Diagnostics.Enabled && needsDiagnostics(run, runErr) {
		s.collectDiagnostics(context.WithoutCancel(ctx))
	}

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsPushTimeout)
	defer cancel()
	if err := recorder.Push(pushCtx, s.cfg.Metrics.PushgatewayURL, run.ID); err != nil {
		s.logger.With("err", err).Warn("failed to push metrics")
	}

	return runErr
}

func (s *Service) configure(req Request) (bridge.Config, zksync.Config, error) {
	key, err := crypto.HexToECDSA(s.cfg.Wallet.PrivateKeyHex())
	if err != nil {
		return bridge.Config{}, zksync.Config{}, fmt.Errorf("invalid wallet private key: %w", err)
	}

	deposit, err := report.ParseUnits(req.DepositAmount, report.TokenDecimals)
	if err != nil {
		return bridge.Config{}, zksync.Config{}, fmt.Errorf("deposit amount: %w", err)
	}

	var withdraw *big.Int
	if !req.DepositOnly {
		if withdraw, err = report.ParseUnits(req.WithdrawAmount, report.TokenDecimals); err != nil {
			return bridge.Config{}, zksync.Config{}, fmt.Errorf("withdraw amount: %w", err)
		}
	}

	bridgeCfg := bridge.Config{
		Asset:            req.Asset,
		Wallet:           crypto.PubkeyToAddress(key.PublicKey),
		L2Endpoint:       s.cfg.L2.RPCURL,
		DepositAmount:    deposit,
		WithdrawAmount:   withdraw,
		DepositOnly:      req.DepositOnly,
		SettleDelay:      s.cfg.Scenario.SettleDelay,
		InclusionTimeout: s.cfg.Scenario.InclusionTimeout,
		FinalizeInterval: s.cfg.Scenario.FinalizeInterval,
		FinalizeDeadline: s.cfg.Scenario.FinalizeDeadline,
	}
	if err := bridgeCfg.Validate(); err != nil {
		return bridge.Config{}, zksync.Config{}, err
	}

	zkCfg := zksync.Config{
		L1URL:               s.cfg.L1.RPCURL,
		Key:                 key,
		L2GasLimit:          s.cfg.L2.GasLimit,
		GasPerPubdata:       s.cfg.L2.GasPerPubdata,
		ReceiptPollInterval: s.cfg.Scenario.ReceiptPollInterval,
	}

	return bridgeCfg, zkCfg, nil
}

func (s *Service) collectDiagnostics(ctx context.Context) {
	api, err := diagnostics.NewDockerAPI()
	if err != nil {
		s.logger.With("err", err).Warn("docker unavailable, skipping diagnostics")
		return
	}
	defer api.Close()

	diagnostics.NewCollector(api, diagnostics.Config{
		Container: s.cfg.Diagnostics.Container,
		RPCPort:   s.cfg.Diagnostics.RPCPort,
		Tail:      s.cfg.Diagnostics.Tail,
		MaxLines:  s.cfg.Diagnostics.MaxLines,
		Keywords:  s.cfg.Diagnostics.Keywords,
	}).Report(ctx)
}

// needsDiagnostics is true for aborted runs, except user interrupts, and for unresolved withdrawals.
func needsDiagnostics(run *bridge.ScenarioRun, runErr error) bool {
	if runErr != nil {
		return !errors.Is(runErr, context.Canceled)
	}
	return run.Report != nil && run.Report.Finalization.State == bridge.FinalizeExhausted
}
