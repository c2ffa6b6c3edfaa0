package report

import (
	"fmt"
	"io"
	"time"

	"github.com/compose-network/bridge-tester/internal/bridge"
	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
)

// Renderer prints a run report as a balance table followed by the transfer summary.
type Renderer struct {
	out io.Writer
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

func (r *Renderer) Render(report *bridge.RunReport) error {
	if report == nil {
		return fmt.Errorf("no report to render")
	}

	fmt.Fprintf(r.out, "\nrun %s (%s, %s) via %s\n", report.RunID, report.Scenario, report.Asset, valueOr(report.Endpoint, "-"))

	table := tablewriter.NewWriter(r.out)
	table.Header("Ledger", "Before", "After", "Delta", "Delta (units)")
	for _, l := range report.Ledgers {
		if err := table.Append(
			string(l.Ledger),
			formatWei(l.Before),
			formatWei(l.After),
			signed(formatWei(l.Delta)),
			signed(FormatEther(l.Delta)),
		); err != nil {
			return fmt.Errorf("failed to append %s row: %w", l.Ledger, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render balance table: %w", err)
	}

	for _, line := range summaryLines(report) {
		fmt.Fprintln(r.out, line)
	}

	return nil
}

func summaryLines(report *bridge.RunReport) []string {
	lines := []string{
		"deposit tx:  " + txOrNone(report.DepositTx.Hex(), report.DepositTx == (common.Hash{})),
		"withdraw tx: " + txOrNone(report.WithdrawTx.Hex(), report.WithdrawTx == (common.Hash{})),
	}

	f := report.Finalization
	switch f.State {
	case bridge.FinalizeFinalized:
		lines = append(lines, fmt.Sprintf("finalization: finalized in %s after %d attempt(s), tx %s", f.Elapsed.Round(time.Second), f.Tries, f.TxHash.Hex()))
	case bridge.FinalizeExhausted:
		lines = append(lines, fmt.Sprintf("finalization: unresolved after %s and %d attempt(s); finalize manually later", f.Elapsed.Round(time.Second), f.Tries))
	case bridge.FinalizePending:
		if f.Tries > 0 {
			lines = append(lines, fmt.Sprintf("finalization: interrupted after %s and %d attempt(s); finalize manually later", f.Elapsed.Round(time.Second), f.Tries))
			break
		}
		lines = append(lines, "finalization: not attempted")
	default:
		lines = append(lines, "finalization: not attempted")
	}

	if report.Err != nil {
		lines = append(lines, "aborted: "+report.Err.Error())
	}

	return lines
}

func txOrNone(hex string, zero bool) string {
	if zero {
		return "none"
	}
	return hex
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
