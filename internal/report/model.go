package report

import (
	"math/big"
	"time"

	"github.com/compose-network/bridge-tester/internal/bridge"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

type (
	Model struct {
		Run          Run          `yaml:"run"`
		Ledgers      []Ledger     `yaml:"ledgers"`
		Transfers    Transfers    `yaml:"transfers"`
		Finalization Finalization `yaml:"finalization"`
		Error        string       `yaml:"error,omitempty"`
	}

	Run struct {
		ID       string    `yaml:"id"`
		Scenario string    `yaml:"scenario"`
		Asset    string    `yaml:"asset"`
		Wallet   string    `yaml:"wallet"`
		Endpoint string    `yaml:"endpoint"`
		Written  time.Time `yaml:"written-at"`
	}

	Ledger struct {
		Name   string `yaml:"name"`
		Before Amount `yaml:"before"`
		After  Amount `yaml:"after"`
		Delta  Amount `yaml:"delta"`
	}

	Transfers struct {
		Deposit  string `yaml:"deposit,omitempty"`
		Withdraw string `yaml:"withdraw,omitempty"`
	}

	Finalization struct {
		State    string `yaml:"state,omitempty"`
		TxHash   string `yaml:"tx-hash,omitempty"`
		Elapsed  string `yaml:"elapsed,omitempty"`
		Attempts int    `yaml:"attempts"`
	}

	// Amount keeps wei values as quoted strings so YAML readers do not round them.
	Amount struct {
		*big.Int
	}
)

func (a Amount) MarshalYAML() (any, error) {
	value := "-"
	if a.Int != nil {
		value = a.String()
	}
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Style: yaml.DoubleQuotedStyle,
		Value: value,
	}, nil
}

// NewModel converts a run report into its persisted form.
func NewModel(report *bridge.RunReport, now time.Time) *Model {
	model := &Model{
		Run: Run{
			ID:       report.RunID,
			Scenario: string(report.Scenario),
			Asset:    report.Asset,
			Wallet:   report.Wallet.Hex(),
			Endpoint: report.Endpoint,
			Written:  now.UTC(),
		},
		Finalization: Finalization{
			State:    string(report.Finalization.State),
			Attempts: report.Finalization.Tries,
		},
	}

	for _, l := range report.Ledgers {
		model.Ledgers = append(model.Ledgers, Ledger{
			Name:   string(l.Ledger),
			Before: Amount{l.Before},
			After:  Amount{l.After},
			Delta:  Amount{l.Delta},
		})
	}

	if report.DepositTx != (common.Hash{}) {
		model.Transfers.Deposit = report.DepositTx.Hex()
	}
	if report.WithdrawTx != (common.Hash{}) {
		model.Transfers.Withdraw = report.WithdrawTx.Hex()
	}
	if report.Finalization.TxHash != (common.Hash{}) {
		model.Finalization.TxHash = report.Finalization.TxHash.Hex()
	}
	if report.Finalization.Elapsed > 0 {
		model.Finalization.Elapsed = report.Finalization.Elapsed.String()
	}
	if report.Err != nil {
		model.Error = report.Err.Error()
	}

	return model
}
