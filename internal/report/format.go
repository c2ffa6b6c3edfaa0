// Package report renders and persists the closing report of a bridge scenario run.
package report

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the unit exponent of ETH and of the tokens this tool deploys.
const TokenDecimals = 18

// FormatUnits renders a smallest-unit amount in whole units, e.g. 1500000000000000000 -> "1.5".
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "-"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// FormatEther renders wei as ether.
func FormatEther(amount *big.Int) string {
	return FormatUnits(amount, TokenDecimals)
}

// ParseUnits converts a whole-unit amount such as "20" or "0.5" to the smallest unit. Amounts finer than
// the unit are rejected.
func ParseUnits(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}

	return scaled.BigInt(), nil
}

// ParseEther converts ether to wei.
func ParseEther(s string) (*big.Int, error) {
	return ParseUnits(s, TokenDecimals)
}

func formatWei(amount *big.Int) string {
	if amount == nil {
		return "-"
	}
	return amount.String()
}

func signed(s string) string {
	if s == "-" || s == "0" || s[0] == '-' {
		return s
	}
	return "+" + s
}
