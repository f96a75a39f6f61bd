package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AddressBalance is a wallet address with its balances. Depending on where it
// comes from the amounts are satoshis (sync payload) or whole tokens (state).
type AddressBalance struct {
	Address string          `json:"address"`
	Qtum    decimal.Decimal `json:"qtum"`
	Bot     decimal.Decimal `json:"bot"`
}

// SyncInfo is the payload published by the backend on every block.
// Balances are in satoshis.
type SyncInfo struct {
	SyncPercent     float64          `json:"syncPercent"`
	SyncBlockNum    int64            `json:"syncBlockNum"`
	SyncBlockTime   RawNumber        `json:"syncBlockTime"`
	AddressBalances []AddressBalance `json:"addressBalances"`
}

// InsightTotals is the network statistics response of the insight API.
type InsightTotals struct {
	Result InsightResult `json:"result"`
}

type InsightResult struct {
	TimeBetweenBlocks float64 `json:"time_between_blocks"`
}

// RawNumber keeps a JSON number or numeric string as text so that it can be
// coerced later.
type RawNumber string

func (n *RawNumber) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "null" {
		raw = ""
	}
	*n = RawNumber(raw)
	return nil
}

func (n RawNumber) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("null"), nil
	}
	return []byte(`"` + string(n) + `"`), nil
}

// Int64 coerces the value to an integer, truncating any fraction. Text that
// is not a number coerces to zero.
func (n RawNumber) Int64() int64 {
	d, err := decimal.NewFromString(strings.TrimSpace(string(n)))
	if err != nil {
		return 0
	}
	return d.IntPart()
}
