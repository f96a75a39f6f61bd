// Package market holds the prediction-market vocabulary shared by the store,
// the dashboard and the backend clients.
package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SatoshiDecimals is the number of decimal places between the smallest
// currency unit and one whole QTUM or BOT.
const SatoshiDecimals = 8

// Token is a currency on the prediction market.
type Token string

const (
	TokenQtum Token = "QTUM"
	TokenBot  Token = "BOT"
)

// Valid reports whether t is one of the known tokens.
func (t Token) Valid() bool {
	return t == TokenQtum || t == TokenBot
}

// OracleStatus is the lifecycle state of an oracle or topic.
type OracleStatus string

const (
	StatusCreated       OracleStatus = "CREATED"
	StatusVoting        OracleStatus = "VOTING"
	StatusWaitResult    OracleStatus = "WAITRESULT"
	StatusOpenResultSet OracleStatus = "OPENRESULTSET"
	StatusPending       OracleStatus = "PENDING"
	StatusWithdraw      OracleStatus = "WITHDRAW"
)

// SortDirection orders backend query results.
type SortDirection string

const (
	Ascending  SortDirection = "ASC"
	Descending SortDirection = "DESC"
)

// ParseSortDirection accepts "asc", "ascending", "desc" or "descending" in
// any case. Empty input yields Ascending.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// Toggle flips the direction. The zero value toggles to Descending.
func (d SortDirection) Toggle() SortDirection {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// Filter selects oracles or topics. Token is empty for topic queries.
type Filter struct {
	Token  Token        `json:"token,omitempty"`
	Status OracleStatus `json:"status"`
}

// OrderBy names the sort field and direction of a query.
type OrderBy struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// Oracle is an event whose outcome is being bet on, voted on, or finalized.
type Oracle struct {
	TxID               string            `json:"txid"`
	Address            string            `json:"address"`
	TopicAddress       string            `json:"topicAddress"`
	Name               string            `json:"name"`
	Token              Token             `json:"token"`
	Status             OracleStatus      `json:"status"`
	Options            []string          `json:"options"`
	OptionIdxs         []int             `json:"optionIdxs"`
	Amounts            []decimal.Decimal `json:"amounts"`
	ResultIdx          *int              `json:"resultIdx"`
	ConsensusThreshold decimal.Decimal   `json:"consensusThreshold"`
	BlockNum           int64             `json:"blockNum"`
	StartTime          Timestamp         `json:"startTime"`
	EndTime            Timestamp         `json:"endTime"`
	ResultSetStartTime Timestamp         `json:"resultSetStartTime"`
	ResultSetEndTime   Timestamp         `json:"resultSetEndTime"`
}

// Topic is a settled event whose funds can be withdrawn.
type Topic struct {
	TxID       string            `json:"txid"`
	Address    string            `json:"address"`
	Name       string            `json:"name"`
	Status     OracleStatus      `json:"status"`
	Options    []string          `json:"options"`
	QtumAmount []decimal.Decimal `json:"qtumAmount"`
	BotAmount  []decimal.Decimal `json:"botAmount"`
	ResultIdx  *int              `json:"resultIdx"`
	BlockNum   int64             `json:"blockNum"`
}

// Timestamp is a unix time in seconds. The backend sends it either as a
// JSON number or as a decimal string.
type Timestamp int64

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*t = 0
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", raw, err)
	}
	*t = Timestamp(d.IntPart())
	return nil
}

// Time converts the timestamp to a UTC time.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// SatoshiToDecimal converts an amount in the smallest unit into whole tokens.
func SatoshiToDecimal(satoshi decimal.Decimal) decimal.Decimal {
	return satoshi.Shift(-SatoshiDecimals)
}

// DecimalToSatoshi converts whole tokens into the smallest unit, truncating
// anything below one satoshi.
func DecimalToSatoshi(amount decimal.Decimal) decimal.Decimal {
	return amount.Shift(SatoshiDecimals).Truncate(0)
}

// FormatAmount renders an amount with two decimal places.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
