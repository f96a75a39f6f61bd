package state

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/bodhiwallet/internal/market"
)

// Action is a transition request. The set of actions is closed; only types
// in this package implement it.
type Action interface {
	action()
}

// ToggleAll reports a viewport change. A zero Height means the height was
// not measured and the current one is kept.
type ToggleAll struct {
	View      View
	Collapsed bool
	Height    int
}

type SetAppLocation struct {
	Location AppLocation
}

type SetCurrentPath struct {
	Path string
}

// SetLastUsedAddress selects an address. It is not checked against the
// wallet address list.
type SetLastUsedAddress struct {
	Address string
}

// SyncInfoReturn carries the result of a sync info request.
type SyncInfoReturn struct {
	Info market.SyncInfo
	Err  error
}

type GetInsightTotalsReturn struct {
	Value market.InsightTotals
}

type ToggleWalletUnlockDialog struct {
	Visible bool
}

type CheckWalletEncryptedReturn struct {
	Encrypted bool
	Err       error
}

type UnlockWalletReturn struct {
	UnlockedUntil time.Time
	Err           error
}

type ClearErrorApp struct{}

type TogglePendingTxsSnackbar struct {
	Visible bool
}

type ToggleCreateEventDialog struct {
	Visible bool
}

// SubtractFromBalance deducts Amount (whole tokens) from one balance of
// Address, typically right after a bet or vote was broadcast and before the
// next sync confirms it.
type SubtractFromBalance struct {
	Address string
	Token   market.Token
	Amount  decimal.Decimal
}

func (ToggleAll) action()                  {}
func (SetAppLocation) action()             {}
func (SetCurrentPath) action()             {}
func (SetLastUsedAddress) action()         {}
func (SyncInfoReturn) action()             {}
func (GetInsightTotalsReturn) action()     {}
func (ToggleWalletUnlockDialog) action()   {}
func (CheckWalletEncryptedReturn) action() {}
func (UnlockWalletReturn) action()         {}
func (ClearErrorApp) action()              {}
func (TogglePendingTxsSnackbar) action()   {}
func (ToggleCreateEventDialog) action()    {}
func (SubtractFromBalance) action()        {}
