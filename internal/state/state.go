// Package state is the application state tree of the wallet dashboard and
// the transitions that move it forward.
//
// A State is never modified once built. Reduce either returns the state it
// was given or a new one, so callers can compare pointers to detect change.
package state

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/bodhiwallet/internal/market"
)

// View is the responsive layout breakpoint.
type View string

const (
	MobileView  View = "MobileView"
	TabletView  View = "TabletView"
	DesktopView View = "DesktopView"
)

// Breakpoints are the minimum widths of the tablet and desktop views. A
// width must exceed the breakpoint to select that view.
type Breakpoints struct {
	Tablet  int
	Desktop int
}

// ViewForWidth maps a viewport width to a View.
func (b Breakpoints) ViewForWidth(width int) View {
	switch {
	case width > b.Desktop:
		return DesktopView
	case width > b.Tablet:
		return TabletView
	default:
		return MobileView
	}
}

// Collapsed reports whether the layout is collapsed at width.
func (b Breakpoints) Collapsed(width int) bool {
	return !(width > b.Desktop)
}

// AppLocation is the active top-level section.
type AppLocation string

const (
	LocationQtumPrediction AppLocation = "qtumPrediction"
	LocationBotCourt       AppLocation = "botCourt"
	LocationBet            AppLocation = "bet"
	LocationSet            AppLocation = "set"
	LocationVote           AppLocation = "vote"
	LocationFinalize       AppLocation = "finalize"
	LocationWithdraw       AppLocation = "withdraw"
	LocationMyWallet       AppLocation = "myWallet"
	LocationActivities     AppLocation = "activities"
)

// NavSection is a nav bar entry.
type NavSection string

const (
	NavQtumPrediction NavSection = "QTUM Prediction"
	NavBotCourt       NavSection = "BOT Court"
	NavMyWallet       NavSection = "My Wallet"
	NavActivities     NavSection = "My Activities"
)

// NavSections lists the nav bar entries in display order.
var NavSections = []NavSection{NavQtumPrediction, NavBotCourt, NavMyWallet, NavActivities}

// Section returns the nav entry highlighted while l is active.
func (l AppLocation) Section() NavSection {
	switch l {
	case LocationBotCourt, LocationVote:
		return NavBotCourt
	case LocationMyWallet:
		return NavMyWallet
	case LocationSet, LocationFinalize, LocationWithdraw, LocationActivities:
		return NavActivities
	}
	return NavQtumPrediction
}

// State is the application state tree.
type State struct {
	Collapsed   bool
	View        View
	Height      int
	CurrentPath string
	AppLocation AppLocation

	// WalletAddresses is ordered by descending QTUM balance after a sync.
	WalletAddresses []market.AddressBalance
	LastUsedAddress string

	SyncPercent   float64
	SyncBlockNum  int64
	SyncBlockTime int64
	SyncInfoError error

	// TotalQtum caches the sum of WalletAddresses[].Qtum.
	TotalQtum decimal.Decimal

	WalletUnlockDialogVisible bool
	PendingTxsSnackbarVisible bool
	CreateEventDialogVisible  bool

	WalletEncrypted     bool
	WalletUnlockedUntil time.Time

	ErrorApp error

	AverageBlockTime float64
}

// New returns the startup state for a viewport of the given size.
func New(b Breakpoints, width, height int) *State {
	return &State{
		Collapsed:                 b.Collapsed(width),
		View:                      b.ViewForWidth(width),
		Height:                    height,
		CurrentPath:               "/",
		AppLocation:               LocationQtumPrediction,
		TotalQtum:                 decimal.Zero,
		PendingTxsSnackbarVisible: true,
	}
}

// Address looks up a wallet address. The returned value is a copy.
func (s *State) Address(address string) (market.AddressBalance, bool) {
	for _, a := range s.WalletAddresses {
		if a.Address == address {
			return a, true
		}
	}
	return market.AddressBalance{}, false
}

// TotalBot sums the BOT balance across all wallet addresses.
func (s *State) TotalBot() decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.WalletAddresses {
		total = total.Add(a.Bot)
	}
	return total
}

// WalletUnlocked reports whether the wallet is unlocked at now. An
// unencrypted wallet is always unlocked.
func (s *State) WalletUnlocked(now time.Time) bool {
	if !s.WalletEncrypted {
		return true
	}
	return now.Before(s.WalletUnlockedUntil)
}

// FormatBalance renders the nav bar balance summary.
func (s *State) FormatBalance() string {
	total := decimal.Zero
	for _, a := range s.WalletAddresses {
		total = total.Add(a.Qtum)
	}
	return fmt.Sprintf("%s QTUM / %s BOT", market.FormatAmount(total), market.FormatAmount(s.TotalBot()))
}
