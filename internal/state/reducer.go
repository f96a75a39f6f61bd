package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jask/bodhiwallet/internal/market"
)

// ErrInvalidTokenKind is returned when a balance operation names a token
// other than QTUM or BOT. It signals a caller bug.
var ErrInvalidTokenKind = errors.New("invalid token kind")

// Reduce applies a to s. It never modifies s; on a no-op it returns s
// itself. An error leaves the state as it was and is returned together
// with s.
func Reduce(s *State, a Action) (*State, error) {
	switch a := a.(type) {
	case ToggleAll:
		if s.View == a.View && (a.Height == 0 || a.Height == s.Height) {
			return s, nil
		}
		next := *s
		next.Collapsed = a.Collapsed
		next.View = a.View
		if a.Height != 0 {
			next.Height = a.Height
		}
		return &next, nil
	case SetAppLocation:
		next := *s
		next.AppLocation = a.Location
		return &next, nil
	case SetCurrentPath:
		next := *s
		next.CurrentPath = a.Path
		return &next, nil
	case SetLastUsedAddress:
		next := *s
		next.LastUsedAddress = a.Address
		return &next, nil
	case SyncInfoReturn:
		return reduceSyncInfo(s, a), nil
	case GetInsightTotalsReturn:
		next := *s
		next.AverageBlockTime = a.Value.Result.TimeBetweenBlocks
		return &next, nil
	case ToggleWalletUnlockDialog:
		next := *s
		next.WalletUnlockDialogVisible = a.Visible
		return &next, nil
	case CheckWalletEncryptedReturn:
		next := *s
		if a.Err != nil {
			next.ErrorApp = a.Err
		} else {
			next.WalletEncrypted = a.Encrypted
		}
		return &next, nil
	case UnlockWalletReturn:
		next := *s
		if a.Err != nil {
			next.ErrorApp = a.Err
		} else {
			next.WalletUnlockedUntil = a.UnlockedUntil
		}
		return &next, nil
	case ClearErrorApp:
		next := *s
		next.ErrorApp = nil
		return &next, nil
	case TogglePendingTxsSnackbar:
		next := *s
		next.PendingTxsSnackbarVisible = a.Visible
		return &next, nil
	case ToggleCreateEventDialog:
		next := *s
		next.CreateEventDialogVisible = a.Visible
		return &next, nil
	case SubtractFromBalance:
		return reduceSubtract(s, a)
	}
	return s, nil
}

func reduceSyncInfo(s *State, a SyncInfoReturn) *State {
	next := *s
	if a.Err != nil {
		next.SyncInfoError = a.Err
		return &next
	}

	addresses := make([]market.AddressBalance, 0, len(a.Info.AddressBalances))
	for _, raw := range a.Info.AddressBalances {
		addresses = append(addresses, market.AddressBalance{
			Address: raw.Address,
			Qtum:    market.SatoshiToDecimal(raw.Qtum),
			Bot:     market.SatoshiToDecimal(raw.Bot),
		})
	}
	sort.SliceStable(addresses, func(i, j int) bool {
		return addresses[i].Qtum.GreaterThan(addresses[j].Qtum)
	})

	lastUsed := s.LastUsedAddress
	if lastUsed == "" && len(addresses) > 0 {
		lastUsed = addresses[0].Address
	}

	total := decimal.Zero
	for _, addr := range addresses {
		total = total.Add(addr.Qtum)
	}

	next.SyncPercent = a.Info.SyncPercent
	next.SyncBlockNum = a.Info.SyncBlockNum
	next.SyncBlockTime = a.Info.SyncBlockTime.Int64()
	next.WalletAddresses = addresses
	next.LastUsedAddress = lastUsed
	next.TotalQtum = total
	return &next
}

func reduceSubtract(s *State, a SubtractFromBalance) (*State, error) {
	if !a.Token.Valid() {
		return s, fmt.Errorf("subtract from balance of %s: %w: %q", a.Address, ErrInvalidTokenKind, a.Token)
	}

	addresses := make([]market.AddressBalance, len(s.WalletAddresses))
	copy(addresses, s.WalletAddresses)
	for i := range addresses {
		if addresses[i].Address != a.Address {
			continue
		}
		switch a.Token {
		case market.TokenQtum:
			addresses[i].Qtum = addresses[i].Qtum.Sub(a.Amount)
		case market.TokenBot:
			addresses[i].Bot = addresses[i].Bot.Sub(a.Amount)
		}
		break
	}

	next := *s
	next.WalletAddresses = addresses
	return &next, nil
}
