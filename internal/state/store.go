package state

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jask/bodhiwallet/internal/logging"
)

// Listener is notified after every transition that produced a new state.
type Listener func(prev, next *State, a Action)

// Store owns the current state and applies transitions one at a time.
type Store struct {
	log *logging.Logger

	// dispatchMu serialises transitions together with their notifications.
	dispatchMu sync.Mutex

	mu        sync.Mutex
	current   *State
	listeners []Listener
}

func NewStore(log *logging.Logger, initial *State) *Store {
	return &Store{
		log:     log.Named("store"),
		current: initial,
	}
}

// State returns the current state. The value must not be modified.
func (s *Store) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers l. Listeners run synchronously in registration order
// and must not call Dispatch themselves.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Dispatch applies a and returns the resulting state. A reducer error is
// returned as is and the state stays unchanged.
func (s *Store) Dispatch(a Action) (*State, error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	prev := s.current
	next, err := Reduce(prev, a)
	if err != nil {
		s.mu.Unlock()
		s.log.Error("transition rejected", zap.String("action", actionName(a)), zap.Error(err))
		return prev, err
	}
	s.current = next
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if next == prev {
		return next, nil
	}
	if s.log.Core().Enabled(zap.DebugLevel) {
		s.log.Debug("transition applied", zap.String("action", actionName(a)))
	}
	for _, l := range listeners {
		l(prev, next, a)
	}
	return next, nil
}

func actionName(a Action) string {
	switch a.(type) {
	case ToggleAll:
		return "ToggleAll"
	case SetAppLocation:
		return "SetAppLocation"
	case SetCurrentPath:
		return "SetCurrentPath"
	case SetLastUsedAddress:
		return "SetLastUsedAddress"
	case SyncInfoReturn:
		return "SyncInfoReturn"
	case GetInsightTotalsReturn:
		return "GetInsightTotalsReturn"
	case ToggleWalletUnlockDialog:
		return "ToggleWalletUnlockDialog"
	case CheckWalletEncryptedReturn:
		return "CheckWalletEncryptedReturn"
	case UnlockWalletReturn:
		return "UnlockWalletReturn"
	case ClearErrorApp:
		return "ClearErrorApp"
	case TogglePendingTxsSnackbar:
		return "TogglePendingTxsSnackbar"
	case ToggleCreateEventDialog:
		return "ToggleCreateEventDialog"
	case SubtractFromBalance:
		return "SubtractFromBalance"
	}
	return "unknown"
}
