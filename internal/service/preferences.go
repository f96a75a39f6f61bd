package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jask/bodhiwallet/internal/dashboard"
	"github.com/jask/bodhiwallet/internal/database"
	"github.com/jask/bodhiwallet/internal/logging"
	"github.com/jask/bodhiwallet/internal/market"
	"github.com/jask/bodhiwallet/internal/state"
)

// PrefsStore is the key/value storage behind Preferences.
type PrefsStore interface {
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}

// Preferences restores and persists the selections a user expects to find
// again after a restart.
type Preferences struct {
	Log   *logging.Logger
	Prefs PrefsStore
}

// Restore applies stored preferences. The last used address goes into the
// store; tab and sort are returned on top of fallback. Unparseable values
// are ignored.
func (p *Preferences) Restore(ctx context.Context, store *state.Store, fallback dashboard.Dashboard) (dashboard.Dashboard, error) {
	all, err := p.Prefs.All(ctx)
	if err != nil {
		return fallback, err
	}
	d := fallback
	if v, ok := all[database.PrefTab]; ok {
		if tab, err := dashboard.ParseTab(v); err == nil {
			d = d.SetTab(tab)
		} else {
			p.Log.Warn("ignoring stored tab", zap.String("value", v))
		}
	}
	if v, ok := all[database.PrefSort]; ok {
		if dir, err := market.ParseSortDirection(v); err == nil {
			d.Sort = dir
		} else {
			p.Log.Warn("ignoring stored sort", zap.String("value", v))
		}
	}
	if v := all[database.PrefLastUsedAddress]; v != "" {
		if _, err := store.Dispatch(state.SetLastUsedAddress{Address: v}); err != nil {
			return d, err
		}
	}
	return d, nil
}

// SaveDashboard persists the selected tab and sort direction.
func (p *Preferences) SaveDashboard(ctx context.Context, d dashboard.Dashboard) error {
	if err := p.Prefs.Set(ctx, database.PrefTab, strings.ToLower(d.Tab.String())); err != nil {
		return err
	}
	return p.Prefs.Set(ctx, database.PrefSort, string(d.Sort))
}

// Listener persists the last used address whenever it changes.
func (p *Preferences) Listener(ctx context.Context) state.Listener {
	return func(prev, next *state.State, _ state.Action) {
		if prev.LastUsedAddress == next.LastUsedAddress || next.LastUsedAddress == "" {
			return
		}
		if err := p.Prefs.Set(ctx, database.PrefLastUsedAddress, next.LastUsedAddress); err != nil {
			p.Log.Error("persist last used address", zap.Error(err))
		}
	}
}
