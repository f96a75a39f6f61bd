package database

import (
	"context"
	"database/sql"

	"github.com/jask/bodhiwallet/internal/database/repository"
)

// Preference keys.
const (
	PrefLastUsedAddress = "wallet.last_used_address"
	PrefTab             = "ui.tab"
	PrefSort            = "ui.sort"
)

// SeedDefaults stores the configured tab and sort for new databases.
// It is idempotent and safe to run on every startup; existing values win.
func SeedDefaults(ctx context.Context, db *sql.DB, tab, sort string) error {
	prefs := repository.NewPrefsRepo(db)
	defaults := map[string]string{
		PrefTab:  tab,
		PrefSort: sort,
	}
	for k, v := range defaults {
		if v == "" {
			continue
		}
		if err := prefs.SetDefault(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
