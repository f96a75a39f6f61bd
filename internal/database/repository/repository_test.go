package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/bodhiwallet/internal/database"
	"github.com/jask/bodhiwallet/internal/database/repository"
	"github.com/jask/bodhiwallet/internal/market"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func bal(addr, qtum, bot string) market.AddressBalance {
	return market.AddressBalance{
		Address: addr,
		Qtum:    decimal.RequireFromString(qtum),
		Bot:     decimal.RequireFromString(bot),
	}
}

func TestSnapshotLatestEmpty(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	repo := repository.NewSnapshotRepo(openDB(t))
	set, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.Nil(t, set)
}

func TestSnapshotSaveAndLatest(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	repo := repository.NewSnapshotRepo(openDB(t))
	require.NoError(t, repo.Save(ctx, 100, 1500000000, []market.AddressBalance{
		bal("qA", "1.5", "20"),
	}))
	require.NoError(t, repo.Save(ctx, 101, 1500000128, []market.AddressBalance{
		bal("qB", "30", "0.12345678"),
		bal("qA", "1.25", "20"),
	}))

	set, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, set)
	require.Equal(t, int64(101), set.BlockNum)
	require.Equal(t, int64(1500000128), set.BlockTime)
	require.Len(t, set.Balances, 2)
	require.Equal(t, "qB", set.Balances[0].Address)
	require.True(t, set.Balances[0].Bot.Equal(decimal.RequireFromString("0.12345678")))
	require.Equal(t, "qA", set.Balances[1].Address)
	require.NotEmpty(t, set.Balances[1].ID)
}

func TestSnapshotSaveReplacesBlock(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	db := openDB(t)
	repo := repository.NewSnapshotRepo(db)
	require.NoError(t, repo.Save(ctx, 7, 1, []market.AddressBalance{bal("qA", "1", "1"), bal("qB", "2", "2")}))
	require.NoError(t, repo.Save(ctx, 7, 1, []market.AddressBalance{bal("qA", "3", "3")}))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM balance_snapshots").Scan(&count))
	require.Equal(t, 1, count)
}

func TestSnapshotHistory(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	repo := repository.NewSnapshotRepo(openDB(t))
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, repo.Save(ctx, i, i*100, []market.AddressBalance{
			bal("qA", decimal.NewFromInt(i).String(), "0"),
			bal("qB", "9", "9"),
		}))
	}

	hist, err := repo.History(ctx, "qA", 3)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	require.Equal(t, []int64{5, 4, 3}, []int64{hist[0].BlockNum, hist[1].BlockNum, hist[2].BlockNum})
	require.True(t, hist[0].Qtum.Equal(decimal.NewFromInt(5)))

	none, err := repo.History(ctx, "qZ", 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestPrefs(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	repo := repository.NewPrefsRepo(openDB(t))

	_, ok, err := repo.Get(ctx, "ui.tab")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.SetDefault(ctx, "ui.tab", "bet"))
	require.NoError(t, repo.SetDefault(ctx, "ui.tab", "vote"))
	v, ok, err := repo.Get(ctx, "ui.tab")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bet", v)

	require.NoError(t, repo.Set(ctx, "ui.tab", "withdraw"))
	require.NoError(t, repo.Set(ctx, "ui.sort", "DESC"))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"ui.tab": "withdraw", "ui.sort": "DESC"}, all)
}

func TestSeedDefaultsKeepsExisting(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	db := openDB(t)
	repo := repository.NewPrefsRepo(db)
	require.NoError(t, repo.Set(ctx, database.PrefSort, "DESC"))
	require.NoError(t, database.SeedDefaults(ctx, db, "set", "ASC"))
	require.NoError(t, database.SeedDefaults(ctx, db, "bet", "ASC"))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Equal(t, "set", all[database.PrefTab])
	require.Equal(t, "DESC", all[database.PrefSort])
}

func TestMigrationsVersion(t *testing.T) {
	t.Parallel()

	db := openDB(t)
	migrations, err := filepath.Abs("../migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrationsWithDB(db, migrations))

	v, dirty, err := database.Version(db, migrations)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), v)
}
