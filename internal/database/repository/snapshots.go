package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jask/bodhiwallet/internal/market"
)

// SnapshotRepo stores wallet balances per synced block.
type SnapshotRepo struct {
	db *sql.DB
}

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// Save records balances at blockNum. A block that is already recorded is
// replaced so that re-delivered sync payloads do not duplicate rows.
func (r *SnapshotRepo) Save(ctx context.Context, blockNum, blockTime int64, balances []market.AddressBalance) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM balance_snapshots WHERE block_num = ?`, blockNum); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, b := range balances {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO balance_snapshots(id, block_num, block_time, address, qtum, bot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, uuid.NewString(), blockNum, blockTime, b.Address, b.Qtum.String(), b.Bot.String())
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert snapshot %s: %w", b.Address, err)
		}
	}
	return tx.Commit()
}

// Latest returns the balances of the highest recorded block, or nil when
// nothing has been recorded yet.
func (r *SnapshotRepo) Latest(ctx context.Context) (*SnapshotSet, error) {
	var blockNum sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(block_num) FROM balance_snapshots`).Scan(&blockNum); err != nil {
		return nil, err
	}
	if !blockNum.Valid {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, block_num, block_time, address, qtum, bot, created_at
	FROM balance_snapshots WHERE block_num = ? ORDER BY rowid ASC
	`, blockNum.Int64)
	if err != nil {
		return nil, err
	}
	list, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	set := &SnapshotSet{BlockNum: blockNum.Int64, Balances: list}
	if len(list) > 0 {
		set.BlockTime = list[0].BlockTime
	}
	return set, nil
}

// History lists the most recent snapshots of one address, newest first.
func (r *SnapshotRepo) History(ctx context.Context, address string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, block_num, block_time, address, qtum, bot, created_at
	FROM balance_snapshots WHERE address = ? ORDER BY block_num DESC LIMIT ?
	`, address, limit)
	if err != nil {
		return nil, err
	}
	return scanSnapshots(rows)
}

func scanSnapshots(rows *sql.Rows) ([]Snapshot, error) {
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.BlockNum, &s.BlockTime, &s.Address, &s.Qtum, &s.Bot, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
