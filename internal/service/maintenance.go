package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/bodhiwallet/internal/database"
)

// MaintenanceService keeps the local database bounded.
type MaintenanceService struct {
	DB *sql.DB
}

// Prune drops snapshots older than the newest keepBlocks blocks and
// returns the number of rows removed. keepBlocks <= 0 keeps everything.
func (s *MaintenanceService) Prune(ctx context.Context, keepBlocks int64) (int64, error) {
	if s.DB == nil {
		return 0, fmt.Errorf("maintenance: db not configured")
	}
	if keepBlocks <= 0 {
		return 0, nil
	}
	res, err := s.DB.ExecContext(ctx, `
	DELETE FROM balance_snapshots
	WHERE block_num <= (SELECT MAX(block_num) FROM balance_snapshots) - ?
	`, keepBlocks)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Reset wipes stored snapshots and preferences. It keeps the schema intact
// so the app can continue running.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, t := range []string{"balance_snapshots", "preferences"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}
