package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is one address balance recorded at a block.
type Snapshot struct {
	ID        string
	BlockNum  int64
	BlockTime int64
	Address   string
	Qtum      decimal.Decimal
	Bot       decimal.Decimal
	CreatedAt time.Time
}

// SnapshotSet is every address recorded at a single block.
type SnapshotSet struct {
	BlockNum  int64
	BlockTime int64
	Balances  []Snapshot
}

// Preference represents a preferences row.
type Preference struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
