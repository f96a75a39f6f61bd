package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/jask/bodhiwallet/internal/database/repository"
	"github.com/jask/bodhiwallet/internal/logging"
	"github.com/jask/bodhiwallet/internal/market"
	"github.com/jask/bodhiwallet/internal/state"
)

var errSubscriptionEnded = errors.New("sync subscription ended")

// SyncSource fetches the current sync info on demand.
type SyncSource interface {
	SyncInfo(ctx context.Context) (market.SyncInfo, error)
}

// SyncStream pushes sync info until ctx is done or the stream breaks.
type SyncStream interface {
	SyncInfo(ctx context.Context, fn func(market.SyncInfo)) error
}

// Wallet is the node wallet and explorer surface the syncer needs.
type Wallet interface {
	CheckWalletEncrypted(ctx context.Context) (bool, error)
	UnlockWallet(ctx context.Context, passphrase string, timeout time.Duration) (time.Time, error)
	InsightTotals(ctx context.Context) (market.InsightTotals, error)
}

// SnapshotStore persists balances per block.
type SnapshotStore interface {
	Save(ctx context.Context, blockNum, blockTime int64, balances []market.AddressBalance) error
	Latest(ctx context.Context) (*repository.SnapshotSet, error)
}

// Syncer feeds backend results into the store.
type Syncer struct {
	Log          *logging.Logger
	Store        *state.Store
	Source       SyncSource
	Stream       SyncStream // nil disables the subscription
	Wallet       Wallet
	Snapshots    SnapshotStore // optional
	PollInterval time.Duration

	live atomic.Bool

	mu        sync.Mutex
	lastSaved int64
}

// Restore seeds the wallet list from the most recent snapshot so that
// balances show before the first sync completes.
func (s *Syncer) Restore(ctx context.Context) error {
	if s.Snapshots == nil {
		return nil
	}
	set, err := s.Snapshots.Latest(ctx)
	if err != nil || set == nil {
		return err
	}
	info := market.SyncInfo{
		SyncBlockNum:  set.BlockNum,
		SyncBlockTime: market.RawNumber(strconv.FormatInt(set.BlockTime, 10)),
	}
	for _, b := range set.Balances {
		info.AddressBalances = append(info.AddressBalances, market.AddressBalance{
			Address: b.Address,
			Qtum:    market.DecimalToSatoshi(b.Qtum),
			Bot:     market.DecimalToSatoshi(b.Bot),
		})
	}
	s.mu.Lock()
	s.lastSaved = set.BlockNum
	s.mu.Unlock()
	_, err = s.Store.Dispatch(state.SyncInfoReturn{Info: info})
	return err
}

// Poll fetches sync info once. A fetch failure is recorded in the state and
// also returned.
func (s *Syncer) Poll(ctx context.Context) error {
	info, err := s.Source.SyncInfo(ctx)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	s.apply(ctx, info, err)
	return err
}

// Run keeps the state in sync until ctx is cancelled. It follows the
// subscription while it is up and polls whenever it is not.
func (s *Syncer) Run(ctx context.Context) error {
	log := s.Log.Named("syncer")
	if err := s.Poll(ctx); err != nil && ctx.Err() == nil {
		log.Warn("initial sync failed", zap.Error(err))
	}

	var wg sync.WaitGroup
	if s.Stream != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.follow(ctx, log)
		}()
	}

	interval := s.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			if s.live.Load() {
				continue
			}
			if err := s.Poll(ctx); err != nil && ctx.Err() == nil {
				log.Warn("sync poll failed", zap.Error(err))
			}
		}
	}
}

func (s *Syncer) follow(ctx context.Context, log *logging.Logger) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	op := func() error {
		err := s.Stream.SyncInfo(ctx, func(info market.SyncInfo) {
			if !s.live.Swap(true) {
				log.Info("sync subscription established")
				b.Reset()
			}
			s.apply(ctx, info, nil)
		})
		s.live.Store(false)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = errSubscriptionEnded
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("sync subscription down, polling", zap.Error(err), zap.Duration("retry_in", wait))
	}
	_ = backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

func (s *Syncer) apply(ctx context.Context, info market.SyncInfo, fetchErr error) {
	next, err := s.Store.Dispatch(state.SyncInfoReturn{Info: info, Err: fetchErr})
	if err != nil || fetchErr != nil || s.Snapshots == nil {
		return
	}

	s.mu.Lock()
	if next.SyncBlockNum <= s.lastSaved {
		s.mu.Unlock()
		return
	}
	s.lastSaved = next.SyncBlockNum
	s.mu.Unlock()

	if err := s.Snapshots.Save(ctx, next.SyncBlockNum, next.SyncBlockTime, next.WalletAddresses); err != nil {
		s.Log.Error("save balance snapshot", zap.Int64("block", next.SyncBlockNum), zap.Error(err))
	}
}

// RefreshInsight loads the average block time from the explorer.
func (s *Syncer) RefreshInsight(ctx context.Context) error {
	totals, err := s.Wallet.InsightTotals(ctx)
	if err != nil {
		return err
	}
	_, err = s.Store.Dispatch(state.GetInsightTotalsReturn{Value: totals})
	return err
}

// CheckWallet records whether the node wallet is encrypted.
func (s *Syncer) CheckWallet(ctx context.Context) error {
	encrypted, err := s.Wallet.CheckWalletEncrypted(ctx)
	if _, derr := s.Store.Dispatch(state.CheckWalletEncryptedReturn{Encrypted: encrypted, Err: err}); derr != nil {
		return derr
	}
	return err
}

// Unlock unlocks the node wallet for d and closes the unlock dialog on
// success.
func (s *Syncer) Unlock(ctx context.Context, passphrase string, d time.Duration) error {
	until, err := s.Wallet.UnlockWallet(ctx, passphrase, d)
	if _, derr := s.Store.Dispatch(state.UnlockWalletReturn{UnlockedUntil: until, Err: err}); derr != nil {
		return derr
	}
	if err != nil {
		return err
	}
	_, err = s.Store.Dispatch(state.ToggleWalletUnlockDialog{Visible: false})
	return err
}
