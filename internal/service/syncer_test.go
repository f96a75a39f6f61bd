package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/bodhiwallet/internal/database/repository"
	"github.com/jask/bodhiwallet/internal/logging"
	"github.com/jask/bodhiwallet/internal/market"
	"github.com/jask/bodhiwallet/internal/state"
)

type fakeSource struct {
	mu    sync.Mutex
	infos []market.SyncInfo
	err   error
	calls int
}

func (f *fakeSource) SyncInfo(context.Context) (market.SyncInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return market.SyncInfo{}, f.err
	}
	info := f.infos[0]
	if len(f.infos) > 1 {
		f.infos = f.infos[1:]
	}
	return info, nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStream struct {
	infos []market.SyncInfo
}

// SyncInfo delivers every info and then blocks until ctx is done.
func (f *fakeStream) SyncInfo(ctx context.Context, fn func(market.SyncInfo)) error {
	for _, info := range f.infos {
		fn(info)
	}
	<-ctx.Done()
	return ctx.Err()
}

type fakeSnapshots struct {
	mu     sync.Mutex
	saved  []int64
	latest *repository.SnapshotSet
}

func (f *fakeSnapshots) Save(_ context.Context, blockNum, _ int64, _ []market.AddressBalance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, blockNum)
	return nil
}

func (f *fakeSnapshots) Latest(context.Context) (*repository.SnapshotSet, error) {
	return f.latest, nil
}

func (f *fakeSnapshots) Saved() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.saved...)
}

type fakeWallet struct {
	encrypted bool
	until     time.Time
	err       error
	insight   market.InsightTotals
	pass      string
}

func (f *fakeWallet) CheckWalletEncrypted(context.Context) (bool, error) { return f.encrypted, f.err }

func (f *fakeWallet) UnlockWallet(_ context.Context, pass string, _ time.Duration) (time.Time, error) {
	f.pass = pass
	return f.until, f.err
}

func (f *fakeWallet) InsightTotals(context.Context) (market.InsightTotals, error) {
	return f.insight, f.err
}

func newStore() *state.Store {
	return state.NewStore(logging.NewTestLogger(), state.New(state.Breakpoints{Tablet: 80, Desktop: 120}, 100, 40))
}

func syncInfo(block int64, balances ...market.AddressBalance) market.SyncInfo {
	return market.SyncInfo{SyncPercent: 100, SyncBlockNum: block, SyncBlockTime: "1500000000", AddressBalances: balances}
}

func satBal(addr string, qtum, bot int64) market.AddressBalance {
	return market.AddressBalance{Address: addr, Qtum: decimal.NewFromInt(qtum), Bot: decimal.NewFromInt(bot)}
}

func TestPollAppliesSyncInfoAndSavesSnapshot(t *testing.T) {
	t.Parallel()
	store := newStore()
	snaps := &fakeSnapshots{}
	src := &fakeSource{infos: []market.SyncInfo{
		syncInfo(10, satBal("qA", 100000000, 0), satBal("qB", 300000000, 0)),
		syncInfo(10, satBal("qA", 100000000, 0)),
		syncInfo(11, satBal("qA", 100000000, 0)),
	}}
	s := &Syncer{Log: logging.NewTestLogger(), Store: store, Source: src, Snapshots: snaps}

	require.NoError(t, s.Poll(context.Background()))
	st := store.State()
	require.Equal(t, int64(10), st.SyncBlockNum)
	require.Equal(t, "qB", st.WalletAddresses[0].Address)
	require.True(t, st.TotalQtum.Equal(decimal.NewFromInt(4)))

	require.NoError(t, s.Poll(context.Background()))
	require.NoError(t, s.Poll(context.Background()))
	require.Equal(t, []int64{10, 11}, snaps.Saved())
}

func TestPollRecordsFetchError(t *testing.T) {
	t.Parallel()
	store := newStore()
	boom := errors.New("node unreachable")
	s := &Syncer{Log: logging.NewTestLogger(), Store: store, Source: &fakeSource{err: boom}}

	err := s.Poll(context.Background())
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, store.State().SyncInfoError, boom)
}

func TestRestoreSeedsFromLatestSnapshot(t *testing.T) {
	t.Parallel()
	store := newStore()
	snaps := &fakeSnapshots{latest: &repository.SnapshotSet{
		BlockNum:  42,
		BlockTime: 1500000000,
		Balances: []repository.Snapshot{
			{Address: "qA", Qtum: decimal.RequireFromString("1.5"), Bot: decimal.NewFromInt(2)},
		},
	}}
	s := &Syncer{Log: logging.NewTestLogger(), Store: store, Snapshots: snaps,
		Source: &fakeSource{infos: []market.SyncInfo{syncInfo(42, satBal("qA", 1, 1))}}}

	require.NoError(t, s.Restore(context.Background()))
	st := store.State()
	require.Equal(t, int64(42), st.SyncBlockNum)
	require.Equal(t, int64(1500000000), st.SyncBlockTime)
	require.Len(t, st.WalletAddresses, 1)
	require.True(t, st.WalletAddresses[0].Qtum.Equal(decimal.RequireFromString("1.5")))
	require.Equal(t, "qA", st.LastUsedAddress)

	// same block again is not re-saved
	require.NoError(t, s.Poll(context.Background()))
	require.Empty(t, snaps.Saved())
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	t.Parallel()
	store := newStore()
	before := store.State()
	s := &Syncer{Log: logging.NewTestLogger(), Store: store, Snapshots: &fakeSnapshots{}}
	require.NoError(t, s.Restore(context.Background()))
	require.Same(t, before, store.State())
}

func TestRunFollowsStream(t *testing.T) {
	t.Parallel()
	store := newStore()
	src := &fakeSource{infos: []market.SyncInfo{syncInfo(1)}}
	stream := &fakeStream{infos: []market.SyncInfo{syncInfo(5, satBal("qA", 1, 1)), syncInfo(6, satBal("qA", 2, 2))}}
	s := &Syncer{Log: logging.NewTestLogger(), Store: store, Source: src, Stream: stream, PollInterval: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return store.State().SyncBlockNum == 6 }, 2*time.Second, 5*time.Millisecond)
	// the stream is live, so the ticker must not poll again
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 1, src.Calls())
	require.Equal(t, int64(6), store.State().SyncBlockNum)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestRunPollsWithoutStream(t *testing.T) {
	t.Parallel()
	store := newStore()
	src := &fakeSource{infos: []market.SyncInfo{syncInfo(1), syncInfo(2), syncInfo(3)}}
	s := &Syncer{Log: logging.NewTestLogger(), Store: store, Source: src, PollInterval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return store.State().SyncBlockNum == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWalletOperations(t *testing.T) {
	t.Parallel()
	store := newStore()
	until := time.Unix(1700000000, 0)
	w := &fakeWallet{
		encrypted: true,
		until:     until,
		insight:   market.InsightTotals{Result: market.InsightResult{TimeBetweenBlocks: 142.5}},
	}
	s := &Syncer{Log: logging.NewTestLogger(), Store: store, Wallet: w}

	require.NoError(t, s.CheckWallet(context.Background()))
	require.True(t, store.State().WalletEncrypted)

	require.NoError(t, s.RefreshInsight(context.Background()))
	require.Equal(t, 142.5, store.State().AverageBlockTime)

	_, err := store.Dispatch(state.ToggleWalletUnlockDialog{Visible: true})
	require.NoError(t, err)
	require.NoError(t, s.Unlock(context.Background(), "hunter2", time.Hour))
	require.Equal(t, "hunter2", w.pass)
	require.True(t, store.State().WalletUnlockedUntil.Equal(until))
	require.False(t, store.State().WalletUnlockDialogVisible)
}

func TestUnlockFailureKeepsDialogOpen(t *testing.T) {
	t.Parallel()
	store := newStore()
	boom := errors.New("bad passphrase")
	s := &Syncer{Log: logging.NewTestLogger(), Store: store, Wallet: &fakeWallet{err: boom}}

	_, err := store.Dispatch(state.ToggleWalletUnlockDialog{Visible: true})
	require.NoError(t, err)
	require.ErrorIs(t, s.Unlock(context.Background(), "nope", time.Minute), boom)
	require.ErrorIs(t, store.State().ErrorApp, boom)
	require.True(t, store.State().WalletUnlockDialogVisible)
}
