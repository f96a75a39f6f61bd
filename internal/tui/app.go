package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/bodhiwallet/internal/backend"
	"github.com/jask/bodhiwallet/internal/dashboard"
	"github.com/jask/bodhiwallet/internal/logging"
	"github.com/jask/bodhiwallet/internal/service"
	"github.com/jask/bodhiwallet/internal/state"
)

// QueryRunner executes dashboard queries.
type QueryRunner interface {
	Run(ctx context.Context, q dashboard.Query) (backend.Result, error)
}

// Deps are the collaborators the app drives.
type Deps struct {
	Log    *logging.Logger
	Store  *state.Store
	Client QueryRunner
	Syncer *service.Syncer
	Prefs  *service.Preferences // optional
}

// Options are presentation settings.
type Options struct {
	Breakpoints state.Breakpoints
	Dashboard   dashboard.Dashboard
	Location    *time.Location
	UnlockFor   time.Duration
}

// App is the wallet dashboard.
type App struct {
	ctx  context.Context
	deps Deps
	opts Options
	keys *KeyRegistry

	snap    *state.State
	dash    dashboard.Dashboard
	tracker dashboard.Tracker

	cards     []dashboard.Card
	cardsTab  dashboard.Tab
	loading   bool
	cursor    int
	searching bool
	search    textinput.Model
	pass      textinput.Model
	status    string

	width  int
	height int
}

func New(ctx context.Context, deps Deps, opts Options) *App {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.UnlockFor <= 0 {
		opts.UnlockFor = 5 * time.Minute
	}
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search events"
	pass := textinput.New()
	pass.Prompt = "passphrase: "
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '*'

	return &App{
		ctx:    ctx,
		deps:   deps,
		opts:   opts,
		keys:   NewKeyRegistry(),
		snap:   deps.Store.State(),
		dash:   opts.Dashboard,
		search: search,
		pass:   pass,
	}
}

// Forward returns a store listener that wakes the program after every
// transition. The send happens off the dispatching goroutine because
// Update itself dispatches.
func Forward(send func(tea.Msg)) state.Listener {
	return func(_, _ *state.State, _ state.Action) {
		go send(stateChangedMsg{})
	}
}

// messages
type stateChangedMsg struct{}

type resultMsg struct {
	tab    dashboard.Tab
	result backend.Result
}

type statusMsg string

type errMsg struct{ error }

func (a *App) Init() tea.Cmd {
	a.dispatch(state.SetAppLocation{Location: a.dash.Tab.Location()})
	return tea.Batch(a.maybeFetch(), a.checkWalletCmd(), a.insightCmd())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.search.Width = max(10, m.Width-6)
		a.dispatch(state.ToggleAll{
			View:      a.opts.Breakpoints.ViewForWidth(m.Width),
			Collapsed: a.opts.Breakpoints.Collapsed(m.Width),
			Height:    m.Height,
		})
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(m)
	case stateChangedMsg:
		a.snap = a.deps.Store.State()
		return a, a.maybeFetch()
	case resultMsg:
		a.loading = false
		a.applyResult(m)
		return a, nil
	case statusMsg:
		a.status = string(m)
		return a, nil
	case errMsg:
		a.loading = false
		a.status = "error: " + m.Error()
		return a, nil
	}
	return a, nil
}

func (a *App) scope() string {
	switch {
	case a.snap.WalletUnlockDialogVisible:
		return scopeUnlock
	case a.snap.CreateEventDialogVisible:
		return scopeDialog
	case a.searching:
		return scopeSearch
	}
	return scopeDashboard
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	scope := a.scope()
	b := a.keys.Lookup(m.String(), scope)
	if b == nil {
		return a.updateInput(scope, m)
	}

	switch b.Action {
	case actionQuit:
		return a, tea.Quit
	case actionTab:
		idx := int(m.String()[0] - '1')
		return a, a.selectTab(dashboard.Tabs[idx])
	case actionWallet:
		a.toggleWallet()
	case actionNextTab:
		return a, a.selectTab(dashboard.Tabs[(int(a.dash.Tab)+1)%len(dashboard.Tabs)])
	case actionSort:
		a.dash = a.dash.ToggleSort()
		return a, tea.Batch(a.persistCmd(), a.maybeFetch())
	case actionNavigate:
		a.moveCursor(m.String())
	case actionSelect:
		visible := a.visibleCards()
		if a.cursor < len(visible) {
			a.dispatch(state.SetCurrentPath{Path: visible[a.cursor].Path})
		}
	case actionSearch:
		a.searching = true
		return a, a.search.Focus()
	case actionClearSearch:
		a.searching = false
		a.search.Reset()
		a.search.Blur()
		a.cursor = 0
	case actionConfirm:
		if scope == scopeUnlock {
			pass := a.pass.Value()
			a.pass.Reset()
			return a, a.unlockCmd(pass)
		}
		a.searching = false
		a.search.Blur()
	case actionNextAddress:
		a.nextAddress()
	case actionUnlock:
		a.pass.Reset()
		a.dispatch(state.ToggleWalletUnlockDialog{Visible: true})
		return a, a.pass.Focus()
	case actionCancelUnlock:
		a.pass.Reset()
		a.pass.Blur()
		a.dispatch(state.ToggleWalletUnlockDialog{Visible: false})
	case actionCreateEvent:
		a.dispatch(state.ToggleCreateEventDialog{Visible: true})
	case actionPendingTxs:
		a.dispatch(state.TogglePendingTxsSnackbar{Visible: !a.snap.PendingTxsSnackbarVisible})
	case actionRefresh:
		a.tracker.Reset()
		a.status = "refreshing..."
		return a, tea.Batch(a.pollCmd(), a.insightCmd(), a.maybeFetch())
	case actionClose:
		a.close()
	}
	return a, nil
}

func (a *App) updateInput(scope string, m tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch scope {
	case scopeUnlock:
		a.pass, cmd = a.pass.Update(m)
	case scopeSearch:
		a.search, cmd = a.search.Update(m)
		a.cursor = 0
	}
	return a, cmd
}

func (a *App) close() {
	switch {
	case a.snap.CreateEventDialogVisible:
		a.dispatch(state.ToggleCreateEventDialog{Visible: false})
	case a.snap.ErrorApp != nil:
		a.dispatch(state.ClearErrorApp{})
	case a.status != "":
		a.status = ""
	case a.search.Value() != "":
		a.search.Reset()
		a.cursor = 0
	}
}

func (a *App) selectTab(t dashboard.Tab) tea.Cmd {
	if t == a.dash.Tab {
		if a.snap.AppLocation != t.Location() {
			a.dispatch(state.SetAppLocation{Location: t.Location()})
		}
		return nil
	}
	a.dash = a.dash.SetTab(t)
	a.cursor = 0
	a.dispatch(state.SetAppLocation{Location: t.Location()})
	return tea.Batch(a.persistCmd(), a.maybeFetch())
}

// toggleWallet switches between the wallet address list and the current tab.
func (a *App) toggleWallet() {
	if a.snap.AppLocation == state.LocationMyWallet {
		a.dispatch(state.SetAppLocation{Location: a.dash.Tab.Location()})
		return
	}
	a.dispatch(state.SetAppLocation{Location: state.LocationMyWallet})
}

func (a *App) moveCursor(k string) {
	n := len(a.visibleCards())
	switch k {
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	default:
		if a.cursor < n-1 {
			a.cursor++
		}
	}
}

// nextAddress makes the address after the last used one current.
func (a *App) nextAddress() {
	list := a.snap.WalletAddresses
	if len(list) == 0 {
		return
	}
	next := list[0].Address
	for i, addr := range list {
		if addr.Address == a.snap.LastUsedAddress {
			next = list[(i+1)%len(list)].Address
			break
		}
	}
	a.dispatch(state.SetLastUsedAddress{Address: next})
}

func (a *App) dispatch(act state.Action) {
	next, err := a.deps.Store.Dispatch(act)
	a.snap = next
	if err != nil {
		a.status = "error: " + err.Error()
	}
}

func (a *App) visibleCards() []dashboard.Card {
	if q := a.search.Value(); q != "" {
		return dashboard.Search(a.cards, q)
	}
	return a.cards
}

func (a *App) applyResult(m resultMsg) {
	var cards []dashboard.Card
	switch m.result.Query.Kind {
	case dashboard.QueryTopics:
		cards = dashboard.TopicCards(m.result.Topics)
	default:
		var err error
		cards, err = dashboard.OracleCards(m.tab, m.result.Oracles)
		if err != nil {
			a.status = "error: " + err.Error()
			return
		}
	}
	a.cards = cards
	a.cardsTab = m.tab
	if a.cursor >= len(a.visibleCards()) {
		a.cursor = 0
	}
}

// commands

// maybeFetch re-issues the dashboard query when the tab, sort or synced
// block changed since the last one.
func (a *App) maybeFetch() tea.Cmd {
	if !a.tracker.Observe(a.dash.Tab, a.dash.Sort, a.snap.SyncBlockNum) {
		return nil
	}
	d := a.dash
	q, err := d.Query()
	if err != nil {
		return func() tea.Msg { return errMsg{err} }
	}
	a.loading = true
	return func() tea.Msg {
		res, err := a.deps.Client.Run(a.ctx, q)
		if err != nil {
			a.log().Warn("dashboard query failed", zap.Stringer("tab", d.Tab), zap.Error(err))
			return errMsg{fmt.Errorf("load %s: %w", d.Tab, err)}
		}
		return resultMsg{tab: d.Tab, result: res}
	}
}

func (a *App) persistCmd() tea.Cmd {
	if a.deps.Prefs == nil {
		return nil
	}
	d := a.dash
	return func() tea.Msg {
		if err := a.deps.Prefs.SaveDashboard(a.ctx, d); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (a *App) pollCmd() tea.Cmd {
	if a.deps.Syncer == nil {
		return nil
	}
	return func() tea.Msg {
		if err := a.deps.Syncer.Poll(a.ctx); err != nil {
			return errMsg{err}
		}
		return statusMsg("")
	}
}

func (a *App) insightCmd() tea.Cmd {
	if a.deps.Syncer == nil || a.deps.Syncer.Wallet == nil {
		return nil
	}
	return func() tea.Msg {
		if err := a.deps.Syncer.RefreshInsight(a.ctx); err != nil {
			a.log().Warn("insight totals", zap.Error(err))
		}
		return nil
	}
}

func (a *App) checkWalletCmd() tea.Cmd {
	if a.deps.Syncer == nil || a.deps.Syncer.Wallet == nil {
		return nil
	}
	return func() tea.Msg {
		// failures land in ErrorApp
		_ = a.deps.Syncer.CheckWallet(a.ctx)
		return nil
	}
}

func (a *App) unlockCmd(passphrase string) tea.Cmd {
	if a.deps.Syncer == nil {
		return nil
	}
	d := a.opts.UnlockFor
	return func() tea.Msg {
		if err := a.deps.Syncer.Unlock(a.ctx, passphrase, d); err != nil {
			return nil
		}
		return statusMsg("wallet unlocked for " + d.String())
	}
}

func (a *App) log() *logging.Logger {
	if a.deps.Log == nil {
		return logging.NewTestLogger()
	}
	return a.deps.Log
}
