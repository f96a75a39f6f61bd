package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// Action is what a key press asks the app to do.
type Action string

// Binding maps keys to an action within scopes.
type Binding struct {
	Action Action
	Keys   []string
	// Label overrides the first key in help output.
	Label  string
	Help   string
	Scopes []string
}

// KeyRegistry resolves key presses per scope, falling back to the global
// scope.
type KeyRegistry struct {
	bindingsByScope map[string][]*Binding
	indexByScope    map[string]map[string]*Binding
}

const (
	scopeGlobal    = "global"
	scopeDashboard = "dashboard"
	scopeSearch    = "search"
	scopeUnlock    = "unlock"
	scopeDialog    = "dialog"
)

const (
	actionQuit         Action = "quit"
	actionTab          Action = "tab"
	actionNextTab      Action = "next_tab"
	actionSort         Action = "sort"
	actionNextAddress  Action = "next_address"
	actionUnlock       Action = "unlock"
	actionCreateEvent  Action = "create_event"
	actionPendingTxs   Action = "pending_txs"
	actionSearch       Action = "search"
	actionClose        Action = "close"
	actionRefresh      Action = "refresh"
	actionNavigate     Action = "navigate"
	actionSelect       Action = "select"
	actionConfirm      Action = "confirm"
	actionClearSearch  Action = "clear_search"
	actionCancelUnlock Action = "cancel_unlock"
	actionWallet       Action = "wallet"
)

func NewKeyRegistry() *KeyRegistry {
	r := &KeyRegistry{
		bindingsByScope: make(map[string][]*Binding),
		indexByScope:    make(map[string]map[string]*Binding),
	}

	reg := func(scope string, action Action, keys []string, help string) {
		r.Register(Binding{Action: action, Keys: keys, Help: help, Scopes: []string{scope}})
	}
	regLabel := func(scope string, action Action, label string, keys []string, help string) {
		r.Register(Binding{Action: action, Keys: keys, Label: label, Help: help, Scopes: []string{scope}})
	}

	reg(scopeGlobal, actionQuit, []string{"ctrl+c"}, "quit")

	regLabel(scopeDashboard, actionTab, "1-5", []string{"1", "2", "3", "4", "5"}, "tabs")
	reg(scopeDashboard, actionNextTab, []string{"tab"}, "next tab")
	reg(scopeDashboard, actionWallet, []string{"w"}, "wallet")
	reg(scopeDashboard, actionSort, []string{"s"}, "sort")
	regLabel(scopeDashboard, actionNavigate, "j/k", []string{"j", "k", "up", "down"}, "navigate")
	reg(scopeDashboard, actionSelect, []string{"enter"}, "open")
	reg(scopeDashboard, actionSearch, []string{"/"}, "search")
	reg(scopeDashboard, actionNextAddress, []string{"a"}, "address")
	reg(scopeDashboard, actionUnlock, []string{"u"}, "unlock")
	reg(scopeDashboard, actionCreateEvent, []string{"n"}, "create event")
	reg(scopeDashboard, actionPendingTxs, []string{"p"}, "pending")
	reg(scopeDashboard, actionRefresh, []string{"r"}, "refresh")
	reg(scopeDashboard, actionClose, []string{"esc"}, "dismiss")
	reg(scopeDashboard, actionQuit, []string{"q", "ctrl+c"}, "quit")

	reg(scopeSearch, actionClearSearch, []string{"esc"}, "clear search")
	reg(scopeSearch, actionConfirm, []string{"enter"}, "confirm")

	reg(scopeUnlock, actionConfirm, []string{"enter"}, "unlock")
	reg(scopeUnlock, actionCancelUnlock, []string{"esc"}, "cancel")

	reg(scopeDialog, actionClose, []string{"esc", "n"}, "close")
	reg(scopeDialog, actionQuit, []string{"q", "ctrl+c"}, "quit")

	return r
}

// Register adds b to each of its scopes. Keys already bound in a scope keep
// their first binding.
func (r *KeyRegistry) Register(b Binding) {
	if r == nil {
		return
	}
	for _, scope := range b.Scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" || len(b.Keys) == 0 {
			continue
		}
		if _, ok := r.indexByScope[scope]; !ok {
			r.indexByScope[scope] = make(map[string]*Binding)
		}
		normKeys := normalizeKeyList(b.Keys)
		if len(normKeys) == 0 || r.scopeHasAnyKey(scope, normKeys) {
			continue
		}

		copyBinding := b
		copyBinding.Keys = normKeys
		copyBinding.Scopes = []string{scope}
		r.bindingsByScope[scope] = append(r.bindingsByScope[scope], &copyBinding)
		for _, k := range copyBinding.Keys {
			r.indexByScope[scope][k] = &copyBinding
		}
	}
}

func (r *KeyRegistry) BindingsForScope(scope string) []Binding {
	if r == nil {
		return nil
	}
	items := r.bindingsByScope[scope]
	out := make([]Binding, 0, len(items))
	for _, b := range items {
		out = append(out, *b)
	}
	return out
}

func (r *KeyRegistry) Lookup(keyName, scope string) *Binding {
	if r == nil || keyName == "" {
		return nil
	}
	keyName = normalizeKeyName(keyName)
	if b := r.lookupInScope(keyName, scope); b != nil {
		return b
	}
	if scope != scopeGlobal {
		return r.lookupInScope(keyName, scopeGlobal)
	}
	return nil
}

// HelpBindings returns the footer help of a scope. Bindings without a Label
// show their first key.
func (r *KeyRegistry) HelpBindings(scope string) []key.Binding {
	items := r.BindingsForScope(scope)
	out := make([]key.Binding, 0, len(items))
	for _, b := range items {
		label := b.Label
		if label == "" {
			label = b.Keys[0]
		}
		out = append(out, key.NewBinding(key.WithKeys(b.Keys...), key.WithHelp(label, b.Help)))
	}
	return out
}

func (r *KeyRegistry) lookupInScope(keyName, scope string) *Binding {
	lookup, ok := r.indexByScope[scope]
	if !ok {
		return nil
	}
	return lookup[keyName]
}

func (r *KeyRegistry) scopeHasAnyKey(scope string, keys []string) bool {
	lookup := r.indexByScope[scope]
	for _, k := range keys {
		if _, exists := lookup[k]; exists {
			return true
		}
	}
	return false
}

func normalizeKeyList(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool)
	for _, k := range keys {
		n := normalizeKeyName(k)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func normalizeKeyName(k string) string {
	if k == " " {
		return "space"
	}
	trimmed := strings.TrimSpace(k)
	if len(trimmed) == 1 && trimmed[0] >= 'A' && trimmed[0] <= 'Z' {
		return trimmed
	}
	s := strings.ToLower(trimmed)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "control+", "ctrl+")
	s = strings.ReplaceAll(s, "return", "enter")
	return s
}
