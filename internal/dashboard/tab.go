// Package dashboard turns the selected dashboard tab into backend queries
// and backend results into display cards.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/jask/bodhiwallet/internal/market"
	"github.com/jask/bodhiwallet/internal/state"
)

// Tab is a dashboard section.
type Tab int

const (
	TabBet Tab = iota
	TabSet
	TabVote
	TabFinalize
	TabWithdraw
)

// DefaultTab is selected when nothing else is configured or persisted.
const DefaultTab = TabBet

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabBet, TabSet, TabVote, TabFinalize, TabWithdraw}

var tabNames = map[Tab]string{
	TabBet:      "Bet",
	TabSet:      "Set",
	TabVote:     "Vote",
	TabFinalize: "Finalize",
	TabWithdraw: "Withdraw",
}

func (t Tab) String() string {
	if name, ok := tabNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tab(%d)", int(t))
}

// ParseTab accepts a tab name in any case.
func ParseTab(s string) (Tab, error) {
	for tab, name := range tabNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return tab, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTabIndex, s)
}

// Location returns the app location that corresponds to the tab.
func (t Tab) Location() state.AppLocation {
	switch t {
	case TabBet:
		return state.LocationBet
	case TabSet:
		return state.LocationSet
	case TabVote:
		return state.LocationVote
	case TabFinalize:
		return state.LocationFinalize
	case TabWithdraw:
		return state.LocationWithdraw
	}
	return state.LocationQtumPrediction
}

// Dashboard is the dashboard's own slice of state: the selected tab and
// sort direction.
type Dashboard struct {
	Tab  Tab
	Sort market.SortDirection
}

func (d Dashboard) SetTab(t Tab) Dashboard {
	d.Tab = t
	return d
}

func (d Dashboard) ToggleSort() Dashboard {
	d.Sort = d.Sort.Toggle()
	return d
}

// Query builds the backend query for the current selection.
func (d Dashboard) Query() (Query, error) {
	return BuildQuery(d.Tab, d.Sort)
}
