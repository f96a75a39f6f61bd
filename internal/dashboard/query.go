package dashboard

import (
	"errors"
	"fmt"

	"github.com/jask/bodhiwallet/internal/market"
)

// ErrInvalidTabIndex is returned for a tab outside the known set. It signals
// a caller bug rather than a runtime condition.
var ErrInvalidTabIndex = errors.New("invalid tab index")

// QueryKind selects the backend collection a query runs against.
type QueryKind string

const (
	QueryOracles QueryKind = "oracles"
	QueryTopics  QueryKind = "topics"
)

// Query is one outbound data request of the dashboard.
type Query struct {
	Kind    QueryKind
	Filters []market.Filter
	OrderBy market.OrderBy
}

// BuildQuery maps a tab and sort direction to the query that fills it. An
// empty direction means ascending.
func BuildQuery(tab Tab, dir market.SortDirection) (Query, error) {
	if dir == "" {
		dir = market.Ascending
	}

	switch tab {
	case TabBet:
		return oracleQuery("endTime", dir,
			market.Filter{Token: market.TokenQtum, Status: market.StatusVoting},
		), nil
	case TabSet:
		return oracleQuery("resultSetEndTime", dir,
			market.Filter{Token: market.TokenQtum, Status: market.StatusWaitResult},
			market.Filter{Token: market.TokenQtum, Status: market.StatusOpenResultSet},
		), nil
	case TabVote:
		return oracleQuery("endTime", dir,
			market.Filter{Token: market.TokenBot, Status: market.StatusVoting},
		), nil
	case TabFinalize:
		return oracleQuery("endTime", dir,
			market.Filter{Token: market.TokenBot, Status: market.StatusWaitResult},
		), nil
	case TabWithdraw:
		return Query{
			Kind:    QueryTopics,
			Filters: []market.Filter{{Status: market.StatusWithdraw}},
			OrderBy: market.OrderBy{Field: "blockNum", Direction: dir},
		}, nil
	}
	return Query{}, fmt.Errorf("%w: %d", ErrInvalidTabIndex, int(tab))
}

func oracleQuery(field string, dir market.SortDirection, filters ...market.Filter) Query {
	return Query{
		Kind:    QueryOracles,
		Filters: filters,
		OrderBy: market.OrderBy{Field: field, Direction: dir},
	}
}

// Tracker decides when the dashboard query has to be issued again: on the
// first observation and whenever the tab, the sort direction or the latest
// synced block changes. A new block means results may be stale.
type Tracker struct {
	seen     bool
	tab      Tab
	dir      market.SortDirection
	blockNum int64
}

// Observe records the current inputs and reports whether a new request is
// due.
func (t *Tracker) Observe(tab Tab, dir market.SortDirection, blockNum int64) bool {
	if t.seen && t.tab == tab && t.dir == dir && t.blockNum == blockNum {
		return false
	}
	t.seen = true
	t.tab = tab
	t.dir = dir
	t.blockNum = blockNum
	return true
}

// Reset forgets the last observation so the next one always fires.
func (t *Tracker) Reset() {
	*t = Tracker{}
}
