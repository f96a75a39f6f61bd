// Package backend talks to the prediction-market node: GraphQL queries and
// subscriptions for oracles, topics and sync info, plus the node's wallet
// REST endpoints and the insight explorer.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/machinebox/graphql"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jask/bodhiwallet/internal/dashboard"
	"github.com/jask/bodhiwallet/internal/logging"
	"github.com/jask/bodhiwallet/internal/market"
)

const oracleFields = `
	txid
	address
	topicAddress
	name
	token
	status
	options
	optionIdxs
	amounts
	resultIdx
	consensusThreshold
	blockNum
	startTime
	endTime
	resultSetStartTime
	resultSetEndTime`

const topicFields = `
	txid
	address
	name
	status
	options
	qtumAmount
	botAmount
	resultIdx
	blockNum`

const syncInfoFields = `
	syncBlockNum
	syncBlockTime
	syncPercent
	addressBalances {
		address
		qtum
		bot
	}`

var (
	allOraclesQuery = `query AllOracles($filter: OracleFilter, $orderBy: [Order!]) {
	allOracles(filter: $filter, orderBy: $orderBy) {` + oracleFields + `
	}
}`
	allTopicsQuery = `query AllTopics($filter: TopicFilter, $orderBy: [Order!]) {
	allTopics(filter: $filter, orderBy: $orderBy) {` + topicFields + `
	}
}`
	syncInfoQuery = `query SyncInfo {
	syncInfo {` + syncInfoFields + `
	}
}`
)

// Result is the answer to a dashboard query. Only the slice matching the
// query kind is set.
type Result struct {
	Query   dashboard.Query
	Oracles []market.Oracle
	Topics  []market.Topic
}

// Client runs GraphQL queries against the node.
type Client struct {
	log     *logging.Logger
	gql     *graphql.Client
	retries uint64
}

// NewClient creates a client for the GraphQL endpoint. Failed requests are
// retried up to retries times with exponential backoff.
func NewClient(log *logging.Logger, endpoint string, timeout time.Duration, retries uint64) *Client {
	log = log.Named("graphql")
	gql := graphql.NewClient(endpoint, graphql.WithHTTPClient(&http.Client{Timeout: timeout}))
	gql.Log = func(s string) { log.Debug(s) }
	return &Client{
		log:     log,
		gql:     gql,
		retries: retries,
	}
}

// Run executes a dashboard query.
func (c *Client) Run(ctx context.Context, q dashboard.Query) (Result, error) {
	res := Result{Query: q}
	var err error
	switch q.Kind {
	case dashboard.QueryOracles:
		res.Oracles, err = c.Oracles(ctx, q.Filters, q.OrderBy)
	case dashboard.QueryTopics:
		res.Topics, err = c.Topics(ctx, q.Filters, q.OrderBy)
	default:
		err = fmt.Errorf("unknown query kind %q", q.Kind)
	}
	return res, err
}

// Oracles lists oracles matching any of filters. Amounts and thresholds are
// converted from satoshis.
func (c *Client) Oracles(ctx context.Context, filters []market.Filter, orderBy market.OrderBy) ([]market.Oracle, error) {
	var resp struct {
		AllOracles []market.Oracle `json:"allOracles"`
	}
	if err := c.run(ctx, "allOracles", allOraclesQuery, &resp, filters, orderBy); err != nil {
		return nil, err
	}
	for i := range resp.AllOracles {
		o := &resp.AllOracles[i]
		o.Amounts = fromSatoshis(o.Amounts)
		o.ConsensusThreshold = market.SatoshiToDecimal(o.ConsensusThreshold)
	}
	return resp.AllOracles, nil
}

// Topics lists topics matching any of filters.
func (c *Client) Topics(ctx context.Context, filters []market.Filter, orderBy market.OrderBy) ([]market.Topic, error) {
	var resp struct {
		AllTopics []market.Topic `json:"allTopics"`
	}
	if err := c.run(ctx, "allTopics", allTopicsQuery, &resp, filters, orderBy); err != nil {
		return nil, err
	}
	for i := range resp.AllTopics {
		t := &resp.AllTopics[i]
		t.QtumAmount = fromSatoshis(t.QtumAmount)
		t.BotAmount = fromSatoshis(t.BotAmount)
	}
	return resp.AllTopics, nil
}

// SyncInfo fetches the node's sync status and wallet balances. Balances
// stay in satoshis; the state store converts them.
func (c *Client) SyncInfo(ctx context.Context) (market.SyncInfo, error) {
	var resp struct {
		SyncInfo market.SyncInfo `json:"syncInfo"`
	}
	req := graphql.NewRequest(syncInfoQuery)
	if err := c.do(ctx, "syncInfo", req, &resp); err != nil {
		return market.SyncInfo{}, err
	}
	return resp.SyncInfo, nil
}

func (c *Client) run(ctx context.Context, op, query string, resp interface{}, filters []market.Filter, orderBy market.OrderBy) error {
	req := graphql.NewRequest(query)
	req.Var("filter", filterVar(filters))
	req.Var("orderBy", []market.OrderBy{orderBy})
	return c.do(ctx, op, req, resp)
}

func (c *Client) do(ctx context.Context, op string, req *graphql.Request, resp interface{}) error {
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := c.gql.Run(ctx, req, resp); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.log.Debug("request failed", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// filterVar ORs the filters together, matching the node's filter input.
func filterVar(filters []market.Filter) map[string]interface{} {
	return map[string]interface{}{"OR": filters}
}

func fromSatoshis(amounts []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(amounts))
	for i, a := range amounts {
		out[i] = market.SatoshiToDecimal(a)
	}
	return out
}
