package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/bodhiwallet/internal/dashboard"
	"github.com/jask/bodhiwallet/internal/logging"
	"github.com/jask/bodhiwallet/internal/market"
)

type gqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func newGraphQLServer(t *testing.T, handle func(req gqlRequest) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(handle(req)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRunsOracleQuery(t *testing.T) {
	t.Parallel()

	var got gqlRequest
	srv := newGraphQLServer(t, func(req gqlRequest) string {
		got = req
		return `{"data":{"allOracles":[{
			"address":"oA","topicAddress":"tA","name":"Final","token":"QTUM","status":"VOTING",
			"options":["Home","Away"],"optionIdxs":[0,1],"amounts":["150000000",50000000],
			"consensusThreshold":"10000000000","endTime":"1514764800"
		}]}}`
	})

	client := NewClient(logging.NewTestLogger(), srv.URL, time.Second, 0)
	q, err := dashboard.BuildQuery(dashboard.TabSet, market.Descending)
	require.NoError(t, err)

	res, err := client.Run(context.Background(), q)
	require.NoError(t, err)
	require.Nil(t, res.Topics)
	require.Len(t, res.Oracles, 1)

	o := res.Oracles[0]
	require.Equal(t, "oA", o.Address)
	require.Equal(t, market.TokenQtum, o.Token)
	require.True(t, o.Amounts[0].Equal(decimal.RequireFromString("1.5")))
	require.True(t, o.Amounts[1].Equal(decimal.RequireFromString("0.5")))
	require.True(t, o.ConsensusThreshold.Equal(decimal.NewFromInt(100)))
	require.Equal(t, market.Timestamp(1514764800), o.EndTime)

	require.True(t, strings.Contains(got.Query, "allOracles("))
	filter, ok := got.Variables["filter"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, []interface{}{
		map[string]interface{}{"token": "QTUM", "status": "WAITRESULT"},
		map[string]interface{}{"token": "QTUM", "status": "OPENRESULTSET"},
	}, filter["OR"])
	require.Equal(t, []interface{}{
		map[string]interface{}{"field": "resultSetEndTime", "direction": "DESC"},
	}, got.Variables["orderBy"])
}

func TestClientRunsTopicQuery(t *testing.T) {
	t.Parallel()

	var got gqlRequest
	srv := newGraphQLServer(t, func(req gqlRequest) string {
		got = req
		return `{"data":{"allTopics":[{
			"address":"tA","name":"Election","status":"WITHDRAW","options":["A","B"],
			"qtumAmount":[100000000,300000000],"botAmount":[0,0],"resultIdx":1,"blockNum":42
		}]}}`
	})

	client := NewClient(logging.NewTestLogger(), srv.URL, time.Second, 0)
	q, err := dashboard.BuildQuery(dashboard.TabWithdraw, "")
	require.NoError(t, err)

	res, err := client.Run(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, res.Topics, 1)
	require.True(t, res.Topics[0].QtumAmount[1].Equal(decimal.NewFromInt(3)))
	require.Equal(t, 1, *res.Topics[0].ResultIdx)

	filter := got.Variables["filter"].(map[string]interface{})
	require.Equal(t, []interface{}{map[string]interface{}{"status": "WITHDRAW"}}, filter["OR"])
}

func TestClientSyncInfoKeepsSatoshis(t *testing.T) {
	t.Parallel()

	srv := newGraphQLServer(t, func(req gqlRequest) string {
		return `{"data":{"syncInfo":{"syncBlockNum":80000,"syncBlockTime":"1514764800","syncPercent":100,
			"addressBalances":[{"address":"qA","qtum":"250000000","bot":"0"}]}}}`
	})

	client := NewClient(logging.NewTestLogger(), srv.URL, time.Second, 0)
	info, err := client.SyncInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(80000), info.SyncBlockNum)
	require.Equal(t, int64(1514764800), info.SyncBlockTime.Int64())
	require.Equal(t, "250000000", info.AddressBalances[0].Qtum.String())
}

func TestClientRetriesThenReportsGraphQLError(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := newGraphQLServer(t, func(req gqlRequest) string {
		atomic.AddInt32(&calls, 1)
		return `{"errors":[{"message":"node is syncing"}]}`
	})

	client := NewClient(logging.NewTestLogger(), srv.URL, time.Second, 1)
	_, err := client.SyncInfo(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "node is syncing")
	require.Contains(t, err.Error(), "syncInfo")
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientRejectsUnknownQueryKind(t *testing.T) {
	t.Parallel()

	client := NewClient(logging.NewTestLogger(), "http://127.0.0.1:0/graphql", time.Second, 0)
	_, err := client.Run(context.Background(), dashboard.Query{Kind: "events"})
	require.Error(t, err)
}
