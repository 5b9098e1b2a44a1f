package hyperliquid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hlrecap/internal/recap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddr = "0x1234567890abcdef1234567890abcdef12345678"

const clearinghouseState = `{
  "assetPositions": [
    {"type":"oneWay","position":{"coin":"BTC","szi":"0.5","entryPx":"60000.0","positionValue":"31000.0","unrealizedPnl":"1000.0","liquidationPx":"45000.0","marginUsed":"3100.0","leverage":{"type":"cross","value":10}}},
    {"type":"oneWay","position":{"coin":"@3","szi":"-2","entryPx":"3000","positionValue":"5800","unrealizedPnl":"200.5","liquidationPx":null,"marginUsed":"580","leverage":{"type":"isolated","value":5}}},
    {"type":"oneWay","position":{"coin":"SOL","szi":"0.0","entryPx":"150","positionValue":"0","unrealizedPnl":"0"}}
  ],
  "marginSummary": {"accountValue":"50000.0"}
}`

const userFills = `[
  {"coin":"ETH","px":"3000.5","sz":"1.0","side":"B","time":1714564800000,"startPosition":"0.0","dir":"Open Long","closedPnl":"0.0","hash":"0xaa","fee":"1.2"},
  {"coin":"ETH","px":"3100","sz":"1.0","side":"A","time":1714568400000,"startPosition":"1.0","dir":"Close Long","closedPnl":"99.5","hash":"0xbb","fee":"1.3"},
  {"coin":"@3","px":"1","sz":"10","side":"A","time":1714568500000,"dir":"Sell","closedPnl":"0"}
]`

const meta = `{"universe":[{"name":"BTC"},{"name":"ETH"},{"name":"SOL"},{"name":"HYPE"}]}`

type fakeAPI struct {
	calls    atomic.Int32
	failures int32
	status   int
	bodies   []map[string]any
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := f.calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/info", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.bodies = append(f.bodies, body)

		if n <= f.failures {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":"busy"}`))
			return
		}
		switch body["type"] {
		case "clearinghouseState":
			_, _ = w.Write([]byte(clearinghouseState))
		case "userFillsByTime":
			_, _ = w.Write([]byte(userFills))
		case "meta":
			_, _ = w.Write([]byte(meta))
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
	}
}

func newTestClient(t *testing.T, api *fakeAPI, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{
		BaseURL:    srv.URL,
		Timeout:    2 * time.Second,
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestFetchPositions(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, 0)

	positions, err := c.FetchPositions(context.Background(), testAddr)
	require.NoError(t, err)
	require.Len(t, positions, 2)

	btc := positions[0]
	assert.Equal(t, "BTC", btc.Coin)
	assert.Equal(t, recap.SideLong, btc.Side)
	assert.Equal(t, "0.5", btc.Size.String())
	assert.Equal(t, "62000", btc.MarkPrice.String())
	assert.Equal(t, "1000", btc.UnrealizedPnl.String())
	assert.Equal(t, "10", btc.Leverage.String())

	hype := positions[1]
	assert.Equal(t, "HYPE", hype.Coin)
	assert.Equal(t, recap.SideShort, hype.Side)
	assert.Equal(t, "2", hype.Size.String())
	assert.True(t, hype.LiquidationPrice.IsZero())

	assert.Equal(t, "clearinghouseState", api.bodies[0]["type"])
	assert.Equal(t, testAddr, api.bodies[0]["user"])
}

func TestFetchFills(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, 0)
	since := time.UnixMilli(1714500000000)

	fills, err := c.FetchFills(context.Background(), testAddr, since)
	require.NoError(t, err)
	require.Len(t, fills, 3)

	assert.Equal(t, "ETH", fills[0].Coin)
	assert.Equal(t, recap.FillBuy, fills[0].Side)
	assert.Equal(t, "3000.5", fills[0].Price.String())
	assert.True(t, fills[0].StartPosition.Valid)
	assert.True(t, fills[0].StartPosition.Decimal.IsZero())
	assert.Equal(t, time.UnixMilli(1714564800000).UTC(), fills[0].Time)

	assert.Equal(t, "99.5", fills[1].ClosedPnl.String())
	assert.Equal(t, "Close Long", fills[1].Dir)

	assert.Equal(t, "HYPE", fills[2].Coin)
	assert.False(t, fills[2].StartPosition.Valid)

	body := api.bodies[0]
	assert.Equal(t, "userFillsByTime", body["type"])
	assert.Equal(t, float64(1714500000000), body["startTime"])
	assert.Equal(t, true, body["aggregateByTime"])
}

func TestRetryThenSuccess(t *testing.T) {
	api := &fakeAPI{failures: 2, status: http.StatusInternalServerError}
	c := newTestClient(t, api, 3)

	_, err := c.FetchPositions(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Equal(t, int32(3+1), api.calls.Load(), "two failures, one success, one meta lookup")
}

func TestRetryExhausted(t *testing.T) {
	api := &fakeAPI{failures: 100, status: http.StatusBadGateway}
	c := newTestClient(t, api, 2)

	_, err := c.FetchFills(context.Background(), testAddr, time.Now().Add(-time.Hour))
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, int32(3), api.calls.Load())
}

func TestClientErrorNotRetried(t *testing.T) {
	api := &fakeAPI{failures: 100, status: http.StatusUnprocessableEntity}
	c := newTestClient(t, api, 3)

	_, err := c.FetchPositions(context.Background(), testAddr)
	require.Error(t, err)
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestInvalidAddress(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, 3)

	_, err := c.FetchPositions(context.Background(), "0xnothex")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = c.FetchFills(context.Background(), "", time.Now())
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Zero(t, api.calls.Load())
}

func TestCircuitOpens(t *testing.T) {
	api := &fakeAPI{failures: 100, status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL, MaxRetries: 0, BreakerThreshold: 2, BreakerCooldown: time.Hour})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.FetchPositions(context.Background(), testAddr)
		require.Error(t, err)
	}
	_, err = c.FetchPositions(context.Background(), testAddr)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), api.calls.Load())
}

func TestClientErrorsDoNotOpenCircuit(t *testing.T) {
	api := &fakeAPI{failures: 3, status: http.StatusUnprocessableEntity}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL, BreakerThreshold: 1, BreakerCooldown: time.Hour})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.FetchPositions(context.Background(), testAddr)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	_, err = c.FetchPositions(context.Background(), testAddr)
	require.NoError(t, err)
}

func TestAssetNamesCached(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, 0)
	ctx := context.Background()

	_, err := c.FetchPositions(ctx, testAddr)
	require.NoError(t, err)
	_, err = c.FetchFills(ctx, testAddr, time.UnixMilli(0))
	require.NoError(t, err)

	metaCalls := 0
	for _, body := range api.bodies {
		if body["type"] == "meta" {
			metaCalls++
		}
	}
	assert.Equal(t, 1, metaCalls)

	unknown := "@99"
	plain := "BTC"
	c.resolveAll(ctx, []*string{&unknown, &plain})
	assert.Equal(t, "@99", unknown)
	assert.Equal(t, "BTC", plain)
}

// pagedFills serves userFillsByTime like the live API: fills at or after
// startTime, oldest first, at most fillsPageSize per response.
func pagedFills(t *testing.T, fills []map[string]any) (*httptest.Server, *[]int64) {
	t.Helper()
	var starts []int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Type      string `json:"type"`
			StartTime int64  `json:"startTime"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "userFillsByTime", body.Type)
		starts = append(starts, body.StartTime)
		page := make([]map[string]any, 0, fillsPageSize)
		for _, f := range fills {
			if f["time"].(int64) >= body.StartTime && len(page) < fillsPageSize {
				page = append(page, f)
			}
		}
		assert.NoError(t, json.NewEncoder(w).Encode(page))
	}))
	t.Cleanup(srv.Close)
	return srv, &starts
}

func TestFetchFills_PagesKeepBoundaryMillisecond(t *testing.T) {
	const base = int64(1714500000000)
	cases := []struct {
		name    string
		withTid bool
	}{
		{"by trade id", true},
		{"without trade id", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fills := make([]map[string]any, 0, fillsPageSize+2)
			for i := 0; i <= fillsPageSize; i++ {
				ts := base + int64(i)
				if i == fillsPageSize {
					ts-- // shares the last millisecond of the first page
				}
				f := map[string]any{
					"coin": "ETH", "px": "3000", "sz": fmt.Sprintf("0.%04d", i+1), "side": "B",
					"time": ts, "dir": "Open Long", "closedPnl": "1", "hash": "0xsame",
				}
				if tc.withTid {
					f["tid"] = i + 1
				}
				fills = append(fills, f)
			}
			srv, starts := pagedFills(t, fills)
			c, err := NewClient(Config{BaseURL: srv.URL})
			require.NoError(t, err)

			got, err := c.FetchFills(context.Background(), testAddr, time.UnixMilli(base))
			require.NoError(t, err)
			require.Len(t, got, fillsPageSize+1)
			assert.Equal(t, []int64{base, base + fillsPageSize - 1}, *starts)

			sizes := make(map[string]bool, len(got))
			for _, f := range got {
				sizes[f.Size.String()] = true
			}
			assert.Len(t, sizes, fillsPageSize+1, "no fill is returned twice")
		})
	}
}

func TestFetchFills_StalledPageStops(t *testing.T) {
	const ts = int64(1714500000000)
	fills := make([]map[string]any, 0, fillsPageSize+5)
	for i := 0; i < fillsPageSize+5; i++ {
		fills = append(fills, map[string]any{
			"coin": "BTC", "px": "60000", "sz": "0.01", "side": "A",
			"time": ts, "dir": "Close Long", "closedPnl": "2", "tid": i + 1,
		})
	}
	srv, starts := pagedFills(t, fills)
	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := c.FetchFills(context.Background(), testAddr, time.UnixMilli(ts))
	require.NoError(t, err)
	assert.Len(t, got, fillsPageSize)
	assert.Len(t, *starts, 2)
}

func TestContextCancelStopsRetry(t *testing.T) {
	api := &fakeAPI{failures: 100, status: http.StatusInternalServerError}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL, MaxRetries: 5, RetryDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.FetchPositions(ctx, testAddr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), api.calls.Load())
}
