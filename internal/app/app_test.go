package app

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hlrecap/internal/config"
	"hlrecap/internal/recap"
	"hlrecap/internal/store/model"
	"hlrecap/internal/store/sqlite"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccount = "0x1111111111111111111111111111111111111111"

type stubSource struct{}

func (stubSource) FetchPositions(context.Context, string) ([]recap.RawPosition, error) {
	return []recap.RawPosition{{
		Coin:          "ETH",
		Side:          recap.SideLong,
		Size:          decimal.NewFromInt(2),
		UnrealizedPnl: decimal.NewFromInt(40),
	}}, nil
}

func (stubSource) FetchFills(_ context.Context, _ string, since time.Time) ([]recap.RawFill, error) {
	return []recap.RawFill{{
		Coin:          "ETH",
		Side:          recap.FillBuy,
		Size:          decimal.NewFromInt(2),
		Price:         decimal.NewFromInt(3000),
		Time:          since.Add(time.Hour),
		StartPosition: decimal.NewNullDecimal(decimal.Zero),
	}}, nil
}

type captureNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureNotifier) SendText(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{
			LogLevel:    "info",
			Mode:        config.ModeOnce,
			StateDBPath: filepath.Join(t.TempDir(), "state", "hlrecap.db"),
		},
		Hyperliquid: config.HyperliquidConfig{APIURL: "https://api.hyperliquid.xyz", TimeoutSeconds: 10},
		Recap: config.RecapConfig{
			Accounts:     []string{testAccount},
			WindowHours:  24,
			TradeListCap: 20,
			Concurrency:  2,
		},
		Filter: config.FilterConfig{Enabled: true, MaxTradesPerDay: 500, MinTradesPerDay: 1},
		Notify: config.NotifyConfig{
			StartupMessage:    true,
			CompletionMessage: true,
			BotSummary:        true,
			TraderURL:         "https://hyperdash.info/trader/",
		},
		Schedule: config.ScheduleConfig{Interval: "1d"},
	}
}

func TestApp_RunOnce(t *testing.T) {
	cfg := testConfig(t)
	n := &captureNotifier{}
	app, err := NewApp(cfg, WithDataSource(stubSource{}), WithNotifier(n))
	require.NoError(t, err)
	app.Summary = nil

	require.NoError(t, app.Run(context.Background()))

	require.Len(t, n.msgs, 3)
	assert.Contains(t, n.msgs[1], "OPEN LONG")
	assert.Contains(t, n.msgs[1], "+$40.00")
	assert.Contains(t, n.msgs[2], "Sent: 1")

	st, err := sqlite.NewSqliteStore(cfg.App.StateDBPath)
	require.NoError(t, err)
	defer st.Close()
	last, err := st.Runs().Last(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, model.ScanTypeOnce, last.ScanType)
	assert.Equal(t, 1, last.Sent)
	assert.Equal(t, 1, last.TotalTrades)
}

func TestApp_DaemonStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.Mode = config.ModeDaemon
	cfg.App.HTTPAddr = "127.0.0.1:0"
	cfg.Schedule.RunImmediately = true

	n := &captureNotifier{}
	app, err := NewApp(cfg, WithDataSource(stubSource{}), WithNotifier(n))
	require.NoError(t, err)
	app.Summary = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		n.mu.Lock()
		defer n.mu.Unlock()
		return len(n.msgs) >= 3
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestStartupSummary_MasksToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notify.Telegram = config.TelegramConfig{Enabled: true, BotToken: "123456:SECRETTOKEN", ChatID: "-100"}

	var buf bytes.Buffer
	NewStartupSummary(cfg).Fprint(&buf)
	out := buf.String()

	assert.Contains(t, out, "STARTUP SUMMARY")
	assert.Contains(t, out, "token=****OKEN")
	assert.NotContains(t, out, "SECRETTOKEN")
	assert.Contains(t, out, "0x1111...1111")
	assert.Contains(t, out, "机器人过滤: [1, 500]")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "-", maskSecret(" "))
	assert.Equal(t, "****", maskSecret("abc"))
	assert.Equal(t, "****wxyz", maskSecret("abcdwxyz"))
}
