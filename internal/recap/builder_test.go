package recap

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotFilter(t *testing.T) {
	f := DefaultBotFilter()

	assert.True(t, f.ShouldInclude(500))
	assert.False(t, f.ShouldInclude(501))
	assert.Equal(t, VerdictBot, f.Evaluate(501))
	assert.False(t, f.ShouldInclude(0))
	assert.Equal(t, VerdictInactive, f.Evaluate(0))
	assert.True(t, f.ShouldInclude(1))

	t.Run("disabled includes everything", func(t *testing.T) {
		off := BotFilter{Enabled: false, MaxTradesPerDay: 500, MinTradesPerDay: 1}
		for _, n := range []int{0, 1, 500, 10000} {
			assert.Equal(t, VerdictIncluded, off.Evaluate(n))
		}
	})

	t.Run("custom thresholds", func(t *testing.T) {
		custom := BotFilter{Enabled: true, MaxTradesPerDay: 10, MinTradesPerDay: 3}
		assert.Equal(t, VerdictInactive, custom.Evaluate(2))
		assert.Equal(t, VerdictIncluded, custom.Evaluate(3))
		assert.Equal(t, VerdictIncluded, custom.Evaluate(10))
		assert.Equal(t, VerdictBot, custom.Evaluate(11))
	})
}

func TestSummarizePositions(t *testing.T) {
	t.Run("sums unrealized pnl", func(t *testing.T) {
		positions := []RawPosition{
			{Coin: "BTC", Side: SideLong, Size: dec("0.5"), UnrealizedPnl: dec("120.25")},
			{Coin: "ETH", Side: SideShort, Size: dec("3"), UnrealizedPnl: dec("-20.25")},
		}
		s := SummarizePositions(positions)
		assert.Equal(t, "100", s.UnrealizedPnl.String())
		assert.Equal(t, 2, s.Count)
		assert.Zero(t, s.Skipped)
	})

	t.Run("empty set is zero", func(t *testing.T) {
		s := SummarizePositions(nil)
		assert.True(t, s.UnrealizedPnl.IsZero())
		assert.Zero(t, s.Count)
	})

	t.Run("skips malformed positions", func(t *testing.T) {
		positions := []RawPosition{
			{Coin: "", Side: SideLong, Size: dec("1"), UnrealizedPnl: dec("5")},
			{Coin: "SOL", Side: SideNone, Size: dec("1"), UnrealizedPnl: dec("5")},
			{Coin: "SOL", Side: SideLong, Size: dec("0"), UnrealizedPnl: dec("5")},
			{Coin: "SOL", Side: SideLong, Size: dec("2"), UnrealizedPnl: dec("7")},
		}
		s := SummarizePositions(positions)
		assert.Equal(t, "7", s.UnrealizedPnl.String())
		assert.Equal(t, 1, s.Count)
		assert.Equal(t, 3, s.Skipped)
	})
}

func TestBuild(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("empty account", func(t *testing.T) {
		r := Build("0xabc", nil, nil, now, DefaultOptions())
		assert.Equal(t, "0xabc", r.Account)
		assert.True(t, r.UnrealizedPnl.IsZero())
		assert.True(t, r.RealizedPnl.IsZero())
		assert.Zero(t, r.TradeCount)
		assert.Zero(t, r.PositionCount)
		assert.NotNil(t, r.Trades)
		assert.Empty(t, r.Trades)
		assert.False(t, r.Included)
		assert.Equal(t, VerdictInactive, r.Verdict)
		assert.Equal(t, now.Add(-24*time.Hour), r.WindowStart)
		assert.Equal(t, now, r.WindowEnd)
	})

	t.Run("open then close long", func(t *testing.T) {
		open := RawFill{
			Coin: "ETH", Side: FillBuy, Size: dec("1"), Price: dec("3000"),
			Time: now.Add(-2 * time.Hour), ClosedPnl: decimal.Zero,
			StartPosition: decimal.NewNullDecimal(decimal.Zero),
		}
		closeFill := RawFill{
			Coin: "ETH", Side: FillSell, Size: dec("1"), Price: dec("3100"),
			Time: now.Add(-1 * time.Hour), ClosedPnl: dec("100"),
			StartPosition: decimal.NewNullDecimal(dec("1")),
		}
		positions := []RawPosition{{Coin: "BTC", Side: SideLong, Size: dec("0.1"), UnrealizedPnl: dec("-12.5")}}

		r := Build("0xabc", positions, []RawFill{open, closeFill}, now, DefaultOptions())
		assert.Equal(t, 2, r.TradeCount)
		assert.Equal(t, "100", r.RealizedPnl.String())
		assert.Equal(t, "-12.5", r.UnrealizedPnl.String())
		assert.Equal(t, 1, r.PositionCount)
		require.Len(t, r.Trades, 2)
		assert.Equal(t, ActionCloseLong, r.Trades[0].Action)
		assert.Equal(t, now.Add(-1*time.Hour), r.Trades[0].Time)
		assert.Equal(t, ActionOpenLong, r.Trades[1].Action)
		assert.Equal(t, now.Add(-2*time.Hour), r.Trades[1].Time)
		assert.True(t, r.Included)
		assert.Equal(t, VerdictIncluded, r.Verdict)
	})

	t.Run("bot account is built but not included", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Filter.MaxTradesPerDay = 3
		opts.TradeListCap = 2
		var fills []RawFill
		for i := 0; i < 4; i++ {
			f := buy("1")
			f.Time = now.Add(-time.Duration(i+1) * time.Minute)
			f.StartPosition = decimal.NewNullDecimal(dec("1"))
			fills = append(fills, f)
		}
		r := Build("0xbot", nil, fills, now, opts)
		assert.Equal(t, 4, r.TradeCount)
		assert.Len(t, r.Trades, 2)
		assert.Equal(t, 2, r.HiddenTrades())
		assert.False(t, r.Included)
		assert.Equal(t, VerdictBot, r.Verdict)
	})

	t.Run("custom window", func(t *testing.T) {
		opts := DefaultOptions()
		opts.WindowHours = 1
		f := buy("1")
		f.Time = now.Add(-90 * time.Minute)
		r := Build("0xabc", nil, []RawFill{f}, now, opts)
		assert.Zero(t, r.TradeCount)
		assert.Equal(t, now.Add(-time.Hour), r.WindowStart)
	})
}
