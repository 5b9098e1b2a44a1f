package recap

import "time"

const (
	DefaultWindowHours  = 24
	DefaultTradeListCap = 20
)

// Options carries the per-run engine settings.
type Options struct {
	WindowHours  int
	TradeListCap int
	Filter       BotFilter
}

// DefaultOptions matches the stock 24h recap.
func DefaultOptions() Options {
	return Options{
		WindowHours:  DefaultWindowHours,
		TradeListCap: DefaultTradeListCap,
		Filter:       DefaultBotFilter(),
	}
}

// Window returns the closed interval the recap covers when evaluated at now.
func (o Options) Window(now time.Time) (time.Time, time.Time) {
	hours := o.WindowHours
	if hours <= 0 {
		hours = DefaultWindowHours
	}
	return now.Add(-time.Duration(hours) * time.Hour), now
}

// Build assembles the recap of one account. It never fails: malformed records
// are skipped and counted, empty inputs produce zero aggregates.
func Build(account string, positions []RawPosition, fills []RawFill, now time.Time, opts Options) AccountRecap {
	ps := SummarizePositions(positions)
	start, end := opts.Window(now)
	w := Aggregate(fills, start, end, opts.TradeListCap)
	verdict := opts.Filter.Evaluate(w.TradeCount)

	return AccountRecap{
		Account:          account,
		UnrealizedPnl:    ps.UnrealizedPnl,
		RealizedPnl:      w.RealizedPnl,
		TradeCount:       w.TradeCount,
		PositionCount:    ps.Count,
		Trades:           w.Trades,
		Included:         verdict == VerdictIncluded,
		Verdict:          verdict,
		WindowStart:      start,
		WindowEnd:        end,
		SkippedFills:     w.Skipped,
		SkippedPositions: ps.Skipped,
		FallbackFills:    w.Fallbacks,
	}
}
