package recap

import (
	"sort"
	"time"

	"hlrecap/internal/logger"

	"github.com/shopspring/decimal"
)

// Window holds the aggregates of the fills that fall inside [Start, End].
type Window struct {
	Start       time.Time
	End         time.Time
	TradeCount  int
	RealizedPnl decimal.Decimal
	// Trades is the most recent TradeCount entries, newest first, capped.
	Trades    []Trade
	Skipped   int
	Fallbacks int
}

// Aggregate classifies the fills inside the closed interval [start, end] and
// returns their count, realized P&L sum and the newest-first list truncated to
// listCap. Count and sum cover every in-window fill regardless of the cap.
// Malformed fills are skipped and counted.
func Aggregate(fills []RawFill, start, end time.Time, listCap int) Window {
	w := Window{Start: start, End: end, RealizedPnl: decimal.Zero, Trades: []Trade{}}
	if listCap < 0 {
		listCap = 0
	}

	inWindow := make([]Trade, 0, len(fills))
	for _, f := range fills {
		if !f.valid() {
			w.Skipped++
			continue
		}
		if f.Time.Before(start) || f.Time.After(end) {
			continue
		}
		c := ClassifyFill(f)
		if c.Fallback {
			w.Fallbacks++
			logger.Warnf("recap: unclassified fill coin=%s side=%s sz=%s start=%s dir=%q time=%s hash=%s",
				f.Coin, f.Side, f.Size, f.StartPosition.Decimal, f.Dir, f.Time.Format(time.RFC3339), f.Hash)
		}
		w.RealizedPnl = w.RealizedPnl.Add(f.ClosedPnl)
		inWindow = append(inWindow, newTrade(f, c))
	}
	w.TradeCount = len(inWindow)

	sort.SliceStable(inWindow, func(i, j int) bool {
		return inWindow[i].Time.After(inWindow[j].Time)
	})
	if len(inWindow) > listCap {
		inWindow = inWindow[:listCap]
	}
	w.Trades = append(w.Trades, inWindow...)
	return w
}

func newTrade(f RawFill, c Classification) Trade {
	return Trade{
		Coin:      f.Coin,
		Action:    c.Action,
		PriorSide: f.PriorSide(),
		Side:      f.Side,
		Size:      f.Size,
		Price:     f.Price,
		Value:     f.Price.Mul(f.Size),
		ClosedPnl: f.ClosedPnl,
		Time:      f.Time,
		Dir:       f.Dir,
		Hash:      f.Hash,
		Fallback:  c.Fallback,
		Flipped:   c.Flipped,
	}
}
