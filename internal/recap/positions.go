package recap

import "github.com/shopspring/decimal"

// PositionSummary aggregates the open positions of an account.
type PositionSummary struct {
	UnrealizedPnl decimal.Decimal
	Count         int
	Skipped       int
}

// SummarizePositions sums unrealized P&L over the well-formed positions.
func SummarizePositions(positions []RawPosition) PositionSummary {
	s := PositionSummary{UnrealizedPnl: decimal.Zero}
	for _, p := range positions {
		if !p.valid() {
			s.Skipped++
			continue
		}
		s.UnrealizedPnl = s.UnrealizedPnl.Add(p.UnrealizedPnl)
		s.Count++
	}
	return s
}
