package recap

const (
	DefaultMaxTradesPerDay = 500
	DefaultMinTradesPerDay = 1
)

// BotFilter suppresses accounts whose trade count looks automated or idle.
type BotFilter struct {
	Enabled         bool
	MaxTradesPerDay int
	MinTradesPerDay int
}

// DefaultBotFilter returns the enabled filter with the stock thresholds.
func DefaultBotFilter() BotFilter {
	return BotFilter{
		Enabled:         true,
		MaxTradesPerDay: DefaultMaxTradesPerDay,
		MinTradesPerDay: DefaultMinTradesPerDay,
	}
}

// Evaluate reports why a trade count is kept or suppressed. Both bounds are
// inclusive: exactly MaxTradesPerDay or MinTradesPerDay trades is kept.
func (f BotFilter) Evaluate(tradeCount int) Verdict {
	if !f.Enabled {
		return VerdictIncluded
	}
	if tradeCount > f.MaxTradesPerDay {
		return VerdictBot
	}
	if tradeCount < f.MinTradesPerDay {
		return VerdictInactive
	}
	return VerdictIncluded
}

func (f BotFilter) ShouldInclude(tradeCount int) bool {
	return f.Evaluate(tradeCount) == VerdictIncluded
}
