package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"hlrecap/internal/recap"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	headerTimeLayout  = "Jan 02, 15:04 UTC"
	startupTimeLayout = "Jan 02, 2006 15:04 UTC"
	tradeTimeLayout   = "15:04 UTC"
)

// Renderer 负责把回顾结果渲染为 Telegram HTML。
type Renderer struct {
	// TraderURL is prefixed to the full address to build profile links.
	TraderURL string
}

// Recap renders the per-account message.
func (r Renderer) Recap(rc recap.AccountRecap) string {
	window := windowLabel(rc)
	lines := []string{
		fmt.Sprintf("<b>📊 %s Recap: %s</b>", window, r.accountLink(rc.Account)),
		fmt.Sprintf("<i>%s</i>", rc.WindowEnd.UTC().Format(headerTimeLayout)),
		"",
		fmt.Sprintf("%s <b>Overall P&amp;L:</b> %s", pick(rc.UnrealizedPnl, "🟢", "🔴"), signedUSD(rc.UnrealizedPnl, 2)),
		fmt.Sprintf("%s <b>%s P&amp;L:</b> %s", pick(rc.RealizedPnl, "📈", "📉"), window, signedUSD(rc.RealizedPnl, 2)),
		fmt.Sprintf("📝 <b>Trades:</b> %d | <b>Positions:</b> %d", rc.TradeCount, rc.PositionCount),
		"",
	}

	if rc.TradeCount == 0 {
		lines = append(lines, fmt.Sprintf("💤 <i>No trades in the last %s</i>", windowPhrase(rc)))
		return strings.Join(lines, "\n")
	}

	hidden := rc.HiddenTrades()
	if hidden > 0 {
		lines = append(lines,
			fmt.Sprintf("<b>━━━ LATEST %d TRADES ━━━</b>", len(rc.Trades)),
			fmt.Sprintf("<i>Showing %d of %d total</i>", len(rc.Trades), rc.TradeCount),
		)
	} else {
		lines = append(lines, "<b>━━━ TRADES ━━━</b>")
	}
	lines = append(lines, "")
	for _, tr := range rc.Trades {
		lines = append(lines, formatTrade(tr))
	}
	if hidden > 0 {
		lines = append(lines, "", fmt.Sprintf("<i>... and %d more trades</i>", hidden))
	}
	return strings.Join(lines, "\n")
}

// BotSummary condenses the accounts the filter flagged as automated, best
// 24h P&L first.
func (r Renderer) BotSummary(bots []recap.AccountRecap, at time.Time) string {
	if len(bots) == 0 {
		return ""
	}
	sorted := make([]recap.AccountRecap, len(bots))
	copy(sorted, bots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RealizedPnl.GreaterThan(sorted[j].RealizedPnl)
	})

	totalTrades := 0
	totalDaily, totalOverall := decimal.Zero, decimal.Zero
	for _, b := range sorted {
		totalTrades += b.TradeCount
		totalDaily = totalDaily.Add(b.RealizedPnl)
		totalOverall = totalOverall.Add(b.UnrealizedPnl)
	}

	lines := []string{
		"<b>🤖 Bot Traders Summary</b>",
		fmt.Sprintf("<i>%s</i>", at.UTC().Format(headerTimeLayout)),
		"",
		fmt.Sprintf("<b>%d automated trading wallets</b>", len(sorted)),
		"",
		fmt.Sprintf("%s <b>Combined Overall P&amp;L:</b> %s", pick(totalOverall, "🟢", "🔴"), signedUSD(totalOverall, 0)),
		fmt.Sprintf("%s <b>Combined 24H P&amp;L:</b> %s", pick(totalDaily, "📈", "📉"), signedUSD(totalDaily, 0)),
		fmt.Sprintf("📊 <b>Total Trades:</b> %s", humanize.Comma(int64(totalTrades))),
		"",
		"<b>━━━ INDIVIDUAL BOTS ━━━</b>",
		"",
	}
	for _, b := range sorted {
		lines = append(lines, fmt.Sprintf("%s %s\n   Trades: %s | 24H: %s",
			pick(b.RealizedPnl, "💚", "💔"),
			r.accountLink(b.Account),
			humanize.Comma(int64(b.TradeCount)),
			signedUSD(b.RealizedPnl, 0),
		))
	}
	return strings.Join(lines, "\n")
}

// Startup announces the beginning of a run.
func (r Renderer) Startup(accounts int, at time.Time) string {
	return fmt.Sprintf("🚀 <b>Hyperliquid 24H Tracker Started</b>\n<i>%s</i>\n\nGenerating 24-hour recaps for %d tracked wallets...",
		at.UTC().Format(startupTimeLayout), accounts)
}

// CompletionStats are the counters reported at the end of a run.
type CompletionStats struct {
	Accounts    int
	Sent        int
	Bots        int
	Filtered    int
	Failed      int
	TotalTrades int
}

// Completion summarises a finished run.
func (r Renderer) Completion(s CompletionStats) string {
	lines := []string{
		"✅ <b>Recap Complete</b>",
		"",
		fmt.Sprintf("Processed %d wallets", s.Accounts),
		fmt.Sprintf("Total trades: %s", humanize.Comma(int64(s.TotalTrades))),
		fmt.Sprintf("Sent: %d | Bots: %d | Inactive: %d | Failed: %d", s.Sent, s.Bots, s.Filtered, s.Failed),
	}
	return strings.Join(lines, "\n")
}

func (r Renderer) accountLink(addr string) string {
	short := html.EscapeString(ShortAddress(addr))
	base := strings.TrimSpace(r.TraderURL)
	if base == "" {
		return short
	}
	return fmt.Sprintf("<a href='%s%s'>%s</a>", html.EscapeString(base), html.EscapeString(addr), short)
}

func formatTrade(tr recap.Trade) string {
	pnl := ""
	if !tr.ClosedPnl.IsZero() {
		pnl = " | P&amp;L: " + signedUSD(tr.ClosedPnl, 2)
	}
	return fmt.Sprintf("%s <b>%s</b> %s\n   %s @ %s%s\n   <i>%s</i>",
		tradeEmoji(tr),
		html.EscapeString(tr.Coin),
		tradeLabel(tr),
		usd(tr.Value, 0),
		price(tr.Price),
		pnl,
		tr.Time.UTC().Format(tradeTimeLayout),
	)
}

func tradeLabel(tr recap.Trade) string {
	label := tr.Action.Label()
	if tr.Action == recap.ActionReduce && tr.PriorSide != recap.SideNone {
		label += " " + tr.PriorSide.Upper()
	}
	if tr.Flipped {
		label += " (flip)"
	}
	return label
}

func tradeEmoji(tr recap.Trade) string {
	if tr.Fallback {
		return "🔵"
	}
	switch tr.Action {
	case recap.ActionOpenLong:
		return "🟢"
	case recap.ActionOpenShort:
		return "🔴"
	case recap.ActionCloseLong:
		return "✅"
	case recap.ActionCloseShort:
		return "❌"
	case recap.ActionAddLong:
		return "📈"
	case recap.ActionAddShort:
		return "📉"
	default:
		return "📊"
	}
}

// ShortAddress renders 0x1234...abcd.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func windowLabel(rc recap.AccountRecap) string {
	return fmt.Sprintf("%dH", windowHours(rc))
}

func windowPhrase(rc recap.AccountRecap) string {
	h := windowHours(rc)
	if h == 1 {
		return "hour"
	}
	return fmt.Sprintf("%d hours", h)
}

func windowHours(rc recap.AccountRecap) int {
	h := int(rc.WindowEnd.Sub(rc.WindowStart).Hours())
	if h <= 0 {
		return recap.DefaultWindowHours
	}
	return h
}

func pick(d decimal.Decimal, nonNegative, negative string) string {
	if d.IsNegative() {
		return negative
	}
	return nonNegative
}

func signedUSD(d decimal.Decimal, digits int) string {
	if d.IsNegative() {
		return "-" + usd(d, digits)
	}
	return "+" + usd(d, digits)
}

// usd formats |d| as $1,234.56 (digits is 0 or 2).
func usd(d decimal.Decimal, digits int) string {
	f, _ := d.Abs().Float64()
	if digits <= 0 {
		return "$" + humanize.FormatFloat("#,###.", f)
	}
	return "$" + humanize.FormatFloat("#,###.##", f)
}

func price(d decimal.Decimal) string {
	if d.Abs().LessThan(decimal.NewFromInt(1)) {
		return "$" + d.Abs().StringFixed(4)
	}
	return usd(d, 2)
}
