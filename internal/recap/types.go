// Package recap turns raw exchange positions and fills into a per-account
// rolling-window trading summary. It does no I/O.
package recap

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PositionSide is the direction of an open position.
type PositionSide string

const (
	SideNone  PositionSide = ""
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

func (s PositionSide) Upper() string { return strings.ToUpper(string(s)) }

// FillSide is the taker/maker side reported on a fill: B buys, A sells.
type FillSide string

const (
	FillBuy  FillSide = "B"
	FillSell FillSide = "A"
)

// TradeAction is the classification of a single fill.
type TradeAction string

const (
	ActionOpenLong   TradeAction = "OPEN_LONG"
	ActionOpenShort  TradeAction = "OPEN_SHORT"
	ActionCloseLong  TradeAction = "CLOSE_LONG"
	ActionCloseShort TradeAction = "CLOSE_SHORT"
	ActionAddLong    TradeAction = "ADD_LONG"
	ActionAddShort   TradeAction = "ADD_SHORT"
	ActionReduce     TradeAction = "REDUCE"
)

// Label renders the action for humans, e.g. "OPEN LONG".
func (a TradeAction) Label() string {
	return strings.ReplaceAll(string(a), "_", " ")
}

// RawPosition is one open position as reported by the exchange.
type RawPosition struct {
	Coin             string
	Side             PositionSide
	Size             decimal.Decimal
	EntryPrice       decimal.Decimal
	MarkPrice        decimal.Decimal
	PositionValue    decimal.Decimal
	UnrealizedPnl    decimal.Decimal
	Leverage         decimal.Decimal
	LiquidationPrice decimal.Decimal
	MarginUsed       decimal.Decimal
}

func (p RawPosition) valid() bool {
	if strings.TrimSpace(p.Coin) == "" {
		return false
	}
	if p.Side != SideLong && p.Side != SideShort {
		return false
	}
	return p.Size.IsPositive()
}

// RawFill is one execution event. StartPosition is the signed position size
// before the fill (positive long, negative short); it is invalid when the
// exchange did not report it. Dir is the exchange's own direction label.
type RawFill struct {
	Coin          string
	Side          FillSide
	Size          decimal.Decimal
	Price         decimal.Decimal
	Time          time.Time
	ClosedPnl     decimal.Decimal
	StartPosition decimal.NullDecimal
	Fee           decimal.Decimal
	Dir           string
	Hash          string
}

// Delta is the signed size change caused by the fill.
func (f RawFill) Delta() decimal.Decimal {
	if f.Side == FillSell {
		return f.Size.Neg()
	}
	return f.Size
}

// PriorSide derives the position side before the fill from StartPosition.
func (f RawFill) PriorSide() PositionSide {
	if !f.StartPosition.Valid {
		return SideNone
	}
	switch f.StartPosition.Decimal.Sign() {
	case 1:
		return SideLong
	case -1:
		return SideShort
	default:
		return SideNone
	}
}

func (f RawFill) valid() bool {
	if strings.TrimSpace(f.Coin) == "" || f.Time.IsZero() {
		return false
	}
	if f.Side != FillBuy && f.Side != FillSell {
		return false
	}
	return f.Size.IsPositive()
}

// Trade is a classified fill ready for display.
type Trade struct {
	Coin      string
	Action    TradeAction
	PriorSide PositionSide
	Side      FillSide
	Size      decimal.Decimal
	Price     decimal.Decimal
	Value     decimal.Decimal
	ClosedPnl decimal.Decimal
	Time      time.Time
	Dir       string
	Hash      string
	// Fallback marks fills no classification rule matched.
	Fallback bool
	// Flipped marks fills that crossed zero; they are reported as a close of the prior side.
	Flipped bool
}

// Verdict is the outcome of the bot filter for one account.
type Verdict string

const (
	VerdictIncluded Verdict = "included"
	VerdictBot      Verdict = "bot"
	VerdictInactive Verdict = "inactive"
)

// AccountRecap is the per-account summary for one window.
type AccountRecap struct {
	Account       string
	UnrealizedPnl decimal.Decimal
	RealizedPnl   decimal.Decimal
	TradeCount    int
	PositionCount int
	Trades        []Trade
	Included      bool
	Verdict       Verdict
	WindowStart   time.Time
	WindowEnd     time.Time

	SkippedFills     int
	SkippedPositions int
	FallbackFills    int
}

// HiddenTrades is how many in-window trades did not make it into Trades.
func (r AccountRecap) HiddenTrades() int {
	if n := r.TradeCount - len(r.Trades); n > 0 {
		return n
	}
	return 0
}
