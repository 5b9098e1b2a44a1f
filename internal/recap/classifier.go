package recap

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Classification is the result of classifying one fill.
type Classification struct {
	Action   TradeAction
	Fallback bool
	Flipped  bool
}

var fallbackClassification = Classification{Action: ActionReduce, Fallback: true}

// Classify maps a fill onto a TradeAction given the absolute position size and
// side held before it. The result depends only on its inputs.
//
// A fill that takes the position through zero is reported as a close of the
// prior side with Flipped set. Fills that no rule covers (zero delta or a
// prior state that contradicts itself) come back as REDUCE with Fallback set.
func Classify(fill RawFill, priorSize decimal.Decimal, priorSide PositionSide) Classification {
	delta := fill.Delta()
	if delta.IsZero() || priorSize.IsNegative() {
		return fallbackClassification
	}

	if priorSize.IsZero() {
		if priorSide != SideNone {
			return fallbackClassification
		}
		if delta.IsPositive() {
			return Classification{Action: ActionOpenLong}
		}
		return Classification{Action: ActionOpenShort}
	}

	var signedPrior decimal.Decimal
	switch priorSide {
	case SideLong:
		signedPrior = priorSize
	case SideShort:
		signedPrior = priorSize.Neg()
	default:
		return fallbackClassification
	}

	resulting := signedPrior.Add(delta)
	switch {
	case resulting.IsZero():
		return Classification{Action: closeAction(priorSide)}
	case resulting.Sign() != signedPrior.Sign():
		return Classification{Action: closeAction(priorSide), Flipped: true}
	case resulting.Abs().GreaterThan(priorSize):
		return Classification{Action: addAction(priorSide)}
	default:
		return Classification{Action: ActionReduce}
	}
}

// ClassifyFill classifies a fill against the position it reports it started
// from. Without a start position only the exchange's direction label is left,
// which cannot tell an add from an open.
func ClassifyFill(fill RawFill) Classification {
	if fill.StartPosition.Valid {
		return Classify(fill, fill.StartPosition.Decimal.Abs(), fill.PriorSide())
	}
	return classifyDir(fill.Dir)
}

func classifyDir(dir string) Classification {
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "open long":
		return Classification{Action: ActionOpenLong}
	case "open short":
		return Classification{Action: ActionOpenShort}
	case "close long":
		return Classification{Action: ActionCloseLong}
	case "close short":
		return Classification{Action: ActionCloseShort}
	case "long > short":
		return Classification{Action: ActionCloseLong, Flipped: true}
	case "short > long":
		return Classification{Action: ActionCloseShort, Flipped: true}
	default:
		return fallbackClassification
	}
}

func closeAction(side PositionSide) TradeAction {
	if side == SideShort {
		return ActionCloseShort
	}
	return ActionCloseLong
}

func addAction(side PositionSide) TradeAction {
	if side == SideShort {
		return ActionAddShort
	}
	return ActionAddLong
}
