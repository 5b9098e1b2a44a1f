// Package convert provides type conversion utilities for exchange payloads.
package convert

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Decimal parses a JSON value that may be a number or a numeric string.
// Returns false for missing, empty or unparseable values.
func Decimal(r gjson.Result) (decimal.Decimal, bool) {
	if !r.Exists() {
		return decimal.Zero, false
	}
	switch r.Type {
	case gjson.Number:
		if raw := strings.TrimSpace(r.Raw); raw != "" {
			if d, err := decimal.NewFromString(raw); err == nil {
				return d, true
			}
		}
		return FromFloat(r.Num)
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// DecimalOrZero is Decimal without the presence flag.
func DecimalOrZero(r gjson.Result) decimal.Decimal {
	d, _ := Decimal(r)
	return d
}

// FromFloat guards against NaN and Inf before converting.
func FromFloat(v float64) (decimal.Decimal, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(v), true
}

// UnixMillis converts an epoch-milliseconds JSON value to UTC time.
// Missing or non-positive values yield the zero time.
func UnixMillis(r gjson.Result) time.Time {
	if !r.Exists() {
		return time.Time{}
	}
	ms := r.Int()
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
