package hyperliquid

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hlrecap/internal/logger"
	"hlrecap/internal/pkg/convert"
	"hlrecap/internal/recap"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	// userFillsByTime returns at most this many fills per call.
	fillsPageSize = 2000
	maxFillPages  = 10
)

// FetchPositions returns the open perpetual positions of addr.
func (c *Client) FetchPositions(ctx context.Context, addr string) ([]recap.RawPosition, error) {
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}
	res, err := c.info(ctx, map[string]any{"type": "clearinghouseState", "user": addr})
	if err != nil {
		return nil, fmt.Errorf("fetch positions for %s: %w", addr, err)
	}
	positions := parsePositions(res)
	coins := make([]*string, len(positions))
	for i := range positions {
		coins[i] = &positions[i].Coin
	}
	c.resolveAll(ctx, coins)
	return positions, nil
}

// FetchFills returns the fills of addr since the given time, oldest first.
func (c *Client) FetchFills(ctx context.Context, addr string, since time.Time) ([]recap.RawFill, error) {
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}
	var out []recap.RawFill
	start := since.UnixMilli()
	// Each page after the first restarts at the previous page's last
	// millisecond; fills already taken from that millisecond are skipped.
	seen := make(map[string]struct{})
	for page := 0; page < maxFillPages; page++ {
		res, err := c.info(ctx, map[string]any{
			"type":            "userFillsByTime",
			"user":            addr,
			"startTime":       start,
			"aggregateByTime": true,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch fills for %s: %w", addr, err)
		}
		batch := res.Array()
		fresh := make([]gjson.Result, 0, len(batch))
		for _, item := range batch {
			if _, dup := seen[fillKey(item)]; !dup {
				fresh = append(fresh, item)
			}
		}
		out = append(out, parseFills(fresh)...)
		if len(batch) < fillsPageSize {
			break
		}
		last := batch[len(batch)-1].Get("time").Int()
		if last < start || len(fresh) == 0 {
			logger.Warnf("hyperliquid: %s fill paging stalled at %d, list may be incomplete", addr, last)
			break
		}
		if last != start {
			seen = make(map[string]struct{})
		}
		for _, item := range batch {
			if item.Get("time").Int() == last {
				seen[fillKey(item)] = struct{}{}
			}
		}
		start = last
		if page == maxFillPages-1 {
			logger.Warnf("hyperliquid: %s has more than %d fills since %s, list truncated",
				addr, fillsPageSize*maxFillPages, since.UTC().Format(time.RFC3339))
		}
	}
	coins := make([]*string, len(out))
	for i := range out {
		coins[i] = &out[i].Coin
	}
	c.resolveAll(ctx, coins)
	return out, nil
}

// resolveAll rewrites "@N" names in place with a single meta lookup.
func (c *Client) resolveAll(ctx context.Context, names []*string) {
	pending := false
	for _, n := range names {
		if strings.HasPrefix(*n, "@") {
			pending = true
			break
		}
	}
	if !pending {
		return
	}
	assets, err := c.assetNames(ctx)
	if err != nil {
		logger.Warnf("hyperliquid: asset mapping unavailable: %v", err)
		return
	}
	for _, n := range names {
		if resolved, ok := assets[*n]; ok {
			*n = resolved
		}
	}
}

func (c *Client) assetNames(ctx context.Context) (map[string]string, error) {
	c.assetsMu.Lock()
	defer c.assetsMu.Unlock()
	if c.assets != nil {
		return c.assets, nil
	}
	res, err := c.info(ctx, map[string]any{"type": "meta"})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string)
	res.Get("universe").ForEach(func(key, value gjson.Result) bool {
		id := fmt.Sprintf("@%d", key.Int())
		if name := strings.TrimSpace(value.Get("name").String()); name != "" {
			names[id] = name
		}
		return true
	})
	logger.Debugf("hyperliquid: loaded %d asset names", len(names))
	c.assets = names
	return names, nil
}

// fillKey identifies a fill across pages. The trade id is preferred; the
// hash alone is shared by every fill of one order.
func fillKey(item gjson.Result) string {
	if tid := item.Get("tid"); tid.Exists() {
		return "tid:" + tid.Raw
	}
	return strings.Join([]string{
		item.Get("hash").String(),
		item.Get("time").Raw,
		item.Get("coin").String(),
		item.Get("side").String(),
		item.Get("px").String(),
		item.Get("sz").String(),
		item.Get("startPosition").String(),
	}, "|")
}

func parsePositions(state gjson.Result) []recap.RawPosition {
	items := state.Get("assetPositions").Array()
	out := make([]recap.RawPosition, 0, len(items))
	for _, item := range items {
		pos := item.Get("position")
		szi, ok := convert.Decimal(pos.Get("szi"))
		if !ok || szi.IsZero() {
			continue
		}
		p := recap.RawPosition{
			Coin:             strings.TrimSpace(pos.Get("coin").String()),
			Side:             recap.SideLong,
			Size:             szi.Abs(),
			EntryPrice:       convert.DecimalOrZero(pos.Get("entryPx")),
			PositionValue:    convert.DecimalOrZero(pos.Get("positionValue")),
			UnrealizedPnl:    convert.DecimalOrZero(pos.Get("unrealizedPnl")),
			Leverage:         convert.DecimalOrZero(pos.Get("leverage.value")),
			LiquidationPrice: convert.DecimalOrZero(pos.Get("liquidationPx")),
			MarginUsed:       convert.DecimalOrZero(pos.Get("marginUsed")),
		}
		if szi.IsNegative() {
			p.Side = recap.SideShort
		}
		p.MarkPrice = markPrice(p)
		out = append(out, p)
	}
	return out
}

func markPrice(p recap.RawPosition) decimal.Decimal {
	if p.Size.IsZero() || p.PositionValue.IsZero() {
		return p.EntryPrice
	}
	return p.PositionValue.Div(p.Size).Abs()
}

func parseFills(items []gjson.Result) []recap.RawFill {
	out := make([]recap.RawFill, 0, len(items))
	for _, item := range items {
		f := recap.RawFill{
			Coin:      strings.TrimSpace(item.Get("coin").String()),
			Side:      recap.FillSide(strings.ToUpper(strings.TrimSpace(item.Get("side").String()))),
			Size:      convert.DecimalOrZero(item.Get("sz")),
			Price:     convert.DecimalOrZero(item.Get("px")),
			Time:      convert.UnixMillis(item.Get("time")),
			ClosedPnl: convert.DecimalOrZero(item.Get("closedPnl")),
			Fee:       convert.DecimalOrZero(item.Get("fee")),
			Dir:       strings.TrimSpace(item.Get("dir").String()),
			Hash:      item.Get("hash").String(),
		}
		if start, ok := convert.Decimal(item.Get("startPosition")); ok {
			f.StartPosition = decimal.NewNullDecimal(start)
		}
		out = append(out, f)
	}
	return out
}
