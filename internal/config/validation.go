package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"hlrecap/internal/scheduler"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Hyperliquid.validate(); err != nil {
		return err
	}
	if err := c.Recap.validate(); err != nil {
		return err
	}
	if err := c.Filter.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if c.App.Mode == ModeDaemon {
		if err := c.Schedule.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch a.Mode {
	case ModeOnce, ModeDaemon:
	default:
		return fmt.Errorf("app.mode must be %q or %q, got %q", ModeOnce, ModeDaemon, a.Mode)
	}
	if a.LogMaxBytes <= 0 {
		return fmt.Errorf("app.log_max_bytes must be > 0")
	}
	if a.LogBackupCount < 0 {
		return fmt.Errorf("app.log_backup_count must be >= 0")
	}
	if a.Mode == ModeDaemon && strings.TrimSpace(a.StateDBPath) == "" {
		return fmt.Errorf("app.state_db_path cannot be empty in daemon mode")
	}
	return nil
}

func (h *HyperliquidConfig) validate() error {
	if strings.TrimSpace(h.APIURL) == "" {
		return fmt.Errorf("hyperliquid.api_url cannot be empty")
	}
	if u, err := url.Parse(h.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("hyperliquid.api_url is not a valid URL: %s", h.APIURL)
	}
	if h.TimeoutSeconds <= 0 {
		return fmt.Errorf("hyperliquid.timeout_seconds must be > 0")
	}
	if h.MaxRetries < 0 {
		return fmt.Errorf("hyperliquid.max_retries must be >= 0")
	}
	if h.RetryDelaySeconds < 0 {
		return fmt.Errorf("hyperliquid.retry_delay_seconds must be >= 0")
	}
	return nil
}

func (r *RecapConfig) validate() error {
	if len(r.Accounts) == 0 {
		return fmt.Errorf("recap.accounts requires at least one address (or WALLET_ADDRESSES)")
	}
	var bad []string
	for _, addr := range r.Accounts {
		if !addressPattern.MatchString(addr) {
			bad = append(bad, addr)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("recap.accounts contains invalid addresses: %s", strings.Join(bad, ", "))
	}
	if r.WindowHours <= 0 {
		return fmt.Errorf("recap.window_hours must be > 0")
	}
	if r.TradeListCap < 0 {
		return fmt.Errorf("recap.trade_list_cap must be >= 0")
	}
	if r.Concurrency <= 0 {
		return fmt.Errorf("recap.concurrency must be > 0")
	}
	return nil
}

func (f *FilterConfig) validate() error {
	if !f.Enabled {
		return nil
	}
	if f.MinTradesPerDay < 0 {
		return fmt.Errorf("filter.min_trades_per_day must be >= 0")
	}
	if f.MaxTradesPerDay < f.MinTradesPerDay {
		return fmt.Errorf("filter.max_trades_per_day (%d) must be >= filter.min_trades_per_day (%d)",
			f.MaxTradesPerDay, f.MinTradesPerDay)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}

func (s *ScheduleConfig) validate() error {
	if _, ok := scheduler.ParseIntervalDuration(s.Interval); !ok {
		return fmt.Errorf("schedule.interval is invalid: %q", s.Interval)
	}
	if s.OffsetSeconds < 0 {
		return fmt.Errorf("schedule.offset_seconds must be >= 0")
	}
	return nil
}
