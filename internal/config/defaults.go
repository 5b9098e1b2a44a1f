package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppLogFormat      = "text"
	defaultAppLogMaxBytes    = 50 * 1024 * 1024
	defaultAppLogBackups     = 5
	defaultAppMode           = ModeOnce
	defaultAppHTTPAddr       = ":9992"
	defaultAppStateDB        = "data/hlrecap.db"
	defaultHyperliquidAPI    = "https://api.hyperliquid.xyz"
	defaultHLTimeout         = 10
	defaultHLMaxRetries      = 3
	defaultHLRetryDelay      = 5
	defaultHLBreakerFailures = 5
	defaultHLBreakerCooldown = 60
	defaultRecapWindowHours  = 24
	defaultRecapTradeCap     = 20
	defaultRecapConcurrency  = 4
	defaultFilterMaxTrades   = 500
	defaultFilterMinTrades   = 1
	defaultTraderURL         = "https://hyperdash.info/trader/"
	defaultScheduleInterval  = "1d"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Hyperliquid.applyDefaults(keys)
	c.Recap.applyDefaults(keys)
	c.Filter.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
	c.Schedule.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		fieldDefault{
			key:   "app.log_max_bytes",
			need:  func() bool { return a.LogMaxBytes <= 0 },
			apply: func() { a.LogMaxBytes = defaultAppLogMaxBytes },
		},
		fieldDefault{
			key:   "app.log_backup_count",
			need:  func() bool { return a.LogBackupCount <= 0 },
			apply: func() { a.LogBackupCount = defaultAppLogBackups },
		},
		stringFieldDefault("app.mode", &a.Mode, defaultAppMode),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.state_db_path", &a.StateDBPath, defaultAppStateDB),
	)
	a.Mode = strings.ToLower(strings.TrimSpace(a.Mode))
}

func (h *HyperliquidConfig) applyDefaults(keys keySet) {
	if h == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("hyperliquid.api_url", &h.APIURL, defaultHyperliquidAPI),
		fieldDefault{
			key:   "hyperliquid.timeout_seconds",
			need:  func() bool { return h.TimeoutSeconds <= 0 },
			apply: func() { h.TimeoutSeconds = defaultHLTimeout },
		},
		fieldDefault{
			key:   "hyperliquid.max_retries",
			need:  func() bool { return h.MaxRetries <= 0 },
			apply: func() { h.MaxRetries = defaultHLMaxRetries },
		},
		fieldDefault{
			key:   "hyperliquid.retry_delay_seconds",
			need:  func() bool { return h.RetryDelaySeconds <= 0 },
			apply: func() { h.RetryDelaySeconds = defaultHLRetryDelay },
		},
		fieldDefault{
			key:   "hyperliquid.breaker_threshold",
			need:  func() bool { return h.BreakerThreshold <= 0 },
			apply: func() { h.BreakerThreshold = defaultHLBreakerFailures },
		},
		fieldDefault{
			key:   "hyperliquid.breaker_cooldown_seconds",
			need:  func() bool { return h.BreakerCooldownSeconds <= 0 },
			apply: func() { h.BreakerCooldownSeconds = defaultHLBreakerCooldown },
		},
	)
	h.APIURL = strings.TrimRight(strings.TrimSpace(h.APIURL), "/")
}

func (r *RecapConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "recap.window_hours",
			need:  func() bool { return r.WindowHours <= 0 },
			apply: func() { r.WindowHours = defaultRecapWindowHours },
		},
		fieldDefault{
			key:   "recap.trade_list_cap",
			need:  func() bool { return r.TradeListCap <= 0 },
			apply: func() { r.TradeListCap = defaultRecapTradeCap },
		},
		fieldDefault{
			key:   "recap.concurrency",
			need:  func() bool { return r.Concurrency <= 0 },
			apply: func() { r.Concurrency = defaultRecapConcurrency },
		},
	)
	r.Accounts = normalizeAccounts(r.Accounts)
}

func (f *FilterConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("filter.enabled", &f.Enabled, true),
		fieldDefault{
			key:   "filter.max_trades_per_day",
			need:  func() bool { return f.MaxTradesPerDay <= 0 },
			apply: func() { f.MaxTradesPerDay = defaultFilterMaxTrades },
		},
		fieldDefault{
			key:   "filter.min_trades_per_day",
			need:  func() bool { return f.MinTradesPerDay <= 0 },
			apply: func() { f.MinTradesPerDay = defaultFilterMinTrades },
		},
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	tg := &n.Telegram
	applyFieldDefaults(keys,
		boolFieldDefault("notify.startup_message", &n.StartupMessage, true),
		boolFieldDefault("notify.completion_message", &n.CompletionMessage, true),
		boolFieldDefault("notify.bot_summary", &n.BotSummary, true),
		stringFieldDefault("notify.trader_url", &n.TraderURL, defaultTraderURL),
		fieldDefault{
			key:  "notify.telegram.enabled",
			need: func() bool { return !tg.Enabled },
			apply: func() {
				tg.Enabled = strings.TrimSpace(tg.BotToken) != "" && strings.TrimSpace(tg.ChatID) != ""
			},
		},
	)
	tg.BotToken = strings.TrimSpace(tg.BotToken)
	tg.ChatID = strings.TrimSpace(tg.ChatID)
}

func (s *ScheduleConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("schedule.interval", &s.Interval, defaultScheduleInterval),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

// normalizeAccounts 统一小写、去空白并按出现顺序去重；兼容逗号分隔的单个条目。
func normalizeAccounts(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, entry := range in {
		for _, addr := range strings.Split(entry, ",") {
			addr = strings.ToLower(strings.TrimSpace(addr))
			if addr == "" || seen[addr] {
				continue
			}
			seen[addr] = true
			out = append(out, addr)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
