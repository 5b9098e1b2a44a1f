package config

import "strings"

const (
	ModeOnce   = "once"
	ModeDaemon = "daemon"
)

// Config 是 hlrecap 的主配置载体。
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Hyperliquid HyperliquidConfig `mapstructure:"hyperliquid"`
	Recap       RecapConfig       `mapstructure:"recap"`
	Filter      FilterConfig      `mapstructure:"filter"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Schedule    ScheduleConfig    `mapstructure:"schedule"`
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	LogPath     string `mapstructure:"log_path"`
	// LogMaxBytes 超过后滚动日志文件；LogBackupCount 为保留的历史文件数。
	LogMaxBytes    int64 `mapstructure:"log_max_bytes"`
	LogBackupCount int   `mapstructure:"log_backup_count"`
	Mode        string `mapstructure:"mode"`
	HTTPAddr    string `mapstructure:"http_addr"`
	StateDBPath string `mapstructure:"state_db_path"`
}

// HyperliquidConfig 描述 /info 接口的访问与重试策略。
type HyperliquidConfig struct {
	APIURL                 string `mapstructure:"api_url"`
	TimeoutSeconds         int    `mapstructure:"timeout_seconds"`
	MaxRetries             int    `mapstructure:"max_retries"`
	RetryDelaySeconds      int    `mapstructure:"retry_delay_seconds"`
	BreakerThreshold       int    `mapstructure:"breaker_threshold"`
	BreakerCooldownSeconds int    `mapstructure:"breaker_cooldown_seconds"`
}

type RecapConfig struct {
	Accounts     []string `mapstructure:"accounts"`
	WindowHours  int      `mapstructure:"window_hours"`
	TradeListCap int      `mapstructure:"trade_list_cap"`
	Concurrency  int      `mapstructure:"concurrency"`
}

// FilterConfig 控制机器人账户过滤阈值，两端均为闭区间。
type FilterConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxTradesPerDay int  `mapstructure:"max_trades_per_day"`
	MinTradesPerDay int  `mapstructure:"min_trades_per_day"`
}

type NotifyConfig struct {
	Telegram          TelegramConfig `mapstructure:"telegram"`
	StartupMessage    bool           `mapstructure:"startup_message"`
	CompletionMessage bool           `mapstructure:"completion_message"`
	BotSummary        bool           `mapstructure:"bot_summary"`
	TraderURL         string         `mapstructure:"trader_url"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIURL   string `mapstructure:"api_url"`
}

// ScheduleConfig 仅在 daemon 模式下生效。
type ScheduleConfig struct {
	Interval       string `mapstructure:"interval"`
	OffsetSeconds  int    `mapstructure:"offset_seconds"`
	RunImmediately bool   `mapstructure:"run_immediately"`
}

// keySet 用于追踪配置文件或环境变量中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
