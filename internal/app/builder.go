package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hlrecap/internal/config"
	"hlrecap/internal/gateway/hyperliquid"
	"hlrecap/internal/gateway/notifier"
	"hlrecap/internal/logger"
	"hlrecap/internal/recap"
	"hlrecap/internal/runner"
	"hlrecap/internal/store"
	"hlrecap/internal/store/sqlite"
	adminhttp "hlrecap/internal/transport/http/admin"
)

type AppBuilder struct {
	cfg *config.Config

	sourceFn   func(config.HyperliquidConfig) (runner.DataSource, error)
	notifierFn func(config.NotifyConfig) (notifier.TextNotifier, error)
	storeFn    func(path string) (store.Store, error)
}

type AppBuilderOption func(*AppBuilder)

// WithDataSource replaces the Hyperliquid client.
func WithDataSource(src runner.DataSource) AppBuilderOption {
	return func(b *AppBuilder) {
		b.sourceFn = func(config.HyperliquidConfig) (runner.DataSource, error) { return src, nil }
	}
}

// WithNotifier replaces the Telegram/log notifier.
func WithNotifier(n notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) {
		b.notifierFn = func(config.NotifyConfig) (notifier.TextNotifier, error) { return n, nil }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		sourceFn:   buildHyperliquidSource,
		notifierFn: buildNotifier,
		storeFn:    buildRunStore,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b == nil || b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	src, err := b.sourceFn(cfg.Hyperliquid)
	if err != nil {
		return nil, fmt.Errorf("init hyperliquid client: %w", err)
	}
	notify, err := b.notifierFn(cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("init notifier: %w", err)
	}

	var st store.Store
	if path := strings.TrimSpace(cfg.App.StateDBPath); path != "" {
		st, err = b.storeFn(path)
		if err != nil {
			if cfg.App.Mode == config.ModeDaemon {
				return nil, fmt.Errorf("open state db: %w", err)
			}
			logger.Warnf("打开运行记录数据库失败，本次运行不保存状态: %v", err)
			st = nil
		}
	}

	rcfg := runner.Config{
		Accounts:          cfg.Recap.Accounts,
		Options:           recapOptions(cfg),
		Concurrency:       cfg.Recap.Concurrency,
		Source:            src,
		Notifier:          notify,
		Renderer:          notifier.Renderer{TraderURL: cfg.Notify.TraderURL},
		StartupMessage:    cfg.Notify.StartupMessage,
		CompletionMessage: cfg.Notify.CompletionMessage,
		BotSummary:        cfg.Notify.BotSummary,
	}
	if st != nil {
		rcfg.Runs = st.Runs()
	}
	run, err := runner.New(rcfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:     cfg,
		runner:  run,
		store:   st,
		Summary: NewStartupSummary(cfg),
	}
	if cfg.App.Mode == config.ModeDaemon {
		srvCfg := adminhttp.ServerConfig{Addr: cfg.App.HTTPAddr, Trigger: run}
		if st != nil {
			srvCfg.Runs = st.Runs()
		}
		srv, err := adminhttp.NewServer(srvCfg)
		if err != nil {
			return nil, err
		}
		app.http = srv
	}
	return app, nil
}

func recapOptions(cfg *config.Config) recap.Options {
	return recap.Options{
		WindowHours:  cfg.Recap.WindowHours,
		TradeListCap: cfg.Recap.TradeListCap,
		Filter: recap.BotFilter{
			Enabled:         cfg.Filter.Enabled,
			MaxTradesPerDay: cfg.Filter.MaxTradesPerDay,
			MinTradesPerDay: cfg.Filter.MinTradesPerDay,
		},
	}
}

func buildHyperliquidSource(cfg config.HyperliquidConfig) (runner.DataSource, error) {
	return hyperliquid.NewClient(hyperliquid.Config{
		BaseURL:          cfg.APIURL,
		Timeout:          time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries:       cfg.MaxRetries,
		RetryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  time.Duration(cfg.BreakerCooldownSeconds) * time.Second,
	})
}

func buildNotifier(cfg config.NotifyConfig) (notifier.TextNotifier, error) {
	if !cfg.Telegram.Enabled {
		logger.Warnf("Telegram 未启用，回顾消息仅写入日志")
		return notifier.LogNotifier{}, nil
	}
	return notifier.NewTelegram(notifier.TelegramConfig{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		APIURL:   cfg.Telegram.APIURL,
	})
}

func buildRunStore(path string) (store.Store, error) {
	return sqlite.NewSqliteStore(path)
}
