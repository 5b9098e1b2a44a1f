package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"hlrecap/internal/config"
	"hlrecap/internal/gateway/notifier"
)

type StartupSummary struct {
	Mode     string
	Accounts []string
	APIURL   string
	Recap    RecapSummary
	Filter   config.FilterConfig
	Notify   NotifySummary
	Schedule config.ScheduleConfig
	HTTPAddr string
	StateDB  string
}

type RecapSummary struct {
	WindowHours  int
	TradeListCap int
	Concurrency  int
}

type NotifySummary struct {
	Telegram bool
	BotToken string
	ChatID   string
	Startup  bool
	Complete bool
	BotRecap bool
}

func NewStartupSummary(cfg *config.Config) *StartupSummary {
	if cfg == nil {
		return nil
	}
	return &StartupSummary{
		Mode:     cfg.App.Mode,
		Accounts: cfg.Recap.Accounts,
		APIURL:   cfg.Hyperliquid.APIURL,
		Recap: RecapSummary{
			WindowHours:  cfg.Recap.WindowHours,
			TradeListCap: cfg.Recap.TradeListCap,
			Concurrency:  cfg.Recap.Concurrency,
		},
		Filter: cfg.Filter,
		Notify: NotifySummary{
			Telegram: cfg.Notify.Telegram.Enabled,
			BotToken: maskSecret(cfg.Notify.Telegram.BotToken),
			ChatID:   cfg.Notify.Telegram.ChatID,
			Startup:  cfg.Notify.StartupMessage,
			Complete: cfg.Notify.CompletionMessage,
			BotRecap: cfg.Notify.BotSummary,
		},
		Schedule: cfg.Schedule,
		HTTPAddr: cfg.App.HTTPAddr,
		StateDB:  cfg.App.StateDBPath,
	}
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	if s == nil {
		return
	}
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[运行模式 (MODE)]")
	fmt.Fprintf(w, "  模式: %s\n", s.Mode)
	if s.Mode == config.ModeDaemon {
		fmt.Fprintf(w, "  调度周期: %s (offset=%ds, 立即执行=%v)\n", s.Schedule.Interval, s.Schedule.OffsetSeconds, s.Schedule.RunImmediately)
		fmt.Fprintf(w, "  管理接口: %s\n", formatValue(s.HTTPAddr))
	}
	fmt.Fprintf(w, "  状态数据库: %s\n", formatValue(s.StateDB))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[跟踪账户 (ACCOUNTS)]")
	if len(s.Accounts) == 0 {
		fmt.Fprintln(w, "  (无配置)")
	}
	for _, acct := range s.Accounts {
		fmt.Fprintf(w, "  - %s\n", notifier.ShortAddress(acct))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[回顾参数 (RECAP)]")
	fmt.Fprintf(w, "  数据源: %s\n", s.APIURL)
	fmt.Fprintf(w, "  时间窗口: %dh\n", s.Recap.WindowHours)
	fmt.Fprintf(w, "  成交列表上限: %d\n", s.Recap.TradeListCap)
	fmt.Fprintf(w, "  并发: %d\n", s.Recap.Concurrency)
	if s.Filter.Enabled {
		fmt.Fprintf(w, "  机器人过滤: [%d, %d] 笔/天\n", s.Filter.MinTradesPerDay, s.Filter.MaxTradesPerDay)
	} else {
		fmt.Fprintln(w, "  机器人过滤: 关闭")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[通知 (NOTIFY)]")
	if s.Notify.Telegram {
		fmt.Fprintf(w, "  Telegram: chat=%s token=%s\n", s.Notify.ChatID, s.Notify.BotToken)
	} else {
		fmt.Fprintln(w, "  Telegram: 关闭（仅日志）")
	}
	fmt.Fprintf(w, "  启动消息=%v 完成消息=%v 机器人汇总=%v\n", s.Notify.Startup, s.Notify.Complete, s.Notify.BotRecap)
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

// maskSecret keeps the last four characters.
func maskSecret(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

func formatValue(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
