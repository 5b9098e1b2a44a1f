package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"hlrecap/internal/gateway/notifier"
	"hlrecap/internal/logger"
	"hlrecap/internal/recap"
	"hlrecap/internal/store"
	"hlrecap/internal/store/model"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("recap run already in progress")

const defaultConcurrency = 4

// DataSource 提供账户的持仓与成交原始数据。
type DataSource interface {
	FetchPositions(ctx context.Context, addr string) ([]recap.RawPosition, error)
	FetchFills(ctx context.Context, addr string, since time.Time) ([]recap.RawFill, error)
}

// Config 描述一次回顾运行所需的依赖与开关。
type Config struct {
	Accounts    []string
	Options     recap.Options
	Concurrency int

	Source   DataSource
	Notifier notifier.TextNotifier
	Renderer notifier.Renderer
	// Runs is optional; without it runs are not persisted.
	Runs store.RunRepository

	StartupMessage    bool
	CompletionMessage bool
	BotSummary        bool
}

// Runner executes recap runs. Runs never overlap.
type Runner struct {
	cfg     Config
	nowFn   func() time.Time
	running atomic.Bool
}

func New(cfg Config) (*Runner, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("runner requires a data source")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("runner requires a notifier")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Runner{cfg: cfg, nowFn: time.Now}, nil
}

// Running reports whether a run is currently active.
func (r *Runner) Running() bool {
	return r != nil && r.running.Load()
}

// AccountResult is the outcome for a single account.
type AccountResult struct {
	Account string             `json:"account"`
	Recap   recap.AccountRecap `json:"-"`
	Verdict recap.Verdict      `json:"verdict,omitempty"`
	Trades  int                `json:"trades"`
	Sent    bool               `json:"sent"`
	Error   string             `json:"error,omitempty"`

	err error
}

// RunReport summarises a finished run.
type RunReport struct {
	ID          string          `json:"id"`
	ScanType    model.ScanType  `json:"scan_type"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Accounts    int             `json:"accounts"`
	Sent        int             `json:"sent"`
	Filtered    int             `json:"filtered"`
	Bots        int             `json:"bots"`
	Failed      int             `json:"failed"`
	// TotalTrades counts trades of the recaps that were delivered.
	TotalTrades int             `json:"total_trades"`
	Results     []AccountResult `json:"results"`
}

// Run fetches every account, builds the recaps and delivers them in the
// configured account order. A failing account is counted and skipped.
func (r *Runner) Run(ctx context.Context, scan model.ScanType) (*RunReport, error) {
	if r == nil {
		return nil, fmt.Errorf("runner not initialized")
	}
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	now := r.nowFn().UTC()
	report := &RunReport{
		ID:        uuid.NewString(),
		ScanType:  scan,
		StartedAt: now,
		Accounts:  len(r.cfg.Accounts),
	}
	logger.Infof("开始回顾运行 id=%s scan=%s accounts=%d", report.ID, scan, report.Accounts)

	if r.cfg.StartupMessage {
		r.notify(ctx, "startup", r.cfg.Renderer.Startup(report.Accounts, now))
	}

	report.Results = r.collect(ctx, now)

	var bots []recap.AccountRecap
	for i := range report.Results {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := &report.Results[i]
		if res.err != nil {
			report.Failed++
			logger.Errorf("账户 %s 获取数据失败: %v", res.Account, res.err)
			continue
		}
		switch res.Verdict {
		case recap.VerdictBot:
			report.Bots++
			bots = append(bots, res.Recap)
			logger.Infof("账户 %s 判定为机器人 trades=%d", res.Account, res.Trades)
		case recap.VerdictInactive:
			report.Filtered++
			logger.Debugf("账户 %s 无活跃交易，跳过", res.Account)
		default:
			if err := r.cfg.Notifier.SendText(ctx, r.cfg.Renderer.Recap(res.Recap)); err != nil {
				res.Error = err.Error()
				report.Failed++
				logger.Errorf("账户 %s 推送失败: %v", res.Account, err)
				continue
			}
			res.Sent = true
			report.Sent++
			report.TotalTrades += res.Trades
		}
	}

	if r.cfg.BotSummary && len(bots) > 0 {
		r.notify(ctx, "bot summary", r.cfg.Renderer.BotSummary(bots, now))
	}
	if r.cfg.CompletionMessage {
		r.notify(ctx, "completion", r.cfg.Renderer.Completion(notifier.CompletionStats{
			Accounts:    report.Accounts,
			Sent:        report.Sent,
			Bots:        report.Bots,
			Filtered:    report.Filtered,
			Failed:      report.Failed,
			TotalTrades: report.TotalTrades,
		}))
	}

	report.FinishedAt = r.nowFn().UTC()
	logger.Infof("回顾运行完成 id=%s sent=%d bots=%d filtered=%d failed=%d total_trades=%d dur=%s",
		report.ID, report.Sent, report.Bots, report.Filtered, report.Failed, report.TotalTrades,
		report.FinishedAt.Sub(report.StartedAt).Truncate(time.Millisecond))

	r.save(ctx, report)
	return report, nil
}

// collect fetches all accounts with bounded parallelism. Results keep the
// configured order.
func (r *Runner) collect(ctx context.Context, now time.Time) []AccountResult {
	results := make([]AccountResult, len(r.cfg.Accounts))
	since, _ := r.cfg.Options.Window(now)

	var eg errgroup.Group
	eg.SetLimit(r.cfg.Concurrency)
	for i, acct := range r.cfg.Accounts {
		i, acct := i, acct
		results[i].Account = acct
		eg.Go(func() error {
			positions, err := r.cfg.Source.FetchPositions(ctx, acct)
			if err != nil {
				results[i].setErr(fmt.Errorf("fetch positions: %w", err))
				return nil
			}
			fills, err := r.cfg.Source.FetchFills(ctx, acct, since)
			if err != nil {
				results[i].setErr(fmt.Errorf("fetch fills: %w", err))
				return nil
			}
			rc := recap.Build(acct, positions, fills, now, r.cfg.Options)
			if rc.SkippedFills > 0 || rc.SkippedPositions > 0 {
				logger.With("account", acct).Warn("跳过异常记录",
					"fills", rc.SkippedFills, "positions", rc.SkippedPositions, "fallback", rc.FallbackFills)
			}
			results[i].Recap = rc
			results[i].Verdict = rc.Verdict
			results[i].Trades = rc.TradeCount
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (res *AccountResult) setErr(err error) {
	res.err = err
	res.Error = err.Error()
}

// notify delivers auxiliary messages; failures are logged only.
func (r *Runner) notify(ctx context.Context, kind, msg string) {
	if msg == "" {
		return
	}
	if err := r.cfg.Notifier.SendText(ctx, msg); err != nil {
		logger.Warnf("%s 消息推送失败: %v", kind, err)
	}
}

func (r *Runner) save(ctx context.Context, report *RunReport) {
	if r.cfg.Runs == nil {
		return
	}
	run := report.toModel()
	if err := r.cfg.Runs.Save(ctx, run); err != nil {
		logger.Warnf("保存运行记录失败 id=%s: %v", report.ID, err)
	}
}

func (report *RunReport) toModel() *model.RecapRunModel {
	run := &model.RecapRunModel{
		ID:          report.ID,
		ScanType:    report.ScanType,
		StartedAt:   report.StartedAt.UnixMilli(),
		FinishedAt:  report.FinishedAt.UnixMilli(),
		Accounts:    report.Accounts,
		Sent:        report.Sent,
		Filtered:    report.Filtered,
		Bots:        report.Bots,
		Failed:      report.Failed,
		TotalTrades: report.TotalTrades,
	}
	var details model.RunDetails
	for _, res := range report.Results {
		if res.Error != "" {
			if details.FailedAccounts == nil {
				details.FailedAccounts = map[string]string{}
			}
			details.FailedAccounts[res.Account] = res.Error
			continue
		}
		switch res.Verdict {
		case recap.VerdictBot:
			details.BotAccounts = append(details.BotAccounts, res.Account)
		case recap.VerdictInactive:
			details.FilteredAccounts = append(details.FilteredAccounts, res.Account)
		}
		details.SkippedFills += res.Recap.SkippedFills
		details.SkippedPositions += res.Recap.SkippedPositions
		details.FallbackFills += res.Recap.FallbackFills
	}
	sort.Strings(details.BotAccounts)
	sort.Strings(details.FilteredAccounts)
	if err := run.SetDetails(details); err != nil {
		logger.Warnf("编码运行详情失败 id=%s: %v", report.ID, err)
	}
	return run
}
