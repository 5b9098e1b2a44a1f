package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hlrecap/internal/config"
	"hlrecap/internal/logger"
	"hlrecap/internal/runner"
	"hlrecap/internal/scheduler"
	"hlrecap/internal/store"
	"hlrecap/internal/store/model"
	adminhttp "hlrecap/internal/transport/http/admin"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→执行一次回顾或进入定时模式。
type App struct {
	cfg     *config.Config
	runner  *runner.Runner
	store   store.Store
	http    *adminhttp.Server
	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return NewAppBuilder(cfg, opts...).Build(context.Background())
}

// Run 在 once 模式下执行一次回顾后返回；daemon 模式下按计划运行直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.runner == nil {
		return fmt.Errorf("runner not initialized")
	}
	defer a.close()

	if a.Summary != nil {
		a.Summary.Print()
	}

	if a.cfg.App.Mode != config.ModeDaemon {
		_, err := a.runner.Run(ctx, model.ScanTypeOnce)
		return err
	}
	return a.runDaemon(ctx)
}

func (a *App) runDaemon(ctx context.Context) error {
	interval, ok := scheduler.ParseIntervalDuration(a.cfg.Schedule.Interval)
	if !ok {
		return fmt.Errorf("invalid schedule interval %q", a.cfg.Schedule.Interval)
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("admin http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		sched := scheduler.NewAlignedScheduler(ctx, interval, time.Duration(a.cfg.Schedule.OffsetSeconds)*time.Second)
		sched.RunImmediately = a.cfg.Schedule.RunImmediately
		sched.Start(a.scheduledRun)
		return nil
	})

	return group.Wait()
}

func (a *App) scheduledRun(ctx context.Context) {
	if _, err := a.runner.Run(ctx, model.ScanTypeScheduled); err != nil {
		if errors.Is(err, runner.ErrRunInProgress) {
			logger.Warnf("上一轮回顾仍在执行，跳过本次调度")
			return
		}
		logger.Errorf("定时回顾失败: %v", err)
	}
}

func (a *App) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		logger.Warnf("关闭运行记录数据库失败: %v", err)
	}
}

// Runner exposes the underlying runner (for tests and manual triggers).
func (a *App) Runner() *runner.Runner {
	if a == nil {
		return nil
	}
	return a.runner
}
