package adminhttp

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"hlrecap/internal/logger"
	"hlrecap/internal/runner"
	"hlrecap/internal/store"
	"hlrecap/internal/store/model"

	"github.com/gin-gonic/gin"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// Router 暴露运行记录接口。
type Router struct {
	Runs    store.RunRepository
	Trigger RunTrigger
}

func NewRouter(runs store.RunRepository, trigger RunTrigger) *Router {
	return &Router{Runs: runs, Trigger: trigger}
}

// Register 将路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/runs", r.handleListRuns)
	group.GET("/runs/last", r.handleLastRun)
	if r.Trigger != nil {
		group.POST("/runs", r.handleTriggerRun)
	}
}

type runView struct {
	ID          string           `json:"id"`
	ScanType    model.ScanType   `json:"scan_type"`
	StartedAt   string           `json:"started_at"`
	FinishedAt  string           `json:"finished_at"`
	DurationMS  int64            `json:"duration_ms"`
	Accounts    int              `json:"accounts"`
	Sent        int              `json:"sent"`
	Filtered    int              `json:"filtered"`
	Bots        int              `json:"bots"`
	Failed      int              `json:"failed"`
	TotalTrades int              `json:"total_trades"`
	Details     model.RunDetails `json:"details"`
}

func newRunView(m model.RecapRunModel) runView {
	details, err := m.DecodeDetails()
	if err != nil {
		logger.Warnf("解析运行详情失败 id=%s: %v", m.ID, err)
	}
	return runView{
		ID:          m.ID,
		ScanType:    m.ScanType,
		StartedAt:   m.StartedTime().Format(time.RFC3339),
		FinishedAt:  m.FinishedTime().Format(time.RFC3339),
		DurationMS:  m.Duration().Milliseconds(),
		Accounts:    m.Accounts,
		Sent:        m.Sent,
		Filtered:    m.Filtered,
		Bots:        m.Bots,
		Failed:      m.Failed,
		TotalTrades: m.TotalTrades,
		Details:     details,
	}
}

func (r *Router) handleListRuns(c *gin.Context) {
	if r.Runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "运行记录未启用"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRunLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}
	runs, err := r.Runs.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]runView, 0, len(runs))
	for _, run := range runs {
		items = append(items, newRunView(run))
	}
	c.JSON(http.StatusOK, gin.H{"runs": items, "limit": limit})
}

func (r *Router) handleLastRun(c *gin.Context) {
	if r.Runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "运行记录未启用"})
		return
	}
	run, err := r.Runs.Last(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded"})
		return
	}
	c.JSON(http.StatusOK, newRunView(*run))
}

// handleTriggerRun runs synchronously and returns the report.
func (r *Router) handleTriggerRun(c *gin.Context) {
	report, err := r.Trigger.Run(c.Request.Context(), model.ScanTypeManual)
	if errors.Is(err, runner.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
