package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ScanType 标记一次回顾运行的触发方式。
type ScanType string

const (
	ScanTypeOnce      ScanType = "once"
	ScanTypeScheduled ScanType = "scheduled"
	ScanTypeManual    ScanType = "manual"
)

// RunDetails is stored as JSON next to the counters.
type RunDetails struct {
	BotAccounts      []string          `json:"bot_accounts,omitempty"`
	FilteredAccounts []string          `json:"filtered_accounts,omitempty"`
	FailedAccounts   map[string]string `json:"failed_accounts,omitempty"`
	SkippedFills     int               `json:"skipped_fills,omitempty"`
	SkippedPositions int               `json:"skipped_positions,omitempty"`
	FallbackFills    int               `json:"fallback_fills,omitempty"`
}

// RecapRunModel maps to 'recap_runs' table.
type RecapRunModel struct {
	ID          string         `gorm:"column:id;primaryKey"`
	ScanType    ScanType       `gorm:"column:scan_type;index"`
	StartedAt   int64          `gorm:"column:started_at;index"` // unix millis
	FinishedAt  int64          `gorm:"column:finished_at"`      // unix millis
	Accounts    int            `gorm:"column:accounts"`
	Sent        int            `gorm:"column:sent"`
	Filtered    int            `gorm:"column:filtered"`
	Bots        int            `gorm:"column:bots"`
	Failed      int            `gorm:"column:failed"`
	TotalTrades int            `gorm:"column:total_trades"`
	Details     datatypes.JSON `gorm:"column:details;type:TEXT"`
}

func (RecapRunModel) TableName() string { return "recap_runs" }

func (m RecapRunModel) StartedTime() time.Time {
	return time.UnixMilli(m.StartedAt).UTC()
}

func (m RecapRunModel) FinishedTime() time.Time {
	return time.UnixMilli(m.FinishedAt).UTC()
}

func (m RecapRunModel) Duration() time.Duration {
	if m.FinishedAt < m.StartedAt {
		return 0
	}
	return time.Duration(m.FinishedAt-m.StartedAt) * time.Millisecond
}

// SetDetails encodes d into the Details column.
func (m *RecapRunModel) SetDetails(d RunDetails) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	m.Details = datatypes.JSON(raw)
	return nil
}

// DecodeDetails returns the zero value when the column is empty.
func (m RecapRunModel) DecodeDetails() (RunDetails, error) {
	var d RunDetails
	if len(m.Details) == 0 {
		return d, nil
	}
	err := json.Unmarshal(m.Details, &d)
	return d, err
}
