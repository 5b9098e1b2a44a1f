package sqlite

import (
	"context"
	"errors"
	"strings"

	"hlrecap/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultListLimit = 20

// runRepository implements the RunRepository interface.
type runRepository struct {
	db *gorm.DB
}

// NewRunRepo creates a new runRepository.
func NewRunRepo(db *gorm.DB) *runRepository {
	return &runRepository{db: db}
}

// Save inserts a run or updates it in place when the id already exists.
func (r *runRepository) Save(ctx context.Context, run *model.RecapRunModel) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id cannot be empty")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(run).Error
}

func (r *runRepository) Last(ctx context.Context) (*model.RecapRunModel, error) {
	var run model.RecapRunModel
	err := r.db.WithContext(ctx).Order("started_at DESC, finished_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the newest runs first.
func (r *runRepository) List(ctx context.Context, limit int) ([]model.RecapRunModel, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	runs := make([]model.RecapRunModel, 0, limit)
	if err := r.db.WithContext(ctx).
		Order("started_at DESC, finished_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
