package repository

import (
	"context"
	"time"

	"FretLab/model"

	"gorm.io/gorm"
)

// PracticeLogRepository is the data access interface for the practice
// journal.
type PracticeLogRepository interface {
	Create(ctx context.Context, entry *model.PracticeLog) error
	GetByID(ctx context.Context, id uint) (*model.PracticeLog, error)
	List(ctx context.Context, startDate, endDate string) ([]*model.PracticeLog, error)
	Update(ctx context.Context, entry *model.PracticeLog) error
	Delete(ctx context.Context, id uint) (bool, error)
	Stats(ctx context.Context, now time.Time) (*model.PracticeStats, error)
}

type gormPracticeLogRepository struct {
	db *gorm.DB
}

// NewGormPracticeLogRepository creates a GORM-backed journal repository.
func NewGormPracticeLogRepository(db *gorm.DB) PracticeLogRepository {
	return &gormPracticeLogRepository{db: db}
}

func (r *gormPracticeLogRepository) Create(ctx context.Context, entry *model.PracticeLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetByID returns the entry, or (nil, nil) when it does not exist.
func (r *gormPracticeLogRepository) GetByID(ctx context.Context, id uint) (*model.PracticeLog, error) {
	var entry model.PracticeLog
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// List returns entries newest first. Dates are inclusive YYYY-MM-DD bounds;
// an empty endDate makes startDate an open lower bound, and two empty
// bounds return the whole journal.
func (r *gormPracticeLogRepository) List(ctx context.Context, startDate, endDate string) ([]*model.PracticeLog, error) {
	q := r.db.WithContext(ctx).Model(&model.PracticeLog{})
	switch {
	case startDate != "" && endDate != "":
		q = q.Where("date BETWEEN ? AND ?", startDate, endDate)
	case startDate != "":
		q = q.Where("date >= ?", startDate)
	}

	var entries []*model.PracticeLog
	err := q.Order("date DESC, created_at DESC").Find(&entries).Error
	return entries, err
}

func (r *gormPracticeLogRepository) Update(ctx context.Context, entry *model.PracticeLog) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// Delete reports whether a row was actually removed.
func (r *gormPracticeLogRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.PracticeLog{})
	return res.RowsAffected > 0, res.Error
}

// Stats aggregates the journal: per-day heatmap cells plus total and
// current-week minutes, the week starting on the most recent Sunday.
func (r *gormPracticeLogRepository) Stats(ctx context.Context, now time.Time) (*model.PracticeStats, error) {
	stats := &model.PracticeStats{Heatmap: []model.HeatmapCell{}}

	err := r.db.WithContext(ctx).Model(&model.PracticeLog{}).
		Select("date, COUNT(*) AS count, SUM(duration_minutes) AS duration").
		Group("date").
		Order("date ASC").
		Scan(&stats.Heatmap).Error
	if err != nil {
		return nil, err
	}

	weekStart := WeekStart(now)
	for _, cell := range stats.Heatmap {
		stats.TotalMinutes += cell.Duration
		if cell.Date >= weekStart {
			stats.WeekMinutes += cell.Duration
		}
	}
	return stats, nil
}

// WeekStart returns the YYYY-MM-DD date of the most recent Sunday on or
// before t.
func WeekStart(t time.Time) string {
	return t.AddDate(0, 0, -int(t.Weekday())).Format("2006-01-02")
}
