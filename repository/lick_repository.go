package repository

import (
	"context"
	"time"

	"FretLab/model"

	"gorm.io/gorm"
)

// LickRepository is the data access interface for saved licks.
type LickRepository interface {
	Create(ctx context.Context, lick *model.Lick) error
	GetByID(ctx context.Context, id string) (*model.Lick, error)
	List(ctx context.Context) ([]*model.Lick, error)
	ListByLesson(ctx context.Context, lessonID string) ([]*model.Lick, error)
	Update(ctx context.Context, lick *model.Lick) error
	Delete(ctx context.Context, id string) error
}

type gormLickRepository struct {
	db *gorm.DB
}

// NewGormLickRepository creates a GORM-backed lick repository.
func NewGormLickRepository(db *gorm.DB) LickRepository {
	return &gormLickRepository{db: db}
}

func (r *gormLickRepository) Create(ctx context.Context, lick *model.Lick) error {
	return r.db.WithContext(ctx).Create(lick).Error
}

// GetByID returns the lick, or (nil, nil) when it does not exist.
func (r *gormLickRepository) GetByID(ctx context.Context, id string) (*model.Lick, error) {
	var lick model.Lick
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lick).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &lick, nil
}

func (r *gormLickRepository) List(ctx context.Context) ([]*model.Lick, error) {
	var licks []*model.Lick
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&licks).Error
	return licks, err
}

func (r *gormLickRepository) ListByLesson(ctx context.Context, lessonID string) ([]*model.Lick, error) {
	var licks []*model.Lick
	err := r.db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("start ASC").
		Find(&licks).Error
	return licks, err
}

func (r *gormLickRepository) Update(ctx context.Context, lick *model.Lick) error {
	lick.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(lick).Error
}

func (r *gormLickRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Lick{}).Error
}
