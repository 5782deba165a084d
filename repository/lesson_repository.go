package repository

import (
	"context"
	"time"

	"FretLab/model"

	"gorm.io/gorm"
)

// LessonRepository is the data access interface for lessons.
type LessonRepository interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id string) (*model.Lesson, error)
	List(ctx context.Context) ([]*model.Lesson, error)
	Update(ctx context.Context, lesson *model.Lesson) error
	UpdateMeta(ctx context.Context, id string, memo, transcript *string, tags model.TagList) (*model.Lesson, error)
	Delete(ctx context.Context, id string) error
	ExistsByID(ctx context.Context, id string) (bool, error)
}

type gormLessonRepository struct {
	db *gorm.DB
}

// NewGormLessonRepository creates a GORM-backed lesson repository.
func NewGormLessonRepository(db *gorm.DB) LessonRepository {
	return &gormLessonRepository{db: db}
}

func (r *gormLessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	return r.db.WithContext(ctx).Create(lesson).Error
}

// GetByID returns the lesson, or (nil, nil) when it does not exist.
func (r *gormLessonRepository) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lesson).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &lesson, nil
}

func (r *gormLessonRepository) List(ctx context.Context) ([]*model.Lesson, error) {
	var lessons []*model.Lesson
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&lessons).Error
	return lessons, err
}

func (r *gormLessonRepository) Update(ctx context.Context, lesson *model.Lesson) error {
	lesson.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(lesson).Error
}

// UpdateMeta updates only the review metadata (memo, transcript and/or
// tags) and returns the updated row. Nil fields leave their columns
// untouched.
func (r *gormLessonRepository) UpdateMeta(ctx context.Context, id string, memo, transcript *string, tags model.TagList) (*model.Lesson, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if memo != nil {
		updates["memo"] = *memo
	}
	if transcript != nil {
		updates["transcript"] = *transcript
	}
	if tags != nil {
		updates["tags"] = tags
	}

	res := r.db.WithContext(ctx).Model(&model.Lesson{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *gormLessonRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Lesson{}).Error
}

func (r *gormLessonRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Lesson{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
