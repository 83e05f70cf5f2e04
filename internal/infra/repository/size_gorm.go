package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type SizeGormRepository struct {
	db *gorm.DB
}

// DI
func NewSizeGormRepository(db *gorm.DB) *SizeGormRepository {
	return &SizeGormRepository{db: db}
}

func (r *SizeGormRepository) List(ctx context.Context) ([]model.Size, error) {
	var sizes []model.Size
	if err := r.db.WithContext(ctx).
		Order("sort_order asc").
		Order("id asc").
		Find(&sizes).Error; err != nil {
		return []model.Size{}, err
	}
	return sizes, nil
}

func (r *SizeGormRepository) FindByID(ctx context.Context, id int64) (model.Size, error) {
	var s model.Size
	err := r.db.WithContext(ctx).First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Size{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Size{}, err
	}
	return s, nil
}

func (r *SizeGormRepository) Create(ctx context.Context, s model.Size) (model.Size, error) {
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return model.Size{}, err
	}
	return s, nil
}

func (r *SizeGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Size{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
