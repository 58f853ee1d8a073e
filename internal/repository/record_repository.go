package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bitfantasy/linelog/internal/model/entity"
	"gorm.io/gorm"
)

// RecordRepository 记录仓储
type RecordRepository struct {
	db *gorm.DB
}

// NewRecordRepository 创建记录仓储
func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// FindByID 根据ID查找记录
func (r *RecordRepository) FindByID(ctx context.Context, id string) (*entity.Record, error) {
	var record entity.Record
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByBusinessID 根据业务ID查找质检记录（大小写不敏感）。
// 同一业务ID存在多条时取最近一条。
func (r *RecordRepository) FindByBusinessID(ctx context.Context, businessID string) (*entity.Record, error) {
	var record entity.Record
	err := r.db.WithContext(ctx).
		Where("category = ?", entity.CategoryQualityControl).
		Where("LOWER(business_id) = ?", strings.ToLower(businessID)).
		Order("recorded_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// List 获取记录列表。sortNewest为true时按记录时间倒序，否则按插入顺序。
func (r *RecordRepository) List(ctx context.Context, filters map[string]interface{}, sortNewest bool) ([]entity.Record, error) {
	var records []entity.Record

	query := r.db.WithContext(ctx).Model(&entity.Record{})

	// 应用过滤条件（精确匹配）
	if category, ok := filters["category"].(string); ok && category != "" {
		query = query.Where("category = ?", category)
	}
	if operator, ok := filters["operator"].(string); ok && operator != "" {
		query = query.Where("operator = ?", operator)
	}

	if sortNewest {
		query = query.Order("recorded_at DESC")
	} else {
		query = query.Order("created_at ASC")
	}

	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Create 创建记录
func (r *RecordRepository) Create(ctx context.Context, record *entity.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Update 更新记录
func (r *RecordRepository) Update(ctx context.Context, record *entity.Record) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// Delete 删除记录。记录不存在不报错（删除幂等）。
func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Record{}).Error
}

// Count 记录总数
func (r *RecordRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.Record{}).Count(&total).Error
	return total, err
}
