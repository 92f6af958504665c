package repositories

import (
	"context"
	"time"

	"taskboard/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

func (s *GormStore) GetColumn(ctx context.Context, id uuid.UUID) (models.Column, error) {
	var column models.Column
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&column).Error
	return column, err
}

func (s *GormStore) ListColumns(ctx context.Context, workspaceID uuid.UUID) ([]models.Column, error) {
	var columns []models.Column
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&columns).Error
	return columns, err
}

func (s *GormStore) CountColumns(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Column{}).
		Where("workspace_id = ?", workspaceID).
		Count(&count).Error
	return count, err
}

func (s *GormStore) FindColumnByName(ctx context.Context, workspaceID uuid.UUID, name string) (models.Column, error) {
	var column models.Column
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND name = ?", workspaceID, name).
		Order("position ASC").
		First(&column).Error
	return column, err
}

func (s *GormStore) CreateColumn(ctx context.Context, column *models.Column) error {
	return s.db.WithContext(ctx).Create(column).Error
}

func (s *GormStore) UpdateColumn(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	result := s.db.WithContext(ctx).
		Model(&models.Column{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *GormStore) SetColumnPosition(ctx context.Context, id uuid.UUID, position int) error {
	return s.UpdateColumn(ctx, id, map[string]interface{}{"position": position})
}

func (s *GormStore) DeleteColumn(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Column{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
