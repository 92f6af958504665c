package repositories

import (
	"context"
	"time"

	"taskboard/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

func (s *GormStore) GetTask(ctx context.Context, id uuid.UUID) (models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	return task, err
}

func (s *GormStore) CreateTask(ctx context.Context, task *models.Task) error {
	return s.db.WithContext(ctx).Create(task).Error
}

func (s *GormStore) UpdateTask(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	result := s.db.WithContext(ctx).
		Model(&models.Task{}).
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

// ListColumnTasks returns the non-archived tasks of a column in display
// order. Equal positions fall back to creation order.
func (s *GormStore) ListColumnTasks(ctx context.Context, columnID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Where("column_id = ? AND is_archived = ?", columnID, false).
		Order("position ASC").
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (s *GormStore) ListWorkspaceTasks(ctx context.Context, workspaceID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND is_archived = ?", workspaceID, false).
		Order("position ASC").
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (s *GormStore) CountActiveTasks(ctx context.Context, columnID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("column_id = ? AND is_archived = ?", columnID, false).
		Count(&count).Error
	return count, err
}

func (s *GormStore) LastTaskPosition(ctx context.Context, columnID uuid.UUID) (*float64, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Select("position").
		Where("column_id = ? AND is_archived = ?", columnID, false).
		Order("position DESC").
		Limit(1).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	pos := tasks[0].Position
	return &pos, nil
}

// Reassignment moves every task of one column, archived ones included, into
// another.
type Reassignment struct {
	From uuid.UUID
	To   uuid.UUID
	// Status is written to every moved task when set. Entering done keeps an
	// existing completed_at; any other status clears it.
	Status *models.Status
	// Offset is added to each moved position so the tasks land after the
	// target's existing ones in their original order.
	Offset float64
	At     time.Time
}

func (s *GormStore) ReassignTasks(ctx context.Context, r Reassignment) (int64, error) {
	updates := map[string]interface{}{
		"column_id":  r.To,
		"updated_at": r.At,
	}
	if r.Offset != 0 {
		updates["position"] = gorm.Expr("position + ?", r.Offset)
	}
	if r.Status != nil {
		updates["status"] = *r.Status
		if *r.Status == models.StatusDone {
			updates["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", r.At)
		} else {
			updates["completed_at"] = nil
		}
	}

	result := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("column_id = ?", r.From).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// DetachTasks clears column_id on every task left in a column, so nothing
// keeps pointing at it once it is deleted.
func (s *GormStore) DetachTasks(ctx context.Context, columnID uuid.UUID, at time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("column_id = ?", columnID).
		Updates(map[string]interface{}{
			"column_id":  nil,
			"updated_at": at,
		})
	return result.RowsAffected, result.Error
}
