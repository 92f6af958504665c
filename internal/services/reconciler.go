package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskboard/backend/internal/models"
	"taskboard/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Target is the caller-supplied placement of a task. Either side, both or
// neither may be set.
type Target struct {
	ColumnID *uuid.UUID
	Status   *models.Status
}

func (t Target) placement() models.Placement {
	if t.ColumnID != nil && *t.ColumnID != uuid.Nil {
		return models.CustomColumn(*t.ColumnID)
	}
	if t.Status != nil {
		return models.LegacyStatus(*t.Status)
	}
	return models.Placement{}
}

// Resolution is the reconciled status/column pair for a task.
type Resolution struct {
	Status   models.Status
	ColumnID *uuid.UUID
}

func (r Resolution) sameColumn(task *models.Task) bool {
	if r.ColumnID == nil || task.ColumnID == nil {
		return r.ColumnID == nil && task.ColumnID == nil
	}
	return *r.ColumnID == *task.ColumnID
}

// Reconciler keeps the legacy status and the column reference derivable from
// each other. The name table lives in models; nothing here compares column
// names directly.
type Reconciler struct{}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Resolve decides the status and column for a task in workspaceID. current is
// nil when the task is being created.
func (r *Reconciler) Resolve(ctx context.Context, store repositories.Store, workspaceID uuid.UUID, target Target, current *models.Task) (Resolution, error) {
	if target.Status != nil && !target.Status.Valid() {
		return Resolution{}, invalid("unknown status %q", *target.Status)
	}

	var res Resolution
	if current != nil {
		res = Resolution{Status: current.Status, ColumnID: current.ColumnID}
	}

	placement := target.placement()

	if columnID, ok := placement.ColumnID(); ok {
		column, err := store.GetColumn(ctx, columnID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Resolution{}, fmt.Errorf("column %s: %w", columnID, ErrNotFound)
			}
			return Resolution{}, storeErr(err, "load column")
		}
		if column.WorkspaceID != workspaceID {
			return Resolution{}, fmt.Errorf("column %s belongs to another workspace: %w", columnID, ErrInvalidTarget)
		}

		res.ColumnID = &column.ID
		if status, canonical := models.StatusForColumnName(column.Name); canonical {
			res.Status = status
		} else if target.Status != nil {
			res.Status = *target.Status
		}
		if res.Status == "" {
			res.Status = models.StatusTodo
		}
		return res, nil
	}

	if status, ok := placement.Status(); ok {
		res.Status = status
		name, _ := models.ColumnNameForStatus(status)
		column, err := store.FindColumnByName(ctx, workspaceID, name)
		switch {
		case err == nil:
			res.ColumnID = &column.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return Resolution{}, storeErr(err, "find column for status")
		}
		return res, nil
	}

	if current != nil {
		return res, nil
	}

	columns, err := store.ListColumns(ctx, workspaceID)
	if err != nil {
		return Resolution{}, storeErr(err, "list columns")
	}
	res.Status = models.StatusTodo
	if len(columns) > 0 {
		first := columns[0]
		res.ColumnID = &first.ID
		if status, canonical := models.StatusForColumnName(first.Name); canonical {
			res.Status = status
		}
	}
	return res, nil
}

// CompletedAt applies the done transition rule: set on entering done, clear on
// leaving it, otherwise keep prev.
func CompletedAt(from, to models.Status, prev *time.Time, now time.Time) *time.Time {
	switch {
	case to == models.StatusDone && from != models.StatusDone:
		return &now
	case to != models.StatusDone && from == models.StatusDone:
		return nil
	default:
		return prev
	}
}

// Changes returns the column updates needed to move current to res, including
// the completed_at side effect of a status change.
func (r *Reconciler) Changes(current *models.Task, res Resolution, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{}

	if !res.sameColumn(current) {
		if res.ColumnID == nil {
			updates["column_id"] = nil
		} else {
			updates["column_id"] = *res.ColumnID
		}
	}

	if res.Status != current.Status {
		updates["status"] = res.Status
		completedAt := CompletedAt(current.Status, res.Status, current.CompletedAt, now)
		if completedAt == nil {
			updates["completed_at"] = nil
		} else {
			updates["completed_at"] = *completedAt
		}
	}

	return updates
}
