package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard/backend/internal/config"
	"taskboard/backend/internal/models"
	"taskboard/backend/internal/ordering"
	"taskboard/backend/internal/repositories"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type ColumnUpdate struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

type ReorderResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ColumnService keeps column positions dense (0..n-1) per workspace and the
// column count inside the configured bounds.
type ColumnService struct {
	store     repositories.Store
	authz     AuthorizationService
	publisher Publisher
	logger    *log.Logger
	minCols   int
	maxCols   int
}

func NewColumnService(store repositories.Store, authz AuthorizationService, board config.BoardConfig, publisher Publisher, logger *log.Logger) *ColumnService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	minCols, maxCols := board.MinColumns, board.MaxColumns
	if minCols <= 0 {
		minCols = 2
	}
	if maxCols <= 0 {
		maxCols = 4
	}
	return &ColumnService{
		store:     store,
		authz:     authz,
		publisher: publisher,
		logger:    logger,
		minCols:   minCols,
		maxCols:   maxCols,
	}
}

func (s *ColumnService) authorize(ctx context.Context, actor, workspaceID uuid.UUID, action Action, columnID *uuid.UUID) error {
	return s.authz.Authorize(ctx, AuthorizationRequest{
		UserID:      actor,
		WorkspaceID: workspaceID,
		Resource:    "column",
		Action:      action,
		ResourceID:  columnID,
	})
}

func (s *ColumnService) loadColumn(ctx context.Context, columnID uuid.UUID) (models.Column, error) {
	column, err := s.store.GetColumn(ctx, columnID)
	if err != nil {
		return column, storeErr(err, fmt.Sprintf("column %s", columnID))
	}
	return column, nil
}

func (s *ColumnService) ListColumns(ctx context.Context, actor, workspaceID uuid.UUID) ([]models.Column, error) {
	if err := s.authorize(ctx, actor, workspaceID, ActionRead, nil); err != nil {
		return nil, err
	}
	columns, err := s.store.ListColumns(ctx, workspaceID)
	if err != nil {
		return nil, storeErr(err, "list columns")
	}
	return columns, nil
}

func (s *ColumnService) CreateColumn(ctx context.Context, actor, workspaceID uuid.UUID, name, color string) (column models.Column, err error) {
	ctx, span := startSpan(ctx, "ColumnService.CreateColumn",
		attribute.String("workspace_id", workspaceID.String()))
	defer func() { endSpan(span, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return column, invalid("column name is required")
	}
	if err = s.authorize(ctx, actor, workspaceID, ActionManageColumns, nil); err != nil {
		return column, err
	}

	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		count, err := tx.CountColumns(ctx, workspaceID)
		if err != nil {
			return err
		}
		if int(count) >= s.maxCols {
			return fmt.Errorf("workspace already has %d columns: %w", count, ErrLimitExceeded)
		}

		existing, err := tx.ListColumns(ctx, workspaceID)
		if err != nil {
			return err
		}
		position := 0
		for _, c := range existing {
			if c.Position+1 > position {
				position = c.Position + 1
			}
		}

		column = models.Column{
			WorkspaceID: workspaceID,
			Name:        name,
			Color:       color,
			Position:    position,
		}
		return tx.CreateColumn(ctx, &column)
	})
	if err != nil {
		return models.Column{}, storeErr(err, "create column")
	}

	s.logger.WithField("workspace_id", workspaceID).
		WithField("column_id", column.ID).
		WithField("position", column.Position).
		Info("column created")
	s.publish(ctx, EventColumnCreated, workspaceID, column.ID, actor)
	return column, nil
}

func (s *ColumnService) UpdateColumn(ctx context.Context, actor, columnID uuid.UUID, update ColumnUpdate) (models.Column, error) {
	column, err := s.loadColumn(ctx, columnID)
	if err != nil {
		return column, err
	}
	if err := s.authorize(ctx, actor, column.WorkspaceID, ActionManageColumns, &columnID); err != nil {
		return column, err
	}

	updates := map[string]interface{}{}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return column, invalid("column name cannot be empty")
		}
		updates["name"] = name
	}
	if update.Color != nil {
		updates["color"] = *update.Color
	}
	if len(updates) == 0 {
		return column, nil
	}

	// Renaming does not touch the status of tasks already in the column.
	if err := s.store.UpdateColumn(ctx, columnID, updates); err != nil {
		return column, storeErr(err, "update column")
	}

	column, err = s.loadColumn(ctx, columnID)
	if err != nil {
		return column, err
	}
	s.publish(ctx, EventColumnUpdated, column.WorkspaceID, column.ID, actor)
	return column, nil
}

// DeleteColumn removes a column, moving its tasks to reassignTo first and
// closing the position gap. Nothing is written unless every step succeeds.
func (s *ColumnService) DeleteColumn(ctx context.Context, actor, columnID uuid.UUID, reassignTo *uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "ColumnService.DeleteColumn",
		attribute.String("column_id", columnID.String()))
	defer func() { endSpan(span, err) }()

	column, err := s.loadColumn(ctx, columnID)
	if err != nil {
		return err
	}
	if err = s.authorize(ctx, actor, column.WorkspaceID, ActionManageColumns, &columnID); err != nil {
		return err
	}

	var moved int64
	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		count, err := tx.CountColumns(ctx, column.WorkspaceID)
		if err != nil {
			return err
		}
		if int(count)-1 < s.minCols {
			return fmt.Errorf("workspace needs at least %d columns: %w", s.minCols, ErrLimitExceeded)
		}

		active, err := tx.CountActiveTasks(ctx, columnID)
		if err != nil {
			return err
		}
		if active > 0 && reassignTo == nil {
			return fmt.Errorf("column holds %d tasks: %w", active, ErrHasTasks)
		}

		if reassignTo != nil {
			target, err := validateReassignTarget(ctx, tx, column, *reassignTo)
			if err != nil {
				return err
			}
			move := repositories.Reassignment{From: columnID, To: target.ID, At: time.Now()}
			if status, canonical := models.StatusForColumnName(target.Name); canonical {
				move.Status = &status
			}
			tail, err := tx.LastTaskPosition(ctx, target.ID)
			if err != nil {
				return err
			}
			if tail != nil {
				move.Offset = *tail
			}
			if moved, err = tx.ReassignTasks(ctx, move); err != nil {
				return err
			}
		} else if _, err := tx.DetachTasks(ctx, columnID, time.Now()); err != nil {
			return err
		}

		if err := tx.DeleteColumn(ctx, columnID); err != nil {
			return err
		}
		return renumber(ctx, tx, column.WorkspaceID)
	})
	if err != nil {
		return storeErr(err, "delete column")
	}

	s.logger.WithField("workspace_id", column.WorkspaceID).
		WithField("column_id", columnID).
		WithField("tasks_moved", moved).
		Info("column deleted")
	s.publish(ctx, EventColumnDeleted, column.WorkspaceID, columnID, actor)
	return nil
}

func validateReassignTarget(ctx context.Context, tx repositories.Store, column models.Column, targetID uuid.UUID) (models.Column, error) {
	if targetID == column.ID {
		return models.Column{}, fmt.Errorf("cannot reassign tasks to the column being deleted: %w", ErrInvalidTarget)
	}
	target, err := tx.GetColumn(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Column{}, fmt.Errorf("column %s does not exist: %w", targetID, ErrInvalidTarget)
		}
		return models.Column{}, err
	}
	if target.WorkspaceID != column.WorkspaceID {
		return models.Column{}, fmt.Errorf("column %s belongs to another workspace: %w", targetID, ErrInvalidTarget)
	}
	return target, nil
}

// renumber rewrites positions to 0..n-1 in current sort order.
func renumber(ctx context.Context, tx repositories.Store, workspaceID uuid.UUID) error {
	columns, err := tx.ListColumns(ctx, workspaceID)
	if err != nil {
		return err
	}
	for i, c := range columns {
		if c.Position == i {
			continue
		}
		if err := tx.SetColumnPosition(ctx, c.ID, i); err != nil {
			return err
		}
	}
	return nil
}

// ReorderColumn moves a column to newPosition, clamped into range, shifting
// the columns in between by one. All writes share one transaction.
func (s *ColumnService) ReorderColumn(ctx context.Context, actor, columnID uuid.UUID, newPosition int) (result ReorderResult, err error) {
	ctx, span := startSpan(ctx, "ColumnService.ReorderColumn",
		attribute.String("column_id", columnID.String()),
		attribute.Int("requested_position", newPosition))
	defer func() { endSpan(span, err) }()

	column, err := s.loadColumn(ctx, columnID)
	if err != nil {
		return result, err
	}
	if err = s.authorize(ctx, actor, column.WorkspaceID, ActionManageColumns, &columnID); err != nil {
		return result, err
	}

	var target, writes int
	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		columns, err := tx.ListColumns(ctx, column.WorkspaceID)
		if err != nil {
			return err
		}

		from := -1
		positions := make([]int, len(columns))
		for i, c := range columns {
			positions[i] = c.Position
			if c.ID == columnID {
				from = i
			}
		}
		if from < 0 {
			return fmt.Errorf("column %s: %w", columnID, ErrNotFound)
		}
		target = ordering.ClampIndex(newPosition, len(columns))

		if ordering.Dense(positions) {
			for _, shift := range ordering.Rebalance(positions, positions[from], target) {
				if err := tx.SetColumnPosition(ctx, columns[shift.Index].ID, shift.NewPosition); err != nil {
					return err
				}
				writes++
			}
			return nil
		}

		// A concurrent write left gaps or duplicates; rebuild from sort order.
		for i, c := range ordering.Move(columns, from, target) {
			if c.Position == i {
				continue
			}
			if err := tx.SetColumnPosition(ctx, c.ID, i); err != nil {
				return err
			}
			writes++
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).
			WithField("workspace_id", column.WorkspaceID).
			WithField("column_id", columnID).
			Warn("column reorder failed")
		return ReorderResult{Success: false, Message: "Failed to reorder column"}, storeErr(err, "reorder column")
	}

	span.SetAttributes(attribute.Int("position", target), attribute.Int("writes", writes))
	if writes == 0 {
		return ReorderResult{Success: true, Message: fmt.Sprintf("Column already at position %d", target)}, nil
	}

	s.logger.WithField("workspace_id", column.WorkspaceID).
		WithField("column_id", columnID).
		WithField("position", target).
		Debug("column reordered")
	s.publish(ctx, EventColumnsReordered, column.WorkspaceID, columnID, actor)
	return ReorderResult{Success: true, Message: fmt.Sprintf("Column moved to position %d", target)}, nil
}

func (s *ColumnService) publish(ctx context.Context, eventType EventType, workspaceID, resourceID, actor uuid.UUID) {
	s.publisher.Publish(ctx, BoardEvent{
		Type:        eventType,
		WorkspaceID: workspaceID,
		ResourceID:  resourceID,
		ActorID:     actor,
		At:          time.Now(),
	})
}
