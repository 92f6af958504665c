package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"taskboard/backend/internal/middleware"
	"taskboard/backend/internal/models"
	"taskboard/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type WorkspaceManager interface {
	CreateWorkspace(ctx context.Context, actor uuid.UUID, name string) (models.Workspace, error)
	AddMember(ctx context.Context, actor, workspaceID, userID uuid.UUID, role models.Role) (models.WorkspaceMember, error)
}

type BoardViewer interface {
	Board(ctx context.Context, actor, workspaceID uuid.UUID) (*services.Board, error)
}

type ColumnManager interface {
	ListColumns(ctx context.Context, actor, workspaceID uuid.UUID) ([]models.Column, error)
	CreateColumn(ctx context.Context, actor, workspaceID uuid.UUID, name, color string) (models.Column, error)
	UpdateColumn(ctx context.Context, actor, columnID uuid.UUID, update services.ColumnUpdate) (models.Column, error)
	DeleteColumn(ctx context.Context, actor, columnID uuid.UUID, reassignTo *uuid.UUID) error
	ReorderColumn(ctx context.Context, actor, columnID uuid.UUID, newPosition int) (services.ReorderResult, error)
}

type TaskManager interface {
	GetTask(ctx context.Context, actor, taskID uuid.UUID) (models.Task, error)
	CreateTask(ctx context.Context, actor, workspaceID uuid.UUID, input services.CreateTaskInput) (models.Task, error)
	UpdateTask(ctx context.Context, actor, taskID uuid.UUID, input services.UpdateTaskInput) (models.Task, error)
	ArchiveTask(ctx context.Context, actor, taskID uuid.UUID) error
	ReorderTask(ctx context.Context, actor, taskID uuid.UUID, input services.ReorderTaskInput) error
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}
	return userID, true
}

func pathID(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

// parsePosition accepts only whole numbers that fit an int; anything else
// cannot name a column slot.
func parsePosition(raw json.Number) (int, error) {
	f, err := raw.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, services.ErrInvalidPosition
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, services.ErrInvalidPosition
	}
	return int(f), nil
}

func handleBoardError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "failed to process board request"

	switch {
	case errors.Is(err, services.ErrAccessDenied):
		status, message = http.StatusForbidden, "access denied"
	case errors.Is(err, services.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, services.ErrLimitExceeded):
		status, message = http.StatusConflict, "column limit reached"
	case errors.Is(err, services.ErrHasTasks):
		status, message = http.StatusConflict, "column still has tasks"
	case errors.Is(err, services.ErrInvalidTarget):
		status, message = http.StatusUnprocessableEntity, "invalid target column"
	case errors.Is(err, services.ErrInvalidPosition):
		status, message = http.StatusBadRequest, "invalid position"
	case errors.Is(err, services.ErrValidation):
		status, message = http.StatusBadRequest, "validation failed"
	}

	body := gin.H{"error": message}
	if status != http.StatusInternalServerError {
		body["details"] = err.Error()
	}
	_ = c.Error(err)
	c.JSON(status, body)
}
