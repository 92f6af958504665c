package handlers

import (
	"encoding/json"
	"net/http"

	"taskboard/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type ColumnHandler struct {
	columns ColumnManager
}

func NewColumnHandler(columns ColumnManager) *ColumnHandler {
	return &ColumnHandler{columns: columns}
}

func (h *ColumnHandler) ListColumns(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathID(c, "workspace_id", "workspace")
	if !ok {
		return
	}

	columns, err := h.columns.ListColumns(c.Request.Context(), userID, workspaceID)
	if err != nil {
		handleBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

func (h *ColumnHandler) CreateColumn(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathID(c, "workspace_id", "workspace")
	if !ok {
		return
	}

	var input struct {
		Name  string `json:"name" binding:"required"`
		Color string `json:"color"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	column, err := h.columns.CreateColumn(c.Request.Context(), userID, workspaceID, input.Name, input.Color)
	if err != nil {
		handleBoardError(c, err)
		return
	}
	c.JSON(http.StatusCreated, column)
}

func (h *ColumnHandler) UpdateColumn(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	columnID, ok := pathID(c, "id", "column")
	if !ok {
		return
	}

	var update services.ColumnUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	column, err := h.columns.UpdateColumn(c.Request.Context(), userID, columnID, update)
	if err != nil {
		handleBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, column)
}

// DeleteColumn removes a column. Tasks still in it move to ?reassign_to=.
func (h *ColumnHandler) DeleteColumn(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	columnID, ok := pathID(c, "id", "column")
	if !ok {
		return
	}

	var reassignTo *uuid.UUID
	if raw := c.Query("reassign_to"); raw != "" {
		target, err := uuid.FromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reassign_to column ID"})
			return
		}
		reassignTo = &target
	}

	if err := h.columns.DeleteColumn(c.Request.Context(), userID, columnID, reassignTo); err != nil {
		handleBoardError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ColumnHandler) ReorderColumn(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	columnID, ok := pathID(c, "id", "column")
	if !ok {
		return
	}

	var input struct {
		Position *json.Number `json:"position" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	position, err := parsePosition(*input.Position)
	if err != nil {
		handleBoardError(c, err)
		return
	}

	result, err := h.columns.ReorderColumn(c.Request.Context(), userID, columnID, position)
	if err != nil {
		handleBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
