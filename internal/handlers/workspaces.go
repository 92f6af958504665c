package handlers

import (
	"net/http"

	"taskboard/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type WorkspaceHandler struct {
	workspaces WorkspaceManager
	boards     BoardViewer
}

func NewWorkspaceHandler(workspaces WorkspaceManager, boards BoardViewer) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces, boards: boards}
}

// CreateWorkspace creates a workspace owned by the caller, seeded with the
// default columns.
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	workspace, err := h.workspaces.CreateWorkspace(c.Request.Context(), userID, input.Name)
	if err != nil {
		handleBoardError(c, err)
		return
	}
	c.JSON(http.StatusCreated, workspace)
}

func (h *WorkspaceHandler) AddMember(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathID(c, "workspace_id", "workspace")
	if !ok {
		return
	}

	var input struct {
		UserID uuid.UUID   `json:"user_id" binding:"required"`
		Role   models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.workspaces.AddMember(c.Request.Context(), userID, workspaceID, input.UserID, input.Role)
	if err != nil {
		handleBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// GetBoard returns the ordered columns with their non-archived tasks.
func (h *WorkspaceHandler) GetBoard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathID(c, "workspace_id", "workspace")
	if !ok {
		return
	}

	board, err := h.boards.Board(c.Request.Context(), userID, workspaceID)
	if err != nil {
		handleBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}
