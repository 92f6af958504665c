package handlers

import (
	"net/http"

	"taskboard/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	tasks TaskManager
}

func NewTaskHandler(tasks TaskManager) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathID(c, "workspace_id", "workspace")
	if !ok {
		return
	}

	var input services.CreateTaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), userID, workspaceID, input)
	if err != nil {
		handleBoardError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id", "task")
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), userID, taskID)
	if err != nil {
		handleBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id", "task")
	if !ok {
		return
	}

	var input services.UpdateTaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), userID, taskID, input)
	if err != nil {
		handleBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// ArchiveTask is the DELETE verb; tasks are soft deleted.
func (h *TaskHandler) ArchiveTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id", "task")
	if !ok {
		return
	}

	if err := h.tasks.ArchiveTask(c.Request.Context(), userID, taskID); err != nil {
		handleBoardError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) ReorderTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id", "task")
	if !ok {
		return
	}

	var input services.ReorderTaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tasks.ReorderTask(c.Request.Context(), userID, taskID, input); err != nil {
		handleBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
