package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard/backend/internal/models"
	"taskboard/backend/internal/ordering"
	"taskboard/backend/internal/repositories"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type CreateTaskInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      *models.Status  `json:"status"`
	ColumnID    *uuid.UUID      `json:"column_id"`
	Priority    models.Priority `json:"priority"`
	Assignees   []string        `json:"assignees"`
	Tags        []string        `json:"tags"`
	Attachments []string        `json:"attachments"`
	Links       []string        `json:"links"`
	DueDate     *time.Time      `json:"due_date"`
}

type UpdateTaskInput struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Status      *models.Status   `json:"status"`
	ColumnID    *uuid.UUID       `json:"column_id"`
	Priority    *models.Priority `json:"priority"`
	Assignees   *[]string        `json:"assignees"`
	Tags        *[]string        `json:"tags"`
	Attachments *[]string        `json:"attachments"`
	Links       *[]string        `json:"links"`
	DueDate     *time.Time       `json:"due_date"`
}

// ReorderTaskInput names the drop target. BeforeTaskID is the task that will
// precede the moved one, AfterTaskID the one that will follow it.
type ReorderTaskInput struct {
	NewColumnID  *uuid.UUID     `json:"new_column_id"`
	NewStatus    *models.Status `json:"new_status"`
	BeforeTaskID *uuid.UUID     `json:"before_task_id"`
	AfterTaskID  *uuid.UUID     `json:"after_task_id"`
}

type ColumnView struct {
	models.Column
	Tasks []models.Task `json:"tasks"`
}

type Board struct {
	WorkspaceID uuid.UUID     `json:"workspace_id"`
	Columns     []ColumnView  `json:"columns"`
	Unassigned  []models.Task `json:"unassigned,omitempty"`
}

type TaskService struct {
	store      repositories.Store
	authz      AuthorizationService
	reconciler *Reconciler
	publisher  Publisher
	scheduler  RenormalizeScheduler
	logger     *log.Logger
	now        func() time.Time
}

func NewTaskService(store repositories.Store, authz AuthorizationService, publisher Publisher, scheduler RenormalizeScheduler, logger *log.Logger) *TaskService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &TaskService{
		store:      store,
		authz:      authz,
		reconciler: NewReconciler(),
		publisher:  publisher,
		scheduler:  scheduler,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *TaskService) authorize(ctx context.Context, actor, workspaceID uuid.UUID, action Action, taskID *uuid.UUID) error {
	return s.authz.Authorize(ctx, AuthorizationRequest{
		UserID:      actor,
		WorkspaceID: workspaceID,
		Resource:    "task",
		Action:      action,
		ResourceID:  taskID,
	})
}

func (s *TaskService) loadTask(ctx context.Context, taskID uuid.UUID) (models.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return task, storeErr(err, fmt.Sprintf("task %s", taskID))
	}
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, actor, taskID uuid.UUID) (models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return task, err
	}
	if err := s.authorize(ctx, actor, task.WorkspaceID, ActionRead, &taskID); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskService) CreateTask(ctx context.Context, actor, workspaceID uuid.UUID, input CreateTaskInput) (task models.Task, err error) {
	ctx, span := startSpan(ctx, "TaskService.CreateTask",
		attribute.String("workspace_id", workspaceID.String()))
	defer func() { endSpan(span, err) }()

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return task, invalid("title is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return task, invalid("unknown priority %q", priority)
	}
	if err = s.authorize(ctx, actor, workspaceID, ActionEditTasks, nil); err != nil {
		return task, err
	}

	res, err := s.reconciler.Resolve(ctx, s.store, workspaceID, Target{ColumnID: input.ColumnID, Status: input.Status}, nil)
	if err != nil {
		return task, err
	}

	position, err := s.tailPosition(ctx, res.ColumnID)
	if err != nil {
		return task, err
	}

	now := s.now()
	task = models.Task{
		WorkspaceID: workspaceID,
		Title:       title,
		Description: input.Description,
		Status:      res.Status,
		ColumnID:    res.ColumnID,
		Priority:    priority,
		Assignees:   input.Assignees,
		Tags:        input.Tags,
		Attachments: input.Attachments,
		Links:       input.Links,
		CreatedBy:   actor,
		DueDate:     input.DueDate,
		Position:    position,
		CompletedAt: CompletedAt("", res.Status, nil, now),
	}
	if err = s.store.CreateTask(ctx, &task); err != nil {
		return models.Task{}, storeErr(err, "create task")
	}

	s.publish(ctx, EventTaskCreated, workspaceID, task.ID, actor)
	return task, nil
}

// tailPosition is the key after the last task of a column.
func (s *TaskService) tailPosition(ctx context.Context, columnID *uuid.UUID) (float64, error) {
	if columnID == nil {
		return ordering.DefaultPosition, nil
	}
	last, err := s.store.LastTaskPosition(ctx, *columnID)
	if err != nil {
		return 0, storeErr(err, "load column tail")
	}
	return ordering.Allocate(last, nil), nil
}

func (s *TaskService) UpdateTask(ctx context.Context, actor, taskID uuid.UUID, input UpdateTaskInput) (models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return task, err
	}
	if err := s.authorize(ctx, actor, task.WorkspaceID, ActionEditTasks, &taskID); err != nil {
		return task, err
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return task, invalid("title cannot be empty")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return task, invalid("unknown priority %q", *input.Priority)
		}
		updates["priority"] = *input.Priority
	}
	if input.Assignees != nil {
		updates["assignees"] = models.StringList(*input.Assignees)
	}
	if input.Tags != nil {
		updates["tags"] = models.StringList(*input.Tags)
	}
	if input.Attachments != nil {
		updates["attachments"] = models.StringList(*input.Attachments)
	}
	if input.Links != nil {
		updates["links"] = models.StringList(*input.Links)
	}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}

	if input.ColumnID != nil || input.Status != nil {
		res, err := s.reconciler.Resolve(ctx, s.store, task.WorkspaceID, Target{ColumnID: input.ColumnID, Status: input.Status}, &task)
		if err != nil {
			return task, err
		}
		for k, v := range s.reconciler.Changes(&task, res, s.now()) {
			updates[k] = v
		}
		// A task changing column lands at the tail of its new column.
		if !res.sameColumn(&task) {
			position, err := s.tailPosition(ctx, res.ColumnID)
			if err != nil {
				return task, err
			}
			updates["position"] = position
		}
	}

	if len(updates) == 0 {
		return task, nil
	}
	if err := s.store.UpdateTask(ctx, taskID, updates); err != nil {
		return task, storeErr(err, "update task")
	}

	task, err = s.loadTask(ctx, taskID)
	if err != nil {
		return task, err
	}
	s.publish(ctx, EventTaskUpdated, task.WorkspaceID, taskID, actor)
	return task, nil
}

// ArchiveTask hides a task from the board. Tasks are never hard-deleted.
func (s *TaskService) ArchiveTask(ctx context.Context, actor, taskID uuid.UUID) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, task.WorkspaceID, ActionEditTasks, &taskID); err != nil {
		return err
	}
	if task.IsArchived {
		return nil
	}
	if err := s.store.UpdateTask(ctx, taskID, map[string]interface{}{"is_archived": true}); err != nil {
		return storeErr(err, "archive task")
	}
	s.publish(ctx, EventTaskArchived, task.WorkspaceID, taskID, actor)
	return nil
}

// ReorderTask places a task between two neighbors, optionally in another
// column or status. Only the moved task is written.
func (s *TaskService) ReorderTask(ctx context.Context, actor, taskID uuid.UUID, input ReorderTaskInput) (err error) {
	ctx, span := startSpan(ctx, "TaskService.ReorderTask",
		attribute.String("task_id", taskID.String()))
	defer func() { endSpan(span, err) }()

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err = s.authorize(ctx, actor, task.WorkspaceID, ActionEditTasks, &taskID); err != nil {
		return err
	}

	res, err := s.reconciler.Resolve(ctx, s.store, task.WorkspaceID, Target{ColumnID: input.NewColumnID, Status: input.NewStatus}, &task)
	if err != nil {
		return err
	}

	before, err := s.neighborPosition(ctx, task, input.BeforeTaskID)
	if err != nil {
		return err
	}
	after, err := s.neighborPosition(ctx, task, input.AfterTaskID)
	if err != nil {
		return err
	}

	position := ordering.Allocate(before, after)
	exhausted := ordering.Exhausted(before, after)

	updates := s.reconciler.Changes(&task, res, s.now())
	updates["position"] = position
	if err = s.store.UpdateTask(ctx, taskID, updates); err != nil {
		return storeErr(err, "reorder task")
	}

	span.SetAttributes(attribute.Float64("position", position), attribute.Bool("exhausted", exhausted))
	entry := s.logger.WithField("workspace_id", task.WorkspaceID).
		WithField("task_id", taskID).
		WithField("position", position)
	if res.ColumnID != nil {
		entry = entry.WithField("column_id", *res.ColumnID)
	}
	entry.Debug("task reordered")

	if exhausted && res.ColumnID != nil && s.scheduler != nil {
		if serr := s.scheduler.ScheduleRenormalize(ctx, task.WorkspaceID, *res.ColumnID); serr != nil {
			entry.WithError(serr).Warn("failed to schedule column renormalization")
		} else {
			entry.Info("column positions exhausted, renormalization scheduled")
		}
	}

	s.publish(ctx, EventTaskMoved, task.WorkspaceID, taskID, actor)
	return nil
}

// neighborPosition resolves a drop neighbor. Missing tasks, tasks from other
// workspaces and the moved task itself count as no neighbor.
func (s *TaskService) neighborPosition(ctx context.Context, moved models.Task, id *uuid.UUID) (*float64, error) {
	if id == nil || *id == uuid.Nil || *id == moved.ID {
		return nil, nil
	}
	neighbor, err := s.store.GetTask(ctx, *id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr(err, "load neighbor task")
	}
	if neighbor.WorkspaceID != moved.WorkspaceID {
		return nil, nil
	}
	return ordering.Float(neighbor.Position), nil
}

// RenormalizeColumn rewrites a column's task keys to 1..n in display order.
func (s *TaskService) RenormalizeColumn(ctx context.Context, columnID uuid.UUID) (rewritten int, err error) {
	ctx, span := startSpan(ctx, "TaskService.RenormalizeColumn",
		attribute.String("column_id", columnID.String()))
	defer func() { endSpan(span, err) }()

	column, err := s.store.GetColumn(ctx, columnID)
	if err != nil {
		return 0, storeErr(err, fmt.Sprintf("column %s", columnID))
	}

	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		tasks, err := tx.ListColumnTasks(ctx, columnID)
		if err != nil {
			return err
		}
		for i, key := range ordering.Spread(len(tasks)) {
			if tasks[i].Position == key {
				continue
			}
			if err := tx.UpdateTask(ctx, tasks[i].ID, map[string]interface{}{"position": key}); err != nil {
				return err
			}
			rewritten++
		}
		return nil
	})
	if err != nil {
		return 0, storeErr(err, "renormalize column")
	}

	s.logger.WithField("workspace_id", column.WorkspaceID).
		WithField("column_id", columnID).
		WithField("rewritten", rewritten).
		Info("column renormalized")
	if rewritten > 0 {
		s.publish(ctx, EventColumnRenormalized, column.WorkspaceID, columnID, uuid.Nil)
	}
	return rewritten, nil
}

// Board returns the workspace columns in order with their non-archived tasks.
func (s *TaskService) Board(ctx context.Context, actor, workspaceID uuid.UUID) (*Board, error) {
	if err := s.authorize(ctx, actor, workspaceID, ActionRead, nil); err != nil {
		return nil, err
	}
	return s.LoadBoard(ctx, workspaceID)
}

// LoadBoard builds the board view without an authorization check.
func (s *TaskService) LoadBoard(ctx context.Context, workspaceID uuid.UUID) (*Board, error) {
	return NewBoardReader(s.store).LoadBoard(ctx, workspaceID)
}

// BoardReader assembles board views from the store.
type BoardReader struct {
	store repositories.Store
}

func NewBoardReader(store repositories.Store) *BoardReader {
	return &BoardReader{store: store}
}

func (r *BoardReader) LoadBoard(ctx context.Context, workspaceID uuid.UUID) (*Board, error) {
	columns, err := r.store.ListColumns(ctx, workspaceID)
	if err != nil {
		return nil, storeErr(err, "list columns")
	}
	tasks, err := r.store.ListWorkspaceTasks(ctx, workspaceID)
	if err != nil {
		return nil, storeErr(err, "list tasks")
	}

	board := &Board{WorkspaceID: workspaceID, Columns: make([]ColumnView, len(columns))}
	index := make(map[uuid.UUID]int, len(columns))
	for i, c := range columns {
		board.Columns[i] = ColumnView{Column: c, Tasks: []models.Task{}}
		index[c.ID] = i
	}
	for _, t := range tasks {
		if t.ColumnID != nil {
			if i, ok := index[*t.ColumnID]; ok {
				board.Columns[i].Tasks = append(board.Columns[i].Tasks, t)
				continue
			}
		}
		board.Unassigned = append(board.Unassigned, t)
	}
	return board, nil
}

func (s *TaskService) publish(ctx context.Context, eventType EventType, workspaceID, resourceID, actor uuid.UUID) {
	s.publisher.Publish(ctx, BoardEvent{
		Type:        eventType,
		WorkspaceID: workspaceID,
		ResourceID:  resourceID,
		ActorID:     actor,
		At:          s.now(),
	})
}
