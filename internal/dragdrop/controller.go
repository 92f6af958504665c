package dragdrop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskboard/backend/internal/config"
	"taskboard/backend/internal/ordering"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
)

type ReorderResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BoardClient is the server side of a drop.
type BoardClient interface {
	ReorderColumn(ctx context.Context, columnID uuid.UUID, position int) (ReorderResult, error)
	ReorderTask(ctx context.Context, taskID uuid.UUID, move TaskMove) error
}

type ControllerConfig struct {
	ColumnAttempts   int
	ColumnRetryDelay time.Duration
	Logger           *log.Logger
}

// ControllerConfigFromConfig takes the column retry policy from the board
// settings shared with the server.
func ControllerConfigFromConfig(board config.BoardConfig, logger *log.Logger) ControllerConfig {
	return ControllerConfig{
		ColumnAttempts:   board.ReorderAttempts,
		ColumnRetryDelay: board.ReorderRetryDelay,
		Logger:           logger,
	}
}

// Controller turns drops into reorder calls. Column drops are shown
// optimistically and retried; task drops are sent once.
type Controller struct {
	session  *Session
	client   BoardClient
	columns  *Optimistic[[]uuid.UUID]
	attempts int
	delay    time.Duration
	logger   *log.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewController(session *Session, client BoardClient, columnIDs []uuid.UUID, cfg ControllerConfig) *Controller {
	if cfg.ColumnAttempts <= 0 {
		cfg.ColumnAttempts = 3
	}
	if cfg.ColumnRetryDelay <= 0 {
		cfg.ColumnRetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
	return &Controller{
		session:  session,
		client:   client,
		columns:  NewOptimistic(append([]uuid.UUID(nil), columnIDs...)),
		attempts: cfg.ColumnAttempts,
		delay:    cfg.ColumnRetryDelay,
		logger:   cfg.Logger,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Columns is the column order as currently displayed.
func (c *Controller) Columns() []uuid.UUID {
	return c.columns.View()
}

// ResetColumns installs the order from a board refetch.
func (c *Controller) ResetColumns(columnIDs []uuid.UUID) {
	ids := append([]uuid.UUID(nil), columnIDs...)
	c.columns.Reset(ids)
	c.session.SetColumns(ids)
}

// DropColumn finishes a column drag at targetIndex. The new order is shown at
// once and kept only if the server accepts it within the configured
// attempts; otherwise it is rolled back and the last error returned.
func (c *Controller) DropColumn(ctx context.Context, targetIndex int) error {
	defer c.session.End()

	state := c.session.State()
	if state.Idle() {
		return ErrNotDragging
	}
	if state.Kind != KindColumn {
		return ErrWrongDragKind
	}

	current := c.columns.View()
	from := indexOf(current, state.ID)
	if from < 0 {
		return fmt.Errorf("column %s is not on the board", state.ID)
	}
	to := ordering.ClampIndex(targetIndex, len(current))
	if from == to {
		return nil
	}

	c.columns.Propose(ordering.Move(current, from, to))

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		result, err := c.client.ReorderColumn(ctx, state.ID, to)
		if err == nil && !result.Success {
			err = errors.New(result.Message)
		}
		if err == nil {
			c.columns.Commit()
			return nil
		}
		lastErr = err

		entry := c.logger.WithError(err).WithField("column_id", state.ID).WithField("attempt", attempt)
		if attempt == c.attempts {
			entry.Error("column reorder failed, rolling back")
			break
		}
		entry.Warn("column reorder failed, retrying")
		if err := c.sleep(ctx, c.delay); err != nil {
			lastErr = err
			break
		}
	}

	c.columns.Rollback()
	return fmt.Errorf("reorder column: %w", lastErr)
}

// DropTask finishes a task drag over target. A nil target is a drop on
// nothing and only ends the drag. The server call is made once.
func (c *Controller) DropTask(ctx context.Context, board Board, target *DropTarget) error {
	defer c.session.End()

	state := c.session.State()
	if state.Idle() {
		return ErrNotDragging
	}
	if state.Kind != KindTask {
		return ErrWrongDragKind
	}
	if target == nil {
		return nil
	}

	move, ok := ResolveTaskDrop(board, state.ID, *target)
	if !ok {
		return nil
	}
	if err := c.client.ReorderTask(ctx, state.ID, move); err != nil {
		c.logger.WithError(err).WithField("task_id", state.ID).Error("task reorder failed")
		return fmt.Errorf("reorder task: %w", err)
	}
	return nil
}

// Cancel abandons the drag without touching the board.
func (c *Controller) Cancel() {
	c.session.End()
}

func indexOf(ids []uuid.UUID, id uuid.UUID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
