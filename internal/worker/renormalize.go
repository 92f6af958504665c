package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskboard/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	BoardMaintenanceQueue = "board_maintenance"

	// pendingTTL bounds how long a lost job can block rescheduling a column.
	pendingTTL = 10 * time.Minute
)

func pendingKey(columnID uuid.UUID) string {
	return fmt.Sprintf("renormalize:pending:%s", columnID)
}

// ColumnRenormalizer rewrites a column's task positions. TaskService
// satisfies it.
type ColumnRenormalizer interface {
	RenormalizeColumn(ctx context.Context, columnID uuid.UUID) (int, error)
}

// RenormalizeQueue schedules renormalization jobs. Requests for a column that
// already has a pending job are dropped.
type RenormalizeQueue struct {
	client *redis.Client
	jobs   *JobQueue
}

func NewRenormalizeQueue(client *redis.Client) *RenormalizeQueue {
	return &RenormalizeQueue{client: client, jobs: NewJobQueue(client)}
}

func (q *RenormalizeQueue) ScheduleRenormalize(ctx context.Context, workspaceID, columnID uuid.UUID) error {
	claimed, err := q.client.SetNX(ctx, pendingKey(columnID), workspaceID.String(), pendingTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to mark column pending: %w", err)
	}
	if !claimed {
		return nil
	}

	err = q.jobs.Enqueue(ctx, BoardMaintenanceQueue, JobTypeRenormalizeColumn, map[string]interface{}{
		"workspace_id": workspaceID.String(),
		"column_id":    columnID.String(),
	})
	if err != nil {
		q.client.Del(ctx, pendingKey(columnID))
		return fmt.Errorf("failed to enqueue renormalization: %w", err)
	}
	return nil
}

// RenormalizeHandler runs renormalization jobs. A column deleted since the job
// was queued is not an error.
func RenormalizeHandler(renormalizer ColumnRenormalizer, client *redis.Client, logger *log.Logger) JobHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return func(ctx context.Context, job *Job) error {
		raw, _ := job.Payload["column_id"].(string)
		columnID, err := uuid.FromString(raw)
		if err != nil {
			return fmt.Errorf("bad column_id %q: %w", raw, err)
		}

		rewritten, err := renormalizer.RenormalizeColumn(ctx, columnID)
		if errors.Is(err, services.ErrNotFound) {
			logger.WithField("column_id", columnID).Info("column gone, skipping renormalization")
			err = nil
		}
		if err != nil {
			return err
		}

		client.Del(ctx, pendingKey(columnID))
		logger.WithField("column_id", columnID).
			WithField("rewritten", rewritten).
			Debug("renormalization job done")
		return nil
	}
}
