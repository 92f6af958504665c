package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type JobType string

const (
	JobTypeRenormalizeColumn JobType = "renormalize_column"
)

const DeadQueue = "dead_queue"

type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Queue     string                 `json:"queue"`
	Payload   map[string]interface{} `json:"payload"`
	Attempts  int                    `json:"attempts"`
	MaxTries  int                    `json:"max_tries"`
	CreatedAt time.Time              `json:"created_at"`
	ProcessAt time.Time              `json:"process_at"`
}

type JobHandler func(ctx context.Context, job *Job) error

// delayedKey holds jobs not yet due, scored by their due time in unix millis.
func delayedKey(queue string) string {
	return queue + ":delayed"
}

type Worker struct {
	client      *redis.Client
	handlers    map[JobType]JobHandler
	queues      []string
	pollTimeout time.Duration
	retryBase   time.Duration
	jobTimeout  time.Duration
	logger      *log.Logger
	now         func() time.Time

	mu     sync.RWMutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type WorkerConfig struct {
	RedisClient *redis.Client
	Queues      []string
	// PollTimeout bounds each blocking pop.
	PollTimeout time.Duration
	// RetryBase is the first retry delay; it doubles per attempt.
	RetryBase  time.Duration
	JobTimeout time.Duration
	Logger     *log.Logger
}

func NewWorker(config WorkerConfig) *Worker {
	if config.PollTimeout <= 0 {
		config.PollTimeout = 5 * time.Second
	}
	if config.RetryBase <= 0 {
		config.RetryBase = time.Minute
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.StandardLogger()
	}

	return &Worker{
		client:      config.RedisClient,
		handlers:    make(map[JobType]JobHandler),
		queues:      config.Queues,
		pollTimeout: config.PollTimeout,
		retryBase:   config.RetryBase,
		jobTimeout:  config.JobTimeout,
		logger:      config.Logger,
		now:         time.Now,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

func (w *Worker) Start(ctx context.Context, concurrency int) {
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.logger.WithField("concurrency", concurrency).
		WithField("queues", w.queues).
		Info("starting worker")

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx)
	}
}

func (w *Worker) Stop() {
	w.mu.RLock()
	cancel := w.cancel
	w.mu.RUnlock()
	if cancel == nil {
		return
	}

	w.logger.Info("stopping worker")
	cancel()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) workerLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := w.ProcessNext(ctx); err != nil && ctx.Err() == nil {
			w.logger.WithError(err).Error("error processing job")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessNext promotes due retries, then waits up to the poll timeout for one
// job and runs it. It reports whether a job was taken.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	for _, queue := range w.queues {
		if err := w.promoteDelayed(ctx, queue); err != nil {
			return false, err
		}
	}

	result, err := w.client.BLPop(ctx, w.pollTimeout, w.queues...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to pop job: %w", err)
	}
	if len(result) < 2 {
		return false, fmt.Errorf("invalid job result")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return true, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.Queue == "" {
		job.Queue = result[0]
	}

	return true, w.executeJob(ctx, &job)
}

func (w *Worker) promoteDelayed(ctx context.Context, queue string) error {
	due, err := w.client.ZRangeByScore(ctx, delayedKey(queue), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(w.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read delayed jobs: %w", err)
	}

	for _, data := range due {
		removed, err := w.client.ZRem(ctx, delayedKey(queue), data).Result()
		if err != nil {
			return fmt.Errorf("failed to claim delayed job: %w", err)
		}
		// another worker got it first
		if removed == 0 {
			continue
		}
		if err := w.client.RPush(ctx, queue, data).Err(); err != nil {
			return fmt.Errorf("failed to promote delayed job: %w", err)
		}
	}
	return nil
}

func (w *Worker) executeJob(ctx context.Context, job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	entry := w.logger.WithField("job_id", job.ID).WithField("job_type", job.Type)
	if !exists {
		return w.moveToDeadQueue(ctx, job, fmt.Errorf("no handler registered for job type: %s", job.Type))
	}

	entry.Debug("processing job")

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	if err := handler(jobCtx, job); err != nil {
		job.Attempts++
		if job.Attempts < job.MaxTries {
			entry.WithError(err).
				WithField("attempt", job.Attempts).
				WithField("max_tries", job.MaxTries).
				Warn("job failed, retrying")
			return w.retryJob(ctx, job)
		}

		entry.WithError(err).
			WithField("attempts", job.Attempts).
			Error("job failed permanently")
		return w.moveToDeadQueue(ctx, job, err)
	}

	entry.Debug("job completed")
	return nil
}

func (w *Worker) retryJob(ctx context.Context, job *Job) error {
	delay := w.retryBase * time.Duration(1<<(job.Attempts-1))
	job.ProcessAt = w.now().Add(delay)
	return schedule(ctx, w.client, job)
}

func (w *Worker) moveToDeadQueue(ctx context.Context, job *Job, jobErr error) error {
	deadJob := map[string]interface{}{
		"original_job": job,
		"error":        jobErr.Error(),
		"failed_at":    w.now(),
	}

	deadJobData, err := json.Marshal(deadJob)
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}

	return w.client.RPush(ctx, DeadQueue, deadJobData).Err()
}

// schedule pushes a due job onto its queue, or parks it in the delayed set.
func schedule(ctx context.Context, client *redis.Client, job *Job) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if job.ProcessAt.After(time.Now()) {
		return client.ZAdd(ctx, delayedKey(job.Queue), redis.Z{
			Score:  float64(job.ProcessAt.UnixMilli()),
			Member: jobData,
		}).Err()
	}
	return client.RPush(ctx, job.Queue, jobData).Err()
}

type JobQueue struct {
	client   *redis.Client
	maxTries int
}

func NewJobQueue(client *redis.Client) *JobQueue {
	return &JobQueue{client: client, maxTries: 3}
}

func (q *JobQueue) Enqueue(ctx context.Context, queue string, jobType JobType, payload map[string]interface{}) error {
	return q.EnqueueAt(ctx, queue, jobType, payload, time.Now())
}

func (q *JobQueue) EnqueueAt(ctx context.Context, queue string, jobType JobType, payload map[string]interface{}, processAt time.Time) error {
	job := &Job{
		ID:        uuid.Must(uuid.NewV4()).String(),
		Type:      jobType,
		Queue:     queue,
		Payload:   payload,
		MaxTries:  q.maxTries,
		CreatedAt: time.Now(),
		ProcessAt: processAt,
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return schedule(ctx, q.client, job)
}

func (q *JobQueue) QueueSize(ctx context.Context, queue string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return q.client.LLen(ctx, queue).Result()
}

func (q *JobQueue) DelayedSize(ctx context.Context, queue string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return q.client.ZCard(ctx, delayedKey(queue)).Result()
}
