package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Loader produces the value to cache for a warmup job.
type Loader func(ctx context.Context) (interface{}, error)

// Writer stores a loaded value in place of a plain Set. Returning ErrStale
// drops the value without counting a failure.
type Writer func(ctx context.Context, value interface{}) error

type WarmupJob struct {
	Key      string
	TTL      time.Duration
	Priority int
	Load     Loader
	Write    Writer
}

// Warmer refills invalidated keys in the background so the next board read
// after a mutation is served from cache.
type Warmer struct {
	cache   Cache
	queue   *PriorityQueue
	workers int
	wake    chan struct{}
	logger  *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	warmed  atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64
}

func NewWarmer(cache Cache, workers int, logger *log.Logger) *Warmer {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Warmer{
		cache:   cache,
		queue:   NewPriorityQueue(),
		workers: workers,
		wake:    make(chan struct{}, 1),
		logger:  logger,
	}
}

func (w *Warmer) Enqueue(job WarmupJob) {
	if job.Load == nil || job.Key == "" {
		return
	}
	w.queue.Push(job)

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Warmer) Pending() int {
	return w.queue.Len()
}

func (w *Warmer) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	ctx, w.cancel = context.WithCancel(ctx)
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.loop(ctx)
	}
	w.logger.WithField("workers", w.workers).Info("cache warmer started")
}

func (w *Warmer) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("cache warmer stopped")
}

func (w *Warmer) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		if job, ok := w.queue.Pop(); ok {
			w.run(ctx, job)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
		}
	}
}

// WarmNow drains the queue on the calling goroutine and returns the number of
// keys written.
func (w *Warmer) WarmNow(ctx context.Context) int {
	n := 0
	for {
		job, ok := w.queue.Pop()
		if !ok {
			return n
		}
		if w.run(ctx, job) {
			n++
		}
	}
}

func (w *Warmer) run(ctx context.Context, job WarmupJob) bool {
	value, err := job.Load(ctx)
	if err == nil {
		if job.Write != nil {
			err = job.Write(ctx, value)
		} else {
			err = w.cache.Set(ctx, job.Key, value, job.TTL)
		}
	}
	if errors.Is(err, ErrStale) {
		w.skipped.Add(1)
		w.logger.WithField("key", job.Key).Debug("cache warmup superseded")
		return false
	}
	if err != nil {
		w.failed.Add(1)
		w.logger.WithError(err).WithField("key", job.Key).Warn("cache warmup failed")
		return false
	}
	w.warmed.Add(1)
	return true
}

func (w *Warmer) Stats() map[string]interface{} {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	return map[string]interface{}{
		"running": running,
		"workers": w.workers,
		"pending": w.queue.Len(),
		"warmed":  w.warmed.Load(),
		"failed":  w.failed.Load(),
		"skipped": w.skipped.Load(),
	}
}
