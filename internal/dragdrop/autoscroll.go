package dragdrop

import (
	"context"
	"sync"
	"time"
)

// Scroller is the horizontally scrolling board container.
type Scroller interface {
	// Edges returns the container's left and right bounds in pointer
	// coordinates.
	Edges() (left, right float64)
	ScrollBy(dx float64)
}

type AutoScrollConfig struct {
	Interval      time.Duration
	EdgeThreshold float64
	Step          float64
}

func (c AutoScrollConfig) withDefaults() AutoScrollConfig {
	if c.Interval <= 0 {
		c.Interval = 16 * time.Millisecond
	}
	if c.EdgeThreshold <= 0 {
		c.EdgeThreshold = 80
	}
	if c.Step <= 0 {
		c.Step = 15
	}
	return c
}

// Pointer holds the last known pointer position of a drag.
type Pointer struct {
	mu    sync.Mutex
	x, y  float64
	known bool
}

func (p *Pointer) Set(x, y float64) {
	p.mu.Lock()
	p.x, p.y, p.known = x, y, true
	p.mu.Unlock()
}

func (p *Pointer) Get() (x, y float64, known bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.x, p.y, p.known
}

func (p *Pointer) reset() {
	p.mu.Lock()
	p.x, p.y, p.known = 0, 0, false
	p.mu.Unlock()
}

// scrollDelta is how far to scroll for a pointer at x; zero outside the edge
// bands.
func scrollDelta(x, left, right float64, cfg AutoScrollConfig) float64 {
	switch {
	case x < left+cfg.EdgeThreshold:
		return -cfg.Step
	case x > right-cfg.EdgeThreshold:
		return cfg.Step
	default:
		return 0
	}
}

// StartAutoScroll polls the pointer on a ticker and scrolls while it sits
// near an edge. The returned stop func blocks until the poller has exited.
func StartAutoScroll(ctx context.Context, pointer *Pointer, scroller Scroller, cfg AutoScrollConfig) (stop func()) {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				x, _, known := pointer.Get()
				if !known {
					continue
				}
				left, right := scroller.Edges()
				if dx := scrollDelta(x, left, right, cfg); dx != 0 {
					scroller.ScrollBy(dx)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
