// Package dragdrop is the client half of board reordering: it tracks the one
// drag in flight, owns the resources that live only while dragging, and turns
// drops into reorder calls against the board API.
package dragdrop

import (
	"context"
	"errors"
	"sync"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrDragInProgress = errors.New("a drag is already in progress")
	ErrNotDragging    = errors.New("no drag in progress")
	ErrWrongDragKind  = errors.New("drag kind does not match drop")
)

type Kind int

const (
	KindNone Kind = iota
	KindTask
	KindColumn
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindColumn:
		return "column"
	default:
		return "none"
	}
}

// State is idle when Kind is KindNone.
type State struct {
	Kind Kind
	ID   uuid.UUID
}

func (s State) Idle() bool { return s.Kind == KindNone }

type SessionConfig struct {
	Scroller   Scroller
	AutoScroll AutoScrollConfig
	Logger     *log.Logger
}

// Session is the drag state machine: idle -> dragging(kind, id) -> idle.
// Every resource acquired for a drag is released when the drag ends, whether
// by drop, failure or cancel.
type Session struct {
	mu       sync.Mutex
	columns  map[uuid.UUID]bool
	state    State
	cancel   context.CancelFunc
	cleanups []func()
	pointer  *Pointer
	scroller Scroller
	scroll   AutoScrollConfig
	logger   *log.Logger
}

func NewSession(columnIDs []uuid.UUID, cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Session{
		pointer:  &Pointer{},
		scroller: cfg.Scroller,
		scroll:   cfg.AutoScroll,
		logger:   logger,
	}
	s.SetColumns(columnIDs)
	return s
}

// SetColumns replaces the ids treated as columns when a drag starts.
func (s *Session) SetColumns(columnIDs []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = make(map[uuid.UUID]bool, len(columnIDs))
	for _, id := range columnIDs {
		s.columns[id] = true
	}
}

// Start begins dragging id. Known column ids start a column drag; anything
// else is a task. The returned context is cancelled when the drag ends.
func (s *Session) Start(ctx context.Context, id uuid.UUID) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Idle() {
		return nil, ErrDragInProgress
	}

	kind := KindTask
	if s.columns[id] {
		kind = KindColumn
	}

	dragCtx, cancel := context.WithCancel(ctx)
	s.state = State{Kind: kind, ID: id}
	s.cancel = cancel
	s.cleanups = nil
	s.pointer.reset()

	if s.scroller != nil {
		stop := StartAutoScroll(dragCtx, s.pointer, s.scroller, s.scroll)
		s.cleanups = append(s.cleanups, stop)
	}

	s.logger.WithField("kind", kind).WithField("id", id).Debug("drag started")
	return dragCtx, nil
}

// Defer registers fn to run when the current drag ends.
func (s *Session) Defer(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Idle() {
		return ErrNotDragging
	}
	s.cleanups = append(s.cleanups, fn)
	return nil
}

// Track records the latest pointer position for auto-scroll. Positions
// reported outside a drag are dropped.
func (s *Session) Track(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Idle() {
		return ErrNotDragging
	}
	s.pointer.Set(x, y)
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// End returns the session to idle and releases the drag's resources in
// reverse order of acquisition. Ending an idle session is a no-op.
func (s *Session) End() {
	s.mu.Lock()
	if s.state.Idle() {
		s.mu.Unlock()
		return
	}
	cleanups := s.cleanups
	cancel := s.cancel
	s.cleanups = nil
	s.cancel = nil
	s.state = State{}
	s.pointer.reset()
	s.mu.Unlock()

	cancel()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
