package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskboard/backend/internal/cache"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
)

// BoardLoader builds a board straight from the store.
type BoardLoader interface {
	LoadBoard(ctx context.Context, workspaceID uuid.UUID) (*Board, error)
}

// CachedBoardService serves board reads from the multi-level cache. It is
// also a Publisher: every board event drops the workspace's cached board and
// queues a rebuild on the warmer.
type CachedBoardService struct {
	boards BoardLoader
	authz  AuthorizationService
	cache  cache.Cache
	warmer *cache.Warmer
	ttl    time.Duration
	logger *log.Logger

	mu    sync.Mutex
	reads map[uuid.UUID]int
	gens  map[uuid.UUID]uint64 // bumped by Invalidate
}

func NewCachedBoardService(boards BoardLoader, authz AuthorizationService, cacheInstance cache.Cache, warmer *cache.Warmer, ttl time.Duration, logger *log.Logger) *CachedBoardService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &CachedBoardService{
		boards: boards,
		authz:  authz,
		cache:  cacheInstance,
		warmer: warmer,
		ttl:    ttl,
		logger: logger,
		reads:  make(map[uuid.UUID]int),
		gens:   make(map[uuid.UUID]uint64),
	}
}

func boardKey(workspaceID uuid.UUID) string {
	return fmt.Sprintf("board:%s", workspaceID)
}

// Board checks membership on every call; only the board itself is cached.
func (s *CachedBoardService) Board(ctx context.Context, actor, workspaceID uuid.UUID) (*Board, error) {
	if err := s.authz.Authorize(ctx, AuthorizationRequest{
		UserID:      actor,
		WorkspaceID: workspaceID,
		Resource:    "board",
		Action:      ActionRead,
	}); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.reads[workspaceID]++
	gen := s.gens[workspaceID]
	s.mu.Unlock()

	key := boardKey(workspaceID)
	var cached Board
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WithError(err).WithField("workspace_id", workspaceID).Debug("board cache read failed")
	}

	board, err := s.boards.LoadBoard(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	if err := s.store(ctx, workspaceID, gen, board); err != nil && !errors.Is(err, cache.ErrStale) {
		s.logger.WithError(err).WithField("workspace_id", workspaceID).Debug("board cache write failed")
	}
	return board, nil
}

// store caches board only if no invalidation happened since gen was read.
// The lock is held across the write so a concurrent Invalidate either bumps
// the generation first or deletes the key after it.
func (s *CachedBoardService) store(ctx context.Context, workspaceID uuid.UUID, gen uint64, board interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[workspaceID] != gen {
		return cache.ErrStale
	}
	return s.cache.Set(ctx, boardKey(workspaceID), board, s.ttl)
}

// Invalidate drops the cached board and, when a warmer is attached, queues a
// rebuild. Boards read more often are rebuilt first.
func (s *CachedBoardService) Invalidate(ctx context.Context, workspaceID uuid.UUID) {
	s.mu.Lock()
	s.gens[workspaceID]++
	gen := s.gens[workspaceID]
	priority := s.reads[workspaceID]
	s.mu.Unlock()

	if err := s.cache.Delete(ctx, boardKey(workspaceID)); err != nil {
		s.logger.WithError(err).WithField("workspace_id", workspaceID).Warn("board cache invalidation failed")
	}
	if s.warmer == nil {
		return
	}

	s.warmer.Enqueue(cache.WarmupJob{
		Key:      boardKey(workspaceID),
		TTL:      s.ttl,
		Priority: priority,
		Load: func(ctx context.Context) (interface{}, error) {
			return s.boards.LoadBoard(ctx, workspaceID)
		},
		Write: func(ctx context.Context, value interface{}) error {
			return s.store(ctx, workspaceID, gen, value)
		},
	})
}

func (s *CachedBoardService) Publish(ctx context.Context, event BoardEvent) {
	s.Invalidate(ctx, event.WorkspaceID)
}

func (s *CachedBoardService) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"cache": s.cache.Stats(),
	}
	if s.warmer != nil {
		stats["warmer"] = s.warmer.Stats()
	}
	return stats
}
