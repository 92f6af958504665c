package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"taskboard/backend/internal/config"
	"taskboard/backend/internal/database"
	"taskboard/backend/internal/models"
	"taskboard/backend/internal/repositories"
	"taskboard/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var boardConfig = config.BoardConfig{MinColumns: 2, MaxColumns: 4}

type boardFixture struct {
	db        *gorm.DB
	store     *repositories.GormStore
	authz     services.AuthorizationService
	workspace models.Workspace
	columns   map[string]models.Column

	owner    uuid.UUID
	admin    uuid.UUID
	member   uuid.UUID
	viewer   uuid.UUID
	outsider uuid.UUID
}

func newID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

func newBoardFixture(t *testing.T) *boardFixture {
	t.Helper()

	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	logger, _ := test.NewNullLogger()
	store := repositories.NewGormStore(db)
	authz := services.NewAuthorizationService(store, logger)

	f := &boardFixture{
		db:       db,
		store:    store,
		authz:    authz,
		owner:    newID(),
		admin:    newID(),
		member:   newID(),
		viewer:   newID(),
		outsider: newID(),
	}

	workspaces := services.NewWorkspaceService(store, authz, nil, logger)
	ctx := context.Background()
	f.workspace, err = workspaces.CreateWorkspace(ctx, f.owner, "Roadmap")
	require.NoError(t, err)

	for user, role := range map[uuid.UUID]models.Role{
		f.admin:  models.RoleAdmin,
		f.member: models.RoleMember,
		f.viewer: models.RoleViewer,
	} {
		_, err := workspaces.AddMember(ctx, f.owner, f.workspace.ID, user, role)
		require.NoError(t, err)
	}

	f.reloadColumns(t)
	return f
}

func (f *boardFixture) reloadColumns(t *testing.T) []models.Column {
	t.Helper()
	columns, err := f.store.ListColumns(context.Background(), f.workspace.ID)
	require.NoError(t, err)
	f.columns = make(map[string]models.Column, len(columns))
	for _, c := range columns {
		f.columns[c.Name] = c
	}
	return columns
}

func (f *boardFixture) columnNames(t *testing.T) []string {
	t.Helper()
	columns := f.reloadColumns(t)
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

func (f *boardFixture) columnPositions(t *testing.T) []int {
	t.Helper()
	columns := f.reloadColumns(t)
	positions := make([]int, len(columns))
	for i, c := range columns {
		positions[i] = c.Position
	}
	return positions
}

// addTask inserts a task directly at a given position.
func (f *boardFixture) addTask(t *testing.T, title string, column models.Column, position float64) models.Task {
	t.Helper()
	status, ok := models.StatusForColumnName(column.Name)
	if !ok {
		status = models.StatusTodo
	}
	task := models.Task{
		WorkspaceID: column.WorkspaceID,
		Title:       title,
		Status:      status,
		ColumnID:    &column.ID,
		Priority:    models.PriorityMedium,
		CreatedBy:   f.owner,
		Position:    position,
	}
	require.NoError(t, f.store.CreateTask(context.Background(), &task))
	return task
}

func (f *boardFixture) task(t *testing.T, id uuid.UUID) models.Task {
	t.Helper()
	task, err := f.store.GetTask(context.Background(), id)
	require.NoError(t, err)
	return task
}

// failingStore fails column position writes after a number of successful
// ones, inside or outside a transaction.
type failingStore struct {
	repositories.Store
	allowed int
	calls   *int
}

var errDiskFull = errors.New("disk full")

func newFailingStore(inner repositories.Store, allowed int) *failingStore {
	return &failingStore{Store: inner, allowed: allowed, calls: new(int)}
}

func (f *failingStore) SetColumnPosition(ctx context.Context, id uuid.UUID, position int) error {
	*f.calls++
	if *f.calls > f.allowed {
		return errDiskFull
	}
	return f.Store.SetColumnPosition(ctx, id, position)
}

func (f *failingStore) Transaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	return f.Store.Transaction(ctx, func(tx repositories.Store) error {
		return fn(&failingStore{Store: tx, allowed: f.allowed, calls: f.calls})
	})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []services.BoardEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event services.BoardEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []services.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]services.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) ScheduleRenormalize(ctx context.Context, workspaceID, columnID uuid.UUID) error {
	args := m.Called(ctx, workspaceID, columnID)
	return args.Error(0)
}
