package repositories

import (
	"context"
	"time"

	"taskboard/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Store is the task, column and membership data the board core reads and
// writes. Lookups of missing rows return gorm.ErrRecordNotFound.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	CreateWorkspace(ctx context.Context, workspace *models.Workspace) error
	GetWorkspace(ctx context.Context, id uuid.UUID) (models.Workspace, error)
	UpsertMember(ctx context.Context, member *models.WorkspaceMember) error
	GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (models.WorkspaceMember, error)
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error

	GetColumn(ctx context.Context, id uuid.UUID) (models.Column, error)
	ListColumns(ctx context.Context, workspaceID uuid.UUID) ([]models.Column, error)
	CountColumns(ctx context.Context, workspaceID uuid.UUID) (int64, error)
	FindColumnByName(ctx context.Context, workspaceID uuid.UUID, name string) (models.Column, error)
	CreateColumn(ctx context.Context, column *models.Column) error
	UpdateColumn(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	SetColumnPosition(ctx context.Context, id uuid.UUID, position int) error
	DeleteColumn(ctx context.Context, id uuid.UUID) error

	GetTask(ctx context.Context, id uuid.UUID) (models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) error
	UpdateTask(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	ListColumnTasks(ctx context.Context, columnID uuid.UUID) ([]models.Task, error)
	ListWorkspaceTasks(ctx context.Context, workspaceID uuid.UUID) ([]models.Task, error)
	CountActiveTasks(ctx context.Context, columnID uuid.UUID) (int64, error)
	LastTaskPosition(ctx context.Context, columnID uuid.UUID) (*float64, error)
	ReassignTasks(ctx context.Context, r Reassignment) (int64, error)
	DetachTasks(ctx context.Context, columnID uuid.UUID, at time.Time) (int64, error)

	// Transaction runs fn against a store bound to one database transaction.
	// Returning an error from fn rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *GormStore) CreateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	return s.db.WithContext(ctx).Create(workspace).Error
}

func (s *GormStore) GetWorkspace(ctx context.Context, id uuid.UUID) (models.Workspace, error) {
	var workspace models.Workspace
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&workspace).Error
	return workspace, err
}

func (s *GormStore) UpsertMember(ctx context.Context, member *models.WorkspaceMember) error {
	var existing models.WorkspaceMember
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", member.WorkspaceID, member.UserID).
		First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return s.db.WithContext(ctx).Create(member).Error
	}
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", member.WorkspaceID, member.UserID).
		Updates(map[string]interface{}{
			"role":       member.Role,
			"is_active":  member.IsActive,
			"updated_at": time.Now(),
		}).Error
}

func (s *GormStore) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (models.WorkspaceMember, error) {
	var member models.WorkspaceMember
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error
	return member, err
}

func (s *GormStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}
