package services

import (
	"context"
	"strings"
	"time"

	"taskboard/backend/internal/models"
	"taskboard/backend/internal/repositories"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
)

type WorkspaceService struct {
	store     repositories.Store
	authz     AuthorizationService
	publisher Publisher
	logger    *log.Logger
}

func NewWorkspaceService(store repositories.Store, authz AuthorizationService, publisher Publisher, logger *log.Logger) *WorkspaceService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &WorkspaceService{store: store, authz: authz, publisher: publisher, logger: logger}
}

// CreateWorkspace creates a workspace owned by actor with the default column
// set seeded at positions 0..3.
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, actor uuid.UUID, name string) (models.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Workspace{}, invalid("workspace name is required")
	}

	workspace := models.Workspace{Name: name, OwnerID: actor}
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.CreateWorkspace(ctx, &workspace); err != nil {
			return err
		}
		owner := models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      actor,
			Role:        models.RoleOwner,
			IsActive:    true,
		}
		if err := tx.UpsertMember(ctx, &owner); err != nil {
			return err
		}
		for _, column := range models.DefaultColumns(workspace.ID) {
			column := column
			if err := tx.CreateColumn(ctx, &column); err != nil {
				return err
			}
			workspace.Columns = append(workspace.Columns, column)
		}
		return nil
	})
	if err != nil {
		return models.Workspace{}, storeErr(err, "create workspace")
	}

	s.logger.WithField("workspace_id", workspace.ID).
		WithField("user_id", actor).
		Info("workspace created")
	s.publisher.Publish(ctx, BoardEvent{
		Type:        EventWorkspaceCreated,
		WorkspaceID: workspace.ID,
		ResourceID:  workspace.ID,
		ActorID:     actor,
		At:          time.Now(),
	})
	return workspace, nil
}

// AddMember grants or changes a user's role. The owner's own role cannot be
// changed this way.
func (s *WorkspaceService) AddMember(ctx context.Context, actor, workspaceID, userID uuid.UUID, role models.Role) (models.WorkspaceMember, error) {
	if !role.Valid() {
		return models.WorkspaceMember{}, invalid("unknown role %q", role)
	}
	if err := s.authz.Authorize(ctx, AuthorizationRequest{
		UserID:      actor,
		WorkspaceID: workspaceID,
		Resource:    "member",
		Action:      ActionManageMembers,
		ResourceID:  &userID,
	}); err != nil {
		return models.WorkspaceMember{}, err
	}

	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return models.WorkspaceMember{}, storeErr(err, "load workspace")
	}
	if workspace.OwnerID == userID {
		return models.WorkspaceMember{}, invalid("workspace owner role is fixed")
	}
	if role == models.RoleOwner {
		return models.WorkspaceMember{}, invalid("a workspace has exactly one owner")
	}

	member := models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		IsActive:    true,
	}
	if err := s.store.UpsertMember(ctx, &member); err != nil {
		return models.WorkspaceMember{}, storeErr(err, "save member")
	}
	return member, nil
}
