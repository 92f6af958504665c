package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskboard/backend/internal/models"
	"taskboard/backend/internal/repositories"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Action string

const (
	ActionRead          Action = "read"
	ActionEditTasks     Action = "edit_tasks"
	ActionManageColumns Action = "manage_columns"
	ActionManageMembers Action = "manage_members"
)

const (
	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
)

type AuthorizationService interface {
	RoleFor(ctx context.Context, workspaceID, userID uuid.UUID) (models.Role, error)
	IsAuthorized(ctx context.Context, request AuthorizationRequest) (*AuthorizationDecision, error)
	// Authorize is IsAuthorized folded into an error: nil when allowed,
	// ErrAccessDenied otherwise. Denials are written to the audit log.
	Authorize(ctx context.Context, request AuthorizationRequest) error
	LogAuthorizationDecision(ctx context.Context, decision AuthorizationDecision) error
}

type AuthorizationServiceImpl struct {
	store  repositories.Store
	logger *log.Logger
}

func NewAuthorizationService(store repositories.Store, logger *log.Logger) AuthorizationService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &AuthorizationServiceImpl{store: store, logger: logger}
}

type AuthorizationRequest struct {
	UserID      uuid.UUID              `json:"user_id"`
	WorkspaceID uuid.UUID              `json:"workspace_id"`
	Resource    string                 `json:"resource"`
	Action      Action                 `json:"action"`
	ResourceID  *uuid.UUID             `json:"resource_id"`
	Context     map[string]interface{} `json:"context"`
}

type AuthorizationDecision struct {
	UserID      uuid.UUID              `json:"user_id"`
	WorkspaceID uuid.UUID              `json:"workspace_id"`
	Resource    string                 `json:"resource"`
	Action      Action                 `json:"action"`
	ResourceID  *uuid.UUID             `json:"resource_id"`
	Role        models.Role            `json:"role,omitempty"`
	Decision    string                 `json:"decision"`
	Reason      string                 `json:"reason"`
	Context     map[string]interface{} `json:"context"`
	Timestamp   time.Time              `json:"timestamp"`
}

func (d *AuthorizationDecision) Allowed() bool {
	return d.Decision == DecisionAllowed
}

func (s *AuthorizationServiceImpl) RoleFor(ctx context.Context, workspaceID, userID uuid.UUID) (models.Role, error) {
	member, err := s.store.GetMember(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", denied("not a workspace member")
		}
		return "", storeErr(err, "load membership")
	}
	if !member.IsActive {
		return "", denied("membership is inactive")
	}
	return member.Role, nil
}

func (s *AuthorizationServiceImpl) IsAuthorized(ctx context.Context, request AuthorizationRequest) (*AuthorizationDecision, error) {
	decision := &AuthorizationDecision{
		UserID:      request.UserID,
		WorkspaceID: request.WorkspaceID,
		Resource:    request.Resource,
		Action:      request.Action,
		ResourceID:  request.ResourceID,
		Decision:    DecisionDenied,
		Context:     request.Context,
		Timestamp:   time.Now(),
	}

	member, err := s.store.GetMember(ctx, request.WorkspaceID, request.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			decision.Reason = "User is not a member of the workspace"
			return decision, nil
		}
		decision.Reason = fmt.Sprintf("Membership lookup failed: %v", err)
		return decision, storeErr(err, "load membership")
	}
	decision.Role = member.Role

	if !member.IsActive {
		decision.Reason = "Membership is inactive"
		return decision, nil
	}

	allowed, reason := evaluateRole(member.Role, request.Action)
	decision.Reason = reason
	if allowed {
		decision.Decision = DecisionAllowed
	}
	return decision, nil
}

func evaluateRole(role models.Role, action Action) (bool, string) {
	switch action {
	case ActionRead:
		if role.Valid() {
			return true, "Members can read the board"
		}
	case ActionEditTasks:
		if role.CanEditTasks() {
			return true, "Role may edit tasks"
		}
		return false, fmt.Sprintf("Role %s cannot edit tasks", role)
	case ActionManageColumns:
		if role.CanManageColumns() {
			return true, "Role may manage columns"
		}
		return false, fmt.Sprintf("Role %s cannot manage columns", role)
	case ActionManageMembers:
		if role.CanManageColumns() {
			return true, "Role may manage members"
		}
		return false, fmt.Sprintf("Role %s cannot manage members", role)
	}
	return false, fmt.Sprintf("Unknown role %q or action %q", role, action)
}

func (s *AuthorizationServiceImpl) Authorize(ctx context.Context, request AuthorizationRequest) error {
	decision, err := s.IsAuthorized(ctx, request)
	if err != nil {
		return err
	}
	if decision.Allowed() {
		return nil
	}

	if logErr := s.LogAuthorizationDecision(ctx, *decision); logErr != nil {
		s.logger.WithError(logErr).
			WithField("workspace_id", request.WorkspaceID).
			WithField("user_id", request.UserID).
			Warn("failed to write authorization audit log")
	}
	return denied(decision.Reason)
}

func (s *AuthorizationServiceImpl) LogAuthorizationDecision(ctx context.Context, decision AuthorizationDecision) error {
	var resourceID uuid.UUID
	if decision.ResourceID != nil {
		resourceID = *decision.ResourceID
	}

	contextJSON := ""
	if decision.Context != nil {
		if jsonBytes, err := json.Marshal(decision.Context); err == nil {
			contextJSON = string(jsonBytes)
		}
	}

	entry := models.AuditLog{
		WorkspaceID: decision.WorkspaceID,
		UserID:      decision.UserID,
		Action:      fmt.Sprintf("%s_%s", decision.Action, decision.Resource),
		Resource:    decision.Resource,
		ResourceID:  resourceID,
		Decision:    decision.Decision,
		Reason:      decision.Reason,
		Context:     contextJSON,
		Timestamp:   decision.Timestamp,
	}

	return s.store.CreateAuditLog(ctx, &entry)
}
