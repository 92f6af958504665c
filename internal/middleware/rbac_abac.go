package middleware

import (
	"net/http"

	"taskboard/backend/internal/models"
	"taskboard/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
)

const workspaceRoleKey = "workspace_role"

// WorkspaceAccess checks the caller's membership role against action for the
// workspace named by the :workspace_id route parameter. Denials are written
// to the audit log.
func WorkspaceAccess(authz services.AuthorizationService, resource string, action services.Action, logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		workspaceID, err := uuid.FromString(c.Param("workspace_id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid workspace ID"})
			return
		}

		request := services.AuthorizationRequest{
			UserID:      userID,
			WorkspaceID: workspaceID,
			Resource:    resource,
			Action:      action,
			Context:     buildRequestContext(c),
		}

		ctx := c.Request.Context()
		decision, err := authz.IsAuthorized(ctx, request)
		if err != nil {
			logger.WithError(err).WithField("workspace_id", workspaceID).Error("authorization check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			return
		}

		if !decision.Allowed() {
			if err := authz.LogAuthorizationDecision(ctx, *decision); err != nil {
				logger.WithError(err).Warn("failed to write authorization audit log")
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":  "Access denied",
				"reason": decision.Reason,
			})
			return
		}

		c.Set(workspaceRoleKey, decision.Role)
		c.Next()
	}
}

// WorkspaceRole returns the caller's role set by WorkspaceAccess.
func WorkspaceRole(c *gin.Context) (models.Role, bool) {
	v, exists := c.Get(workspaceRoleKey)
	if !exists {
		return "", false
	}
	role, ok := v.(models.Role)
	return role, ok
}

func buildRequestContext(c *gin.Context) map[string]interface{} {
	context := map[string]interface{}{
		"http_method": c.Request.Method,
		"http_path":   c.Request.URL.Path,
		"client_ip":   c.ClientIP(),
	}

	if requestID := c.GetString(requestIDKey); requestID != "" {
		context["request_id"] = requestID
	}
	if ua := c.GetHeader("User-Agent"); ua != "" {
		context["user_agent"] = ua
	}
	return context
}
