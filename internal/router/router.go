package router

import (
	"time"

	"taskboard/backend/internal/config"
	"taskboard/backend/internal/handlers"
	"taskboard/backend/internal/middleware"
	"taskboard/backend/internal/monitoring"
	"taskboard/backend/internal/realtime"
	"taskboard/backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Deps is everything the HTTP surface needs. RateLimiter may be nil.
type Deps struct {
	Config      *config.Config
	Logger      *log.Logger
	Tokens      middleware.TokenParser
	Authz       services.AuthorizationService
	Workspaces  handlers.WorkspaceManager
	Boards      handlers.BoardViewer
	Columns     handlers.ColumnManager
	Tasks       handlers.TaskManager
	Hub         *realtime.Hub
	Monitor     *monitoring.Monitor
	RateLimiter *middleware.RateLimiter
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func New(d Deps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.RecoveryWithLog(d.Logger))
	r.Use(cors.New(corsConfig(d.Config.Server.AllowedOrigins)))
	r.Use(d.Monitor.MetricsMiddleware())

	r.GET("/health", d.Monitor.HealthHandler())
	r.GET("/ready", d.Monitor.ReadinessHandler())
	r.GET("/live", d.Monitor.LivenessHandler())
	r.GET("/metrics", d.Monitor.MetricsHandler())

	auth := middleware.Authenticate(d.Tokens)
	readBoard := middleware.WorkspaceAccess(d.Authz, "board", services.ActionRead, d.Logger)

	ws := handlers.NewWebSocketHandler(d.Hub, d.Config.Server.AllowedOrigins, d.Logger)
	r.GET("/ws/workspaces/:workspace_id", auth, readBoard, ws.ServeWS)

	api := r.Group("/api/v1", auth)
	if d.RateLimiter != nil {
		api.Use(d.RateLimiter.Middleware())
	}

	workspaceHandler := handlers.NewWorkspaceHandler(d.Workspaces, d.Boards)
	columnHandler := handlers.NewColumnHandler(d.Columns)
	taskHandler := handlers.NewTaskHandler(d.Tasks)

	api.POST("/workspaces", workspaceHandler.CreateWorkspace)

	workspace := api.Group("/workspaces/:workspace_id")
	{
		workspace.GET("/board", readBoard, workspaceHandler.GetBoard)
		workspace.POST("/members", workspaceHandler.AddMember)
		workspace.GET("/columns", columnHandler.ListColumns)
		workspace.POST("/columns", columnHandler.CreateColumn)
		workspace.POST("/tasks", taskHandler.CreateTask)
	}

	columns := api.Group("/columns")
	{
		columns.PATCH("/:id", columnHandler.UpdateColumn)
		columns.DELETE("/:id", columnHandler.DeleteColumn)
		columns.PUT("/:id/position", columnHandler.ReorderColumn)
	}

	tasks := api.Group("/tasks")
	{
		tasks.GET("/:id", taskHandler.GetTask)
		tasks.PATCH("/:id", taskHandler.UpdateTask)
		tasks.DELETE("/:id", taskHandler.ArchiveTask)
		tasks.PUT("/:id/reorder", taskHandler.ReorderTask)
	}

	return r
}
