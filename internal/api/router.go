package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/catalogsync/internal/api/handler"
	"github.com/timmy/catalogsync/internal/api/middleware"
	"github.com/timmy/catalogsync/internal/config"
)

// Dependencies are the collaborators served over HTTP.
type Dependencies struct {
	Registrar handler.Registrar
	Queue     handler.Queue
	Uploads   handler.UploadReader
	DB        handler.Pinger
	// Events serves the websocket subscription; nil disables /ws.
	Events         http.Handler
	MaxUploadBytes int64
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Dependencies, cfg config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware("/health"))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(deps.DB)
	uploadHandler := handler.NewUploadHandler(deps.Registrar, deps.Queue, deps.Uploads, deps.MaxUploadBytes)

	r.GET("/health", healthHandler.Health)
	if deps.Events != nil {
		r.GET("/ws", gin.WrapH(deps.Events))
	}

	api := r.Group("/api")
	{
		api.POST("/upload", uploadHandler.Upload)
		api.GET("/status", uploadHandler.Status)
		api.GET("/uploads", uploadHandler.List)
	}

	return r
}
