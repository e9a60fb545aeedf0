package http

import (
	"context"
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredraw-server/internal/auth"
	"github.com/vovakirdan/wiredraw-server/internal/config"
	"github.com/vovakirdan/wiredraw-server/internal/core"
	"github.com/vovakirdan/wiredraw-server/internal/metrics"
	"github.com/vovakirdan/wiredraw-server/internal/store"
)

// Roster reports the users present in a room. The Redis presence tracker
// implements it; without one the hub's registry answers.
type Roster interface {
	Members(ctx context.Context, roomID int64) ([]string, error)
}

// NewServer builds an HTTP server with gin router. roster may be nil.
func NewServer(
	hub *core.Hub,
	verifier *auth.Verifier,
	st store.ShapeStore,
	roster Roster,
	cfg *config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(metrics.GinMiddleware())

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, verifier, cfg, logger)))

	shapeHandlers := NewShapeHandlers(st, hub.Registry(), roster, cfg.HistoryLimit, logger)

	api := router.Group("/api")
	api.Use(AuthMiddleware(verifier, logger))
	{
		api.GET("/rooms/:roomId/shapes", shapeHandlers.ListShapes)
		api.GET("/rooms/:roomId/presence", shapeHandlers.Presence)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	_, _ = fmt.Fprint(c.Writer, "ok")
}
