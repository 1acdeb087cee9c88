package http_init

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/humanbelnik/gamenight/internal/config"
	http_common "github.com/humanbelnik/gamenight/internal/delivery/http/common"
	http_trace_middleware "github.com/humanbelnik/gamenight/internal/delivery/http/middleware/trace"
	"github.com/rs/cors"
)

const apiPrefix = "/api/v1"

type Controller interface {
	RegisterRoutes(router *gin.RouterGroup)
}

type ControllerPool struct {
	api    []Controller
	root   []Controller
	engine *gin.Engine
	server *http.Server
	logger *slog.Logger
}

func NewControllerPool(cfg config.HTTPServer) *ControllerPool {
	engine := gin.New()
	engine.Use(gin.Recovery(), http_trace_middleware.Spans(nil))
	engine.NoRoute(http_common.NotFoundHandler)
	engine.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, http_common.OK())
	})

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-user-token"},
		AllowCredentials: false,
	}).Handler(engine)

	return &ControllerPool{
		engine: engine,
		server: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: slog.Default(),
	}
}

// Add mounts c under the API prefix.
func (pool *ControllerPool) Add(c Controller) {
	pool.api = append(pool.api, c)
}

// AddRoot mounts c at the server root, for websocket routes.
func (pool *ControllerPool) AddRoot(c Controller) {
	pool.root = append(pool.root, c)
}

func (pool *ControllerPool) Register() {
	rg := pool.engine.Group(apiPrefix)
	for _, c := range pool.api {
		c.RegisterRoutes(rg)
	}
	root := pool.engine.Group("")
	for _, c := range pool.root {
		c.RegisterRoutes(root)
	}
}

// Handler is the full handler chain, CORS included.
func (pool *ControllerPool) Handler() http.Handler {
	return pool.server.Handler
}

// RunAll serves until ctx is done, then drains in-flight requests.
func (pool *ControllerPool) RunAll(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		pool.logger.Info("http server listening", slog.String("addr", pool.server.Addr))
		if err := pool.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	pool.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := pool.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
