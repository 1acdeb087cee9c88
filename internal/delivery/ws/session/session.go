package ws_session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	http_common "github.com/humanbelnik/gamenight/internal/delivery/http/common"
	"github.com/humanbelnik/gamenight/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ProjectionSource interface {
	Projection(ctx context.Context, sessionID string) (model.StatusProjection, error)
}

type Controller struct {
	source ProjectionSource
	hub    *Hub

	logger *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func NewController(source ProjectionSource,
	hub *Hub,
	opts ...ControllerOption) *Controller {
	c := &Controller{
		source: source,
		hub:    hub,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws/sessions/:session_id", c.watch)
}

func (c *Controller) watch(ctx *gin.Context) {
	sessionID := ctx.Param("session_id")

	projection, err := c.source.Projection(ctx.Request.Context(), sessionID)
	if err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("failed to upgrade to websocket",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		return
	}

	client := NewClient(conn, sessionID)
	c.hub.RegisterClient(client)
	c.hub.Enqueue(client, projection)

	go c.hub.StartClientReading(client)
	go c.hub.StartClientWriting(client)
}
