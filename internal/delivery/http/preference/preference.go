package http_preference

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/humanbelnik/gamenight/internal/delivery/http/common"
	http_auth_middleware "github.com/humanbelnik/gamenight/internal/delivery/http/middleware/auth"
	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/humanbelnik/gamenight/internal/service/preference_view"
	usecase_preference "github.com/humanbelnik/gamenight/internal/usecase/preference"
)

type Controller struct {
	uc   *usecase_preference.Usecase
	auth *http_auth_middleware.Middleware

	logger *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(uc *usecase_preference.Usecase,
	auth *http_auth_middleware.Middleware,
	opts ...ControllerOption) *Controller {
	c := &Controller{
		uc:     uc,
		auth:   auth,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	prefs := router.Group("/sessions/:session_id/preferences", c.auth.AuthRequired())
	prefs.PUT("", c.submit)
	prefs.GET("/ready", c.ready)
}

type SubmitRequestDTO struct {
	Preferences  []model.PreferenceEntry `json:"preferences"`
	ForLocalUser *model.LocalUser        `json:"forLocalUser,omitempty"`
}

type SubmitResponseDTO struct {
	http_common.Ack
	PreferencesCount int `json:"preferencesCount"`
}

func (c *Controller) submit(ctx *gin.Context) {
	var req SubmitRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		http_common.BadRequest(ctx, c.logger, err)
		return
	}

	n, err := c.uc.Submit(ctx.Request.Context(), http_auth_middleware.CallerUID(ctx), ctx.Param("session_id"),
		usecase_preference.SubmitInput{Preferences: req.Preferences, ForLocalUser: req.ForLocalUser})
	if err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}
	ctx.JSON(http.StatusOK, SubmitResponseDTO{Ack: http_common.OK(), PreferencesCount: n})
}

type ReadyResponseDTO struct {
	http_common.Ack
	Participants []preference_view.Participant `json:"participants"`
}

func (c *Controller) ready(ctx *gin.Context) {
	participants, err := c.uc.ReadyParticipants(ctx.Request.Context(), http_auth_middleware.CallerUID(ctx), ctx.Param("session_id"))
	if err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}
	if participants == nil {
		participants = []preference_view.Participant{}
	}
	ctx.JSON(http.StatusOK, ReadyResponseDTO{Ack: http_common.OK(), Participants: participants})
}
