package http_session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	http_common "github.com/humanbelnik/gamenight/internal/delivery/http/common"
	http_auth_middleware "github.com/humanbelnik/gamenight/internal/delivery/http/middleware/auth"
	"github.com/humanbelnik/gamenight/internal/model"
	usecase_session "github.com/humanbelnik/gamenight/internal/usecase/session"
)

type Controller struct {
	uc   *usecase_session.Usecase
	auth *http_auth_middleware.Middleware

	logger *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(uc *usecase_session.Usecase,
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
	router.GET("/sessions/:session_id/preview", c.auth.AuthOptional(), c.preview)

	sessions := router.Group("/sessions", c.auth.AuthRequired())
	{
		sessions.POST("", c.create)
		sessions.DELETE("/:session_id", c.delete)
		sessions.POST("/:session_id/claims", c.claim)
		sessions.POST("/:session_id/ready", c.ready)
		sessions.GET("/:session_id/games", c.games)
		sessions.GET("/:session_id/members", c.members)
		sessions.DELETE("/:session_id/members/:uid", c.removeGuest)
		sessions.PUT("/:session_id/selected-game", c.selectGame)
		sessions.POST("/:session_id/close", c.close)
	}
}

type GameUploadDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	YearPublished      *int   `json:"yearPublished,omitempty"`
	Thumbnail          string `json:"thumbnail,omitempty"`
	Image              string `json:"image,omitempty"`
	MinPlayers         *int   `json:"minPlayers,omitempty"`
	MaxPlayers         *int   `json:"maxPlayers,omitempty"`
	PlayingTimeMinutes *int   `json:"playingTimeMinutes,omitempty"`
	MinPlayTimeMinutes *int   `json:"minPlayTimeMinutes,omitempty"`
	MaxPlayTimeMinutes *int   `json:"maxPlayTimeMinutes,omitempty"`
}

func (g GameUploadDTO) toModel() model.SharedGame {
	return model.SharedGame{
		ID:                 g.ID,
		Name:               g.Name,
		YearPublished:      g.YearPublished,
		Thumbnail:          g.Thumbnail,
		Image:              g.Image,
		MinPlayers:         g.MinPlayers,
		MaxPlayers:         g.MaxPlayers,
		PlayingTimeMinutes: g.PlayingTimeMinutes,
		MinPlayTimeMinutes: g.MinPlayTimeMinutes,
		MaxPlayTimeMinutes: g.MaxPlayTimeMinutes,
	}
}

type NamedParticipantDTO struct {
	DisplayName string                  `json:"displayName"`
	Preferences []model.PreferenceEntry `json:"preferences,omitempty"`
}

type CreateRequestDTO struct {
	Title                      string                `json:"title"`
	ScheduledFor               time.Time             `json:"scheduledFor"`
	Capacity                   *int                  `json:"capacity,omitempty"`
	MinPlayers                 *int                  `json:"minPlayers,omitempty"`
	MaxPlayers                 *int                  `json:"maxPlayers,omitempty"`
	MinPlayingTimeMinutes      *int                  `json:"minPlayingTimeMinutes,omitempty"`
	MaxPlayingTimeMinutes      *int                  `json:"maxPlayingTimeMinutes,omitempty"`
	HostDisplayName            string                `json:"hostDisplayName"`
	ShareMode                  string                `json:"shareMode,omitempty"`
	ShowOtherParticipantsPicks *bool                 `json:"showOtherParticipantsPicks,omitempty"`
	GameIDs                    []string              `json:"gameIds"`
	Games                      []GameUploadDTO       `json:"games"`
	NamedParticipants          []NamedParticipantDTO `json:"namedParticipants,omitempty"`
}

type CreateResponseDTO struct {
	http_common.Ack
	SessionID     string `json:"sessionId"`
	GamesUploaded int    `json:"gamesUploaded"`
}

func (c *Controller) create(ctx *gin.Context) {
	var req CreateRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		http_common.BadRequest(ctx, c.logger, err)
		return
	}

	in := usecase_session.CreateInput{
		Title:        req.Title,
		ScheduledFor: req.ScheduledFor,
		Capacity:     req.Capacity,
		Filters: model.Filters{
			MinPlayers:            req.MinPlayers,
			MaxPlayers:            req.MaxPlayers,
			MinPlayingTimeMinutes: req.MinPlayingTimeMinutes,
			MaxPlayingTimeMinutes: req.MaxPlayingTimeMinutes,
		},
		HostDisplayName:            req.HostDisplayName,
		ShareMode:                  req.ShareMode,
		ShowOtherParticipantsPicks: req.ShowOtherParticipantsPicks,
		GameIDs:                    req.GameIDs,
	}
	for _, g := range req.Games {
		in.Games = append(in.Games, g.toModel())
	}
	for _, p := range req.NamedParticipants {
		in.NamedParticipants = append(in.NamedParticipants, usecase_session.NamedParticipantInput{
			DisplayName: p.DisplayName,
			Preferences: p.Preferences,
		})
	}

	res, err := c.uc.Create(ctx.Request.Context(), http_auth_middleware.CallerUID(ctx), in)
	if err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}

	ctx.JSON(http.StatusCreated, CreateResponseDTO{
		Ack:           http_common.OK(),
		SessionID:     res.SessionID,
		GamesUploaded: res.GamesUploaded,
	})
}

type NamedSlotDTO struct {
	ParticipantID        string `json:"participantId"`
	DisplayName          string `json:"displayName"`
	HasSharedPreferences bool   `json:"hasSharedPreferences"`
}

type PreviewResponseDTO struct {
	http_common.Ack
	SessionID                  string              `json:"sessionId"`
	Title                      string              `json:"title"`
	HostName                   string              `json:"hostName,omitempty"`
	ScheduledFor               time.Time           `json:"scheduledFor"`
	Capacity                   int                 `json:"capacity"`
	ClaimedCount               int                 `json:"claimedCount"`
	AvailableSlots             int                 `json:"availableSlots"`
	NamedSlots                 []NamedSlotDTO      `json:"namedSlots"`
	Filters                    model.Filters       `json:"filters"`
	ShareMode                  model.ShareMode     `json:"shareMode"`
	ShowOtherParticipantsPicks bool                `json:"showOtherParticipantsPicks"`
	Status                     model.SessionStatus `json:"status"`
	SelectedGame               *model.GamePick     `json:"selectedGame,omitempty"`
	Result                     *model.GamePick     `json:"result,omitempty"`
	ExpiresAt                  time.Time           `json:"expiresAt"`
	CallerRole                 *model.Role         `json:"callerRole,omitempty"`
	CallerReady                *bool               `json:"callerReady,omitempty"`
	CallerParticipantID        string              `json:"callerParticipantId,omitempty"`
}

func (c *Controller) preview(ctx *gin.Context) {
	p, err := c.uc.Preview(ctx.Request.Context(), http_auth_middleware.CallerUID(ctx), ctx.Param("session_id"))
	if err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}

	slots := make([]NamedSlotDTO, 0, len(p.NamedSlots))
	for _, s := range p.NamedSlots {
		slots = append(slots, NamedSlotDTO{
			ParticipantID:        s.ParticipantID,
			DisplayName:          s.DisplayName,
			HasSharedPreferences: s.HasSharedPreferences,
		})
	}

	ctx.JSON(http.StatusOK, PreviewResponseDTO{
		Ack:                        http_common.OK(),
		SessionID:                  p.SessionID,
		Title:                      p.Title,
		HostName:                   p.HostName,
		ScheduledFor:               p.ScheduledFor,
		Capacity:                   p.Capacity,
		ClaimedCount:               p.ClaimedCount,
		AvailableSlots:             p.AvailableSlots,
		NamedSlots:                 slots,
		Filters:                    p.Filters,
		ShareMode:                  p.ShareMode,
		ShowOtherParticipantsPicks: p.ShowOtherParticipantsPicks,
		Status:                     p.Status,
		SelectedGame:               p.SelectedGame,
		Result:                     p.Result,
		ExpiresAt:                  p.ExpiresAt,
		CallerRole:                 p.CallerRole,
		CallerReady:                p.CallerReady,
		CallerParticipantID:        p.CallerParticipantID,
	})
}

type ClaimRequestDTO struct {
	DisplayName   string `json:"displayName"`
	ParticipantID string `json:"participantId,omitempty"`
}

type ClaimResponseDTO struct {
	http_common.Ack
	ParticipantID        string `json:"participantId"`
	HasSharedPreferences bool   `json:"hasSharedPreferences"`
}

// claim is not idempotent. Clients must not retry it on their own.
func (c *Controller) claim(ctx *gin.Context) {
	var req ClaimRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		http_common.BadRequest(ctx, c.logger, err)
		return
	}

	res, err := c.uc.Claim(ctx.Request.Context(), http_auth_middleware.CallerUID(ctx), ctx.Param("session_id"),
		usecase_session.ClaimInput{DisplayName: req.DisplayName, ParticipantID: req.ParticipantID})
	if err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}

	ctx.JSON(http.StatusOK, ClaimResponseDTO{
		Ack:                  http_common.OK(),
		ParticipantID:        res.ParticipantID,
		HasSharedPreferences: res.HasSharedPreferences,
	})
}

func (c *Controller) ready(ctx *gin.Context) {
	if err := c.uc.SetReady(ctx.Request.Context(), http_auth_middleware.CallerUID(ctx), ctx.Param("session_id")); err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}
	ctx.JSON(http.StatusOK, http_common.OK())
}

type GamesResponseDTO struct {
	http_common.Ack
	Games []model.SharedGame `json:"games"`
}

func (c *Controller) games(ctx *gin.Context) {
	games, err := c.uc.Games(ctx.Request.Context(), http_auth_middleware.CallerUID(ctx), ctx.Param("session_id"))
	if err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}
	if games == nil {
		games = []model.SharedGame{}
	}
	ctx.JSON(http.StatusOK, GamesResponseDTO{Ack: http_common.OK(), Games: games})
}

type MemberDTO struct {
	UID           string     `json:"uid"`
	ParticipantID string     `json:"participantId"`
	Role          model.Role `json:"role"`
	DisplayName   string     `json:"displayName"`
	Ready         bool       `json:"ready"`
	JoinedAt      time.Time  `json:"joinedAt"`
	HasSubmitted  bool       `json:"hasSubmitted"`
}

type MembersResponseDTO struct {
	http_common.Ack
	Members []MemberDTO `json:"members"`
}

func (c *Controller) members(ctx *gin.Context) {
	views, err := c.uc.Members(ctx.Request.Context(), http_auth_middleware.CallerUID(ctx), ctx.Param("session_id"))
	if err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}

	members := make([]MemberDTO, 0, len(views))
	for _, m := range views {
		members = append(members, MemberDTO{
			UID:           m.UID,
			ParticipantID: m.ParticipantID,
			Role:          m.Role,
			DisplayName:   m.DisplayName,
			Ready:         m.Ready,
			JoinedAt:      m.JoinedAt,
			HasSubmitted:  m.HasSubmitted,
		})
	}
	ctx.JSON(http.StatusOK, MembersResponseDTO{Ack: http_common.OK(), Members: members})
}

func (c *Controller) removeGuest(ctx *gin.Context) {
	err := c.uc.RemoveGuest(ctx.Request.Context(), http_auth_middleware.CallerUID(ctx), ctx.Param("session_id"), ctx.Param("uid"))
	if err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}
	ctx.JSON(http.StatusOK, http_common.OK())
}

type SelectGameRequestDTO struct {
	SelectedGame model.GamePick `json:"selectedGame"`
}

type StatusChangeResponseDTO struct {
	http_common.Ack
	Status     model.SessionStatus `json:"status"`
	SelectedAt *time.Time          `json:"selectedAt,omitempty"`
	ClosedAt   *time.Time          `json:"closedAt,omitempty"`
}

func (c *Controller) selectGame(ctx *gin.Context) {
	var req SelectGameRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		http_common.BadRequest(ctx, c.logger, err)
		return
	}

	change, err := c.uc.SetSelectedGame(ctx.Request.Context(), http_auth_middleware.CallerUID(ctx), ctx.Param("session_id"), req.SelectedGame)
	if err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}
	ctx.JSON(http.StatusOK, StatusChangeResponseDTO{
		Ack:        http_common.OK(),
		Status:     change.Status,
		SelectedAt: &change.At,
	})
}

type CloseRequestDTO struct {
	Result *model.GamePick `json:"result,omitempty"`
}

// close accepts an empty body for closing without a result.
func (c *Controller) close(ctx *gin.Context) {
	var req CloseRequestDTO
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			http_common.BadRequest(ctx, c.logger, err)
			return
		}
	}

	change, err := c.uc.Close(ctx.Request.Context(), http_auth_middleware.CallerUID(ctx), ctx.Param("session_id"), req.Result)
	if err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}
	ctx.JSON(http.StatusOK, StatusChangeResponseDTO{
		Ack:      http_common.OK(),
		Status:   change.Status,
		ClosedAt: &change.At,
	})
}

type DeleteResponseDTO struct {
	http_common.Ack
	SessionID string `json:"sessionId"`
}

func (c *Controller) delete(ctx *gin.Context) {
	id, err := c.uc.Delete(ctx.Request.Context(), http_auth_middleware.CallerUID(ctx), ctx.Param("session_id"))
	if err != nil {
		http_common.WriteError(ctx, c.logger, err)
		return
	}
	ctx.JSON(http.StatusOK, DeleteResponseDTO{Ack: http_common.OK(), SessionID: id})
}
