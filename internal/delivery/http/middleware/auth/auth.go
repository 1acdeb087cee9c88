package http_auth_middleware

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	http_common "github.com/humanbelnik/gamenight/internal/delivery/http/common"
)

const (
	tokenHeader = "X-user-token"
	uidKey      = "caller_uid"
)

type Verifier interface {
	Verify(token string) (string, error)
}

type Middleware struct {
	verifier Verifier
	logger   *slog.Logger
}

func New(verifier Verifier) *Middleware {
	return &Middleware{
		verifier: verifier,
		logger:   slog.Default(),
	}
}

// AuthRequired rejects requests without a valid identity token.
func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		uid, err := m.verifier.Verify(extractToken(ctx))
		if err != nil {
			http_common.WriteError(ctx, m.logger, err)
			return
		}
		ctx.Set(uidKey, uid)
		ctx.Next()
	}
}

// AuthOptional lets anonymous callers through. A token that is present
// but invalid is still rejected.
func (m *Middleware) AuthOptional() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := extractToken(ctx)
		if token == "" {
			ctx.Next()
			return
		}
		uid, err := m.verifier.Verify(token)
		if err != nil {
			http_common.WriteError(ctx, m.logger, err)
			return
		}
		ctx.Set(uidKey, uid)
		ctx.Next()
	}
}

// CallerUID is empty for anonymous requests.
func CallerUID(ctx *gin.Context) string {
	return ctx.GetString(uidKey)
}

func extractToken(ctx *gin.Context) string {
	if h := ctx.GetHeader("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(ctx.GetHeader(tokenHeader))
}
