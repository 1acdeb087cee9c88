package http_common

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/humanbelnik/gamenight/internal/apperr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Ack is embedded in every success body.
type Ack struct {
	OK bool `json:"ok"`
}

func OK() Ack {
	return Ack{OK: true}
}

type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	OK    bool        `json:"ok"`
	Error ErrorDetail `json:"error"`
}

// WriteError aborts the request with the kind carried by err.
// Internal causes go to the log only.
func WriteError(ctx *gin.Context, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	message := "internal error"
	var e *apperr.Error
	if errors.As(err, &e) {
		message = e.Message
	} else if st, ok := status.FromError(err); ok && kind != codes.Internal {
		message = st.Message()
	}

	if kind == codes.Internal {
		logger.Error("request failed",
			slog.String("route", ctx.FullPath()),
			slog.String("error", err.Error()))
	} else {
		logger.Info("request rejected",
			slog.String("route", ctx.FullPath()),
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()))
	}

	ctx.AbortWithStatusJSON(apperr.HTTPStatus(kind), ErrorResponse{
		Error: ErrorDetail{Kind: kind.String(), Message: message},
	})
}

// BadRequest reports an unparseable body.
func BadRequest(ctx *gin.Context, logger *slog.Logger, err error) {
	WriteError(ctx, logger, apperr.InvalidArgument("malformed request body").With(err))
}

func NotFoundHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusNotFound, ErrorResponse{
		Error: ErrorDetail{Kind: codes.NotFound.String(), Message: "route not found"},
	})
}
