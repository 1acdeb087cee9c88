package http_trace_middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Spans starts one server span per request, named after the route template.
func Spans(tracer trace.Tracer) gin.HandlerFunc {
	if tracer == nil {
		tracer = otel.Tracer("gamenight/http")
	}
	return func(ctx *gin.Context) {
		parent := otel.GetTextMapPropagator().Extract(ctx.Request.Context(), propagation.HeaderCarrier(ctx.Request.Header))

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		spanCtx, span := tracer.Start(parent, ctx.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", ctx.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		if id := ctx.Param("session_id"); id != "" {
			span.SetAttributes(attribute.String("session.id", id))
		}

		ctx.Request = ctx.Request.WithContext(spanCtx)
		ctx.Next()

		status := ctx.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
