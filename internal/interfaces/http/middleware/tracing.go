package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/telemetry"
)

// Tracing returns otelgin middleware that opens a server span per request,
// named after the route pattern. Without an enabled provider it only calls
// the next handler.
func Tracing(service string, tp *telemetry.TracerProvider) gin.HandlerFunc {
	if !tp.Enabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return otelgin.Middleware(service, otelgin.WithTracerProvider(tp.Provider()))
}

// TraceAttributes tags the request span with the request ID. otelgin ends
// its span once the chain returns, so this must run after Tracing.
func TraceAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := GetRequestID(c); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
		}
		c.Next()
	}
}
