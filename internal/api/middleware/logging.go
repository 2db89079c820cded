package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// tenantSlot lets handlers behind the auth middleware report the tenant to
// the request logger, which runs outside it.
type tenantSlot struct{ id string }

type tenantSlotKey struct{}

// Logger returns a middleware that logs HTTP requests.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusRecorder(w)
			slot := &tenantSlot{}
			r = r.WithContext(contextWithTenantSlot(r.Context(), slot))

			next.ServeHTTP(wrapped, r)

			spanCtx := trace.SpanContextFromContext(r.Context())
			traceID := ""
			spanID := ""
			if spanCtx.IsValid() {
				traceID = spanCtx.TraceID().String()
				spanID = spanCtx.SpanID().String()
			}

			event := log.Info()
			switch {
			case wrapped.statusCode >= 500:
				event = log.Error()
			case wrapped.statusCode >= 400:
				event = log.Warn()
			}

			event.
				Str("request_id", GetRequestID(r.Context())).
				Str("trace_id", traceID).
				Str("span_id", spanID).
				Str("tenant_id", slot.id).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", wrapped.statusCode).
				Int64("bytes", wrapped.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}

func contextWithTenantSlot(ctx context.Context, slot *tenantSlot) context.Context {
	return context.WithValue(ctx, tenantSlotKey{}, slot)
}

func recordTenant(ctx context.Context, tenantID string) {
	if slot, ok := ctx.Value(tenantSlotKey{}).(*tenantSlot); ok {
		slot.id = tenantID
	}
}
