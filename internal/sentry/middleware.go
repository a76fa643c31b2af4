package sentry

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
)

// HTTPMiddleware gives each request its own hub, reports panics with the
// matched chi route, and answers 500 if the handler had not written yet.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}
		hub.Scope().SetRequest(r)

		ctx := sentry.SetHubOnContext(r.Context(), hub)
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if rec := recover(); rec != nil {
				hub.WithScope(func(scope *sentry.Scope) {
					if route := routePattern(r); route != "" {
						scope.SetTag("http.route", route)
					}
					hub.RecoverWithContext(ctx, rec)
				})
				if !rw.wroteHeader {
					http.Error(rw, "Internal server error", http.StatusInternalServerError)
				}
			}
		}()

		next.ServeHTTP(rw, r.WithContext(ctx))

		if rw.status >= http.StatusInternalServerError {
			hub.AddBreadcrumb(&sentry.Breadcrumb{
				Type:     "http",
				Category: "response",
				Data: map[string]any{
					"method":      r.Method,
					"route":       routePattern(r),
					"status_code": rw.status,
				},
				Level: sentry.LevelError,
			}, nil)
		}
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
