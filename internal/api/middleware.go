// internal/api/middleware.go
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/common/metrics"
	"risk-analytics/internal/ports"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserIDHeader identifies the caller when token validation is disabled.
const UserIDHeader = "X-User-ID"

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// authenticate resolves the caller. With a validator the bearer token is
// introspected; without one the trusted X-User-ID header is required.
func authenticate(validator ports.TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string
			if validator == nil {
				userID = strings.TrimSpace(r.Header.Get(UserIDHeader))
			} else {
				token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
				info, err := validator.ValidateToken(r.Context(), token)
				if err != nil {
					writeError(w, err)
					return
				}
				userID = info.UserID()
			}
			if userID == "" {
				writeError(w, errors.NewUnauthenticatedError("no user identity on request"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// rateLimit rejects requests beyond the shared token bucket with 429.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, errorEnvelope{Error: "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// instrument records request counts, durations and an access log line per
// request, labelled by route pattern.
func instrument(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			metrics.AnalyticsRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			metrics.AnalyticsRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

			fields := map[string]interface{}{
				"method":     r.Method,
				"route":      route,
				"status":     status,
				"durationMs": elapsed.Milliseconds(),
				"requestId":  middleware.GetReqID(r.Context()),
			}
			if status >= http.StatusInternalServerError {
				log.Error("request failed", fields)
			} else {
				log.Info("request served", fields)
			}
		})
	}
}

// timeout bounds the handler context.
func timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
