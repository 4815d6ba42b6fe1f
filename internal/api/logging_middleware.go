package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// loggingResponseWriter captures what the request log needs beyond status
// and size: the error text handlers report and the session user.
type loggingResponseWriter struct {
	middleware.WrapResponseWriter
	errorMessage string
	userID       int64
}

func newLoggingResponseWriter(w http.ResponseWriter, r *http.Request) *loggingResponseWriter {
	return &loggingResponseWriter{WrapResponseWriter: middleware.NewWrapResponseWriter(w, r.ProtoMajor)}
}

func (w *loggingResponseWriter) SetErrorMessage(message string) {
	w.errorMessage = message
}

// SetUserID records the authenticated user for the request log.
func (w *loggingResponseWriter) SetUserID(id int64) {
	w.userID = id
}

func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := newLoggingResponseWriter(w, r)

			next.ServeHTTP(lw, r)

			status := lw.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := append(requestAttrs(r),
				slog.Int("status", status),
				slog.Int("bytes", lw.BytesWritten()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			if lw.userID != 0 {
				attrs = append(attrs, slog.Int64("user_id", lw.userID))
			}
			if lw.errorMessage != "" {
				attrs = append(attrs, slog.String("error_message", lw.errorMessage))
			}
			logger.LogAttrs(context.Background(), levelForStatus(status), "http request completed", attrs...)
		})
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// requestAttrs are the fields shared by request and panic logs.
func requestAttrs(r *http.Request) []slog.Attr {
	return []slog.Attr{
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("route", routePattern(r)),
		slog.String("query", r.URL.RawQuery),
		slog.String("remote_ip", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
	}
}

// recoveryLoggingMiddleware turns panics into a 500. API callers get the
// JSON error envelope, browsers a plain text page.
func recoveryLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				attrs := append(requestAttrs(r),
					slog.String("panic", fmt.Sprint(recovered)),
					slog.String("stack", string(debug.Stack())),
				)
				logger.LogAttrs(context.Background(), slog.LevelError, "panic recovered", attrs...)

				if sw, ok := w.(interface{ Status() int }); ok && sw.Status() != 0 {
					return
				}
				if isAPIPath(r.URL.Path) {
					writeError(w, r, http.StatusInternalServerError, msgInternal)
					return
				}
				setErrorMessage(w, msgInternal)
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(msgInternal))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
