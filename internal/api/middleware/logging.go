package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// contextKeyLogEntry — запись журнала текущего запроса. Identity стоит
// после логгера и отмечает в ней пользователя через WithCaller.
const contextKeyLogEntry contextKey = "log_entry"

type logEntry struct {
	userID int64
}

// wrap переиспользует обёртку, уже установленную внешним middleware.
func wrap(w http.ResponseWriter, r *http.Request) chimw.WrapResponseWriter {
	if ww, ok := w.(chimw.WrapResponseWriter); ok {
		return ww
	}
	return chimw.NewWrapResponseWriter(w, r.ProtoMajor)
}

// statusOf — код ответа; обработчик, ничего не записавший, считается 200.
func statusOf(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// RequestLogger пишет одну запись на запрос: 5xx — ERROR, 4xx — WARN.
// request_id берётся из chi RequestID, user_id — из Identity.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			ww := wrap(w, r)
			entry := &logEntry{}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), contextKeyLogEntry, entry)))

			status := statusOf(ww)
			attrs := make([]slog.Attr, 0, 8)
			attrs = append(attrs,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(began)),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("remote_addr", r.RemoteAddr),
			)
			if id := chimw.GetReqID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if entry.userID != 0 {
				attrs = append(attrs, slog.Int64("user_id", entry.userID))
			}

			logger.LogAttrs(r.Context(), levelFor(status), "HTTP запрос", attrs...)
		})
	}
}
