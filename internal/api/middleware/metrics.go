// metrics.go — Prometheus HTTP метрики портала.
// Регистрирует метрики: ip_http_requests_total, ip_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ip_http_requests_total",
			Help: "Общее количество HTTP-запросов к порталу",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ip_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к порталу в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			normalizedPath := normalizePath(r.URL.Path)

			ww := wrap(w, r)
			next.ServeHTTP(ww, r)

			status := strconv.Itoa(statusOf(ww))
			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath заменяет числовые ID анкет на {id}, неизвестные пути
// сворачивает в "other", чтобы не раздувать кардинальность.
// /admin/forms/17/download-cv → /admin/forms/{id}/download-cv
func normalizePath(path string) string {
	switch path {
	case "/", "/forms", "/forms/create", "/admin/forms", "/admin/forms/export", "/admin/dashboard",
		"/dashboard", "/login", "/logout", "/register",
		"/api/token", "/.well-known/jwks.json", "/api/openapi.yaml",
		"/health/live", "/health/ready", "/metrics":
		return path
	}

	for _, prefix := range []string{"/admin/forms/", "/forms/"} {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok {
			continue
		}
		id, suffix, _ := strings.Cut(rest, "/")
		if !isDigits(id) {
			return "other"
		}
		switch suffix {
		case "":
			return prefix + "{id}"
		case "edit", "download-cv":
			return prefix + "{id}/" + suffix
		default:
			return "other"
		}
	}

	return "other"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
