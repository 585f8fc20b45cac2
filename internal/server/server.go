// Пакет server — HTTP-сервер портала с graceful shutdown.
// Без TLS — HTTP за обратным прокси, TLS termination на прокси.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bigkaa/intake-portal/internal/api/handlers"
	"github.com/bigkaa/intake-portal/internal/api/middleware"
	"github.com/bigkaa/intake-portal/internal/api/openapi"
	"github.com/bigkaa/intake-portal/internal/config"
	"github.com/bigkaa/intake-portal/internal/domain/role"
	"github.com/bigkaa/intake-portal/internal/ui/i18n"
	"github.com/bigkaa/intake-portal/internal/ui/pages"
)

// Handlers — обработчики маршрутов портала.
type Handlers struct {
	Forms  *handlers.FormsHandler
	Admin  *handlers.AdminFormsHandler
	Auth   *handlers.AuthHandler
	Health *handlers.HealthHandler
}

// Options — общие зависимости маршрутизатора.
type Options struct {
	Bundle *i18n.Bundle
	Pages  *pages.Pages
	// Identity определяет вызывающего по cookie сессии или Bearer JWT
	Identity func(http.Handler) http.Handler
	// LoginLimit ограничивает попытки входа и выдачи токенов (может быть nil)
	LoginLimit func(http.Handler) http.Handler
	// TrustProxy — адрес клиента берётся из X-Forwarded-For доверенного прокси
	TrustProxy bool
}

// Server — HTTP-сервер портала.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с готовым маршрутизатором.
func New(cfg *config.Config, logger *slog.Logger, router http.Handler) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты и middleware портала.
func NewRouter(logger *slog.Logger, h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(chimw.RequestID)
	if opts.TrustProxy {
		router.Use(middleware.ForwardedFor)
	}
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(opts.Bundle.Middleware())
	// Health и metrics опрашиваются напрямую, без сессии
	router.Use(withExclusions(opts.Identity, "/health/", "/metrics"))

	limit := opts.LoginLimit
	if limit == nil {
		limit = passThrough
	}

	router.NotFound(handlers.NotFound(opts.Bundle, opts.Pages, logger))

	// Служебные маршруты
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)
	router.Get("/api/openapi.yaml", openapi.Handler())

	// Аутентификация
	router.Get("/", handlers.Home)
	router.Get("/dashboard", handlers.Home)
	router.Get(middleware.LoginPath, h.Auth.LoginPage)
	router.With(limit).Post(middleware.LoginPath, h.Auth.Login)
	router.Post("/logout", h.Auth.Logout)
	router.Post("/register", h.Auth.Register)
	router.With(limit).Post("/api/token", h.Auth.Token)
	router.Get("/.well-known/jwks.json", h.Auth.JWKS)

	// Анкеты кандидата
	router.Route("/forms", func(r chi.Router) {
		r.Use(middleware.RequireRole(role.Applicant, opts.Bundle))

		r.Get("/", h.Forms.List)
		r.Post("/", h.Forms.Create)
		r.Get("/create", h.Forms.CreatePage)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Forms.Show)
			r.Get("/edit", h.Forms.EditPage)
			r.Put("/", h.Forms.Update)
			r.Patch("/", h.Forms.Update)
			r.Delete("/", h.Forms.Delete)
			r.Post("/", h.Forms.Override)
		})
	})

	// Администрирование
	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole(role.Admin, opts.Bundle))

		r.Get("/dashboard", h.Admin.Stats)
		r.Get("/forms", h.Admin.List)
		r.Get("/forms/export", h.Admin.Export)
		r.Route("/forms/{id}", func(r chi.Router) {
			r.Get("/", h.Admin.Show)
			r.Delete("/", h.Admin.Delete)
			r.Post("/", h.Admin.Override)
			r.Get("/download-cv", h.Admin.DownloadCV)
		})
	})

	return router
}

func passThrough(next http.Handler) http.Handler { return next }

// withExclusions оборачивает middleware, пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без middleware.
func withExclusions(mw func(http.Handler) http.Handler, excludePrefixes ...string) func(http.Handler) http.Handler {
	if mw == nil {
		return passThrough
	}
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
