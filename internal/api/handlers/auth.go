// auth.go — вход, выход, регистрация кандидата и выдача токенов API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/bigkaa/intake-portal/internal/api/errors"
	"github.com/bigkaa/intake-portal/internal/api/middleware"
	"github.com/bigkaa/intake-portal/internal/auth"
	"github.com/bigkaa/intake-portal/internal/domain/access"
	"github.com/bigkaa/intake-portal/internal/domain/model"
	"github.com/bigkaa/intake-portal/internal/service"
	"github.com/bigkaa/intake-portal/internal/ui/i18n"
	"github.com/bigkaa/intake-portal/internal/ui/pages"
)

// AuthHandler — обработчики аутентификации.
type AuthHandler struct {
	responder
	accounts *service.AccountService
	sessions *auth.SessionManager
	tokens   *auth.TokenService
	identity *middleware.Identity
}

// NewAuthHandler создаёт обработчики аутентификации.
func NewAuthHandler(
	accounts *service.AccountService,
	sessions *auth.SessionManager,
	tokens *auth.TokenService,
	identity *middleware.Identity,
	bundle *i18n.Bundle,
	p *pages.Pages,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		responder: newResponder(bundle, p, logger.With(slog.String("component", "auth_handler"))),
		accounts:  accounts,
		sessions:  sessions,
		tokens:    tokens,
		identity:  identity,
	}
}

// loginResponse — ответ API на успешный вход.
type loginResponse struct {
	Redirect string      `json:"redirect"`
	User     *model.User `json:"user"`
}

// tokenResponse — ответ выдачи токена доступа.
type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LoginPage обрабатывает GET /login. Вошедший пользователь уходит на свою домашнюю страницу.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if home, ok := access.HomeFor(middleware.CallerFromContext(r.Context())); ok {
		http.Redirect(w, r, home, http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, h.pages.Login(pages.LoginData{Next: safeNext(r.URL.Query().Get("next"))}))
}

// Login обрабатывает POST /login (email, password, next).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	next := safeNext(r.PostFormValue("next"))

	u, err := h.accounts.Authenticate(r.Context(), email, r.PostFormValue("password"))
	if errors.Is(err, service.ErrInvalidCredentials) {
		msg := h.bundle.T(r.Context(), "error.invalid_credentials")
		if wantsHTML(r) {
			h.render(w, r, http.StatusUnprocessableEntity, h.pages.Login(pages.LoginData{
				Next:  next,
				Email: email,
				Error: msg,
			}))
			return
		}
		apierrors.ValidationFailed(w, h.bundle.T(r.Context(), "validation.failed"), map[string]string{
			service.FieldEmail: msg,
		})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.sessions.Start(w, u.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	// Кэш вызывающих мог хранить устаревшие данные прошлой сессии
	h.identity.Forget(u.ID)

	home, _ := access.HomeFor(&access.Caller{ID: u.ID, Role: u.Role})
	if next != "" {
		home = next
	}
	if wantsHTML(r) {
		http.Redirect(w, r, home, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Redirect: home, User: u})
}

// Logout обрабатывает POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	if caller := middleware.CallerFromContext(r.Context()); caller != nil {
		h.identity.Forget(caller.ID)
		h.logger.Info("Пользователь вышел", slog.Int64("user_id", caller.ID))
	}
	h.done(w, r, http.StatusOK, "auth.logged_out", middleware.LoginPath, nil)
}

// Register обрабатывает POST /register — регистрация кандидата и вход.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	in := service.RegisterInput{
		Name:                 r.PostFormValue("name"),
		Email:                r.PostFormValue("email"),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
	}

	u, err := h.accounts.Register(r.Context(), in)
	if errors.Is(err, service.ErrEmailTaken) {
		apierrors.ValidationFailed(w, h.bundle.T(r.Context(), "validation.failed"), map[string]string{
			service.FieldEmail: h.bundle.T(r.Context(), "error.email_taken"),
		})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.sessions.Start(w, u.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusCreated, "auth.registered", access.ApplicantHome, u)
}

// Token обрабатывает POST /api/token — выдача JWT по email и паролю.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	u, err := h.accounts.Authenticate(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if errors.Is(err, service.ErrInvalidCredentials) {
		apierrors.Unauthorized(w, h.bundle.T(r.Context(), "error.invalid_credentials"))
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(u.ID, u.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("Выдан токен доступа",
		slog.Int64("user_id", u.ID),
		slog.String("role", u.Role.String()),
	)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokens.TTL().Seconds()),
		ExpiresAt:   expiresAt,
	})
}

// JWKS обрабатывает GET /.well-known/jwks.json — публичные ключи проверки токенов.
func (h *AuthHandler) JWKS(w http.ResponseWriter, r *http.Request) {
	data, err := h.tokens.JWKS(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// safeNext оставляет только локальный путь: внешние и протокол-относительные адреса отбрасываются.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
