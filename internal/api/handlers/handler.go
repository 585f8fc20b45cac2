// Пакет handlers — HTTP-обработчики портала.
// handler.go — общие функции ответа и перевод ошибок сервисного слоя в HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	apierrors "github.com/bigkaa/intake-portal/internal/api/errors"
	"github.com/bigkaa/intake-portal/internal/api/middleware"
	"github.com/bigkaa/intake-portal/internal/domain/access"
	"github.com/bigkaa/intake-portal/internal/service"
	"github.com/bigkaa/intake-portal/internal/ui/i18n"
	"github.com/bigkaa/intake-portal/internal/ui/pages"
)

// responder — общие зависимости обработчиков для формирования ответов.
type responder struct {
	bundle *i18n.Bundle
	pages  *pages.Pages
	logger *slog.Logger
}

// messageResponse — подтверждение операции с необязательными данными.
type messageResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// wantsHTML — запрос пришёл из браузерной формы и ждёт страницу, а не JSON.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// render отдаёт HTML-страницу с указанным статусом.
func (rs *responder) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		rs.logger.Error("Ошибка рендеринга страницы",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// fail переводит ошибку сервисного слоя в HTTP-ответ.
func (rs *responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		apierrors.ValidationFailed(w, rs.bundle.T(ctx, "validation.failed"), verr.Fields)
	case errors.Is(err, access.ErrUnauthenticated):
		middleware.RedirectToLogin(w, r)
	case errors.Is(err, access.ErrForbidden):
		rs.status(w, r, http.StatusForbidden, "error.forbidden")
	case errors.Is(err, service.ErrNotFound):
		rs.status(w, r, http.StatusNotFound, "error.not_found")
	case errors.Is(err, service.ErrStorageUnavailable):
		rs.logger.Error("Хранилище вложений недоступно",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.StorageUnavailable(w, rs.bundle.T(ctx, "error.storage_unavailable"))
	default:
		rs.logger.Error("Внутренняя ошибка",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		rs.status(w, r, http.StatusInternalServerError, "error.internal")
	}
}

// status отдаёт страницу статуса браузеру или JSON-ошибку API-клиенту.
func (rs *responder) status(w http.ResponseWriter, r *http.Request, code int, key string) {
	if wantsHTML(r) {
		rs.render(w, r, code, rs.pages.Status(code))
		return
	}

	msg := rs.bundle.T(r.Context(), key)
	switch code {
	case http.StatusForbidden:
		apierrors.Forbidden(w, msg)
	case http.StatusNotFound:
		apierrors.NotFound(w, msg)
	case http.StatusRequestEntityTooLarge:
		apierrors.PayloadTooLarge(w, msg)
	default:
		apierrors.InternalError(w, msg)
	}
}

// badRequest — некорректные параметры запроса.
func (rs *responder) badRequest(w http.ResponseWriter, r *http.Request) {
	apierrors.BadRequest(w, rs.bundle.T(r.Context(), "error.bad_request"))
}

// done подтверждает изменение: браузер перенаправляется на redirect, API получает JSON.
func (rs *responder) done(w http.ResponseWriter, r *http.Request, status int, key, redirect string, data any) {
	if wantsHTML(r) {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	writeJSON(w, status, messageResponse{Message: rs.bundle.T(r.Context(), key), Data: data})
}

// newResponder собирает общие зависимости обработчиков.
func newResponder(bundle *i18n.Bundle, p *pages.Pages, logger *slog.Logger) responder {
	return responder{bundle: bundle, pages: p, logger: logger}
}

// NotFound — ответ на неизвестный маршрут.
func NotFound(bundle *i18n.Bundle, p *pages.Pages, logger *slog.Logger) http.HandlerFunc {
	rs := newResponder(bundle, p, logger)
	return func(w http.ResponseWriter, r *http.Request) {
		rs.status(w, r, http.StatusNotFound, "error.not_found")
	}
}
