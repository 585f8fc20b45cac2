// admin_forms.go — административные обработчики: /admin/forms.
package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/bigkaa/intake-portal/internal/api/middleware"
	"github.com/bigkaa/intake-portal/internal/service"
	"github.com/bigkaa/intake-portal/internal/ui/i18n"
	"github.com/bigkaa/intake-portal/internal/ui/pages"
)

// exportWriteTimeout — срок записи CSV; общий WriteTimeout сервера рассчитан на короткие ответы.
const exportWriteTimeout = 15 * time.Minute

// AdminFormsHandler — обработчики просмотра анкет администратором.
type AdminFormsHandler struct {
	responder
	review *service.ReviewService
}

// NewAdminFormsHandler создаёт административные обработчики.
func NewAdminFormsHandler(
	review *service.ReviewService,
	bundle *i18n.Bundle,
	p *pages.Pages,
	logger *slog.Logger,
) *AdminFormsHandler {
	return &AdminFormsHandler{
		responder: newResponder(bundle, p, logger.With(slog.String("component", "admin_forms_handler"))),
		review:    review,
	}
}

// List обрабатывает GET /admin/forms — все анкеты с фильтрами и списком кандидатов.
func (h *AdminFormsHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := bindAdminListParams(r)
	if err != nil {
		h.badRequest(w, r)
		return
	}

	list, err := h.review.List(r.Context(), middleware.CallerFromContext(r.Context()), params.filters(), pageOf(params.Page))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Stats обрабатывает GET /admin/dashboard — счётчики панели.
func (h *AdminFormsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.review.Stats(r.Context(), middleware.CallerFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Export обрабатывает GET /admin/forms/export — CSV по текущим фильтрам.
func (h *AdminFormsHandler) Export(w http.ResponseWriter, r *http.Request) {
	params, err := bindAdminListParams(r)
	if err != nil {
		h.badRequest(w, r)
		return
	}

	export, err := h.review.Export(r.Context(), middleware.CallerFromContext(r.Context()), params.filters())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := extendWriteDeadline(w, exportWriteTimeout); err != nil {
		h.logger.Warn("Не удалось продлить срок записи выгрузки", slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename}))
	w.WriteHeader(http.StatusOK)

	rows, err := export.WriteTo(r.Context(), w)
	if err != nil {
		// Заголовки уже отправлены: клиент получит обрезанный файл
		h.logger.Error("Ошибка выгрузки анкет",
			slog.Int("rows", rows),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.Info("Анкеты выгружены",
		slog.String("filename", export.Filename),
		slog.Int("rows", rows),
	)
}

// Show обрабатывает GET /admin/forms/{id}.
func (h *AdminFormsHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := bindFormID(r)
	if err != nil {
		h.fail(w, r, service.ErrNotFound)
		return
	}

	f, err := h.review.Show(r.Context(), middleware.CallerFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Data: f})
}

// Delete обрабатывает DELETE /admin/forms/{id} и POST с _method=DELETE.
func (h *AdminFormsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := bindFormID(r)
	if err != nil {
		h.fail(w, r, service.ErrNotFound)
		return
	}

	if err := h.review.Delete(r.Context(), middleware.CallerFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusOK, "form.deleted", "/admin/forms", nil)
}

// Override обрабатывает POST /admin/forms/{id} из HTML-форм с _method=DELETE.
func (h *AdminFormsHandler) Override(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.badRequest(w, r)
		return
	}
	if !strings.EqualFold(r.PostFormValue("_method"), http.MethodDelete) {
		w.Header().Set("Allow", "GET, DELETE")
		h.badRequest(w, r)
		return
	}
	h.Delete(w, r)
}

// DownloadCV обрабатывает GET /admin/forms/{id}/download-cv.
func (h *AdminFormsHandler) DownloadCV(w http.ResponseWriter, r *http.Request) {
	id, err := bindFormID(r)
	if err != nil {
		h.fail(w, r, service.ErrNotFound)
		return
	}

	att, err := h.review.OpenAttachment(r.Context(), middleware.CallerFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer att.Content.Close()

	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.Name}))
	http.ServeContent(w, r, att.Name, att.ModTime, att.Content)
}

// extendWriteDeadline продлевает срок записи ответа на d от текущего момента.
// Writer без поддержки дедлайнов (httptest.ResponseRecorder) не считается ошибкой.
func extendWriteDeadline(w http.ResponseWriter, d time.Duration) error {
	err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(d))
	if errors.Is(err, http.ErrNotSupported) {
		return nil
	}
	return err
}
