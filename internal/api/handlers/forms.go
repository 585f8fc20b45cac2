// forms.go — обработчики анкет кандидата: /forms.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bigkaa/intake-portal/internal/api/middleware"
	"github.com/bigkaa/intake-portal/internal/service"
	"github.com/bigkaa/intake-portal/internal/ui/i18n"
	"github.com/bigkaa/intake-portal/internal/ui/pages"
)

// multipartOverhead — запас на поля формы и заголовки частей multipart сверх размера файла.
const multipartOverhead = 64 << 10

// errBodyTooLarge — тело запроса больше допустимого, но не из-за файла резюме.
var errBodyTooLarge = errors.New("тело запроса слишком большое")

// FormsHandler — обработчики анкет кандидата.
type FormsHandler struct {
	responder
	forms          *service.FormService
	maxUploadBytes int64
}

// NewFormsHandler создаёт обработчики анкет кандидата.
func NewFormsHandler(
	forms *service.FormService,
	bundle *i18n.Bundle,
	p *pages.Pages,
	maxUploadBytes int64,
	logger *slog.Logger,
) *FormsHandler {
	return &FormsHandler{
		responder:      newResponder(bundle, p, logger.With(slog.String("component", "forms_handler"))),
		forms:          forms,
		maxUploadBytes: maxUploadBytes,
	}
}

// List обрабатывает GET /forms — собственные анкеты постранично.
func (h *FormsHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := bindListParams(r)
	if err != nil {
		h.badRequest(w, r)
		return
	}

	page, err := h.forms.List(r.Context(), middleware.CallerFromContext(r.Context()), pageOf(params.Page))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CreatePage обрабатывает GET /forms/create — страница ввода анкеты.
func (h *FormsHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromContext(r.Context())
	// Имя и email владельца подставляются как начальные значения
	values := pages.FormValues{Name: caller.Name, Email: caller.Email}
	h.render(w, r, http.StatusOK, h.pages.FormInput(pages.FormData{Values: values}))
}

// Create обрабатывает POST /forms (multipart).
func (h *FormsHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.readFormInput(w, r)
	if err != nil {
		h.formFailed(w, r, 0, in, false, err)
		return
	}

	f, err := h.forms.Create(r.Context(), middleware.CallerFromContext(r.Context()), in)
	if err != nil {
		h.formFailed(w, r, 0, in, false, err)
		return
	}
	h.done(w, r, http.StatusCreated, "form.created", "/forms", f)
}

// Show обрабатывает GET /forms/{id}.
func (h *FormsHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := bindFormID(r)
	if err != nil {
		h.fail(w, r, service.ErrNotFound)
		return
	}

	f, err := h.forms.Show(r.Context(), middleware.CallerFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Data: f})
}

// EditPage обрабатывает GET /forms/{id}/edit — страница редактирования.
func (h *FormsHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	id, err := bindFormID(r)
	if err != nil {
		h.fail(w, r, service.ErrNotFound)
		return
	}

	f, err := h.forms.Show(r.Context(), middleware.CallerFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, h.pages.FormInput(pages.FormData{
		FormID: f.ID,
		Values: pages.ValuesFromForm(f),
		HasCV:  f.HasAttachment(),
	}))
}

// Update обрабатывает PUT/PATCH /forms/{id} (multipart). Без файла резюме сохраняется.
func (h *FormsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := bindFormID(r)
	if err != nil {
		h.fail(w, r, service.ErrNotFound)
		return
	}

	in, err := h.readFormInput(w, r)
	if err != nil {
		h.formFailed(w, r, id, in, true, err)
		return
	}
	h.update(w, r, id, in)
}

func (h *FormsHandler) update(w http.ResponseWriter, r *http.Request, id FormID, in service.FormInput) {
	f, err := h.forms.Update(r.Context(), middleware.CallerFromContext(r.Context()), id, in)
	if err != nil {
		h.formFailed(w, r, id, in, true, err)
		return
	}
	h.done(w, r, http.StatusOK, "form.updated", "/forms", f)
}

// Delete обрабатывает DELETE /forms/{id}.
func (h *FormsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := bindFormID(r)
	if err != nil {
		h.fail(w, r, service.ErrNotFound)
		return
	}

	if err := h.forms.Delete(r.Context(), middleware.CallerFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusOK, "form.deleted", "/forms", nil)
}

// Override обрабатывает POST /forms/{id} из HTML-форм: метод берётся из поля _method.
func (h *FormsHandler) Override(w http.ResponseWriter, r *http.Request) {
	id, err := bindFormID(r)
	if err != nil {
		h.fail(w, r, service.ErrNotFound)
		return
	}

	in, err := h.readFormInput(w, r)
	method := strings.ToUpper(r.PostFormValue("_method"))

	switch method {
	case http.MethodPut, http.MethodPatch:
		if err != nil {
			h.formFailed(w, r, id, in, true, err)
			return
		}
		h.update(w, r, id, in)
	case http.MethodDelete:
		h.Delete(w, r)
	default:
		w.Header().Set("Allow", "GET, PUT, PATCH, DELETE")
		h.badRequest(w, r)
	}
}

// formFailed отвечает на неудачное создание или изменение: браузеру
// показывается та же страница с ошибками полей, API-клиенту — JSON.
func (h *FormsHandler) formFailed(
	w http.ResponseWriter,
	r *http.Request,
	id FormID,
	in service.FormInput,
	editing bool,
	err error,
) {
	if errors.Is(err, errInvalidParam) {
		h.badRequest(w, r)
		return
	}
	if errors.Is(err, errBodyTooLarge) {
		h.status(w, r, http.StatusRequestEntityTooLarge, "error.body_too_large")
		return
	}
	var verr *service.ValidationError
	if !errors.As(err, &verr) || !wantsHTML(r) {
		h.fail(w, r, err)
		return
	}

	data := pages.FormData{
		Values: pages.FormValues{
			Name:         in.Name,
			Email:        in.Email,
			Phone:        in.Phone,
			Position:     in.Position,
			Education:    in.Education,
			Observations: in.Observations,
		},
		Errors: verr.Fields,
	}
	if editing {
		data.FormID = id
		// При редактировании резюме уже прикреплено: форма не требует файл повторно
		data.HasCV = true
	}
	h.render(w, r, http.StatusUnprocessableEntity, h.pages.FormInput(data))
}

// readFormInput читает поля анкеты и файл резюме из multipart или urlencoded тела.
// Тело больше лимита: во время чтения файла — ошибка валидации cv_file,
// в остальных частях — errBodyTooLarge.
func (h *FormsHandler) readFormInput(w http.ResponseWriter, r *http.Request) (service.FormInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseForm(); err != nil {
			return service.FormInput{}, h.bodyError(r, err, false)
		}
		return formInputFrom(r.PostForm), nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return service.FormInput{}, fmt.Errorf("%w: %w", errInvalidParam, err) //nolint:errorlint // намеренный двойной wrap
	}

	values := url.Values{}
	var upload *service.Upload
	// current — поле части, которая читается сейчас; NextPart дочитывает её остаток
	current := ""
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return service.FormInput{}, h.bodyError(r, err, current == service.FieldCV)
		}
		current = part.FormName()

		switch {
		case part.FileName() == "":
			data, err := io.ReadAll(part)
			if err != nil {
				return service.FormInput{}, h.bodyError(r, err, false)
			}
			values.Add(current, string(data))
		case current == service.FieldCV && upload == nil:
			// Не больше лимита + 1 байт: превышение обнаружит валидатор
			data, err := io.ReadAll(io.LimitReader(part, h.maxUploadBytes+1))
			if err != nil {
				return service.FormInput{}, h.bodyError(r, err, true)
			}
			upload = &service.Upload{Filename: part.FileName(), Data: data}
		}
	}

	// _method и прочие поля доступны через r.PostFormValue
	r.PostForm = values
	r.Form = values

	in := formInputFrom(values)
	in.CV = upload
	return in, nil
}

func formInputFrom(values url.Values) service.FormInput {
	return service.FormInput{
		Name:         values.Get("name"),
		Email:        values.Get("email"),
		Phone:        values.Get("phone"),
		Position:     values.Get("position"),
		Education:    values.Get("education"),
		Observations: values.Get("observations"),
	}
}

// bodyError переводит ошибку чтения тела. inCV — ошибка возникла в части с резюме.
func (h *FormsHandler) bodyError(r *http.Request, err error, inCV bool) error {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: %w", errInvalidParam, err) //nolint:errorlint // намеренный двойной wrap
	}
	if inCV {
		return h.cvTooLarge(r)
	}
	return errBodyTooLarge
}

// cvTooLarge — ошибка валидации для тела больше допустимого.
func (h *FormsHandler) cvTooLarge(r *http.Request) error {
	ctx := r.Context()
	label := h.bundle.T(ctx, "field."+service.FieldCV)
	return &service.ValidationError{Fields: map[string]string{
		service.FieldCV: h.bundle.Tf(ctx, "validation.file_max", label, h.maxUploadBytes/1024),
	}}
}
