package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/bigkaa/intake-portal/internal/domain/model"
)

// FormValues — значения полей анкеты для повторного показа.
type FormValues struct {
	Name         string
	Email        string
	Phone        string
	Position     string
	Education    string
	Observations string
}

// FormData — данные страницы ввода или редактирования анкеты.
type FormData struct {
	// FormID — ID редактируемой анкеты, 0 для новой
	FormID int64
	Values FormValues
	// Errors — сообщения валидации по полям
	Errors map[string]string
	// HasCV — у анкеты уже есть резюме
	HasCV bool
}

// Editing сообщает, что страница редактирует существующую анкету.
func (d FormData) Editing() bool {
	return d.FormID != 0
}

// ValuesFromForm заполняет значения полей из анкеты.
func ValuesFromForm(f *model.ApplicationForm) FormValues {
	v := FormValues{
		Name:      f.Name,
		Email:     f.Email,
		Position:  f.Position,
		Education: f.Education,
	}
	if f.Phone != nil {
		v.Phone = *f.Phone
	}
	if f.Observations != nil {
		v.Observations = *f.Observations
	}
	return v
}

// FormInput — страница ввода (новая анкета) или редактирования.
func (p *Pages) FormInput(data FormData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := p.bundle.T(ctx, "page.create.title")
		action := "/forms"
		submit := p.bundle.T(ctx, "page.form.submit")
		if data.Editing() {
			title = p.bundle.T(ctx, "page.edit.title")
			action = "/forms/" + formatID(data.FormID)
			submit = p.bundle.T(ctx, "page.form.save")
		}

		return p.layout(ctx, w, title, func(h *html) {
			h.raw(`<form method="post" enctype="multipart/form-data"`)
			h.attr("action", action)
			h.raw(">")
			if data.Editing() {
				h.raw(`<input type="hidden" name="_method" value="PUT">`)
			}

			f := fieldWriter{h: h, p: p, ctx: ctx, errors: data.Errors}
			f.input("name", "text", data.Values.Name, true, 255)
			f.input("email", "email", data.Values.Email, true, 255)
			f.input("phone", "tel", data.Values.Phone, false, 20)
			f.input("position", "text", data.Values.Position, true, 255)
			f.education(data.Values.Education)
			f.textarea("observations", data.Values.Observations)
			f.file(data.Editing() && data.HasCV)

			h.raw(`<button type="submit">`)
			h.text(submit)
			h.raw(`</button> <a href="/forms">`)
			h.text(p.bundle.T(ctx, "page.back"))
			h.raw("</a></form>")
		})
	})
}

// fieldWriter выводит поля формы с подписями и ошибками.
type fieldWriter struct {
	h      *html
	p      *Pages
	ctx    context.Context
	errors map[string]string
}

func (f fieldWriter) label(name string) {
	f.h.raw("<label")
	f.h.attr("for", name)
	f.h.raw(">")
	f.h.text(f.p.bundle.T(f.ctx, "field."+name))
	f.h.raw("</label>")
}

func (f fieldWriter) fieldError(name string) {
	if msg := f.errors[name]; msg != "" {
		f.h.raw(`<p class="field-error"`)
		f.h.attr("id", name+"-error")
		f.h.raw(">")
		f.h.text(msg)
		f.h.raw("</p>")
	}
}

func (f fieldWriter) input(name, typ, value string, required bool, maxLen int) {
	f.h.raw("<div>")
	f.label(name)
	f.h.raw("<input")
	f.h.attr("id", name)
	f.h.attr("name", name)
	f.h.attr("type", typ)
	f.h.attr("value", value)
	f.h.attr("maxlength", formatID(int64(maxLen)))
	if required {
		f.h.raw(" required")
	}
	f.h.raw(">")
	f.fieldError(name)
	f.h.raw("</div>")
}

func (f fieldWriter) education(selected string) {
	f.h.raw("<div>")
	f.label("education")
	f.h.raw(`<select id="education" name="education" required><option value="">`)
	f.h.text(f.p.bundle.T(f.ctx, "page.form.select"))
	f.h.raw("</option>")
	for _, level := range model.EducationLevels() {
		f.h.raw("<option")
		f.h.attr("value", level)
		if level == selected {
			f.h.raw(" selected")
		}
		f.h.raw(">")
		f.h.text(level)
		f.h.raw("</option>")
	}
	f.h.raw("</select>")
	f.fieldError("education")
	f.h.raw("</div>")
}

func (f fieldWriter) textarea(name, value string) {
	f.h.raw("<div>")
	f.label(name)
	f.h.raw("<textarea")
	f.h.attr("id", name)
	f.h.attr("name", name)
	f.h.raw(">")
	f.h.text(value)
	f.h.raw("</textarea>")
	f.fieldError(name)
	f.h.raw("</div>")
}

func (f fieldWriter) file(keep bool) {
	f.h.raw("<div>")
	f.label("cv_file")
	f.h.raw(`<input id="cv_file" name="cv_file" type="file" accept=".pdf,.doc,.docx"`)
	if !keep {
		f.h.raw(" required")
	}
	f.h.raw(`><p class="hint">`)
	f.h.text(f.p.bundle.T(f.ctx, "page.form.cv_hint"))
	if keep {
		f.h.raw(" ")
		f.h.text(f.p.bundle.T(f.ctx, "page.form.cv_keep"))
	}
	f.h.raw("</p>")
	f.fieldError("cv_file")
	f.h.raw("</div>")
}
