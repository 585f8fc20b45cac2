// Пакет pages — HTML-страницы портала: вход, ввод и редактирование анкеты,
// страницы статусов. Компоненты реализуют templ.Component, тексты берутся
// из i18n по языку запроса.
package pages

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/bigkaa/intake-portal/internal/ui/i18n"
)

// Pages — фабрика компонентов страниц.
type Pages struct {
	bundle *i18n.Bundle
}

// New создаёт фабрику страниц.
func New(bundle *i18n.Bundle) *Pages {
	return &Pages{bundle: bundle}
}

// html — запись разметки с накоплением первой ошибки.
type html struct {
	w   io.Writer
	err error
}

// raw пишет разметку как есть.
func (h *html) raw(parts ...string) {
	for _, s := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, s)
	}
}

// text пишет экранированный текст.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr пишет атрибут name="value" с экранированием.
func (h *html) attr(name, value string) {
	h.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// layout оборачивает тело страницы в общий каркас.
func (p *Pages) layout(ctx context.Context, w io.Writer, title string, body func(h *html)) error {
	h := &html{w: w}
	h.raw("<!DOCTYPE html>\n<html")
	h.attr("lang", p.bundle.Lang(ctx))
	h.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
	h.text(title + " · " + p.bundle.T(ctx, "app.title"))
	h.raw("</title></head><body><main>")
	h.raw("<h1>")
	h.text(title)
	h.raw("</h1>")
	body(h)
	h.raw("</main></body></html>\n")
	return h.err
}

// Status — страница статуса HTTP (403, 404, 500).
func (p *Pages) Status(code int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		message := p.bundle.T(ctx, "page.status."+strconv.Itoa(code))
		return p.layout(ctx, w, p.bundle.T(ctx, "page.error.title"), func(h *html) {
			h.raw(`<p class="status"><strong>`)
			h.text(strconv.Itoa(code))
			h.raw("</strong> ")
			h.text(message)
			h.raw(`</p><p><a href="/dashboard">`)
			h.text(p.bundle.T(ctx, "page.back"))
			h.raw("</a></p>")
		})
	})
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
