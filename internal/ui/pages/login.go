package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// LoginData — данные страницы входа.
type LoginData struct {
	// Next — адрес возврата после входа
	Next  string
	Email string
	// Error — сообщение о неудачной попытке
	Error string
}

// Login — страница входа.
func (p *Pages) Login(data LoginData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return p.layout(ctx, w, p.bundle.T(ctx, "page.login.title"), func(h *html) {
			if data.Error != "" {
				h.raw(`<p class="error" role="alert">`)
				h.text(data.Error)
				h.raw("</p>")
			}

			h.raw(`<form method="post" action="/login">`)
			if data.Next != "" {
				h.raw(`<input type="hidden" name="next"`)
				h.attr("value", data.Next)
				h.raw(">")
			}

			h.raw(`<label for="email">`)
			h.text(p.bundle.T(ctx, "field.email"))
			h.raw(`</label><input id="email" type="email" name="email" required autofocus`)
			h.attr("value", data.Email)
			h.raw(">")

			h.raw(`<label for="password">`)
			h.text(p.bundle.T(ctx, "field.password"))
			h.raw(`</label><input id="password" type="password" name="password" required>`)

			h.raw(`<button type="submit">`)
			h.text(p.bundle.T(ctx, "page.login.submit"))
			h.raw("</button></form>")
		})
	})
}
