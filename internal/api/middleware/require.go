// require.go — проверка роли на уровне маршрутов.
package middleware

import (
	"errors"
	"net/http"
	"net/url"

	apierrors "github.com/bigkaa/intake-portal/internal/api/errors"
	"github.com/bigkaa/intake-portal/internal/domain/access"
	"github.com/bigkaa/intake-portal/internal/domain/role"
	"github.com/bigkaa/intake-portal/internal/ui/i18n"
)

// LoginPath — страница входа.
const LoginPath = "/login"

// RequireRole возвращает middleware, пропускающий только вызывающих с ролью r.
// Анонимный запрос — 302 на страницу входа, чужая роль — 403.
// Должен использоваться ПОСЛЕ Identity.Middleware().
func RequireRole(r role.Role, bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			err := access.RequireRole(CallerFromContext(req.Context()), r)
			switch {
			case err == nil:
				next.ServeHTTP(w, req)
			case errors.Is(err, access.ErrUnauthenticated):
				RedirectToLogin(w, req)
			default:
				apierrors.Forbidden(w, bundle.T(req.Context(), "error.forbidden"))
			}
		})
	}
}

// RedirectToLogin перенаправляет на страницу входа с возвратом на текущий адрес.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusFound)
}
