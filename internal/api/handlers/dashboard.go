package handlers

import (
	"net/http"

	"github.com/bigkaa/intake-portal/internal/api/middleware"
	"github.com/bigkaa/intake-portal/internal/domain/access"
)

// Home обрабатывает GET / и GET /dashboard: перенаправление на домашнюю страницу роли.
func Home(w http.ResponseWriter, r *http.Request) {
	home, ok := access.HomeFor(middleware.CallerFromContext(r.Context()))
	if !ok {
		http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
		return
	}
	http.Redirect(w, r, home, http.StatusFound)
}
