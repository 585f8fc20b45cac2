// Пакет access — проверки доступа, общие для всех операций портала.
// Вызывающий передаётся в сервисы явно, без неявного глобального контекста.
// Неаутентифицированный вызов всегда отличается от вызова с чужой ролью:
// первый даёт ErrUnauthenticated, второй ErrForbidden.
package access

import (
	"errors"

	"github.com/bigkaa/intake-portal/internal/domain/role"
)

var (
	// ErrUnauthenticated — вызывающий не аутентифицирован.
	ErrUnauthenticated = errors.New("требуется аутентификация")
	// ErrForbidden — недостаточно прав (чужая роль или чужая запись).
	ErrForbidden = errors.New("доступ запрещён")
)

// Домашние страницы ролей.
const (
	AdminHome     = "/admin/forms"
	ApplicantHome = "/forms"
)

// Caller — аутентифицированный пользователь, от имени которого выполняется операция.
type Caller struct {
	ID    int64
	Name  string
	Email string
	Role  role.Role
}

// RequireRole проверяет, что вызывающий аутентифицирован и имеет роль r.
func RequireRole(caller *Caller, r role.Role) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	if caller.Role != r {
		return ErrForbidden
	}
	return nil
}

// RequireOwnership проверяет, что запись принадлежит вызывающему.
func RequireOwnership(callerID, ownerID int64) error {
	if callerID != ownerID {
		return ErrForbidden
	}
	return nil
}

// HomeFor возвращает домашнюю страницу вызывающего.
// ok=false для nil или роли вне набора: решение остаётся за вызывающим кодом.
func HomeFor(caller *Caller) (string, bool) {
	if caller == nil {
		return "", false
	}
	switch caller.Role {
	case role.Admin:
		return AdminHome, true
	case role.Applicant:
		return ApplicantHome, true
	default:
		return "", false
	}
}
