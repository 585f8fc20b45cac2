// Пакет role — закрытое перечисление ролей портала.
// Ровно два варианта: Admin и Applicant. Нулевое значение недопустимо,
// любое сериализованное значение вне набора отклоняется с ErrInvalidRole.
package role

import (
	"errors"
	"fmt"
)

// ErrInvalidRole — значение не входит в набор ролей.
var ErrInvalidRole = errors.New("некорректная роль: допустимые значения — admin, applicant")

// Role — роль пользователя портала.
type Role uint8

const (
	// Admin — просмотр, экспорт и удаление всех анкет.
	Admin Role = iota + 1
	// Applicant — работа только со своими анкетами.
	Applicant
)

// Сериализованные значения ролей (колонка users.role, JSON, claims).
const (
	slugAdmin     = "admin"
	slugApplicant = "applicant"
)

// All возвращает все роли в порядке объявления.
func All() []Role {
	return []Role{Admin, Applicant}
}

// Parse преобразует строку в Role.
func Parse(s string) (Role, error) {
	switch s {
	case slugAdmin:
		return Admin, nil
	case slugApplicant:
		return Applicant, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// String возвращает сериализованное значение роли.
// Для недопустимого значения возвращает пустую строку.
func (r Role) String() string {
	switch r {
	case Admin:
		return slugAdmin
	case Applicant:
		return slugApplicant
	default:
		return ""
	}
}

// Label возвращает отображаемое название роли.
func (r Role) Label() string {
	switch r {
	case Admin:
		return "Administrador"
	case Applicant:
		return "Candidato"
	default:
		return ""
	}
}

// Valid сообщает, является ли значение одним из вариантов перечисления.
func (r Role) Valid() bool {
	return r == Admin || r == Applicant
}

// IsAdmin — роль администратора.
func (r Role) IsAdmin() bool { return r == Admin }

// IsApplicant — роль кандидата.
func (r Role) IsApplicant() bool { return r == Applicant }

// MarshalText реализует encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler (используется и encoding/json).
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
