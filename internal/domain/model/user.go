package model

import (
	"time"

	"github.com/bigkaa/intake-portal/internal/domain/role"
)

// User — учётная запись портала.
// Хранится в таблице users.
type User struct {
	// ID — идентификатор (bigserial)
	ID int64 `json:"id"`
	// Name — отображаемое имя
	Name string `json:"name"`
	// Email — уникальный адрес
	Email string `json:"email"`
	// PasswordHash — bcrypt-хэш пароля, никогда не сериализуется
	PasswordHash string `json:"-"`
	// Role — роль (admin, applicant). Не меняется в обычном потоке
	Role role.Role `json:"role"`
	// EmailVerifiedAt — время подтверждения email (опционально)
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	// CreatedAt — время создания записи
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerSummary — краткие сведения о владельце анкеты для административных представлений.
type OwnerSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary возвращает краткие сведения о пользователе.
func (u *User) Summary() OwnerSummary {
	return OwnerSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
