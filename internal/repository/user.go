package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/intake-portal/internal/domain/model"
	"github.com/bigkaa/intake-portal/internal/domain/role"
)

// UserRepository — интерфейс для таблицы users.
type UserRepository interface {
	// Create создаёт пользователя. Email занят — ErrConflict.
	Create(ctx context.Context, u *model.User) error
	// GetByID возвращает пользователя по ID.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByEmail возвращает пользователя по email без учёта регистра.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// ListByRole возвращает краткие сведения о пользователях роли, по имени.
	ListByRole(ctx context.Context, r role.Role) ([]model.OwnerSummary, error)
	// CountByRole возвращает количество пользователей роли.
	CountByRole(ctx context.Context, r role.Role) (int64, error)
}

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, name, email, password_hash, role, email_verified_at, created_at, updated_at`

// scanUser читает колонки userColumns. Роль хранится строкой и разбирается через role.Parse.
func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	var roleSlug string
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &roleSlug,
		&u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r, err := role.Parse(roleSlug)
	if err != nil {
		return nil, fmt.Errorf("пользователь %d: %w", u.ID, err)
	}
	u.Role = r
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	if !u.Role.Valid() {
		return fmt.Errorf("ошибка создания пользователя: %w", role.ErrInvalidRole)
	}

	query := `
		INSERT INTO users (name, email, password_hash, role, email_verified_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.Name, u.Email, u.PasswordHash, u.Role.String(), u.EmailVerifiedAt,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: пользователь с email %s уже существует", ErrConflict, u.Email)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) ListByRole(ctx context.Context, rl role.Role) ([]model.OwnerSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, email FROM users WHERE role = $1 ORDER BY name, id`,
		rl.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	result := make([]model.OwnerSummary, 0)
	for rows.Next() {
		var s model.OwnerSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *userRepo) CountByRole(ctx context.Context, rl role.Role) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, rl.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	return count, nil
}
