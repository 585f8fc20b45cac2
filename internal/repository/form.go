package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/intake-portal/internal/domain/model"
)

// FormRepository — интерфейс CRUD для таблицы application_forms.
type FormRepository interface {
	// Create создаёт анкету. Заполняет ID, CreatedAt, UpdatedAt.
	Create(ctx context.Context, f *model.ApplicationForm) error
	// GetByID возвращает анкету по ID.
	GetByID(ctx context.Context, id int64) (*model.ApplicationForm, error)
	// GetWithOwner возвращает анкету вместе с владельцем.
	GetWithOwner(ctx context.Context, id int64) (*model.FormWithOwner, error)
	// Update обновляет поля анкеты. Владелец не меняется.
	Update(ctx context.Context, f *model.ApplicationForm) error
	// Delete удаляет анкету.
	Delete(ctx context.Context, id int64) error
	// ListByOwner возвращает анкеты владельца, новые первыми.
	ListByOwner(ctx context.Context, userID int64, limit, offset int) ([]*model.ApplicationForm, error)
	// CountByOwner возвращает количество анкет владельца.
	CountByOwner(ctx context.Context, userID int64) (int, error)
	// List возвращает анкеты с владельцами по фильтрам, новые первыми.
	List(ctx context.Context, filters FormFilters, limit, offset int) ([]*model.FormWithOwner, error)
	// Count возвращает количество анкет по фильтрам.
	Count(ctx context.Context, filters FormFilters) (int, error)
	// Each построчно передаёт в fn все анкеты по фильтрам, не накапливая их в памяти.
	Each(ctx context.Context, filters FormFilters, fn func(*model.FormWithOwner) error) error
	// CountSince возвращает общее число анкет и число поданных начиная с since.
	CountSince(ctx context.Context, since time.Time) (total, recent int64, err error)
}

// FormFilters — фильтры административного списка. Условия объединяются через AND.
type FormFilters struct {
	// UserID — точное совпадение владельца
	UserID *int64
	// Position — подстрока должности без учёта регистра
	Position *string
	// Education — подстрока уровня образования без учёта регистра
	Education *string
}

// formRepo — реализация FormRepository.
type formRepo struct {
	db DBTX
}

// NewFormRepository создаёт репозиторий анкет.
func NewFormRepository(db DBTX) FormRepository {
	return &formRepo{db: db}
}

const formColumns = `f.id, f.user_id, f.name, f.email, f.phone, f.position, f.education,
	f.observations, f.cv_path, f.created_at, f.updated_at`

const formWithOwnerColumns = formColumns + `, u.id, u.name, u.email`

// scanForm читает колонки formColumns.
func scanForm(row pgx.Row, f *model.ApplicationForm, extra ...any) error {
	dest := []any{
		&f.ID, &f.UserID, &f.Name, &f.Email, &f.Phone, &f.Position, &f.Education,
		&f.Observations, &f.CVPath, &f.CreatedAt, &f.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// scanFormWithOwner читает колонки formWithOwnerColumns.
func scanFormWithOwner(row pgx.Row) (*model.FormWithOwner, error) {
	fw := &model.FormWithOwner{}
	err := scanForm(row, &fw.ApplicationForm, &fw.Owner.ID, &fw.Owner.Name, &fw.Owner.Email)
	if err != nil {
		return nil, err
	}
	return fw, nil
}

func (r *formRepo) Create(ctx context.Context, f *model.ApplicationForm) error {
	query := `
		INSERT INTO application_forms (user_id, name, email, phone, position, education,
			observations, cv_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		f.UserID, f.Name, f.Email, f.Phone, f.Position, f.Education,
		f.Observations, f.CVPath,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания анкеты: %w", err)
	}
	return nil
}

func (r *formRepo) GetByID(ctx context.Context, id int64) (*model.ApplicationForm, error) {
	query := `SELECT ` + formColumns + ` FROM application_forms f WHERE f.id = $1`

	f := &model.ApplicationForm{}
	if err := scanForm(r.db.QueryRow(ctx, query, id), f); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения анкеты: %w", err)
	}
	return f, nil
}

func (r *formRepo) GetWithOwner(ctx context.Context, id int64) (*model.FormWithOwner, error) {
	query := `
		SELECT ` + formWithOwnerColumns + `
		FROM application_forms f
		JOIN users u ON u.id = f.user_id
		WHERE f.id = $1`

	fw, err := scanFormWithOwner(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения анкеты: %w", err)
	}
	return fw, nil
}

func (r *formRepo) Update(ctx context.Context, f *model.ApplicationForm) error {
	// user_id намеренно отсутствует в SET
	query := `
		UPDATE application_forms
		SET name = $2, email = $3, phone = $4, position = $5, education = $6,
			observations = $7, cv_path = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		f.ID, f.Name, f.Email, f.Phone, f.Position, f.Education,
		f.Observations, f.CVPath,
	).Scan(&f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления анкеты: %w", err)
	}
	return nil
}

func (r *formRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM application_forms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления анкеты: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *formRepo) ListByOwner(ctx context.Context, userID int64, limit, offset int) ([]*model.ApplicationForm, error) {
	query := `
		SELECT ` + formColumns + `
		FROM application_forms f
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка анкет: %w", err)
	}
	defer rows.Close()

	result := make([]*model.ApplicationForm, 0)
	for rows.Next() {
		f := &model.ApplicationForm{}
		if err := scanForm(rows, f); err != nil {
			return nil, fmt.Errorf("ошибка сканирования анкеты: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *formRepo) CountByOwner(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM application_forms WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта анкет: %w", err)
	}
	return count, nil
}

// buildFormWhere строит WHERE-условие и аргументы для фильтрации анкет.
// Подстроки сравниваются через ILIKE с экранированием % и _.
func buildFormWhere(filters FormFilters, startArg int) (string, []any) {
	var conditions []string
	var args []any
	argNum := startArg

	if filters.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("f.user_id = $%d", argNum))
		args = append(args, *filters.UserID)
		argNum++
	}
	if filters.Position != nil && *filters.Position != "" {
		conditions = append(conditions, fmt.Sprintf(`f.position ILIKE $%d ESCAPE '\'`, argNum))
		args = append(args, containsPattern(*filters.Position))
		argNum++
	}
	if filters.Education != nil && *filters.Education != "" {
		conditions = append(conditions, fmt.Sprintf(`f.education ILIKE $%d ESCAPE '\'`, argNum))
		args = append(args, containsPattern(*filters.Education))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

func (r *formRepo) List(ctx context.Context, filters FormFilters, limit, offset int) ([]*model.FormWithOwner, error) {
	where, args := buildFormWhere(filters, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM application_forms f
		JOIN users u ON u.id = f.user_id
		%s
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT $%d OFFSET $%d`, formWithOwnerColumns, where, argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка анкет: %w", err)
	}
	defer rows.Close()

	result := make([]*model.FormWithOwner, 0)
	for rows.Next() {
		fw, err := scanFormWithOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования анкеты: %w", err)
		}
		result = append(result, fw)
	}
	return result, rows.Err()
}

func (r *formRepo) Count(ctx context.Context, filters FormFilters) (int, error) {
	where, args := buildFormWhere(filters, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM application_forms f %s`, where)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта анкет: %w", err)
	}
	return count, nil
}

func (r *formRepo) Each(ctx context.Context, filters FormFilters, fn func(*model.FormWithOwner) error) error {
	where, args := buildFormWhere(filters, 1)

	query := fmt.Sprintf(`
		SELECT %s
		FROM application_forms f
		JOIN users u ON u.id = f.user_id
		%s
		ORDER BY f.created_at DESC, f.id DESC`, formWithOwnerColumns, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка выборки анкет: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		fw, err := scanFormWithOwner(rows)
		if err != nil {
			return fmt.Errorf("ошибка сканирования анкеты: %w", err)
		}
		if err := fn(fw); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *formRepo) CountSince(ctx context.Context, since time.Time) (total, recent int64, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= $1)
		FROM application_forms`

	if err := r.db.QueryRow(ctx, query, since).Scan(&total, &recent); err != nil {
		return 0, 0, fmt.Errorf("ошибка подсчёта анкет: %w", err)
	}
	return total, recent, nil
}
