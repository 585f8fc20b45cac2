package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bigkaa/intake-portal/internal/database/dbtest"
)

// TestConnect проверяет подключение к PostgreSQL через pgxpool.
func TestConnect(t *testing.T) {
	cfg := dbtest.Start(t)
	ctx := context.Background()

	pool, err := Connect(ctx, cfg, dbtest.Logger())
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("pool.Ping() вернул ошибку: %v", err)
	}
}

// TestMigrate проверяет применение и откат миграций.
func TestMigrate(t *testing.T) {
	cfg := dbtest.Start(t)
	logger := dbtest.Logger()

	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}
	// Повторное применение — без ошибки (ErrNoChange)
	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Повторный Migrate() вернул ошибку: %v", err)
	}

	ctx := context.Background()
	pool := dbtest.Pool(t, cfg)

	for _, table := range []string{"users", "application_forms"} {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)`, table).Scan(&exists)
		if err != nil {
			t.Fatalf("Ошибка проверки таблицы %s: %v", table, err)
		}
		if !exists {
			t.Errorf("Таблица %s не создана", table)
		}
	}

	// CHECK-ограничения отклоняют значения вне набора
	if _, err := pool.Exec(ctx,
		`INSERT INTO users (name, email, password_hash, role) VALUES ('x', 'x@example.com', 'h', 'superuser')`,
	); err == nil {
		t.Error("ожидали нарушение users_role_check")
	}

	var userID int64
	if err := pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role) VALUES ('x', 'x@example.com', 'h', 'applicant') RETURNING id`,
	).Scan(&userID); err != nil {
		t.Fatalf("вставка пользователя: %v", err)
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO application_forms (user_id, name, email, position, education) VALUES ($1, 'x', 'x@example.com', 'dev', 'PhD')`,
		userID,
	); err == nil {
		t.Error("ожидали нарушение application_forms_education_check")
	}

	// Удаление пользователя с анкетами запрещено
	if _, err := pool.Exec(ctx,
		`INSERT INTO application_forms (user_id, name, email, position, education) VALUES ($1, 'x', 'x@example.com', 'dev', 'Mestrado')`,
		userID,
	); err != nil {
		t.Fatalf("вставка анкеты: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err == nil {
		t.Error("ожидали нарушение внешнего ключа при удалении пользователя с анкетами")
	}
	if _, err := pool.Exec(ctx, `DELETE FROM application_forms`); err != nil {
		t.Fatalf("очистка анкет: %v", err)
	}

	st, err := MigrationStatus(cfg)
	if err != nil {
		t.Fatalf("MigrationStatus() вернул ошибку: %v", err)
	}
	if st.Empty || st.Dirty || st.Version != 2 {
		t.Errorf("MigrationStatus() = %+v, ожидали версию 2", st)
	}

	if err := MigrateDown(cfg, 0, logger); err != nil {
		t.Fatalf("MigrateDown() вернул ошибку: %v", err)
	}
	var exists bool
	if err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'users')`,
	).Scan(&exists); err != nil {
		t.Fatalf("Ошибка проверки таблицы users: %v", err)
	}
	if exists {
		t.Error("таблица users осталась после отката")
	}
	if st, err := MigrationStatus(cfg); err != nil || !st.Empty {
		t.Errorf("после полного отката MigrationStatus() = %+v, %v", st, err)
	}
	if err := MigrateDown(cfg, -1, logger); err == nil {
		t.Error("ожидали ошибку для отрицательного числа шагов")
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadinessChecker_Fail(t *testing.T) {
	c := NewReadinessChecker(pingFunc(func(context.Context) error {
		return errors.New("connection refused")
	}))
	status, msg := c.CheckReady()
	if status != "fail" || !strings.Contains(msg, "connection refused") {
		t.Errorf("CheckReady() = %q, %q", status, msg)
	}
}

// TestReadinessChecker проверяет ReadinessChecker.
func TestReadinessChecker(t *testing.T) {
	cfg := dbtest.Start(t)
	ctx := context.Background()

	pool, err := Connect(ctx, cfg, dbtest.Logger())
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	status, msg := NewReadinessChecker(pool).CheckReady()
	if status != "ok" {
		t.Errorf("CheckReady() status = %q, message = %q; ожидали ok", status, msg)
	}
}
