// Пакет dbtest — PostgreSQL в Docker-контейнере для интеграционных тестов.
// Тесты запускаются только при установленной TEST_INTEGRATION.
package dbtest

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/intake-portal/internal/config"
)

// Logger возвращает логгер для тестов.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Start запускает PostgreSQL через testcontainers и возвращает конфиг подключения.
// Без TEST_INTEGRATION тест пропускается.
func Start(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("intake_test"),
		postgres.WithUsername("intake"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("IP_ENV_FILE", "/nonexistent/.env")
	t.Setenv("IP_DB_HOST", host)
	t.Setenv("IP_DB_PORT", port.Port())
	t.Setenv("IP_DB_NAME", "intake_test")
	t.Setenv("IP_DB_USER", "intake")
	t.Setenv("IP_DB_PASSWORD", "test-password")
	t.Setenv("IP_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	return cfg
}

// Pool открывает пул к уже запущенной базе, закрывается через t.Cleanup.
func Pool(t *testing.T, cfg *config.Config) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseDSN())
	if err != nil {
		t.Fatalf("Ошибка создания пула: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
