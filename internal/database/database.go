// Пакет database — пул pgx, миграции golang-migrate и проверка готовности БД.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/intake-portal/internal/config"
)

const pingTimeout = 3 * time.Second

// Connect открывает пул и сразу проверяет его ping-ом,
// чтобы ошибка подключения проявилась при старте, а не на первом запросе.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("разбор DSN PostgreSQL: %w", err)
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "intake-portal"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("пул PostgreSQL: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("PostgreSQL %s:%d недоступен: %w", cfg.DBHost, cfg.DBPort, err)
	}

	logger.Info("PostgreSQL подключён",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", int(poolCfg.MaxConns)),
	)
	return pool, nil
}

// Pinger — часть *pgxpool.Pool, нужная проверке готовности.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker отвечает на /health/ready за PostgreSQL.
type ReadinessChecker struct {
	db Pinger
}

func NewReadinessChecker(db Pinger) *ReadinessChecker {
	return &ReadinessChecker{db: db}
}

// CheckReady — ("ok", …) или ("fail", причина).
func (c *ReadinessChecker) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		return "fail", "ping: " + err.Error()
	}
	return "ok", "ping ok"
}
