package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// MonitorConfig описывает, что и как часто проверяет DependencyMonitor.
type MonitorConfig struct {
	// Service — имя вершины портала в графе зависимостей.
	Service string
	// Group — значение лейбла group в метриках app_dependency_*.
	Group string
	// DB — пул pgx, обёрнутый stdlib.OpenDBFromPool.
	DB *sql.DB
	// DatabaseURL попадает только в лейблы host/port, соединение не открывается.
	DatabaseURL string
	Interval    time.Duration
	// Registerer — nil означает глобальный registry Prometheus.
	Registerer prometheus.Registerer
}

// DependencyMonitor периодически проверяет PostgreSQL и публикует
// app_dependency_health / app_dependency_latency_seconds на /metrics.
type DependencyMonitor struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDependencyMonitor регистрирует проверки. Запуск — Start.
func NewDependencyMonitor(cfg MonitorConfig, logger *slog.Logger) (*DependencyMonitor, error) {
	if cfg.DB == nil {
		return nil, errors.New("dependency monitor: не задан *sql.DB")
	}

	opts := make([]dephealth.Option, 0, 3)
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)),
			dephealth.FromURL(cfg.DatabaseURL),
			dephealth.CheckInterval(cfg.Interval),
			dephealth.Critical(true),
		),
	)
	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	dh, err := dephealth.New(cfg.Service, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}
	return &DependencyMonitor{
		dh:     dh,
		logger: logger.With(slog.String("component", "dependency_monitor")),
	}, nil
}

func (m *DependencyMonitor) Start(ctx context.Context) error {
	if err := m.dh.Start(ctx); err != nil {
		return err
	}
	m.logger.Info("Проверки зависимостей запущены")
	return nil
}

func (m *DependencyMonitor) Stop() {
	m.dh.Stop()
	m.logger.Info("Проверки зависимостей остановлены")
}

// Health — последнее известное состояние по имени зависимости.
func (m *DependencyMonitor) Health() map[string]bool {
	return m.dh.Health()
}
