package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/bigkaa/intake-portal/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationState — текущая версия схемы.
type MigrationState struct {
	Version uint
	Dirty   bool
	// Empty — ни одна миграция не применена.
	Empty bool
}

// withMigrator открывает migrate над встроенными SQL-файлами и закрывает его после fn.
func withMigrator(cfg *config.Config, fn func(m *migrate.Migrate) error) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("источник миграций: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("инициализация migrate: %w", err)
	}
	defer m.Close()
	return fn(m)
}

func stateOf(m *migrate.Migrate) (MigrationState, error) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return MigrationState{Empty: true}, nil
	case err != nil:
		return MigrationState{}, fmt.Errorf("версия схемы: %w", err)
	}
	return MigrationState{Version: version, Dirty: dirty}, nil
}

func logState(logger *slog.Logger, msg string, st MigrationState) {
	if st.Empty {
		logger.Info(msg, slog.Bool("empty", true))
		return
	}
	logger.Info(msg,
		slog.Uint64("version", uint64(st.Version)),
		slog.Bool("dirty", st.Dirty),
	)
}

// Migrate применяет все новые миграции. Уже актуальная схема — не ошибка.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	return withMigrator(cfg, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("применение миграций: %w", err)
		}
		st, err := stateOf(m)
		if err != nil {
			return err
		}
		logState(logger, "Схема БД актуальна", st)
		return nil
	})
}

// MigrateDown откатывает steps последних миграций, 0 — все.
func MigrateDown(cfg *config.Config, steps int, logger *slog.Logger) error {
	if steps < 0 {
		return fmt.Errorf("число шагов отката отрицательное: %d", steps)
	}
	return withMigrator(cfg, func(m *migrate.Migrate) error {
		var err error
		if steps == 0 {
			err = m.Down()
		} else {
			err = m.Steps(-steps)
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("откат миграций: %w", err)
		}
		st, err := stateOf(m)
		if err != nil {
			return err
		}
		logState(logger, "Миграции откачены", st)
		return nil
	})
}

// MigrationStatus возвращает версию схемы, ничего не меняя.
func MigrationStatus(cfg *config.Config) (MigrationState, error) {
	var st MigrationState
	err := withMigrator(cfg, func(m *migrate.Migrate) error {
		var err error
		st, err = stateOf(m)
		return err
	})
	return st, err
}
