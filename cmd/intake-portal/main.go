// Точка входа портала приёма анкет.
// Команды: serve (по умолчанию) — миграции, подключение к PostgreSQL,
// сервисный слой, HTTP-сервер с graceful shutdown; migrate up/down;
// seed — начальные учётные записи; version.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/bigkaa/intake-portal/internal/api/handlers"
	"github.com/bigkaa/intake-portal/internal/api/middleware"
	"github.com/bigkaa/intake-portal/internal/api/openapi"
	"github.com/bigkaa/intake-portal/internal/auth"
	"github.com/bigkaa/intake-portal/internal/config"
	"github.com/bigkaa/intake-portal/internal/database"
	"github.com/bigkaa/intake-portal/internal/repository"
	"github.com/bigkaa/intake-portal/internal/server"
	"github.com/bigkaa/intake-portal/internal/service"
	"github.com/bigkaa/intake-portal/internal/storage/filestore"
	"github.com/bigkaa/intake-portal/internal/ui/i18n"
	"github.com/bigkaa/intake-portal/internal/ui/pages"
)

const serviceName = "intake-portal"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Портал приёма анкет кандидатов",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Запуск HTTP-сервера",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context())
			},
		},
		migrateCmd(),
		&cobra.Command{
			Use:   "seed",
			Short: "Создание начальных учётных записей (IP_SEED_*)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSeed(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Версия сборки",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", serviceName, config.Version)
			},
		},
	)
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Управление миграциями БД",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Откат миграций",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			return database.MigrateDown(cfg, steps, logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "число откатываемых миграций (0 — все)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Применение всех миграций",
			RunE: func(_ *cobra.Command, _ []string) error {
				cfg, logger, err := bootstrap()
				if err != nil {
					return err
				}
				return database.Migrate(cfg, logger)
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Текущая версия схемы",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, err := bootstrap()
				if err != nil {
					return err
				}
				st, err := database.MigrationStatus(cfg)
				if err != nil {
					return err
				}
				switch {
				case st.Empty:
					fmt.Fprintln(cmd.OutOrStdout(), "миграции не применялись")
				case st.Dirty:
					fmt.Fprintf(cmd.OutOrStdout(), "версия %d (dirty)\n", st.Version)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "версия %d\n", st.Version)
				}
				return nil
			},
		},
	)
	return cmd
}

// bootstrap загружает конфигурацию и настраивает логирование.
func bootstrap() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("загрузка конфигурации: %w", err)
	}
	return cfg, config.SetupLogger(cfg), nil
}

func runSeed(ctx context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	if err := database.Migrate(cfg, logger); err != nil {
		return fmt.Errorf("миграции БД: %w", err)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	bundle, err := i18n.Load(cfg.DefaultLocale, logger)
	if err != nil {
		return err
	}
	accounts := service.NewAccountService(
		repository.NewUserRepository(pool),
		service.NewValidator(bundle, cfg.MaxUploadBytes),
		logger,
	).WithTransactions(repository.NewTxRunner(pool))

	created, err := accounts.Seed(ctx, service.DefaultSeedAccounts(
		cfg.SeedAdminEmail, cfg.SeedAdminPassword,
		cfg.SeedApplicantEmail, cfg.SeedApplicantPassword,
	))
	if err != nil {
		return fmt.Errorf("начальные учётные записи: %w", err)
	}
	logger.Info("Начальные учётные записи созданы", slog.Any("emails", created))
	return nil
}

func runServe(ctx context.Context) error {
	// 1. Конфигурация и логирование
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	logger.Info("Портал запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 2. Проверка описания API
	if _, err := openapi.Load(ctx); err != nil {
		return err
	}

	// 3. Миграции и подключение к PostgreSQL
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		return fmt.Errorf("миграции БД: %w", err)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Адаптер pgxpool → *sql.DB для topologymetrics: проверка идёт через пул приложения
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 4. Хранилище вложений
	store, err := filestore.New(cfg.StorageDir)
	if err != nil {
		return err
	}
	logger.Info("Хранилище вложений готово",
		slog.String("dir", store.Root()),
		slog.Int64("max_upload_bytes", cfg.MaxUploadBytes),
	)

	// 5. Локализация и страницы
	bundle, err := i18n.Load(cfg.DefaultLocale, logger)
	if err != nil {
		return err
	}
	p := pages.New(bundle)

	// 6. Repositories и services
	users := repository.NewUserRepository(pool)
	forms := repository.NewFormRepository(pool)
	validator := service.NewValidator(bundle, cfg.MaxUploadBytes)

	accounts := service.NewAccountService(users, validator, logger).WithTransactions(repository.NewTxRunner(pool))
	formSvc := service.NewFormService(forms, store, validator, logger)
	reviewSvc := service.NewReviewService(forms, users, store, logger)

	// 7. Сессии и токены
	if cfg.SessionSecret == "" {
		logger.Warn("IP_SESSION_SECRET не задан, сессии не сохраняются между рестартами")
	}
	sessions, err := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)
	if err != nil {
		return fmt.Errorf("менеджер сессий: %w", err)
	}
	key, err := auth.LoadSigningKey(cfg.JWTPrivateKeyPath, logger)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(ctx, key, cfg.JWTIssuer, cfg.JWTTTL, logger)
	if err != nil {
		return err
	}
	identity := middleware.NewIdentity(sessions, tokens, accounts, bundle,
		cfg.IdentityCacheSize, cfg.IdentityCacheTTL, logger)

	// 8. Ограничение попыток входа: Redis или память процесса
	var limiter middleware.Limiter = middleware.NewMemoryLimiter()
	if cfg.RedisURL != "" {
		rdb, err := middleware.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis недоступен, счётчики попыток в памяти процесса",
				slog.String("error", err.Error()),
			)
		} else {
			defer rdb.Close()
			limiter = middleware.NewRedisLimiter(rdb)
			logger.Info("Счётчики попыток входа в Redis")
		}
	}

	// 9. topologymetrics — мониторинг зависимостей
	var deps handlers.DependencyHealth
	monitor, err := service.NewDependencyMonitor(service.MonitorConfig{
		Service:     serviceName,
		Group:       cfg.DephealthGroup,
		DB:          pgDB,
		DatabaseURL: cfg.DatabaseURL(),
		Interval:    cfg.DephealthCheckInterval,
	}, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if err := monitor.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
	} else {
		defer monitor.Stop()
		deps = monitor
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 10. HTTP
	h := server.Handlers{
		Forms:  handlers.NewFormsHandler(formSvc, bundle, p, cfg.MaxUploadBytes, logger),
		Admin:  handlers.NewAdminFormsHandler(reviewSvc, bundle, p, logger),
		Auth:   handlers.NewAuthHandler(accounts, sessions, tokens, identity, bundle, p, logger),
		Health: handlers.NewHealthHandler(database.NewReadinessChecker(pool), store, deps),
	}
	router := server.NewRouter(logger, h, server.Options{
		Bundle:   bundle,
		Pages:    p,
		Identity: identity.Middleware(),
		LoginLimit: middleware.RateLimit(limiter, middleware.LoginKey,
			cfg.LoginRateLimit, cfg.LoginRateWindow, bundle, logger),
		TrustProxy: cfg.TrustProxy,
	})

	if err := server.New(cfg, logger, router).Run(); err != nil {
		return err
	}
	logger.Info("Портал остановлен")
	return nil
}
