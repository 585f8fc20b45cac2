// Пакет config — загрузка и валидация конфигурации портала
// из переменных окружения (префикс IP_) и необязательного .env файла.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации портала.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Язык интерфейса по умолчанию (pt, en)
	DefaultLocale string

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Файловое хранилище вложений ---

	// Корневой каталог хранилища
	StorageDir string
	// Максимальный размер вложения в байтах
	MaxUploadBytes int64

	// --- Сессии и токены ---

	// Ключ шифрования cookie сессии (base64 32 байта или произвольная строка)
	SessionSecret string
	// Время жизни сессии
	SessionTTL time.Duration
	// Secure flag для cookie (true за HTTPS)
	CookieSecure bool
	// Issuer выдаваемых JWT
	JWTIssuer string
	// Время жизни JWT
	JWTTTL time.Duration
	// Путь к PEM-файлу RSA-ключа подписи (пусто — ключ генерируется при старте)
	JWTPrivateKeyPath string

	// --- Ограничение попыток входа ---

	// URL Redis (пусто — счётчики в памяти процесса)
	RedisURL string
	// Число попыток входа за окно
	LoginRateLimit int
	// Окно ограничения попыток
	LoginRateWindow time.Duration
	// Портал за доверенным прокси: адрес клиента берётся из X-Forwarded-For
	TrustProxy bool

	// --- Кэш пользователей ---

	IdentityCacheSize int
	IdentityCacheTTL  time.Duration

	// --- topologymetrics ---

	// Группа сервиса в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Начальные данные (команда seed) ---

	SeedAdminEmail        string
	SeedAdminPassword     string
	SeedApplicantEmail    string
	SeedApplicantPassword string

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
// Перед чтением переменных подгружается .env (путь в IP_ENV_FILE),
// уже заданные переменные окружения не перезаписываются.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnvDefault("IP_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}
	var err error

	// --- Сервер ---

	// IP_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("IP_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("IP_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("IP_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("IP_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("IP_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("IP_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("IP_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.DefaultLocale = getEnvDefault("IP_DEFAULT_LOCALE", "pt")
	if cfg.DefaultLocale != "pt" && cfg.DefaultLocale != "en" {
		return nil, fmt.Errorf("IP_DEFAULT_LOCALE: недопустимое значение %q, допустимые: pt, en", cfg.DefaultLocale)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("IP_DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("IP_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("IP_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("IP_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("IP_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("IP_DB_PASSWORD"); err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("IP_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("IP_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Файловое хранилище ---

	cfg.StorageDir = getEnvDefault("IP_STORAGE_DIR", "./storage")

	// IP_MAX_UPLOAD_BYTES — предельный размер вложения (по умолчанию 1 MiB)
	maxUpload, err := getEnvInt("IP_MAX_UPLOAD_BYTES", 1<<20)
	if err != nil {
		return nil, fmt.Errorf("IP_MAX_UPLOAD_BYTES: %w", err)
	}
	if maxUpload < 1 {
		return nil, fmt.Errorf("IP_MAX_UPLOAD_BYTES: значение %d должно быть положительным", maxUpload)
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	// --- Сессии и токены ---

	// IP_SESSION_SECRET — пусто допустимо: ключ генерируется при старте,
	// сессии не переживают рестарт
	cfg.SessionSecret = getEnvDefault("IP_SESSION_SECRET", "")
	cfg.SessionTTL, err = getEnvDuration("IP_SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("IP_SESSION_TTL: %w", err)
	}
	cfg.CookieSecure, err = getEnvBool("IP_COOKIE_SECURE", false)
	if err != nil {
		return nil, fmt.Errorf("IP_COOKIE_SECURE: %w", err)
	}

	cfg.JWTIssuer = getEnvDefault("IP_JWT_ISSUER", "intake-portal")
	cfg.JWTTTL, err = getEnvDuration("IP_JWT_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("IP_JWT_TTL: %w", err)
	}
	cfg.JWTPrivateKeyPath = getEnvDefault("IP_JWT_PRIVATE_KEY_PATH", "")

	// --- Ограничение попыток входа ---

	cfg.RedisURL = getEnvDefault("IP_REDIS_URL", "")
	if cfg.RedisURL != "" {
		if _, err := url.Parse(cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("IP_REDIS_URL: %w", err)
		}
	}
	cfg.LoginRateLimit, err = getEnvInt("IP_LOGIN_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("IP_LOGIN_RATE_LIMIT: %w", err)
	}
	if cfg.LoginRateLimit < 1 {
		return nil, fmt.Errorf("IP_LOGIN_RATE_LIMIT: значение %d должно быть положительным", cfg.LoginRateLimit)
	}
	cfg.LoginRateWindow, err = getEnvDuration("IP_LOGIN_RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("IP_LOGIN_RATE_WINDOW: %w", err)
	}
	cfg.TrustProxy, err = getEnvBool("IP_TRUST_PROXY", false)
	if err != nil {
		return nil, fmt.Errorf("IP_TRUST_PROXY: %w", err)
	}

	// --- Кэш пользователей ---

	cfg.IdentityCacheSize, err = getEnvInt("IP_IDENTITY_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("IP_IDENTITY_CACHE_SIZE: %w", err)
	}
	if cfg.IdentityCacheSize < 1 {
		return nil, fmt.Errorf("IP_IDENTITY_CACHE_SIZE: значение %d должно быть положительным", cfg.IdentityCacheSize)
	}
	cfg.IdentityCacheTTL, err = getEnvDuration("IP_IDENTITY_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("IP_IDENTITY_CACHE_TTL: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("IP_DEPHEALTH_GROUP", "intake")
	cfg.DephealthCheckInterval, err = getEnvDuration("IP_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IP_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Начальные данные ---

	cfg.SeedAdminEmail = getEnvDefault("IP_SEED_ADMIN_EMAIL", "admin@example.com")
	cfg.SeedAdminPassword = getEnvDefault("IP_SEED_ADMIN_PASSWORD", "")
	cfg.SeedApplicantEmail = getEnvDefault("IP_SEED_APPLICANT_EMAIL", "applicant@example.com")
	cfg.SeedApplicantPassword = getEnvDefault("IP_SEED_APPLICANT_PASSWORD", "")

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("IP_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IP_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL (лейблы topologymetrics).
func (c *Config) DatabaseURL() string {
	return c.databaseURL("postgres")
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return c.databaseURL("pgx5")
}

func (c *Config) databaseURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// loadDotEnv подгружает переменные из .env. Отсутствие файла не ошибка.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("IP_ENV_FILE: ошибка чтения %s: %w", path, err)
	}
	return nil
}

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
