package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"IP_ENV_FILE":    "/nonexistent/.env",
		"IP_DB_HOST":     "localhost",
		"IP_DB_NAME":     "intake",
		"IP_DB_USER":     "intake",
		"IP_DB_PASSWORD": "secret",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DefaultLocale != "pt" {
		t.Errorf("DefaultLocale = %q, ожидается pt", cfg.DefaultLocale)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, ожидается disable", cfg.DBSSLMode)
	}
	if cfg.StorageDir != "./storage" {
		t.Errorf("StorageDir = %q, ожидается ./storage", cfg.StorageDir)
	}
	if cfg.MaxUploadBytes != 1048576 {
		t.Errorf("MaxUploadBytes = %d, ожидается 1048576", cfg.MaxUploadBytes)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, ожидается 24h", cfg.SessionTTL)
	}
	if cfg.JWTTTL != time.Hour {
		t.Errorf("JWTTTL = %v, ожидается 1h", cfg.JWTTTL)
	}
	if cfg.RedisURL != "" {
		t.Errorf("RedisURL = %q, ожидается пустой", cfg.RedisURL)
	}
	if cfg.LoginRateLimit != 10 {
		t.Errorf("LoginRateLimit = %d, ожидается 10", cfg.LoginRateLimit)
	}
	if cfg.LoginRateWindow != time.Minute {
		t.Errorf("LoginRateWindow = %v, ожидается 1m", cfg.LoginRateWindow)
	}
	if cfg.TrustProxy {
		t.Error("TrustProxy = true, ожидается false")
	}
	if cfg.IdentityCacheSize != 1024 {
		t.Errorf("IdentityCacheSize = %d, ожидается 1024", cfg.IdentityCacheSize)
	}
	if cfg.SeedAdminEmail != "admin@example.com" {
		t.Errorf("SeedAdminEmail = %q", cfg.SeedAdminEmail)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	envs := minimalEnvs()
	envs["IP_PORT"] = "9000"
	envs["IP_LOG_LEVEL"] = "debug"
	envs["IP_LOG_FORMAT"] = "text"
	envs["IP_DEFAULT_LOCALE"] = "en"
	envs["IP_STORAGE_DIR"] = "/var/lib/intake"
	envs["IP_MAX_UPLOAD_BYTES"] = "2048"
	envs["IP_COOKIE_SECURE"] = "true"
	envs["IP_REDIS_URL"] = "redis://localhost:6379/0"
	envs["IP_LOGIN_RATE_LIMIT"] = "3"
	envs["IP_LOGIN_RATE_WINDOW"] = "30s"
	envs["IP_TRUST_PROXY"] = "true"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, ожидается 9000", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if cfg.DefaultLocale != "en" {
		t.Errorf("DefaultLocale = %q, ожидается en", cfg.DefaultLocale)
	}
	if cfg.StorageDir != "/var/lib/intake" {
		t.Errorf("StorageDir = %q", cfg.StorageDir)
	}
	if cfg.MaxUploadBytes != 2048 {
		t.Errorf("MaxUploadBytes = %d, ожидается 2048", cfg.MaxUploadBytes)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure = false, ожидается true")
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.LoginRateLimit != 3 || cfg.LoginRateWindow != 30*time.Second {
		t.Errorf("лимит попыток = %d/%v, ожидается 3/30s", cfg.LoginRateLimit, cfg.LoginRateWindow)
	}
	if !cfg.TrustProxy {
		t.Error("TrustProxy = false, ожидается true")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	requiredVars := []string{"IP_DB_HOST", "IP_DB_NAME", "IP_DB_USER", "IP_DB_PASSWORD"}

	for _, missing := range requiredVars {
		t.Run(missing, func(t *testing.T) {
			envs := minimalEnvs()
			envs[missing] = ""
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() не вернул ошибку при отсутствии %s", missing)
			}
			if !strings.Contains(err.Error(), missing) {
				t.Errorf("ошибка не называет переменную %s: %v", missing, err)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"IP_PORT", "0"},
		{"IP_PORT", "70000"},
		{"IP_PORT", "abc"},
		{"IP_LOG_LEVEL", "verbose"},
		{"IP_LOG_FORMAT", "xml"},
		{"IP_DEFAULT_LOCALE", "de"},
		{"IP_DB_SSL_MODE", "prefer"},
		{"IP_MAX_UPLOAD_BYTES", "0"},
		{"IP_SESSION_TTL", "сутки"},
		{"IP_COOKIE_SECURE", "да"},
		{"IP_LOGIN_RATE_LIMIT", "0"},
		{"IP_TRUST_PROXY", "sim"},
		{"IP_IDENTITY_CACHE_SIZE", "-1"},
		{"IP_SHUTDOWN_TIMEOUT", "5"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			envs := minimalEnvs()
			envs[tt.key] = tt.value
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("Load() не вернул ошибку для %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "IP_DB_HOST=db.from.file\nIP_DB_NAME=fromfile\nIP_PORT=8181\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("запись .env: %v", err)
	}

	envs := minimalEnvs()
	envs["IP_ENV_FILE"] = path
	delete(envs, "IP_DB_HOST")
	setEnvs(t, envs)
	// Переменные из файла выставляются через os.Setenv, очищаем после теста
	t.Setenv("IP_DB_HOST", "")
	os.Unsetenv("IP_DB_HOST")
	t.Setenv("IP_PORT", "")
	os.Unsetenv("IP_PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.DBHost != "db.from.file" {
		t.Errorf("DBHost = %q, ожидается значение из .env", cfg.DBHost)
	}
	if cfg.Port != 8181 {
		t.Errorf("Port = %d, ожидается 8181 из .env", cfg.Port)
	}
	// Уже заданная переменная окружения имеет приоритет над .env
	if cfg.DBName != "intake" {
		t.Errorf("DBName = %q, ожидается intake из окружения", cfg.DBName)
	}
}

func TestMigrateURL(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 5432, DBName: "intake",
		DBUser: "intake", DBPassword: "p@ss/word", DBSSLMode: "disable",
	}
	got := cfg.MigrateURL()
	want := "pgx5://intake:p%40ss%2Fword@db:5432/intake?sslmode=disable"
	if got != want {
		t.Errorf("MigrateURL() = %q, ожидается %q", got, want)
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 6432, DBName: "intake",
		DBUser: "intake", DBPassword: "secret", DBSSLMode: "require",
	}
	want := "postgres://intake:secret@db:6432/intake?sslmode=require"
	if got := cfg.DatabaseURL(); got != want {
		t.Errorf("DatabaseURL() = %q, ожидается %q", got, want)
	}
}
