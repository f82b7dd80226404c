// Пакет config — загрузка и валидация конфигурации Statement Query
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Допустимые бэкенды хранилища выписок.
const (
	StorageBackendS3 = "s3"
	StorageBackendFS = "fs"
)

// Config содержит все параметры конфигурации Statement Query.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s, скачивание PDF)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- Хранилище выписок ---

	// Бэкенд хранилища: s3 или fs
	StorageBackend string
	// Корневая директория (бэкенд fs)
	StorageDir string
	// Bucket (бэкенд s3)
	S3Bucket string
	// Регион (бэкенд s3)
	S3Region string
	// URL S3-совместимого сервиса (пусто — AWS)
	S3Endpoint string
	// Ключи доступа (пусто — стандартная цепочка AWS)
	S3AccessKey string
	S3SecretKey string

	// --- API выписок ---

	// Базовый URL API поиска выписок
	StatementAPIURL string
	// Путь к CA-сертификату для TLS (опционально)
	StatementAPICACert string
	// Путь health endpoint API для topologymetrics
	StatementAPIHealthPath string
	// Таймаут одного вызова API (по умолчанию 10s)
	StatementAPITimeout time.Duration

	// --- Circuit breaker ---

	// Число отказов до открытия circuit (по умолчанию 5)
	BreakerFailureThreshold int
	// Время в OPEN до пробного вызова (по умолчанию 30s)
	BreakerResetTimeout time.Duration

	// --- Поиск ---

	// Общий таймаут листинга хранилища (по умолчанию 25s)
	ListingTimeout time.Duration
	// Размер страницы по умолчанию (по умолчанию 50)
	SearchDefaultLimit int
	// Максимальный размер страницы (по умолчанию 100)
	SearchMaxLimit int

	// --- Кэш ---

	// Максимальное количество записей в кэше (по умолчанию 10000)
	CacheMaxSize int
	// TTL записи кэша (по умолчанию 5m)
	CacheTTL time.Duration

	// --- PostgreSQL (опционально, справочник схем) ---

	// Хост PostgreSQL (пусто — справочник схем только встроенный)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	// Интервал обновления справочника схем из БД
	SchemeRefreshInterval time.Duration

	// --- topologymetrics ---

	// Имя группы в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Лейбл isentry=yes для всех зависимостей
	DephealthIsEntry bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SQ_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("SQ_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("SQ_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SQ_PORT: порт %d вне диапазона 1-65535", cfg.Port)
	}

	// SQ_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("SQ_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("SQ_LOG_LEVEL: %w", err)
	}

	// SQ_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SQ_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SQ_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("SQ_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SQ_HTTP_READ_TIMEOUT: %w", err)
	}

	cfg.HTTPWriteTimeout, err = getEnvDuration("SQ_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SQ_HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.HTTPIdleTimeout, err = getEnvDuration("SQ_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SQ_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("SQ_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SQ_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Хранилище выписок ---

	// SQ_STORAGE_BACKEND — s3 или fs (по умолчанию s3)
	cfg.StorageBackend = strings.ToLower(getEnvDefault("SQ_STORAGE_BACKEND", StorageBackendS3))
	switch cfg.StorageBackend {
	case StorageBackendS3:
		cfg.S3Bucket, err = getEnvRequired("SQ_S3_BUCKET")
		if err != nil {
			return nil, err
		}
		cfg.S3Region = getEnvDefault("SQ_S3_REGION", "eu-west-2")
		cfg.S3Endpoint = os.Getenv("SQ_S3_ENDPOINT")
		cfg.S3AccessKey = os.Getenv("SQ_S3_ACCESS_KEY")
		cfg.S3SecretKey = os.Getenv("SQ_S3_SECRET_KEY")
		if (cfg.S3AccessKey == "") != (cfg.S3SecretKey == "") {
			return nil, fmt.Errorf("SQ_S3_ACCESS_KEY и SQ_S3_SECRET_KEY должны задаваться вместе")
		}
	case StorageBackendFS:
		cfg.StorageDir, err = getEnvRequired("SQ_STORAGE_DIR")
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("SQ_STORAGE_BACKEND: недопустимое значение %q, допустимые: s3, fs", cfg.StorageBackend)
	}

	// --- API выписок ---

	// SQ_STATEMENT_API_URL — обязательный
	cfg.StatementAPIURL, err = getEnvRequired("SQ_STATEMENT_API_URL")
	if err != nil {
		return nil, err
	}
	if u, parseErr := url.Parse(cfg.StatementAPIURL); parseErr != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("SQ_STATEMENT_API_URL: некорректный URL %q", cfg.StatementAPIURL)
	}

	cfg.StatementAPICACert = os.Getenv("SQ_STATEMENT_API_CA_CERT")
	cfg.StatementAPIHealthPath = getEnvDefault("SQ_STATEMENT_API_HEALTH_PATH", "/healthy")

	cfg.StatementAPITimeout, err = getEnvDurationFallback("SQ_STATEMENT_API_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SQ_STATEMENT_API_TIMEOUT: %w", err)
	}

	// --- Circuit breaker ---

	cfg.BreakerFailureThreshold, err = getEnvInt("SQ_BREAKER_FAILURE_THRESHOLD", 5)
	if err != nil {
		return nil, fmt.Errorf("SQ_BREAKER_FAILURE_THRESHOLD: %w", err)
	}
	if cfg.BreakerFailureThreshold < 1 {
		return nil, fmt.Errorf("SQ_BREAKER_FAILURE_THRESHOLD: значение должно быть >= 1")
	}

	cfg.BreakerResetTimeout, err = getEnvDurationFallback("SQ_BREAKER_RESET_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SQ_BREAKER_RESET_TIMEOUT: %w", err)
	}

	// --- Поиск ---

	cfg.ListingTimeout, err = getEnvDurationFallback("SQ_LISTING_TIMEOUT", 25*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SQ_LISTING_TIMEOUT: %w", err)
	}

	cfg.SearchMaxLimit, err = getEnvInt("SQ_SEARCH_MAX_LIMIT", 100)
	if err != nil {
		return nil, fmt.Errorf("SQ_SEARCH_MAX_LIMIT: %w", err)
	}
	if cfg.SearchMaxLimit < 1 {
		return nil, fmt.Errorf("SQ_SEARCH_MAX_LIMIT: значение должно быть >= 1")
	}

	cfg.SearchDefaultLimit, err = getEnvInt("SQ_SEARCH_DEFAULT_LIMIT", 50)
	if err != nil {
		return nil, fmt.Errorf("SQ_SEARCH_DEFAULT_LIMIT: %w", err)
	}
	if cfg.SearchDefaultLimit < 1 || cfg.SearchDefaultLimit > cfg.SearchMaxLimit {
		return nil, fmt.Errorf("SQ_SEARCH_DEFAULT_LIMIT: значение должно быть в диапазоне 1-%d", cfg.SearchMaxLimit)
	}

	// --- Кэш ---

	cfg.CacheMaxSize, err = getEnvInt("SQ_CACHE_MAX_SIZE", 10000)
	if err != nil {
		return nil, fmt.Errorf("SQ_CACHE_MAX_SIZE: %w", err)
	}
	if cfg.CacheMaxSize < 1 {
		return nil, fmt.Errorf("SQ_CACHE_MAX_SIZE: значение должно быть >= 1")
	}

	cfg.CacheTTL, err = getEnvDurationFallback("SQ_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SQ_CACHE_TTL: %w", err)
	}

	// --- PostgreSQL (опционально) ---

	cfg.DBHost = os.Getenv("SQ_DB_HOST")
	if cfg.DBHost != "" {
		cfg.DBPort, err = getEnvInt("SQ_DB_PORT", 5432)
		if err != nil {
			return nil, fmt.Errorf("SQ_DB_PORT: %w", err)
		}
		cfg.DBName, err = getEnvRequired("SQ_DB_NAME")
		if err != nil {
			return nil, err
		}
		cfg.DBUser, err = getEnvRequired("SQ_DB_USER")
		if err != nil {
			return nil, err
		}
		cfg.DBPassword, err = getEnvRequired("SQ_DB_PASSWORD")
		if err != nil {
			return nil, err
		}
		cfg.DBSSLMode = getEnvDefault("SQ_DB_SSL_MODE", "disable")
		validSSLModes := map[string]bool{
			"disable": true, "require": true, "verify-ca": true, "verify-full": true,
		}
		if !validSSLModes[cfg.DBSSLMode] {
			return nil, fmt.Errorf("SQ_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
		}
	}

	cfg.SchemeRefreshInterval, err = getEnvDurationFallback("SQ_SCHEME_REFRESH_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SQ_SCHEME_REFRESH_INTERVAL: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("SQ_DEPHEALTH_GROUP", "ffc-pay")

	cfg.DephealthCheckInterval, err = getEnvDurationFallback("SQ_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SQ_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// DatabaseEnabled возвращает true, если настроено подключение к PostgreSQL.
func (c *Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
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

// getEnvDurationFallback возвращает time.Duration из переменной окружения.
// Если переменная не задана, используется fallbackVal.
// Если задана — парсится и валидируется (> 0).
func getEnvDurationFallback(key string, fallbackVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallbackVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
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
