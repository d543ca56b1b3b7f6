// Пакет config — загрузка и валидация конфигурации File Vault
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации File Vault.
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
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- Долговременное хранилище (PostgreSQL) ---

	// DSN подключения к PostgreSQL (обязательный)
	DatabaseURL string

	// --- Ярус кэша (Redis) ---

	// Включение Redis-кэша (ENABLE_REDIS_CACHE="true")
	EnableRedisCache bool
	// Строка подключения к Redis
	RedisURL string
	// TTL кэшированных метаданных (по умолчанию 1h)
	CacheTTL time.Duration

	// --- Ярус поиска (Elasticsearch) ---

	// Включение Elasticsearch (ENABLE_ELASTICSEARCH="true")
	EnableElasticsearch bool
	// URL Elasticsearch
	ElasticsearchURL string
	// Имя индекса (по умолчанию "files")
	ElasticsearchIndex string

	// --- Фоновый prefetch ---

	// Начальная задержка перед выполнением prefetch-задачи (по умолчанию 50ms)
	PrefetchDelay time.Duration
	// Размер очереди prefetch-задач (по умолчанию 64)
	PrefetchQueueSize int

	// --- Мониторинг зависимостей (topologymetrics) ---

	// Имя группы в метриках dephealth
	DephealthGroup string
	// Интервал проверки зависимостей (по умолчанию 30s)
	DephealthCheckInterval time.Duration
	// Признак entry-сервиса для лейбла isentry
	DephealthIsEntry bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// FV_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("FV_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("FV_PORT: %w", err)
	}

	// FV_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("FV_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("FV_LOG_LEVEL: %w", err)
	}

	// FV_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FV_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FV_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("FV_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FV_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("FV_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FV_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("FV_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FV_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// FV_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("FV_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FV_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Долговременное хранилище ---

	// DATABASE_URL — DSN PostgreSQL (обязательный)
	cfg.DatabaseURL, err = getEnvRequired("DATABASE_URL")
	if err != nil {
		return nil, err
	}

	// --- Ярус кэша ---

	// ENABLE_REDIS_CACHE — управляет созданием Redis-клиента.
	// При любом значении кроме "true" ярус собирается как no-op.
	cfg.EnableRedisCache = getEnvDefault("ENABLE_REDIS_CACHE", "") == "true"

	// REDIS_URL — строка подключения (redis://host:port/db)
	cfg.RedisURL = getEnvDefault("REDIS_URL", "redis://localhost:6379/0")

	// FV_CACHE_TTL — TTL кэшированных метаданных (по умолчанию 1h)
	cfg.CacheTTL, err = getEnvDuration("FV_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FV_CACHE_TTL: %w", err)
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("FV_CACHE_TTL: значение должно быть > 0")
	}

	// --- Ярус поиска ---

	// ENABLE_ELASTICSEARCH — управляет созданием Elasticsearch-клиента
	cfg.EnableElasticsearch = getEnvDefault("ENABLE_ELASTICSEARCH", "") == "true"

	// ELASTICSEARCH_URL — URL кластера
	cfg.ElasticsearchURL = getEnvDefault("ELASTICSEARCH_URL", "http://localhost:9200")

	// ELASTICSEARCH_INDEX — имя индекса (по умолчанию "files")
	cfg.ElasticsearchIndex = getEnvDefault("ELASTICSEARCH_INDEX", "files")

	// --- Фоновый prefetch ---

	cfg.PrefetchDelay, err = getEnvDuration("FV_PREFETCH_DELAY", 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("FV_PREFETCH_DELAY: %w", err)
	}
	cfg.PrefetchQueueSize, err = getEnvInt("FV_PREFETCH_QUEUE", 64)
	if err != nil {
		return nil, fmt.Errorf("FV_PREFETCH_QUEUE: %w", err)
	}
	if cfg.PrefetchQueueSize < 1 {
		return nil, fmt.Errorf("FV_PREFETCH_QUEUE: значение должно быть >= 1")
	}

	// --- Мониторинг зависимостей ---

	cfg.DephealthGroup = getEnvDefault("FV_DEPHEALTH_GROUP", "filevault")
	cfg.DephealthCheckInterval, err = getEnvDuration("FV_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FV_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
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
