// main.go — точка входа сервиса.
// Инициализация в порядке зависимостей: config → logger → PostgreSQL →
// миграции → ярус кэша → ярус поиска → prefetcher → загрузчик →
// handlers → dephealth → HTTP-сервер.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/teamdesk/filevault/internal/api/handlers"
	"github.com/teamdesk/filevault/internal/api/middleware"
	"github.com/teamdesk/filevault/internal/cache"
	"github.com/teamdesk/filevault/internal/config"
	"github.com/teamdesk/filevault/internal/database"
	"github.com/teamdesk/filevault/internal/loader"
	"github.com/teamdesk/filevault/internal/repository"
	"github.com/teamdesk/filevault/internal/search"
	"github.com/teamdesk/filevault/internal/server"
	"github.com/teamdesk/filevault/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Сервис запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. PostgreSQL — единственная критичная зависимость:
	// без неё сервис не стартует
	pool, err := database.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("Ошибка подключения к PostgreSQL: %v", err)
	}
	defer pool.Close()

	if err := database.Migrate(cfg.DatabaseURL, logger); err != nil {
		log.Fatalf("Ошибка применения миграций: %v", err)
	}

	fileRepo := repository.NewFileRepository(pool)

	// 4. Ярусы кэша и поиска: при недоступности — no-op, сервис
	// продолжает работать через прямой путь к хранилищу
	fileCache := cache.Setup(ctx, cfg.EnableRedisCache, cfg.RedisURL, cfg.CacheTTL, logger)

	fileIndex := search.Setup(ctx, cfg.EnableElasticsearch, cfg.ElasticsearchURL, cfg.ElasticsearchIndex, logger)
	if fileIndex.IsAvailable() {
		if err := fileIndex.SetupIndex(ctx); err != nil {
			logger.Warn("Ошибка создания индекса",
				slog.String("error", err.Error()),
			)
		}
	}

	// 5. Фоновый prefetcher и умный загрузчик
	prefetcher := loader.NewPrefetcher(cfg.PrefetchQueueSize, cfg.PrefetchDelay, logger)
	go prefetcher.Run(ctx)

	smartLoader := loader.New(fileRepo, fileCache, fileIndex, prefetcher, logger)

	// 6. Handlers
	healthHandler := handlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		fileCache,
		fileIndex,
	)
	apiHandler := handlers.NewAPIHandler(smartLoader, healthHandler, logger)

	// 7. Мониторинг зависимостей через topologymetrics.
	// Для pgcheck нужен *sql.DB — адаптер pgxpool через stdlib
	startDephealth(ctx, cfg, pool, logger)

	// 8. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		log.Fatalf("Сервер завершился с ошибкой: %v", err)
	}

	logger.Info("Сервис остановлен")
}

// startDephealth запускает мониторинг зависимостей.
// Ошибка инициализации не фатальна: сервис работает без метрик dephealth.
func startDephealth(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) {
	esURL := ""
	if cfg.EnableElasticsearch {
		esURL = cfg.ElasticsearchURL
	}

	db := stdlib.OpenDBFromPool(pool)

	dh, err := service.NewDephealthService(
		"filevault",
		cfg.DephealthGroup,
		db,
		cfg.DatabaseURL,
		esURL,
		cfg.DephealthCheckInterval,
		cfg.DephealthIsEntry,
		logger,
	)
	if err != nil {
		logger.Warn("Мониторинг зависимостей не инициализирован",
			slog.String("error", err.Error()),
		)
		return
	}

	if err := dh.Start(ctx); err != nil {
		logger.Warn("Мониторинг зависимостей не запущен",
			slog.String("error", err.Error()),
		)
	}
}
