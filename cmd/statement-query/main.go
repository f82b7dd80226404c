// main.go — точка входа Statement Query.
// Сборка зависимостей: конфигурация, хранилище, API выписок с circuit breaker,
// каскад стратегий поиска, скачивание, мониторинг зависимостей, HTTP-сервер.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/ffcpay/statement-query/internal/api/generated"
	"github.com/ffcpay/statement-query/internal/api/handlers"
	"github.com/ffcpay/statement-query/internal/api/middleware"
	"github.com/ffcpay/statement-query/internal/breaker"
	"github.com/ffcpay/statement-query/internal/config"
	"github.com/ffcpay/statement-query/internal/database"
	"github.com/ffcpay/statement-query/internal/objectstore"
	"github.com/ffcpay/statement-query/internal/repository"
	"github.com/ffcpay/statement-query/internal/scheme"
	"github.com/ffcpay/statement-query/internal/server"
	"github.com/ffcpay/statement-query/internal/service"
	"github.com/ffcpay/statement-query/internal/statementapi"
)

// storagePingTimeout — таймаут проверки хранилища в readiness probe.
const storagePingTimeout = 5 * time.Second

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Statement Query запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_backend", cfg.StorageBackend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checkers := make([]handlers.ReadinessChecker, 0, 3)

	// 3. PostgreSQL (опционально): миграции, пул, адаптер *sql.DB для topologymetrics
	var (
		pool *pgxpool.Pool
		pgDB *sql.DB
	)
	if cfg.DatabaseEnabled() {
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		pool, err = database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		pgDB = stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		checkers = append(checkers, database.NewReadinessChecker(pool))
	} else {
		logger.Info("SQ_DB_HOST не задан, используется встроенный справочник схем")
	}

	// 4. Справочник схем
	var schemeSource scheme.Source
	if pool != nil {
		schemeSource = repository.NewSchemeRepository(pool)
	}
	schemes := scheme.NewRegistry(schemeSource, logger)
	if schemeSource != nil {
		if err := schemes.Refresh(ctx); err != nil {
			logger.Warn("Не удалось загрузить справочник схем из БД, используются встроенные значения",
				slog.String("error", err.Error()),
			)
		}
		go schemes.Run(ctx, cfg.SchemeRefreshInterval)
	}

	// 5. Хранилище выписок
	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	checkers = append(checkers, handlers.NewStorageChecker(store, storagePingTimeout))

	// 6. API выписок: HTTP-клиент → circuit breaker → типизированные операции
	apiClient, err := statementapi.New(cfg.StatementAPIURL, cfg.StatementAPICACert, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента API выписок", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cb := breaker.New(cfg.StatementAPITimeout, cfg.BreakerFailureThreshold, cfg.BreakerResetTimeout)
	resilient := statementapi.NewResilient(apiClient, cb, logger)
	api := statementapi.NewAPI(resilient, cfg.StatementAPITimeout, logger)
	checkers = append(checkers, handlers.NewBreakerChecker(cb))

	// 7. Каскад стратегий поиска и сервисы
	cache := service.NewCacheService(cfg.CacheMaxSize, cfg.CacheTTL)
	exact := service.NewExactFilenameLookup(store, api, cache, logger)
	strategies := []service.Strategy{
		exact,
		service.NewConstructedFilenameLookup(exact, schemes),
		service.NewAPIBackedSearch(api, schemes, logger),
		service.NewStorageListingSearch(store, schemes, cfg.ListingTimeout, logger),
	}
	searchSvc := service.NewSearchService(strategies, cfg.SearchDefaultLimit, cfg.SearchMaxLimit, logger)
	downloadSvc := service.NewDownloadService(store, cache, logger)

	// 8. topologymetrics — мониторинг зависимостей (API выписок + PostgreSQL)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:              "statement-query",
		Group:                  cfg.DephealthGroup,
		StatementAPIURL:        cfg.StatementAPIURL,
		StatementAPIHealthPath: cfg.StatementAPIHealthPath,
		DB:                     pgDB,
		PGConnURL:              cfg.DatabaseURL(),
		CheckInterval:          cfg.DephealthCheckInterval,
		IsEntry:                cfg.DephealthIsEntry,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 9. HTTP API
	swagger, err := generated.GetSwagger()
	if err != nil {
		logger.Warn("Не удалось загрузить OpenAPI документ", slog.String("error", err.Error()))
	}
	healthHandler := handlers.NewHealthHandler(checkers...)
	apiHandler := handlers.NewAPIHandler(healthHandler, searchSvc, downloadSvc, schemes, cb, swagger, logger)

	// 10. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	cancel()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Statement Query остановлен")
}

// newStore создаёт хранилище выписок по SQ_STORAGE_BACKEND.
func newStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	if cfg.StorageBackend == config.StorageBackendFS {
		return objectstore.NewFileStore(cfg.StorageDir)
	}
	return objectstore.NewS3Store(ctx, objectstore.S3Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
}
