package repository

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ffcpay/statement-query/internal/config"
	"github.com/ffcpay/statement-query/internal/database"
)

// setupTestDB запускает PostgreSQL в Docker-контейнере, применяет миграции
// и возвращает пул подключений.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("statements_test"),
		postgres.WithUsername("sq"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		t.Fatalf("Некорректный порт %q: %v", port.Port(), err)
	}

	cfg := &config.Config{
		DBHost:     host,
		DBPort:     portNum,
		DBName:     "statements_test",
		DBUser:     "sq",
		DBPassword: "test-password",
		DBSSLMode:  "disable",
	}
	logger := slog.Default()

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// TestSchemeRepository_ListSchemes проверяет чтение засеянного справочника.
func TestSchemeRepository_ListSchemes(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewSchemeRepository(pool)

	schemes, err := repo.ListSchemes(context.Background())
	if err != nil {
		t.Fatalf("ListSchemes() вернул ошибку: %v", err)
	}
	if len(schemes) != 12 {
		t.Fatalf("len(schemes) = %d, ожидалось 12", len(schemes))
	}
	if schemes[0].ID != 1 || schemes[0].Abbreviation != "SFI" {
		t.Errorf("schemes[0] = %+v, ожидалась SFI с id 1", schemes[0])
	}
}

// TestSchemeRepository_InactiveExcluded проверяет фильтрацию неактивных схем
// и появление новых схем без изменения кода.
func TestSchemeRepository_InactiveExcluded(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	if _, err := pool.Exec(ctx, `UPDATE schemes SET active = FALSE WHERE abbreviation = 'FC'`); err != nil {
		t.Fatalf("UPDATE: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO schemes (scheme_id, abbreviation, name) VALUES (13, 'SFI25', 'SFI 2025')`); err != nil {
		t.Fatalf("INSERT: %v", err)
	}

	schemes, err := NewSchemeRepository(pool).ListSchemes(ctx)
	if err != nil {
		t.Fatalf("ListSchemes() вернул ошибку: %v", err)
	}

	byAbbrev := make(map[string]int, len(schemes))
	for _, s := range schemes {
		byAbbrev[s.Abbreviation] = s.ID
	}
	if _, ok := byAbbrev["FC"]; ok {
		t.Error("неактивная схема FC не должна возвращаться")
	}
	if byAbbrev["SFI25"] != 13 {
		t.Errorf("SFI25 id = %d, ожидалось 13", byAbbrev["SFI25"])
	}
}

// TestReadinessChecker проверяет readiness PostgreSQL.
func TestReadinessChecker(t *testing.T) {
	pool := setupTestDB(t)
	checker := database.NewReadinessChecker(pool)
	if status, msg := checker.CheckReady(); status != "ok" {
		t.Errorf("CheckReady() = (%q, %q), ожидался ok", status, msg)
	}
}
