// health.go — обработчики health endpoints Statement Query.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (хранилище, circuit breaker API выписок, PostgreSQL)
// /metrics — Prometheus метрики
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ffcpay/statement-query/internal/api/generated"
	"github.com/ffcpay/statement-query/internal/breaker"
	"github.com/ffcpay/statement-query/internal/config"
)

// serviceName — имя сервиса в health-ответах.
const serviceName = "statement-query"

// Константы статусов health check.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// ReadinessChecker — интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// Name — ключ проверки в ответе readiness.
	Name() string
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady() (status, message string)
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	checkers    []ReadinessChecker
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// checkers — проверки зависимостей; без проверок readiness всегда ok.
func NewHealthHandler(checkers ...ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		checkers:    checkers,
		promHandler: promhttp.Handler(),
	}
}

// HealthLive — liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, generated.HealthLive{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	})
}

// HealthReady — readiness probe.
// Возвращает 200 (ok/degraded) или 503 (fail).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := generated.HealthReady{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
		Checks:    make(map[string]generated.HealthCheck, len(h.checkers)),
	}

	statuses := make([]string, 0, len(h.checkers))
	for _, c := range h.checkers {
		status, msg := c.CheckReady()
		check := generated.HealthCheck{Status: generated.HealthCheckStatus(status)}
		if msg != "" {
			check.Message = &msg
		}
		resp.Checks[c.Name()] = check
		statuses = append(statuses, status)
	}

	resp.Status = generated.HealthCheckStatus(overallStatus(statuses...))

	code := http.StatusOK
	if resp.Status == statusFail {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

// overallStatus определяет итоговый статус из статусов зависимостей.
// Если хотя бы одна зависимость fail — итог fail.
// Если хотя бы одна degraded — итог degraded.
// Иначе — ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == statusFail {
			return statusFail
		}
		if s == statusDegraded {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return statusDegraded
	}
	return statusOK
}

// --- Проверки зависимостей ---

// Pinger — зависимость с проверкой доступности (реализуется objectstore.Store).
type Pinger interface {
	Ping(ctx context.Context) error
}

// StorageChecker — проверка доступности хранилища выписок.
type StorageChecker struct {
	store   Pinger
	timeout time.Duration
}

// NewStorageChecker создаёт проверку хранилища.
func NewStorageChecker(store Pinger, timeout time.Duration) *StorageChecker {
	return &StorageChecker{store: store, timeout: timeout}
}

// Name возвращает ключ проверки.
func (c *StorageChecker) Name() string { return "storage" }

// CheckReady проверяет хранилище. Недоступное хранилище — fail.
func (c *StorageChecker) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		return statusFail, err.Error()
	}
	return statusOK, ""
}

// BreakerChecker — состояние circuit breaker API выписок.
// Открытый breaker не делает сервис неготовым: поиск продолжает работать
// через хранилище, поэтому статус — degraded.
type BreakerChecker struct {
	breaker BreakerState
}

// NewBreakerChecker создаёт проверку circuit breaker.
func NewBreakerChecker(cb BreakerState) *BreakerChecker {
	return &BreakerChecker{breaker: cb}
}

// Name возвращает ключ проверки.
func (c *BreakerChecker) Name() string { return "statement_api" }

// CheckReady отображает состояние breaker в статус.
func (c *BreakerChecker) CheckReady() (string, string) {
	s := c.breaker.State()
	switch s.State {
	case breaker.StateOpen:
		return statusDegraded, fmt.Sprintf("circuit breaker открыт, отказов подряд: %d", s.FailureCount)
	case breaker.StateHalfOpen:
		return statusDegraded, "circuit breaker в режиме пробного вызова"
	default:
		return statusOK, ""
	}
}
