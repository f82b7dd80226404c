// resilient.go — устойчивая обёртка вызовов API выписок.
// Таймаут вызова + переходы circuit breaker + классификация ошибок.
package statementapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ffcpay/statement-query/internal/breaker"
)

// Коды ошибок вызова API.
const (
	// CodeTimeout — превышен таймаут вызова.
	CodeTimeout = "API_TIMEOUT"
	// CodeCircuitOpen — circuit breaker открыт, вызов не выполнялся.
	CodeCircuitOpen = "CIRCUIT_OPEN"
	// CodeAPIError — прочие ошибки API.
	CodeAPIError = "API_ERROR"
)

// Prometheus-метрики вызовов API.
var (
	apiCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sq_statement_api_calls_total",
		Help: "Количество вызовов API выписок (по результату).",
	}, []string{"result"})
	apiCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sq_statement_api_call_duration_seconds",
		Help:    "Длительность вызовов API выписок.",
		Buckets: prometheus.DefBuckets,
	})
)

// Error — ошибка вызова API с машиночитаемым кодом.
type Error struct {
	Code    string // CodeTimeout, CodeCircuitOpen, CodeAPIError
	Message string // Человекочитаемое описание
	Err     error  // Исходная ошибка
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HasCode проверяет, что err — *Error с указанным кодом.
func HasCode(err error, code string) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Getter — низкоуровневый вызов API (реализуется *Client).
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// Resilient — вызовы API через circuit breaker с таймаутом.
type Resilient struct {
	client  Getter
	breaker *breaker.CircuitBreaker
	logger  *slog.Logger
}

// NewResilient создаёт устойчивую обёртку.
// cb — общий для процесса circuit breaker, передаётся явно.
func NewResilient(client Getter, cb *breaker.CircuitBreaker, logger *slog.Logger) *Resilient {
	return &Resilient{
		client:  client,
		breaker: cb,
		logger:  logger.With(slog.String("component", "resilient_api_client")),
	}
}

// Breaker возвращает circuit breaker обёртки.
func (r *Resilient) Breaker() *breaker.CircuitBreaker {
	return r.breaker
}

// Call выполняет вызов API.
//
// Порядок:
//  1. Circuit открыт и время не пришло → CodeCircuitOpen без сетевого вызова и без учёта отказа
//  2. Вызов с таймаутом timeout (0 — таймаут breaker по умолчанию)
//  3. Успех → HandleSuccess, тело ответа
//  4. 404 → (nil, nil), отказом не считается
//  5. Таймаут → MarkFailure, CodeTimeout
//  6. Прочее → MarkFailure, CodeAPIError
//
// Отказ пробного вызова в HALF_OPEN сразу возвращает circuit в OPEN.
//
// Таймаут реализован через контекст: HTTP-запрос отменяется, а не бросается.
// Отмена родительского контекста (клиент ушёл) отказом сервиса не считается.
func (r *Resilient) Call(ctx context.Context, path string, query url.Values, timeout time.Duration) ([]byte, error) {
	if _, err := r.breaker.ShouldAttemptHalfOpen(); err != nil {
		apiCallsTotal.WithLabelValues("circuit_open").Inc()
		return nil, &Error{Code: CodeCircuitOpen, Message: "вызов " + path + " отклонён", Err: err}
	}

	if timeout <= 0 {
		timeout = r.breaker.CallTimeout()
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	body, err := r.client.Get(callCtx, path, query)
	apiCallDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		r.breaker.HandleSuccess()
		apiCallsTotal.WithLabelValues("success").Inc()
		return body, nil
	}

	// Приоритет классификации: not found > timeout > прочее.
	if errors.Is(err, ErrNotFound) {
		apiCallsTotal.WithLabelValues("not_found").Inc()
		return nil, nil
	}

	if ctx.Err() != nil {
		apiCallsTotal.WithLabelValues("canceled").Inc()
		return nil, fmt.Errorf("вызов %s прерван: %w", path, ctx.Err())
	}

	wasHalfOpen := r.breaker.State().State == breaker.StateHalfOpen

	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		r.recordFailure(wasHalfOpen)
		apiCallsTotal.WithLabelValues("timeout").Inc()
		r.logger.Warn("Таймаут вызова API выписок",
			slog.String("path", path),
			slog.Duration("timeout", timeout),
			slog.String("breaker_state", string(r.breaker.State().State)),
		)
		return nil, &Error{
			Code:    CodeTimeout,
			Message: fmt.Sprintf("вызов %s превысил таймаут %s", path, timeout),
			Err:     err,
		}
	}

	r.recordFailure(wasHalfOpen)
	apiCallsTotal.WithLabelValues("error").Inc()
	r.logger.Warn("Ошибка вызова API выписок",
		slog.String("path", path),
		slog.String("error", err.Error()),
		slog.String("breaker_state", string(r.breaker.State().State)),
	)

	return nil, &Error{Code: CodeAPIError, Message: "вызов " + path + " завершился ошибкой", Err: err}
}

// recordFailure учитывает отказ. Пробный вызов в HALF_OPEN при отказе
// возвращает circuit в OPEN, не дожидаясь порога.
func (r *Resilient) recordFailure(wasHalfOpen bool) {
	r.breaker.MarkFailure()
	if wasHalfOpen {
		r.breaker.Trip()
	}
}
