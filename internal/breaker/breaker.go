// Пакет breaker — circuit breaker для удалённого API поиска выписок.
//
// Состояния:
//   - CLOSED — штатная работа, вызовы проходят
//   - OPEN — быстрый отказ без сетевого вызова
//   - HALF_OPEN — разрешён один пробный вызов
//
// Переходы: CLOSED → OPEN (failureCount ≥ threshold) → HALF_OPEN (истёк resetTimeout)
// → CLOSED (успех) или → OPEN (ошибка).
//
// Один экземпляр на процесс, передаётся во все места вызова API явно.
// Потокобезопасен через sync.Mutex.
package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// State — состояние circuit breaker.
type State string

const (
	// StateClosed — штатная работа.
	StateClosed State = "CLOSED"
	// StateOpen — быстрый отказ.
	StateOpen State = "OPEN"
	// StateHalfOpen — разрешён один пробный вызов.
	StateHalfOpen State = "HALF_OPEN"
)

// ErrCircuitOpen — circuit breaker открыт, вызов не выполняется.
var ErrCircuitOpen = errors.New("circuit breaker открыт")

// Prometheus-метрики circuit breaker.
var (
	stateGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sq_circuit_breaker_state",
		Help: "Состояние circuit breaker API выписок (0 = closed, 1 = half_open, 2 = open).",
	})
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sq_circuit_breaker_transitions_total",
		Help: "Количество переходов circuit breaker (по целевому состоянию).",
	}, []string{"to"})
)

// stateValue — числовое значение состояния для gauge.
var stateValue = map[State]float64{
	StateClosed:   0,
	StateHalfOpen: 1,
	StateOpen:     2,
}

// Snapshot — снимок состояния для наблюдаемости (read-only).
type Snapshot struct {
	State            State         `json:"state"`
	FailureCount     int           `json:"failureCount"`
	NextAttemptAt    *time.Time    `json:"nextAttemptAt,omitempty"`
	FailureThreshold int           `json:"failureThreshold"`
	ResetTimeout     time.Duration `json:"resetTimeout"`
	CallTimeout      time.Duration `json:"callTimeout"`
}

// CircuitBreaker — счётчик отказов и состояние удалённой зависимости.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         State
	failureCount  int
	nextAttemptAt time.Time

	callTimeout      time.Duration
	failureThreshold int
	resetTimeout     time.Duration

	now func() time.Time
}

// New создаёт circuit breaker в состоянии CLOSED.
// callTimeout — таймаут одного вызова по умолчанию.
// failureThreshold — число отказов до перехода в OPEN (минимум 1).
// resetTimeout — время в OPEN до пробного вызова.
func New(callTimeout time.Duration, failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	stateGauge.Set(stateValue[StateClosed])
	return &CircuitBreaker{
		state:            StateClosed,
		callTimeout:      callTimeout,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// WithClock подменяет источник времени (для тестов).
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
	return cb
}

// CallTimeout возвращает таймаут вызова по умолчанию.
func (cb *CircuitBreaker) CallTimeout() time.Duration {
	return cb.callTimeout
}

// MarkFailure регистрирует отказ.
// При достижении порога переходит в OPEN и назначает время следующей попытки.
func (cb *CircuitBreaker) MarkFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	if cb.failureCount >= cb.failureThreshold {
		cb.open()
	}
}

// HandleSuccess регистрирует успешный вызов.
// Из HALF_OPEN переходит в CLOSED; в остальных состояниях только сбрасывает счётчик.
// Успех в OPEN не закрывает circuit.
func (cb *CircuitBreaker) HandleSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
	}
	cb.failureCount = 0
}

// ShouldAttemptHalfOpen проверяет, можно ли выполнять вызов.
//
//   - CLOSED, HALF_OPEN → (false, nil), без побочных эффектов
//   - OPEN, время пришло → переход в HALF_OPEN, (true, nil): ровно один пробный вызов
//   - OPEN, время не пришло → (false, ErrCircuitOpen), состояние не меняется
func (cb *CircuitBreaker) ShouldAttemptHalfOpen() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return false, nil
	}

	if cb.now().Before(cb.nextAttemptAt) {
		return false, fmt.Errorf("%w: следующая попытка после %s",
			ErrCircuitOpen, cb.nextAttemptAt.UTC().Format(time.RFC3339))
	}

	cb.setState(StateHalfOpen)
	return true, nil
}

// Trip принудительно переводит circuit в OPEN.
// Используется при отказе пробного вызова в HALF_OPEN.
func (cb *CircuitBreaker) Trip() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.open()
}

// State возвращает снимок текущего состояния.
func (cb *CircuitBreaker) State() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := Snapshot{
		State:            cb.state,
		FailureCount:     cb.failureCount,
		FailureThreshold: cb.failureThreshold,
		ResetTimeout:     cb.resetTimeout,
		CallTimeout:      cb.callTimeout,
	}
	if cb.state == StateOpen {
		next := cb.nextAttemptAt
		s.NextAttemptAt = &next
	}
	return s
}

// open переводит в OPEN. Вызывается под мьютексом.
func (cb *CircuitBreaker) open() {
	cb.nextAttemptAt = cb.now().Add(cb.resetTimeout)
	cb.setState(StateOpen)
}

// setState меняет состояние и обновляет метрики. Вызывается под мьютексом.
func (cb *CircuitBreaker) setState(s State) {
	if cb.state == s {
		return
	}
	cb.state = s
	stateGauge.Set(stateValue[s])
	transitionsTotal.WithLabelValues(string(s)).Inc()
}
