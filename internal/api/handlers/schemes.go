// schemes.go — справочник схем и состояние circuit breaker.
package handlers

import (
	"net/http"

	"github.com/ffcpay/statement-query/internal/api/generated"
)

// handleListSchemes — реализация GET /api/v1/schemes.
func (h *APIHandler) handleListSchemes(w http.ResponseWriter, _ *http.Request) {
	all := h.schemes.All()
	resp := generated.SchemeList{Items: make([]generated.Scheme, 0, len(all))}
	for _, s := range all {
		resp.Items = append(resp.Items, generated.Scheme{
			Id:           s.ID,
			Abbreviation: s.Abbreviation,
			Name:         s.Name,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetCircuitBreaker — реализация GET /api/v1/circuit-breaker.
func (h *APIHandler) handleGetCircuitBreaker(w http.ResponseWriter, _ *http.Request) {
	s := h.breaker.State()
	writeJSON(w, http.StatusOK, generated.CircuitBreakerState{
		State:            generated.CircuitBreakerStateState(s.State),
		FailureCount:     s.FailureCount,
		FailureThreshold: s.FailureThreshold,
		NextAttemptAt:    s.NextAttemptAt,
		ResetTimeoutMs:   s.ResetTimeout.Milliseconds(),
		CallTimeoutMs:    s.CallTimeout.Milliseconds(),
	})
}
