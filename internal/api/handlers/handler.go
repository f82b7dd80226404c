// handler.go — основной обработчик API, реализующий generated.ServerInterface.
// Объединяет health и бизнес-обработчики, делегируя запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	apierrors "github.com/ffcpay/statement-query/internal/api/errors"
	"github.com/ffcpay/statement-query/internal/api/generated"
	"github.com/ffcpay/statement-query/internal/breaker"
	"github.com/ffcpay/statement-query/internal/domain/model"
	"github.com/ffcpay/statement-query/internal/objectstore"
)

// Searcher — поиск выписок (реализуется *service.SearchService).
type Searcher interface {
	Search(ctx context.Context, criteria model.SearchCriteria, limit int, continuationToken string) (*model.SearchResult, error)
}

// Downloader — скачивание выписок (реализуется *service.DownloadService).
type Downloader interface {
	Download(ctx context.Context, name string) (io.ReadCloser, *objectstore.ObjectInfo, error)
}

// SchemeLister — справочник схем (реализуется *scheme.Registry).
type SchemeLister interface {
	All() []model.Scheme
}

// BreakerState — источник снимка circuit breaker (реализуется *breaker.CircuitBreaker).
type BreakerState interface {
	State() breaker.Snapshot
}

// APIHandler — основной обработчик API Statement Query.
type APIHandler struct {
	health   *HealthHandler
	search   Searcher
	download Downloader
	schemes  SchemeLister
	breaker  BreakerState
	swagger  *openapi3.T
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// swagger — встроенный OpenAPI документ (nil — /api/v1/openapi.json вернёт 500).
func NewAPIHandler(
	health *HealthHandler,
	search Searcher,
	download Downloader,
	schemes SchemeLister,
	cb BreakerState,
	swagger *openapi3.T,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		search:   search,
		download: download,
		schemes:  schemes,
		breaker:  cb,
		swagger:  swagger,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

var _ generated.ServerInterface = (*APIHandler)(nil)

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Бизнес-обработчики ---

// SearchStatements — поиск выписок.
func (h *APIHandler) SearchStatements(w http.ResponseWriter, r *http.Request, params generated.SearchStatementsParams) {
	h.handleSearchStatements(w, r, params)
}

// DownloadStatement — скачивание выписки.
func (h *APIHandler) DownloadStatement(w http.ResponseWriter, r *http.Request, filename string) {
	h.handleDownloadStatement(w, r, filename)
}

// ListSchemes — справочник схем.
func (h *APIHandler) ListSchemes(w http.ResponseWriter, r *http.Request) {
	h.handleListSchemes(w, r)
}

// GetCircuitBreaker — состояние circuit breaker API выписок.
func (h *APIHandler) GetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	h.handleGetCircuitBreaker(w, r)
}

// GetOpenAPI — встроенный OpenAPI документ.
func (h *APIHandler) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	if h.swagger == nil {
		apierrors.InternalError(w, "OpenAPI документ не загружен")
		return
	}
	writeJSON(w, http.StatusOK, h.swagger)
}

// ParamErrorHandler — обработчик ошибок привязки параметров generated-обёртки.
// Возвращает 400 в стандартном формате ошибок.
func ParamErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	apierrors.ValidationError(w, err.Error())
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
