// Package generated provides primitives to interact with the openapi HTTP API.
//
// Code generated by oapi-codegen (chi-server, models) from openapi.yaml, see oapi-codegen.yaml.
// Regenerate with `go generate ./internal/api/generated`.
package generated

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// Defines values for CircuitBreakerStateState.
const (
	CLOSED   CircuitBreakerStateState = "CLOSED"
	HALFOPEN CircuitBreakerStateState = "HALF_OPEN"
	OPEN     CircuitBreakerStateState = "OPEN"
)

// Defines values for HealthCheckStatus.
const (
	HealthCheckStatusDegraded HealthCheckStatus = "degraded"
	HealthCheckStatusFail     HealthCheckStatus = "fail"
	HealthCheckStatusOk       HealthCheckStatus = "ok"
)

// CircuitBreakerState defines model for CircuitBreakerState.
type CircuitBreakerState struct {
	CallTimeoutMs    int64                    `json:"callTimeoutMs"`
	FailureCount     int                      `json:"failureCount"`
	FailureThreshold int                      `json:"failureThreshold"`
	NextAttemptAt    *time.Time               `json:"nextAttemptAt,omitempty"`
	ResetTimeoutMs   int64                    `json:"resetTimeoutMs"`
	State            CircuitBreakerStateState `json:"state"`
}

// CircuitBreakerStateState defines model for CircuitBreakerState.State.
type CircuitBreakerStateState string

// Error defines model for Error.
type Error struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// HealthCheck defines model for HealthCheck.
type HealthCheck struct {
	Message *string           `json:"message,omitempty"`
	Status  HealthCheckStatus `json:"status"`
}

// HealthCheckStatus defines model for HealthCheck.Status.
type HealthCheckStatus string

// HealthLive defines model for HealthLive.
type HealthLive struct {
	Service   string `json:"service"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthReady defines model for HealthReady.
type HealthReady struct {
	Checks    map[string]HealthCheck `json:"checks"`
	Service   string                 `json:"service"`
	Status    HealthCheckStatus      `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
}

// Scheme defines model for Scheme.
type Scheme struct {
	Abbreviation string `json:"abbreviation"`
	Id           int    `json:"id"`
	Name         string `json:"name"`
}

// SchemeList defines model for SchemeList.
type SchemeList struct {
	Items []Scheme `json:"items"`
}

// SearchResponse defines model for SearchResponse.
type SearchResponse struct {
	ContinuationToken *string     `json:"continuationToken"`
	Error             *string     `json:"error,omitempty"`
	Statements        []Statement `json:"statements"`
}

// Statement defines model for Statement.
type Statement struct {
	Filename     string     `json:"filename"`
	Frn          string     `json:"frn"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	Scheme       string     `json:"scheme"`
	Size         *int64     `json:"size,omitempty"`
	StatementId  *int64     `json:"statementId,omitempty"`
	Timestamp    string     `json:"timestamp"`
	Year         string     `json:"year"`
}

// SearchStatementsParams defines parameters for SearchStatements.
type SearchStatementsParams struct {
	Filename          *string `form:"filename,omitempty" json:"filename,omitempty"`
	SchemeId          *int    `form:"schemeId,omitempty" json:"schemeId,omitempty"`
	MarketingYear     *int    `form:"marketingYear,omitempty" json:"marketingYear,omitempty"`
	Frn               *string `form:"frn,omitempty" json:"frn,omitempty"`
	Timestamp         *string `form:"timestamp,omitempty" json:"timestamp,omitempty"`
	Limit             *int    `form:"limit,omitempty" json:"limit,omitempty"`
	ContinuationToken *string `form:"continuationToken,omitempty" json:"continuationToken,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Liveness probe
	// (GET /health/live)
	HealthLive(w http.ResponseWriter, r *http.Request)
	// Readiness probe
	// (GET /health/ready)
	HealthReady(w http.ResponseWriter, r *http.Request)
	// Prometheus метрики
	// (GET /metrics)
	GetMetrics(w http.ResponseWriter, r *http.Request)
	// OpenAPI документ сервиса
	// (GET /api/v1/openapi.json)
	GetOpenAPI(w http.ResponseWriter, r *http.Request)
	// Поиск выписок по частичным критериям
	// (GET /api/v1/statements/search)
	SearchStatements(w http.ResponseWriter, r *http.Request, params SearchStatementsParams)
	// Скачивание выписки
	// (GET /api/v1/statements/{filename}/download)
	DownloadStatement(w http.ResponseWriter, r *http.Request, filename string)
	// Известные схемы выплат
	// (GET /api/v1/schemes)
	ListSchemes(w http.ResponseWriter, r *http.Request)
	// Состояние circuit breaker API выписок
	// (GET /api/v1/circuit-breaker)
	GetCircuitBreaker(w http.ResponseWriter, r *http.Request)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

// HealthLive operation middleware
func (siw *ServerInterfaceWrapper) HealthLive(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.HealthLive(w, r)
	}))
	siw.serve(handler, w, r)
}

// HealthReady operation middleware
func (siw *ServerInterfaceWrapper) HealthReady(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.HealthReady(w, r)
	}))
	siw.serve(handler, w, r)
}

// GetMetrics operation middleware
func (siw *ServerInterfaceWrapper) GetMetrics(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetMetrics(w, r)
	}))
	siw.serve(handler, w, r)
}

// GetOpenAPI operation middleware
func (siw *ServerInterfaceWrapper) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetOpenAPI(w, r)
	}))
	siw.serve(handler, w, r)
}

// SearchStatements operation middleware
func (siw *ServerInterfaceWrapper) SearchStatements(w http.ResponseWriter, r *http.Request) {
	var err error

	// Parameter object where we will unmarshal all parameters from the context
	var params SearchStatementsParams
	query := r.URL.Query()

	// ------------- Optional query parameter "filename" -------------
	err = runtime.BindQueryParameter("form", true, false, "filename", query, &params.Filename)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "filename", Err: err})
		return
	}

	// ------------- Optional query parameter "schemeId" -------------
	err = runtime.BindQueryParameter("form", true, false, "schemeId", query, &params.SchemeId)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "schemeId", Err: err})
		return
	}

	// ------------- Optional query parameter "marketingYear" -------------
	err = runtime.BindQueryParameter("form", true, false, "marketingYear", query, &params.MarketingYear)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "marketingYear", Err: err})
		return
	}

	// ------------- Optional query parameter "frn" -------------
	err = runtime.BindQueryParameter("form", true, false, "frn", query, &params.Frn)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "frn", Err: err})
		return
	}

	// ------------- Optional query parameter "timestamp" -------------
	err = runtime.BindQueryParameter("form", true, false, "timestamp", query, &params.Timestamp)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "timestamp", Err: err})
		return
	}

	// ------------- Optional query parameter "limit" -------------
	err = runtime.BindQueryParameter("form", true, false, "limit", query, &params.Limit)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}

	// ------------- Optional query parameter "continuationToken" -------------
	err = runtime.BindQueryParameter("form", true, false, "continuationToken", query, &params.ContinuationToken)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "continuationToken", Err: err})
		return
	}

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.SearchStatements(w, r, params)
	}))
	siw.serve(handler, w, r)
}

// DownloadStatement operation middleware
func (siw *ServerInterfaceWrapper) DownloadStatement(w http.ResponseWriter, r *http.Request) {
	var err error

	// ------------- Path parameter "filename" -------------
	var filename string

	err = runtime.BindStyledParameterWithOptions("simple", "filename", chi.URLParam(r, "filename"), &filename,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "filename", Err: err})
		return
	}

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DownloadStatement(w, r, filename)
	}))
	siw.serve(handler, w, r)
}

// ListSchemes operation middleware
func (siw *ServerInterfaceWrapper) ListSchemes(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListSchemes(w, r)
	}))
	siw.serve(handler, w, r)
}

// GetCircuitBreaker operation middleware
func (siw *ServerInterfaceWrapper) GetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetCircuitBreaker(w, r)
	}))
	siw.serve(handler, w, r)
}

func (siw *ServerInterfaceWrapper) serve(handler http.Handler, w http.ResponseWriter, r *http.Request) {
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

type UnescapedCookieParamError struct {
	ParamName string
	Err       error
}

func (e *UnescapedCookieParamError) Error() string {
	return fmt.Sprintf("error unescaping cookie parameter '%s'", e.ParamName)
}

func (e *UnescapedCookieParamError) Unwrap() error {
	return e.Err
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// Handler creates http.Handler with routing matching OpenAPI spec.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux creates http.Handler with routing matching OpenAPI spec based on the provided mux.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{
		BaseRouter: r,
	})
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health/live", wrapper.HealthLive)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health/ready", wrapper.HealthReady)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/metrics", wrapper.GetMetrics)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/v1/openapi.json", wrapper.GetOpenAPI)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/v1/statements/search", wrapper.SearchStatements)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/v1/statements/{filename}/download", wrapper.DownloadStatement)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/v1/schemes", wrapper.ListSchemes)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/v1/circuit-breaker", wrapper.GetCircuitBreaker)
	})

	return r
}
