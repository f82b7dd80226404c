package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ffcpay/statement-query/internal/api/generated"
	"github.com/ffcpay/statement-query/internal/breaker"
	"github.com/ffcpay/statement-query/internal/domain/model"
	"github.com/ffcpay/statement-query/internal/objectstore"
	"github.com/ffcpay/statement-query/internal/service"
)

const testFilename = "FFC_PaymentDelinkedStatement_SFI_2024_1100021264_2025081908254124.pdf"

// --- Моки ---

type mockSearcher struct {
	searchFn func(ctx context.Context, c model.SearchCriteria, limit int, token string) (*model.SearchResult, error)
}

func (m *mockSearcher) Search(ctx context.Context, c model.SearchCriteria, limit int, token string) (*model.SearchResult, error) {
	return m.searchFn(ctx, c, limit, token)
}

type mockDownloader struct {
	downloadFn func(ctx context.Context, name string) (io.ReadCloser, *objectstore.ObjectInfo, error)
}

func (m *mockDownloader) Download(ctx context.Context, name string) (io.ReadCloser, *objectstore.ObjectInfo, error) {
	return m.downloadFn(ctx, name)
}

type staticSchemes []model.Scheme

func (s staticSchemes) All() []model.Scheme { return s }

type staticBreaker struct {
	snap breaker.Snapshot
}

func (b staticBreaker) State() breaker.Snapshot { return b.snap }

type staticChecker struct {
	name, status, message string
}

func (c staticChecker) Name() string                 { return c.name }
func (c staticChecker) CheckReady() (string, string) { return c.status, c.message }

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// newTestRouter собирает chi router с generated-обёрткой, как в server.New.
func newTestRouter(t *testing.T, search Searcher, download Downloader, checkers ...ReadinessChecker) http.Handler {
	t.Helper()

	swagger, err := generated.GetSwagger()
	if err != nil {
		t.Fatalf("GetSwagger: %v", err)
	}

	h := NewAPIHandler(
		NewHealthHandler(checkers...),
		search,
		download,
		staticSchemes{{ID: 1, Abbreviation: "SFI", Name: "Sustainable Farming Incentive"}},
		staticBreaker{breaker.Snapshot{
			State: breaker.StateClosed, FailureThreshold: 5, ResetTimeout: 30 * time.Second, CallTimeout: 10 * time.Second,
		}},
		swagger,
		slog.Default(),
	)
	return generated.HandlerWithOptions(h, generated.ChiServerOptions{
		BaseRouter:       chi.NewRouter(),
		ErrorHandlerFunc: ParamErrorHandler,
	})
}

func noSearch(t *testing.T) *mockSearcher {
	return &mockSearcher{searchFn: func(context.Context, model.SearchCriteria, int, string) (*model.SearchResult, error) {
		t.Fatal("Search не должен вызываться")
		return nil, nil
	}}
}

func noDownload(t *testing.T) *mockDownloader {
	return &mockDownloader{downloadFn: func(context.Context, string) (io.ReadCloser, *objectstore.ObjectInfo, error) {
		t.Fatal("Download не должен вызываться")
		return nil, nil, nil
	}}
}

func decodeErrorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var e generated.Error
	if err := json.NewDecoder(body).Decode(&e); err != nil {
		t.Fatalf("декодирование ошибки: %v", err)
	}
	return e.Error.Code
}

// --- Search ---

// TestSearchStatements_ParamsMapping проверяет перевод query-параметров в критерии.
func TestSearchStatements_ParamsMapping(t *testing.T) {
	var got model.SearchCriteria
	var gotLimit int
	var gotToken string
	size := int64(1024)
	search := &mockSearcher{searchFn: func(_ context.Context, c model.SearchCriteria, limit int, token string) (*model.SearchResult, error) {
		got, gotLimit, gotToken = c, limit, token
		next := "102"
		return &model.SearchResult{
			Statements: []model.StatementRecord{{
				Filename: "outbound/" + testFilename, Scheme: "SFI", Year: "2024",
				FRN: "1100021264", Timestamp: "2025081908254124", Size: &size,
			}},
			ContinuationToken: &next,
		}, nil
	}}
	router := newTestRouter(t, search, noDownload(t))

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/statements/search?schemeId=1&marketingYear=2024&frn=1100021264&timestamp=2025081908254124&limit=2&continuationToken=100", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d, тело: %s", w.Code, w.Body.String())
	}
	want := model.SearchCriteria{SchemeID: 1, MarketingYear: 2024, FRN: "1100021264", Timestamp: "2025081908254124"}
	if got != want {
		t.Errorf("критерии = %+v, ожидались %+v", got, want)
	}
	if gotLimit != 2 || gotToken != "100" {
		t.Errorf("limit/token = %d/%q", gotLimit, gotToken)
	}

	var resp generated.SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("декодирование: %v", err)
	}
	if len(resp.Statements) != 1 || *resp.Statements[0].Size != 1024 {
		t.Errorf("statements = %+v", resp.Statements)
	}
	if resp.ContinuationToken == nil || *resp.ContinuationToken != "102" {
		t.Errorf("continuationToken = %v", resp.ContinuationToken)
	}
	if resp.Error != nil {
		t.Errorf("error = %q, ожидалось отсутствие", *resp.Error)
	}
}

// TestSearchStatements_FRNZero проверяет, что FRN "0" означает «не задан».
func TestSearchStatements_FRNZero(t *testing.T) {
	var got model.SearchCriteria
	search := &mockSearcher{searchFn: func(_ context.Context, c model.SearchCriteria, _ int, _ string) (*model.SearchResult, error) {
		got = c
		return model.EmptyResult(), nil
	}}
	router := newTestRouter(t, search, noDownload(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/statements/search?frn=0&schemeId=0&filename=+x.pdf+", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d", w.Code)
	}
	if got.FRN != "" || got.SchemeID != 0 || got.Filename != "x.pdf" {
		t.Errorf("критерии = %+v", got)
	}
}

// TestSearchStatements_NoCriteria проверяет 200 со структурированной ошибкой.
func TestSearchStatements_NoCriteria(t *testing.T) {
	search := &mockSearcher{searchFn: func(context.Context, model.SearchCriteria, int, string) (*model.SearchResult, error) {
		result := model.EmptyResult()
		result.Error = service.ErrNoCriteria
		return result, nil
	}}
	router := newTestRouter(t, search, noDownload(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/statements/search", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`"statements":[]`, `"continuationToken":null`, service.ErrNoCriteria} {
		if !strings.Contains(body, want) {
			t.Errorf("тело %s не содержит %s", body, want)
		}
	}
}

// TestSearchStatements_Errors проверяет отображение ошибок сервиса в HTTP.
func TestSearchStatements_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"хранилище", fmt.Errorf("стратегия exact_filename: %w", service.ErrStorageUnavailable), http.StatusBadGateway, "STORAGE_UNAVAILABLE"},
		{"таймаут листинга", fmt.Errorf("стратегия storage_listing: %w", service.ErrListingTimeout), http.StatusGatewayTimeout, "SEARCH_TIMEOUT"},
		{"прочее", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			search := &mockSearcher{searchFn: func(context.Context, model.SearchCriteria, int, string) (*model.SearchResult, error) {
				return nil, tt.err
			}}
			router := newTestRouter(t, search, noDownload(t))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/statements/search?frn=1", nil))

			if w.Code != tt.status {
				t.Errorf("статус = %d, ожидался %d", w.Code, tt.status)
			}
			if code := decodeErrorCode(t, w.Body); code != tt.code {
				t.Errorf("code = %q, ожидался %q", code, tt.code)
			}
		})
	}
}

// TestSearchStatements_InvalidParam проверяет 400 при нечисловом schemeId.
func TestSearchStatements_InvalidParam(t *testing.T) {
	router := newTestRouter(t, noSearch(t), noDownload(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/statements/search?schemeId=abc", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("статус = %d, ожидался 400", w.Code)
	}
	if code := decodeErrorCode(t, w.Body); code != "VALIDATION_ERROR" {
		t.Errorf("code = %q", code)
	}
}

// --- Download ---

// TestDownloadStatement_Success проверяет заголовки и тело PDF.
func TestDownloadStatement_Success(t *testing.T) {
	var gotName string
	download := &mockDownloader{downloadFn: func(_ context.Context, name string) (io.ReadCloser, *objectstore.ObjectInfo, error) {
		gotName = name
		return io.NopCloser(strings.NewReader("%PDF-1.7")), &objectstore.ObjectInfo{Name: "outbound/" + name, Size: 8}, nil
	}}
	router := newTestRouter(t, noSearch(t), download)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/statements/"+testFilename+"/download", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d", w.Code)
	}
	if gotName != testFilename {
		t.Errorf("Download(%q)", gotName)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename="+testFilename {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if cl := w.Header().Get("Content-Length"); cl != "8" {
		t.Errorf("Content-Length = %q", cl)
	}
	if w.Body.String() != "%PDF-1.7" {
		t.Errorf("тело = %q", w.Body.String())
	}
}

// TestContentDisposition проверяет кодирование имени файла в заголовке attachment.
func TestContentDisposition(t *testing.T) {
	tests := []string{
		testFilename,
		`report "final" v2.pdf`,
		"выписка 2024.pdf",
	}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			header := contentDisposition(name)
			disposition, params, err := mime.ParseMediaType(header)
			if err != nil {
				t.Fatalf("ParseMediaType(%q): %v", header, err)
			}
			if disposition != "attachment" {
				t.Errorf("disposition = %q, ожидался attachment", disposition)
			}
			if params["filename"] != name {
				t.Errorf("filename = %q, ожидался %q (заголовок %q)", params["filename"], name, header)
			}
		})
	}
}

// TestDownloadStatement_Errors проверяет 404 и 502.
func TestDownloadStatement_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"не найдена", fmt.Errorf("%w: outbound/x.pdf", service.ErrNotFound), http.StatusNotFound},
		{"хранилище", fmt.Errorf("%w: denied", service.ErrStorageUnavailable), http.StatusBadGateway},
		{"прочее", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			download := &mockDownloader{downloadFn: func(context.Context, string) (io.ReadCloser, *objectstore.ObjectInfo, error) {
				return nil, nil, tt.err
			}}
			router := newTestRouter(t, noSearch(t), download)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/statements/x.pdf/download", nil))

			if w.Code != tt.status {
				t.Errorf("статус = %d, ожидался %d", w.Code, tt.status)
			}
		})
	}
}

// --- Schemes, circuit breaker, OpenAPI ---

func TestListSchemes(t *testing.T) {
	router := newTestRouter(t, noSearch(t), noDownload(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/schemes", nil))

	var resp generated.SchemeList
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("декодирование: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Abbreviation != "SFI" || resp.Items[0].Id != 1 {
		t.Errorf("items = %+v", resp.Items)
	}
}

func TestGetCircuitBreaker(t *testing.T) {
	router := newTestRouter(t, noSearch(t), noDownload(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/circuit-breaker", nil))

	var resp generated.CircuitBreakerState
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("декодирование: %v", err)
	}
	if resp.State != generated.CLOSED || resp.ResetTimeoutMs != 30000 || resp.CallTimeoutMs != 10000 {
		t.Errorf("ответ = %+v", resp)
	}
}

func TestGetOpenAPI(t *testing.T) {
	router := newTestRouter(t, noSearch(t), noDownload(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/api/v1/statements/search") {
		t.Error("документ не содержит путь поиска")
	}
}

// --- Health ---

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, noSearch(t), noDownload(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	var resp generated.HealthLive
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("декодирование: %v", err)
	}
	if w.Code != http.StatusOK || resp.Status != "ok" || resp.Service != serviceName {
		t.Errorf("ответ = %d %+v", w.Code, resp)
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name     string
		checkers []ReadinessChecker
		status   int
		overall  string
	}{
		{"без проверок", nil, http.StatusOK, "ok"},
		{"всё ok", []ReadinessChecker{staticChecker{"storage", "ok", ""}}, http.StatusOK, "ok"},
		{
			"degraded",
			[]ReadinessChecker{staticChecker{"storage", "ok", ""}, staticChecker{"statement_api", "degraded", "open"}},
			http.StatusOK, "degraded",
		},
		{
			"fail",
			[]ReadinessChecker{staticChecker{"storage", "fail", "denied"}, staticChecker{"postgresql", "degraded", ""}},
			http.StatusServiceUnavailable, "fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, noSearch(t), noDownload(t), tt.checkers...)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			var resp generated.HealthReady
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("декодирование: %v", err)
			}
			if w.Code != tt.status || string(resp.Status) != tt.overall {
				t.Errorf("ответ = %d %q, ожидалось %d %q", w.Code, resp.Status, tt.status, tt.overall)
			}
			if len(resp.Checks) != len(tt.checkers) {
				t.Errorf("checks = %+v", resp.Checks)
			}
		})
	}
}

func TestStorageChecker(t *testing.T) {
	ok := NewStorageChecker(pingerFunc(func(context.Context) error { return nil }), time.Second)
	if status, _ := ok.CheckReady(); status != statusOK {
		t.Errorf("status = %q, ожидался ok", status)
	}

	bad := NewStorageChecker(pingerFunc(func(context.Context) error { return errors.New("no bucket") }), time.Second)
	status, msg := bad.CheckReady()
	if status != statusFail || msg != "no bucket" {
		t.Errorf("CheckReady() = (%q, %q)", status, msg)
	}
	if bad.Name() != "storage" {
		t.Errorf("Name() = %q", bad.Name())
	}
}

func TestBreakerChecker(t *testing.T) {
	tests := []struct {
		state breaker.State
		want  string
	}{
		{breaker.StateClosed, statusOK},
		{breaker.StateOpen, statusDegraded},
		{breaker.StateHalfOpen, statusDegraded},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			c := NewBreakerChecker(staticBreaker{breaker.Snapshot{State: tt.state}})
			if status, _ := c.CheckReady(); status != tt.want {
				t.Errorf("status = %q, ожидался %q", status, tt.want)
			}
		})
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, "ok"},
		{[]string{"ok", "ok"}, "ok"},
		{[]string{"ok", "degraded"}, "degraded"},
		{[]string{"degraded", "fail"}, "fail"},
	}
	for _, tt := range tests {
		if got := overallStatus(tt.in...); got != tt.want {
			t.Errorf("overallStatus(%v) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}
