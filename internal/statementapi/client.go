// Пакет statementapi — HTTP-клиент удалённого API поиска выписок
// (сервис выписок с базой данных) и его устойчивая обёртка
// с таймаутом вызова и circuit breaker.
package statementapi

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// ErrNotFound — API вернул 404 (запись отсутствует).
var ErrNotFound = errors.New("запись не найдена в API выписок")

// maxErrorBody — сколько байт тела ответа с ошибкой включать в сообщение.
const maxErrorBody = 512

// Client — HTTP-клиент API выписок.
// Таймаут задаётся не на клиенте, а через контекст каждого вызова.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// New создаёт клиент API выписок.
// baseURL — базовый URL сервиса (например, http://statement-data:3000).
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
func New(baseURL, caCertPath string, logger *slog.Logger) (*Client, error) {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
	}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата API выписок: %w", err)
		}
		transport.TLSClientConfig = tlsConfig
		logger.Info("CA-сертификат API выписок добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		baseURL:    normalizeURL(baseURL),
		logger:     logger.With(slog.String("component", "statement_api_client")),
	}, nil
}

// BaseURL возвращает базовый URL сервиса.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get выполняет GET {baseURL}{path}?{query} и возвращает тело ответа.
// 404 → ErrNotFound, прочие статусы кроме 200 → ошибка со статусом.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return nil, fmt.Errorf("запрос %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("API выписок вернул статус %d для %s: %s",
			resp.StatusCode, path, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("чтение ответа %s: %w", path, err)
	}

	c.logger.Debug("Ответ API выписок получен",
		slog.String("path", path),
		slog.Int("bytes", len(body)),
	)

	return body, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// normalizeURL убирает trailing slash из URL.
func normalizeURL(rawURL string) string {
	return strings.TrimRight(rawURL, "/")
}
