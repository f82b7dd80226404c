// search.go — оркестратор поиска выписок.
// Валидирует критерии, нормализует пагинацию и проходит каскад стратегий
// до первого непустого результата.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ffcpay/statement-query/internal/domain/model"
)

// Ошибки сервисного слоя.
var (
	// ErrNotFound — выписка не найдена.
	ErrNotFound = errors.New("выписка не найдена")
)

// ErrNoCriteria — текст ошибки валидации при пустых критериях.
const ErrNoCriteria = "At least one search criterion must be provided"

// Prometheus-метрики поиска.
var (
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sq_search_total",
		Help: "Количество поисковых запросов (по стратегии, давшей результат).",
	}, []string{"strategy"})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sq_search_duration_seconds",
		Help:    "Длительность поисковых запросов.",
		Buckets: prometheus.DefBuckets,
	})
)

// Значения лейбла strategy для исходов без выигравшей стратегии.
const (
	outcomeInvalid = "invalid"
	outcomeNone    = "none"
	outcomeError   = "error"
)

// SearchService — оркестратор каскада стратегий поиска.
type SearchService struct {
	strategies   []Strategy
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

// NewSearchService создаёт оркестратор. Стратегии применяются в переданном порядке.
func NewSearchService(strategies []Strategy, defaultLimit, maxLimit int, logger *slog.Logger) *SearchService {
	if maxLimit < 1 {
		maxLimit = 1
	}
	if defaultLimit < 1 || defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &SearchService{
		strategies:   strategies,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger.With(slog.String("component", "search_service")),
	}
}

// Search ищет выписки по критериям.
//
// Пустые критерии — структурированный пустой результат с Error, не ошибка.
// limit <= 0 заменяется значением по умолчанию, больше максимума — обрезается.
// continuationToken — пустая строка означает первую страницу.
//
// Ошибка возвращается только при сбоях, которые каскад не маскирует:
// ErrStorageUnavailable от точного поиска и ошибки листинга (ErrListingTimeout).
func (s *SearchService) Search(
	ctx context.Context,
	criteria model.SearchCriteria,
	limit int,
	continuationToken string,
) (*model.SearchResult, error) {
	start := time.Now()
	defer func() { searchDuration.Observe(time.Since(start).Seconds()) }()

	if !criteria.HasAny() {
		searchTotal.WithLabelValues(outcomeInvalid).Inc()
		result := model.EmptyResult()
		result.Error = ErrNoCriteria
		return result, nil
	}

	req := Request{
		Criteria:          criteria,
		Limit:             s.normalizeLimit(limit),
		ContinuationToken: continuationToken,
		SearchID:          uuid.NewString(),
	}

	logger := s.logger.With(slog.String("search_id", req.SearchID))
	logger.Debug("Поиск выписок",
		slog.String("filename", criteria.Filename),
		slog.Int("scheme_id", criteria.SchemeID),
		slog.Int("marketing_year", criteria.MarketingYear),
		slog.String("frn", criteria.FRN),
		slog.String("timestamp", criteria.Timestamp),
		slog.Int("limit", req.Limit),
		slog.Bool("has_token", continuationToken != ""),
	)

	for _, strategy := range s.strategies {
		result, err := strategy.Attempt(ctx, req)
		if err != nil {
			searchTotal.WithLabelValues(outcomeError).Inc()
			logger.Warn("Стратегия поиска завершилась ошибкой",
				slog.String("strategy", strategy.Name()),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("стратегия %s: %w", strategy.Name(), err)
		}
		if result == nil {
			continue
		}

		if len(result.Statements) > 0 {
			searchTotal.WithLabelValues(strategy.Name()).Inc()
			logger.Debug("Выписки найдены",
				slog.String("strategy", strategy.Name()),
				slog.Int("count", len(result.Statements)),
				slog.Duration("duration", time.Since(start)),
			)
			return result, nil
		}

		if a, ok := strategy.(authoritative); ok && a.Authoritative() {
			searchTotal.WithLabelValues(strategy.Name()).Inc()
			logger.Debug("Выписка не найдена, результат стратегии окончателен",
				slog.String("strategy", strategy.Name()),
			)
			return normalizeEmpty(result), nil
		}
	}

	searchTotal.WithLabelValues(outcomeNone).Inc()
	logger.Debug("Выписки не найдены ни одной стратегией",
		slog.Duration("duration", time.Since(start)),
	)
	return model.EmptyResult(), nil
}

// normalizeLimit приводит размер страницы к диапазону 1..maxLimit.
func (s *SearchService) normalizeLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// normalizeEmpty гарантирует непустой срез Statements в пустом результате.
func normalizeEmpty(result *model.SearchResult) *model.SearchResult {
	if result.Statements == nil {
		result.Statements = []model.StatementRecord{}
	}
	return result
}
