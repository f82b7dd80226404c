// strategies.go — стратегии поиска выписок (каскад в порядке применения):
//
//  1. ExactFilenameLookup — свойства объекта по имени файла, затем API по имени
//  2. ConstructedFilenameLookup — имя файла строится из всех четырёх критериев
//  3. APIBackedSearch — поиск по критериям через API выписок
//  4. StorageListingSearch — листинг хранилища по префиксу с фильтрацией
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ffcpay/statement-query/internal/domain/model"
	"github.com/ffcpay/statement-query/internal/filename"
	"github.com/ffcpay/statement-query/internal/objectstore"
	"github.com/ffcpay/statement-query/internal/statementapi"
)

// Имена стратегий (лейблы метрик и логов).
const (
	StrategyExactFilename       = "exact_filename"
	StrategyConstructedFilename = "constructed_filename"
	StrategyAPI                 = "api"
	StrategyStorageListing      = "storage_listing"
)

// Ошибки стратегий.
var (
	// ErrStorageUnavailable — хранилище вернуло ошибку, отличную от «не найдено»
	// (нет прав, недоступно). Такие ошибки не маскируются каскадом.
	ErrStorageUnavailable = errors.New("хранилище выписок недоступно")
	// ErrListingTimeout — листинг хранилища превысил общий таймаут.
	ErrListingTimeout = errors.New("превышен таймаут листинга хранилища")
)

// Prometheus-метрики стратегий.
var (
	strategyErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sq_strategy_errors_total",
		Help: "Количество ошибок стратегий поиска (по стратегии).",
	}, []string{"strategy"})
	listingPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sq_listing_pages_total",
		Help: "Количество страниц листинга хранилища, просмотренных при поиске.",
	})
	apiRowsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sq_api_rows_dropped_total",
		Help: "Количество строк API, не преобразованных в запись выписки.",
	})
)

// Request — нормализованный запрос поиска, передаваемый стратегиям.
type Request struct {
	Criteria model.SearchCriteria
	// Limit — размер страницы (уже ограничен сверху)
	Limit int
	// ContinuationToken — непрозрачный токен (пустая строка — первая страница)
	ContinuationToken string
	// SearchID — идентификатор поиска для корреляции логов
	SearchID string
}

// Strategy — одна ступень каскада поиска.
// Attempt возвращает nil, если стратегия неприменима или не дала результата,
// и непустой результат, если каскад следует остановить.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, req Request) (*model.SearchResult, error)
}

// authoritative — стратегия, чей пустой (не nil) результат окончателен.
type authoritative interface {
	Authoritative() bool
}

// StatementLookup — операции API выписок, используемые стратегиями.
// Реализуется *statementapi.API.
type StatementLookup interface {
	LookupByFilename(ctx context.Context, name string) (*statementapi.Row, error)
	Search(ctx context.Context, q statementapi.Query) (*statementapi.Page, error)
}

// --- 1. ExactFilenameLookup ---

// ExactFilenameLookup — поиск по точному имени файла.
type ExactFilenameLookup struct {
	store  objectstore.Store
	api    StatementLookup
	cache  *CacheService
	logger *slog.Logger
}

// NewExactFilenameLookup создаёт стратегию точного поиска. cache может быть nil.
func NewExactFilenameLookup(
	store objectstore.Store,
	api StatementLookup,
	cache *CacheService,
	logger *slog.Logger,
) *ExactFilenameLookup {
	return &ExactFilenameLookup{
		store:  store,
		api:    api,
		cache:  cache,
		logger: logger.With(slog.String("component", "strategy_exact_filename")),
	}
}

// Name возвращает имя стратегии.
func (s *ExactFilenameLookup) Name() string { return StrategyExactFilename }

// Authoritative — пустой результат точного поиска останавливает каскад.
func (s *ExactFilenameLookup) Authoritative() bool { return true }

// Attempt применима только при заданном имени файла.
// Возвращает результат из одной записи или пустой результат.
func (s *ExactFilenameLookup) Attempt(ctx context.Context, req Request) (*model.SearchResult, error) {
	if req.Criteria.Filename == "" {
		return nil, nil
	}
	return s.lookup(ctx, req.Criteria.Filename, req.SearchID)
}

// lookup ищет один файл: свойства объекта в хранилище, при отсутствии — API по имени.
// Ошибки хранилища, кроме «не найдено», возвращаются вызывающему.
// Хранилище запрашивается на каждый вызов; кэшируются только строки API.
func (s *ExactFilenameLookup) lookup(ctx context.Context, name, searchID string) (*model.SearchResult, error) {
	storagePath := filename.StoragePath(name)

	info, err := s.store.Properties(ctx, storagePath)
	if err == nil {
		rec := filename.Record(storagePath)
		size := info.Size
		rec.Size = &size
		if !info.LastModified.IsZero() {
			modified := info.LastModified
			rec.LastModified = &modified
		}
		return singleResult(rec), nil
	}

	if !errors.Is(err, objectstore.ErrNotFound) {
		strategyErrorsTotal.WithLabelValues(StrategyExactFilename).Inc()
		return nil, fmt.Errorf("%w: свойства %s: %w", ErrStorageUnavailable, storagePath, err)
	}

	baseName := path.Base(storagePath)
	if s.cache != nil {
		if rec, ok := s.cache.Get(baseName); ok {
			return singleResult(rec), nil
		}
	}

	s.logger.Debug("Объект отсутствует в хранилище, поиск по имени через API",
		slog.String("search_id", searchID),
		slog.String("path", storagePath),
	)

	row, err := s.api.LookupByFilename(ctx, baseName)
	if err != nil {
		// Отказ API при точном поиске равносилен отсутствию записи
		strategyErrorsTotal.WithLabelValues(StrategyExactFilename).Inc()
		s.logger.Warn("Ошибка поиска по имени через API",
			slog.String("search_id", searchID),
			slog.String("path", storagePath),
			slog.String("error", err.Error()),
		)
		return model.EmptyResult(), nil
	}
	if row == nil {
		return model.EmptyResult(), nil
	}

	rec, ok := row.Record()
	if !ok {
		apiRowsDroppedTotal.Inc()
		return model.EmptyResult(), nil
	}
	if s.cache != nil {
		s.cache.Set(baseName, rec)
	}
	return singleResult(rec), nil
}

// --- 2. ConstructedFilenameLookup ---

// ConstructedFilenameLookup — поиск по имени, построенному из критериев.
type ConstructedFilenameLookup struct {
	exact   *ExactFilenameLookup
	schemes filename.SchemeResolver
}

// NewConstructedFilenameLookup создаёт стратегию. Поиск одного файла делегируется exact.
func NewConstructedFilenameLookup(exact *ExactFilenameLookup, schemes filename.SchemeResolver) *ConstructedFilenameLookup {
	return &ConstructedFilenameLookup{exact: exact, schemes: schemes}
}

// Name возвращает имя стратегии.
func (s *ConstructedFilenameLookup) Name() string { return StrategyConstructedFilename }

// Attempt применима, только если заданы схема, год, FRN и метка времени,
// а схема известна. Иначе хранилище не запрашивается.
func (s *ConstructedFilenameLookup) Attempt(ctx context.Context, req Request) (*model.SearchResult, error) {
	c := req.Criteria
	if !c.HasAllParts() {
		return nil, nil
	}

	abbrev, ok := s.schemes.Abbreviation(c.SchemeID)
	if !ok {
		return nil, nil
	}

	name := filename.Build(abbrev, strconv.Itoa(c.MarketingYear), c.FRN, c.Timestamp)
	res, err := s.exact.lookup(ctx, name, req.SearchID)
	if err != nil {
		return nil, err
	}
	if len(res.Statements) == 0 {
		return nil, nil
	}
	return res, nil
}

// --- 3. APIBackedSearch ---

// APIBackedSearch — поиск по критериям через API выписок.
// Ошибки API поглощаются: каскад переходит к листингу хранилища.
type APIBackedSearch struct {
	api     StatementLookup
	schemes filename.SchemeResolver
	logger  *slog.Logger
}

// NewAPIBackedSearch создаёт стратегию поиска через API.
func NewAPIBackedSearch(api StatementLookup, schemes filename.SchemeResolver, logger *slog.Logger) *APIBackedSearch {
	return &APIBackedSearch{
		api:     api,
		schemes: schemes,
		logger:  logger.With(slog.String("component", "strategy_api")),
	}
}

// Name возвращает имя стратегии.
func (s *APIBackedSearch) Name() string { return StrategyAPI }

// Attempt выполняет поиск. Токен продолжения — числовое смещение.
func (s *APIBackedSearch) Attempt(ctx context.Context, req Request) (*model.SearchResult, error) {
	c := req.Criteria

	offset := 0
	if req.ContinuationToken != "" {
		n, err := strconv.Atoi(req.ContinuationToken)
		if err != nil || n < 0 {
			// Токен не числовой — он выдан листингом хранилища
			s.logger.Debug("Токен продолжения не является смещением API, стратегия пропущена",
				slog.String("search_id", req.SearchID),
			)
			return nil, nil
		}
		offset = n
	}

	q := statementapi.Query{
		SchemeYear: c.MarketingYear,
		FRN:        c.FRN,
		Timestamp:  c.Timestamp,
		Limit:      req.Limit,
		Offset:     offset,
	}
	if c.SchemeID != 0 {
		abbrev, ok := s.schemes.Abbreviation(c.SchemeID)
		if !ok {
			return nil, nil
		}
		q.SchemeShortName = abbrev
	}

	page, err := s.api.Search(ctx, q)
	if err != nil {
		strategyErrorsTotal.WithLabelValues(StrategyAPI).Inc()
		s.logger.Warn("Поиск через API выписок не удался, переход к листингу хранилища",
			slog.String("search_id", req.SearchID),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	records := make([]model.StatementRecord, 0, len(page.Rows))
	dropped := page.Dropped
	for _, row := range page.Rows {
		rec, ok := row.Record()
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if dropped > 0 {
		apiRowsDroppedTotal.Add(float64(dropped))
	}

	result := &model.SearchResult{Statements: records}

	returned := len(page.Rows) + page.Dropped
	switch {
	case page.ContinuationToken != "":
		token := page.ContinuationToken
		result.ContinuationToken = &token
	case returned >= req.Limit:
		token := strconv.Itoa(offset + returned)
		result.ContinuationToken = &token
	}

	return result, nil
}

// --- 4. StorageListingSearch ---

// StorageListingSearch — листинг хранилища по префиксу с фильтрацией по критериям.
type StorageListingSearch struct {
	store   objectstore.Store
	schemes filename.SchemeResolver
	timeout time.Duration
	logger  *slog.Logger
}

// NewStorageListingSearch создаёт стратегию листинга.
// timeout — общий таймаут обхода всех страниц.
func NewStorageListingSearch(
	store objectstore.Store,
	schemes filename.SchemeResolver,
	timeout time.Duration,
	logger *slog.Logger,
) *StorageListingSearch {
	return &StorageListingSearch{
		store:   store,
		schemes: schemes,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "strategy_storage_listing")),
	}
}

// Name возвращает имя стратегии.
func (s *StorageListingSearch) Name() string { return StrategyStorageListing }

// Attempt обходит страницы листинга, пока не наберётся Limit записей
// или страницы не закончатся. Токен продолжения — ключ последнего просмотренного
// объекта: если лимит набран посреди страницы, остаток страницы вернётся
// на следующем вызове. Токен вне префикса (например, смещение API) игнорируется,
// листинг начинается с начала.
func (s *StorageListingSearch) Attempt(ctx context.Context, req Request) (*model.SearchResult, error) {
	listCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prefix := filename.BuildPrefix(req.Criteria, s.schemes)
	token := req.ContinuationToken
	if token != "" && !strings.HasPrefix(token, prefix) {
		s.logger.Debug("Токен продолжения не относится к листингу, листинг с начала",
			slog.String("search_id", req.SearchID),
			slog.String("prefix", prefix),
		)
		token = ""
	}
	records := make([]model.StatementRecord, 0, req.Limit)
	pages := 0

	for {
		page, err := s.store.List(listCtx, prefix, req.Limit, token)
		if err != nil {
			strategyErrorsTotal.WithLabelValues(StrategyStorageListing).Inc()
			if ctx.Err() == nil && errors.Is(listCtx.Err(), context.DeadlineExceeded) {
				s.logger.Warn("Превышен таймаут листинга хранилища",
					slog.String("search_id", req.SearchID),
					slog.String("prefix", prefix),
					slog.Int("pages", pages),
					slog.Duration("timeout", s.timeout),
				)
				return nil, fmt.Errorf("%w (%s, префикс %q)", ErrListingTimeout, s.timeout, prefix)
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("листинг прерван: %w", ctx.Err())
			}
			return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		pages++
		listingPagesTotal.Inc()

		stopped := false
		last := token
		for _, obj := range page.Objects {
			if len(records) >= req.Limit {
				// Остаток страницы не просмотрен: продолжение с последней записи
				token = last
				stopped = true
				break
			}
			last = obj.Name
			if !filename.IsPDF(obj.Name) {
				continue
			}
			parsed, ok := filename.Parse(obj.Name)
			if !ok || !filename.Matches(parsed, req.Criteria, s.schemes) {
				continue
			}
			records = append(records, listingRecord(obj, parsed))
		}
		if !stopped {
			token = page.NextToken
		}

		if len(records) >= req.Limit || token == "" {
			break
		}
	}

	s.logger.Debug("Листинг хранилища завершён",
		slog.String("search_id", req.SearchID),
		slog.String("prefix", prefix),
		slog.Int("pages", pages),
		slog.Int("found", len(records)),
	)

	result := &model.SearchResult{Statements: records}
	if token != "" {
		result.ContinuationToken = &token
	}
	return result, nil
}

// listingRecord собирает запись из объекта листинга.
func listingRecord(obj objectstore.ObjectInfo, p *filename.Parsed) model.StatementRecord {
	size := obj.Size
	rec := model.StatementRecord{
		Filename:  obj.Name,
		Scheme:    p.Scheme,
		Year:      p.Year,
		FRN:       p.FRN,
		Timestamp: p.Timestamp,
		Size:      &size,
	}
	if !obj.LastModified.IsZero() {
		modified := obj.LastModified
		rec.LastModified = &modified
	}
	return rec
}

// singleResult оборачивает одну запись в результат без токена продолжения.
func singleResult(rec model.StatementRecord) *model.SearchResult {
	return &model.SearchResult{Statements: []model.StatementRecord{rec}}
}
