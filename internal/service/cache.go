// Пакет service — бизнес-логика Statement Query:
// стратегии поиска выписок, оркестратор поиска и скачивание.
//
// CacheService — LRU-кэш найденных выписок с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ffcpay/statement-query/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sq_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш выписок.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sq_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша выписок.",
	})
)

// CacheService — LRU-кэш записей о выписках, полученных из API по имени файла.
// Ключ — имя файла без префикса outbound/. Хранит только найденные строки:
// отсутствие не кэшируется, чтобы новая выписка находилась сразу.
// Состояние хранилища не кэшируется.
type CacheService struct {
	cache *expirable.LRU[string, model.StatementRecord]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, model.StatementRecord](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает запись из кэша по имени файла.
// Возвращается копия: результат поиска создаётся заново на каждый вызов.
func (c *CacheService) Get(name string) (model.StatementRecord, bool) {
	val, ok := c.cache.Get(name)
	if ok {
		cacheHitsTotal.Inc()
		return val.Clone(), true
	}
	cacheMissesTotal.Inc()
	return model.StatementRecord{}, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(name string, record model.StatementRecord) {
	c.cache.Add(name, record.Clone())
}

// Delete удаляет запись из кэша (объект не найден при скачивании).
func (c *CacheService) Delete(name string) {
	c.cache.Remove(name)
}

// Len возвращает количество записей в кэше.
func (c *CacheService) Len() int {
	return c.cache.Len()
}
