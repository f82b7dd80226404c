// download.go — скачивание выписки из хранилища.
// Имя файла → путь в хранилище (outbound/) → проверка существования → поток чтения.
// Исходный объект после чтения не удаляется.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ffcpay/statement-query/internal/filename"
	"github.com/ffcpay/statement-query/internal/objectstore"
)

// Prometheus-метрики download.
var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sq_downloads_total",
		Help: "Общее количество запросов на скачивание выписок (по статусу).",
	}, []string{"status"})

	downloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sq_download_duration_seconds",
		Help:    "Длительность скачивания выписки (от запроса до закрытия потока).",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sq_download_bytes_total",
		Help: "Общее количество переданных байт при скачивании.",
	})

	activeDownloads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sq_active_downloads",
		Help: "Количество активных скачиваний.",
	})
)

// DownloadService — скачивание выписок из хранилища.
type DownloadService struct {
	store  objectstore.Store
	cache  *CacheService
	logger *slog.Logger
}

// NewDownloadService создаёт сервис скачивания. cache может быть nil.
func NewDownloadService(store objectstore.Store, cache *CacheService, logger *slog.Logger) *DownloadService {
	return &DownloadService{
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "download_service")),
	}
}

// Download открывает выписку на чтение.
//
// Pipeline:
//  1. Путь в хранилище: имя без "/" помещается в outbound/
//  2. Проверка существования (свойства объекта)
//  3. Открытие потока чтения
//
// Отсутствующий объект → ErrNotFound (запись API в кэше инвалидируется).
// Вызывающий код обязан закрыть ReadCloser; метрики обновляются при закрытии.
func (ds *DownloadService) Download(ctx context.Context, name string) (io.ReadCloser, *objectstore.ObjectInfo, error) {
	start := time.Now()

	if name == "" || strings.HasSuffix(name, "/") {
		downloadsTotal.WithLabelValues("not_found").Inc()
		return nil, nil, ErrNotFound
	}
	storagePath := filename.StoragePath(name)

	if _, err := ds.store.Properties(ctx, storagePath); err != nil {
		return nil, nil, ds.classify(storagePath, err)
	}

	body, info, err := ds.store.Open(ctx, storagePath)
	if err != nil {
		return nil, nil, ds.classify(storagePath, err)
	}

	activeDownloads.Inc()
	ds.logger.Debug("Скачивание выписки начато",
		slog.String("path", storagePath),
		slog.Int64("size", info.Size),
	)

	return &meteredReader{
		ReadCloser: body,
		onClose: func(written int64) {
			activeDownloads.Dec()
			downloadsTotal.WithLabelValues("success").Inc()
			downloadDuration.Observe(time.Since(start).Seconds())
			downloadBytesTotal.Add(float64(written))
			ds.logger.Debug("Скачивание выписки завершено",
				slog.String("path", storagePath),
				slog.Int64("bytes", written),
				slog.Duration("duration", time.Since(start)),
			)
		},
	}, info, nil
}

// classify преобразует ошибку хранилища в ошибку сервиса и обновляет метрики.
func (ds *DownloadService) classify(storagePath string, err error) error {
	if errors.Is(err, objectstore.ErrNotFound) {
		if ds.cache != nil {
			ds.cache.Delete(path.Base(storagePath))
		}
		downloadsTotal.WithLabelValues("not_found").Inc()
		return fmt.Errorf("%w: %s", ErrNotFound, storagePath)
	}

	downloadsTotal.WithLabelValues("storage_error").Inc()
	ds.logger.Error("Ошибка хранилища при скачивании",
		slog.String("path", storagePath),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

// meteredReader считает прочитанные байты и вызывает onClose один раз.
type meteredReader struct {
	io.ReadCloser
	written int64
	onClose func(written int64)
	closed  bool
}

func (r *meteredReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.written += int64(n)
	return n, err
}

func (r *meteredReader) Close() error {
	err := r.ReadCloser.Close()
	if !r.closed {
		r.closed = true
		r.onClose(r.written)
	}
	return err
}
