// Пакет scheme — справочник схем выплат: идентификатор → аббревиатура.
// Встроенные значения по умолчанию дополняются таблицей schemes в PostgreSQL
// (если БД сконфигурирована) и периодически обновляются.
//
// Потокобезопасен через sync.RWMutex.
package scheme

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ffcpay/statement-query/internal/domain/model"
)

// Source — источник справочника схем (обычно repository.SchemeRepository).
type Source interface {
	// ListSchemes возвращает все активные схемы.
	ListSchemes(ctx context.Context) ([]model.Scheme, error)
}

// defaultSchemes — встроенный справочник, используется без БД
// и как основа при обновлении из БД.
var defaultSchemes = []model.Scheme{
	{ID: 1, Abbreviation: "SFI", Name: "Sustainable Farming Incentive"},
	{ID: 2, Abbreviation: "SFIP", Name: "SFI Pilot"},
	{ID: 3, Abbreviation: "LSES", Name: "Lump Sums"},
	{ID: 4, Abbreviation: "AHWR", Name: "Vet Visits"},
	{ID: 5, Abbreviation: "CS", Name: "Countryside Stewardship"},
	{ID: 6, Abbreviation: "BPS", Name: "Basic Payment Scheme"},
	{ID: 7, Abbreviation: "FDMR", Name: "Financial Discipline Manual Reimbursement"},
	{ID: 8, Abbreviation: "ES", Name: "Environmental Stewardship"},
	{ID: 9, Abbreviation: "IMPS", Name: "Import Processing"},
	{ID: 10, Abbreviation: "FC", Name: "Forestry Commission"},
	{ID: 11, Abbreviation: "SFI23", Name: "Sustainable Farming Incentive 2023"},
	{ID: 12, Abbreviation: "DP", Name: "Delinked Payments"},
}

// Registry — справочник схем.
type Registry struct {
	mu      sync.RWMutex
	byID    map[int]model.Scheme
	source  Source
	logger  *slog.Logger
	updated time.Time
}

// NewRegistry создаёт справочник со встроенными значениями.
// source может быть nil — тогда Refresh ничего не делает.
func NewRegistry(source Source, logger *slog.Logger) *Registry {
	r := &Registry{
		byID:   make(map[int]model.Scheme, len(defaultSchemes)),
		source: source,
		logger: logger.With(slog.String("component", "scheme_registry")),
	}
	for _, s := range defaultSchemes {
		r.byID[s.ID] = s
	}
	return r
}

// Abbreviation возвращает аббревиатуру схемы по идентификатору.
// Для неизвестного идентификатора возвращает ("", false).
func (r *Registry) Abbreviation(id int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok || s.Abbreviation == "" {
		return "", false
	}
	return s.Abbreviation, true
}

// All возвращает все схемы, отсортированные по идентификатору (копия).
func (r *Registry) All() []model.Scheme {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]model.Scheme, 0, len(r.byID))
	for _, s := range r.byID {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Refresh перечитывает справочник из источника.
// Записи из БД перекрывают встроенные с тем же идентификатором.
func (r *Registry) Refresh(ctx context.Context) error {
	if r.source == nil {
		return nil
	}

	schemes, err := r.source.ListSchemes(ctx)
	if err != nil {
		return fmt.Errorf("загрузка справочника схем: %w", err)
	}

	byID := make(map[int]model.Scheme, len(defaultSchemes)+len(schemes))
	for _, s := range defaultSchemes {
		byID[s.ID] = s
	}
	for _, s := range schemes {
		byID[s.ID] = s
	}

	r.mu.Lock()
	r.byID = byID
	r.updated = time.Now().UTC()
	r.mu.Unlock()

	r.logger.Debug("Справочник схем обновлён", slog.Int("count", len(byID)))
	return nil
}

// Run периодически обновляет справочник до отмены контекста.
// Ошибки обновления логируются, старые значения сохраняются.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if r.source == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("Ошибка обновления справочника схем",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
