// Пакет model — доменные модели Statement Query.
// Критерии поиска, записи о выписках (delinked statements) и результат поиска.
package model

import "time"

// SearchCriteria — частичные критерии поиска выписки.
// Нулевое значение поля означает «любое значение» (wildcard).
type SearchCriteria struct {
	// Filename — имя файла выписки (с префиксом outbound/ или без него)
	Filename string
	// SchemeID — идентификатор схемы выплат (0 — не задан)
	SchemeID int
	// MarketingYear — год схемы (0 — не задан)
	MarketingYear int
	// FRN — номер получателя выплаты (пустая строка — не задан)
	FRN string
	// Timestamp — метка времени генерации выписки
	Timestamp string
}

// HasAny возвращает true, если задан хотя бы один критерий.
func (c SearchCriteria) HasAny() bool {
	return c.Filename != "" || c.SchemeID != 0 || c.MarketingYear != 0 ||
		c.FRN != "" || c.Timestamp != ""
}

// HasAllParts возвращает true, если заданы все части канонического имени файла.
func (c SearchCriteria) HasAllParts() bool {
	return c.SchemeID != 0 && c.MarketingYear != 0 && c.FRN != "" && c.Timestamp != ""
}

// StatementRecord — найденная выписка.
// Создаётся заново на каждый поиск и нигде не сохраняется.
type StatementRecord struct {
	// Filename — имя файла (путь в хранилище или имя из БД)
	Filename string `json:"filename"`
	// Scheme — аббревиатура схемы (SFI, BPS, ...)
	Scheme string `json:"scheme"`
	// Year — год схемы
	Year string `json:"year"`
	// FRN — номер получателя выплаты
	FRN string `json:"frn"`
	// Timestamp — метка времени генерации
	Timestamp string `json:"timestamp"`
	// Size — размер файла в байтах (если известен)
	Size *int64 `json:"size,omitempty"`
	// LastModified — время последнего изменения объекта
	LastModified *time.Time `json:"lastModified,omitempty"`
	// StatementID — идентификатор строки в БД (только для результатов API)
	StatementID *int64 `json:"statementId,omitempty"`
}

// Clone возвращает копию записи с собственными копиями полей-указателей.
func (r StatementRecord) Clone() StatementRecord {
	if r.Size != nil {
		size := *r.Size
		r.Size = &size
	}
	if r.LastModified != nil {
		modified := *r.LastModified
		r.LastModified = &modified
	}
	if r.StatementID != nil {
		id := *r.StatementID
		r.StatementID = &id
	}
	return r
}

// SearchResult — единый результат поиска.
// ContinuationToken непрозрачен: его формат зависит от стратегии,
// вернувшей результат.
type SearchResult struct {
	Statements        []StatementRecord `json:"statements"`
	ContinuationToken *string           `json:"continuationToken"`
	Error             string            `json:"error,omitempty"`
}

// EmptyResult возвращает пустой результат без токена продолжения.
func EmptyResult() *SearchResult {
	return &SearchResult{Statements: []StatementRecord{}}
}

// Scheme — схема выплат.
type Scheme struct {
	ID           int    `json:"id"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
}
