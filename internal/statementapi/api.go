// api.go — типизированные операции API выписок поверх Resilient:
// поиск по имени файла и поиск по критериям с пагинацией.
package statementapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/ffcpay/statement-query/internal/domain/model"
	"github.com/ffcpay/statement-query/internal/filename"
)

// statementsPath — endpoint поиска выписок.
const statementsPath = "/statements"

// Row — строка выписки из API (таблица выписок в БД сервиса данных).
type Row struct {
	StatementID *int64     `json:"statementId,omitempty"`
	Filename    string     `json:"filename"`
	Scheme      flexString `json:"schemeShortName"`
	Year        flexString `json:"schemeYear"`
	FRN         flexString `json:"frn"`
	Timestamp   flexString `json:"timestamp"`
}

// Record преобразует строку API в StatementRecord.
// Поля берутся из имени файла; если имени нет — имя строится из полей строки.
// Возвращает false, если строку нельзя сопоставить выписке.
func (r Row) Record() (model.StatementRecord, bool) {
	var rec model.StatementRecord

	switch {
	case r.Filename != "":
		p, ok := filename.Parse(r.Filename)
		if !ok {
			return rec, false
		}
		rec = model.StatementRecord{
			Filename:  r.Filename,
			Scheme:    p.Scheme,
			Year:      p.Year,
			FRN:       p.FRN,
			Timestamp: p.Timestamp,
		}
	case r.Scheme != "" && r.Year != "" && r.FRN != "" && r.Timestamp != "":
		rec = model.StatementRecord{
			Filename:  filename.Build(string(r.Scheme), string(r.Year), string(r.FRN), string(r.Timestamp)),
			Scheme:    string(r.Scheme),
			Year:      string(r.Year),
			FRN:       string(r.FRN),
			Timestamp: string(r.Timestamp),
		}
	default:
		return rec, false
	}

	rec.StatementID = r.StatementID
	return rec, true
}

// Query — параметры поиска по критериям (имена полей удалённого API).
type Query struct {
	SchemeShortName string
	SchemeYear      int
	FRN             string
	Timestamp       string
	Limit           int
	Offset          int
}

// Page — страница результатов поиска.
type Page struct {
	// Rows — строки, успешно декодированные из ответа
	Rows []Row
	// Dropped — количество строк, которые не удалось декодировать
	Dropped int
	// ContinuationToken — токен сервера (пустая строка — не передан)
	ContinuationToken string
}

// API — операции API выписок.
type API struct {
	resilient *Resilient
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAPI создаёт типизированный клиент.
// timeout — таймаут одного вызова (0 — таймаут circuit breaker).
func NewAPI(resilient *Resilient, timeout time.Duration, logger *slog.Logger) *API {
	return &API{
		resilient: resilient,
		timeout:   timeout,
		logger:    logger.With(slog.String("component", "statement_api")),
	}
}

// LookupByFilename ищет выписку по имени файла.
// GET /statements?filename=... Возвращает (nil, nil), если выписка не найдена.
func (a *API) LookupByFilename(ctx context.Context, name string) (*Row, error) {
	query := url.Values{}
	query.Set("filename", name)

	body, err := a.resilient.Call(ctx, statementsPath, query, a.timeout)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	page, err := decodePage(body)
	if err != nil {
		return nil, &Error{Code: CodeAPIError, Message: "некорректный ответ поиска по имени", Err: err}
	}

	// Ожидается не больше одной релевантной строки; предпочитаем точное совпадение имени.
	base := path.Base(name)
	for i := range page.Rows {
		if path.Base(page.Rows[i].Filename) == base {
			return &page.Rows[i], nil
		}
	}
	if len(page.Rows) > 0 {
		return &page.Rows[0], nil
	}
	return nil, nil
}

// Search выполняет поиск по критериям.
// GET /statements?frn=&schemeshortname=&schemeyear=&timestamp=&limit=&offset=
func (a *API) Search(ctx context.Context, q Query) (*Page, error) {
	body, err := a.resilient.Call(ctx, statementsPath, buildQuery(q), a.timeout)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return &Page{}, nil
	}

	page, err := decodePage(body)
	if err != nil {
		return nil, &Error{Code: CodeAPIError, Message: "некорректный ответ поиска", Err: err}
	}

	if page.Dropped > 0 {
		a.logger.Debug("Часть строк API отброшена при декодировании",
			slog.Int("dropped", page.Dropped),
		)
	}

	return page, nil
}

// buildQuery формирует query-параметры поиска. Пустые критерии не передаются.
func buildQuery(q Query) url.Values {
	v := url.Values{}
	if q.FRN != "" {
		v.Set("frn", q.FRN)
	}
	if q.SchemeShortName != "" {
		v.Set("schemeshortname", q.SchemeShortName)
	}
	if q.SchemeYear != 0 {
		v.Set("schemeyear", strconv.Itoa(q.SchemeYear))
	}
	if q.Timestamp != "" {
		v.Set("timestamp", q.Timestamp)
	}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("offset", strconv.Itoa(q.Offset))
	return v
}

// pageEnvelope — объектная форма ответа: statements или rows + токен.
type pageEnvelope struct {
	Statements        []json.RawMessage `json:"statements"`
	Rows              []json.RawMessage `json:"rows"`
	ContinuationToken flexString        `json:"continuationToken"`
}

// decodePage разбирает ответ API: {"statements": [...]}, {"rows": [...]} или массив.
// Строки, которые не декодируются, отбрасываются и учитываются в Dropped.
func decodePage(body []byte) (*Page, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Page{}, nil
	}

	var raw []json.RawMessage
	page := &Page{}

	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("декодирование массива: %w", err)
		}
	} else {
		var env pageEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("декодирование ответа: %w", err)
		}
		raw = env.Statements
		if raw == nil {
			raw = env.Rows
		}
		page.ContinuationToken = string(env.ContinuationToken)
	}

	page.Rows = make([]Row, 0, len(raw))
	for _, item := range raw {
		var row Row
		if err := json.Unmarshal(item, &row); err != nil {
			page.Dropped++
			continue
		}
		page.Rows = append(page.Rows, row)
	}

	return page, nil
}

// flexString — строка, которая в JSON может прийти строкой или числом.
type flexString string

// UnmarshalJSON принимает строку, число или null.
func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ожидалась строка или число: %w", err)
	}
	*f = flexString(n.String())
	return nil
}
