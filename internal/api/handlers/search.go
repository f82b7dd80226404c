// search.go — обработчик GET /api/v1/statements/search.
// Query-параметры → критерии, вызов service, сериализация SearchResponse.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/ffcpay/statement-query/internal/api/errors"
	"github.com/ffcpay/statement-query/internal/api/generated"
	"github.com/ffcpay/statement-query/internal/domain/model"
	"github.com/ffcpay/statement-query/internal/service"
)

// handleSearchStatements — реализация GET /api/v1/statements/search.
// Пустые критерии — 200 с полем error; сбой хранилища — 502; таймаут листинга — 504.
func (h *APIHandler) handleSearchStatements(w http.ResponseWriter, r *http.Request, params generated.SearchStatementsParams) {
	criteria := criteriaFromParams(params)

	limit := 0
	if params.Limit != nil {
		limit = *params.Limit
	}
	token := ""
	if params.ContinuationToken != nil {
		token = *params.ContinuationToken
	}

	result, err := h.search.Search(r.Context(), criteria, limit, token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrListingTimeout):
			apierrors.SearchTimeout(w, "Поиск выписок не уложился в отведённое время")
		case errors.Is(err, service.ErrStorageUnavailable):
			h.logger.Error("Хранилище выписок недоступно при поиске",
				slog.String("error", err.Error()),
			)
			apierrors.StorageUnavailable(w, "Хранилище выписок недоступно")
		default:
			h.logger.Error("Ошибка поиска выписок",
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка при поиске выписок")
		}
		return
	}

	writeJSON(w, http.StatusOK, toSearchResponse(result))
}

// criteriaFromParams переводит query-параметры в критерии поиска.
// Нулевые и пустые значения означают «любое»; FRN "0" приравнивается к пустому.
func criteriaFromParams(params generated.SearchStatementsParams) model.SearchCriteria {
	var c model.SearchCriteria
	if params.Filename != nil {
		c.Filename = strings.TrimSpace(*params.Filename)
	}
	if params.SchemeId != nil && *params.SchemeId > 0 {
		c.SchemeID = *params.SchemeId
	}
	if params.MarketingYear != nil && *params.MarketingYear > 0 {
		c.MarketingYear = *params.MarketingYear
	}
	if params.Frn != nil {
		if frn := strings.TrimSpace(*params.Frn); frn != "0" {
			c.FRN = frn
		}
	}
	if params.Timestamp != nil {
		c.Timestamp = strings.TrimSpace(*params.Timestamp)
	}
	return c
}

// toSearchResponse конвертирует доменный результат в API-тип.
func toSearchResponse(result *model.SearchResult) generated.SearchResponse {
	resp := generated.SearchResponse{
		Statements:        make([]generated.Statement, 0, len(result.Statements)),
		ContinuationToken: result.ContinuationToken,
	}
	if result.Error != "" {
		msg := result.Error
		resp.Error = &msg
	}
	for _, rec := range result.Statements {
		resp.Statements = append(resp.Statements, generated.Statement{
			Filename:     rec.Filename,
			Scheme:       rec.Scheme,
			Year:         rec.Year,
			Frn:          rec.FRN,
			Timestamp:    rec.Timestamp,
			Size:         rec.Size,
			LastModified: rec.LastModified,
			StatementId:  rec.StatementID,
		})
	}
	return resp
}
