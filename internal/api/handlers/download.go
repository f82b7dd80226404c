// download.go — обработчик GET /api/v1/statements/{filename}/download.
// Потоковая отдача PDF выписки из хранилища.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"

	apierrors "github.com/ffcpay/statement-query/internal/api/errors"
	"github.com/ffcpay/statement-query/internal/service"
)

// handleDownloadStatement — реализация GET /api/v1/statements/{filename}/download.
func (h *APIHandler) handleDownloadStatement(w http.ResponseWriter, r *http.Request, filename string) {
	body, info, err := h.download.Download(r.Context(), filename)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Выписка не найдена")
		case errors.Is(err, service.ErrStorageUnavailable):
			apierrors.StorageUnavailable(w, "Хранилище выписок недоступно")
		default:
			h.logger.Error("Ошибка скачивания выписки",
				slog.String("filename", filename),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка при скачивании выписки")
		}
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", contentDisposition(path.Base(filename)))
	if info != nil && info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		// Заголовки уже отправлены — остаётся только залогировать
		h.logger.Warn("Передача выписки прервана",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
	}
}

// contentDisposition формирует заголовок attachment по RFC 6266
// (не-ASCII имена кодируются как filename* по RFC 2231).
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
