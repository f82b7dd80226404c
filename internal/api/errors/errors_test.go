package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, string)
		status int
		code   string
	}{
		{"validation", ValidationError, http.StatusBadRequest, CodeValidationError},
		{"not found", NotFound, http.StatusNotFound, CodeNotFound},
		{"storage", StorageUnavailable, http.StatusBadGateway, CodeStorageUnavailable},
		{"timeout", SearchTimeout, http.StatusGatewayTimeout, CodeSearchTimeout},
		{"internal", InternalError, http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, "сообщение")

			if w.Code != tt.status {
				t.Errorf("статус = %d, ожидался %d", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var body errorBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("декодирование: %v", err)
			}
			if body.Error.Code != tt.code || body.Error.Message != "сообщение" {
				t.Errorf("тело = %+v", body)
			}
		})
	}
}
