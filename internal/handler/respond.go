// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/midori/internal/middleware"
	"github.com/hitoshi/midori/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, httpStatusForError(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// httpStatusForError はAPIErrorコードからHTTPステータスコードにマッピングする。
func httpStatusForError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated, model.ErrCodeInvalidCredential, model.ErrCodeUserNotFound:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidPlant, model.ErrCodeInvalidRequest, model.ErrCodeLocationDenied,
		model.ErrCodeInvalidEmail, model.ErrCodeWeakPassword, model.ErrCodeMissingPassword:
		return http.StatusBadRequest
	case model.ErrCodeEmailInUse:
		return http.StatusConflict
	case model.ErrCodeNotificationNotFound:
		return http.StatusNotFound
	case model.ErrCodeStoreAccess:
		return http.StatusBadGateway
	case model.ErrCodeGatewayUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
