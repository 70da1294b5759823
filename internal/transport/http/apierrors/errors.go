// apierrors стандартизирует ответы об ошибках HTTP API виджета.
// На вход принимает ошибку сервисного слоя, на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
package apierrors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-feed-comments/internal/service"
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и унифицированный ответ.
//
// Маппинг:
//   - ErrInvalidArgument -> 400
//   - ErrNotFound -> 404
//   - ErrBusy, ErrConflict -> 409
//   - ErrRateLimited -> 429
//   - ErrSendFailed -> 502 (фид не принял или не подтвердил запись)
//   - ErrUnavailable -> 503
//   - nil и прочее -> 500/internal
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := base(err)

	return status, ErrorResponse{
		Error: APIError{Code: code, Message: msg},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func base(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, service.ErrBusy):
		return http.StatusConflict, "busy", "another comment is being sent"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict", "comment is not resendable"
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited", "too many comments, slow down"
	case errors.Is(err, service.ErrSendFailed):
		return http.StatusBadGateway, "send_failed", "comment was not stored, resend it"
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable", "feed unavailable"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
