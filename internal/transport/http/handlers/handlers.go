// Package handlers — HTTP-обработчики API виджета комментариев.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/pribylovaa/go-feed-comments/internal/service"
)

// Comments — операции сервиса, которые нужны HTTP-слою.
type Comments interface {
	Load(ctx context.Context) (*models.Page, error)
	Submit(ctx context.Context, in service.SubmitInput) (*models.Entry, error)
	Resend(ctx context.Context, id string) (*models.Entry, error)
	History(ctx context.Context) (*service.HistoryPage, error)
	List(ctx context.Context, in service.ListInput) ([]models.Entry, error)
	Status() service.Status
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	Comments Comments
}

func New(c Comments) *Handlers {
	return &Handlers{Comments: c}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
