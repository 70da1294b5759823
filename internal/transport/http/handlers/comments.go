package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/pribylovaa/go-feed-comments/internal/service"
	"github.com/pribylovaa/go-feed-comments/internal/transport/http/apierrors"
	"github.com/pribylovaa/go-feed-comments/internal/transport/http/dto"
)

// sendFailedResponse — 502 с записью, помеченной ошибкой: её id нужен для resend.
type sendFailedResponse struct {
	apierrors.ErrorResponse
	Entry dto.Entry `json:"entry"`
}

func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	var in service.ListInput

	if v := r.URL.Query().Get("own"); v != "" {
		own, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.WriteError(w, r, fmt.Errorf("own: %w", service.ErrInvalidArgument))
			return
		}
		in.Own = own
	}

	entries, err := h.Comments.List(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse{Entries: dto.FromEntries(entries)})
}

func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	var in dto.SubmitRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, fmt.Errorf("decode: %w", service.ErrInvalidArgument))
		return
	}

	entry, err := h.Comments.Submit(r.Context(), service.SubmitInput{
		DisplayName: in.DisplayName,
		Text:        in.Text,
		ThreadID:    in.ThreadID,
	})
	if err != nil {
		writeSendError(w, r, entry, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.FromEntry(*entry))
}

func (h *Handlers) ResendComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	entry, err := h.Comments.Resend(r.Context(), id)
	if err != nil {
		writeSendError(w, r, entry, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromEntry(*entry))
}

func (h *Handlers) LoadComments(w http.ResponseWriter, r *http.Request) {
	page, err := h.Comments.Load(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromPage(page))
}

func (h *Handlers) LoadHistory(w http.ResponseWriter, r *http.Request) {
	page, err := h.Comments.History(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.HistoryResponse{
		Entries:   dto.FromEntries(page.Entries),
		Exhausted: page.Exhausted,
	})
}

func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.FromStatus(h.Comments.Status()))
}

// writeSendError отдаёт ошибку отправки; если запись помечена ошибкой, прикладывает её.
func writeSendError(w http.ResponseWriter, r *http.Request, entry *models.Entry, err error) {
	if entry == nil || !errors.Is(err, service.ErrSendFailed) {
		apierrors.WriteError(w, r, err)
		return
	}

	status, resp := apierrors.ToHTTP(err)
	resp.Error.RequestID = r.Header.Get("X-Request-Id")

	writeJSON(w, status, sendFailedResponse{ErrorResponse: resp, Entry: dto.FromEntry(*entry)})
}
