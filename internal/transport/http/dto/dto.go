// Package dto — JSON-представления HTTP API и websocket-событий.
package dto

import (
	"time"

	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/pribylovaa/go-feed-comments/internal/service"
)

// Author — автор комментария.
type Author struct {
	DisplayName string `json:"display_name"`
	Address     string `json:"address,omitempty"`
}

// Comment — комментарий из фида.
type Comment struct {
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	MessageID string    `json:"message_id,omitempty"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Flagged   bool      `json:"flagged,omitempty"`
}

// Entry — локальная запись списка.
// Index передаётся только для подтверждённых записей.
type Entry struct {
	ID      string  `json:"id"`
	Index   *uint64 `json:"index,omitempty"`
	State   string  `json:"state"`
	Comment Comment `json:"comment"`
}

// SubmitRequest — тело POST /comments.
type SubmitRequest struct {
	DisplayName string `json:"display_name,omitempty"`
	Text        string `json:"text"`
	ThreadID    string `json:"thread_id,omitempty"`
}

// ListResponse — локальный список.
type ListResponse struct {
	Entries []Entry `json:"entries"`
}

// PageResponse — результат начальной загрузки.
type PageResponse struct {
	Comments  []Comment `json:"comments"`
	NextIndex uint64    `json:"next_index"`
	Empty     bool      `json:"empty"`
}

// HistoryResponse — результат догрузки истории.
type HistoryResponse struct {
	Entries   []Entry `json:"entries"`
	Exhausted bool    `json:"exhausted"`
}

// StatusResponse — состояние движка.
type StatusResponse struct {
	Loaded    bool   `json:"loaded"`
	Exhausted bool   `json:"exhausted"`
	Phase     string `json:"phase"`
	Cursor    uint64 `json:"cursor"`
	Entries   int    `json:"entries"`
	Flagged   int    `json:"flagged"`
}

// Event — сообщение websocket-канала.
// Type: "read" (Source: initial|live|history), "write" или "failure".
type Event struct {
	Type      string  `json:"type"`
	Source    string  `json:"source,omitempty"`
	Entries   []Entry `json:"entries,omitempty"`
	NextIndex uint64  `json:"next_index,omitempty"`
	Resend    bool    `json:"resend,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func FromComment(c models.Comment) Comment {
	return Comment{
		Author:    Author{DisplayName: c.Author.DisplayName, Address: c.Author.Address},
		Text:      c.Text,
		CreatedAt: c.CreatedAt.UTC(),
		MessageID: c.MessageID,
		ThreadID:  c.ThreadID,
		Flagged:   c.Flagged,
	}
}

func FromEntry(e models.Entry) Entry {
	out := Entry{
		ID:      e.ID,
		State:   e.State.String(),
		Comment: FromComment(e.Comment),
	}

	if e.Confirmed() {
		idx := e.Index
		out.Index = &idx
	}

	return out
}

func FromEntries(in []models.Entry) []Entry {
	out := make([]Entry, 0, len(in))
	for _, e := range in {
		out = append(out, FromEntry(e))
	}

	return out
}

func FromPage(p *models.Page) PageResponse {
	out := PageResponse{Comments: []Comment{}, Empty: p.Empty()}
	if p == nil {
		return out
	}

	for _, c := range p.Comments {
		out.Comments = append(out.Comments, FromComment(c))
	}
	out.NextIndex = p.NextIndex

	return out
}

func FromStatus(s service.Status) StatusResponse {
	return StatusResponse{
		Loaded:    s.Loaded,
		Exhausted: s.Exhausted,
		Phase:     s.Phase,
		Cursor:    s.Cursor,
		Entries:   s.Entries,
		Flagged:   s.Flagged,
	}
}
