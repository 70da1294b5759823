// Package codec сериализует комментарий в представление хранилища фида и обратно.
// Одна и та же запись используется как JSON-значение (pebble) и как BSON-документ (mongo).
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-feed-comments/internal/models"
)

// Version — текущая версия формата записи.
const Version = 1

// ErrUnsupportedVersion — запись в формате, который кодек не понимает.
var ErrUnsupportedVersion = errors.New("unsupported record version")

// User — автор в представлении хранилища.
type User struct {
	Username string `json:"username"          bson:"username"`
	Address  string `json:"address,omitempty" bson:"address,omitempty"`
}

// Message — тело комментария.
type Message struct {
	Text      string `json:"text"                 bson:"text"`
	MessageID string `json:"messageId,omitempty"  bson:"message_id,omitempty"`
	ThreadID  string `json:"threadId,omitempty"   bson:"thread_id,omitempty"`
	Flagged   bool   `json:"flagged,omitempty"    bson:"flagged,omitempty"`
}

// Record — комментарий в формате хранилища.
// Timestamp — unix-время в миллисекундах.
type Record struct {
	V         int     `json:"v"         bson:"v"`
	User      User    `json:"user"      bson:"user"`
	Message   Message `json:"message"   bson:"message"`
	Timestamp int64   `json:"timestamp" bson:"timestamp"`
}

// FromComment конвертирует доменный комментарий в запись.
func FromComment(c models.Comment) Record {
	return Record{
		V: Version,
		User: User{
			Username: c.Author.DisplayName,
			Address:  c.Author.Address,
		},
		Message: Message{
			Text:      c.Text,
			MessageID: c.MessageID,
			ThreadID:  c.ThreadID,
			Flagged:   c.Flagged,
		},
		Timestamp: c.CreatedAt.UnixMilli(),
	}
}

// Comment конвертирует запись в доменный комментарий.
func (r Record) Comment() (models.Comment, error) {
	if r.V != Version {
		return models.Comment{}, fmt.Errorf("codec: %w: %d", ErrUnsupportedVersion, r.V)
	}

	return models.Comment{
		Author: models.Identity{
			DisplayName: r.User.Username,
			Address:     r.User.Address,
		},
		Text:      r.Message.Text,
		CreatedAt: time.UnixMilli(r.Timestamp).UTC(),
		MessageID: r.Message.MessageID,
		ThreadID:  r.Message.ThreadID,
		Flagged:   r.Message.Flagged,
	}, nil
}

// Marshal кодирует комментарий в JSON-представление записи.
func Marshal(c models.Comment) ([]byte, error) {
	b, err := json.Marshal(FromComment(c))
	if err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}

	return b, nil
}

// Unmarshal декодирует JSON-представление записи.
func Unmarshal(data []byte) (models.Comment, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return models.Comment{}, fmt.Errorf("codec: unmarshal: %w", err)
	}

	return r.Comment()
}
