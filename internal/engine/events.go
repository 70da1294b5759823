package engine

import "github.com/pribylovaa/go-feed-comments/internal/models"

// Source — откуда пришли прочитанные записи.
type Source string

const (
	SourceInitial Source = "initial"
	SourceLive    Source = "live"
	SourceHistory Source = "history"
)

// ReadEvent — в локальный список добавлены записи из фида.
type ReadEvent struct {
	Source    Source
	Entries   []models.Entry
	NextIndex uint64
}

// WriteEvent — отправка подтверждена фидом. Resend — это была повторная отправка.
type WriteEvent struct {
	Entry  models.Entry
	Resend bool
}

// FailureEvent — отправка не удалась, запись помечена ошибкой.
type FailureEvent struct {
	Entry models.Entry
	Err   error
}

// Hooks — уведомления презентационного слоя. Вызываются вне блокировок движка,
// в горутине операции. Любой хук может быть nil.
type Hooks struct {
	OnRead    func(ReadEvent)
	OnWrite   func(WriteEvent)
	OnFailure func(FailureEvent)
}

func (h Hooks) read(ev ReadEvent) {
	if h.OnRead != nil {
		h.OnRead(ev)
	}
}

func (h Hooks) write(ev WriteEvent) {
	if h.OnWrite != nil {
		h.OnWrite(ev)
	}
}

func (h Hooks) failure(ev FailureEvent) {
	if h.OnFailure != nil {
		h.OnFailure(ev)
	}
}
