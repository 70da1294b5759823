package models

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition — недопустимый переход состояния локальной записи.
var ErrIllegalTransition = errors.New("illegal entry transition")

// EntryState — состояние локальной записи списка комментариев.
type EntryState int

const (
	// StateSending — запись отправляется в фид (черновик в полёте).
	StateSending EntryState = iota + 1
	// StateConfirmed — запись подтверждена и занимает индекс в фиде.
	StateConfirmed
	// StateErrorFlagged — отправка не удалась, запись ждёт повторной отправки.
	StateErrorFlagged
)

func (s EntryState) String() string {
	switch s {
	case StateSending:
		return "sending"
	case StateConfirmed:
		return "confirmed"
	case StateErrorFlagged:
		return "error"
	default:
		return fmt.Sprintf("EntryState(%d)", int(s))
	}
}

// CanTransition проверяет переход по автомату
// ErrorFlagged -> Sending -> {Confirmed | ErrorFlagged}.
// Подтверждённая запись финальна.
func (s EntryState) CanTransition(to EntryState) bool {
	switch s {
	case StateSending:
		return to == StateConfirmed || to == StateErrorFlagged
	case StateErrorFlagged:
		return to == StateSending
	default:
		return false
	}
}

// Entry — локальная запись списка: комментарий + состояние синхронизации.
//   - ID — локальный идентификатор (ULID), по нему адресуется повторная отправка;
//   - Index — позиция в фиде, имеет смысл только для StateConfirmed.
type Entry struct {
	ID      string
	Index   uint64
	Comment Comment
	State   EntryState
}

// Error сообщает, помечена ли запись как неотправленная.
func (e Entry) Error() bool {
	return e.State == StateErrorFlagged
}

// Confirmed сообщает, что запись подтверждена фидом.
func (e Entry) Confirmed() bool {
	return e.State == StateConfirmed
}

// Transition переводит запись в состояние to, если переход допустим.
func (e *Entry) Transition(to EntryState) error {
	if !e.State.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, e.State, to)
	}

	e.State = to
	return nil
}

// FilterByAuthor возвращает записи, автор которых совпадает с who.
// Текущий пользователь передаётся явно, без глобального состояния.
func FilterByAuthor(entries []Entry, who Identity) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Comment.Author.Same(who) {
			out = append(out, e)
		}
	}

	return out
}
