package engine

import (
	"slices"

	"github.com/pribylovaa/go-feed-comments/internal/feed"
	"github.com/pribylovaa/go-feed-comments/internal/models"
)

// Вспомогательные функции ниже вызываются под e.mu.

func (e *Engine) indexOfLocked(id string) int {
	return slices.IndexFunc(e.entries, func(en models.Entry) bool { return en.ID == id })
}

// heldLocked — множество индексов подтверждённых записей.
func (e *Engine) heldLocked() map[uint64]struct{} {
	held := make(map[uint64]struct{}, len(e.entries))
	for _, en := range e.entries {
		if en.Confirmed() {
			held[en.Index] = struct{}{}
		}
	}

	return held
}

// flaggedLocked возвращает позицию записи с ошибкой и тем же (Text, MessageID), либо -1.
func (e *Engine) flaggedLocked(c models.Comment) int {
	return slices.IndexFunc(e.entries, func(en models.Entry) bool {
		return en.Error() && en.Comment.SameContent(c)
	})
}

// dropFlaggedLocked удаляет черновики с ошибкой, совпадающие с подтверждённым комментарием.
// Запись в фид могла пройти, хотя проверка чтением не удалась.
func (e *Engine) dropFlaggedLocked(c models.Comment) {
	e.entries = slices.DeleteFunc(e.entries, func(en models.Entry) bool {
		return en.Error() && en.Comment.SameContent(c)
	})
}

// confirmed строит подтверждённые записи из записей фида, пропуская уже известные индексы.
func confirmed(in []feed.Entry, held map[uint64]struct{}) []models.Entry {
	out := make([]models.Entry, 0, len(in))
	for _, fe := range in {
		if _, ok := held[fe.Index]; ok {
			continue
		}
		held[fe.Index] = struct{}{}

		out = append(out, models.Entry{
			ID:      newEntryID(),
			Index:   fe.Index,
			Comment: fe.Comment,
			State:   models.StateConfirmed,
		})
	}

	return out
}

// appendLiveLocked дописывает новые записи в хвост, убирая совпавшие черновики с ошибкой.
func (e *Engine) appendLiveLocked(in []feed.Entry) []models.Entry {
	added := confirmed(in, e.heldLocked())
	for _, en := range added {
		e.dropFlaggedLocked(en.Comment)
	}

	e.entries = append(e.entries, added...)
	return added
}

// prependLocked добавляет более старые записи в начало списка.
func (e *Engine) prependLocked(in []feed.Entry) []models.Entry {
	added := confirmed(in, e.heldLocked())
	for _, en := range added {
		e.dropFlaggedLocked(en.Comment)
	}

	e.entries = append(slices.Clone(added), e.entries...)
	return added
}

// replaceLocked заменяет подтверждённую часть списка результатом загрузки.
// Черновики с ошибкой остаются в хвосте, если их не подтвердил сам фид.
func (e *Engine) replaceLocked(in []feed.Entry) []models.Entry {
	loaded := confirmed(in, make(map[uint64]struct{}, len(in)))

	drafts := make([]models.Entry, 0)
	for _, en := range e.entries {
		if en.Confirmed() {
			continue
		}

		if slices.ContainsFunc(loaded, func(l models.Entry) bool { return l.Comment.SameContent(en.Comment) }) {
			continue
		}

		drafts = append(drafts, en)
	}

	e.entries = append(slices.Clone(loaded), drafts...)
	return loaded
}

func comments(entries []models.Entry) []models.Comment {
	out := make([]models.Comment, len(entries))
	for i, en := range entries {
		out[i] = en.Comment
	}

	return out
}
