// Package models содержит доменные сущности виджета комментариев.
package models

import (
	"strings"
	"time"
)

// Identity — автор комментария.
// Address — необязательный EIP-55 адрес подписанта; DisplayName показывается в UI.
type Identity struct {
	DisplayName string
	Address     string
}

// Same сообщает, принадлежат ли две идентичности одному автору.
// Если адрес есть у обеих сторон — сравниваются адреса (без учёта регистра),
// иначе сравниваются отображаемые имена.
func (i Identity) Same(other Identity) bool {
	if i.Address != "" && other.Address != "" {
		return strings.EqualFold(i.Address, other.Address)
	}

	return i.DisplayName == other.DisplayName
}

// Comment — запись комментария в фиде.
// Важно:
//   - после записи в фид комментарий неизменяем;
//   - CreatedAt хранится с точностью до миллисекунд (UTC), по нему и по Text
//     проверяется, что запись по ожидаемому индексу действительно наша;
//   - MessageID/ThreadID опциональны; Flagged выставляет внешняя модерация.
type Comment struct {
	Author    Identity
	Text      string
	CreatedAt time.Time
	MessageID string
	ThreadID  string
	Flagged   bool
}

// SameContent сообщает, совпадают ли (Text, MessageID) двух комментариев.
// Это ключ дедупликации черновиков с ошибкой.
func (c Comment) SameContent(other Comment) bool {
	return c.Text == other.Text && c.MessageID == other.MessageID
}

// Page — результат начальной загрузки.
// Пустая страница (NextIndex == 0, нет комментариев) означает «комментариев пока нет».
type Page struct {
	Comments  []Comment
	NextIndex uint64
}

// Empty сообщает, что фид ещё не создан или пуст.
func (p *Page) Empty() bool {
	return p == nil || (p.NextIndex == 0 && len(p.Comments) == 0)
}
