// Package timefmt — короткое относительное представление времени комментария.
package timefmt

import "time"

// Format форматирует t относительно now в часовом поясе now:
//   - сегодня: "15:04";
//   - вчера: "Yesterday 15:04";
//   - в этом году: "Jan 2 15:04";
//   - иначе: "2006 Jan 2 15:04".
//
// Нулевое время даёт пустую строку.
func Format(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	t = t.In(now.Location())

	switch {
	case sameDay(t, now):
		return t.Format("15:04")
	case sameDay(t, now.AddDate(0, 0, -1)):
		return t.Format("Yesterday 15:04")
	case t.Year() == now.Year():
		return t.Format("Jan 2 15:04")
	default:
		return t.Format("2006 Jan 2 15:04")
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
