package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/pribylovaa/go-feed-comments/internal/timefmt"
)

// entryView — запись в выводе json/yaml.
type entryView struct {
	ID        string  `json:"id"                yaml:"id"`
	Index     *uint64 `json:"index,omitempty"   yaml:"index,omitempty"`
	State     string  `json:"state"             yaml:"state"`
	Author    string  `json:"author"            yaml:"author"`
	Address   string  `json:"address,omitempty" yaml:"address,omitempty"`
	Text      string  `json:"text"              yaml:"text"`
	CreatedAt string  `json:"created_at"        yaml:"created_at"`

	createdAt time.Time
}

// listView — состояние списка комментариев.
type listView struct {
	Topic     string      `json:"topic"     yaml:"topic"`
	Cursor    uint64      `json:"cursor"    yaml:"cursor"`
	Exhausted bool        `json:"exhausted" yaml:"exhausted"`
	Entries   []entryView `json:"entries"   yaml:"entries"`
}

func newEntryView(e models.Entry) entryView {
	v := entryView{
		ID:        e.ID,
		State:     e.State.String(),
		Author:    e.Comment.Author.DisplayName,
		Address:   e.Comment.Author.Address,
		Text:      e.Comment.Text,
		CreatedAt: e.Comment.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		createdAt: e.Comment.CreatedAt,
	}

	if e.Confirmed() {
		idx := e.Index
		v.Index = &idx
	}

	return v
}

func newListView(topic string, cursor uint64, exhausted bool, entries []models.Entry) listView {
	v := listView{
		Topic:     topic,
		Cursor:    cursor,
		Exhausted: exhausted,
		Entries:   make([]entryView, 0, len(entries)),
	}

	for _, e := range entries {
		v.Entries = append(v.Entries, newEntryView(e))
	}

	return v
}

// renderList пишет список в выбранном формате. now нужен для относительного времени в text.
func renderList(w io.Writer, format string, v listView, now time.Time) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, v)
	case FormatYAML:
		return renderYAML(w, v)
	}

	if _, err := fmt.Fprintf(w, "topic: %s\nnext index: %d\n", v.Topic, v.Cursor); err != nil {
		return err
	}

	if len(v.Entries) == 0 {
		_, err := fmt.Fprintln(w, "no comments yet")
		return err
	}

	if err := renderLines(w, v.Entries, now); err != nil {
		return err
	}

	if v.Exhausted {
		_, err := fmt.Fprintln(w, "(beginning of feed)")
		return err
	}

	return nil
}

// renderEntry пишет одну запись (результат post).
func renderEntry(w io.Writer, format string, v entryView, now time.Time) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, v)
	case FormatYAML:
		return renderYAML(w, v)
	default:
		return renderLines(w, []entryView{v}, now)
	}
}

// renderLines — по строке на запись: "#12   Jan 2 15:04  alice: text".
// Вместо индекса у неподтверждённых записей стоит [sending] или [error].
func renderLines(w io.Writer, entries []entryView, now time.Time) error {
	for _, e := range entries {
		mark := "[" + e.State + "]"
		if e.Index != nil {
			mark = fmt.Sprintf("#%d", *e.Index)
		}

		if _, err := fmt.Fprintf(w, "%-5s %s  %s: %s\n",
			mark, timefmt.Format(e.createdAt, now), e.Author, e.Text); err != nil {
			return err
		}
	}

	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
