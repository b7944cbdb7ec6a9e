package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TitleMaxRunes is the length a thread title is cut to.
const TitleMaxRunes = 30

// Thread is a topic-tagged conversation owned by one student.
type Thread struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Topic     Topic     `json:"topic"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is a single message in a thread. Turns are append-only.
type Turn struct {
	ID        string    `json:"id,omitempty"`
	ThreadID  string    `json:"thread_id,omitempty"`
	LocalID   string    `json:"local_id"`
	Seq       int64     `json:"seq,omitempty"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Topic     Topic     `json:"topic"`
	CreatedAt time.Time `json:"created_at"`
}

// Confirmed reports whether the store has assigned an id to the turn.
func (t Turn) Confirmed() bool {
	return t.ID != ""
}

// TitleFromText derives a thread title from the first user message.
func TitleFromText(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	if title == "" {
		return "New chat"
	}
	if utf8.RuneCountInString(title) <= TitleMaxRunes {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:TitleMaxRunes])) + "..."
}
