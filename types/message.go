package types

import (
	"fmt"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

// Message belongs to exactly one room. Id is the volatile content hash until
// the store confirms the append, at which point the durable id replaces it.
type Message struct {
	Id         string      `json:"id" gorm:"primaryKey"`
	RoomId     string      `json:"roomId" gorm:"index"`
	Author     string      `json:"author"`
	AuthorCode string      `json:"authorCode"`
	Text       string      `json:"text"`
	Time       string      `json:"time"` // render-time clock string
	Timestamp  time.Time   `json:"timestamp"`
	Reactions  ReactionMap `json:"reactions"`
	Persisted  bool        `json:"-" gorm:"-"`
}

// CreateId derives the volatile message id from the message content. The
// timestamp is part of the hash, so two identical texts by the same author
// still get distinct ids.
func (m *Message) CreateId() error {
	hash, err := hashstructure.Hash(struct {
		RoomId     string
		AuthorCode string
		Text       string
		Timestamp  time.Time
	}{m.RoomId, m.AuthorCode, m.Text, m.Timestamp}, hashstructure.FormatV2, nil)
	if err != nil {
		return err
	}
	m.Id = fmt.Sprintf("%016x", hash)
	return nil
}

// React records one reactor under an emoji. Returns the full reactor list
// for that emoji and whether the list actually changed (a reactor appears at
// most once per emoji).
func (m *Message) React(emoji, reactor string) ([]string, bool) {
	if m.Reactions == nil {
		m.Reactions = make(ReactionMap)
	}
	for _, name := range m.Reactions[emoji] {
		if name == reactor {
			return m.Reactions[emoji], false
		}
	}
	m.Reactions[emoji] = append(m.Reactions[emoji], reactor)
	return m.Reactions[emoji], true
}
