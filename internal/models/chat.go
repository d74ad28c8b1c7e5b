package models

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ChatMessage struct {
	ID        bson.ObjectID `bson:"_id" json:"id"`
	Sender    bson.ObjectID `bson:"sender" json:"sender"`
	Content   string        `bson:"content" json:"content"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}

// Chat holds the conversation of one unordered pair of users. Unread counts
// are keyed by participant hex id.
type Chat struct {
	ID            bson.ObjectID    `bson:"_id,omitempty" json:"id"`
	Participants  []bson.ObjectID  `bson:"participants" json:"participants"`
	PairKey       string           `bson:"pairKey" json:"-"`
	Mentorship    *bson.ObjectID   `bson:"mentorship,omitempty" json:"mentorship,omitempty"`
	Messages      []ChatMessage    `bson:"messages,omitempty" json:"messages,omitempty"`
	LastMessage   *ChatMessage     `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	LastMessageAt *time.Time       `bson:"lastMessageAt,omitempty" json:"lastMessageAt,omitempty"`
	Unread        map[string]int   `bson:"unread" json:"unread"`
	Version       int64            `bson:"version" json:"version"`
	CreatedAt     time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// PairKey orders the two ids so (a, b) and (b, a) share one key.
func PairKey(a, b bson.ObjectID) string {
	ids := []string{a.Hex(), b.Hex()}
	sort.Strings(ids)
	return ids[0] + ":" + ids[1]
}

func (c *Chat) HasParticipant(userID bson.ObjectID) bool {
	return containsID(c.Participants, userID)
}

// Other returns the participant that is not userID.
func (c *Chat) Other(userID bson.ObjectID) bson.ObjectID {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return bson.NilObjectID
}

func (c *Chat) UnreadFor(userID bson.ObjectID) int {
	return c.Unread[userID.Hex()]
}

// ChatMessagePage is a window of messages, oldest first.
type ChatMessagePage struct {
	ChatID   string        `json:"chatId"`
	Messages []ChatMessage `json:"messages"`
}
