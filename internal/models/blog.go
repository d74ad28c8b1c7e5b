package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type BlogStatus string

const (
	BlogDraft     BlogStatus = "draft"
	BlogPublished BlogStatus = "published"
	BlogArchived  BlogStatus = "archived"
)

// wordsPerMinute drives the estimated read time.
const wordsPerMinute = 200

type BlogReply struct {
	ID        bson.ObjectID `bson:"_id" json:"id"`
	User      bson.ObjectID `bson:"user" json:"user"`
	Content   string        `bson:"content" json:"content"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}

// BlogComment is moderated per comment through IsApproved.
type BlogComment struct {
	ID         bson.ObjectID `bson:"_id" json:"id"`
	User       bson.ObjectID `bson:"user" json:"user"`
	Content    string        `bson:"content" json:"content"`
	IsApproved bool          `bson:"isApproved" json:"isApproved"`
	Replies    []BlogReply   `bson:"replies" json:"replies"`
	CreatedAt  time.Time     `bson:"createdAt" json:"createdAt"`
}

type Blog struct {
	ID          bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string          `bson:"title" json:"title"`
	Content     string          `bson:"content" json:"content"`
	Excerpt     string          `bson:"excerpt,omitempty" json:"excerpt,omitempty"`
	Category    string          `bson:"category,omitempty" json:"category,omitempty"`
	Tags        []string        `bson:"tags,omitempty" json:"tags,omitempty"`
	CoverImage  string          `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	Author      bson.ObjectID   `bson:"author" json:"author"`
	Status      BlogStatus      `bson:"status" json:"status"`
	PublishedAt *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	Likes       []bson.ObjectID `bson:"likes" json:"likes"`
	Comments    []BlogComment   `bson:"comments" json:"comments"`
	Version     int64           `bson:"version" json:"version"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// ReadTimeMinutes estimates reading time from the content, at least one minute.
func (b *Blog) ReadTimeMinutes() int {
	words := len(strings.Fields(b.Content))
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

func (b *Blog) LikeCount() int {
	return len(b.Likes)
}

// CommentCount counts approved comments only.
func (b *Blog) CommentCount() int {
	n := 0
	for _, c := range b.Comments {
		if c.IsApproved {
			n++
		}
	}
	return n
}

func (b *Blog) LikedBy(userID bson.ObjectID) bool {
	return containsID(b.Likes, userID)
}

// Comment returns the comment with id, if any.
func (b *Blog) Comment(id bson.ObjectID) (*BlogComment, bool) {
	for i := range b.Comments {
		if b.Comments[i].ID == id {
			return &b.Comments[i], true
		}
	}
	return nil, false
}

// MarshalJSON adds the derived counters to the stored fields.
func (b Blog) MarshalJSON() ([]byte, error) {
	type blogFields Blog
	return json.Marshal(struct {
		blogFields
		ReadTimeMinutes int `json:"readTimeMinutes"`
		LikeCount       int `json:"likeCount"`
		CommentCount    int `json:"commentCount"`
	}{blogFields(b), b.ReadTimeMinutes(), b.LikeCount(), b.CommentCount()})
}

// BlogFilter captures list criteria. Viewer sees their own drafts when set.
type BlogFilter struct {
	Status   BlogStatus
	Author   *bson.ObjectID
	Viewer   *bson.ObjectID
	Tag      string
	Category string
	Search   string
	Page     PageRequest
}
