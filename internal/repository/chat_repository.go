package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/pkg/database"
)

// withoutMessages keeps chat listings and events small.
var withoutMessages = bson.D{{Key: "messages", Value: 0}}

// ChatRepository persists one conversation per unordered pair of users. The
// unique pairKey index makes find-or-create safe under concurrent calls.
type ChatRepository struct {
	coll *mongo.Collection
	emit *realtime.EntityEmitter
}

func NewChatRepository(db *mongo.Database, out realtime.Broadcaster) *ChatRepository {
	return &ChatRepository{
		coll: db.Collection(database.CollectionChats),
		emit: realtime.NewEntityEmitter(realtime.EntityChats, out),
	}
}

// FindOrCreate returns the chat of (a, b) in either order, creating it when
// missing. The flag reports whether this call created it.
func (r *ChatRepository) FindOrCreate(ctx context.Context, a, b bson.ObjectID, mentorship *bson.ObjectID, now time.Time) (*models.Chat, bool, error) {
	key := models.PairKey(a, b)
	filter := bson.D{{Key: "pairKey", Value: key}}

	res, err := r.coll.UpdateOne(ctx, filter, chatUpsert(a, b, mentorship, now), options.UpdateOne().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("upsert chat: %w", err)
	}
	// A concurrent upsert of the same pair loses on the unique index; the
	// winner's document is then read below.
	created := err == nil && res.UpsertedCount == 1

	chat, err := findOne[models.Chat](ctx, r.coll, filter, "find chat by pair")
	if err != nil {
		return nil, false, err
	}
	if created {
		r.emit.Created(chat.ID.Hex(), chat.Version, chat)
	}
	return chat, created, nil
}

// FindByID returns the chat without its messages.
func (r *ChatRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Chat, error) {
	var chat models.Chat
	opts := options.FindOne().SetProjection(withoutMessages)
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}, opts).Decode(&chat); err != nil {
		return nil, mapError("find chat", err)
	}
	return &chat, nil
}

// ListForUser returns the conversations of userID, most recent activity first.
func (r *ChatRepository) ListForUser(ctx context.Context, userID bson.ObjectID, page models.PageRequest) ([]models.Chat, int64, error) {
	filter := bson.D{{Key: "participants", Value: userID}}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count chats: %w", err)
	}
	opts := options.Find().
		SetProjection(withoutMessages).
		SetSort(bson.D{{Key: "lastMessageAt", Value: -1}, {Key: "updatedAt", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(page.Limit())
	chats, err := findAll[models.Chat](ctx, r.coll, filter, opts, "list chats")
	if err != nil {
		return nil, 0, err
	}
	return chats, total, nil
}

type messageWindow struct {
	Total    int64                `bson:"total"`
	Messages []models.ChatMessage `bson:"messages"`
}

// Messages returns one page of the chat's messages in send order and the
// total message count.
func (r *ChatRepository) Messages(ctx context.Context, id bson.ObjectID, page models.PageRequest) ([]models.ChatMessage, int64, error) {
	cursor, err := r.coll.Aggregate(ctx, messagesPipeline(id, page))
	if err != nil {
		return nil, 0, fmt.Errorf("aggregate chat messages: %w", err)
	}
	var windows []messageWindow
	if err := cursor.All(ctx, &windows); err != nil {
		return nil, 0, fmt.Errorf("decode chat messages: %w", err)
	}
	if len(windows) == 0 {
		return nil, 0, ErrNotFound
	}
	msgs := windows[0].Messages
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return msgs, windows[0].Total, nil
}

// AppendMessage stores msg and bumps the unread counter of recipient. Only
// participants may append; ErrConflict means the sender is not one.
func (r *ChatRepository) AppendMessage(ctx context.Context, id bson.ObjectID, msg models.ChatMessage, recipient bson.ObjectID) (*models.Chat, error) {
	filter := bson.D{{Key: "participants", Value: msg.Sender}}
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "messages", Value: msg}}},
		{Key: "$set", Value: bson.D{
			{Key: "lastMessage", Value: msg},
			{Key: "lastMessageAt", Value: msg.CreatedAt},
		}},
		{Key: "$inc", Value: bson.D{{Key: "unread." + recipient.Hex(), Value: 1}}},
	}
	chat, err := r.updateSummary(ctx, id, filter, update, msg.CreatedAt, "append chat message")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(chat.ID.Hex(), chat.Version, chat)
	return chat, nil
}

// MarkRead clears the unread counter of userID.
func (r *ChatRepository) MarkRead(ctx context.Context, id, userID bson.ObjectID, at time.Time) (*models.Chat, error) {
	filter := bson.D{{Key: "participants", Value: userID}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "unread." + userID.Hex(), Value: 0}}}}
	chat, err := r.updateSummary(ctx, id, filter, update, at, "mark chat read")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(chat.ID.Hex(), chat.Version, chat)
	return chat, nil
}

// updateSummary is updateOne with the message list projected away.
func (r *ChatRepository) updateSummary(ctx context.Context, id bson.ObjectID, filter, update bson.D, now time.Time, op string) (*models.Chat, error) {
	full := append(bson.D{{Key: "_id", Value: id}}, filter...)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(withoutMessages)
	var chat models.Chat
	err := r.coll.FindOneAndUpdate(ctx, full, withVersionBump(update, now), opts).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, missReason(ctx, r.coll, id, op)
	}
	if err != nil {
		return nil, mapError(op, err)
	}
	return &chat, nil
}

func chatUpsert(a, b bson.ObjectID, mentorship *bson.ObjectID, now time.Time) bson.D {
	insert := bson.D{
		{Key: "participants", Value: bson.A{a, b}},
		{Key: "messages", Value: bson.A{}},
		{Key: "unread", Value: bson.D{{Key: a.Hex(), Value: 0}, {Key: b.Hex(), Value: 0}}},
		{Key: "version", Value: int64(1)},
		{Key: "createdAt", Value: now},
		{Key: "updatedAt", Value: now},
	}
	if mentorship != nil {
		insert = append(insert, bson.E{Key: "mentorship", Value: *mentorship})
	}
	return bson.D{{Key: "$setOnInsert", Value: insert}}
}

func messagesPipeline(id bson.ObjectID, page models.PageRequest) mongo.Pipeline {
	messages := bson.D{{Key: "$ifNull", Value: bson.A{"$messages", bson.A{}}}}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "total", Value: bson.D{{Key: "$size", Value: messages}}},
			{Key: "messages", Value: bson.D{{Key: "$slice", Value: bson.A{messages, page.Skip(), page.Limit()}}}},
		}}},
	}
}
