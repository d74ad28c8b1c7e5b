package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/pkg/database"
)

// FeedbackRepository persists feedback entries. Priority is derived from the
// rating on every write.
type FeedbackRepository struct {
	coll *mongo.Collection
	emit *realtime.EntityEmitter
}

func NewFeedbackRepository(db *mongo.Database, out realtime.Broadcaster) *FeedbackRepository {
	return &FeedbackRepository{
		coll: db.Collection(database.CollectionFeedback),
		emit: realtime.NewEntityEmitter(realtime.EntityFeedback, out),
	}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *models.Feedback) error {
	f.Prepare()
	stamp(&f.ID, &f.Version, &f.CreatedAt, &f.UpdatedAt, time.Now().UTC())
	if f.HelpfulBy == nil {
		f.HelpfulBy = []bson.ObjectID{}
	}
	if _, err := r.coll.InsertOne(ctx, f); err != nil {
		return mapError("create feedback", err)
	}
	r.emit.Created(f.ID.Hex(), f.Version, f)
	return nil
}

func (r *FeedbackRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Feedback, error) {
	return findOne[models.Feedback](ctx, r.coll, bson.D{{Key: "_id", Value: id}}, "find feedback")
}

func (r *FeedbackRepository) List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, int64, error) {
	return findPage[models.Feedback](ctx, r.coll, feedbackQuery(filter), bson.D{{Key: "createdAt", Value: -1}}, filter.Page, "list feedback")
}

// Update replaces the entry, recomputing priority from the current rating.
func (r *FeedbackRepository) Update(ctx context.Context, f *models.Feedback) error {
	f.Prepare()
	expected := f.Version
	f.Version++
	f.UpdatedAt = time.Now().UTC()
	if err := replaceVersioned(ctx, r.coll, f.ID, expected, f, "update feedback"); err != nil {
		f.Version = expected
		return err
	}
	r.emit.Updated(f.ID.Hex(), f.Version, f)
	return nil
}

// Respond stores the administrator response and moves the entry to status.
func (r *FeedbackRepository) Respond(ctx context.Context, id bson.ObjectID, resp models.FeedbackResponse, status models.FeedbackStatus) (*models.Feedback, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "response", Value: resp},
		{Key: "status", Value: status},
	}}}
	f, err := updateOne[models.Feedback](ctx, r.coll, id, nil, update, resp.RespondedAt, "respond to feedback")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(f.ID.Hex(), f.Version, f)
	return f, nil
}

// MarkHelpful records userID once. ErrConflict means it was already recorded.
func (r *FeedbackRepository) MarkHelpful(ctx context.Context, id, userID bson.ObjectID) (*models.Feedback, error) {
	filter := bson.D{{Key: "helpfulBy", Value: bson.D{{Key: "$ne", Value: userID}}}}
	update := bson.D{{Key: "$addToSet", Value: bson.D{{Key: "helpfulBy", Value: userID}}}}
	f, err := updateOne[models.Feedback](ctx, r.coll, id, filter, update, time.Now().UTC(), "mark feedback helpful")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(f.ID.Hex(), f.Version, f)
	return f, nil
}

type countBucket struct {
	Key   interface{} `bson:"_id"`
	Count int64       `bson:"count"`
}

type feedbackFacets struct {
	Totals []struct {
		Total   int64   `bson:"total"`
		Average float64 `bson:"average"`
	} `bson:"totals"`
	ByPriority []countBucket `bson:"byPriority"`
	ByStatus   []countBucket `bson:"byStatus"`
	ByRating   []countBucket `bson:"byRating"`
}

// Stats aggregates every feedback entry in one pass.
func (r *FeedbackRepository) Stats(ctx context.Context) (models.FeedbackStats, error) {
	cursor, err := r.coll.Aggregate(ctx, feedbackStatsPipeline())
	if err != nil {
		return models.FeedbackStats{}, fmt.Errorf("aggregate feedback stats: %w", err)
	}
	var facets []feedbackFacets
	if err := cursor.All(ctx, &facets); err != nil {
		return models.FeedbackStats{}, fmt.Errorf("decode feedback stats: %w", err)
	}
	if len(facets) == 0 {
		return emptyFeedbackStats(), nil
	}
	return facets[0].stats(), nil
}

func feedbackStatsPipeline() mongo.Pipeline {
	groupBy := func(field string) bson.A {
		return bson.A{bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}}}
	}
	return mongo.Pipeline{
		{{Key: "$facet", Value: bson.D{
			{Key: "totals", Value: bson.A{bson.D{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: nil},
				{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
				{Key: "average", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
			}}}}},
			{Key: "byPriority", Value: groupBy("priority")},
			{Key: "byStatus", Value: groupBy("status")},
			{Key: "byRating", Value: groupBy("rating")},
		}}},
	}
}

func emptyFeedbackStats() models.FeedbackStats {
	return models.FeedbackStats{
		ByPriority: map[models.FeedbackPriority]int64{},
		ByStatus:   map[models.FeedbackStatus]int64{},
		ByRating:   map[int]int64{},
	}
}

func (f feedbackFacets) stats() models.FeedbackStats {
	out := emptyFeedbackStats()
	if len(f.Totals) > 0 {
		out.Total = f.Totals[0].Total
		out.AverageRating = f.Totals[0].Average
	}
	for _, b := range f.ByPriority {
		if key, ok := b.Key.(string); ok {
			out.ByPriority[models.FeedbackPriority(key)] = b.Count
		}
	}
	for _, b := range f.ByStatus {
		if key, ok := b.Key.(string); ok {
			out.ByStatus[models.FeedbackStatus(key)] = b.Count
		}
	}
	for _, b := range f.ByRating {
		switch key := b.Key.(type) {
		case int32:
			out.ByRating[int(key)] = b.Count
		case int64:
			out.ByRating[int(key)] = b.Count
		}
	}
	return out
}

func feedbackQuery(filter models.FeedbackFilter) bson.D {
	query := bson.D{}
	if filter.User != nil {
		query = append(query, bson.E{Key: "user", Value: *filter.User})
	}
	if filter.Category != "" {
		query = append(query, bson.E{Key: "category", Value: filter.Category})
	}
	if filter.Priority != "" {
		query = append(query, bson.E{Key: "priority", Value: filter.Priority})
	}
	if filter.Status != "" {
		query = append(query, bson.E{Key: "status", Value: filter.Status})
	}
	return query
}
