package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/pkg/database"
)

// MentorshipRepository persists 1:1 mentorships. A unique partial index on
// activeKey allows one pending or accepted mentorship per (mentor, mentee).
type MentorshipRepository struct {
	coll *mongo.Collection
	emit *realtime.EntityEmitter
}

func NewMentorshipRepository(db *mongo.Database, out realtime.Broadcaster) *MentorshipRepository {
	return &MentorshipRepository{
		coll: db.Collection(database.CollectionMentorships),
		emit: realtime.NewEntityEmitter(realtime.EntityMentorships, out),
	}
}

// Create stores a pending request. ErrDuplicate means the pair already has a
// pending or accepted mentorship.
func (r *MentorshipRepository) Create(ctx context.Context, m *models.Mentorship) error {
	stamp(&m.ID, &m.Version, &m.CreatedAt, &m.UpdatedAt, time.Now().UTC())
	m.Status = models.MentorshipPending
	m.ActiveKey = models.ActivePairKey(m.Mentor, m.Mentee)
	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		return mapError("create mentorship", err)
	}
	r.emit.Created(m.ID.Hex(), m.Version, m)
	return nil
}

func (r *MentorshipRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Mentorship, error) {
	return findOne[models.Mentorship](ctx, r.coll, bson.D{{Key: "_id", Value: id}}, "find mentorship")
}

// FindActive returns the pending or accepted mentorship of the pair.
func (r *MentorshipRepository) FindActive(ctx context.Context, mentor, mentee bson.ObjectID) (*models.Mentorship, error) {
	filter := bson.D{{Key: "activeKey", Value: models.ActivePairKey(mentor, mentee)}}
	return findOne[models.Mentorship](ctx, r.coll, filter, "find active mentorship")
}

func (r *MentorshipRepository) List(ctx context.Context, filter models.MentorshipFilter) ([]models.Mentorship, int64, error) {
	return findPage[models.Mentorship](ctx, r.coll, mentorshipQuery(filter), bson.D{{Key: "createdAt", Value: -1}}, filter.Page, "list mentorships")
}

// ActiveMentors returns the mentors mentee has a pending or accepted mentorship with.
func (r *MentorshipRepository) ActiveMentors(ctx context.Context, mentee bson.ObjectID) ([]bson.ObjectID, error) {
	filter := bson.D{
		{Key: "mentee", Value: mentee},
		{Key: "activeKey", Value: bson.D{{Key: "$exists", Value: true}}},
	}
	opts := options.Find().SetProjection(bson.D{{Key: "mentor", Value: 1}})
	docs, err := findAll[models.Mentorship](ctx, r.coll, filter, opts, "list active mentors")
	if err != nil {
		return nil, err
	}
	ids := make([]bson.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.Mentor)
	}
	return ids, nil
}

// Transition moves the mentorship to t.To only if its current status is one
// of t.From. The matching timestamp is written in the same update, so it is
// stamped once. ErrConflict means the status had already moved on.
func (r *MentorshipRepository) Transition(ctx context.Context, id bson.ObjectID, t models.MentorshipTransition) (*models.Mentorship, error) {
	filter, update := transitionUpdate(t)
	m, err := updateOne[models.Mentorship](ctx, r.coll, id, filter, update, t.At, "transition mentorship")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(m.ID.Hex(), m.Version, m)
	return m, nil
}

// CountByStatus counts mentorships per status. A non-nil participant
// restricts the count to mentorships on either side of that user.
func (r *MentorshipRepository) CountByStatus(ctx context.Context, participant *bson.ObjectID) (map[models.MentorshipStatus]int64, error) {
	pipeline := mongo.Pipeline{}
	if participant != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: participantMatch(*participant)}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$status"},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
	}}})

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate mentorship stats: %w", err)
	}
	var buckets []countBucket
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("decode mentorship stats: %w", err)
	}
	out := make(map[models.MentorshipStatus]int64, len(buckets))
	for _, b := range buckets {
		if key, ok := b.Key.(string); ok {
			out[models.MentorshipStatus(key)] = b.Count
		}
	}
	return out, nil
}

func transitionUpdate(t models.MentorshipTransition) (bson.D, bson.D) {
	filter := bson.D{{Key: "status", Value: bson.D{{Key: "$in", Value: t.From}}}}

	set := bson.D{{Key: "status", Value: t.To}}
	if t.ResponseMessage != "" {
		set = append(set, bson.E{Key: "responseMessage", Value: t.ResponseMessage})
	}
	if field := stampField(t.To); field != "" {
		set = append(set, bson.E{Key: field, Value: t.At})
	}
	update := bson.D{{Key: "$set", Value: set}}
	if t.To.Terminal() {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "activeKey", Value: ""}}})
	}
	return filter, update
}

func stampField(status models.MentorshipStatus) string {
	switch status {
	case models.MentorshipAccepted:
		return "acceptedAt"
	case models.MentorshipRejected:
		return "rejectedAt"
	case models.MentorshipCompleted:
		return "completedAt"
	case models.MentorshipCancelled:
		return "cancelledAt"
	}
	return ""
}

func participantMatch(user bson.ObjectID) bson.D {
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "mentor", Value: user}},
		bson.D{{Key: "mentee", Value: user}},
	}}}
}

func mentorshipQuery(filter models.MentorshipFilter) bson.D {
	query := bson.D{}
	if filter.Mentor != nil {
		query = append(query, bson.E{Key: "mentor", Value: *filter.Mentor})
	}
	if filter.Mentee != nil {
		query = append(query, bson.E{Key: "mentee", Value: *filter.Mentee})
	}
	if filter.Participant != nil {
		query = append(query, participantMatch(*filter.Participant)...)
	}
	if len(filter.Statuses) > 0 {
		query = append(query, bson.E{Key: "status", Value: bson.D{{Key: "$in", Value: filter.Statuses}}})
	}
	return query
}
