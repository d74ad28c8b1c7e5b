package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/pkg/database"
)

// ProgramRepository persists mentorship programs with their mentee lists and
// join request queues.
type ProgramRepository struct {
	coll *mongo.Collection
	emit *realtime.EntityEmitter
}

func NewProgramRepository(db *mongo.Database, out realtime.Broadcaster) *ProgramRepository {
	return &ProgramRepository{
		coll: db.Collection(database.CollectionMentorshipPrograms),
		emit: realtime.NewEntityEmitter(realtime.EntityMentorshipPrograms, out),
	}
}

func (r *ProgramRepository) Create(ctx context.Context, p *models.MentorshipProgram) error {
	stamp(&p.ID, &p.Version, &p.CreatedAt, &p.UpdatedAt, time.Now().UTC())
	if p.Mentees == nil {
		p.Mentees = []bson.ObjectID{}
	}
	if p.Requests == nil {
		p.Requests = []models.ProgramRequest{}
	}
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return mapError("create mentorship program", err)
	}
	r.emit.Created(p.ID.Hex(), p.Version, p)
	return nil
}

func (r *ProgramRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.MentorshipProgram, error) {
	return findOne[models.MentorshipProgram](ctx, r.coll, bson.D{{Key: "_id", Value: id}}, "find mentorship program")
}

func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.MentorshipProgram, int64, error) {
	query := bson.D{}
	if filter.ActiveOnly {
		query = append(query, bson.E{Key: "isActive", Value: true})
	}
	if filter.Mentor != nil {
		query = append(query, bson.E{Key: "mentor", Value: *filter.Mentor})
	}
	return findPage[models.MentorshipProgram](ctx, r.coll, query, bson.D{{Key: "createdAt", Value: -1}}, filter.Page, "list mentorship programs")
}

func (r *ProgramRepository) Deactivate(ctx context.Context, id bson.ObjectID) (*models.MentorshipProgram, error) {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "isActive", Value: false}}}}
	p, err := updateOne[models.MentorshipProgram](ctx, r.coll, id, nil, update, time.Now().UTC(), "deactivate mentorship program")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(p.ID.Hex(), p.Version, p)
	return p, nil
}

// AddRequest queues a join request unless the mentee is already a member or
// already waiting. Earlier rejected requests do not block a new one.
func (r *ProgramRepository) AddRequest(ctx context.Context, id bson.ObjectID, req models.ProgramRequest) (*models.MentorshipProgram, error) {
	filter, update := addRequestGuard(req)
	p, err := updateOne[models.MentorshipProgram](ctx, r.coll, id, filter, update, req.RequestedAt, "request mentorship program")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(p.ID.Hex(), p.Version, p)
	return p, nil
}

// AcceptRequest marks the pending request accepted and admits its mentee in
// one write, guarded by the mentee capacity. ErrConflict means the request is
// no longer pending or the program is full.
func (r *ProgramRepository) AcceptRequest(ctx context.Context, id, requestID, mentee bson.ObjectID, at time.Time) (*models.MentorshipProgram, error) {
	filter, update := acceptRequestGuard(requestID, mentee, at)
	p, err := updateOne[models.MentorshipProgram](ctx, r.coll, id, filter, update, at, "accept program request")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(p.ID.Hex(), p.Version, p)
	return p, nil
}

// RejectRequest marks a pending request rejected.
func (r *ProgramRepository) RejectRequest(ctx context.Context, id, requestID bson.ObjectID, at time.Time) (*models.MentorshipProgram, error) {
	filter := bson.D{{Key: "requests", Value: pendingRequest(requestID)}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "requests.$.status", Value: models.ProgramRequestRejected},
		{Key: "requests.$.respondedAt", Value: at},
	}}}
	p, err := updateOne[models.MentorshipProgram](ctx, r.coll, id, filter, update, at, "reject program request")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(p.ID.Hex(), p.Version, p)
	return p, nil
}

func (r *ProgramRepository) CountActive(ctx context.Context) (int64, error) {
	return countBy(ctx, r.coll, bson.D{{Key: "isActive", Value: true}}, "count mentorship programs")
}

func pendingRequest(requestID bson.ObjectID) bson.D {
	return bson.D{{Key: "$elemMatch", Value: bson.D{
		{Key: "_id", Value: requestID},
		{Key: "status", Value: models.ProgramRequestPending},
	}}}
}

func addRequestGuard(req models.ProgramRequest) (bson.D, bson.D) {
	filter := bson.D{
		{Key: "isActive", Value: true},
		{Key: "mentees", Value: bson.D{{Key: "$ne", Value: req.Mentee}}},
		{Key: "requests", Value: bson.D{{Key: "$not", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
			{Key: "mentee", Value: req.Mentee},
			{Key: "status", Value: models.ProgramRequestPending},
		}}}}}},
	}
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "requests", Value: req}}}}
	return filter, update
}

func acceptRequestGuard(requestID, mentee bson.ObjectID, at time.Time) (bson.D, bson.D) {
	filter := bson.D{
		{Key: "requests", Value: pendingRequest(requestID)},
		// The mentee checks live in $expr so the positional operator binds to requests.
		{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "$lt", Value: bson.A{bson.D{{Key: "$size", Value: "$mentees"}}, "$maxMentees"}}},
			bson.D{{Key: "$not", Value: bson.A{bson.D{{Key: "$in", Value: bson.A{mentee, "$mentees"}}}}}},
		}}}},
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "requests.$.status", Value: models.ProgramRequestAccepted},
			{Key: "requests.$.respondedAt", Value: at},
		}},
		{Key: "$push", Value: bson.D{{Key: "mentees", Value: mentee}}},
	}
	return filter, update
}
