package repository

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/pkg/database"
)

// WorkshopRepository persists workshops and their attendee lists.
type WorkshopRepository struct {
	coll *mongo.Collection
	emit *realtime.EntityEmitter
	now  func() time.Time
}

func NewWorkshopRepository(db *mongo.Database, out realtime.Broadcaster) *WorkshopRepository {
	return &WorkshopRepository{
		coll: db.Collection(database.CollectionWorkshops),
		emit: realtime.NewEntityEmitter(realtime.EntityWorkshops, out),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *WorkshopRepository) Create(ctx context.Context, w *models.Workshop) error {
	stamp(&w.ID, &w.Version, &w.CreatedAt, &w.UpdatedAt, r.now())
	if w.Attendees == nil {
		w.Attendees = []models.WorkshopAttendee{}
	}
	if _, err := r.coll.InsertOne(ctx, w); err != nil {
		return mapError("create workshop", err)
	}
	r.emit.Created(w.ID.Hex(), w.Version, w)
	return nil
}

func (r *WorkshopRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Workshop, error) {
	return findOne[models.Workshop](ctx, r.coll, bson.D{{Key: "_id", Value: id}}, "find workshop")
}

func (r *WorkshopRepository) List(ctx context.Context, filter models.WorkshopFilter) ([]models.Workshop, int64, error) {
	return findPage[models.Workshop](ctx, r.coll, workshopQuery(filter, r.now()), bson.D{{Key: "date", Value: 1}}, filter.Page, "list workshops")
}

func (r *WorkshopRepository) Update(ctx context.Context, w *models.Workshop) error {
	expected := w.Version
	w.Version++
	w.UpdatedAt = r.now()
	if err := replaceVersioned(ctx, r.coll, w.ID, expected, w, "update workshop"); err != nil {
		w.Version = expected
		return err
	}
	r.emit.Updated(w.ID.Hex(), w.Version, w)
	return nil
}

func (r *WorkshopRepository) Deactivate(ctx context.Context, id bson.ObjectID) (*models.Workshop, error) {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "isActive", Value: false}}}}
	w, err := updateOne[models.Workshop](ctx, r.coll, id, nil, update, r.now(), "deactivate workshop")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(w.ID.Hex(), w.Version, w)
	return w, nil
}

// Register adds attendee only while the workshop is active, open, not full
// and the user is not yet registered, all checked in the same write.
func (r *WorkshopRepository) Register(ctx context.Context, id bson.ObjectID, attendee models.WorkshopAttendee) (*models.Workshop, error) {
	filter, update := registerGuard(attendee)
	w, err := updateOne[models.Workshop](ctx, r.coll, id, filter, update, attendee.RegisteredAt, "register for workshop")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(w.ID.Hex(), w.Version, w)
	return w, nil
}

// Unregister removes userID from the attendees. ErrConflict means the user
// was not registered.
func (r *WorkshopRepository) Unregister(ctx context.Context, id, userID bson.ObjectID) (*models.Workshop, error) {
	filter := bson.D{{Key: "attendees.user", Value: userID}}
	update := bson.D{{Key: "$pull", Value: bson.D{{Key: "attendees", Value: bson.D{{Key: "user", Value: userID}}}}}}
	w, err := updateOne[models.Workshop](ctx, r.coll, id, filter, update, r.now(), "unregister from workshop")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(w.ID.Hex(), w.Version, w)
	return w, nil
}

func (r *WorkshopRepository) CountByHost(ctx context.Context, host bson.ObjectID) (int64, error) {
	return countBy(ctx, r.coll, bson.D{{Key: "host", Value: host}}, "count workshops by host")
}

func registerGuard(attendee models.WorkshopAttendee) (bson.D, bson.D) {
	filter := bson.D{
		{Key: "isActive", Value: true},
		{Key: "attendees.user", Value: bson.D{{Key: "$ne", Value: attendee.User}}},
		{Key: "$expr", Value: bson.D{{Key: "$lt", Value: bson.A{
			bson.D{{Key: "$size", Value: "$attendees"}},
			"$capacity",
		}}}},
		bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "registrationDeadline", Value: nil}},
			bson.D{{Key: "registrationDeadline", Value: bson.D{{Key: "$gte", Value: attendee.RegisteredAt}}}},
		}},
	}
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "attendees", Value: attendee}}}}
	return filter, update
}

func workshopQuery(filter models.WorkshopFilter, now time.Time) bson.D {
	query := bson.D{{Key: "isActive", Value: true}}
	if filter.Host != nil {
		query = append(query, bson.E{Key: "host", Value: *filter.Host})
	}
	if filter.UpcomingOnly {
		query = append(query, bson.E{Key: "date", Value: bson.D{{Key: "$gte", Value: now}}})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		match := containsText(search)
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: match}},
			bson.D{{Key: "description", Value: match}},
			bson.D{{Key: "tags", Value: match}},
		}})
	}
	return query
}
