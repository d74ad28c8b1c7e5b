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

// AnnouncementRepository provides persistence for announcements.
type AnnouncementRepository struct {
	coll *mongo.Collection
	emit *realtime.EntityEmitter
}

// NewAnnouncementRepository creates a repository instance.
func NewAnnouncementRepository(db *mongo.Database, out realtime.Broadcaster) *AnnouncementRepository {
	return &AnnouncementRepository{
		coll: db.Collection(database.CollectionAnnouncements),
		emit: realtime.NewEntityEmitter(realtime.EntityAnnouncements, out),
	}
}

// List returns announcements visible under filter, newest first.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int64, error) {
	sort := bson.D{{Key: "publishedAt", Value: -1}, {Key: "createdAt", Value: -1}}
	return findPage[models.Announcement](ctx, r.coll, announcementQuery(filter), sort, filter.Page, "list announcements")
}

// FindByID fetches an announcement by id.
func (r *AnnouncementRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Announcement, error) {
	return findOne[models.Announcement](ctx, r.coll, bson.D{{Key: "_id", Value: id}}, "find announcement")
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, a *models.Announcement) error {
	stamp(&a.ID, &a.Version, &a.CreatedAt, &a.UpdatedAt, time.Now().UTC())
	if a.TargetAudience == nil {
		a.TargetAudience = []string{models.AudienceAll}
	}
	if _, err := r.coll.InsertOne(ctx, a); err != nil {
		return mapError("create announcement", err)
	}
	r.emit.Created(a.ID.Hex(), a.Version, a)
	return nil
}

// Update replaces an announcement, guarded by version.
func (r *AnnouncementRepository) Update(ctx context.Context, a *models.Announcement) error {
	expected := a.Version
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	if err := replaceVersioned(ctx, r.coll, a.ID, expected, a, "update announcement"); err != nil {
		a.Version = expected
		return err
	}
	r.emit.Updated(a.ID.Hex(), a.Version, a)
	return nil
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	if err := deleteByID(ctx, r.coll, id, "delete announcement"); err != nil {
		return err
	}
	r.emit.Deleted(id.Hex())
	return nil
}

// CountActive counts published, unexpired announcements.
func (r *AnnouncementRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.D{{Key: "status", Value: models.AnnouncementPublished}, notExpired("expiresAt", now)}
	return countBy(ctx, r.coll, filter, "count active announcements")
}

// announcementQuery restricts non-admin views to active announcements that
// target the audience role or everyone.
func announcementQuery(filter models.AnnouncementFilter) bson.D {
	if filter.All {
		if filter.Status != "" {
			return bson.D{{Key: "status", Value: filter.Status}}
		}
		return bson.D{}
	}

	query := bson.D{{Key: "status", Value: models.AnnouncementPublished}}
	if filter.Audience != "" {
		query = append(query, bson.E{Key: "targetAudience", Value: bson.D{{Key: "$in", Value: bson.A{models.AudienceAll, string(filter.Audience)}}}})
	}
	now := filter.ActiveAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	query = append(query, notExpired("expiresAt", now))
	return query
}
