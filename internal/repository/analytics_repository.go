package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/pkg/database"
)

// AnalyticsRepository exposes read-optimised aggregations for the admin dashboard.
type AnalyticsRepository struct {
	db *mongo.Database
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *mongo.Database) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// sumIf counts documents for which cond holds.
func sumIf(cond interface{}) bson.D {
	return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{cond, 1, 0}}}}}
}

func eq(field string, value interface{}) bson.D {
	return bson.D{{Key: "$eq", Value: bson.A{"$" + field, value}}}
}

func sizeOf(field string) bson.D {
	return bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, bson.A{}}}}}}
}

// aggregateOne runs a single $group stage and decodes its only result.
func (r *AnalyticsRepository) aggregateOne(ctx context.Context, collection string, group bson.D, dest interface{}) error {
	pipeline := mongo.Pipeline{{{Key: "$group", Value: append(bson.D{{Key: "_id", Value: nil}}, group...)}}}
	cursor, err := r.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", collection, err)
	}
	defer cursor.Close(ctx)
	if cursor.Next(ctx) {
		if err := cursor.Decode(dest); err != nil {
			return fmt.Errorf("decode %s summary: %w", collection, err)
		}
	}
	return cursor.Err()
}

// UserSummary counts users per role, pending approvals and mentors.
func (r *AnalyticsRepository) UserSummary(ctx context.Context) (models.UserAnalytics, error) {
	var row struct {
		Total    int64 `bson:"total"`
		Students int64 `bson:"students"`
		Alumni   int64 `bson:"alumni"`
		Admins   int64 `bson:"admins"`
		Pending  int64 `bson:"pending"`
		Mentors  int64 `bson:"mentors"`
	}
	group := bson.D{
		{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		{Key: "students", Value: sumIf(eq("role", models.RoleStudent))},
		{Key: "alumni", Value: sumIf(eq("role", models.RoleAlumni))},
		{Key: "admins", Value: sumIf(eq("role", models.RoleAdmin))},
		{Key: "pending", Value: sumIf(bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "$ne", Value: bson.A{"$role", models.RoleAdmin}}},
			bson.D{{Key: "$ne", Value: bson.A{"$isApproved", true}}},
		}}})},
		{Key: "mentors", Value: sumIf(eq("isMentor", true))},
	}
	if err := r.aggregateOne(ctx, database.CollectionUsers, group, &row); err != nil {
		return models.UserAnalytics{}, err
	}
	return models.UserAnalytics{
		Total:           row.Total,
		Students:        row.Students,
		Alumni:          row.Alumni,
		Admins:          row.Admins,
		PendingApproval: row.Pending,
		Mentors:         row.Mentors,
	}, nil
}

// JobSummary counts postings and the applications they received.
func (r *AnalyticsRepository) JobSummary(ctx context.Context) (models.JobAnalytics, error) {
	var row struct {
		Total        int64 `bson:"total"`
		Active       int64 `bson:"active"`
		Applications int64 `bson:"applications"`
	}
	group := bson.D{
		{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		{Key: "active", Value: sumIf(eq("isActive", true))},
		{Key: "applications", Value: bson.D{{Key: "$sum", Value: sizeOf("applicants")}}},
	}
	if err := r.aggregateOne(ctx, database.CollectionJobs, group, &row); err != nil {
		return models.JobAnalytics{}, err
	}
	return models.JobAnalytics{Total: row.Total, Active: row.Active, Applications: row.Applications}, nil
}

// WorkshopSummary counts workshops, upcoming ones and registrations.
func (r *AnalyticsRepository) WorkshopSummary(ctx context.Context, now time.Time) (models.WorkshopAnalytics, error) {
	var row struct {
		Total         int64 `bson:"total"`
		Upcoming      int64 `bson:"upcoming"`
		Registrations int64 `bson:"registrations"`
	}
	group := bson.D{
		{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		{Key: "upcoming", Value: sumIf(bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$isActive", true}}},
			bson.D{{Key: "$gte", Value: bson.A{"$date", now}}},
		}}})},
		{Key: "registrations", Value: bson.D{{Key: "$sum", Value: sizeOf("attendees")}}},
	}
	if err := r.aggregateOne(ctx, database.CollectionWorkshops, group, &row); err != nil {
		return models.WorkshopAnalytics{}, err
	}
	return models.WorkshopAnalytics{Total: row.Total, Upcoming: row.Upcoming, Registrations: row.Registrations}, nil
}

// BlogSummary counts posts per publication state.
func (r *AnalyticsRepository) BlogSummary(ctx context.Context) (models.BlogAnalytics, error) {
	var row struct {
		Total     int64 `bson:"total"`
		Published int64 `bson:"published"`
		Drafts    int64 `bson:"drafts"`
	}
	group := bson.D{
		{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		{Key: "published", Value: sumIf(eq("status", models.BlogPublished))},
		{Key: "drafts", Value: sumIf(eq("status", models.BlogDraft))},
	}
	if err := r.aggregateOne(ctx, database.CollectionBlogs, group, &row); err != nil {
		return models.BlogAnalytics{}, err
	}
	return models.BlogAnalytics{Total: row.Total, Published: row.Published, Drafts: row.Drafts}, nil
}
