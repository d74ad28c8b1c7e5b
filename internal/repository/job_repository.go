package repository

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/pkg/database"
)

// JobRepository persists job postings and their embedded applications.
type JobRepository struct {
	coll *mongo.Collection
	emit *realtime.EntityEmitter
}

func NewJobRepository(db *mongo.Database, out realtime.Broadcaster) *JobRepository {
	return &JobRepository{
		coll: db.Collection(database.CollectionJobs),
		emit: realtime.NewEntityEmitter(realtime.EntityJobs, out),
	}
}

func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	stamp(&job.ID, &job.Version, &job.CreatedAt, &job.UpdatedAt, time.Now().UTC())
	if job.Applicants == nil {
		job.Applicants = []models.JobApplicant{}
	}
	if _, err := r.coll.InsertOne(ctx, job); err != nil {
		return mapError("create job", err)
	}
	r.emit.Created(job.ID.Hex(), job.Version, job)
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Job, error) {
	return findOne[models.Job](ctx, r.coll, bson.D{{Key: "_id", Value: id}}, "find job")
}

func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int64, error) {
	return findPage[models.Job](ctx, r.coll, jobQuery(filter), bson.D{{Key: "createdAt", Value: -1}}, filter.Page, "list jobs")
}

// Update replaces the posting if nobody changed it since it was read.
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	expected := job.Version
	job.Version++
	job.UpdatedAt = time.Now().UTC()
	if err := replaceVersioned(ctx, r.coll, job.ID, expected, job, "update job"); err != nil {
		job.Version = expected
		return err
	}
	r.emit.Updated(job.ID.Hex(), job.Version, job)
	return nil
}

// Deactivate soft-deletes a posting.
func (r *JobRepository) Deactivate(ctx context.Context, id bson.ObjectID) (*models.Job, error) {
	now := time.Now().UTC()
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "isActive", Value: false}}}}
	job, err := updateOne[models.Job](ctx, r.coll, id, nil, update, now, "deactivate job")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(job.ID.Hex(), job.Version, job)
	return job, nil
}

// Apply appends applicant in a single conditional write. ErrConflict means
// the user already applied, or the posting closed or went inactive.
func (r *JobRepository) Apply(ctx context.Context, id bson.ObjectID, applicant models.JobApplicant) (*models.Job, error) {
	filter, update := applyGuard(applicant)
	job, err := updateOne[models.Job](ctx, r.coll, id, filter, update, applicant.AppliedAt, "apply to job")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(job.ID.Hex(), job.Version, job)
	return job, nil
}

// SetApplicationStatus changes the status of userID's application.
func (r *JobRepository) SetApplicationStatus(ctx context.Context, id, userID bson.ObjectID, status models.ApplicationStatus, at time.Time) (*models.Job, error) {
	filter := bson.D{{Key: "applicants.user", Value: userID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "applicants.$.status", Value: status},
		{Key: "applicants.$.updatedAt", Value: at},
	}}}
	job, err := updateOne[models.Job](ctx, r.coll, id, filter, update, at, "update application status")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(job.ID.Hex(), job.Version, job)
	return job, nil
}

// ListByApplicant returns every job userID applied to, newest first.
func (r *JobRepository) ListByApplicant(ctx context.Context, userID bson.ObjectID) ([]models.Job, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[models.Job](ctx, r.coll, bson.D{{Key: "applicants.user", Value: userID}}, opts, "list jobs by applicant")
}

// ListWithApplications returns jobs that received at least one application.
// A non-nil owner restricts the result to their postings.
func (r *JobRepository) ListWithApplications(ctx context.Context, owner *bson.ObjectID) ([]models.Job, error) {
	filter := bson.D{{Key: "applicants.0", Value: bson.D{{Key: "$exists", Value: true}}}}
	if owner != nil {
		filter = append(filter, bson.E{Key: "postedBy", Value: *owner})
	}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	return findAll[models.Job](ctx, r.coll, filter, opts, "list jobs with applications")
}

// CountByOwner counts postings of owner, active or not.
func (r *JobRepository) CountByOwner(ctx context.Context, owner bson.ObjectID) (int64, error) {
	return countBy(ctx, r.coll, bson.D{{Key: "postedBy", Value: owner}}, "count jobs by owner")
}

func applyGuard(applicant models.JobApplicant) (bson.D, bson.D) {
	filter := bson.D{
		{Key: "isActive", Value: true},
		{Key: "applicants.user", Value: bson.D{{Key: "$ne", Value: applicant.User}}},
		notExpired("applicationDeadline", applicant.AppliedAt),
	}
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "applicants", Value: applicant}}}}
	return filter, update
}

func jobQuery(filter models.JobFilter) bson.D {
	query := bson.D{}
	if !filter.IncludeInactive {
		query = append(query, bson.E{Key: "isActive", Value: true})
	}
	if filter.Type != "" {
		query = append(query, bson.E{Key: "type", Value: filter.Type})
	}
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		query = append(query, bson.E{Key: "location", Value: containsText(loc)})
	}
	if filter.PostedBy != nil {
		query = append(query, bson.E{Key: "postedBy", Value: *filter.PostedBy})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		match := containsText(search)
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: match}},
			bson.D{{Key: "company", Value: match}},
			bson.D{{Key: "description", Value: match}},
		}})
	}
	return query
}
