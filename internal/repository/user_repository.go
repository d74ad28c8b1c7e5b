package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/pkg/database"
)

// UserRepository provides database access for user management.
type UserRepository struct {
	coll *mongo.Collection
	emit *realtime.EntityEmitter
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *mongo.Database, out realtime.Broadcaster) *UserRepository {
	return &UserRepository{
		coll: db.Collection(database.CollectionUsers),
		emit: realtime.NewEntityEmitter(realtime.EntityUsers, out),
	}
}

// Create inserts a new user. Emails are stored lowercased.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	stamp(&user.ID, &user.Version, &user.CreatedAt, &user.UpdatedAt, time.Now().UTC())
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return mapError("create user", err)
	}
	r.emit.Created(user.ID.Hex(), user.Version, user)
	return nil
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	filter := bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}}
	return findOne[models.User](ctx, r.coll, filter, "find user by email")
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, bson.D{{Key: "_id", Value: id}}, "find user by id")
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	return findPage[models.User](ctx, r.coll, userQuery(filter), bson.D{{Key: "createdAt", Value: -1}}, filter.Page, "list users")
}

// Count returns the number of users matching filter.
func (r *UserRepository) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, userQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Update stores profile changes guarded by the version the caller read.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	expected := user.Version
	user.Version++
	user.UpdatedAt = time.Now().UTC()
	if err := replaceVersioned(ctx, r.coll, user.ID, expected, user, "update user"); err != nil {
		user.Version = expected
		return err
	}
	r.emit.Updated(user.ID.Hex(), user.Version, user)
	return nil
}

// Approve marks the account approved by admin.
func (r *UserRepository) Approve(ctx context.Context, id, admin bson.ObjectID, at time.Time) (*models.User, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "isApproved", Value: true},
		{Key: "approvedBy", Value: admin},
		{Key: "approvedAt", Value: at},
	}}}
	user, err := updateOne[models.User](ctx, r.coll, id, nil, update, at, "approve user")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(user.ID.Hex(), user.Version, user)
	return user, nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string, at time.Time) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "passwordHash", Value: passwordHash}}}}
	_, err := updateOne[models.User](ctx, r.coll, id, nil, update, at, "update password")
	return err
}

// UpdateLastLogin records a successful login. It does not emit an event.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id bson.ObjectID, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: bson.D{{Key: "lastLogin", Value: at}}}})
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	if err := deleteByID(ctx, r.coll, id, "delete user"); err != nil {
		return err
	}
	r.emit.Deleted(id.Hex())
	return nil
}

func userQuery(filter models.UserFilter) bson.D {
	query := bson.D{}
	if filter.Role != nil {
		query = append(query, bson.E{Key: "role", Value: *filter.Role})
	}
	if filter.IsApproved != nil {
		query = append(query, bson.E{Key: "isApproved", Value: *filter.IsApproved})
	}
	if filter.IsMentor != nil {
		query = append(query, bson.E{Key: "isMentor", Value: *filter.IsMentor})
	}
	if len(filter.Exclude) > 0 {
		query = append(query, bson.E{Key: "_id", Value: bson.D{{Key: "$nin", Value: filter.Exclude}}})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		match := containsText(search)
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "firstName", Value: match}},
			bson.D{{Key: "lastName", Value: match}},
			bson.D{{Key: "email", Value: match}},
			bson.D{{Key: "profile.company", Value: match}},
			bson.D{{Key: "profile.skills", Value: match}},
		}})
	}
	return query
}
