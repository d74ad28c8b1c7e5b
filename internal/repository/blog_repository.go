package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/pkg/database"
)

// BlogRepository persists posts with their likes, comments and replies.
type BlogRepository struct {
	coll *mongo.Collection
	emit *realtime.EntityEmitter
}

func NewBlogRepository(db *mongo.Database, out realtime.Broadcaster) *BlogRepository {
	return &BlogRepository{
		coll: db.Collection(database.CollectionBlogs),
		emit: realtime.NewEntityEmitter(realtime.EntityBlogs, out),
	}
}

func (r *BlogRepository) Create(ctx context.Context, b *models.Blog) error {
	stamp(&b.ID, &b.Version, &b.CreatedAt, &b.UpdatedAt, time.Now().UTC())
	if b.Likes == nil {
		b.Likes = []bson.ObjectID{}
	}
	if b.Comments == nil {
		b.Comments = []models.BlogComment{}
	}
	if _, err := r.coll.InsertOne(ctx, b); err != nil {
		return mapError("create blog", err)
	}
	r.emit.Created(b.ID.Hex(), b.Version, b)
	return nil
}

func (r *BlogRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Blog, error) {
	return findOne[models.Blog](ctx, r.coll, bson.D{{Key: "_id", Value: id}}, "find blog")
}

func (r *BlogRepository) List(ctx context.Context, filter models.BlogFilter) ([]models.Blog, int64, error) {
	sort := bson.D{{Key: "publishedAt", Value: -1}, {Key: "createdAt", Value: -1}}
	return findPage[models.Blog](ctx, r.coll, blogQuery(filter), sort, filter.Page, "list blogs")
}

// Update replaces the post, guarded by version. Used for edits and for
// status changes.
func (r *BlogRepository) Update(ctx context.Context, b *models.Blog) error {
	expected := b.Version
	b.Version++
	b.UpdatedAt = time.Now().UTC()
	if err := replaceVersioned(ctx, r.coll, b.ID, expected, b, "update blog"); err != nil {
		b.Version = expected
		return err
	}
	r.emit.Updated(b.ID.Hex(), b.Version, b)
	return nil
}

func (r *BlogRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	if err := deleteByID(ctx, r.coll, id, "delete blog"); err != nil {
		return err
	}
	r.emit.Deleted(id.Hex())
	return nil
}

// ToggleLike adds userID to the likes, or removes it when already present.
// The returned flag reports whether the user now likes the post.
func (r *BlogRepository) ToggleLike(ctx context.Context, id, userID bson.ObjectID) (*models.Blog, bool, error) {
	now := time.Now().UTC()
	like := bson.D{{Key: "$addToSet", Value: bson.D{{Key: "likes", Value: userID}}}}
	b, err := updateOne[models.Blog](ctx, r.coll, id, bson.D{{Key: "likes", Value: bson.D{{Key: "$ne", Value: userID}}}}, like, now, "like blog")
	liked := true
	if errors.Is(err, ErrConflict) {
		unlike := bson.D{{Key: "$pull", Value: bson.D{{Key: "likes", Value: userID}}}}
		b, err = updateOne[models.Blog](ctx, r.coll, id, bson.D{{Key: "likes", Value: userID}}, unlike, now, "unlike blog")
		liked = false
	}
	if err != nil {
		return nil, false, err
	}
	r.emit.Updated(b.ID.Hex(), b.Version, b)
	return b, liked, nil
}

func (r *BlogRepository) AddComment(ctx context.Context, id bson.ObjectID, comment models.BlogComment) (*models.Blog, error) {
	if comment.Replies == nil {
		comment.Replies = []models.BlogReply{}
	}
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "comments", Value: comment}}}}
	b, err := updateOne[models.Blog](ctx, r.coll, id, nil, update, comment.CreatedAt, "add blog comment")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(b.ID.Hex(), b.Version, b)
	return b, nil
}

// AddReply appends reply to commentID. ErrConflict means the comment does not exist.
func (r *BlogRepository) AddReply(ctx context.Context, id, commentID bson.ObjectID, reply models.BlogReply) (*models.Blog, error) {
	filter := bson.D{{Key: "comments._id", Value: commentID}}
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "comments.$.replies", Value: reply}}}}
	b, err := updateOne[models.Blog](ctx, r.coll, id, filter, update, reply.CreatedAt, "add blog reply")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(b.ID.Hex(), b.Version, b)
	return b, nil
}

// ModerateComment sets the approval flag of commentID.
func (r *BlogRepository) ModerateComment(ctx context.Context, id, commentID bson.ObjectID, approved bool) (*models.Blog, error) {
	filter := bson.D{{Key: "comments._id", Value: commentID}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "comments.$.isApproved", Value: approved}}}}
	b, err := updateOne[models.Blog](ctx, r.coll, id, filter, update, time.Now().UTC(), "moderate blog comment")
	if err != nil {
		return nil, err
	}
	r.emit.Updated(b.ID.Hex(), b.Version, b)
	return b, nil
}

func (r *BlogRepository) CountByAuthor(ctx context.Context, author bson.ObjectID) (int64, error) {
	return countBy(ctx, r.coll, bson.D{{Key: "author", Value: author}}, "count blogs by author")
}

// blogQuery shows published posts to everyone and, when Viewer is set, the
// viewer's own drafts and archived posts as well.
func blogQuery(filter models.BlogFilter) bson.D {
	query := bson.D{}
	switch {
	case filter.Status != "":
		query = append(query, bson.E{Key: "status", Value: filter.Status})
		if filter.Status != models.BlogPublished && filter.Viewer != nil {
			filter.Author = filter.Viewer
		}
	case filter.Viewer != nil:
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "status", Value: models.BlogPublished}},
			bson.D{{Key: "author", Value: *filter.Viewer}},
		}})
	default:
		query = append(query, bson.E{Key: "status", Value: models.BlogPublished})
	}

	if filter.Author != nil {
		query = append(query, bson.E{Key: "author", Value: *filter.Author})
	}
	if filter.Tag != "" {
		query = append(query, bson.E{Key: "tags", Value: filter.Tag})
	}
	if filter.Category != "" {
		query = append(query, bson.E{Key: "category", Value: filter.Category})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		match := containsText(search)
		query = append(query, bson.E{Key: "$and", Value: bson.A{
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "title", Value: match}},
				bson.D{{Key: "content", Value: match}},
				bson.D{{Key: "tags", Value: match}},
			}}},
		}})
	}
	return query
}
