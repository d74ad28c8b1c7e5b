package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/noah-isme/alumni-connect-api/internal/models"
)

var (
	// ErrNotFound is returned when no document matches the identifier.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate document")
	// ErrConflict is returned when a conditional write matched nothing, either
	// because the version moved on or because its guard no longer holds.
	ErrConflict = errors.New("write condition not met")
)

// mapError converts driver errors into repository sentinels.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, op string) (*T, error) {
	var doc T
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapError(op, err)
	}
	return &doc, nil
}

// findPage returns one page of documents matching filter and the total count.
func findPage[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, sort bson.D, page models.PageRequest, op string) ([]T, int64, error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", op, err)
	}

	opts := options.Find().SetSort(sort).SetSkip(page.Skip()).SetLimit(page.Limit())
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	docs := make([]T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", op, err)
	}
	return docs, total, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts *options.FindOptionsBuilder, op string) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	docs := make([]T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", op, err)
	}
	return docs, nil
}

// updateOne applies update to the document matching filter and returns the
// post-update document. Every call bumps version and updatedAt. A filter that
// matches nothing yields ErrConflict when the id exists and ErrNotFound otherwise.
func updateOne[T any](ctx context.Context, coll *mongo.Collection, id bson.ObjectID, filter bson.D, update bson.D, now time.Time, op string) (*T, error) {
	full := append(bson.D{{Key: "_id", Value: id}}, filter...)
	update = withVersionBump(update, now)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc T
	err := coll.FindOneAndUpdate(ctx, full, update, opts).Decode(&doc)
	if err == nil {
		return &doc, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, mapError(op, err)
	}
	if len(filter) == 0 {
		return nil, ErrNotFound
	}
	return nil, missReason(ctx, coll, id, op)
}

// replaceVersioned stores doc only if the stored version still equals
// expected. The caller sets doc's version to expected+1 beforehand.
func replaceVersioned(ctx context.Context, coll *mongo.Collection, id bson.ObjectID, expected int64, doc interface{}, op string) error {
	res, err := coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "version", Value: expected}}, doc)
	if err != nil {
		return mapError(op, err)
	}
	if res.MatchedCount == 0 {
		return missReason(ctx, coll, id, op)
	}
	return nil
}

func missReason(ctx context.Context, coll *mongo.Collection, id bson.ObjectID, op string) error {
	n, err := coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id bson.ObjectID, op string) error {
	res, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// withVersionBump merges the bookkeeping fields into an update document.
func withVersionBump(update bson.D, now time.Time) bson.D {
	out := make(bson.D, 0, len(update)+2)
	hasSet, hasInc := false, false
	for _, op := range update {
		switch op.Key {
		case "$set":
			op.Value = append(asD(op.Value), bson.E{Key: "updatedAt", Value: now})
			hasSet = true
		case "$inc":
			op.Value = append(asD(op.Value), bson.E{Key: "version", Value: 1})
			hasInc = true
		}
		out = append(out, op)
	}
	if !hasSet {
		out = append(out, bson.E{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now}}})
	}
	if !hasInc {
		out = append(out, bson.E{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}})
	}
	return out
}

func asD(v interface{}) bson.D {
	switch d := v.(type) {
	case bson.D:
		return append(bson.D(nil), d...)
	case bson.M:
		out := make(bson.D, 0, len(d))
		for k, val := range d {
			out = append(out, bson.E{Key: k, Value: val})
		}
		return out
	}
	return bson.D{}
}

// containsText builds a case-insensitive substring match.
func containsText(value string) bson.D {
	return bson.D{{Key: "$regex", Value: regexp.QuoteMeta(value)}, {Key: "$options", Value: "i"}}
}

// notExpired matches documents whose field is unset or after now. A null
// query value also matches missing fields.
func notExpired(field string, now time.Time) bson.E {
	return bson.E{Key: "$or", Value: bson.A{
		bson.D{{Key: field, Value: nil}},
		bson.D{{Key: field, Value: bson.D{{Key: "$gt", Value: now}}}},
	}}
}

// stamp prepares a new document's bookkeeping fields.
func stamp(id *bson.ObjectID, version *int64, createdAt, updatedAt *time.Time, now time.Time) {
	if id.IsZero() {
		*id = bson.NewObjectID()
	}
	*version = 1
	*createdAt = now
	*updatedAt = now
}

func countBy(ctx context.Context, coll *mongo.Collection, filter bson.D, op string) (int64, error) {
	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
