package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/pkg/config"
)

// Collection names.
const (
	CollectionUsers              = "users"
	CollectionJobs               = "jobs"
	CollectionWorkshops          = "workshops"
	CollectionBlogs              = "blogs"
	CollectionFeedback           = "feedback"
	CollectionMentorships        = "mentorships"
	CollectionMentorshipPrograms = "mentorship_programs"
	CollectionAnnouncements      = "announcements"
	CollectionChats              = "chats"
)

// connectFunc exists so the retry loop can be tested without a server.
type connectFunc func(ctx context.Context) (*mongo.Client, error)

// ConnectMongo connects and pings the primary, retrying up to
// cfg.ConnectRetries times. Attempt n waits n*cfg.RetryBackoff before the next try.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*mongo.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dial := func(ctx context.Context) (*mongo.Client, error) {
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI).SetConnectTimeout(cfg.ConnectTimeout))
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return client, nil
	}
	return connectWithRetry(ctx, cfg, dial, logger, time.After)
}

func connectWithRetry(ctx context.Context, cfg config.MongoConfig, dial connectFunc, logger *zap.Logger, after func(time.Duration) <-chan time.Time) (*mongo.Client, error) {
	attempts := cfg.ConnectRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := dial(ctx)
		if err == nil {
			logger.Info("mongo connected", zap.Int("attempt", attempt))
			return client, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		wait := Backoff(attempt, cfg.RetryBackoff)
		logger.Warn("mongo connection failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-after(wait):
		}
	}
	return nil, fmt.Errorf("connect mongo after %d attempts: %w", attempts, lastErr)
}

// Backoff returns the linear wait after the given failed attempt.
func Backoff(attempt int, unit time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * unit
}

// Ping checks the primary is reachable.
func Ping(ctx context.Context, client *mongo.Client) error {
	return client.Ping(ctx, readpref.Primary())
}

type helloResult struct {
	SetName string `bson:"setName"`
	Msg     string `bson:"msg"`
}

// SupportsChangeStreams reports whether the deployment is a replica set or a
// sharded cluster. Standalone servers cannot open change streams.
func SupportsChangeStreams(ctx context.Context, client *mongo.Client) (bool, error) {
	var res helloResult
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&res); err != nil {
		return false, fmt.Errorf("hello: %w", err)
	}
	return res.changeStreamCapable(), nil
}

func (h helloResult) changeStreamCapable() bool {
	return h.SetName != "" || h.Msg == "isdbgrid"
}

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range indexModels() {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func indexModels() map[string][]mongo.IndexModel {
	asc := func(keys ...string) bson.D {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return d
	}
	return map[string][]mongo.IndexModel{
		CollectionUsers: {
			{Keys: asc("email"), Options: options.Index().SetUnique(true).SetName("uniq_email")},
			{Keys: asc("role", "isApproved")},
		},
		CollectionJobs: {
			{Keys: asc("postedBy")},
			{Keys: asc("isActive", "createdAt")},
			{Keys: asc("applicants.user")},
		},
		CollectionWorkshops: {
			{Keys: asc("host")},
			{Keys: asc("date")},
			{Keys: asc("attendees.user")},
		},
		CollectionBlogs: {
			{Keys: asc("author")},
			{Keys: asc("status", "publishedAt")},
		},
		CollectionFeedback: {
			{Keys: asc("priority")},
			{Keys: asc("user")},
		},
		CollectionMentorships: {
			{
				Keys: asc("activeKey"),
				Options: options.Index().
					SetUnique(true).
					SetName("uniq_active_pair").
					SetPartialFilterExpression(bson.D{{Key: "activeKey", Value: bson.D{{Key: "$exists", Value: true}}}}),
			},
			{Keys: asc("mentor", "status")},
			{Keys: asc("mentee", "status")},
		},
		CollectionMentorshipPrograms: {
			{Keys: asc("mentor")},
		},
		CollectionAnnouncements: {
			{Keys: asc("status", "targetAudience")},
		},
		CollectionChats: {
			{Keys: asc("pairKey"), Options: options.Index().SetUnique(true).SetName("uniq_pair")},
			{Keys: asc("participants", "lastMessageAt")},
		},
	}
}
