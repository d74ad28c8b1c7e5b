package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// DecodeFunc converts a stored document into the value sent to clients.
type DecodeFunc func(raw bson.Raw) (interface{}, error)

// Decoder returns a DecodeFunc that unmarshals into a fresh T.
func Decoder[T any]() DecodeFunc {
	return func(raw bson.Raw) (interface{}, error) {
		var doc T
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return &doc, nil
	}
}

// changeStream is the subset of *mongo.ChangeStream the notifier uses.
type changeStream interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx context.Context) error
}

type openFunc func(ctx context.Context, collection string) (changeStream, error)

type watchTarget struct {
	entity Entity
	decode DecodeFunc
}

// Notifier republishes change stream events of the watched collections.
// Each collection has its own watcher; failures are isolated and an
// invalidated stream is not reopened.
type Notifier struct {
	open    openFunc
	out     Broadcaster
	logger  *zap.Logger
	metrics Metrics

	mu      sync.Mutex
	targets []watchTarget
	streams map[string]changeStream
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewNotifier watches collections of db and publishes to out.
func NewNotifier(db *mongo.Database, out Broadcaster, logger *zap.Logger, metrics Metrics) *Notifier {
	open := func(ctx context.Context, collection string) (changeStream, error) {
		opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
		return db.Collection(collection).Watch(ctx, mongo.Pipeline{}, opts)
	}
	return newNotifier(open, out, logger, metrics)
}

func newNotifier(open openFunc, out Broadcaster, logger *zap.Logger, metrics Metrics) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Notifier{open: open, out: out, logger: logger, metrics: metrics, streams: make(map[string]changeStream)}
}

// Watch registers entity for the next Start.
func (n *Notifier) Watch(entity Entity, decode DecodeFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, watchTarget{entity: entity, decode: decode})
}

// Start opens one stream per registered entity and returns the number opened.
// Collections that fail to open are logged and skipped.
func (n *Notifier) Start(ctx context.Context) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	ctx, n.cancel = context.WithCancel(ctx)
	opened := 0
	for _, target := range n.targets {
		stream, err := n.open(ctx, target.entity.Collection)
		if err != nil {
			n.metrics.WatcherFailed(target.entity.Collection)
			n.logger.Error("open change stream", zap.String("collection", target.entity.Collection), zap.Error(err))
			continue
		}
		n.streams[target.entity.Collection] = stream
		opened++
		n.wg.Add(1)
		go n.watch(ctx, target, stream)
	}
	n.logger.Info("change notifier started", zap.Int("watchers", opened), zap.Int("collections", len(n.targets)))
	return opened
}

func (n *Notifier) watch(ctx context.Context, target watchTarget, stream changeStream) {
	defer n.wg.Done()
	coll := target.entity.Collection
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = stream.Close(closeCtx)
	}()

	for stream.Next(ctx) {
		var ce changeEvent
		if err := stream.Decode(&ce); err != nil {
			n.logger.Warn("decode change event", zap.String("collection", coll), zap.Error(err))
			continue
		}
		if ce.OperationType == "invalidate" {
			n.metrics.WatcherFailed(coll)
			n.logger.Error("change stream invalidated, watcher stopped", zap.String("collection", coll))
			return
		}
		evt, ok, err := toEvent(target, ce)
		if err != nil {
			n.logger.Warn("map change event", zap.String("collection", coll), zap.String("op", ce.OperationType), zap.Error(err))
			continue
		}
		if ok {
			n.out.Publish(evt)
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		n.metrics.WatcherFailed(coll)
		n.logger.Error("change stream failed, watcher stopped", zap.String("collection", coll), zap.Error(err))
	}
}

// Close stops every watcher and waits for them to release their streams.
func (n *Notifier) Close() {
	n.mu.Lock()
	cancel := n.cancel
	n.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	n.wg.Wait()
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID bson.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument      bson.Raw           `bson:"fullDocument,omitempty"`
	UpdateDescription *updateDescription `bson:"updateDescription,omitempty"`
}

type updateDescription struct {
	UpdatedFields bson.Raw `bson:"updatedFields"`
	RemovedFields []string `bson:"removedFields"`
}

type versionOnly struct {
	Version int64 `bson:"version"`
}

// toEvent maps a change event. Operations without a client event (drop,
// rename, ...) return ok=false.
func toEvent(target watchTarget, ce changeEvent) (Event, bool, error) {
	id := ce.DocumentKey.ID.Hex()
	entity := target.entity

	switch ce.OperationType {
	case "insert", "replace":
		if len(ce.FullDocument) == 0 {
			return Event{}, false, fmt.Errorf("%s without full document", ce.OperationType)
		}
		doc, err := target.decode(ce.FullDocument)
		if err != nil {
			return Event{}, false, fmt.Errorf("decode full document: %w", err)
		}
		version := documentVersion(ce.FullDocument)
		if ce.OperationType == "insert" {
			return Created(entity, id, version, doc, SourceChangeStream), true, nil
		}
		return Replaced(entity, id, version, doc, SourceChangeStream), true, nil

	case "update":
		var (
			doc     interface{}
			updated map[string]interface{}
			removed []string
			version int64
		)
		if ce.UpdateDescription != nil {
			fields, err := plainDocument(ce.UpdateDescription.UpdatedFields)
			if err != nil {
				return Event{}, false, fmt.Errorf("decode updated fields: %w", err)
			}
			updated = fields
			removed = ce.UpdateDescription.RemovedFields
			version = toInt64(fields["version"])
		}
		if len(ce.FullDocument) > 0 {
			decoded, err := target.decode(ce.FullDocument)
			if err != nil {
				return Event{}, false, fmt.Errorf("decode full document: %w", err)
			}
			doc = decoded
			if version == 0 {
				version = documentVersion(ce.FullDocument)
			}
		}
		return Updated(entity, id, version, doc, updated, removed, SourceChangeStream), true, nil

	case "delete":
		return Deleted(entity, id, SourceChangeStream), true, nil
	}
	return Event{}, false, nil
}

func documentVersion(raw bson.Raw) int64 {
	var v versionOnly
	if err := bson.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return v.Version
}

// plainDocument converts a BSON document into JSON friendly Go values.
func plainDocument(raw bson.Raw) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	out, _ := plain(d).(map[string]interface{})
	return out, nil
}

func plain(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.D:
		m := make(map[string]interface{}, len(val))
		for _, e := range val {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]interface{}, len(val))
		for k, e := range val {
			m[k] = plain(e)
		}
		return m
	case bson.A:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = plain(e)
		}
		return out
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC()
	default:
		return val
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
