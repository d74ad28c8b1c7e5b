package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

type stubDoc struct {
	ID      bson.ObjectID `bson:"_id"`
	Title   string        `bson:"title"`
	Version int64         `bson:"version"`
}

type fakeStream struct {
	mu     sync.Mutex
	events []changeEvent
	err    error
	closed bool
}

func (s *fakeStream) Next(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return false
	}
	return true
}

func (s *fakeStream) Decode(val interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.events[0]
	s.events = s.events[1:]
	*(val.(*changeEvent)) = ev
	return nil
}

func (s *fakeStream) Err() error { return s.err }

func (s *fakeStream) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func rawDoc(t *testing.T, doc interface{}) bson.Raw {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func target() watchTarget {
	return watchTarget{entity: EntityJobs, decode: Decoder[stubDoc]()}
}

func TestToEventInsertAndReplace(t *testing.T) {
	id := bson.NewObjectID()
	ce := changeEvent{OperationType: "insert", FullDocument: rawDoc(t, stubDoc{ID: id, Title: "Go", Version: 1})}
	ce.DocumentKey.ID = id

	evt, ok, err := toEvent(target(), ce)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "jobs:created", evt.Name)
	assert.EqualValues(t, 1, evt.Version)
	doc := evt.Data.(map[string]interface{})["job"].(*stubDoc)
	assert.Equal(t, "Go", doc.Title)

	ce.OperationType = "replace"
	ce.FullDocument = rawDoc(t, stubDoc{ID: id, Title: "Rust", Version: 5})
	evt, ok, err = toEvent(target(), ce)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "jobs:replaced", evt.Name)
	assert.EqualValues(t, 5, evt.Version)
}

func TestToEventUpdateCarriesDelta(t *testing.T) {
	id := bson.NewObjectID()
	when := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ce := changeEvent{
		OperationType: "update",
		UpdateDescription: &updateDescription{
			UpdatedFields: rawDoc(t, bson.D{
				{Key: "title", Value: "Senior Go"},
				{Key: "version", Value: int64(3)},
				{Key: "updatedAt", Value: when},
				{Key: "applicants", Value: bson.A{bson.D{{Key: "user", Value: id}}}},
			}),
			RemovedFields: []string{"salary"},
		},
	}
	ce.DocumentKey.ID = id

	evt, ok, err := toEvent(target(), ce)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "jobs:updated", evt.Name)
	assert.EqualValues(t, 3, evt.Version)

	payload := evt.Data.(UpdatePayload)
	assert.Equal(t, id.Hex(), payload.ID)
	assert.Nil(t, payload.FullDocument)
	assert.Equal(t, "Senior Go", payload.UpdatedFields["title"])
	assert.Equal(t, when, payload.UpdatedFields["updatedAt"])
	applicants := payload.UpdatedFields["applicants"].([]interface{})
	assert.Equal(t, id.Hex(), applicants[0].(map[string]interface{})["user"])
	assert.Equal(t, []string{"salary"}, payload.RemovedFields)
}

func TestToEventDeleteAndIgnoredOps(t *testing.T) {
	id := bson.NewObjectID()
	ce := changeEvent{OperationType: "delete"}
	ce.DocumentKey.ID = id

	evt, ok, err := toEvent(target(), ce)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, DeletePayload{ID: id.Hex()}, evt.Data)

	_, ok, err = toEvent(target(), changeEvent{OperationType: "drop"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = toEvent(target(), changeEvent{OperationType: "insert"})
	assert.Error(t, err)
}

type countingMetrics struct {
	nopMetrics
	mu       sync.Mutex
	failures []string
}

func (m *countingMetrics) WatcherFailed(collection string) {
	m.mu.Lock()
	m.failures = append(m.failures, collection)
	m.mu.Unlock()
}

func (m *countingMetrics) failed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.failures...)
}

func TestNotifierIsolatesFailuresAndStopsOnInvalidate(t *testing.T) {
	jobID := bson.NewObjectID()
	insert := changeEvent{OperationType: "insert", FullDocument: rawDoc(t, stubDoc{ID: jobID, Version: 1})}
	insert.DocumentKey.ID = jobID
	afterInvalidate := changeEvent{OperationType: "delete"}
	afterInvalidate.DocumentKey.ID = jobID

	jobsStream := &fakeStream{events: []changeEvent{insert, {OperationType: "invalidate"}, afterInvalidate}}
	usersStream := &fakeStream{err: errors.New("cursor killed")}

	open := func(ctx context.Context, collection string) (changeStream, error) {
		switch collection {
		case EntityJobs.Collection:
			return jobsStream, nil
		case EntityUsers.Collection:
			return usersStream, nil
		}
		return nil, errors.New("not a replica set")
	}

	rec := &Recorder{}
	metrics := &countingMetrics{}
	n := newNotifier(open, rec, zap.NewNop(), metrics)
	n.Watch(EntityJobs, Decoder[stubDoc]())
	n.Watch(EntityUsers, Decoder[stubDoc]())
	n.Watch(EntityBlogs, Decoder[stubDoc]())

	opened := n.Start(context.Background())
	assert.Equal(t, 2, opened)

	require.Eventually(t, func() bool { return jobsStream.isClosed() && usersStream.isClosed() }, time.Second, 5*time.Millisecond)
	n.Close()

	assert.Equal(t, []string{"jobs:created"}, rec.Names())
	assert.ElementsMatch(t, []string{EntityBlogs.Collection, EntityJobs.Collection, EntityUsers.Collection}, metrics.failed())
}
