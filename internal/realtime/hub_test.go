package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(h *Hub, userID string, buffer int) *Client {
	return newClient(h, nil, nil, Identity{UserID: userID}, ClientOptions{SendBuffer: buffer}, zap.NewNop())
}

func drain(c *Client) []Event {
	var out []Event
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return out
			}
			var evt struct {
				Name string          `json:"event"`
				Data json.RawMessage `json:"data"`
			}
			_ = json.Unmarshal(frame, &evt)
			out = append(out, Event{Name: evt.Name, Data: evt.Data})
		default:
			return out
		}
	}
}

func TestHubBroadcastAndRooms(t *testing.T) {
	h := NewHub(HubOptions{})
	alice := testClient(h, "alice", 8)
	bob := testClient(h, "bob", 8)
	h.Register(alice)
	h.Register(bob)

	h.Publish(Created(EntityJobs, "j1", 1, map[string]string{"title": "Go dev"}, SourceHooks))
	assert.Len(t, drain(alice), 1)
	assert.Len(t, drain(bob), 1)

	h.Publish(ToUsers(EventMentorshipRequest, map[string]string{"id": "m1"}, "bob"))
	assert.Empty(t, drain(alice))
	got := drain(bob)
	require.Len(t, got, 1)
	assert.Equal(t, EventMentorshipRequest, got[0].Name)

	h.Join(alice, ChatRoom("c1"))
	h.Join(bob, ChatRoom("c1"))
	h.Publish(ToChat(EventUserTyping, "c1", nil, "alice"))
	assert.Empty(t, drain(alice))
	assert.Len(t, drain(bob), 1)

	h.Leave(bob, ChatRoom("c1"))
	h.Publish(ToChat(EventMessagesRead, "c1", nil, ""))
	assert.Len(t, drain(alice), 1)
	assert.Empty(t, drain(bob))
}

func TestHubDeliversOncePerClientAcrossRooms(t *testing.T) {
	h := NewHub(HubOptions{})
	bob := testClient(h, "bob", 8)
	h.Register(bob)
	h.Join(bob, ChatRoom("c1"))

	evt := ToChat(EventNewMessage, "c1", nil, "")
	evt.Rooms = append(evt.Rooms, UserRoom("bob"))
	h.Publish(evt)

	assert.Len(t, drain(bob), 1)
}

func TestHubDedupByVersion(t *testing.T) {
	h := NewHub(HubOptions{Dedup: true})
	c := testClient(h, "u", 8)
	h.Register(c)

	h.Publish(Updated(EntityJobs, "j1", 2, nil, nil, nil, SourceHooks))
	h.Publish(Replaced(EntityJobs, "j1", 2, nil, SourceChangeStream))
	h.Publish(Updated(EntityJobs, "j1", 3, nil, nil, nil, SourceChangeStream))
	h.Publish(Deleted(EntityJobs, "j1", SourceHooks))
	h.Publish(Deleted(EntityJobs, "j1", SourceChangeStream))

	assert.Len(t, drain(c), 3)
	assert.EqualValues(t, 2, h.Stats().Duplicates)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub(HubOptions{})
	c := testClient(h, "u", 1)
	h.Register(c)

	h.Publish(ToUsers("a", nil, "u"))
	h.Publish(ToUsers("b", nil, "u"))

	assert.Len(t, drain(c), 1)
	assert.EqualValues(t, 1, h.Stats().Dropped)
}

func TestHubUnregisterTearsDownRooms(t *testing.T) {
	h := NewHub(HubOptions{})
	c := testClient(h, "u", 4)
	h.Register(c)
	h.Join(c, ChatRoom("c1"))
	require.Equal(t, 1, h.ClientCount())

	h.Unregister(c)
	assert.Equal(t, 0, h.ClientCount())
	assert.False(t, h.InRoom(c, ChatRoom("c1")))
	assert.False(t, c.enqueue([]byte("x")))

	h.Unregister(c)
}

func TestHubForwardsOnlyLocalEvents(t *testing.T) {
	h := NewHub(HubOptions{})
	var forwarded []string
	h.SetForwarder(func(evt Event) { forwarded = append(forwarded, evt.Name) })

	h.Publish(ToUsers("local", nil, "u"))
	h.Deliver(ToUsers("remote", nil, "u"))

	assert.Equal(t, []string{"local"}, forwarded)
}

func TestEventPayloadShapes(t *testing.T) {
	created := Created(EntityMentorshipPrograms, "p1", 1, map[string]int{"maxMentees": 3}, SourceHooks)
	assert.Equal(t, "mentorship-programs:created", created.Name)
	assert.Contains(t, created.Data, "mentorshipProgram")

	raw, err := json.Marshal(Deleted(EntityUsers, "u1", SourceHooks))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"users:deleted","data":{"_id":"u1"}}`, string(raw))

	raw, err = json.Marshal(Updated(EntityBlogs, "b1", 4, nil, map[string]interface{}{"title": "x"}, nil, SourceChangeStream))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"blogs:updated","data":{"_id":"b1","updatedFields":{"title":"x"}}}`, string(raw))
}

func TestRecorderAndEmitter(t *testing.T) {
	rec := &Recorder{}
	em := NewEntityEmitter(EntityWorkshops, rec)
	em.Created("w1", 1, nil)
	em.Updated("w1", 2, nil)
	em.Deleted("w1")

	assert.Equal(t, []string{"workshops:created", "workshops:updated", "workshops:deleted"}, rec.Names())
	assert.Equal(t, SourceHooks, rec.Events()[0].Source)
	rec.Reset()
	assert.Empty(t, rec.Events())

	NewEntityEmitter(EntityWorkshops, nil).Created("w1", 1, nil)
}

func TestHubNewMessageSkipsSender(t *testing.T) {
	h := NewHub(HubOptions{})
	alice := testClient(h, "alice", 8)
	bob := testClient(h, "bob", 8)
	h.Register(alice)
	h.Register(bob)
	h.Join(alice, ChatRoom("c1"))
	h.Join(bob, ChatRoom("c1"))

	evt := ToChat(EventNewMessage, "c1", nil, "alice")
	evt.Rooms = append(evt.Rooms, UserRoom("bob"))
	h.Publish(evt)

	assert.Empty(t, drain(alice))
	assert.Len(t, drain(bob), 1)
}
