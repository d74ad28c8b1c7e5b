package realtime

import (
	"strconv"

	"github.com/noah-isme/alumni-connect-api/pkg/database"
)

// Operation is the kind of entity change carried by an event.
type Operation string

const (
	OpCreated  Operation = "created"
	OpUpdated  Operation = "updated"
	OpReplaced Operation = "replaced"
	OpDeleted  Operation = "deleted"
)

// Source records which path produced an event.
type Source string

const (
	SourceHooks        Source = "hooks"
	SourceChangeStream Source = "changestream"
	SourceRelay        Source = "relay"
	SourceDirect       Source = "direct"
)

// Chat and notification event names.
const (
	EventNewMessage         = "new-message"
	EventUserTyping         = "user-typing"
	EventUserStopTyping     = "user-stop-typing"
	EventMessagesRead       = "messages-read"
	EventChatJoined         = "chat-joined"
	EventError              = "error"
	EventMentorshipRequest  = "mentorship:request"
	EventMentorshipResponse = "mentorship:response"
	EventProgramRequest     = "mentorship-program:request"
	EventProgramResponse    = "mentorship-program:response"
	EventAccountApproved    = "account:approved"
)

// Client originated frame names.
const (
	ClientJoinChat    = "join-chat"
	ClientLeaveChat   = "leave-chat"
	ClientSendMessage = "send-message"
	ClientTypingStart = "typing-start"
	ClientTypingStop  = "typing-stop"
	ClientMarkRead    = "mark-read"
)

// Entity names one watched collection and the event prefix used for it.
type Entity struct {
	Name       string
	Singular   string
	Collection string
}

var (
	EntityUsers              = Entity{Name: "users", Singular: "user", Collection: database.CollectionUsers}
	EntityJobs               = Entity{Name: "jobs", Singular: "job", Collection: database.CollectionJobs}
	EntityWorkshops          = Entity{Name: "workshops", Singular: "workshop", Collection: database.CollectionWorkshops}
	EntityBlogs              = Entity{Name: "blogs", Singular: "blog", Collection: database.CollectionBlogs}
	EntityFeedback           = Entity{Name: "feedback", Singular: "feedback", Collection: database.CollectionFeedback}
	EntityMentorships        = Entity{Name: "mentorships", Singular: "mentorship", Collection: database.CollectionMentorships}
	EntityMentorshipPrograms = Entity{Name: "mentorship-programs", Singular: "mentorshipProgram", Collection: database.CollectionMentorshipPrograms}
	EntityAnnouncements      = Entity{Name: "announcements", Singular: "announcement", Collection: database.CollectionAnnouncements}
	EntityChats              = Entity{Name: "chats", Singular: "chat", Collection: database.CollectionChats}
)

// Entities lists every watched entity.
func Entities() []Entity {
	return []Entity{
		EntityUsers, EntityJobs, EntityWorkshops, EntityBlogs, EntityFeedback,
		EntityMentorships, EntityMentorshipPrograms, EntityAnnouncements, EntityChats,
	}
}

// EventName builds "<entity>:<op>".
func (e Entity) EventName(op Operation) string {
	return e.Name + ":" + string(op)
}

// Event is one frame destined for connected clients. Only Name and Data reach
// the wire; the remaining fields drive routing and de-duplication.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`

	Entity  string    `json:"-"`
	DocID   string    `json:"-"`
	Version int64     `json:"-"`
	Op      Operation `json:"-"`
	// Rooms restricts delivery; empty means every connection.
	Rooms       []string `json:"-"`
	ExcludeUser string   `json:"-"`
	Source      Source   `json:"-"`
}

// UpdatePayload is the data of <entity>:updated and <entity>:replaced.
type UpdatePayload struct {
	ID            string                 `json:"_id"`
	FullDocument  interface{}            `json:"fullDocument,omitempty"`
	UpdatedFields map[string]interface{} `json:"updatedFields,omitempty"`
	RemovedFields []string               `json:"removedFields,omitempty"`
}

// DeletePayload is the data of <entity>:deleted.
type DeletePayload struct {
	ID string `json:"_id"`
}

func Created(e Entity, id string, version int64, doc interface{}, source Source) Event {
	return Event{
		Name:    e.EventName(OpCreated),
		Data:    map[string]interface{}{e.Singular: doc},
		Entity:  e.Name,
		DocID:   id,
		Version: version,
		Op:      OpCreated,
		Source:  source,
	}
}

func Updated(e Entity, id string, version int64, doc interface{}, updated map[string]interface{}, removed []string, source Source) Event {
	return Event{
		Name:    e.EventName(OpUpdated),
		Data:    UpdatePayload{ID: id, FullDocument: doc, UpdatedFields: updated, RemovedFields: removed},
		Entity:  e.Name,
		DocID:   id,
		Version: version,
		Op:      OpUpdated,
		Source:  source,
	}
}

func Replaced(e Entity, id string, version int64, doc interface{}, source Source) Event {
	return Event{
		Name:    e.EventName(OpReplaced),
		Data:    UpdatePayload{ID: id, FullDocument: doc},
		Entity:  e.Name,
		DocID:   id,
		Version: version,
		Op:      OpReplaced,
		Source:  source,
	}
}

func Deleted(e Entity, id string, source Source) Event {
	return Event{
		Name:   e.EventName(OpDeleted),
		Data:   DeletePayload{ID: id},
		Entity: e.Name,
		DocID:  id,
		Op:     OpDeleted,
		Source: source,
	}
}

// UserRoom is the private room every connection of a user joins.
func UserRoom(userID string) string {
	return "user:" + userID
}

// ChatRoom is the conversation scoped room of a chat.
func ChatRoom(chatID string) string {
	return "chat:" + chatID
}

// ToUsers addresses a direct notification to the private rooms of userIDs.
func ToUsers(name string, data interface{}, userIDs ...string) Event {
	rooms := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		rooms = append(rooms, UserRoom(id))
	}
	return Event{Name: name, Data: data, Rooms: rooms, Source: SourceDirect}
}

// ToChat addresses the conversation room of chatID, skipping excludeUser.
func ToChat(name, chatID string, data interface{}, excludeUser string) Event {
	return Event{Name: name, Data: data, Rooms: []string{ChatRoom(chatID)}, ExcludeUser: excludeUser, Source: SourceDirect}
}

// dedupKey identifies an entity change across sources. Events that are not
// entity changes return false.
func (e Event) dedupKey() (string, bool) {
	if e.Entity == "" || e.DocID == "" {
		return "", false
	}
	if e.Op == OpDeleted {
		return e.Entity + "|" + e.DocID + "|deleted", true
	}
	if e.Version <= 0 {
		return "", false
	}
	return e.Entity + "|" + e.DocID + "|" + strconv.FormatInt(e.Version, 10), true
}
