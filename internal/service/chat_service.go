package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type chatRepository interface {
	FindOrCreate(ctx context.Context, a, b bson.ObjectID, mentorship *bson.ObjectID, now time.Time) (*models.Chat, bool, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Chat, error)
	ListForUser(ctx context.Context, userID bson.ObjectID, page models.PageRequest) ([]models.Chat, int64, error)
	Messages(ctx context.Context, id bson.ObjectID, page models.PageRequest) ([]models.ChatMessage, int64, error)
	AppendMessage(ctx context.Context, id bson.ObjectID, msg models.ChatMessage, recipient bson.ObjectID) (*models.Chat, error)
	MarkRead(ctx context.Context, id, userID bson.ObjectID, at time.Time) (*models.Chat, error)
}

type activeMentorships interface {
	FindActive(ctx context.Context, mentor, mentee bson.ObjectID) (*models.Mentorship, error)
}

// ChatService persists mentor/mentee conversations and fans new messages
// and read receipts out to the realtime channel. The websocket handler and
// the HTTP routes share it, so both paths emit identical events.
type ChatService struct {
	repo        chatRepository
	users       memberDirectory
	mentorships activeMentorships
	events      realtime.Broadcaster
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

var _ realtime.ChatGateway = (*ChatService)(nil)

func NewChatService(repo chatRepository, users memberDirectory, mentorships activeMentorships, events realtime.Broadcaster, validate *validator.Validate, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if events == nil {
		events = realtime.Nop{}
	}
	return &ChatService{
		repo:        repo,
		users:       users,
		mentorships: mentorships,
		events:      events,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// List returns the caller's conversations, most recent first.
func (s *ChatService) List(ctx context.Context, actor *models.JWTClaims, page models.PageRequest) ([]models.Chat, *models.Pagination, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, nil, err
	}
	chats, total, err := s.repo.ListForUser(ctx, userID, page)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list chats")
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	return chats, page.Paginate(total), nil
}

// Start returns the conversation with a counterpart, creating it on first
// use. Outside of administrators, the pair needs an accepted mentorship.
func (s *ChatService) Start(ctx context.Context, actor *models.JWTClaims, req dto.StartChatRequest) (*models.Chat, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "chat")
	}
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	otherID, err := parseID(req.ParticipantID, "participant")
	if err != nil {
		return nil, err
	}
	if otherID == userID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot start a chat with yourself")
	}
	if _, err := s.users.FindByID(ctx, otherID); err != nil {
		return nil, lookupError(err, "participant not found", "failed to load participant")
	}

	var mentorship *bson.ObjectID
	m, err := s.acceptedMentorship(ctx, userID, otherID)
	switch {
	case err != nil:
		return nil, err
	case m != nil:
		mentorship = &m.ID
	case !actor.IsAdmin():
		return nil, appErrors.Clone(appErrors.ErrForbidden, "an accepted mentorship is required to chat")
	}

	chat, created, err := s.repo.FindOrCreate(ctx, userID, otherID, mentorship, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open chat")
	}
	if created {
		s.logger.Info("chat opened", zap.String("chat_id", chat.ID.Hex()))
	}
	return chat, nil
}

// acceptedMentorship looks the pair up in both directions.
func (s *ChatService) acceptedMentorship(ctx context.Context, a, b bson.ObjectID) (*models.Mentorship, error) {
	for _, pair := range [][2]bson.ObjectID{{a, b}, {b, a}} {
		m, err := s.mentorships.FindActive(ctx, pair[0], pair[1])
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentorship")
		}
		if m.Status == models.MentorshipAccepted {
			return m, nil
		}
	}
	return nil, nil
}

// Messages returns a page of the conversation in send order.
func (s *ChatService) Messages(ctx context.Context, actor *models.JWTClaims, id string, page models.PageRequest) (*models.ChatMessagePage, *models.Pagination, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, nil, err
	}
	chat, err := s.participantChat(ctx, id, userID, actor.IsAdmin())
	if err != nil {
		return nil, nil, err
	}
	msgs, total, err := s.repo.Messages(ctx, chat.ID, page)
	if err != nil {
		return nil, nil, lookupError(err, "chat not found", "failed to load messages")
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return &models.ChatMessagePage{ChatID: chat.ID.Hex(), Messages: msgs}, page.Paginate(total), nil
}

// Send stores a message from the caller.
func (s *ChatService) Send(ctx context.Context, actor *models.JWTClaims, id string, req dto.SendMessageRequest) (*dto.ChatMessageView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "message")
	}
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, id, userID, req.Content)
}

// Read clears the caller's unread counter and tells the other participant.
func (s *ChatService) Read(ctx context.Context, actor *models.JWTClaims, id string) (*models.Chat, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	return s.markRead(ctx, id, userID)
}

// AuthorizeParticipant lets a websocket client join the chat room.
func (s *ChatService) AuthorizeParticipant(ctx context.Context, chatID, userID string) error {
	uid, err := parseID(userID, "user")
	if err != nil {
		return err
	}
	_, err = s.participantChat(ctx, chatID, uid, false)
	return err
}

// SendMessage persists a message sent over the websocket.
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID, content string) error {
	if err := s.validator.Struct(dto.SendMessageRequest{Content: content}); err != nil {
		return validationError(err, "message")
	}
	uid, err := parseID(senderID, "user")
	if err != nil {
		return err
	}
	_, err = s.send(ctx, chatID, uid, content)
	return err
}

// MarkRead handles read receipts sent over the websocket.
func (s *ChatService) MarkRead(ctx context.Context, chatID, userID string) error {
	uid, err := parseID(userID, "user")
	if err != nil {
		return err
	}
	_, err = s.markRead(ctx, chatID, uid)
	return err
}

func (s *ChatService) send(ctx context.Context, id string, senderID bson.ObjectID, content string) (*dto.ChatMessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message content is required")
	}
	chat, err := s.participantChat(ctx, id, senderID, false)
	if err != nil {
		return nil, err
	}
	recipient := chat.Other(senderID)

	msg := models.ChatMessage{ID: bson.NewObjectID(), Sender: senderID, Content: content, CreatedAt: s.now()}
	if _, err := s.repo.AppendMessage(ctx, chat.ID, msg, recipient); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this chat")
		}
		return nil, writeError(err, "chat not found", "failed to send message")
	}

	view := &dto.ChatMessageView{ChatMessage: msg}
	if sender, err := s.users.FindByID(ctx, senderID); err == nil {
		view.SenderName = sender.FullName()
	} else {
		s.logger.Warn("failed to resolve message sender", zap.String("user_id", senderID.Hex()), zap.Error(err))
	}

	evt := realtime.ToChat(realtime.EventNewMessage, chat.ID.Hex(), dto.NewMessageEvent{ChatID: chat.ID.Hex(), Message: view}, senderID.Hex())
	evt.Rooms = append(evt.Rooms, realtime.UserRoom(recipient.Hex()))
	s.events.Publish(evt)
	return view, nil
}

func (s *ChatService) markRead(ctx context.Context, id string, userID bson.ObjectID) (*models.Chat, error) {
	chatID, err := parseID(id, "chat")
	if err != nil {
		return nil, err
	}
	chat, err := s.repo.MarkRead(ctx, chatID, userID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this chat")
		}
		return nil, writeError(err, "chat not found", "failed to mark chat read")
	}
	s.events.Publish(realtime.ToChat(realtime.EventMessagesRead, chatID.Hex(), dto.MessagesReadEvent{
		ChatID: chatID.Hex(),
		UserID: userID.Hex(),
	}, userID.Hex()))
	return chat, nil
}

func (s *ChatService) participantChat(ctx context.Context, id string, userID bson.ObjectID, allowAdmin bool) (*models.Chat, error) {
	chatID, err := parseID(id, "chat")
	if err != nil {
		return nil, err
	}
	chat, err := s.repo.FindByID(ctx, chatID)
	if err != nil {
		return nil, lookupError(err, "chat not found", "failed to load chat")
	}
	if !allowAdmin && !chat.HasParticipant(userID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this chat")
	}
	return chat, nil
}
