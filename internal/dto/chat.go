package dto

import "github.com/noah-isme/alumni-connect-api/internal/models"

// StartChatRequest opens (or reopens) the conversation with a counterpart.
type StartChatRequest struct {
	ParticipantID string `json:"participantId" validate:"required,len=24,hexadecimal"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// NewMessageEvent is the payload of new-message events.
type NewMessageEvent struct {
	ChatID  string      `json:"chatId"`
	Message interface{} `json:"message"`
}

// MessagesReadEvent is the payload of messages-read events.
type MessagesReadEvent struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// ChatMessageView is a stored message with the sender's display name.
type ChatMessageView struct {
	models.ChatMessage
	SenderName string `json:"senderName"`
}
