package dto

import (
	"time"

	"github.com/apexti/apex-go-api/internal/models"
)

// ChatSendRequest is the payload clients push over the websocket.
type ChatSendRequest struct {
	RoomID     string `json:"room_id" validate:"required,max=128"`
	ReceiverID string `json:"receiver_id" validate:"omitempty,max=64"`
	Content    string `json:"content" validate:"required,max=4000"`
	Type       string `json:"type" validate:"omitempty,oneof=text file system"`
}

// ChatHistoryQuery filters the chat history endpoint.
type ChatHistoryQuery struct {
	RoomID string     `query:"room_id" validate:"required,max=128"`
	Before *time.Time `query:"before"`
	Limit  int        `query:"limit" validate:"omitempty,gte=1,lte=100"`
}

// ChatMessageResponse serializes a chat message for clients.
type ChatMessageResponse struct {
	ID         uint      `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	RoomID     string    `json:"room_id"`
	Content    string    `json:"content"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewChatMessageResponse converts a ChatMessage model into a DTO.
func NewChatMessageResponse(model models.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:         model.ID,
		SenderID:   model.SenderID,
		ReceiverID: model.ReceiverID,
		RoomID:     model.RoomID,
		Content:    model.Content,
		Type:       model.Type,
		CreatedAt:  model.CreatedAt,
	}
}

// NewChatMessageResponseSlice converts chat messages into DTOs.
func NewChatMessageResponseSlice(messages []models.ChatMessage) []ChatMessageResponse {
	responses := make([]ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		responses = append(responses, NewChatMessageResponse(message))
	}

	return responses
}

// NotificationCreateRequest publishes a notification to a user.
type NotificationCreateRequest struct {
	UserID  string `json:"user_id" validate:"required,max=64"`
	Type    string `json:"type" validate:"required,max=64"`
	Message string `json:"message" validate:"required"`
}

// NotificationResponse serializes a notification for clients.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationResponse converts a Notification model into a DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Message:   model.Message,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts notifications into DTOs.
func NewNotificationResponseSlice(notifications []models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, NewNotificationResponse(notification))
	}

	return responses
}
