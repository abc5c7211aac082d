package dto

import "time"

type LikeRequest struct {
	TargetID string `json:"target_id"`
}

type LikeResponse struct {
	Matched bool   `json:"matched"`
	MatchID string `json:"match_id,omitempty"`
}

type UnmatchRequest struct {
	TargetID string `json:"target_id"`
}

type SendMessageRequest struct {
	ToID string `json:"to_id"`
	Text string `json:"text"`
}

type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	GiftID         string    `json:"gift_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationResponse struct {
	ID            string    `json:"id"`
	UserAID       string    `json:"user_a_id"`
	UserBID       string    `json:"user_b_id"`
	LastMessage   string    `json:"last_message,omitempty"`
	LastMessageAt time.Time `json:"last_message_at"`
}

type MessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type ConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}
