package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
	authsvc "github.com/andkapach/amora/internal/services/auth"
	chatsvc "github.com/andkapach/amora/internal/services/chat"
	"github.com/andkapach/amora/internal/transport/http/dto"
	httperrors "github.com/andkapach/amora/internal/transport/http/errors"
)

const (
	conversationsPageSize  = 50
	defaultMessagePageSize = 50
	maxMessagePageSize     = 100
)

type ChatHandler struct {
	service *chatsvc.Service
}

func NewChatHandler(service *chatsvc.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	msg, err := h.service.Send(r.Context(), identity.UserID, req.ToID, req.Text)
	if err != nil {
		handleChatError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, messageToDTO(msg))
}

func (h *ChatHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	records, err := h.service.Conversations(r.Context(), identity.UserID, conversationsPageSize)
	if err != nil {
		handleChatError(w, err)
		return
	}

	conversations := make([]dto.ConversationResponse, 0, len(records))
	for _, record := range records {
		conversations = append(conversations, dto.ConversationResponse{
			ID:            record.ID,
			UserAID:       record.UserAID,
			UserBID:       record.UserBID,
			LastMessage:   record.LastMessage,
			LastMessageAt: record.LastMessageAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.ConversationsResponse{Conversations: conversations})
}

func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	conversationID := chi.URLParam(r, "conversationID")

	before := time.Time{}
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeBadRequest(w, "INVALID_REQUEST", "invalid before timestamp")
			return
		}
		before = parsed
	}

	limit := defaultMessagePageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "INVALID_REQUEST", "invalid limit")
			return
		}
		if parsed > maxMessagePageSize {
			parsed = maxMessagePageSize
		}
		limit = parsed
	}

	records, err := h.service.Messages(r.Context(), identity.UserID, conversationID, before, limit)
	if err != nil {
		handleChatError(w, err)
		return
	}

	messages := make([]dto.MessageResponse, 0, len(records))
	for _, record := range records {
		messages = append(messages, messageToDTO(record))
	}

	httperrors.Write(w, http.StatusOK, dto.MessagesResponse{Messages: messages})
}

func messageToDTO(record pgrepo.MessageRecord) dto.MessageResponse {
	return dto.MessageResponse{
		ID:             record.ID,
		ConversationID: record.ConversationID,
		SenderID:       record.SenderID,
		Text:           record.Text,
		GiftID:         record.GiftID,
		CreatedAt:      record.CreatedAt,
	}
}

func handleChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, chatsvc.ErrNotMatched):
		writeForbidden(w, "NOT_MATCHED", "users are not matched")
	case errors.Is(err, chatsvc.ErrBlocked):
		writeForbidden(w, "BLOCKED", "pair is blocked")
	case errors.Is(err, chatsvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "not a conversation participant")
	case errors.Is(err, chatsvc.ErrNotFound):
		writeNotFound(w, "CONVERSATION_NOT_FOUND", "conversation not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
