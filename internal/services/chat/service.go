package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
)

const maxMessageLen = 2000

var (
	ErrValidation = errors.New("validation error")
	ErrNotMatched = errors.New("users are not matched")
	ErrBlocked    = errors.New("pair is blocked")
	ErrForbidden  = errors.New("not a conversation participant")
	ErrNotFound   = errors.New("conversation not found")
)

type MessageStore interface {
	EnsureConversation(ctx context.Context, conversationID, userA, userB string, at time.Time) (pgrepo.ConversationRecord, error)
	GetConversation(ctx context.Context, conversationID string) (pgrepo.ConversationRecord, error)
	ListConversations(ctx context.Context, userID string, limit int) ([]pgrepo.ConversationRecord, error)
	InsertMessage(ctx context.Context, msg pgrepo.MessageRecord) error
	ListMessages(ctx context.Context, conversationID string, before time.Time, limit int) ([]pgrepo.MessageRecord, error)
}

type MatchChecker interface {
	Exists(ctx context.Context, a, b string) (bool, error)
}

type BlockChecker interface {
	IsBlockedEitherWay(ctx context.Context, a, b string) (bool, error)
}

type Dependencies struct {
	Messages MessageStore
	Matches  MatchChecker
	Blocks   BlockChecker
}

type Service struct {
	messages MessageStore
	matches  MatchChecker
	blocks   BlockChecker
	now      func() time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{
		messages: deps.Messages,
		matches:  deps.Matches,
		blocks:   deps.Blocks,
		now:      time.Now,
	}
}

// Send persists a message from one user to another, creating the
// conversation on first contact. Only matched, unblocked pairs may
// talk.
func (s *Service) Send(ctx context.Context, fromID, toID, text string) (pgrepo.MessageRecord, error) {
	if strings.TrimSpace(fromID) == "" || strings.TrimSpace(toID) == "" || fromID == toID {
		return pgrepo.MessageRecord{}, ErrValidation
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || len(trimmed) > maxMessageLen {
		return pgrepo.MessageRecord{}, ErrValidation
	}
	if s.messages == nil {
		return pgrepo.MessageRecord{}, fmt.Errorf("chat dependencies are not configured")
	}

	if err := s.ensurePairCanTalk(ctx, fromID, toID); err != nil {
		return pgrepo.MessageRecord{}, err
	}

	now := s.now().UTC()
	conversation, err := s.messages.EnsureConversation(ctx, uuid.NewString(), fromID, toID, now)
	if err != nil {
		return pgrepo.MessageRecord{}, fmt.Errorf("ensure conversation: %w", err)
	}

	msg := pgrepo.MessageRecord{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		SenderID:       fromID,
		Text:           trimmed,
		CreatedAt:      now,
	}
	if err := s.messages.InsertMessage(ctx, msg); err != nil {
		return pgrepo.MessageRecord{}, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}

// SendGiftMessage drops a gift marker into the conversation. Callers
// are expected to have already settled the gift transfer.
func (s *Service) SendGiftMessage(ctx context.Context, fromID, toID, giftID, note string) error {
	if strings.TrimSpace(fromID) == "" || strings.TrimSpace(toID) == "" || strings.TrimSpace(giftID) == "" {
		return ErrValidation
	}
	if s.messages == nil {
		return fmt.Errorf("chat dependencies are not configured")
	}

	now := s.now().UTC()
	conversation, err := s.messages.EnsureConversation(ctx, uuid.NewString(), fromID, toID, now)
	if err != nil {
		return fmt.Errorf("ensure conversation: %w", err)
	}

	msg := pgrepo.MessageRecord{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		SenderID:       fromID,
		Text:           strings.TrimSpace(note),
		GiftID:         giftID,
		CreatedAt:      now,
	}
	if err := s.messages.InsertMessage(ctx, msg); err != nil {
		return fmt.Errorf("insert gift message: %w", err)
	}

	return nil
}

func (s *Service) Conversations(ctx context.Context, userID string, limit int) ([]pgrepo.ConversationRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrValidation
	}
	if s.messages == nil {
		return []pgrepo.ConversationRecord{}, nil
	}

	items, err := s.messages.ListConversations(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return items, nil
}

// Messages returns a page of a conversation's history, newest first.
// The caller must be one of the two participants.
func (s *Service) Messages(ctx context.Context, userID, conversationID string, before time.Time, limit int) ([]pgrepo.MessageRecord, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(conversationID) == "" {
		return nil, ErrValidation
	}
	if s.messages == nil {
		return []pgrepo.MessageRecord{}, nil
	}

	conversation, err := s.messages.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrConversationNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conversation.UserAID != userID && conversation.UserBID != userID {
		return nil, ErrForbidden
	}

	items, err := s.messages.ListMessages(ctx, conversationID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return items, nil
}

func (s *Service) ensurePairCanTalk(ctx context.Context, a, b string) error {
	if s.blocks != nil {
		blocked, err := s.blocks.IsBlockedEitherWay(ctx, a, b)
		if err != nil {
			return fmt.Errorf("check block relation: %w", err)
		}
		if blocked {
			return ErrBlocked
		}
	}

	if s.matches != nil {
		matched, err := s.matches.Exists(ctx, a, b)
		if err != nil {
			return fmt.Errorf("check match: %w", err)
		}
		if !matched {
			return ErrNotMatched
		}
	}

	return nil
}
