package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
)

type memMessages struct {
	conversations map[string]pgrepo.ConversationRecord
	messages      []pgrepo.MessageRecord
}

func newMemMessages() *memMessages {
	return &memMessages{conversations: make(map[string]pgrepo.ConversationRecord)}
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func (m *memMessages) EnsureConversation(_ context.Context, conversationID, userA, userB string, at time.Time) (pgrepo.ConversationRecord, error) {
	key := pairKey(userA, userB)
	if existing, ok := m.conversations[key]; ok {
		return existing, nil
	}
	first, second := userA, userB
	if second < first {
		first, second = second, first
	}
	record := pgrepo.ConversationRecord{
		ID:            conversationID,
		UserAID:       first,
		UserBID:       second,
		LastMessageAt: at,
		CreatedAt:     at,
	}
	m.conversations[key] = record
	return record, nil
}

func (m *memMessages) GetConversation(_ context.Context, conversationID string) (pgrepo.ConversationRecord, error) {
	for _, record := range m.conversations {
		if record.ID == conversationID {
			return record, nil
		}
	}
	return pgrepo.ConversationRecord{}, pgrepo.ErrConversationNotFound
}

func (m *memMessages) ListConversations(_ context.Context, userID string, _ int) ([]pgrepo.ConversationRecord, error) {
	out := []pgrepo.ConversationRecord{}
	for _, record := range m.conversations {
		if record.UserAID == userID || record.UserBID == userID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (m *memMessages) InsertMessage(_ context.Context, msg pgrepo.MessageRecord) error {
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memMessages) ListMessages(_ context.Context, conversationID string, _ time.Time, _ int) ([]pgrepo.MessageRecord, error) {
	out := []pgrepo.MessageRecord{}
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type matchCheckerStub struct {
	matched bool
}

func (s matchCheckerStub) Exists(context.Context, string, string) (bool, error) {
	return s.matched, nil
}

type blockCheckerStub struct {
	blocked bool
}

func (s blockCheckerStub) IsBlockedEitherWay(context.Context, string, string) (bool, error) {
	return s.blocked, nil
}

func newChatForTest(matched, blocked bool) (*Service, *memMessages) {
	store := newMemMessages()
	svc := NewService(Dependencies{
		Messages: store,
		Matches:  matchCheckerStub{matched: matched},
		Blocks:   blockCheckerStub{blocked: blocked},
	})
	return svc, store
}

func TestSendRequiresMatch(t *testing.T) {
	svc, _ := newChatForTest(false, false)
	if _, err := svc.Send(context.Background(), "u1", "u2", "hi"); !errors.Is(err, ErrNotMatched) {
		t.Fatalf("want ErrNotMatched, got %v", err)
	}
}

func TestSendRefusesBlockedPair(t *testing.T) {
	svc, _ := newChatForTest(true, true)
	if _, err := svc.Send(context.Background(), "u1", "u2", "hi"); !errors.Is(err, ErrBlocked) {
		t.Fatalf("want ErrBlocked, got %v", err)
	}
}

func TestSendValidation(t *testing.T) {
	svc, _ := newChatForTest(true, false)
	ctx := context.Background()

	if _, err := svc.Send(ctx, "u1", "u1", "hi"); !errors.Is(err, ErrValidation) {
		t.Fatalf("self chat should fail validation, got %v", err)
	}
	if _, err := svc.Send(ctx, "u1", "u2", "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank text should fail validation, got %v", err)
	}
	if _, err := svc.Send(ctx, "u1", "u2", strings.Repeat("a", maxMessageLen+1)); !errors.Is(err, ErrValidation) {
		t.Fatalf("oversized text should fail validation, got %v", err)
	}
}

func TestSendCreatesConversationOnce(t *testing.T) {
	svc, store := newChatForTest(true, false)
	ctx := context.Background()

	first, err := svc.Send(ctx, "u1", "u2", "hello")
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	second, err := svc.Send(ctx, "u2", "u1", "hello back")
	if err != nil {
		t.Fatalf("second send: %v", err)
	}

	if first.ConversationID != second.ConversationID {
		t.Fatalf("both directions must share one conversation: %q vs %q", first.ConversationID, second.ConversationID)
	}
	if len(store.conversations) != 1 {
		t.Fatalf("conversations = %d, want 1", len(store.conversations))
	}
	if len(store.messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(store.messages))
	}
}

func TestMessagesRequireParticipant(t *testing.T) {
	svc, _ := newChatForTest(true, false)
	ctx := context.Background()

	sent, err := svc.Send(ctx, "u1", "u2", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if _, err := svc.Messages(ctx, "intruder", sent.ConversationID, time.Time{}, 50); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-participant should be forbidden, got %v", err)
	}

	msgs, err := svc.Messages(ctx, "u2", sent.ConversationID, time.Time{}, 50)
	if err != nil {
		t.Fatalf("participant read: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "hello" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestMessagesUnknownConversation(t *testing.T) {
	svc, _ := newChatForTest(true, false)
	if _, err := svc.Messages(context.Background(), "u1", "missing", time.Time{}, 50); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
