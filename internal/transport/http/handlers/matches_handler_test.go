package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
	authsvc "github.com/andkapach/amora/internal/services/auth"
	matchsvc "github.com/andkapach/amora/internal/services/matches"
)

func TestMatchesListMapsRecords(t *testing.T) {
	createdAt := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)
	svc := matchsvc.NewService(matchsvc.Dependencies{
		Matches: matchStoreStub{records: []pgrepo.MatchRecord{
			{
				ID:          "m-1",
				TargetID:    "user-2",
				DisplayName: "Alena",
				Age:         27,
				City:        "Minsk",
				CreatedAt:   createdAt,
			},
		}},
	})
	h := NewMatchesHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/matches", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: "user-1",
		SID:    "sid-1",
	}))

	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload []struct {
		ID          string `json:"id"`
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
		Age         int    `json:"age"`
		City        string `json:"city"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload) != 1 {
		t.Fatalf("unexpected match count: got %d want 1", len(payload))
	}
	if payload[0].ID != "m-1" || payload[0].UserID != "user-2" || payload[0].DisplayName != "Alena" {
		t.Fatalf("unexpected match payload: %+v", payload[0])
	}
}

func TestMatchesLikeRequiresIdentity(t *testing.T) {
	svc := matchsvc.NewService(matchsvc.Dependencies{})
	h := NewMatchesHandler(svc)

	body, err := json.Marshal(map[string]any{"target_id": "user-2"})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/likes", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Like(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestMatchesLikeRejectsBlockedPair(t *testing.T) {
	svc := matchsvc.NewService(matchsvc.Dependencies{
		Blocks: blockCheckStub{blocked: true},
	})
	h := NewMatchesHandler(svc)

	body, err := json.Marshal(map[string]any{"target_id": "user-2"})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/likes", bytes.NewReader(body))
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: "user-1",
		SID:    "sid-1",
	}))

	rr := httptest.NewRecorder()
	h.Like(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "BLOCKED" {
		t.Fatalf("unexpected error code: got %q want %q", payload.Code, "BLOCKED")
	}
}

type matchStoreStub struct {
	records []pgrepo.MatchRecord
}

func (s matchStoreStub) Create(context.Context, pgx.Tx, string, string, string, time.Time) error {
	return nil
}

func (s matchStoreStub) ListForUser(context.Context, string, int) ([]pgrepo.MatchRecord, error) {
	return s.records, nil
}

func (s matchStoreStub) Exists(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s matchStoreStub) DeleteByUsers(context.Context, pgx.Tx, string, string) (bool, error) {
	return false, nil
}

type blockCheckStub struct {
	blocked bool
}

func (s blockCheckStub) IsBlockedEitherWay(context.Context, string, string) (bool, error) {
	return s.blocked, nil
}

func (s blockCheckStub) BlockTx(context.Context, pgx.Tx, string, string) error {
	return nil
}
