package apiapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	redrepo "github.com/andkapach/amora/internal/repo/redis"
	authsvc "github.com/andkapach/amora/internal/services/auth"
)

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	svc, _, cleanup := newAuthServiceForMiddleware(t)
	defer cleanup()

	mw := AuthMiddleware(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called without a token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsGarbageToken(t *testing.T) {
	svc, _, cleanup := newAuthServiceForMiddleware(t)
	defer cleanup()

	mw := AuthMiddleware(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called with a garbage token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	svc, sessions, cleanup := newAuthServiceForMiddleware(t)
	defer cleanup()

	jwt := authsvc.NewJWTManager("middleware-test-secret", time.Minute)
	token, _, err := jwt.GenerateAccessToken("user-1", "sid-1", "+375291112233")
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}
	err = sessions.Create(context.Background(), authsvc.SessionRecord{
		SID:       "sid-1",
		UserID:    "user-1",
		Phone:     "+375291112233",
		ExpiresAt: time.Now().Add(time.Hour),
	}, "refresh-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	mw := AuthMiddleware(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity missing in context")
		}
		if identity.UserID != "user-1" || identity.SID != "sid-1" {
			t.Fatalf("identity mismatch: %+v", identity)
		}
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		token, ok := extractBearerToken(tc.header)
		if token != tc.token || ok != tc.ok {
			t.Fatalf("extractBearerToken(%q) = (%q, %v), want (%q, %v)", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}

func newAuthServiceForMiddleware(t *testing.T) (*authsvc.Service, *redrepo.SessionRepo, func()) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := redrepo.NewClient(mini.Addr(), "", 0)
	sessions := redrepo.NewSessionRepo(client)

	svc := authsvc.NewService(authsvc.Dependencies{
		JWT:      authsvc.NewJWTManager("middleware-test-secret", time.Minute),
		Sessions: sessions,
		Codes:    redrepo.NewLoginCodeRepo(client),
		Sender:   authsvc.LogCodeSender{},
	}, authsvc.Config{})

	cleanup := func() {
		_ = client.Close()
		mini.Close()
	}
	return svc, sessions, cleanup
}
