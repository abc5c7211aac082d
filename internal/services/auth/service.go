package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andkapach/amora/internal/domain/profile"
	"github.com/andkapach/amora/internal/pkg/validate"
)

const (
	MinRefreshTTL = 30 * 24 * time.Hour
	MaxRefreshTTL = 90 * 24 * time.Hour

	defaultLoginCodeTTL = 5 * time.Minute
)

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord, refreshToken string) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

type CodeStore interface {
	SaveSecret(ctx context.Context, phone, secret string, ttl time.Duration) error
	GetSecret(ctx context.Context, phone string) (string, bool, error)
	Delete(ctx context.Context, phone string) error
}

type AccountProvisioner interface {
	EnsureByPhone(ctx context.Context, id, phone string, now time.Time) (profile.Profile, error)
}

// CodeSender delivers a one time login code to the phone number.
type CodeSender interface {
	SendLoginCode(ctx context.Context, phone, code string) error
}

type LogCodeSender struct {
	Logger *zap.Logger
}

func (s LogCodeSender) SendLoginCode(_ context.Context, phone, code string) error {
	if s.Logger != nil {
		s.Logger.Info("login code issued", zap.String("phone", phone), zap.String("code", code))
	}
	return nil
}

type Dependencies struct {
	JWT      *JWTManager
	Sessions SessionStore
	Codes    CodeStore
	Accounts AccountProvisioner
	Sender   CodeSender
}

type Config struct {
	RefreshTTL   time.Duration
	LoginCodeTTL time.Duration
}

type Service struct {
	jwt          *JWTManager
	sessions     SessionStore
	codes        CodeStore
	accounts     AccountProvisioner
	sender       CodeSender
	refreshTTL   time.Duration
	loginCodeTTL time.Duration
	now          func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	refreshTTL := cfg.RefreshTTL
	if refreshTTL < MinRefreshTTL {
		refreshTTL = MinRefreshTTL
	}
	if refreshTTL > MaxRefreshTTL {
		refreshTTL = MaxRefreshTTL
	}

	loginCodeTTL := cfg.LoginCodeTTL
	if loginCodeTTL <= 0 {
		loginCodeTTL = defaultLoginCodeTTL
	}

	return &Service{
		jwt:          deps.JWT,
		sessions:     deps.Sessions,
		codes:        deps.Codes,
		accounts:     deps.Accounts,
		sender:       deps.Sender,
		refreshTTL:   refreshTTL,
		loginCodeTTL: loginCodeTTL,
		now:          time.Now,
	}
}

// RequestCode starts a phone login: a fresh secret is stored under the
// phone with the code TTL and the derived code is sent to the number.
// Requesting again replaces the previous code.
func (s *Service) RequestCode(ctx context.Context, rawPhone string) error {
	phone, ok := validate.NormalizePhone(rawPhone)
	if !ok {
		return ErrInvalidInput
	}

	secret, err := NewCodeSecret()
	if err != nil {
		return fmt.Errorf("new code secret: %w", err)
	}

	if err := s.codes.SaveSecret(ctx, phone, secret, s.loginCodeTTL); err != nil {
		return fmt.Errorf("save code secret: %w", err)
	}

	code, err := GenerateLoginCode(secret, s.now(), s.loginCodeTTL)
	if err != nil {
		return err
	}

	if err := s.sender.SendLoginCode(ctx, phone, code); err != nil {
		return fmt.Errorf("send login code: %w", err)
	}

	return nil
}

// VerifyCode checks the submitted code, provisions the account on first
// login, and opens a session. The code secret is consumed on success so
// a code cannot be replayed.
func (s *Service) VerifyCode(ctx context.Context, rawPhone, code string) (AuthResult, error) {
	phone, ok := validate.NormalizePhone(rawPhone)
	if !ok {
		return AuthResult{}, ErrInvalidInput
	}
	if strings.TrimSpace(code) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	secret, found, err := s.codes.GetSecret(ctx, phone)
	if err != nil {
		return AuthResult{}, fmt.Errorf("get code secret: %w", err)
	}
	if !found {
		return AuthResult{}, ErrCodeMismatch
	}

	valid, err := VerifyLoginCode(strings.TrimSpace(code), secret, s.now(), s.loginCodeTTL)
	if err != nil {
		return AuthResult{}, err
	}
	if !valid {
		return AuthResult{}, ErrCodeMismatch
	}

	if err := s.codes.Delete(ctx, phone); err != nil {
		return AuthResult{}, fmt.Errorf("consume code secret: %w", err)
	}

	account, err := s.accounts.EnsureByPhone(ctx, uuid.NewString(), phone, s.now().UTC())
	if err != nil {
		return AuthResult{}, fmt.Errorf("ensure account: %w", err)
	}

	return s.issueForUser(ctx, account.ID, phone)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get refresh token session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return AuthResult{}, ErrUnauthorized
	}

	newRefreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	newExpiresAt := s.now().Add(s.refreshTTL)
	if err := s.sessions.RotateRefresh(ctx, session.SID, refreshToken, newRefreshToken, newExpiresAt); err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(session.UserID, session.SID, session.Phone)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  newRefreshToken,
		AccessExpires: accessExpires,
		Me: Me{
			ID:    session.UserID,
			Phone: session.Phone,
		},
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return AccessClaims{}, ErrUnauthorized
		}
		return AccessClaims{}, fmt.Errorf("get session: %w", err)
	}

	if session.UserID != claims.UserID {
		return AccessClaims{}, ErrUnauthorized
	}
	if s.now().After(session.ExpiresAt) {
		return AccessClaims{}, ErrUnauthorized
	}

	return claims, nil
}

func (s *Service) issueForUser(ctx context.Context, userID, phone string) (AuthResult, error) {
	sessionID, err := NewSessionID()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate session id: %w", err)
	}
	refreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	sessionExpiresAt := s.now().Add(s.refreshTTL)
	session := SessionRecord{
		SID:       sessionID,
		UserID:    userID,
		Phone:     phone,
		ExpiresAt: sessionExpiresAt,
	}
	if err := s.sessions.Create(ctx, session, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(userID, sessionID, phone)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpires: accessExpires,
		Me: Me{
			ID:    userID,
			Phone: phone,
		},
	}, nil
}
