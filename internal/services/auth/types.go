package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionNotFound = errors.New("session not found")
	ErrRefreshNotFound = errors.New("refresh token not found")
	ErrCodeMismatch    = errors.New("login code mismatch")
)

type SessionRecord struct {
	SID       string
	UserID    string
	Phone     string
	ExpiresAt time.Time
}

type AccessClaims struct {
	UserID    string
	SID       string
	Phone     string
	ExpiresAt time.Time
}

type Me struct {
	ID    string
	Phone string
}

type AuthResult struct {
	AccessToken   string
	RefreshToken  string
	AccessExpires time.Time
	Me            Me
}
