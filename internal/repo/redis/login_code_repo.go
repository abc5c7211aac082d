package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const loginCodePrefix = "login_code:"

// LoginCodeRepo keeps the per-phone secrets backing short-lived login
// codes. Entries expire on their own; a missing secret means the code
// was never requested or has already expired.
type LoginCodeRepo struct {
	client *goredis.Client
}

func NewLoginCodeRepo(client *goredis.Client) *LoginCodeRepo {
	return &LoginCodeRepo{client: client}
}

func (r *LoginCodeRepo) SaveSecret(ctx context.Context, phone, secret string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(phone) == "" || strings.TrimSpace(secret) == "" || ttl <= 0 {
		return fmt.Errorf("invalid login code payload")
	}

	if err := r.client.Set(ctx, loginCodeKey(phone), secret, ttl).Err(); err != nil {
		return fmt.Errorf("save login code secret: %w", err)
	}
	return nil
}

func (r *LoginCodeRepo) GetSecret(ctx context.Context, phone string) (string, bool, error) {
	if r.client == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}

	secret, err := r.client.Get(ctx, loginCodeKey(phone)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get login code secret: %w", err)
	}
	return secret, true, nil
}

func (r *LoginCodeRepo) Delete(ctx context.Context, phone string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, loginCodeKey(phone)).Err(); err != nil {
		return fmt.Errorf("delete login code secret: %w", err)
	}
	return nil
}

func loginCodeKey(phone string) string {
	return loginCodePrefix + phone
}
