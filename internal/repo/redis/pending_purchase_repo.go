package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const pendingPurchasePrefix = "pending_purchase:"

// PendingPurchaseRepo holds short-lived markers for purchases that have
// been started but not yet confirmed by the store callback. A marker
// that expired is simply absent; reconciliation then falls back to the
// purchase rows in postgres.
type PendingPurchaseRepo struct {
	client *goredis.Client
}

func NewPendingPurchaseRepo(client *goredis.Client) *PendingPurchaseRepo {
	return &PendingPurchaseRepo{client: client}
}

func (r *PendingPurchaseRepo) Save(ctx context.Context, userID, sku, purchaseID string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(sku) == "" || strings.TrimSpace(purchaseID) == "" || ttl <= 0 {
		return fmt.Errorf("invalid pending purchase payload")
	}

	if err := r.client.Set(ctx, pendingPurchaseKey(userID, sku), purchaseID, ttl).Err(); err != nil {
		return fmt.Errorf("save pending purchase marker: %w", err)
	}
	return nil
}

func (r *PendingPurchaseRepo) Get(ctx context.Context, userID, sku string) (string, bool, error) {
	if r.client == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}

	purchaseID, err := r.client.Get(ctx, pendingPurchaseKey(userID, sku)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get pending purchase marker: %w", err)
	}
	return purchaseID, true, nil
}

func (r *PendingPurchaseRepo) Delete(ctx context.Context, userID, sku string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, pendingPurchaseKey(userID, sku)).Err(); err != nil {
		return fmt.Errorf("delete pending purchase marker: %w", err)
	}
	return nil
}

func pendingPurchaseKey(userID, sku string) string {
	return pendingPurchasePrefix + userID + ":" + sku
}
