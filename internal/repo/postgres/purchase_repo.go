package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPurchaseNotFound = errors.New("purchase not found")

const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusConfirmed = "confirmed"
)

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

type PurchaseRecord struct {
	ID           string
	UserID       string
	SKU          string
	Coins        int64
	Status       string
	ProviderTxID string
	CreatedAt    time.Time
	ConfirmedAt  *time.Time
}

func (r *PurchaseRepo) CreatePending(ctx context.Context, rec PurchaseRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(rec.ID) == "" || strings.TrimSpace(rec.UserID) == "" || strings.TrimSpace(rec.SKU) == "" {
		return fmt.Errorf("invalid purchase payload")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO purchases (id, user_id, sku, coins, status, provider_tx_id, created_at)
VALUES ($1, $2, $3, $4, $5, '', $6)
`, rec.ID, rec.UserID, rec.SKU, rec.Coins, PurchaseStatusPending, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create pending purchase: %w", err)
	}

	return nil
}

func (r *PurchaseRepo) GetByID(ctx context.Context, purchaseID string) (PurchaseRecord, error) {
	if r.pool == nil {
		return PurchaseRecord{}, ErrPurchaseNotFound
	}

	var rec PurchaseRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, user_id, sku, coins, status, COALESCE(provider_tx_id, ''), created_at, confirmed_at
FROM purchases
WHERE id = $1
LIMIT 1
`, purchaseID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.SKU,
		&rec.Coins,
		&rec.Status,
		&rec.ProviderTxID,
		&rec.CreatedAt,
		&rec.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRecord{}, ErrPurchaseNotFound
		}
		return PurchaseRecord{}, fmt.Errorf("get purchase: %w", err)
	}

	return rec, nil
}

// ConfirmedByProviderTx reports whether a provider transaction id was
// already consumed. Repeated confirm calls with the same receipt must
// not credit coins twice.
func (r *PurchaseRepo) ConfirmedByProviderTx(ctx context.Context, providerTxID string) (bool, error) {
	if strings.TrimSpace(providerTxID) == "" {
		return false, fmt.Errorf("provider tx id is required")
	}
	if r.pool == nil {
		return false, nil
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
    SELECT 1 FROM purchases WHERE provider_tx_id = $1 AND status = $2
)
`, providerTxID, PurchaseStatusConfirmed).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check provider tx: %w", err)
	}

	return exists, nil
}

func (r *PurchaseRepo) Confirm(ctx context.Context, purchaseID, providerTxID string, at time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(purchaseID) == "" || strings.TrimSpace(providerTxID) == "" {
		return fmt.Errorf("invalid confirm payload")
	}

	ts := at.UTC()
	cmd, err := r.pool.Exec(ctx, `
UPDATE purchases
SET status = $2, provider_tx_id = $3, confirmed_at = $4
WHERE id = $1 AND status = $5
`, purchaseID, PurchaseStatusConfirmed, providerTxID, ts, PurchaseStatusPending)
	if err != nil {
		return fmt.Errorf("confirm purchase: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrPurchaseNotFound
	}

	return nil
}

func (r *PurchaseRepo) ListForUser(ctx context.Context, userID string, limit int) ([]PurchaseRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []PurchaseRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, sku, coins, status, COALESCE(provider_tx_id, ''), created_at, confirmed_at
FROM purchases
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	items := make([]PurchaseRecord, 0, limit)
	for rows.Next() {
		var rec PurchaseRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.SKU,
			&rec.Coins,
			&rec.Status,
			&rec.ProviderTxID,
			&rec.CreatedAt,
			&rec.ConfirmedAt,
		); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		items = append(items, rec)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate purchases: %w", rows.Err())
	}

	return items, nil
}

// DeleteStalePending drops pending purchases older than the cutoff.
// The cleanup job uses this to reap checkouts the client abandoned.
func (r *PurchaseRepo) DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}

	cmd, err := r.pool.Exec(ctx, `
DELETE FROM purchases WHERE status = $1 AND created_at < $2
`, PurchaseStatusPending, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete stale pending purchases: %w", err)
	}

	return cmd.RowsAffected(), nil
}
