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

var ErrInsufficientCoins = errors.New("insufficient coins")

type GiftRepo struct {
	pool *pgxpool.Pool
}

func NewGiftRepo(pool *pgxpool.Pool) *GiftRepo {
	return &GiftRepo{pool: pool}
}

type GiftTransferRecord struct {
	ID         string
	GiftID     string
	SenderID   string
	ReceiverID string
	PriceCoins int64
	CreatedAt  time.Time
}

func (r *GiftRepo) Balance(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("user id is required")
	}
	if r.pool == nil {
		return 0, nil
	}

	var balance int64
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(balance_coins, 0) FROM wallets WHERE user_id = $1 LIMIT 1
`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

func (r *GiftRepo) CreditCoins(ctx context.Context, userID string, amount int64, at time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" || amount <= 0 {
		return fmt.Errorf("invalid credit payload")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO wallets (user_id, balance_coins, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET
    balance_coins = wallets.balance_coins + EXCLUDED.balance_coins,
    updated_at = EXCLUDED.updated_at
`, userID, amount, at.UTC())
	if err != nil {
		return fmt.Errorf("credit coins: %w", err)
	}

	return nil
}

// Transfer debits the sender's wallet and records the gift transfer in
// one transaction. The debit row-locks the wallet so concurrent sends
// cannot spend the same coins twice.
func (r *GiftRepo) Transfer(ctx context.Context, transfer GiftTransferRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(transfer.ID) == "" ||
		strings.TrimSpace(transfer.GiftID) == "" ||
		strings.TrimSpace(transfer.SenderID) == "" ||
		strings.TrimSpace(transfer.ReceiverID) == "" ||
		transfer.PriceCoins <= 0 {
		return fmt.Errorf("invalid transfer payload")
	}

	return WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var balance int64
		err := tx.QueryRow(ctx, `
SELECT COALESCE(balance_coins, 0) FROM wallets WHERE user_id = $1 FOR UPDATE
`, transfer.SenderID).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInsufficientCoins
			}
			return fmt.Errorf("lock wallet: %w", err)
		}
		if balance < transfer.PriceCoins {
			return ErrInsufficientCoins
		}

		if _, err := tx.Exec(ctx, `
UPDATE wallets SET balance_coins = balance_coins - $2, updated_at = $3 WHERE user_id = $1
`, transfer.SenderID, transfer.PriceCoins, transfer.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("debit wallet: %w", err)
		}

		if _, err := tx.Exec(ctx, `
INSERT INTO gift_transfers (id, gift_id, sender_id, receiver_id, price_coins, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, transfer.ID, transfer.GiftID, transfer.SenderID, transfer.ReceiverID, transfer.PriceCoins, transfer.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("insert gift transfer: %w", err)
		}

		return nil
	})
}

func (r *GiftRepo) ListReceived(ctx context.Context, userID string, limit int) ([]GiftTransferRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []GiftTransferRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, gift_id, sender_id, receiver_id, price_coins, created_at
FROM gift_transfers
WHERE receiver_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list received gifts: %w", err)
	}
	defer rows.Close()

	items := make([]GiftTransferRecord, 0, limit)
	for rows.Next() {
		var record GiftTransferRecord
		if err := rows.Scan(
			&record.ID,
			&record.GiftID,
			&record.SenderID,
			&record.ReceiverID,
			&record.PriceCoins,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan gift transfer: %w", err)
		}
		items = append(items, record)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate gift transfers: %w", rows.Err())
	}

	return items, nil
}
