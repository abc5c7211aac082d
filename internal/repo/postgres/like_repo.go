package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LikeRepo struct {
	pool *pgxpool.Pool
}

func NewLikeRepo(pool *pgxpool.Pool) *LikeRepo {
	return &LikeRepo{pool: pool}
}

type LikeRecord struct {
	ActorID   string
	TargetID  string
	CreatedAt time.Time
}

// Upsert records a like; re-liking the same profile is a no-op.
func (r *LikeRepo) Upsert(ctx context.Context, tx pgx.Tx, actorID, targetID string, at time.Time) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}
	if strings.TrimSpace(actorID) == "" || strings.TrimSpace(targetID) == "" {
		return fmt.Errorf("invalid like payload")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO likes (actor_id, target_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (actor_id, target_id) DO NOTHING
`, actorID, targetID, at.UTC()); err != nil {
		return fmt.Errorf("upsert like: %w", err)
	}

	return nil
}

// Mutual reports whether the target already likes the actor back.
func (r *LikeRepo) Mutual(ctx context.Context, tx pgx.Tx, actorID, targetID string) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("tx is nil")
	}

	var exists bool
	err := tx.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM likes WHERE actor_id = $1 AND target_id = $2
)
`, targetID, actorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check mutual like: %w", err)
	}

	return exists, nil
}

func (r *LikeRepo) IncomingCount(ctx context.Context, userID string) (int, error) {
	if r.pool == nil {
		return 0, nil
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM likes l
WHERE l.target_id = $1
	AND NOT EXISTS (
		SELECT 1 FROM likes mine
		WHERE mine.actor_id = $1 AND mine.target_id = l.actor_id
	)
`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count incoming likes: %w", err)
	}

	return count, nil
}
