package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BlockRepo struct {
	pool *pgxpool.Pool
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

func (r *BlockRepo) Block(ctx context.Context, actorID, targetID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(actorID) == "" || strings.TrimSpace(targetID) == "" || actorID == targetID {
		return fmt.Errorf("invalid block payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO blocks (actor_id, target_id, created_at)
VALUES ($1, $2, NOW())
ON CONFLICT (actor_id, target_id) DO NOTHING
`, actorID, targetID); err != nil {
		return fmt.Errorf("create block: %w", err)
	}

	return nil
}

func (r *BlockRepo) BlockTx(ctx context.Context, tx pgx.Tx, actorID, targetID string) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO blocks (actor_id, target_id, created_at)
VALUES ($1, $2, NOW())
ON CONFLICT (actor_id, target_id) DO NOTHING
`, actorID, targetID); err != nil {
		return fmt.Errorf("create block: %w", err)
	}
	return nil
}

func (r *BlockRepo) Unblock(ctx context.Context, actorID, targetID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
DELETE FROM blocks WHERE actor_id = $1 AND target_id = $2
`, actorID, targetID); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}

// Relations returns the ids the user has blocked and the ids that have
// blocked the user, in one round trip.
func (r *BlockRepo) Relations(ctx context.Context, userID string) (map[string]struct{}, map[string]struct{}, error) {
	blocked := map[string]struct{}{}
	blockedBy := map[string]struct{}{}

	if strings.TrimSpace(userID) == "" {
		return nil, nil, fmt.Errorf("user id is required")
	}
	if r.pool == nil {
		return blocked, blockedBy, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT actor_id, target_id
FROM blocks
WHERE actor_id = $1 OR target_id = $1
`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list block relations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var actorID, targetID string
		if err := rows.Scan(&actorID, &targetID); err != nil {
			return nil, nil, fmt.Errorf("scan block relation: %w", err)
		}
		if actorID == userID {
			blocked[targetID] = struct{}{}
		}
		if targetID == userID {
			blockedBy[actorID] = struct{}{}
		}
	}
	if rows.Err() != nil {
		return nil, nil, fmt.Errorf("iterate block relations: %w", rows.Err())
	}

	return blocked, blockedBy, nil
}

func (r *BlockRepo) IsBlockedEitherWay(ctx context.Context, a, b string) (bool, error) {
	if r.pool == nil {
		return false, nil
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM blocks
	WHERE (actor_id = $1 AND target_id = $2)
		OR (actor_id = $2 AND target_id = $1)
)
`, a, b).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check block relation: %w", err)
	}
	return exists, nil
}
