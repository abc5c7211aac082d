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

var ErrMatchNotFound = errors.New("match not found")

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

type MatchRecord struct {
	ID          string
	UserAID     string
	UserBID     string
	CreatedAt   time.Time
	TargetID    string
	DisplayName string
	Age         int
	City        string
	Country     string
}

// Create inserts the match with a canonical user ordering so the pair
// is unique regardless of who liked last.
func (r *MatchRepo) Create(ctx context.Context, tx pgx.Tx, matchID, userA, userB string, at time.Time) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}
	if strings.TrimSpace(userA) == "" || strings.TrimSpace(userB) == "" || userA == userB {
		return fmt.Errorf("invalid match payload")
	}

	first, second := userA, userB
	if second < first {
		first, second = second, first
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO matches (id, user_a_id, user_b_id, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_a_id, user_b_id) DO NOTHING
`, matchID, first, second, at.UTC()); err != nil {
		return fmt.Errorf("create match: %w", err)
	}

	return nil
}

func (r *MatchRepo) ListForUser(ctx context.Context, userID string, limit int) ([]MatchRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []MatchRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	m.id,
	m.user_a_id,
	m.user_b_id,
	m.created_at,
	p.id,
	COALESCE(p.display_name, ''),
	COALESCE(p.age, 0),
	COALESCE(p.city, ''),
	COALESCE(p.country, '')
FROM matches m
JOIN profiles p
	ON p.id = CASE WHEN m.user_a_id = $1 THEN m.user_b_id ELSE m.user_a_id END
WHERE m.user_a_id = $1 OR m.user_b_id = $1
ORDER BY m.created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	items := make([]MatchRecord, 0, limit)
	for rows.Next() {
		var item MatchRecord
		if err := rows.Scan(
			&item.ID,
			&item.UserAID,
			&item.UserBID,
			&item.CreatedAt,
			&item.TargetID,
			&item.DisplayName,
			&item.Age,
			&item.City,
			&item.Country,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate matches: %w", rows.Err())
	}

	return items, nil
}

func (r *MatchRepo) Exists(ctx context.Context, a, b string) (bool, error) {
	if r.pool == nil {
		return false, nil
	}

	first, second := a, b
	if second < first {
		first, second = second, first
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM matches WHERE user_a_id = $1 AND user_b_id = $2
)
`, first, second).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check match: %w", err)
	}
	return exists, nil
}

func (r *MatchRepo) DeleteByUsers(ctx context.Context, tx pgx.Tx, a, b string) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("tx is nil")
	}

	first, second := a, b
	if second < first {
		first, second = second, first
	}

	tag, err := tx.Exec(ctx, `
DELETE FROM matches WHERE user_a_id = $1 AND user_b_id = $2
`, first, second)
	if err != nil {
		return false, fmt.Errorf("delete match: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
