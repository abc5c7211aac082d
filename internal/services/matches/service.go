package matches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
)

var (
	ErrValidation = errors.New("validation error")
	ErrBlocked    = errors.New("pair is blocked")
	ErrNotFound   = errors.New("match not found")
)

type LikeStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, actorID, targetID string, at time.Time) error
	Mutual(ctx context.Context, tx pgx.Tx, actorID, targetID string) (bool, error)
	IncomingCount(ctx context.Context, userID string) (int, error)
}

type MatchStore interface {
	Create(ctx context.Context, tx pgx.Tx, matchID, userA, userB string, at time.Time) error
	ListForUser(ctx context.Context, userID string, limit int) ([]pgrepo.MatchRecord, error)
	Exists(ctx context.Context, a, b string) (bool, error)
	DeleteByUsers(ctx context.Context, tx pgx.Tx, a, b string) (bool, error)
}

type BlockStore interface {
	IsBlockedEitherWay(ctx context.Context, a, b string) (bool, error)
	BlockTx(ctx context.Context, tx pgx.Tx, actorID, targetID string) error
}

type Dependencies struct {
	Pool    *pgxpool.Pool
	Likes   LikeStore
	Matches MatchStore
	Blocks  BlockStore
}

type LikeResult struct {
	Matched bool
	MatchID string
}

type Service struct {
	pool    *pgxpool.Pool
	likes   LikeStore
	matches MatchStore
	blocks  BlockStore
	now     func() time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{
		pool:    deps.Pool,
		likes:   deps.Likes,
		matches: deps.Matches,
		blocks:  deps.Blocks,
		now:     time.Now,
	}
}

// Like records the viewer's like and, when the target already liked
// back, creates the match in the same transaction.
func (s *Service) Like(ctx context.Context, viewerID, targetID string) (LikeResult, error) {
	if strings.TrimSpace(viewerID) == "" || strings.TrimSpace(targetID) == "" || viewerID == targetID {
		return LikeResult{}, ErrValidation
	}
	if s.blocks != nil {
		blocked, err := s.blocks.IsBlockedEitherWay(ctx, viewerID, targetID)
		if err != nil {
			return LikeResult{}, fmt.Errorf("check block relation: %w", err)
		}
		if blocked {
			return LikeResult{}, ErrBlocked
		}
	}

	if s.pool == nil || s.likes == nil || s.matches == nil {
		return LikeResult{}, fmt.Errorf("matches dependencies are not configured")
	}

	var result LikeResult
	err := pgrepo.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		now := s.now().UTC()
		if err := s.likes.Upsert(ctx, tx, viewerID, targetID, now); err != nil {
			return fmt.Errorf("upsert like: %w", err)
		}

		mutual, err := s.likes.Mutual(ctx, tx, viewerID, targetID)
		if err != nil {
			return fmt.Errorf("check mutual like: %w", err)
		}
		if !mutual {
			return nil
		}

		matchID := uuid.NewString()
		if err := s.matches.Create(ctx, tx, matchID, viewerID, targetID, now); err != nil {
			return fmt.Errorf("create match: %w", err)
		}
		result = LikeResult{Matched: true, MatchID: matchID}
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}

	return result, nil
}

func (s *Service) List(ctx context.Context, userID string, limit int) ([]pgrepo.MatchRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrValidation
	}
	if s.matches == nil {
		return []pgrepo.MatchRecord{}, nil
	}

	records, err := s.matches.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return records, nil
}

func (s *Service) IsMatched(ctx context.Context, a, b string) (bool, error) {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false, ErrValidation
	}
	if s.matches == nil {
		return false, nil
	}
	return s.matches.Exists(ctx, a, b)
}

func (s *Service) IncomingLikes(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrValidation
	}
	if s.likes == nil {
		return 0, nil
	}
	return s.likes.IncomingCount(ctx, userID)
}

func (s *Service) Unmatch(ctx context.Context, viewerID, targetID string) error {
	if strings.TrimSpace(viewerID) == "" || strings.TrimSpace(targetID) == "" || viewerID == targetID {
		return ErrValidation
	}
	if s.pool == nil || s.matches == nil {
		return fmt.Errorf("matches dependencies are not configured")
	}

	return pgrepo.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		deleted, err := s.matches.DeleteByUsers(ctx, tx, viewerID, targetID)
		if err != nil {
			return fmt.Errorf("delete match: %w", err)
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
}

// BlockAndUnmatch blocks the target and removes any existing match in
// one transaction. Used by the block endpoint so a blocked pair never
// keeps a live match.
func (s *Service) BlockAndUnmatch(ctx context.Context, viewerID, targetID string) error {
	if strings.TrimSpace(viewerID) == "" || strings.TrimSpace(targetID) == "" || viewerID == targetID {
		return ErrValidation
	}
	if s.pool == nil || s.matches == nil || s.blocks == nil {
		return fmt.Errorf("matches dependencies are not configured")
	}

	return pgrepo.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.blocks.BlockTx(ctx, tx, viewerID, targetID); err != nil {
			return fmt.Errorf("block profile: %w", err)
		}
		if _, err := s.matches.DeleteByUsers(ctx, tx, viewerID, targetID); err != nil {
			return fmt.Errorf("delete match: %w", err)
		}
		return nil
	})
}
