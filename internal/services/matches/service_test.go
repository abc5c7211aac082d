package matches

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type blockStoreStub struct {
	blocked bool
	err     error
	calls   int
}

func (s *blockStoreStub) IsBlockedEitherWay(context.Context, string, string) (bool, error) {
	s.calls++
	return s.blocked, s.err
}

func (s *blockStoreStub) BlockTx(context.Context, pgx.Tx, string, string) error {
	return nil
}

func TestLikeValidation(t *testing.T) {
	svc := NewService(Dependencies{})
	ctx := context.Background()

	cases := []struct {
		name   string
		viewer string
		target string
	}{
		{name: "empty viewer", viewer: "", target: "u2"},
		{name: "empty target", viewer: "u1", target: ""},
		{name: "self like", viewer: "u1", target: "u1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Like(ctx, tc.viewer, tc.target); !errors.Is(err, ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}
}

func TestLikeRejectsBlockedPair(t *testing.T) {
	blocks := &blockStoreStub{blocked: true}
	svc := NewService(Dependencies{Blocks: blocks})

	if _, err := svc.Like(context.Background(), "u1", "u2"); !errors.Is(err, ErrBlocked) {
		t.Fatalf("want ErrBlocked, got %v", err)
	}
	if blocks.calls != 1 {
		t.Fatalf("block store calls = %d, want 1", blocks.calls)
	}
}

func TestLikeFailsClosedOnBlockStoreError(t *testing.T) {
	blocks := &blockStoreStub{err: errors.New("postgres down")}
	svc := NewService(Dependencies{Blocks: blocks})

	if _, err := svc.Like(context.Background(), "u1", "u2"); err == nil {
		t.Fatalf("block store failure must fail the like")
	}
}

func TestUnmatchValidation(t *testing.T) {
	svc := NewService(Dependencies{})
	if err := svc.Unmatch(context.Background(), "u1", "u1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("self unmatch should fail validation, got %v", err)
	}
}

func TestListValidation(t *testing.T) {
	svc := NewService(Dependencies{})
	if _, err := svc.List(context.Background(), "  ", 10); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank user should fail validation, got %v", err)
	}
}
