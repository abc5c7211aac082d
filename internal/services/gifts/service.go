package gifts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andkapach/amora/internal/config"
	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrUnknownGift       = errors.New("unknown gift")
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrBlocked           = errors.New("pair is blocked")
)

type Gift struct {
	ID         string
	Title      string
	PriceCoins int64
	AssetKey   string
}

type WalletStore interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Transfer(ctx context.Context, transfer pgrepo.GiftTransferRecord) error
	ListReceived(ctx context.Context, userID string, limit int) ([]pgrepo.GiftTransferRecord, error)
}

type BlockChecker interface {
	IsBlockedEitherWay(ctx context.Context, a, b string) (bool, error)
}

// GiftNotifier lets the chat layer drop a gift marker into the pair's
// conversation after a successful transfer.
type GiftNotifier interface {
	SendGiftMessage(ctx context.Context, fromID, toID, giftID, note string) error
}

type Dependencies struct {
	Wallets  WalletStore
	Blocks   BlockChecker
	Notifier GiftNotifier
}

type Service struct {
	catalog  map[string]Gift
	ordered  []Gift
	wallets  WalletStore
	blocks   BlockChecker
	notifier GiftNotifier
	now      func() time.Time
}

func NewService(catalog []config.GiftConfig, deps Dependencies) *Service {
	byID := make(map[string]Gift, len(catalog))
	ordered := make([]Gift, 0, len(catalog))
	for _, item := range catalog {
		id := strings.TrimSpace(item.ID)
		if id == "" || item.PriceCoins <= 0 {
			continue
		}
		gift := Gift{
			ID:         id,
			Title:      item.Title,
			PriceCoins: int64(item.PriceCoins),
			AssetKey:   item.AssetKey,
		}
		byID[id] = gift
		ordered = append(ordered, gift)
	}

	return &Service{
		catalog:  byID,
		ordered:  ordered,
		wallets:  deps.Wallets,
		blocks:   deps.Blocks,
		notifier: deps.Notifier,
		now:      time.Now,
	}
}

func (s *Service) Catalog() []Gift {
	out := make([]Gift, len(s.ordered))
	copy(out, s.ordered)
	return out
}

func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrValidation
	}
	if s.wallets == nil {
		return 0, nil
	}
	return s.wallets.Balance(ctx, userID)
}

// Send debits the sender and records the transfer. The wallet store
// settles both atomically; a gift message in the pair's chat is best
// effort on top.
func (s *Service) Send(ctx context.Context, fromID, toID, giftID, note string) (Gift, error) {
	if strings.TrimSpace(fromID) == "" || strings.TrimSpace(toID) == "" || fromID == toID {
		return Gift{}, ErrValidation
	}
	gift, ok := s.catalog[strings.TrimSpace(giftID)]
	if !ok {
		return Gift{}, ErrUnknownGift
	}
	if s.wallets == nil {
		return Gift{}, fmt.Errorf("gift dependencies are not configured")
	}

	if s.blocks != nil {
		blocked, err := s.blocks.IsBlockedEitherWay(ctx, fromID, toID)
		if err != nil {
			return Gift{}, fmt.Errorf("check block relation: %w", err)
		}
		if blocked {
			return Gift{}, ErrBlocked
		}
	}

	transfer := pgrepo.GiftTransferRecord{
		ID:         uuid.NewString(),
		GiftID:     gift.ID,
		SenderID:   fromID,
		ReceiverID: toID,
		PriceCoins: gift.PriceCoins,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.wallets.Transfer(ctx, transfer); err != nil {
		if errors.Is(err, pgrepo.ErrInsufficientCoins) {
			return Gift{}, ErrInsufficientCoins
		}
		return Gift{}, fmt.Errorf("transfer gift: %w", err)
	}

	if s.notifier != nil {
		_ = s.notifier.SendGiftMessage(ctx, fromID, toID, gift.ID, note)
	}

	return gift, nil
}

func (s *Service) Received(ctx context.Context, userID string, limit int) ([]pgrepo.GiftTransferRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrValidation
	}
	if s.wallets == nil {
		return []pgrepo.GiftTransferRecord{}, nil
	}

	items, err := s.wallets.ListReceived(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list received gifts: %w", err)
	}
	return items, nil
}
