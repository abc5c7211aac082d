package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andkapach/amora/internal/config"
	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
)

const defaultPendingTTL = 15 * time.Minute

var (
	ErrValidation       = errors.New("validation error")
	ErrUnknownSKU       = errors.New("unknown product")
	ErrNoPending        = errors.New("no pending purchase")
	ErrAlreadyProcessed = errors.New("purchase already processed")
)

type Product struct {
	SKU         string
	Coins       int64
	PremiumTime time.Duration
}

type PurchaseStore interface {
	CreatePending(ctx context.Context, rec pgrepo.PurchaseRecord) error
	GetByID(ctx context.Context, purchaseID string) (pgrepo.PurchaseRecord, error)
	ConfirmedByProviderTx(ctx context.Context, providerTxID string) (bool, error)
	Confirm(ctx context.Context, purchaseID, providerTxID string, at time.Time) error
	ListForUser(ctx context.Context, userID string, limit int) ([]pgrepo.PurchaseRecord, error)
}

// PendingMarkerStore is the Redis side of a checkout: a marker that
// expires on its own when the client never completes payment.
type PendingMarkerStore interface {
	Save(ctx context.Context, userID, sku, purchaseID string, ttl time.Duration) error
	Get(ctx context.Context, userID, sku string) (string, bool, error)
	Delete(ctx context.Context, userID, sku string) error
}

type CoinCreditor interface {
	CreditCoins(ctx context.Context, userID string, amount int64, at time.Time) error
}

type PremiumGranter interface {
	SetPremium(ctx context.Context, id string, until time.Time) error
}

type Dependencies struct {
	Purchases PurchaseStore
	Markers   PendingMarkerStore
	Coins     CoinCreditor
	Premium   PremiumGranter
	Logger    *zap.Logger
}

type Service struct {
	products   map[string]Product
	purchases  PurchaseStore
	markers    PendingMarkerStore
	coins      CoinCreditor
	premium    PremiumGranter
	logger     *zap.Logger
	pendingTTL time.Duration
	now        func() time.Time
}

type BeginResult struct {
	PurchaseID string
	SKU        string
	ExpiresAt  time.Time
}

type ConfirmResult struct {
	PurchaseID       string
	SKU              string
	CoinsCredited    int64
	PremiumGranted   bool
	AlreadyProcessed bool
}

func NewService(cfg config.PurchasesConfig, deps Dependencies) *Service {
	products := make(map[string]Product, len(cfg.Products))
	for _, item := range cfg.Products {
		sku := strings.TrimSpace(item.SKU)
		if sku == "" {
			continue
		}
		products[sku] = Product{
			SKU:         sku,
			Coins:       int64(item.Coins),
			PremiumTime: item.PremiumTime,
		}
	}

	pendingTTL := cfg.PendingTTL
	if pendingTTL <= 0 {
		pendingTTL = defaultPendingTTL
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		products:   products,
		purchases:  deps.Purchases,
		markers:    deps.Markers,
		coins:      deps.Coins,
		premium:    deps.Premium,
		logger:     logger,
		pendingTTL: pendingTTL,
		now:        time.Now,
	}
}

// Begin opens a checkout: a pending row in the store plus a TTL marker
// in Redis keyed by user and SKU. Restarting a checkout for the same
// SKU replaces the marker.
func (s *Service) Begin(ctx context.Context, userID, sku string) (BeginResult, error) {
	if strings.TrimSpace(userID) == "" {
		return BeginResult{}, ErrValidation
	}
	product, ok := s.products[strings.TrimSpace(sku)]
	if !ok {
		return BeginResult{}, ErrUnknownSKU
	}
	if s.purchases == nil || s.markers == nil {
		return BeginResult{}, fmt.Errorf("purchase dependencies are not configured")
	}

	now := s.now().UTC()
	purchaseID := uuid.NewString()
	if err := s.purchases.CreatePending(ctx, pgrepo.PurchaseRecord{
		ID:        purchaseID,
		UserID:    userID,
		SKU:       product.SKU,
		Coins:     product.Coins,
		CreatedAt: now,
	}); err != nil {
		return BeginResult{}, fmt.Errorf("create pending purchase: %w", err)
	}

	if err := s.markers.Save(ctx, userID, product.SKU, purchaseID, s.pendingTTL); err != nil {
		return BeginResult{}, fmt.Errorf("save pending marker: %w", err)
	}

	return BeginResult{
		PurchaseID: purchaseID,
		SKU:        product.SKU,
		ExpiresAt:  now.Add(s.pendingTTL),
	}, nil
}

// Confirm settles a provider callback. Repeated callbacks with the
// same provider transaction id report AlreadyProcessed instead of
// crediting twice.
func (s *Service) Confirm(ctx context.Context, userID, sku, providerTxID string) (ConfirmResult, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(providerTxID) == "" {
		return ConfirmResult{}, ErrValidation
	}
	product, ok := s.products[strings.TrimSpace(sku)]
	if !ok {
		return ConfirmResult{}, ErrUnknownSKU
	}
	if s.purchases == nil || s.markers == nil {
		return ConfirmResult{}, fmt.Errorf("purchase dependencies are not configured")
	}

	processed, err := s.purchases.ConfirmedByProviderTx(ctx, providerTxID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("check provider tx: %w", err)
	}
	if processed {
		return ConfirmResult{SKU: product.SKU, AlreadyProcessed: true}, nil
	}

	purchaseID, found, err := s.markers.Get(ctx, userID, product.SKU)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("get pending marker: %w", err)
	}
	if !found {
		return ConfirmResult{}, ErrNoPending
	}

	now := s.now().UTC()
	if err := s.purchases.Confirm(ctx, purchaseID, providerTxID, now); err != nil {
		if errors.Is(err, pgrepo.ErrPurchaseNotFound) {
			// The row was already swept or settled elsewhere. Drop the
			// stale marker and report no pending checkout.
			if markerErr := s.markers.Delete(ctx, userID, product.SKU); markerErr != nil {
				s.logger.Warn("purchases: drop stale marker", zap.Error(markerErr))
			}
			return ConfirmResult{}, ErrNoPending
		}
		return ConfirmResult{}, fmt.Errorf("confirm purchase: %w", err)
	}

	result := ConfirmResult{PurchaseID: purchaseID, SKU: product.SKU}

	if product.Coins > 0 && s.coins != nil {
		if err := s.coins.CreditCoins(ctx, userID, product.Coins, now); err != nil {
			return ConfirmResult{}, fmt.Errorf("credit coins: %w", err)
		}
		result.CoinsCredited = product.Coins
	}
	if product.PremiumTime > 0 && s.premium != nil {
		if err := s.premium.SetPremium(ctx, userID, now.Add(product.PremiumTime)); err != nil {
			return ConfirmResult{}, fmt.Errorf("grant premium: %w", err)
		}
		result.PremiumGranted = true
	}

	if err := s.markers.Delete(ctx, userID, product.SKU); err != nil {
		s.logger.Warn("purchases: delete pending marker", zap.Error(err))
	}

	return result, nil
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]pgrepo.PurchaseRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrValidation
	}
	if s.purchases == nil {
		return []pgrepo.PurchaseRecord{}, nil
	}

	items, err := s.purchases.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return items, nil
}

func (s *Service) Products() []Product {
	out := make([]Product, 0, len(s.products))
	for _, product := range s.products {
		out = append(out, product)
	}
	return out
}
