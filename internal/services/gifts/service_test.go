package gifts

import (
	"context"
	"errors"
	"testing"

	"github.com/andkapach/amora/internal/config"
	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
)

type memWallet struct {
	balances  map[string]int64
	transfers []pgrepo.GiftTransferRecord
}

func newMemWallet() *memWallet {
	return &memWallet{balances: make(map[string]int64)}
}

func (w *memWallet) Balance(_ context.Context, userID string) (int64, error) {
	return w.balances[userID], nil
}

func (w *memWallet) Transfer(_ context.Context, transfer pgrepo.GiftTransferRecord) error {
	if w.balances[transfer.SenderID] < transfer.PriceCoins {
		return pgrepo.ErrInsufficientCoins
	}
	w.balances[transfer.SenderID] -= transfer.PriceCoins
	w.transfers = append(w.transfers, transfer)
	return nil
}

func (w *memWallet) ListReceived(_ context.Context, userID string, _ int) ([]pgrepo.GiftTransferRecord, error) {
	out := []pgrepo.GiftTransferRecord{}
	for _, transfer := range w.transfers {
		if transfer.ReceiverID == userID {
			out = append(out, transfer)
		}
	}
	return out, nil
}

type notifierStub struct {
	calls int
	gift  string
}

func (n *notifierStub) SendGiftMessage(_ context.Context, _, _, giftID, _ string) error {
	n.calls++
	n.gift = giftID
	return nil
}

func testCatalog() []config.GiftConfig {
	return []config.GiftConfig{
		{ID: "rose", Title: "Rose", PriceCoins: 10, AssetKey: "gifts/rose.png"},
		{ID: "diamond", Title: "Diamond", PriceCoins: 100, AssetKey: "gifts/diamond.png"},
		{ID: "", Title: "Broken", PriceCoins: 5},
		{ID: "free", Title: "Free", PriceCoins: 0},
	}
}

func TestCatalogSkipsInvalidEntries(t *testing.T) {
	svc := NewService(testCatalog(), Dependencies{Wallets: newMemWallet()})

	catalog := svc.Catalog()
	if len(catalog) != 2 {
		t.Fatalf("catalog size = %d, want 2 (invalid entries dropped)", len(catalog))
	}
}

func TestSendDebitsAndNotifies(t *testing.T) {
	wallet := newMemWallet()
	wallet.balances["u1"] = 50
	notifier := &notifierStub{}
	svc := NewService(testCatalog(), Dependencies{Wallets: wallet, Notifier: notifier})

	gift, err := svc.Send(context.Background(), "u1", "u2", "rose", "for you")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gift.ID != "rose" {
		t.Fatalf("gift = %+v", gift)
	}
	if wallet.balances["u1"] != 40 {
		t.Fatalf("sender balance = %d, want 40", wallet.balances["u1"])
	}
	if notifier.calls != 1 || notifier.gift != "rose" {
		t.Fatalf("notifier = %+v", notifier)
	}

	received, err := svc.Received(context.Background(), "u2", 10)
	if err != nil {
		t.Fatalf("received: %v", err)
	}
	if len(received) != 1 || received[0].GiftID != "rose" {
		t.Fatalf("received = %+v", received)
	}
}

func TestSendInsufficientCoins(t *testing.T) {
	wallet := newMemWallet()
	wallet.balances["u1"] = 5
	svc := NewService(testCatalog(), Dependencies{Wallets: wallet})

	if _, err := svc.Send(context.Background(), "u1", "u2", "rose", ""); !errors.Is(err, ErrInsufficientCoins) {
		t.Fatalf("want ErrInsufficientCoins, got %v", err)
	}
	if wallet.balances["u1"] != 5 {
		t.Fatalf("failed send must not change the balance, got %d", wallet.balances["u1"])
	}
}

func TestSendUnknownGift(t *testing.T) {
	svc := NewService(testCatalog(), Dependencies{Wallets: newMemWallet()})
	if _, err := svc.Send(context.Background(), "u1", "u2", "castle", ""); !errors.Is(err, ErrUnknownGift) {
		t.Fatalf("want ErrUnknownGift, got %v", err)
	}
}

func TestSendValidation(t *testing.T) {
	svc := NewService(testCatalog(), Dependencies{Wallets: newMemWallet()})
	if _, err := svc.Send(context.Background(), "u1", "u1", "rose", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("self gift should fail validation, got %v", err)
	}
}
