package dto

import "time"

type GiftResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	PriceCoins int64  `json:"price_coins"`
}

type GiftCatalogResponse struct {
	Gifts   []GiftResponse `json:"gifts"`
	Balance int64          `json:"balance"`
}

type SendGiftRequest struct {
	ToID   string `json:"to_id"`
	GiftID string `json:"gift_id"`
	Note   string `json:"note"`
}

type SendGiftResponse struct {
	Gift    GiftResponse `json:"gift"`
	Balance int64        `json:"balance"`
}

type ReceivedGiftResponse struct {
	ID       string    `json:"id"`
	GiftID   string    `json:"gift_id"`
	SenderID string    `json:"sender_id"`
	SentAt   time.Time `json:"sent_at"`
}

type ReceivedGiftsResponse struct {
	Gifts []ReceivedGiftResponse `json:"gifts"`
}

type BeginPurchaseRequest struct {
	SKU string `json:"sku"`
}

type BeginPurchaseResponse struct {
	PurchaseID string    `json:"purchase_id"`
	SKU        string    `json:"sku"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type ConfirmPurchaseRequest struct {
	SKU          string `json:"sku"`
	ProviderTxID string `json:"provider_tx_id"`
}

type ConfirmPurchaseResponse struct {
	PurchaseID       string `json:"purchase_id,omitempty"`
	SKU              string `json:"sku"`
	CoinsCredited    int64  `json:"coins_credited"`
	PremiumGranted   bool   `json:"premium_granted"`
	AlreadyProcessed bool   `json:"already_processed"`
}

type PurchaseHistoryItem struct {
	ID          string     `json:"id"`
	SKU         string     `json:"sku"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

type PurchaseHistoryResponse struct {
	Purchases []PurchaseHistoryItem `json:"purchases"`
}

type UploadPhotoResponse struct {
	Slot int    `json:"slot"`
	URL  string `json:"url"`
}
