package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/andkapach/amora/internal/services/auth"
	giftsvc "github.com/andkapach/amora/internal/services/gifts"
	"github.com/andkapach/amora/internal/transport/http/dto"
	httperrors "github.com/andkapach/amora/internal/transport/http/errors"
)

const receivedGiftsPageSize = 100

type GiftsHandler struct {
	service *giftsvc.Service
}

func NewGiftsHandler(service *giftsvc.Service) *GiftsHandler {
	return &GiftsHandler{service: service}
}

// Catalog returns the gift catalog together with the caller's coin
// balance so the client can render the shop in one round trip.
func (h *GiftsHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "GIFT_SERVICE_UNAVAILABLE", "gift service is unavailable")
		return
	}

	balance, err := h.service.Balance(r.Context(), identity.UserID)
	if err != nil {
		handleGiftError(w, err)
		return
	}

	catalog := h.service.Catalog()
	gifts := make([]dto.GiftResponse, 0, len(catalog))
	for _, gift := range catalog {
		gifts = append(gifts, dto.GiftResponse{
			ID:         gift.ID,
			Title:      gift.Title,
			PriceCoins: gift.PriceCoins,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.GiftCatalogResponse{
		Gifts:   gifts,
		Balance: balance,
	})
}

func (h *GiftsHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "GIFT_SERVICE_UNAVAILABLE", "gift service is unavailable")
		return
	}

	var req dto.SendGiftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	gift, err := h.service.Send(r.Context(), identity.UserID, req.ToID, req.GiftID, req.Note)
	if err != nil {
		handleGiftError(w, err)
		return
	}

	balance, err := h.service.Balance(r.Context(), identity.UserID)
	if err != nil {
		handleGiftError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SendGiftResponse{
		Gift: dto.GiftResponse{
			ID:         gift.ID,
			Title:      gift.Title,
			PriceCoins: gift.PriceCoins,
		},
		Balance: balance,
	})
}

func (h *GiftsHandler) Received(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "GIFT_SERVICE_UNAVAILABLE", "gift service is unavailable")
		return
	}

	records, err := h.service.Received(r.Context(), identity.UserID, receivedGiftsPageSize)
	if err != nil {
		handleGiftError(w, err)
		return
	}

	gifts := make([]dto.ReceivedGiftResponse, 0, len(records))
	for _, record := range records {
		gifts = append(gifts, dto.ReceivedGiftResponse{
			ID:       record.ID,
			GiftID:   record.GiftID,
			SenderID: record.SenderID,
			SentAt:   record.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.ReceivedGiftsResponse{Gifts: gifts})
}

func handleGiftError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, giftsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, giftsvc.ErrUnknownGift):
		writeNotFound(w, "GIFT_NOT_FOUND", "unknown gift")
	case errors.Is(err, giftsvc.ErrInsufficientCoins):
		httperrors.Write(w, http.StatusPaymentRequired, httperrors.APIError{
			Code:    "INSUFFICIENT_COINS",
			Message: "not enough coins",
		})
	case errors.Is(err, giftsvc.ErrBlocked):
		writeForbidden(w, "BLOCKED", "pair is blocked")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
