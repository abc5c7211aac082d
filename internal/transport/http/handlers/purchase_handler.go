package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/andkapach/amora/internal/services/auth"
	purchasesvc "github.com/andkapach/amora/internal/services/purchases"
	"github.com/andkapach/amora/internal/transport/http/dto"
	httperrors "github.com/andkapach/amora/internal/transport/http/errors"
)

const purchaseHistoryPageSize = 50

type PurchaseHandler struct {
	service *purchasesvc.Service
}

func NewPurchaseHandler(service *purchasesvc.Service) *PurchaseHandler {
	return &PurchaseHandler{service: service}
}

func (h *PurchaseHandler) Begin(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PURCHASE_SERVICE_UNAVAILABLE", "purchase service is unavailable")
		return
	}

	var req dto.BeginPurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.Begin(r.Context(), identity.UserID, req.SKU)
	if err != nil {
		handlePurchaseError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BeginPurchaseResponse{
		PurchaseID: res.PurchaseID,
		SKU:        res.SKU,
		ExpiresAt:  res.ExpiresAt,
	})
}

func (h *PurchaseHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PURCHASE_SERVICE_UNAVAILABLE", "purchase service is unavailable")
		return
	}

	var req dto.ConfirmPurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.Confirm(r.Context(), identity.UserID, req.SKU, req.ProviderTxID)
	if err != nil {
		handlePurchaseError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ConfirmPurchaseResponse{
		PurchaseID:       res.PurchaseID,
		SKU:              res.SKU,
		CoinsCredited:    res.CoinsCredited,
		PremiumGranted:   res.PremiumGranted,
		AlreadyProcessed: res.AlreadyProcessed,
	})
}

func (h *PurchaseHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PURCHASE_SERVICE_UNAVAILABLE", "purchase service is unavailable")
		return
	}

	records, err := h.service.History(r.Context(), identity.UserID, purchaseHistoryPageSize)
	if err != nil {
		handlePurchaseError(w, err)
		return
	}

	purchases := make([]dto.PurchaseHistoryItem, 0, len(records))
	for _, record := range records {
		purchases = append(purchases, dto.PurchaseHistoryItem{
			ID:          record.ID,
			SKU:         record.SKU,
			Status:      record.Status,
			CreatedAt:   record.CreatedAt,
			ConfirmedAt: record.ConfirmedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.PurchaseHistoryResponse{Purchases: purchases})
}

func handlePurchaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, purchasesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, purchasesvc.ErrUnknownSKU):
		writeNotFound(w, "SKU_NOT_FOUND", "unknown product")
	case errors.Is(err, purchasesvc.ErrNoPending):
		writeConflict(w, "NO_PENDING_PURCHASE", "no pending purchase for this product")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
