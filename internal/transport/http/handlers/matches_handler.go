package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/andkapach/amora/internal/services/auth"
	matchsvc "github.com/andkapach/amora/internal/services/matches"
	"github.com/andkapach/amora/internal/transport/http/dto"
	httperrors "github.com/andkapach/amora/internal/transport/http/errors"
)

const matchesPageSize = 100

type MatchesHandler struct {
	service *matchsvc.Service
}

func NewMatchesHandler(service *matchsvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) Like(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	var req dto.LikeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.Like(r.Context(), identity.UserID, req.TargetID)
	if err != nil {
		handleMatchError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.LikeResponse{
		Matched: res.Matched,
		MatchID: res.MatchID,
	})
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	records, err := h.service.List(r.Context(), identity.UserID, matchesPageSize)
	if err != nil {
		handleMatchError(w, err)
		return
	}

	matches := make([]dto.MatchResponse, 0, len(records))
	for _, record := range records {
		matches = append(matches, dto.MatchResponse{
			ID:          record.ID,
			UserID:      record.TargetID,
			DisplayName: record.DisplayName,
			Age:         record.Age,
			City:        record.City,
			CreatedAt:   record.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, matches)
}

func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	var req dto.UnmatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.Unmatch(r.Context(), identity.UserID, req.TargetID); err != nil {
		handleMatchError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

// BlockAndUnmatch handles the block endpoint variant that also removes
// an existing match with the target.
func (h *MatchesHandler) BlockAndUnmatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	var req dto.BlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.BlockAndUnmatch(r.Context(), identity.UserID, req.TargetID); err != nil {
		handleMatchError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func handleMatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, matchsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, matchsvc.ErrBlocked):
		writeForbidden(w, "BLOCKED", "pair is blocked")
	case errors.Is(err, matchsvc.ErrNotFound):
		writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
