package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/andkapach/amora/internal/services/auth"
	discoverysvc "github.com/andkapach/amora/internal/services/discovery"
	"github.com/andkapach/amora/internal/transport/http/dto"
	httperrors "github.com/andkapach/amora/internal/transport/http/errors"
)

type DiscoverHandler struct {
	service *discoverysvc.Service
}

func NewDiscoverHandler(service *discoverysvc.Service) *DiscoverHandler {
	return &DiscoverHandler{service: service}
}

func (h *DiscoverHandler) Discover(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "DISCOVERY_SERVICE_UNAVAILABLE", "discovery service is unavailable")
		return
	}

	var req dto.DiscoverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	filters := discoverysvc.Filters{
		Country:            req.Country,
		City:               req.City,
		Religion:           req.Religion,
		Education:          req.Education,
		Gender:             req.Gender,
		InterestedIn:       req.InterestedIn,
		FreeText:           req.FreeText,
		MinAge:             req.MinAge,
		MaxAge:             req.MaxAge,
		MaxDistanceKM:      req.MaxDistanceKM,
		VerifiedOnly:       req.VerifiedOnly,
		RecentlyActiveOnly: req.RecentlyActiveOnly,
		HasPhotosOnly:      req.HasPhotosOnly,
		PremiumOnly:        req.PremiumOnly,
	}

	res, err := h.service.Discover(r.Context(), identity.UserID, filters, discoverysvc.ParseSortMode(req.Sort), req.PageToken, req.Limit)
	if err != nil {
		handleDiscoverError(w, err)
		return
	}

	candidates := make([]dto.ProfileResponse, 0, len(res.Candidates))
	for _, candidate := range res.Candidates {
		candidates = append(candidates, profileToDTO(candidate))
	}

	httperrors.Write(w, http.StatusOK, dto.DiscoverResponse{
		Candidates:    candidates,
		NextPageToken: res.NextCursor,
		HasMore:       res.HasMore,
	})
}

func handleDiscoverError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, discoverysvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "filter validation failed")
	case errors.Is(err, discoverysvc.ErrUnauthenticated):
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
	case errors.Is(err, discoverysvc.ErrRequesterNotFound):
		writeNotFound(w, "PROFILE_NOT_FOUND", "requesting profile not found")
	default:
		writeInternal(w, "DISCOVER_FAILED", "failed to discover users")
	}
}
