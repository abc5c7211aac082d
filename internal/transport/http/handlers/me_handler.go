package handlers

import (
	"errors"
	"net/http"

	"github.com/andkapach/amora/internal/domain/profile"
	authsvc "github.com/andkapach/amora/internal/services/auth"
	geosvc "github.com/andkapach/amora/internal/services/geo"
	mediasvc "github.com/andkapach/amora/internal/services/media"
	profilesvc "github.com/andkapach/amora/internal/services/profiles"
	"github.com/andkapach/amora/internal/transport/http/dto"
	httperrors "github.com/andkapach/amora/internal/transport/http/errors"
)

type MeHandler struct {
	profiles *profilesvc.Service
	geo      *geosvc.Service
	media    *mediasvc.Service
}

func NewMeHandler(profiles *profilesvc.Service, geo *geosvc.Service, media *mediasvc.Service) *MeHandler {
	return &MeHandler{profiles: profiles, geo: geo, media: media}
}

func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	p, err := h.profiles.Get(r.Context(), identity.UserID)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	resp := profileToDTO(p)
	if h.media != nil {
		if photos, err := h.media.PhotoURLs(r.Context(), p); err == nil {
			urls := make([]string, 0, len(photos))
			for _, photo := range photos {
				urls = append(urls, photo.URL)
			}
			resp.PhotoURLs = urls
		}
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *MeHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	p, err := h.profiles.Update(r.Context(), identity.UserID, profilesvc.Update{
		DisplayName:  req.DisplayName,
		Age:          req.Age,
		Gender:       req.Gender,
		InterestedIn: req.InterestedIn,
		Country:      req.Country,
		City:         req.City,
		Religion:     req.Religion,
		Education:    req.Education,
		IsPaused:     req.IsPaused,
		Photos:       req.Photos,
	})
	if err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, profileToDTO(p))
}

func (h *MeHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.geo == nil {
		writeInternal(w, "GEO_SERVICE_UNAVAILABLE", "geo service is unavailable")
		return
	}

	var req dto.UpdateLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.geo.UpdateLocation(r.Context(), identity.UserID, req.Latitude, req.Longitude); err != nil {
		if errors.Is(err, geosvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "coordinates out of range")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *MeHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.BlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.profiles.Unblock(r.Context(), identity.UserID, req.TargetID); err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func handleProfileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profilesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, profilesvc.ErrNotFound):
		writeNotFound(w, "PROFILE_NOT_FOUND", "profile not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func profileToDTO(p profile.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:              p.ID,
		DisplayName:     p.DisplayName,
		Age:             p.Age,
		Gender:          p.Gender,
		InterestedIn:    p.InterestedIn,
		Country:         p.Country,
		City:            p.City,
		Religion:        p.Religion,
		Education:       p.Education,
		IsVerified:      p.IsVerified,
		IsPhotoVerified: p.IsPhotoVerified,
		IsPremium:       p.IsPremium,
		IsPaused:        p.IsPaused,
		Photos:          p.Photos,
	}
}
