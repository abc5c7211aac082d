package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/andkapach/amora/internal/domain/profile"
	"github.com/andkapach/amora/internal/domain/rules"
	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
	"github.com/andkapach/amora/internal/services/geo"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50

	defaultResultCacheTTL       = 30 * time.Minute
	defaultRecentActivityWindow = 7 * 24 * time.Hour

	resultKeyPrefix  = "discover:"
	profileKeyPrefix = "profile:"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrRequesterNotFound = errors.New("requesting profile not found")
	ErrDiscoverFailed    = errors.New("failed to discover users")
)

type SortMode string

const (
	SortLastActive    SortMode = "last_active"
	SortNewest        SortMode = "newest"
	SortAge           SortMode = "age"
	SortDistance      SortMode = "distance"
	SortCompatibility SortMode = "compatibility"
)

// ParseSortMode maps a client-supplied sort name onto a mode. Unknown
// or empty names fall back to last activity.
func ParseSortMode(raw string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(raw))) {
	case SortNewest:
		return SortNewest
	case SortAge:
		return SortAge
	case SortDistance:
		return SortDistance
	case SortCompatibility:
		return SortCompatibility
	default:
		return SortLastActive
	}
}

type Filters struct {
	Country            string
	City               string
	Religion           string
	Education          string
	Gender             string
	InterestedIn       string
	FreeText           string
	MinAge             int
	MaxAge             int
	MaxDistanceKM      float64
	VerifiedOnly       bool
	RecentlyActiveOnly bool
	HasPhotosOnly      bool
	PremiumOnly        bool
}

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
	ListCandidates(ctx context.Context, q pgrepo.DiscoveryQuery) ([]profile.Profile, string, error)
}

type BlockStore interface {
	Relations(ctx context.Context, userID string) (map[string]struct{}, map[string]struct{}, error)
}

type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Remove(ctx context.Context, key string) error
}

type Result struct {
	Candidates []profile.Profile
	NextCursor string
	HasMore    bool
}

type Dependencies struct {
	Profiles ProfileStore
	Blocks   BlockStore
	Cache    Cache
	Logger   *zap.Logger
}

type Config struct {
	DefaultPageSize      int
	MaxPageSize          int
	ResultCacheTTL       time.Duration
	RecentActivityWindow time.Duration
}

type Service struct {
	profiles ProfileStore
	blocks   BlockStore
	cache    Cache
	logger   *zap.Logger
	cfg      Config
	now      func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = maxPageSize
	}
	if cfg.ResultCacheTTL <= 0 {
		cfg.ResultCacheTTL = defaultResultCacheTTL
	}
	if cfg.RecentActivityWindow <= 0 {
		cfg.RecentActivityWindow = defaultRecentActivityWindow
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		profiles: deps.Profiles,
		blocks:   deps.Blocks,
		cache:    deps.Cache,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Discover returns a page of candidate profiles for the viewer. First
// pages may be served from the result cache; everything else goes to
// the profile store with the heavier filters re-checked client side.
func (s *Service) Discover(ctx context.Context, viewerID string, f Filters, sortMode SortMode, cursor string, limit int) (Result, error) {
	if strings.TrimSpace(viewerID) == "" {
		return Result{}, ErrUnauthenticated
	}
	if err := validateFilters(f); err != nil {
		return Result{}, err
	}
	if s.profiles == nil {
		return Result{}, fmt.Errorf("profile store is nil")
	}

	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	viewer, err := s.profiles.GetByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return Result{}, ErrRequesterNotFound
		}
		s.logger.Error("discover: resolve requester", zap.String("viewer_id", viewerID), zap.Error(err))
		return Result{}, ErrDiscoverFailed
	}

	blocked, blockedBy, err := s.relations(ctx, viewerID)
	if err != nil {
		s.logger.Error("discover: load block relations", zap.String("viewer_id", viewerID), zap.Error(err))
		return Result{}, ErrDiscoverFailed
	}

	firstPage := strings.TrimSpace(cursor) == ""
	filterKey := s.cacheKey(f, sortMode)

	if firstPage {
		if cached, ok := s.fromCache(ctx, filterKey, viewer, f, blocked, blockedBy, limit); ok {
			return cached, nil
		}
	}

	fetchSize := limit * 2
	query := pgrepo.DiscoveryQuery{
		ViewerID:     viewerID,
		ViewerGender: viewer.Gender,
		Country:      f.Country,
		City:         f.City,
		Gender:       f.Gender,
		InterestedIn: f.InterestedIn,
		Religion:     f.Religion,
		Education:    f.Education,
		MinAge:       f.MinAge,
		MaxAge:       f.MaxAge,
		VerifiedOnly: f.VerifiedOnly,
		PremiumOnly:  f.PremiumOnly,
		Sort:         backendSort(sortMode),
		Cursor:       cursor,
		Limit:        fetchSize,
	}
	if f.RecentlyActiveOnly {
		query.ActiveAfter = s.now().UTC().Add(-s.cfg.RecentActivityWindow)
	}

	page, nextCursor, err := s.profiles.ListCandidates(ctx, query)
	if err != nil {
		if errors.Is(err, pgrepo.ErrInvalidCursor) {
			return Result{}, fmt.Errorf("bad page token: %w", ErrValidation)
		}
		s.logger.Error("discover: list candidates", zap.String("viewer_id", viewerID), zap.Error(err))
		return Result{}, ErrDiscoverFailed
	}

	hasMore := len(page) == fetchSize

	candidates := s.applyClientFilters(viewer, page, f, blocked, blockedBy)
	candidates = s.applySort(viewer, candidates, sortMode)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	if firstPage && len(candidates) > 0 {
		s.storeInCache(ctx, filterKey, candidates)
	}

	return Result{
		Candidates: candidates,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// InvalidateFirstPage drops the cached first page for a filter set, for
// callers that just changed data the page was built from.
func (s *Service) InvalidateFirstPage(ctx context.Context, f Filters, sortMode SortMode) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Remove(ctx, s.cacheKey(f, sortMode)); err != nil {
		s.logger.Warn("discover: invalidate cached page", zap.Error(err))
	}
}

func validateFilters(f Filters) error {
	if f.MinAge != 0 && (f.MinAge < profile.MinAge || f.MinAge > profile.MaxAge) {
		return fmt.Errorf("min age out of range: %w", ErrValidation)
	}
	if f.MaxAge != 0 && (f.MaxAge < profile.MinAge || f.MaxAge > profile.MaxAge) {
		return fmt.Errorf("max age out of range: %w", ErrValidation)
	}
	if f.MinAge != 0 && f.MaxAge != 0 && f.MinAge > f.MaxAge {
		return fmt.Errorf("min age above max age: %w", ErrValidation)
	}
	if f.MaxDistanceKM < 0 {
		return fmt.Errorf("negative max distance: %w", ErrValidation)
	}
	return nil
}

func (s *Service) relations(ctx context.Context, viewerID string) (map[string]struct{}, map[string]struct{}, error) {
	if s.blocks == nil {
		return map[string]struct{}{}, map[string]struct{}{}, nil
	}
	return s.blocks.Relations(ctx, viewerID)
}

// cacheKey intentionally covers only a subset of the filter fields, so
// two filter sets differing only in, say, religion share a cached
// page. Matching the long-standing client behavior was preferred over
// a stricter key.
func (s *Service) cacheKey(f Filters, sortMode SortMode) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(f.Country)),
		strings.ToLower(strings.TrimSpace(f.City)),
		strconv.Itoa(f.MinAge),
		strconv.Itoa(f.MaxAge),
		strings.ToLower(strings.TrimSpace(f.Gender)),
		string(sortMode),
	}
	return resultKeyPrefix + strings.Join(parts, "|")
}

func (s *Service) fromCache(ctx context.Context, filterKey string, viewer profile.Profile, f Filters, blocked, blockedBy map[string]struct{}, limit int) (Result, bool) {
	if s.cache == nil {
		return Result{}, false
	}

	raw, ok, err := s.cache.Get(ctx, filterKey)
	if err != nil {
		s.logger.Warn("discover: read cached page", zap.Error(err))
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		// Treat corrupt entries as a miss and drop them.
		s.logger.Warn("discover: corrupt cached page", zap.String("key", filterKey), zap.Error(err))
		if removeErr := s.cache.Remove(ctx, filterKey); removeErr != nil {
			s.logger.Warn("discover: drop corrupt cached page", zap.Error(removeErr))
		}
		return Result{}, false
	}

	candidates := make([]profile.Profile, 0, len(ids))
	for _, id := range ids {
		snapshot, found, err := s.cache.Get(ctx, profileKeyPrefix+id)
		if err != nil {
			s.logger.Warn("discover: read cached profile", zap.String("id", id), zap.Error(err))
			continue
		}
		if !found {
			continue
		}
		candidate, err := profile.DecodeSnapshot(snapshot)
		if err != nil {
			s.logger.Warn("discover: corrupt cached profile", zap.String("id", id), zap.Error(err))
			continue
		}
		candidates = append(candidates, candidate)
	}

	candidates = s.applyClientFilters(viewer, candidates, f, blocked, blockedBy)
	if len(candidates) == 0 {
		return Result{}, false
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return Result{Candidates: candidates}, true
}

func (s *Service) storeInCache(ctx context.Context, filterKey string, candidates []profile.Profile) {
	if s.cache == nil {
		return
	}

	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		ids = append(ids, candidate.ID)
	}

	payload, err := json.Marshal(ids)
	if err != nil {
		s.logger.Warn("discover: encode cached page", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, filterKey, string(payload), s.cfg.ResultCacheTTL); err != nil {
		s.logger.Warn("discover: write cached page", zap.Error(err))
		return
	}

	for _, candidate := range candidates {
		snapshot, err := candidate.EncodeSnapshot()
		if err != nil {
			s.logger.Warn("discover: encode cached profile", zap.String("id", candidate.ID), zap.Error(err))
			continue
		}
		if err := s.cache.Set(ctx, profileKeyPrefix+candidate.ID, snapshot, s.cfg.ResultCacheTTL); err != nil {
			s.logger.Warn("discover: write cached profile", zap.String("id", candidate.ID), zap.Error(err))
		}
	}
}

func (s *Service) applyClientFilters(viewer profile.Profile, page []profile.Profile, f Filters, blocked, blockedBy map[string]struct{}) []profile.Profile {
	needle := strings.ToLower(strings.TrimSpace(f.FreeText))

	out := make([]profile.Profile, 0, len(page))
	for _, candidate := range page {
		if candidate.ID == viewer.ID {
			continue
		}
		if _, ok := blocked[candidate.ID]; ok {
			continue
		}
		if _, ok := blockedBy[candidate.ID]; ok {
			continue
		}
		if f.MaxDistanceKM > 0 {
			if !viewer.HasCoordinates() || !candidate.HasCoordinates() {
				continue
			}
			distance := geo.DistanceKM(*viewer.Latitude, *viewer.Longitude, *candidate.Latitude, *candidate.Longitude)
			if distance > f.MaxDistanceKM {
				continue
			}
		}
		if f.HasPhotosOnly && !candidate.IsComplete() {
			continue
		}
		if needle != "" && !matchesFreeText(candidate, needle) {
			continue
		}
		out = append(out, candidate)
	}

	return out
}

func matchesFreeText(p profile.Profile, needle string) bool {
	for _, field := range []string{p.DisplayName, p.City, p.Country} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// applySort re-sorts by compatibility for the score-driven modes. The
// distance mode shares the compatibility ordering, which mirrors what
// clients have always been shown.
func (s *Service) applySort(viewer profile.Profile, candidates []profile.Profile, sortMode SortMode) []profile.Profile {
	if sortMode != SortCompatibility && sortMode != SortDistance {
		return candidates
	}

	type ranked struct {
		candidate profile.Profile
		score     float64
	}

	rankedList := make([]ranked, 0, len(candidates))
	for _, candidate := range candidates {
		rankedList = append(rankedList, ranked{
			candidate: candidate,
			score:     rules.CompatibilityScore(viewer, candidate),
		})
	}

	sort.SliceStable(rankedList, func(i, j int) bool {
		if rankedList[i].score != rankedList[j].score {
			return rankedList[i].score > rankedList[j].score
		}
		return rankedList[i].candidate.ID < rankedList[j].candidate.ID
	})

	out := make([]profile.Profile, 0, len(rankedList))
	for _, r := range rankedList {
		out = append(out, r.candidate)
	}
	return out
}

func backendSort(sortMode SortMode) string {
	switch sortMode {
	case SortNewest:
		return pgrepo.SortNewest
	case SortAge:
		return pgrepo.SortAge
	default:
		return pgrepo.SortLastActive
	}
}
