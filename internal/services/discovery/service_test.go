package discovery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/andkapach/amora/internal/domain/profile"
	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
	redrepo "github.com/andkapach/amora/internal/repo/redis"
	"github.com/andkapach/amora/internal/services/discovery"
)

type stubProfiles struct {
	viewer    profile.Profile
	viewerErr error

	page       []profile.Profile
	nextCursor string
	listErr    error

	getCalls  int
	listCalls int
	lastQuery pgrepo.DiscoveryQuery
}

func (s *stubProfiles) GetByID(_ context.Context, id string) (profile.Profile, error) {
	s.getCalls++
	if s.viewerErr != nil {
		return profile.Profile{}, s.viewerErr
	}
	if id != s.viewer.ID {
		return profile.Profile{}, pgrepo.ErrProfileNotFound
	}
	return s.viewer, nil
}

func (s *stubProfiles) ListCandidates(_ context.Context, q pgrepo.DiscoveryQuery) ([]profile.Profile, string, error) {
	s.listCalls++
	s.lastQuery = q
	if s.listErr != nil {
		return nil, "", s.listErr
	}

	out := make([]profile.Profile, 0, len(s.page))
	for _, p := range s.page {
		if q.MinAge > 0 && p.Age < q.MinAge {
			continue
		}
		if q.MaxAge > 0 && p.Age > q.MaxAge {
			continue
		}
		out = append(out, p)
		if len(out) == q.Limit {
			break
		}
	}
	return out, s.nextCursor, nil
}

type stubBlocks struct {
	blocked   map[string]struct{}
	blockedBy map[string]struct{}
	err       error
	calls     int
}

func (s *stubBlocks) Relations(_ context.Context, _ string) (map[string]struct{}, map[string]struct{}, error) {
	s.calls++
	if s.err != nil {
		return nil, nil, s.err
	}
	blocked := s.blocked
	if blocked == nil {
		blocked = map[string]struct{}{}
	}
	blockedBy := s.blockedBy
	if blockedBy == nil {
		blockedBy = map[string]struct{}{}
	}
	return blocked, blockedBy, nil
}

type memCache struct {
	entries  map[string]string
	setCalls int
	getCalls int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]string)}
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.setCalls++
	c.entries[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, bool, error) {
	c.getCalls++
	value, ok := c.entries[key]
	return value, ok, nil
}

func (c *memCache) Remove(_ context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func coord(v float64) *float64 { return &v }

func makeCandidate(id string, age int) profile.Profile {
	return profile.Profile{
		ID:           id,
		DisplayName:  "User " + id,
		Age:          age,
		Gender:       "female",
		InterestedIn: "male",
		Country:      "us",
		City:         "nyc",
		Photos:       []string{"photos/" + id + ".jpg", "", "", "", "", ""},
		LastActiveAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func makeViewer() profile.Profile {
	viewer := makeCandidate("viewer", 30)
	viewer.Gender = "male"
	viewer.InterestedIn = "female"
	return viewer
}

func newDiscoveryForTest(profiles *stubProfiles, blocks *stubBlocks, cache discovery.Cache) *discovery.Service {
	return discovery.NewService(discovery.Dependencies{
		Profiles: profiles,
		Blocks:   blocks,
		Cache:    cache,
	}, discovery.Config{
		DefaultPageSize: 20,
		MaxPageSize:     50,
		ResultCacheTTL:  30 * time.Minute,
	})
}

func TestDiscoverValidatesBeforeAnyIO(t *testing.T) {
	profiles := &stubProfiles{viewer: makeViewer()}
	blocks := &stubBlocks{}
	svc := newDiscoveryForTest(profiles, blocks, newMemCache())
	ctx := context.Background()

	badFilters := []discovery.Filters{
		{MinAge: 40, MaxAge: 20},
		{MinAge: 17},
		{MaxAge: 121},
		{MaxDistanceKM: -1},
	}

	for _, f := range badFilters {
		if _, err := svc.Discover(ctx, "viewer", f, discovery.SortLastActive, "", 10); !errors.Is(err, discovery.ErrValidation) {
			t.Fatalf("filters %+v: want ErrValidation, got %v", f, err)
		}
	}

	if profiles.getCalls != 0 || profiles.listCalls != 0 || blocks.calls != 0 {
		t.Fatalf("validation failures must not touch stores: gets=%d lists=%d blocks=%d",
			profiles.getCalls, profiles.listCalls, blocks.calls)
	}
}

func TestDiscoverRequiresViewer(t *testing.T) {
	profiles := &stubProfiles{viewer: makeViewer()}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())

	if _, err := svc.Discover(context.Background(), "  ", discovery.Filters{}, discovery.SortLastActive, "", 10); !errors.Is(err, discovery.ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
	if profiles.getCalls != 0 {
		t.Fatalf("unauthenticated call must not touch stores")
	}
}

func TestDiscoverUnknownRequester(t *testing.T) {
	profiles := &stubProfiles{viewer: makeViewer()}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())

	if _, err := svc.Discover(context.Background(), "ghost", discovery.Filters{}, discovery.SortLastActive, "", 10); !errors.Is(err, discovery.ErrRequesterNotFound) {
		t.Fatalf("want ErrRequesterNotFound, got %v", err)
	}
}

func TestDiscoverBackendFailureIsGeneric(t *testing.T) {
	profiles := &stubProfiles{viewer: makeViewer(), listErr: errors.New("connection refused")}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())

	_, err := svc.Discover(context.Background(), "viewer", discovery.Filters{}, discovery.SortLastActive, "", 10)
	if !errors.Is(err, discovery.ErrDiscoverFailed) {
		t.Fatalf("want ErrDiscoverFailed, got %v", err)
	}
}

func TestDiscoverExcludesSelfAndBlocked(t *testing.T) {
	viewer := makeViewer()
	profiles := &stubProfiles{
		viewer: viewer,
		page: []profile.Profile{
			viewer,
			makeCandidate("a", 28),
			makeCandidate("b", 29),
			makeCandidate("c", 31),
		},
	}
	blocks := &stubBlocks{
		blocked:   map[string]struct{}{"b": {}},
		blockedBy: map[string]struct{}{"c": {}},
	}
	svc := newDiscoveryForTest(profiles, blocks, newMemCache())

	res, err := svc.Discover(context.Background(), "viewer", discovery.Filters{}, discovery.SortLastActive, "", 10)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].ID != "a" {
		t.Fatalf("expected only candidate a, got %+v", res.Candidates)
	}
}

func TestDiscoverDistanceFilter(t *testing.T) {
	viewer := makeViewer()
	viewer.Latitude = coord(0)
	viewer.Longitude = coord(0)

	near := makeCandidate("near", 28)
	near.Latitude = coord(0)
	near.Longitude = coord(0.1) // ~11.1 km away

	noCoords := makeCandidate("nocoords", 29)

	profiles := &stubProfiles{viewer: viewer, page: []profile.Profile{near, noCoords}}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())
	ctx := context.Background()

	res, err := svc.Discover(ctx, "viewer", discovery.Filters{MaxDistanceKM: 10}, discovery.SortLastActive, "", 10)
	if err != nil {
		t.Fatalf("discover with 10km: %v", err)
	}
	if len(res.Candidates) != 0 {
		t.Fatalf("10km filter should exclude the ~11.1km candidate, got %+v", res.Candidates)
	}

	res, err = svc.Discover(ctx, "viewer", discovery.Filters{MaxDistanceKM: 20}, discovery.SortLastActive, "c2", 10)
	if err != nil {
		t.Fatalf("discover with 20km: %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].ID != "near" {
		t.Fatalf("20km filter should keep only the candidate with coordinates, got %+v", res.Candidates)
	}
}

func TestDiscoverAgeWindow(t *testing.T) {
	profiles := &stubProfiles{
		viewer: makeViewer(),
		page: []profile.Profile{
			makeCandidate("p20", 20),
			makeCandidate("p28", 28),
			makeCandidate("p31", 31),
			makeCandidate("p40", 40),
			makeCandidate("p33", 33),
		},
	}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())

	res, err := svc.Discover(context.Background(), "viewer", discovery.Filters{MinAge: 25, MaxAge: 35}, discovery.SortLastActive, "", 10)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	got := map[string]bool{}
	for _, c := range res.Candidates {
		got[c.ID] = true
	}
	if len(got) != 3 || !got["p28"] || !got["p31"] || !got["p33"] {
		t.Fatalf("expected ages 28, 31, 33, got %+v", res.Candidates)
	}
	if profiles.lastQuery.MinAge != 25 || profiles.lastQuery.MaxAge != 35 {
		t.Fatalf("age range not pushed to the store: %+v", profiles.lastQuery)
	}
}

func TestDiscoverFetchesDoublePageAndReportsHasMore(t *testing.T) {
	page := make([]profile.Profile, 0, 20)
	for i := 0; i < 20; i++ {
		page = append(page, makeCandidate("p"+string(rune('a'+i)), 25+i%10))
	}
	profiles := &stubProfiles{viewer: makeViewer(), page: page, nextCursor: "next"}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())

	res, err := svc.Discover(context.Background(), "viewer", discovery.Filters{}, discovery.SortLastActive, "", 10)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if profiles.lastQuery.Limit != 20 {
		t.Fatalf("fetch size = %d, want twice the requested page", profiles.lastQuery.Limit)
	}
	if len(res.Candidates) != 10 {
		t.Fatalf("result truncated to %d, want 10", len(res.Candidates))
	}
	if !res.HasMore {
		t.Fatalf("full raw page should report more results")
	}
	if res.NextCursor != "next" {
		t.Fatalf("cursor = %q, want store cursor", res.NextCursor)
	}
}

func TestDiscoverShortPageMeansNoMore(t *testing.T) {
	profiles := &stubProfiles{viewer: makeViewer(), page: []profile.Profile{makeCandidate("a", 25)}}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())

	res, err := svc.Discover(context.Background(), "viewer", discovery.Filters{}, discovery.SortLastActive, "", 10)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if res.HasMore {
		t.Fatalf("short raw page should not report more results")
	}
}

func TestDiscoverCompatibilitySort(t *testing.T) {
	viewer := makeViewer()

	// best shares age, country and city with the viewer; good loses the
	// city factor; far mismatches on almost everything.
	best := makeCandidate("best", 30)
	good := makeCandidate("good", 30)
	good.City = "la"
	far := makeCandidate("far", 45)
	far.Country = "fr"
	far.City = "paris"

	profiles := &stubProfiles{viewer: viewer, page: []profile.Profile{far, good, best}}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())

	res, err := svc.Discover(context.Background(), "viewer", discovery.Filters{}, discovery.SortCompatibility, "", 10)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	wantOrder := []string{"best", "good", "far"}
	if len(res.Candidates) != len(wantOrder) {
		t.Fatalf("got %d candidates, want %d", len(res.Candidates), len(wantOrder))
	}
	for i, want := range wantOrder {
		if res.Candidates[i].ID != want {
			t.Fatalf("position %d: got %s, want %s (full: %+v)", i, res.Candidates[i].ID, want, res.Candidates)
		}
	}
}

// Distance sort reuses the compatibility ordering rather than sorting
// by true distance. The test pins that behavior.
func TestDistanceSortMatchesCompatibilityOrdering(t *testing.T) {
	viewer := makeViewer()
	viewer.Latitude = coord(0)
	viewer.Longitude = coord(0)

	// Physically nearest but least compatible.
	nearest := makeCandidate("nearest", 45)
	nearest.Country = "fr"
	nearest.City = "paris"
	nearest.Latitude = coord(0)
	nearest.Longitude = coord(0.01)

	// Physically farthest but most compatible.
	farthest := makeCandidate("farthest", 30)
	farthest.Latitude = coord(10)
	farthest.Longitude = coord(10)

	profiles := &stubProfiles{viewer: viewer, page: []profile.Profile{nearest, farthest}}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())

	res, err := svc.Discover(context.Background(), "viewer", discovery.Filters{}, discovery.SortDistance, "", 10)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(res.Candidates) != 2 || res.Candidates[0].ID != "farthest" {
		t.Fatalf("distance sort should order by score, got %+v", res.Candidates)
	}
}

func TestDiscoverFreeTextFilter(t *testing.T) {
	alice := makeCandidate("alice", 28)
	alice.DisplayName = "Alice"
	bob := makeCandidate("bob", 29)
	bob.DisplayName = "Bob"

	profiles := &stubProfiles{viewer: makeViewer(), page: []profile.Profile{alice, bob}}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())

	res, err := svc.Discover(context.Background(), "viewer", discovery.Filters{FreeText: "ali"}, discovery.SortLastActive, "", 10)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].ID != "alice" {
		t.Fatalf("free text filter got %+v", res.Candidates)
	}
}

func TestDiscoverIncompleteProfilesDroppedWhenRequested(t *testing.T) {
	complete := makeCandidate("complete", 28)
	incomplete := makeCandidate("incomplete", 29)
	incomplete.Photos = []string{"", "", "", "", "", ""}

	profiles := &stubProfiles{viewer: makeViewer(), page: []profile.Profile{complete, incomplete}}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())
	ctx := context.Background()

	res, err := svc.Discover(ctx, "viewer", discovery.Filters{HasPhotosOnly: true}, discovery.SortLastActive, "", 10)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].ID != "complete" {
		t.Fatalf("completeness filter got %+v", res.Candidates)
	}

	res, err = svc.Discover(ctx, "viewer", discovery.Filters{}, discovery.SortLastActive, "c2", 10)
	if err != nil {
		t.Fatalf("discover without filter: %v", err)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("without the filter both candidates should pass, got %+v", res.Candidates)
	}
}

func TestDiscoverFirstPageServedFromCache(t *testing.T) {
	profiles := &stubProfiles{
		viewer: makeViewer(),
		page:   []profile.Profile{makeCandidate("a", 28), makeCandidate("b", 31)},
	}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())
	ctx := context.Background()
	filters := discovery.Filters{Country: "us", City: "nyc", MinAge: 25, MaxAge: 35}

	first, err := svc.Discover(ctx, "viewer", filters, discovery.SortLastActive, "", 10)
	if err != nil {
		t.Fatalf("first discover: %v", err)
	}
	if len(first.Candidates) != 2 {
		t.Fatalf("first page got %+v", first.Candidates)
	}
	if profiles.listCalls != 1 {
		t.Fatalf("first page should hit the store once, got %d", profiles.listCalls)
	}

	second, err := svc.Discover(ctx, "viewer", filters, discovery.SortLastActive, "", 10)
	if err != nil {
		t.Fatalf("second discover: %v", err)
	}
	if profiles.listCalls != 1 {
		t.Fatalf("cached page should not hit the store again, got %d calls", profiles.listCalls)
	}
	if len(second.Candidates) != 2 {
		t.Fatalf("cached page got %+v", second.Candidates)
	}
	if second.HasMore || second.NextCursor != "" {
		t.Fatalf("cache-served page must not promise more pages: %+v", second)
	}
}

func TestDiscoverCursorBypassesCache(t *testing.T) {
	profiles := &stubProfiles{
		viewer: makeViewer(),
		page:   []profile.Profile{makeCandidate("a", 28)},
	}
	cache := newMemCache()
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, cache)
	ctx := context.Background()

	if _, err := svc.Discover(ctx, "viewer", discovery.Filters{}, discovery.SortLastActive, "", 10); err != nil {
		t.Fatalf("first discover: %v", err)
	}
	if _, err := svc.Discover(ctx, "viewer", discovery.Filters{}, discovery.SortLastActive, "page2", 10); err != nil {
		t.Fatalf("cursor discover: %v", err)
	}
	if profiles.listCalls != 2 {
		t.Fatalf("cursor pages must always hit the store, got %d calls", profiles.listCalls)
	}
}

// The page cache key covers only country, city, age range, gender and
// sort. Two filter sets differing in any other field collide on the
// same cached page. The test documents that collision.
func TestDiscoverCacheKeyIgnoresSomeFilters(t *testing.T) {
	profiles := &stubProfiles{
		viewer: makeViewer(),
		page:   []profile.Profile{makeCandidate("a", 28)},
	}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())
	ctx := context.Background()

	if _, err := svc.Discover(ctx, "viewer", discovery.Filters{Religion: "a"}, discovery.SortLastActive, "", 10); err != nil {
		t.Fatalf("first discover: %v", err)
	}
	if _, err := svc.Discover(ctx, "viewer", discovery.Filters{Religion: "b"}, discovery.SortLastActive, "", 10); err != nil {
		t.Fatalf("second discover: %v", err)
	}
	if profiles.listCalls != 1 {
		t.Fatalf("filter sets differing only in religion share a cached page; store calls = %d", profiles.listCalls)
	}
}

func TestDiscoverCacheExpiryFallsBackToStore(t *testing.T) {
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mini.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	defer client.Close()

	profiles := &stubProfiles{
		viewer: makeViewer(),
		page:   []profile.Profile{makeCandidate("a", 28)},
	}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, redrepo.NewCacheRepo(client))
	ctx := context.Background()

	if _, err := svc.Discover(ctx, "viewer", discovery.Filters{}, discovery.SortLastActive, "", 10); err != nil {
		t.Fatalf("first discover: %v", err)
	}
	if _, err := svc.Discover(ctx, "viewer", discovery.Filters{}, discovery.SortLastActive, "", 10); err != nil {
		t.Fatalf("cached discover: %v", err)
	}
	if profiles.listCalls != 1 {
		t.Fatalf("expected cache hit before expiry, store calls = %d", profiles.listCalls)
	}

	mini.FastForward(31 * time.Minute)

	if _, err := svc.Discover(ctx, "viewer", discovery.Filters{}, discovery.SortLastActive, "", 10); err != nil {
		t.Fatalf("post-expiry discover: %v", err)
	}
	if profiles.listCalls != 2 {
		t.Fatalf("expired page should hit the store again, calls = %d", profiles.listCalls)
	}
}

func TestParseSortMode(t *testing.T) {
	cases := map[string]discovery.SortMode{
		"":              discovery.SortLastActive,
		"last_active":   discovery.SortLastActive,
		"NEWEST":        discovery.SortNewest,
		"age":           discovery.SortAge,
		"distance":      discovery.SortDistance,
		"compatibility": discovery.SortCompatibility,
		"garbage":       discovery.SortLastActive,
	}
	for raw, want := range cases {
		if got := discovery.ParseSortMode(raw); got != want {
			t.Fatalf("ParseSortMode(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestInvalidateFirstPageForcesStoreHit(t *testing.T) {
	profiles := &stubProfiles{
		viewer: makeViewer(),
		page:   []profile.Profile{makeCandidate("a", 28)},
	}
	svc := newDiscoveryForTest(profiles, &stubBlocks{}, newMemCache())
	ctx := context.Background()
	filters := discovery.Filters{Country: "us"}

	if _, err := svc.Discover(ctx, "viewer", filters, discovery.SortLastActive, "", 10); err != nil {
		t.Fatalf("first discover: %v", err)
	}
	if _, err := svc.Discover(ctx, "viewer", filters, discovery.SortLastActive, "", 10); err != nil {
		t.Fatalf("cached discover: %v", err)
	}
	if profiles.listCalls != 1 {
		t.Fatalf("expected cache hit, store calls = %d", profiles.listCalls)
	}

	svc.InvalidateFirstPage(ctx, filters, discovery.SortLastActive)

	if _, err := svc.Discover(ctx, "viewer", filters, discovery.SortLastActive, "", 10); err != nil {
		t.Fatalf("post-invalidation discover: %v", err)
	}
	if profiles.listCalls != 2 {
		t.Fatalf("invalidated page should hit the store again, calls = %d", profiles.listCalls)
	}
}
