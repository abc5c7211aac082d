package postgres

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andkapach/amora/internal/domain/profile"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidCursor   = errors.New("invalid discovery cursor")
)

const (
	SortLastActive = "last_active"
	SortNewest     = "newest"
	SortAge        = "age"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// DiscoveryQuery carries every predicate the store can evaluate
// natively. Anything else (distance, block lists, completeness) is the
// caller's job.
type DiscoveryQuery struct {
	ViewerID     string
	ViewerGender string
	Country      string
	City         string
	Gender       string
	InterestedIn string
	Religion     string
	Education    string
	MinAge       int
	MaxAge       int
	VerifiedOnly bool
	PremiumOnly  bool
	ActiveAfter  time.Time
	Sort         string
	Cursor       string
	Limit        int
}

const profileColumns = `
	id,
	COALESCE(display_name, ''),
	COALESCE(age, 0),
	COALESCE(gender, ''),
	COALESCE(interested_in, ''),
	COALESCE(country, ''),
	COALESCE(city, ''),
	COALESCE(religion, ''),
	COALESCE(education, ''),
	latitude,
	longitude,
	is_verified,
	is_photo_verified,
	is_premium,
	is_blocked,
	is_paused,
	last_active_at,
	created_at,
	photos`

func (r *ProfileRepo) GetByID(ctx context.Context, id string) (profile.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return profile.Profile{}, fmt.Errorf("profile id is required")
	}
	if r.pool == nil {
		return profile.Profile{}, ErrProfileNotFound
	}

	row := r.pool.QueryRow(ctx, `SELECT`+profileColumns+` FROM profiles WHERE id = $1 LIMIT 1`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile.Profile{}, ErrProfileNotFound
		}
		return profile.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	return p, nil
}

// EnsureByPhone creates a directory record for the phone number on
// first login and returns the profile either way.
func (r *ProfileRepo) EnsureByPhone(ctx context.Context, id, phone string, now time.Time) (profile.Profile, error) {
	if r.pool == nil {
		return profile.Profile{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(phone) == "" {
		return profile.Profile{}, fmt.Errorf("invalid ensure profile payload")
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO profiles (id, phone, photos, last_active_at, created_at, updated_at)
VALUES ($1, $2, ARRAY['', '', '', '', '', ''], $3, $3, $3)
ON CONFLICT (phone) DO UPDATE SET
	last_active_at = EXCLUDED.last_active_at,
	updated_at = NOW()
RETURNING`+profileColumns, id, phone, now.UTC())

	p, err := scanProfile(row)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("ensure profile by phone: %w", err)
	}
	return p, nil
}

// ProfileUpdate is a partial field update; nil members are left as-is.
type ProfileUpdate struct {
	DisplayName  *string
	Age          *int
	Gender       *string
	InterestedIn *string
	Country      *string
	City         *string
	Religion     *string
	Education    *string
	IsPaused     *bool
	Photos       []string
}

func (r *ProfileRepo) UpdateFields(ctx context.Context, id string, upd ProfileUpdate) (profile.Profile, error) {
	if r.pool == nil {
		return profile.Profile{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(id) == "" {
		return profile.Profile{}, fmt.Errorf("profile id is required")
	}

	row := r.pool.QueryRow(ctx, `
UPDATE profiles SET
	display_name = COALESCE($2, display_name),
	age = COALESCE($3, age),
	gender = COALESCE($4, gender),
	interested_in = COALESCE($5, interested_in),
	country = COALESCE($6, country),
	city = COALESCE($7, city),
	religion = COALESCE($8, religion),
	education = COALESCE($9, education),
	is_paused = COALESCE($10, is_paused),
	photos = COALESCE($11, photos),
	updated_at = NOW()
WHERE id = $1
RETURNING`+profileColumns,
		id,
		upd.DisplayName,
		upd.Age,
		upd.Gender,
		upd.InterestedIn,
		upd.Country,
		upd.City,
		upd.Religion,
		upd.Education,
		upd.IsPaused,
		upd.Photos,
	)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile.Profile{}, ErrProfileNotFound
		}
		return profile.Profile{}, fmt.Errorf("update profile fields: %w", err)
	}
	return p, nil
}

func (r *ProfileRepo) SaveLocation(ctx context.Context, id string, lat, lon float64, at time.Time) error {
	if r.pool == nil {
		return nil
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE profiles SET
	latitude = $2,
	longitude = $3,
	last_active_at = $4,
	updated_at = NOW()
WHERE id = $1
`, id, lat, lon, at.UTC())
	if err != nil {
		return fmt.Errorf("save profile location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}

func (r *ProfileRepo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	if r.pool == nil {
		return nil
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE profiles SET last_active_at = $2, updated_at = NOW() WHERE id = $1
`, id, at.UTC()); err != nil {
		return fmt.Errorf("touch last active: %w", err)
	}
	return nil
}

func (r *ProfileRepo) SetVerified(ctx context.Context, id string, verified, photoVerified bool) error {
	if r.pool == nil {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `
UPDATE profiles SET is_verified = $2, is_photo_verified = $3, updated_at = NOW() WHERE id = $1
`, id, verified, photoVerified); err != nil {
		return fmt.Errorf("set verified flags: %w", err)
	}
	return nil
}

// SetPremium grants premium until the given moment.
func (r *ProfileRepo) SetPremium(ctx context.Context, id string, until time.Time) error {
	if r.pool == nil {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `
UPDATE profiles SET is_premium = TRUE, premium_until = $2, updated_at = NOW() WHERE id = $1
`, id, until.UTC()); err != nil {
		return fmt.Errorf("set premium: %w", err)
	}
	return nil
}

// ListCandidates returns one page of discoverable profiles matching the
// natively expressible predicates, plus an opaque continuation cursor.
func (r *ProfileRepo) ListCandidates(ctx context.Context, q DiscoveryQuery) ([]profile.Profile, string, error) {
	if strings.TrimSpace(q.ViewerID) == "" {
		return nil, "", fmt.Errorf("viewer id is required")
	}
	if q.Limit <= 0 {
		q.Limit = 40
	}
	if r.pool == nil {
		return []profile.Profile{}, "", nil
	}

	sort := q.Sort
	if sort == "" {
		sort = SortLastActive
	}

	cursor, hasCursor, err := decodePageCursor(q.Cursor, sort)
	if err != nil {
		return nil, "", err
	}

	args := []any{q.ViewerID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT` + profileColumns + `
FROM profiles p
WHERE
	p.id <> $1
	AND p.is_blocked = FALSE
	AND p.is_paused = FALSE
`)

	if q.Country != "" {
		sb.WriteString("\tAND p.country = " + arg(q.Country) + "\n")
	}
	if q.City != "" {
		sb.WriteString("\tAND p.city = " + arg(q.City) + "\n")
	}
	if q.Gender != "" {
		sb.WriteString("\tAND LOWER(p.gender) = LOWER(" + arg(q.Gender) + ")\n")
	}
	if q.InterestedIn != "" {
		sb.WriteString("\tAND LOWER(p.interested_in) = LOWER(" + arg(q.InterestedIn) + ")\n")
	}
	if q.ViewerGender != "" {
		sb.WriteString("\tAND (p.interested_in IS NULL OR p.interested_in IN ('', 'all', 'any') OR LOWER(p.interested_in) = LOWER(" + arg(q.ViewerGender) + "))\n")
	}
	if q.Religion != "" {
		sb.WriteString("\tAND p.religion = " + arg(q.Religion) + "\n")
	}
	if q.Education != "" {
		sb.WriteString("\tAND p.education = " + arg(q.Education) + "\n")
	}
	if q.MinAge > 0 {
		sb.WriteString("\tAND p.age >= " + arg(q.MinAge) + "\n")
	}
	if q.MaxAge > 0 {
		sb.WriteString("\tAND p.age <= " + arg(q.MaxAge) + "\n")
	}
	if q.VerifiedOnly {
		sb.WriteString("\tAND p.is_verified = TRUE\n")
	}
	if q.PremiumOnly {
		sb.WriteString("\tAND p.is_premium = TRUE\n")
	}
	if !q.ActiveAfter.IsZero() {
		sb.WriteString("\tAND p.last_active_at > " + arg(q.ActiveAfter.UTC()) + "\n")
	}

	switch sort {
	case SortLastActive:
		if hasCursor {
			ts := arg(time.UnixMilli(cursor.Value).UTC())
			id := arg(cursor.ID)
			sb.WriteString("\tAND (p.last_active_at < " + ts + " OR (p.last_active_at = " + ts + " AND p.id < " + id + "))\n")
		}
		sb.WriteString("ORDER BY p.last_active_at DESC, p.id DESC\n")
	case SortNewest:
		if hasCursor {
			ts := arg(time.UnixMilli(cursor.Value).UTC())
			id := arg(cursor.ID)
			sb.WriteString("\tAND (p.created_at < " + ts + " OR (p.created_at = " + ts + " AND p.id < " + id + "))\n")
		}
		sb.WriteString("ORDER BY p.created_at DESC, p.id DESC\n")
	case SortAge:
		if hasCursor {
			age := arg(int(cursor.Value))
			id := arg(cursor.ID)
			sb.WriteString("\tAND (p.age > " + age + " OR (p.age = " + age + " AND p.id > " + id + "))\n")
		}
		sb.WriteString("ORDER BY p.age ASC, p.id ASC\n")
	default:
		return nil, "", fmt.Errorf("unsupported sort %q", sort)
	}

	sb.WriteString("LIMIT " + arg(q.Limit))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, "", fmt.Errorf("list discovery candidates: %w", err)
	}
	defer rows.Close()

	items := make([]profile.Profile, 0, q.Limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan discovery candidate: %w", err)
		}
		items = append(items, p)
	}
	if rows.Err() != nil {
		return nil, "", fmt.Errorf("iterate discovery candidates: %w", rows.Err())
	}

	next := ""
	if len(items) > 0 {
		next, err = encodePageCursor(sort, items[len(items)-1])
		if err != nil {
			return nil, "", err
		}
	}

	return items, next, nil
}

type pageCursor struct {
	Sort  string `json:"s"`
	Value int64  `json:"v"`
	ID    string `json:"i"`
}

func encodePageCursor(sort string, last profile.Profile) (string, error) {
	cursor := pageCursor{Sort: sort, ID: last.ID}
	switch sort {
	case SortLastActive:
		cursor.Value = last.LastActiveAt.UTC().UnixMilli()
	case SortNewest:
		cursor.Value = last.CreatedAt.UTC().UnixMilli()
	case SortAge:
		cursor.Value = int64(last.Age)
	default:
		return "", fmt.Errorf("unsupported sort %q", sort)
	}

	payload, err := json.Marshal(cursor)
	if err != nil {
		return "", fmt.Errorf("marshal discovery cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

func decodePageCursor(raw, sort string) (pageCursor, bool, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return pageCursor{}, false, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return pageCursor{}, false, ErrInvalidCursor
	}

	var cursor pageCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return pageCursor{}, false, ErrInvalidCursor
	}
	if cursor.ID == "" || cursor.Sort != sort {
		return pageCursor{}, false, ErrInvalidCursor
	}

	return cursor, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (profile.Profile, error) {
	var p profile.Profile
	if err := row.Scan(
		&p.ID,
		&p.DisplayName,
		&p.Age,
		&p.Gender,
		&p.InterestedIn,
		&p.Country,
		&p.City,
		&p.Religion,
		&p.Education,
		&p.Latitude,
		&p.Longitude,
		&p.IsVerified,
		&p.IsPhotoVerified,
		&p.IsPremium,
		&p.IsBlocked,
		&p.IsPaused,
		&p.LastActiveAt,
		&p.CreatedAt,
		&p.Photos,
	); err != nil {
		return profile.Profile{}, err
	}

	p.Normalize()
	if err := p.Validate(); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}
