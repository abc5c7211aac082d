package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	PhotoSlots = 6

	MinAge = 18
	MaxAge = 120
)

var ErrInvalidRecord = errors.New("invalid profile record")

// Profile is the strict in-process shape of a user directory record.
// Optional string fields use "" as absent, Age uses 0, coordinates are
// either both set or both nil.
type Profile struct {
	ID              string     `json:"id"`
	DisplayName     string     `json:"display_name"`
	Age             int        `json:"age"`
	Gender          string     `json:"gender"`
	InterestedIn    string     `json:"interested_in"`
	Country         string     `json:"country"`
	City            string     `json:"city"`
	Religion        string     `json:"religion"`
	Education       string     `json:"education"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
	IsVerified      bool       `json:"is_verified"`
	IsPhotoVerified bool       `json:"is_photo_verified"`
	IsPremium       bool       `json:"is_premium"`
	IsBlocked       bool       `json:"is_blocked"`
	IsPaused        bool       `json:"is_paused"`
	LastActiveAt    time.Time  `json:"last_active_at"`
	CreatedAt       time.Time  `json:"created_at"`
	Photos          []string   `json:"photos"`
}

// Normalize trims enumerated fields, pads the photo list to its fixed
// slot count and drops half-set coordinate pairs. Applied wherever a
// profile is decoded from the backing store or the cache.
func (p *Profile) Normalize() {
	p.ID = strings.TrimSpace(p.ID)
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
	p.InterestedIn = strings.ToLower(strings.TrimSpace(p.InterestedIn))
	p.Country = strings.TrimSpace(p.Country)
	p.City = strings.TrimSpace(p.City)
	p.Religion = strings.TrimSpace(p.Religion)
	p.Education = strings.TrimSpace(p.Education)

	if (p.Latitude == nil) != (p.Longitude == nil) {
		p.Latitude = nil
		p.Longitude = nil
	}

	if len(p.Photos) > PhotoSlots {
		p.Photos = p.Photos[:PhotoSlots]
	}
	for len(p.Photos) < PhotoSlots {
		p.Photos = append(p.Photos, "")
	}
}

// Validate enforces the invariants a decoded record must satisfy.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("empty profile id: %w", ErrInvalidRecord)
	}
	if p.Age != 0 && (p.Age < MinAge || p.Age > MaxAge) {
		return fmt.Errorf("age %d out of range: %w", p.Age, ErrInvalidRecord)
	}
	if p.Latitude != nil {
		if *p.Latitude < -90 || *p.Latitude > 90 {
			return fmt.Errorf("latitude out of range: %w", ErrInvalidRecord)
		}
		if p.Longitude == nil || *p.Longitude < -180 || *p.Longitude > 180 {
			return fmt.Errorf("longitude out of range: %w", ErrInvalidRecord)
		}
	}
	return nil
}

func (p Profile) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// HasPhoto reports whether any photo slot holds a non-empty URL.
func (p Profile) HasPhoto() bool {
	for _, photo := range p.Photos {
		if strings.TrimSpace(photo) != "" {
			return true
		}
	}
	return false
}

// Discoverable reports whether moderation allows this profile to appear
// in anyone's discovery results.
func (p Profile) Discoverable() bool {
	return !p.IsBlocked && !p.IsPaused
}

// IsComplete is the completeness predicate discovery applies when a
// caller asks for complete profiles only.
func (p Profile) IsComplete() bool {
	return p.DisplayName != "" && p.Age >= MinAge && p.HasPhoto()
}

// EncodeSnapshot serializes the profile for a cache entry.
func (p Profile) EncodeSnapshot() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal profile snapshot: %w", err)
	}
	return string(data), nil
}

// DecodeSnapshot parses a cached snapshot. Any malformed or invalid
// payload yields an error so the caller can evict the entry and fall
// back to the directory.
func DecodeSnapshot(raw string) (Profile, error) {
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Profile{}, fmt.Errorf("unmarshal profile snapshot: %w", err)
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}
