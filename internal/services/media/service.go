package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/andkapach/amora/internal/domain/profile"
	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

const signedURLTTL = 5 * time.Minute

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
	UpdateFields(ctx context.Context, id string, upd pgrepo.ProfileUpdate) (profile.Profile, error)
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	PutPhoto(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	store   ProfileStore
	storage ObjectStorage
}

type Photo struct {
	Slot int
	URL  string
}

func NewService(store ProfileStore, storage ObjectStorage) *Service {
	return &Service{
		store:   store,
		storage: storage,
	}
}

// UploadPhoto stores the image and points the given profile photo slot
// at it. An occupied slot is replaced and its old object removed.
func (s *Service) UploadPhoto(ctx context.Context, userID string, slot int, fileName, contentType string, body io.Reader, size int64) (Photo, error) {
	if strings.TrimSpace(userID) == "" || body == nil || size <= 0 {
		return Photo{}, ErrValidation
	}
	if slot < 0 || slot >= profile.PhotoSlots {
		return Photo{}, ErrValidation
	}
	if s.store == nil || s.storage == nil {
		return Photo{}, fmt.Errorf("media dependencies are not configured")
	}

	current, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return Photo{}, fmt.Errorf("get profile: %w", err)
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return Photo{}, fmt.Errorf("ensure bucket: %w", err)
	}

	objectKey, err := buildPhotoObjectKey(userID, fileName)
	if err != nil {
		return Photo{}, fmt.Errorf("build object key: %w", err)
	}

	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	if err := s.storage.PutPhoto(ctx, objectKey, body, size, contentType); err != nil {
		return Photo{}, fmt.Errorf("put object: %w", err)
	}

	photos := make([]string, profile.PhotoSlots)
	copy(photos, current.Photos)
	previous := photos[slot]
	photos[slot] = objectKey

	if _, err := s.store.UpdateFields(ctx, userID, pgrepo.ProfileUpdate{Photos: photos}); err != nil {
		_ = s.storage.Delete(ctx, objectKey)
		return Photo{}, fmt.Errorf("update photo slots: %w", err)
	}

	if previous != "" {
		_ = s.storage.Delete(ctx, previous)
	}

	url, err := s.storage.PresignGet(ctx, objectKey, signedURLTTL)
	if err != nil {
		return Photo{}, fmt.Errorf("presign photo url: %w", err)
	}

	return Photo{Slot: slot, URL: url}, nil
}

// ClearPhoto empties a slot and removes the backing object.
func (s *Service) ClearPhoto(ctx context.Context, userID string, slot int) error {
	if strings.TrimSpace(userID) == "" {
		return ErrValidation
	}
	if slot < 0 || slot >= profile.PhotoSlots {
		return ErrValidation
	}
	if s.store == nil {
		return fmt.Errorf("media dependencies are not configured")
	}

	current, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}

	photos := make([]string, profile.PhotoSlots)
	copy(photos, current.Photos)
	previous := photos[slot]
	if previous == "" {
		return nil
	}
	photos[slot] = ""

	if _, err := s.store.UpdateFields(ctx, userID, pgrepo.ProfileUpdate{Photos: photos}); err != nil {
		return fmt.Errorf("update photo slots: %w", err)
	}

	if s.storage != nil {
		_ = s.storage.Delete(ctx, previous)
	}
	return nil
}

// PhotoURLs presigns a GET URL for every occupied slot.
func (s *Service) PhotoURLs(ctx context.Context, p profile.Profile) ([]Photo, error) {
	if s.storage == nil {
		return []Photo{}, nil
	}

	photos := make([]Photo, 0, len(p.Photos))
	for slot, key := range p.Photos {
		if strings.TrimSpace(key) == "" {
			continue
		}
		url, err := s.storage.PresignGet(ctx, key, signedURLTTL)
		if err != nil {
			return nil, fmt.Errorf("presign photo url: %w", err)
		}
		photos = append(photos, Photo{Slot: slot, URL: url})
	}

	return photos, nil
}

func buildPhotoObjectKey(userID, fileName string) (string, error) {
	rnd := make([]byte, 8)
	if _, err := rand.Read(rnd); err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = ".bin"
	}

	stamp := time.Now().UTC().Format("20060102T150405")
	return fmt.Sprintf("users/%s/photos/%s_%s%s", userID, stamp, hex.EncodeToString(rnd), ext), nil
}
