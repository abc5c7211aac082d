package geo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type recordingSaver struct {
	calls  int
	userID string
	lat    float64
	lon    float64
}

func (s *recordingSaver) SaveLocation(_ context.Context, id string, lat, lon float64, _ time.Time) error {
	s.calls++
	s.userID = id
	s.lat = lat
	s.lon = lon
	return nil
}

func TestDistanceKM(t *testing.T) {
	tests := []struct {
		name        string
		lat1, lon1  float64
		lat2, lon2  float64
		wantKM      float64
		toleranceKM float64
	}{
		{name: "same point", lat1: 53.9, lon1: 27.56, lat2: 53.9, lon2: 27.56, wantKM: 0, toleranceKM: 0.001},
		{name: "one degree latitude", lat1: 0, lon1: 0, lat2: 1, lon2: 0, wantKM: 111.2, toleranceKM: 0.5},
		{name: "tenth degree longitude at equator", lat1: 0, lon1: 0, lat2: 0, lon2: 0.1, wantKM: 11.1, toleranceKM: 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKM(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantKM) > tt.toleranceKM {
				t.Fatalf("DistanceKM = %f, want %f +- %f", got, tt.wantKM, tt.toleranceKM)
			}
		})
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	a := DistanceKM(40.7, -74.0, 51.5, -0.1)
	b := DistanceKM(51.5, -0.1, 40.7, -74.0)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", a, b)
	}
}

func TestUpdateLocationValidation(t *testing.T) {
	saver := &recordingSaver{}
	svc := NewService(saver)
	ctx := context.Background()

	if err := svc.UpdateLocation(ctx, "", 10, 10); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty user id should fail validation, got %v", err)
	}
	if err := svc.UpdateLocation(ctx, "u1", 91, 10); !errors.Is(err, ErrValidation) {
		t.Fatalf("latitude out of range should fail validation, got %v", err)
	}
	if err := svc.UpdateLocation(ctx, "u1", 10, 181); !errors.Is(err, ErrValidation) {
		t.Fatalf("longitude out of range should fail validation, got %v", err)
	}
	if err := svc.UpdateLocation(ctx, "u1", math.NaN(), 10); !errors.Is(err, ErrValidation) {
		t.Fatalf("NaN latitude should fail validation, got %v", err)
	}
	if saver.calls != 0 {
		t.Fatalf("saver should not be called on invalid input")
	}

	if err := svc.UpdateLocation(ctx, "u1", 53.9, 27.56); err != nil {
		t.Fatalf("valid update: %v", err)
	}
	if saver.calls != 1 || saver.userID != "u1" || saver.lat != 53.9 || saver.lon != 27.56 {
		t.Fatalf("saver got %+v", saver)
	}
}
