package dto

import "time"

type ProfileResponse struct {
	ID              string   `json:"id"`
	DisplayName     string   `json:"display_name"`
	Age             int      `json:"age,omitempty"`
	Gender          string   `json:"gender,omitempty"`
	InterestedIn    string   `json:"interested_in,omitempty"`
	Country         string   `json:"country,omitempty"`
	City            string   `json:"city,omitempty"`
	Religion        string   `json:"religion,omitempty"`
	Education       string   `json:"education,omitempty"`
	IsVerified      bool     `json:"is_verified"`
	IsPhotoVerified bool     `json:"is_photo_verified"`
	IsPremium       bool     `json:"is_premium"`
	IsPaused        bool     `json:"is_paused"`
	Photos          []string `json:"photos"`
	PhotoURLs       []string `json:"photo_urls,omitempty"`
}

type UpdateProfileRequest struct {
	DisplayName  *string  `json:"display_name"`
	Age          *int     `json:"age"`
	Gender       *string  `json:"gender"`
	InterestedIn *string  `json:"interested_in"`
	Country      *string  `json:"country"`
	City         *string  `json:"city"`
	Religion     *string  `json:"religion"`
	Education    *string  `json:"education"`
	IsPaused     *bool    `json:"is_paused"`
	Photos       []string `json:"photos"`
}

type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type BlockRequest struct {
	TargetID string `json:"target_id"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type MatchResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Age         int       `json:"age,omitempty"`
	City        string    `json:"city,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
