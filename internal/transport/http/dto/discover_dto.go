package dto

type DiscoverRequest struct {
	Country            string  `json:"country"`
	City               string  `json:"city"`
	Religion           string  `json:"religion"`
	Education          string  `json:"education"`
	Gender             string  `json:"gender"`
	InterestedIn       string  `json:"interested_in"`
	FreeText           string  `json:"free_text"`
	MinAge             int     `json:"min_age"`
	MaxAge             int     `json:"max_age"`
	MaxDistanceKM      float64 `json:"max_distance_km"`
	VerifiedOnly       bool    `json:"verified_only"`
	RecentlyActiveOnly bool    `json:"recently_active_only"`
	HasPhotosOnly      bool    `json:"has_photos_only"`
	PremiumOnly        bool    `json:"premium_only"`
	Sort               string  `json:"sort"`
	PageToken          string  `json:"page_token"`
	Limit              int     `json:"limit"`
}

type DiscoverResponse struct {
	Candidates    []ProfileResponse `json:"candidates"`
	NextPageToken string            `json:"next_page_token,omitempty"`
	HasMore       bool              `json:"has_more"`
}
