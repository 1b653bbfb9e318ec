package domain

import "strings"

// UserSummary is the public profile summary attached to relationship responses
// and envelopes. Profiles themselves are owned by the listing/profile service.
type UserSummary struct {
	ID        string  `json:"id" db:"id"`
	Username  string  `json:"username" db:"username"`
	FirstName *string `json:"firstname" db:"first_name"`
	LastName  *string `json:"lastname" db:"last_name"`
	PhotoURL  *string `json:"photo" db:"photo_url"`
	Age       *int    `json:"age" db:"age"`
	Location  *string `json:"location" db:"location"`
	Bio       *string `json:"bio" db:"bio"`
	IsActive  bool    `json:"-" db:"is_active"`
}

// DisplayName is "first last", falling back to the username.
func (u *UserSummary) DisplayName() string {
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	if name := strings.TrimSpace(strings.Join(parts, " ")); name != "" {
		return name
	}
	return u.Username
}

// ShortName is the first name, falling back to the username.
func (u *UserSummary) ShortName() string {
	if u.FirstName != nil && *u.FirstName != "" {
		return *u.FirstName
	}
	return u.Username
}

// RelationshipItem is one row of the sent / received / mutual lists.
type RelationshipItem struct {
	EdgeID             string       `json:"id"`
	UserID             string       `json:"user_id"`
	Status             LikeStatus   `json:"status"`
	LikedAt            string       `json:"liked_at"`
	MutualAt           *string      `json:"mutual_at,omitempty"`
	CompatibilityScore *float64     `json:"compatibility_score"`
	Explanations       []string     `json:"explanations,omitempty"`
	User               *UserSummary `json:"user"`
}
