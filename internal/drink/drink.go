package drink

import (
	"time"

	"github.com/google/uuid"
)

// Known drink categories; "all" in a unique_types requirement means one of
// each of these.
var Categories = []string{
	"beer", "wine", "cocktail", "whiskey", "vodka", "rum", "tequila",
}

type LogDrinkRequest struct {
	DrinkType string     `json:"drink_type" validate:"required"`
	DrinkID   *string    `json:"drink_id,omitempty"`
	Caption   *string    `json:"caption,omitempty"`
	ImageURL  *string    `json:"image_url,omitempty"`
	LoggedAt  *time.Time `json:"logged_at,omitempty"`
}

type DrinkLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	DrinkType string    `json:"drink_type" db:"drink_type"`
	DrinkID   *string   `json:"drink_id,omitempty" db:"drink_id"`
	Caption   *string   `json:"caption,omitempty" db:"caption"`
	ImageURL  *string   `json:"image_url,omitempty" db:"image_url"`
	LoggedAt  time.Time `json:"logged_at" db:"logged_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Cheer struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DrinkLogID uuid.UUID `json:"drink_log_id" db:"drink_log_id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type FeedPost struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	UserImageURL *string   `json:"user_image_url"`
	DrinkType    string    `json:"drink_type"`
	Caption      *string   `json:"caption"`
	ImageURL     *string   `json:"image_url"`
	LoggedAt     time.Time `json:"logged_at"`
	CheerCount   int       `json:"cheer_count"`
	SourceType   string    `json:"source_type"` // "friend" or "other"
}
