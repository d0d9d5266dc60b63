package venue

import "time"

type VenueCategory string

const (
	CategoryBar     VenueCategory = "Bar"
	CategoryPub     VenueCategory = "Pub"
	CategoryClub    VenueCategory = "Club"
	CategoryLounge  VenueCategory = "Lounge"
	CategoryRooftop VenueCategory = "Rooftop"
)

func (c VenueCategory) Valid() bool {
	switch c {
	case CategoryBar, CategoryPub, CategoryClub, CategoryLounge, CategoryRooftop:
		return true
	}
	return false
}

type Venue struct {
	ID          string        `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	VenueType   VenueCategory `db:"venue_type" json:"venue_type"`
	ImageURL    string        `db:"image_url" json:"image_url"`
	Location    string        `db:"location" json:"location"`
	Latitude    float64       `db:"latitude" json:"latitude"`
	Longitude   float64       `db:"longitude" json:"longitude"`
	DistanceKm  float64       `db:"distance_km" json:"distance_km"`
	Rating      float64       `db:"rating" json:"rating"`
	ReviewCount int           `db:"review_count" json:"review_count"`
	Description string        `db:"description" json:"description"`
	Tags        []string      `db:"tags" json:"tags"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}
