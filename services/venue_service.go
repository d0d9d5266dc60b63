package services

import (
	"context"
	"fmt"

	"sipHappensAPI/internal/venue"

	"github.com/jackc/pgx/v5/pgxpool"
)

type VenueService struct {
	db *pgxpool.Pool
}

func NewVenueService(db *pgxpool.Pool) *VenueService {
	return &VenueService{db: db}
}

// GetVenues lists venues by descending rating, optionally narrowed to one
// category. An empty category means no filter.
func (s *VenueService) GetVenues(ctx context.Context, category venue.VenueCategory) ([]venue.Venue, error) {
	query := `
		SELECT
			v.id,
			v.name,
			v.venue_type,
			COALESCE(v.image_url, '') AS image_url,
			COALESCE(v.location, '') AS location,
			v.latitude,
			v.longitude,
			COALESCE(v.distance_km, 0) AS distance_km,
			COALESCE(v.rating, 0) AS rating,
			COALESCE(v.review_count, 0) AS review_count,
			COALESCE(v.description, '') AS description,
			COALESCE(v.tags, '{}') AS tags,
			v.created_at
		FROM venues v
		WHERE ($1 = '' OR v.venue_type = $1)
		ORDER BY v.rating DESC
	`

	rows, err := s.db.Query(ctx, query, string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to query venues: %w", err)
	}
	defer rows.Close()

	var venues []venue.Venue
	for rows.Next() {
		var v venue.Venue
		err := rows.Scan(
			&v.ID,
			&v.Name,
			&v.VenueType,
			&v.ImageURL,
			&v.Location,
			&v.Latitude,
			&v.Longitude,
			&v.DistanceKm,
			&v.Rating,
			&v.ReviewCount,
			&v.Description,
			&v.Tags,
			&v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan venue row: %w", err)
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return venues, nil
}
