package services

import (
	"context"
	"fmt"

	"sipHappensAPI/internal/collection"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CollectionService struct {
	db *pgxpool.Pool
}

func NewCollectionService(db *pgxpool.Pool) *CollectionService {
	return &CollectionService{db: db}
}

// GetCollection returns the full drink catalog grouped by type.
func (s *CollectionService) GetCollection(ctx context.Context) (collection.AlcoholCollectionByType, error) {
	query := `
		SELECT id, name, type, image_url, rarity, abv
		FROM alcohol_items
		ORDER BY type, name
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alcohol items: %w", err)
	}
	defer rows.Close()

	byType := make(collection.AlcoholCollectionByType)
	for rows.Next() {
		var item collection.AlcoholItem
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Type,
			&item.ImageUrl,
			&item.Rarity,
			&item.Abv,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alcohol item: %w", err)
		}
		byType[item.Type] = append(byType[item.Type], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return byType, nil
}

// SearchCollection finds catalog items by name for the log-drink picker.
func (s *CollectionService) SearchCollection(ctx context.Context, q string) ([]collection.AlcoholItem, error) {
	query := `
		SELECT id, name, type, image_url, rarity, abv
		FROM alcohol_items
		WHERE name ILIKE $1
		ORDER BY name
		LIMIT 25
	`

	rows, err := s.db.Query(ctx, query, "%"+q+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search alcohol items: %w", err)
	}
	defer rows.Close()

	var items []collection.AlcoholItem
	for rows.Next() {
		var item collection.AlcoholItem
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Type,
			&item.ImageUrl,
			&item.Rarity,
			&item.Abv,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alcohol item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if items == nil {
		items = []collection.AlcoholItem{}
	}
	return items, nil
}
