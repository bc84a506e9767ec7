package pipeline

import (
	"context"
	"fmt"

	"stock_data_backend/models"

	"gorm.io/gorm"
)

// Roster reads the set of tracked symbols from the store.
type Roster struct {
	db *gorm.DB
}

// NewRoster creates a roster backed by the given database handle.
func NewRoster(db *gorm.DB) *Roster {
	return &Roster{db: db}
}

// List returns tracked symbols in ascending ticker order. With
// activeOnly set, only symbols flagged as actively trading are
// returned; the profile pass uses the full roster, the price and
// indicator passes only the active one.
func (r *Roster) List(ctx context.Context, activeOnly bool) ([]string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.StockProfile{}).
		Order("symbol ASC")
	if activeOnly {
		query = query.Where("is_actively_trading = ?", true)
	}

	var symbols []string
	if err := query.Pluck("symbol", &symbols).Error; err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return symbols, nil
}
