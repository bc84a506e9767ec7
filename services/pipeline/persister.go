package pipeline

import (
	"context"
	"fmt"

	"stock_data_backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 500

// Persister applies merged rows to the store. Every Apply method runs
// one transaction covering its whole pass: a single failed write rolls
// back everything, so readers only ever observe complete passes.
// Partial ingestion is considered worse than a full retry on the next
// scheduled run.
type Persister struct {
	db *gorm.DB
}

// NewPersister creates a persister backed by the given database handle.
func NewPersister(db *gorm.DB) *Persister {
	return &Persister{db: db}
}

// ApplyProfiles overwrites the market-data columns of each symbol's
// profile row in place. The upstream provider is the source of truth
// for these columns; nothing is derived locally.
func (p *Persister) ApplyProfiles(ctx context.Context, rows []models.StockProfile) error {
	if len(rows) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			err := tx.Model(&models.StockProfile{}).
				Where("symbol = ?", row.Symbol).
				Updates(map[string]interface{}{
					"price":               row.Price,
					"beta":                row.Beta,
					"vol_avg":             row.VolAvg,
					"mkt_cap":             row.MktCap,
					"last_div":            row.LastDiv,
					"change":              row.Change,
					"price_range":         row.PriceRange,
					"full_time_employees": row.FullTimeEmployees,
					"is_actively_trading": row.IsActivelyTrading,
				}).Error
			if err != nil {
				return fmt.Errorf("update profile %s: %w", row.Symbol, err)
			}
		}
		return nil
	})
}

// ApplyMinuteBars inserts minute bars for the whole pass. Inserts
// ignore conflicts on the (symbol, time) key, so a restarted run over
// an overlapping trading window is idempotent.
func (p *Persister) ApplyMinuteBars(ctx context.Context, rows []models.MinuteBar) error {
	if len(rows) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(rows, insertBatchSize).Error
		if err != nil {
			return fmt.Errorf("insert minute bars: %w", err)
		}
		return nil
	})
}

// ApplyDailyIndicators inserts daily indicator rows for the whole
// pass, with the same conflict-ignoring idempotency as minute bars.
func (p *Persister) ApplyDailyIndicators(ctx context.Context, rows []models.DailyIndicator) error {
	if len(rows) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(rows, insertBatchSize).Error
		if err != nil {
			return fmt.Errorf("insert daily indicators: %w", err)
		}
		return nil
	})
}
