package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockProfile is the company reference row for one ticker. The sync
// pipeline overwrites the market-data columns (price, beta, volumes,
// ranges, trading flag) on every profile pass; the descriptive columns
// are seeded once and left alone.
type StockProfile struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Symbol             string          `gorm:"uniqueIndex;size:16;not null" json:"symbol"`
	Price              float64         `json:"price"`
	Beta               float64         `json:"beta"`
	VolAvg             decimal.Decimal `gorm:"type:decimal(20,0)" json:"vol_avg"`
	MktCap             decimal.Decimal `gorm:"type:decimal(20,0)" json:"mkt_cap"`
	LastDiv            float64         `json:"last_div"`
	Change             float64         `json:"change"`
	PriceRange         string          `json:"price_range"` // 52-week range, e.g. "120.5-199.62"
	CompanyName        string          `json:"company_name"`
	Currency           string          `json:"currency"`
	Exchange           string          `json:"exchange"`
	ExchangeShortName  string          `json:"exchange_short_name"`
	Industry           string          `json:"industry"`
	Website            string          `json:"website"`
	CompanyDescription string          `gorm:"type:text" json:"company_description"`
	CEO                string          `json:"ceo"`
	Sector             string          `json:"sector"`
	Country            string          `json:"country"`
	FullTimeEmployees  string          `json:"full_time_employees"` // upstream sends this as a string
	IPODate            *time.Time      `json:"ipo_date"`
	Image              string          `json:"image"`
	DefaultImage       bool            `json:"default_image"`
	IsEtf              bool            `json:"is_etf"`
	IsActivelyTrading  bool            `gorm:"index" json:"is_actively_trading"`
	IsAdr              bool            `json:"is_adr"`
	IsFund             bool            `json:"is_fund"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// MinuteBar is one intraday price bar per (symbol, minute). Rows are
// append-only: the composite key plus conflict-ignoring inserts make
// re-runs over an overlapping trading window idempotent.
type MinuteBar struct {
	Symbol    string    `gorm:"primaryKey;size:16" json:"symbol"`
	Time      time.Time `gorm:"primaryKey" json:"time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyIndicator is one row per (symbol, trading day): OHLCV plus the
// EMA and SMA vectors, each ordered [period-5, period-20, period-60].
type DailyIndicator struct {
	Symbol    string    `gorm:"primaryKey;size:16" json:"symbol"`
	Time      time.Time `gorm:"primaryKey" json:"time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	EMA       Vector3   `json:"ema"`
	SMA       Vector3   `json:"sma"`
	Volume    float64   `json:"volume"`
	CreatedAt time.Time `json:"created_at"`
}

// MigrateMarketModels runs database migrations for market-data models
func MigrateMarketModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&StockProfile{},
		&MinuteBar{},
		&DailyIndicator{},
	)
}
