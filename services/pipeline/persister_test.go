package pipeline

import (
	"context"
	"testing"
	"time"

	"stock_data_backend/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens a per-test in-memory database. The named DSN keeps
// the database alive across the multiple connections gorm opens.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := models.MigrateMarketModels(db); err != nil {
		t.Fatalf("migrate market models: %v", err)
	}
	if err := models.MigrateSyncModels(db); err != nil {
		t.Fatalf("migrate sync models: %v", err)
	}
	return db
}

func seedProfile(t *testing.T, db *gorm.DB, symbol, name string, active bool) {
	t.Helper()
	profile := models.StockProfile{
		Symbol:            symbol,
		CompanyName:       name,
		Price:             100,
		IsActivelyTrading: active,
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("seed profile %s: %v", symbol, err)
	}
}

func TestApplyProfiles_OverwritesMarketColumnsOnly(t *testing.T) {
	db := openTestDB(t)
	seedProfile(t, db, "AAPL", "Apple Inc.", true)

	err := NewPersister(db).ApplyProfiles(context.Background(), []models.StockProfile{
		{
			Symbol:            "AAPL",
			Price:             187.5,
			Beta:              1.2,
			LastDiv:           0.96,
			Change:            -1.3,
			PriceRange:        "164.08-199.62",
			FullTimeEmployees: "161000",
			IsActivelyTrading: true,
			CompanyName:       "should not overwrite",
		},
	})
	if err != nil {
		t.Fatalf("ApplyProfiles: %v", err)
	}

	var got models.StockProfile
	if err := db.Where("symbol = ?", "AAPL").First(&got).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if got.Price != 187.5 {
		t.Errorf("price = %v, want 187.5", got.Price)
	}
	if got.PriceRange != "164.08-199.62" {
		t.Errorf("price range = %q, want the refreshed range", got.PriceRange)
	}
	if got.CompanyName != "Apple Inc." {
		t.Errorf("company name = %q, descriptive columns must stay untouched", got.CompanyName)
	}
}

func TestApplyProfiles_UnknownSymbolInsertsNothing(t *testing.T) {
	db := openTestDB(t)
	seedProfile(t, db, "AAPL", "Apple Inc.", true)

	err := NewPersister(db).ApplyProfiles(context.Background(), []models.StockProfile{
		{Symbol: "NOPE", Price: 1},
	})
	if err != nil {
		t.Fatalf("ApplyProfiles: %v", err)
	}

	var count int64
	db.Model(&models.StockProfile{}).Count(&count)
	if count != 1 {
		t.Errorf("profile count = %d, update must never insert new symbols", count)
	}
}

func TestApplyMinuteBars_Idempotent(t *testing.T) {
	db := openTestDB(t)
	persister := NewPersister(db)

	rows := []models.MinuteBar{
		{Symbol: "AAPL", Time: time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC), Close: 101},
		{Symbol: "AAPL", Time: time.Date(2024, 6, 3, 9, 31, 0, 0, time.UTC), Close: 102},
	}

	for run := 0; run < 2; run++ {
		if err := persister.ApplyMinuteBars(context.Background(), rows); err != nil {
			t.Fatalf("ApplyMinuteBars run %d: %v", run, err)
		}
	}

	var count int64
	db.Model(&models.MinuteBar{}).Count(&count)
	if count != 2 {
		t.Errorf("minute bar count = %d after replay, want 2", count)
	}
}

func TestApplyMinuteBars_RollsBackWholePass(t *testing.T) {
	db := openTestDB(t)

	// Force a mid-transaction insert failure on one marker symbol.
	err := db.Exec(`CREATE TRIGGER minute_bar_boom BEFORE INSERT ON minute_bars
		WHEN NEW.symbol = 'BOOM'
		BEGIN SELECT RAISE(ABORT, 'boom'); END`).Error
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	rows := []models.MinuteBar{
		{Symbol: "AAPL", Time: time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC), Close: 101},
		{Symbol: "BOOM", Time: time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC), Close: 1},
		{Symbol: "MSFT", Time: time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC), Close: 420},
	}

	if err := NewPersister(db).ApplyMinuteBars(context.Background(), rows); err == nil {
		t.Fatal("expected insert error, got nil")
	}

	var count int64
	db.Model(&models.MinuteBar{}).Count(&count)
	if count != 0 {
		t.Errorf("minute bar count = %d after failed pass, want 0 (all-or-nothing)", count)
	}
}

func TestApplyDailyIndicators_VectorRoundTrip(t *testing.T) {
	db := openTestDB(t)
	persister := NewPersister(db)

	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	rows := []models.DailyIndicator{
		{
			Symbol: "AAPL",
			Time:   day,
			Open:   190.1,
			Close:  191.5,
			EMA:    models.Vector3{190.2, 188.7, 182.25},
			SMA:    models.Vector3{189.9, 187.1, 181.5},
			Volume: 51000000,
		},
	}
	if err := persister.ApplyDailyIndicators(context.Background(), rows); err != nil {
		t.Fatalf("ApplyDailyIndicators: %v", err)
	}
	// Replay must be a no-op on the same (symbol, day) key.
	if err := persister.ApplyDailyIndicators(context.Background(), rows); err != nil {
		t.Fatalf("ApplyDailyIndicators replay: %v", err)
	}

	var got []models.DailyIndicator
	if err := db.Where("symbol = ?", "AAPL").Find(&got).Error; err != nil {
		t.Fatalf("reload daily indicators: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if got[0].EMA != (models.Vector3{190.2, 188.7, 182.25}) {
		t.Errorf("EMA round-trip = %v", got[0].EMA)
	}
	if got[0].SMA != (models.Vector3{189.9, 187.1, 181.5}) {
		t.Errorf("SMA round-trip = %v", got[0].SMA)
	}
}
