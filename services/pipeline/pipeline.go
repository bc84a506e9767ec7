package pipeline

import (
	"context"
	"log"
	"time"

	"stock_data_backend/models"
	"stock_data_backend/services/marketdata"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Pass names as recorded in sync-run history.
const (
	PassProfile = "profile"
	PassMinute  = "minute_bars"
	PassDaily   = "daily_indicators"
)

// Provider is the slice of the market-data client the pipeline needs.
type Provider interface {
	FetchProfile(ctx context.Context, symbol string) (*marketdata.Profile, error)
	FetchMinuteBars(ctx context.Context, symbol string) ([]marketdata.Bar, error)
	FetchDailyIndicator(ctx context.Context, symbol string, period int, kind marketdata.IndicatorKind) ([]marketdata.IndicatorBar, error)
}

// Status is the per-symbol outcome of a pass.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped" // fetched fine, nothing inside the trading window
	StatusFailed  Status = "failed"
)

// SymbolResult is the outcome of one symbol within a pass.
type SymbolResult struct {
	Symbol string
	Status Status
	Rows   int
	Err    error
}

// RunSummary accumulates per-symbol outcomes for one pass. A fetch or
// merge failure for one symbol no longer aborts the whole roster pass;
// only store-level failures do.
type RunSummary struct {
	Pass      string
	StartedAt time.Time
	Duration  time.Duration
	Results   []SymbolResult
}

// Counts returns the number of succeeded, skipped and failed symbols.
func (s *RunSummary) Counts() (succeeded, skipped, failed int) {
	for _, r := range s.Results {
		switch r.Status {
		case StatusOK:
			succeeded++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return
}

// Pipeline runs the three refresh passes: profile, minute bars, daily
// indicators. Per-symbol fetches run on a bounded worker pool; each
// pass persists in a single all-or-nothing transaction.
type Pipeline struct {
	db        *gorm.DB
	roster    *Roster
	provider  Provider
	persister *Persister
	loc       *time.Location
	workers   int
	now       func() time.Time
}

// New creates a pipeline. workers bounds concurrent per-symbol fetches
// against the provider; loc is the exchange timezone used for cutoff
// computation and date parsing.
func New(db *gorm.DB, provider Provider, loc *time.Location, workers int) *Pipeline {
	if workers <= 0 {
		workers = 4
	}
	return &Pipeline{
		db:        db,
		roster:    NewRoster(db),
		provider:  provider,
		persister: NewPersister(db),
		loc:       loc,
		workers:   workers,
		now:       time.Now,
	}
}

// RunProfilePass refreshes every tracked symbol's profile row from the
// provider.
func (p *Pipeline) RunProfilePass(ctx context.Context) (*RunSummary, error) {
	return p.runPass(ctx, PassProfile, p.profilePass)
}

// RunMinutePass appends fresh intraday minute bars for actively-trading
// symbols.
func (p *Pipeline) RunMinutePass(ctx context.Context) (*RunSummary, error) {
	return p.runPass(ctx, PassMinute, p.minutePass)
}

// RunDailyPass appends merged daily price+indicator rows for
// actively-trading symbols.
func (p *Pipeline) RunDailyPass(ctx context.Context) (*RunSummary, error) {
	return p.runPass(ctx, PassDaily, p.dailyPass)
}

// runPass wraps a pass with timing and sync-run bookkeeping. The
// history row is written best-effort: a bookkeeping failure never
// fails the pass itself.
func (p *Pipeline) runPass(ctx context.Context, name string, pass func(context.Context, *RunSummary) error) (*RunSummary, error) {
	summary := &RunSummary{Pass: name, StartedAt: p.now()}
	err := pass(ctx, summary)
	summary.Duration = p.now().Sub(summary.StartedAt)
	p.recordRun(summary, err)
	if err != nil {
		return summary, err
	}
	return summary, nil
}

func (p *Pipeline) profilePass(ctx context.Context, summary *RunSummary) error {
	symbols, err := p.roster.List(ctx, false)
	if err != nil {
		return err
	}

	results := make([]SymbolResult, len(symbols))
	rows := make([]*models.StockProfile, len(symbols))

	var group errgroup.Group
	group.SetLimit(p.workers)
	for i, symbol := range symbols {
		group.Go(func() error {
			profile, err := p.provider.FetchProfile(ctx, symbol)
			if err != nil {
				log.Printf("[ERROR] profile pass: symbol=%s: %v", symbol, err)
				results[i] = SymbolResult{Symbol: symbol, Status: StatusFailed, Err: err}
				return nil
			}
			rows[i] = profileRow(profile)
			results[i] = SymbolResult{Symbol: symbol, Status: StatusOK, Rows: 1}
			return nil
		})
	}
	group.Wait()
	summary.Results = results

	updates := make([]models.StockProfile, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			updates = append(updates, *row)
		}
	}
	return p.persister.ApplyProfiles(ctx, updates)
}

func (p *Pipeline) minutePass(ctx context.Context, summary *RunSummary) error {
	symbols, err := p.roster.List(ctx, true)
	if err != nil {
		return err
	}
	cutoff := LastTradingInstant(p.now().In(p.loc), MarketOpenHour, MarketOpenMinute)

	results := make([]SymbolResult, len(symbols))
	perSymbol := make([][]models.MinuteBar, len(symbols))

	var group errgroup.Group
	group.SetLimit(p.workers)
	for i, symbol := range symbols {
		group.Go(func() error {
			bars, err := p.provider.FetchMinuteBars(ctx, symbol)
			if err == nil {
				perSymbol[i], err = FilterMinuteBars(symbol, bars, cutoff)
			}
			if err != nil {
				log.Printf("[ERROR] minute pass: symbol=%s: %v", symbol, err)
				results[i] = SymbolResult{Symbol: symbol, Status: StatusFailed, Err: err}
				return nil
			}
			results[i] = symbolResult(symbol, len(perSymbol[i]))
			return nil
		})
	}
	group.Wait()
	summary.Results = results

	var rows []models.MinuteBar
	for _, bars := range perSymbol {
		rows = append(rows, bars...)
	}
	return p.persister.ApplyMinuteBars(ctx, rows)
}

func (p *Pipeline) dailyPass(ctx context.Context, summary *RunSummary) error {
	symbols, err := p.roster.List(ctx, true)
	if err != nil {
		return err
	}
	cutoff := LastTradingInstant(p.now().In(p.loc), 0, 0)

	results := make([]SymbolResult, len(symbols))
	perSymbol := make([][]models.DailyIndicator, len(symbols))

	var group errgroup.Group
	group.SetLimit(p.workers)
	for i, symbol := range symbols {
		group.Go(func() error {
			series, err := p.fetchIndicatorSeries(ctx, symbol)
			if err == nil {
				perSymbol[i], err = MergeDailyIndicators(symbol, series, cutoff)
			}
			if err != nil {
				log.Printf("[ERROR] daily pass: symbol=%s: %v", symbol, err)
				results[i] = SymbolResult{Symbol: symbol, Status: StatusFailed, Err: err}
				return nil
			}
			results[i] = symbolResult(symbol, len(perSymbol[i]))
			return nil
		})
	}
	group.Wait()
	summary.Results = results

	var rows []models.DailyIndicator
	for _, indicators := range perSymbol {
		rows = append(rows, indicators...)
	}
	return p.persister.ApplyDailyIndicators(ctx, rows)
}

// fetchIndicatorSeries issues the six indicator calls for one symbol.
// The calls for one symbol stay sequential; concurrency is across
// symbols only, bounded by the worker pool.
func (p *Pipeline) fetchIndicatorSeries(ctx context.Context, symbol string) (IndicatorSeries, error) {
	var series IndicatorSeries
	targets := []struct {
		kind   marketdata.IndicatorKind
		period int
		dest   *[]marketdata.IndicatorBar
	}{
		{marketdata.IndicatorEMA, 5, &series.EMA5},
		{marketdata.IndicatorEMA, 20, &series.EMA20},
		{marketdata.IndicatorEMA, 60, &series.EMA60},
		{marketdata.IndicatorSMA, 5, &series.SMA5},
		{marketdata.IndicatorSMA, 20, &series.SMA20},
		{marketdata.IndicatorSMA, 60, &series.SMA60},
	}
	for _, target := range targets {
		bars, err := p.provider.FetchDailyIndicator(ctx, symbol, target.period, target.kind)
		if err != nil {
			return IndicatorSeries{}, err
		}
		*target.dest = bars
	}
	return series, nil
}

// symbolResult classifies a successful fetch: zero rows inside the
// trading window is a skip, not a success with nothing to show.
func symbolResult(symbol string, rows int) SymbolResult {
	if rows == 0 {
		return SymbolResult{Symbol: symbol, Status: StatusSkipped}
	}
	return SymbolResult{Symbol: symbol, Status: StatusOK, Rows: rows}
}

// profileRow maps a provider profile onto the store row. Only the
// pipeline-owned columns matter here; ApplyProfiles ignores the rest.
func profileRow(profile *marketdata.Profile) *models.StockProfile {
	return &models.StockProfile{
		Symbol:            profile.Symbol,
		Price:             profile.Price,
		Beta:              profile.Beta,
		VolAvg:            profile.VolAvg,
		MktCap:            profile.MktCap,
		LastDiv:           profile.LastDiv,
		Change:            profile.Changes,
		PriceRange:        profile.Range,
		FullTimeEmployees: profile.FullTimeEmployees,
		IsActivelyTrading: profile.IsActivelyTrading,
	}
}

// recordRun writes the pass outcome to sync-run history.
func (p *Pipeline) recordRun(summary *RunSummary, passErr error) {
	succeeded, skipped, failed := summary.Counts()
	run := models.SyncRun{
		Pass:       summary.Pass,
		StartedAt:  summary.StartedAt,
		DurationMs: summary.Duration.Milliseconds(),
		Succeeded:  succeeded,
		Skipped:    skipped,
		Failed:     failed,
	}
	if passErr != nil {
		run.Error = passErr.Error()
	}
	if err := p.db.Create(&run).Error; err != nil {
		log.Printf("[ERROR] record sync run %s: %v", summary.Pass, err)
	}
}
