package pipeline

import (
	"fmt"
	"sort"
	"time"

	"stock_data_backend/models"
	"stock_data_backend/services/marketdata"
)

// FilterMinuteBars converts a raw minute series into store rows,
// keeping only bars at or after the trading-window cutoff. Bar dates
// are parsed in the cutoff's location. The result is ascending by
// timestamp with duplicate timestamps dropped, so re-fetched overlaps
// never produce duplicate rows.
func FilterMinuteBars(symbol string, bars []marketdata.Bar, cutoff time.Time) ([]models.MinuteBar, error) {
	loc := cutoff.Location()
	seen := make(map[time.Time]bool, len(bars))
	rows := make([]models.MinuteBar, 0, len(bars))

	for _, bar := range bars {
		ts, err := time.ParseInLocation(marketdata.DateLayout, bar.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("minute bars %s: parse date %q: %w", symbol, bar.Date, err)
		}
		if ts.Before(cutoff) || seen[ts] {
			continue
		}
		seen[ts] = true
		rows = append(rows, models.MinuteBar{
			Symbol: symbol,
			Time:   ts,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
	return rows, nil
}

// IndicatorSeries holds the six raw series fetched for one symbol's
// daily pass, one per moving-average kind and period.
type IndicatorSeries struct {
	EMA5  []marketdata.IndicatorBar
	EMA20 []marketdata.IndicatorBar
	EMA60 []marketdata.IndicatorBar
	SMA5  []marketdata.IndicatorBar
	SMA20 []marketdata.IndicatorBar
	SMA60 []marketdata.IndicatorBar
}

// MergeDailyIndicators joins the six series into unified rows, keyed
// by parsed date rather than positional index, keeping only entries
// strictly after the cutoff. The upstream series must agree exactly on
// the set of dates after filtering; a date present in one series and
// absent in another is a data-integrity error that fails the whole
// merge for the symbol. Rows come back ascending by date with the EMA
// and SMA vectors ordered [period-5, period-20, period-60].
func MergeDailyIndicators(symbol string, series IndicatorSeries, cutoff time.Time) ([]models.DailyIndicator, error) {
	base, err := filterIndicatorSeries(symbol, "ema-5", series.EMA5, cutoff)
	if err != nil {
		return nil, err
	}

	rows := make(map[time.Time]*models.DailyIndicator, len(base))
	for ts, bar := range base {
		rows[ts] = &models.DailyIndicator{
			Symbol: symbol,
			Time:   ts,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			EMA:    models.Vector3{bar.Value(marketdata.IndicatorEMA), 0, 0},
			Volume: bar.Volume,
		}
	}

	joins := []struct {
		label string
		bars  []marketdata.IndicatorBar
		kind  marketdata.IndicatorKind
		index int
	}{
		{"ema-20", series.EMA20, marketdata.IndicatorEMA, 1},
		{"ema-60", series.EMA60, marketdata.IndicatorEMA, 2},
		{"sma-5", series.SMA5, marketdata.IndicatorSMA, 0},
		{"sma-20", series.SMA20, marketdata.IndicatorSMA, 1},
		{"sma-60", series.SMA60, marketdata.IndicatorSMA, 2},
	}

	for _, join := range joins {
		filtered, err := filterIndicatorSeries(symbol, join.label, join.bars, cutoff)
		if err != nil {
			return nil, err
		}
		if len(filtered) != len(rows) {
			return nil, fmt.Errorf("daily merge %s: series %s has %d entries after cutoff, want %d",
				symbol, join.label, len(filtered), len(rows))
		}
		for ts, row := range rows {
			bar, ok := filtered[ts]
			if !ok {
				return nil, fmt.Errorf("daily merge %s: series %s missing date %s",
					symbol, join.label, ts.Format(marketdata.DateLayout))
			}
			if join.kind == marketdata.IndicatorEMA {
				row.EMA[join.index] = bar.Value(join.kind)
			} else {
				row.SMA[join.index] = bar.Value(join.kind)
			}
		}
	}

	out := make([]models.DailyIndicator, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// filterIndicatorSeries parses one raw series into a date-keyed map of
// entries strictly after the cutoff.
func filterIndicatorSeries(symbol, label string, bars []marketdata.IndicatorBar, cutoff time.Time) (map[time.Time]marketdata.IndicatorBar, error) {
	loc := cutoff.Location()
	out := make(map[time.Time]marketdata.IndicatorBar, len(bars))

	for _, bar := range bars {
		ts, err := time.ParseInLocation(marketdata.DateLayout, bar.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("daily merge %s: series %s: parse date %q: %w", symbol, label, bar.Date, err)
		}
		if !ts.After(cutoff) {
			continue
		}
		if _, dup := out[ts]; dup {
			return nil, fmt.Errorf("daily merge %s: series %s: duplicate date %s", symbol, label, bar.Date)
		}
		out[ts] = bar
	}
	return out, nil
}
