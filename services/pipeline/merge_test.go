package pipeline

import (
	"strings"
	"testing"
	"time"

	"stock_data_backend/services/marketdata"
)

func minuteBar(date string, close float64) marketdata.Bar {
	return marketdata.Bar{Date: date, Open: close - 1, Close: close, High: close + 1, Low: close - 2, Volume: 1000}
}

func TestFilterMinuteBars_CutoffAndOrdering(t *testing.T) {
	cutoff := time.Date(2024, time.June, 3, 9, 30, 0, 0, time.UTC)

	// Provider sends newest-first; one bar is exactly at the cutoff,
	// one before it, and one duplicate timestamp.
	bars := []marketdata.Bar{
		minuteBar("2024-06-03 09:32:00", 103),
		minuteBar("2024-06-03 09:31:00", 102),
		minuteBar("2024-06-03 09:31:00", 102.5),
		minuteBar("2024-06-03 09:30:00", 101),
		minuteBar("2024-06-03 09:29:00", 100),
	}

	rows, err := FilterMinuteBars("AAPL", bars, cutoff)
	if err != nil {
		t.Fatalf("FilterMinuteBars: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i-1].Time.Before(rows[i].Time) {
			t.Errorf("rows not strictly ascending at index %d: %s >= %s", i, rows[i-1].Time, rows[i].Time)
		}
	}
	if !rows[0].Time.Equal(cutoff) {
		t.Errorf("first row = %s, want the cutoff instant %s", rows[0].Time, cutoff)
	}
	for _, row := range rows {
		if row.Symbol != "AAPL" {
			t.Errorf("row symbol = %q, want AAPL", row.Symbol)
		}
		if row.Time.Before(cutoff) {
			t.Errorf("row %s is before the cutoff", row.Time)
		}
	}
}

func TestFilterMinuteBars_BadDate(t *testing.T) {
	cutoff := time.Date(2024, time.June, 3, 9, 30, 0, 0, time.UTC)
	bars := []marketdata.Bar{minuteBar("not-a-date", 100)}

	if _, err := FilterMinuteBars("AAPL", bars, cutoff); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func indicatorBar(date string, ema, sma float64) marketdata.IndicatorBar {
	return marketdata.IndicatorBar{
		Bar: marketdata.Bar{Date: date, Open: 10, Close: 11, High: 12, Low: 9, Volume: 5000},
		EMA: ema,
		SMA: sma,
	}
}

func testSeries(dates []string) IndicatorSeries {
	var series IndicatorSeries
	for _, d := range dates {
		series.EMA5 = append(series.EMA5, indicatorBar(d, 5, 0))
		series.EMA20 = append(series.EMA20, indicatorBar(d, 20, 0))
		series.EMA60 = append(series.EMA60, indicatorBar(d, 60, 0))
		series.SMA5 = append(series.SMA5, indicatorBar(d, 0, 105))
		series.SMA20 = append(series.SMA20, indicatorBar(d, 0, 120))
		series.SMA60 = append(series.SMA60, indicatorBar(d, 0, 160))
	}
	return series
}

func TestMergeDailyIndicators_AlignedSeries(t *testing.T) {
	cutoff := time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC)
	dates := []string{
		"2024-05-31 00:00:00", // exactly at cutoff: excluded, filter is strictly-after
		"2024-06-03 00:00:00",
		"2024-06-04 00:00:00",
	}

	rows, err := MergeDailyIndicators("MSFT", testSeries(dates), cutoff)
	if err != nil {
		t.Fatalf("MergeDailyIndicators: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if !rows[0].Time.Before(rows[1].Time) {
		t.Errorf("rows not ascending: %s then %s", rows[0].Time, rows[1].Time)
	}
	for _, row := range rows {
		if row.EMA != [3]float64{5, 20, 60} {
			t.Errorf("EMA vector = %v, want [5 20 60]", row.EMA)
		}
		if row.SMA != [3]float64{105, 120, 160} {
			t.Errorf("SMA vector = %v, want [105 120 160]", row.SMA)
		}
		if row.Symbol != "MSFT" {
			t.Errorf("symbol = %q, want MSFT", row.Symbol)
		}
	}
}

func TestMergeDailyIndicators_MisalignedSeries(t *testing.T) {
	cutoff := time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC)
	series := testSeries([]string{"2024-06-03 00:00:00", "2024-06-04 00:00:00"})

	// One series lost a day upstream: the merge must fail, never
	// truncate or pad to the shorter length.
	series.SMA60 = series.SMA60[:1]

	_, err := MergeDailyIndicators("MSFT", series, cutoff)
	if err == nil {
		t.Fatal("expected alignment error, got nil")
	}
	if !strings.Contains(err.Error(), "sma-60") {
		t.Errorf("error should name the misaligned series, got: %v", err)
	}
}

func TestMergeDailyIndicators_DateMismatch(t *testing.T) {
	cutoff := time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC)
	series := testSeries([]string{"2024-06-03 00:00:00", "2024-06-04 00:00:00"})

	// Same length but a different trading day in one series.
	series.EMA20[1] = indicatorBar("2024-06-05 00:00:00", 20, 0)

	if _, err := MergeDailyIndicators("MSFT", series, cutoff); err == nil {
		t.Fatal("expected date-mismatch error, got nil")
	}
}

func TestMergeDailyIndicators_DuplicateDate(t *testing.T) {
	cutoff := time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC)
	series := testSeries([]string{"2024-06-03 00:00:00", "2024-06-03 00:00:00"})

	if _, err := MergeDailyIndicators("MSFT", series, cutoff); err == nil {
		t.Fatal("expected duplicate-date error, got nil")
	}
}

func TestMergeDailyIndicators_EmptyAfterCutoff(t *testing.T) {
	cutoff := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	series := testSeries([]string{"2024-06-03 00:00:00", "2024-06-04 00:00:00"})

	rows, err := MergeDailyIndicators("MSFT", series, cutoff)
	if err != nil {
		t.Fatalf("MergeDailyIndicators: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0 when everything is before the cutoff", len(rows))
	}
}
