package pipeline

import "time"

// Anchor times-of-day for the trading-window cutoff. The minute pass
// keeps bars from market open of the last trading day; the daily pass
// keeps rows strictly after midnight of the last trading day.
const (
	MarketOpenHour   = 9
	MarketOpenMinute = 30
)

// LastTradingInstant returns the earliest timestamp considered current
// trading data: the given time-of-day on the last Mon-Fri trading day
// before now. Monday reaches back over the weekend to Friday, Sunday
// to Friday as well. Holidays are deliberately not accounted for.
func LastTradingInstant(now time.Time, hour, minute int) time.Time {
	anchor := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	switch now.Weekday() {
	case time.Monday:
		return anchor.AddDate(0, 0, -3)
	case time.Sunday:
		return anchor.AddDate(0, 0, -2)
	default:
		return anchor.AddDate(0, 0, -1)
	}
}
