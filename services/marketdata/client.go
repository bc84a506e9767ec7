package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// DateLayout is the timestamp format the provider uses in every series
// response, expressed in the exchange's local time.
const DateLayout = "2006-01-02 15:04:05"

// IndicatorKind selects the moving-average family of the daily
// technical-indicator endpoint.
type IndicatorKind string

const (
	IndicatorEMA IndicatorKind = "ema"
	IndicatorSMA IndicatorKind = "sma"
)

// IndicatorPeriods are the moving-average periods fetched per kind,
// in the order they appear in the persisted vectors.
var IndicatorPeriods = [3]int{5, 20, 60}

// Profile is the company profile object returned by the provider.
// The profile endpoint wraps it in a single-element array.
type Profile struct {
	Symbol            string          `json:"symbol"`
	Price             float64         `json:"price"`
	Beta              float64         `json:"beta"`
	VolAvg            decimal.Decimal `json:"volAvg"`
	MktCap            decimal.Decimal `json:"mktCap"`
	LastDiv           float64         `json:"lastDiv"`
	Changes           float64         `json:"changes"`
	Range             string          `json:"range"`
	CompanyName       string          `json:"companyName"`
	Currency          string          `json:"currency"`
	Exchange          string          `json:"exchange"`
	ExchangeShortName string          `json:"exchangeShortName"`
	Industry          string          `json:"industry"`
	Website           string          `json:"website"`
	Description       string          `json:"description"`
	CEO               string          `json:"ceo"`
	Sector            string          `json:"sector"`
	Country           string          `json:"country"`
	FullTimeEmployees string          `json:"fullTimeEmployees"`
	Image             string          `json:"image"`
	IPODate           string          `json:"ipoDate"`
	DefaultImage      bool            `json:"defaultImage"`
	IsEtf             bool            `json:"isEtf"`
	IsActivelyTrading bool            `json:"isActivelyTrading"`
	IsAdr             bool            `json:"isAdr"`
	IsFund            bool            `json:"isFund"`
}

// Bar is one raw OHLCV entry of a price series.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume float64 `json:"volume"`
}

// IndicatorBar is a Bar plus the single indicator value the daily
// technical-indicator endpoint appends. Only the field matching the
// requested kind is populated by the provider.
type IndicatorBar struct {
	Bar
	EMA float64 `json:"ema"`
	SMA float64 `json:"sma"`
}

// Value returns the indicator value for the requested kind.
func (b IndicatorBar) Value(kind IndicatorKind) float64 {
	if kind == IndicatorSMA {
		return b.SMA
	}
	return b.EMA
}

// Client talks to the upstream market-data provider. All calls honor
// the passed context and the client-level timeout, so a hung provider
// cannot stall a pipeline run indefinitely.
type Client struct {
	http   *resty.Client
	apiKey string
}

// NewClient creates a provider client for the given base URL and API key.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:   http,
		apiKey: apiKey,
	}
}

// FetchProfile fetches the company profile for one symbol. The provider
// returns a single-element array; an empty array means the symbol is
// unknown upstream and is treated as an error.
func (c *Client) FetchProfile(ctx context.Context, symbol string) (*Profile, error) {
	var profiles []Profile
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("apikey", c.apiKey).
		SetResult(&profiles).
		Get("/api/v3/profile/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch profile %s: provider returned status %d", symbol, resp.StatusCode())
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("fetch profile %s: empty result from provider", symbol)
	}
	return &profiles[0], nil
}

// FetchMinuteBars fetches the 1-minute historical chart for one symbol.
func (c *Client) FetchMinuteBars(ctx context.Context, symbol string) ([]Bar, error) {
	var bars []Bar
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("apikey", c.apiKey).
		SetResult(&bars).
		Get("/api/v3/historical-chart/1min/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch minute bars %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch minute bars %s: provider returned status %d", symbol, resp.StatusCode())
	}
	return bars, nil
}

// FetchDailyIndicator fetches the daily technical-indicator series for
// one symbol, period and moving-average kind.
func (c *Client) FetchDailyIndicator(ctx context.Context, symbol string, period int, kind IndicatorKind) ([]IndicatorBar, error) {
	var bars []IndicatorBar
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("period", fmt.Sprintf("%d", period)).
		SetQueryParam("type", string(kind)).
		SetQueryParam("apikey", c.apiKey).
		SetResult(&bars).
		Get("/api/v3/technical_indicator/daily/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch %s-%d %s: %w", kind, period, symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s-%d %s: provider returned status %d", kind, period, symbol, resp.StatusCode())
	}
	return bars, nil
}
