// Package weatherclient fetches multi-hour forecasts from the upstream
// weather HTTP API. It follows the teacher's OpenWeatherClient shape
// (retry/backoff loop, optional circuit breaker) generalized from a
// single-reading fetch to the srf/mrf collection fetch described in spec
// §4.2 and §6. It records no Prometheus metrics of its own.
package weatherclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-alert-service/internal/forecastcache"
	"github.com/kjstillabower/weather-alert-service/internal/model"
	"github.com/kjstillabower/weather-alert-service/internal/weathercode"
)

// Sentinel errors, following the teacher's client.Err* pattern.
var (
	ErrAPIKeyMissing    = errors.New("weatherclient: api key missing")
	ErrAPIKeyInvalid    = errors.New("weatherclient: invalid api key")
	ErrRateLimited      = errors.New("weatherclient: rate limited")
	ErrUpstreamFailure  = errors.New("weatherclient: upstream server error")
	ErrEmptyData        = errors.New("weatherclient: empty payload")
	ErrLocationNotFound = errors.New("weatherclient: location not found")
)

// Client fetches the next-day hourly and daily forecast collection.
type Client interface {
	FetchNextDayHours(ctx context.Context, location string, lat, lon float64) (model.ForecastCollection, error)
}

// HTTPClient is the concrete implementation, mirroring OpenWeatherClient's
// fields and retry machinery.
type HTTPClient struct {
	apiKey         string
	apiURL         string
	timeout        time.Duration
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	httpClient     *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	cache          forecastcache.Cache
}

// NewHTTPClient validates the API key and constructs a client, same
// validation contract as NewOpenWeatherClientWithRetry.
func NewHTTPClient(apiKey, apiURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration, cache forecastcache.Cache) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: key too short", ErrAPIKeyInvalid)
	}
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	if retryBaseDelay <= 0 {
		retryBaseDelay = 1 * time.Second
	}
	if retryMaxDelay <= 0 {
		retryMaxDelay = 4 * time.Second
	}
	return &HTTPClient{
		apiKey:         apiKey,
		apiURL:         apiURL,
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		httpClient:     &http.Client{Timeout: timeout},
		cache:          cache,
	}, nil
}

// SetCircuitBreaker wires an optional circuit breaker around upstream calls.
func (c *HTTPClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.circuitBreaker = cb
}

// FetchNextDayHours issues the upstream GET, parses srf/mrf, converts each
// record via the weather-code and wind-direction tables, and writes every
// resulting forecast through to the cache (C3) before returning.
func (c *HTTPClient) FetchNextDayHours(ctx context.Context, location string, lat, lon float64) (model.ForecastCollection, error) {
	var collection model.ForecastCollection
	fetch := func() error {
		var err error
		collection, err = c.fetchWithRetry(ctx, location, lat, lon)
		return err
	}

	var err error
	if c.circuitBreaker != nil {
		err = c.circuitBreaker.Call(ctx, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return model.ForecastCollection{}, err
	}

	if c.cache != nil {
		for _, f := range collection.Forecasts {
			if cerr := c.cache.Save(ctx, f); cerr != nil {
				// Cache errors are warnings only, never fatal (spec §7).
				continue
			}
		}
	}
	return collection, nil
}

func (c *HTTPClient) fetchWithRetry(ctx context.Context, location string, lat, lon float64) (model.ForecastCollection, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return model.ForecastCollection{}, ctx.Err()
		default:
		}

		collection, err := c.callAPI(ctx, location, lat, lon)
		if err == nil {
			return collection, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == c.retryAttempts-1 {
			break
		}
		delay := c.calculateBackoff(attempt)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return model.ForecastCollection{}, ctx.Err()
		case <-t.C:
		}
	}
	return model.ForecastCollection{}, lastErr
}

func (c *HTTPClient) calculateBackoff(attempt int) time.Duration {
	base := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt))
	jitter := base * 0.1 * rand.Float64()
	delay := time.Duration(base + jitter)
	if delay > c.retryMaxDelay {
		delay = c.retryMaxDelay
	}
	return delay
}

func isRetryable(err error) bool {
	// ErrRateLimited (429) is surfaced immediately, not retried (spec §4.4).
	if errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	return strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "connection")
}

func (c *HTTPClient) callAPI(ctx context.Context, location string, lat, lon float64) (model.ForecastCollection, error) {
	url := fmt.Sprintf("%s?lat=%f&lon=%f&key=%s", c.apiURL, lat, lon, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.ForecastCollection{}, fmt.Errorf("weatherclient: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ForecastCollection{}, fmt.Errorf("weatherclient: network: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ForecastCollection{}, handleErrorResponse(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.ForecastCollection{}, fmt.Errorf("weatherclient: read body: %w", err)
	}

	var payload apiPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.ForecastCollection{}, fmt.Errorf("weatherclient: parse: %w", err)
	}
	if len(payload.WxData) == 0 {
		return model.ForecastCollection{}, ErrEmptyData
	}

	forecasts, err := parseForecasts(location, payload.WxData[0])
	if err != nil {
		return model.ForecastCollection{}, err
	}
	if len(forecasts) == 0 {
		return model.ForecastCollection{}, ErrEmptyData
	}

	return model.ForecastCollection{Location: location, Forecasts: forecasts}, nil
}

func handleErrorResponse(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrAPIKeyInvalid
	case status == http.StatusNotFound:
		return ErrLocationNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrUpstreamFailure
	default:
		return fmt.Errorf("weatherclient: unexpected status %d", status)
	}
}

// apiPayload mirrors the upstream { "wxdata": [{ "srf": [...], "mrf": [...] }] } shape.
type apiPayload struct {
	WxData []wxData `json:"wxdata"`
}

type wxData struct {
	SRF []rawRecord `json:"srf"`
	MRF []rawRecord `json:"mrf"`
}

type rawRecord struct {
	Date    string `json:"date"`
	WX      string `json:"wx"`
	Temp    string `json:"temp"`
	MaxTemp string `json:"maxtemp"`
	Prec    string `json:"prec"`
	RHum    string `json:"rhum"`
	WndSpd  string `json:"wndspd"`
	WndDir  string `json:"wnddir"`
}

// parseForecasts converts both the hourly (srf) and daily (mrf) arrays,
// skipping any record that fails to parse rather than aborting the whole
// collection (spec §4.2, §7 DataValidationError).
func parseForecasts(location string, wx wxData) ([]model.Forecast, error) {
	var out []model.Forecast
	for _, r := range wx.SRF {
		f, err := parseRecord(location, r, false)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	for _, r := range wx.MRF {
		f, err := parseRecord(location, r, true)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func parseRecord(location string, r rawRecord, daily bool) (model.Forecast, error) {
	dateStr := strings.Replace(r.Date, "Z", "+00:00", 1)
	ts, err := time.Parse(time.RFC3339, dateStr)
	if err != nil {
		return model.Forecast{}, fmt.Errorf("weatherclient: parse date %q: %w", r.Date, err)
	}
	ts = ts.In(jst())

	tempStr := r.Temp
	if daily && r.MaxTemp != "" {
		tempStr = r.MaxTemp
	}
	temp, _ := strconv.ParseFloat(tempStr, 64)

	prec, _ := strconv.ParseFloat(r.Prec, 64)
	humidity, _ := strconv.ParseFloat(r.RHum, 64)
	windSpeed, _ := strconv.ParseFloat(r.WndSpd, 64)
	windIdx, _ := strconv.Atoi(r.WndDir)
	windDir, windDeg := weathercode.WindDirectionForIndex(windIdx)

	condition := weathercode.ConditionForCode(r.WX)
	description := weathercode.DescriptionForCode(r.WX)

	f := model.Forecast{
		Location:           location,
		Timestamp:          ts,
		Temperature:        temp,
		WeatherCode:        r.WX,
		Condition:          condition,
		WeatherDescription: description,
		Precipitation:      prec,
		Humidity:           humidity,
		WindSpeed:          windSpeed,
		WindDirection:      windDir,
		WindDegrees:        windDeg,
	}
	if err := f.Validate(); err != nil {
		return model.Forecast{}, err
	}
	return f, nil
}

func jst() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return time.FixedZone("JST", 9*3600)
	}
	return loc
}
