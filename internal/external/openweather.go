package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"velobrief/internal/forecast"
	"velobrief/internal/types"
)

const openWeatherAPIBase = "https://api.openweathermap.org"

// OpenWeatherConfig holds the settings for OpenWeatherClient.
type OpenWeatherConfig struct {
	APIKey   types.SecretString
	BaseURL  string // defaults to openWeatherAPIBase
	Language string
	Logger   *slog.Logger
}

// OpenWeatherClient fetches 5 day / 3 hour forecasts from OpenWeatherMap.
type OpenWeatherClient struct {
	base     *BaseClient
	apiKey   types.SecretString
	baseURL  string
	language string
	logger   *slog.Logger
}

// NewOpenWeatherClient creates a client on top of a configured BaseClient.
// The http.Client behind base carries the per-call timeout.
func NewOpenWeatherClient(base *BaseClient, cfg OpenWeatherConfig) *OpenWeatherClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openWeatherAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenWeatherClient{
		base:     base,
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		language: cfg.Language,
		logger:   logger,
	}
}

// owmForecastResponse is the subset of /data/2.5/forecast the bot reads.
type owmForecastResponse struct {
	City struct {
		Name     string `json:"name"`
		Country  string `json:"country"`
		Timezone *int   `json:"timezone"` // seconds east of UTC
	} `json:"city"`
	List []owmItem `json:"list"`
}

type owmItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind *struct {
		Speed float64  `json:"speed"` // m/s with units=metric
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Rain struct {
		ThreeHours float64 `json:"3h"`
	} `json:"rain"`
}

// ByCoordinates returns the forecast for a shared location.
func (c *OpenWeatherClient) ByCoordinates(ctx context.Context, lat, lon float64) (forecast.Forecast, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return c.fetch(ctx, q)
}

// ByPlace returns the forecast for a free-text place name.
func (c *OpenWeatherClient) ByPlace(ctx context.Context, name string) (forecast.Forecast, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return forecast.Forecast{}, types.NewAppError(types.ErrCodeNotFoundLocation, "empty place name", nil)
	}
	q := url.Values{}
	q.Set("q", name)
	return c.fetch(ctx, q)
}

func (c *OpenWeatherClient) fetch(ctx context.Context, q url.Values) (forecast.Forecast, error) {
	q.Set("appid", c.apiKey.Unmask())
	q.Set("units", "metric")
	if c.language != "" {
		q.Set("lang", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/forecast?"+q.Encode(), nil)
	if err != nil {
		return forecast.Forecast{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build forecast request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return forecast.Forecast{}, redactError(err, c.apiKey.Unmask())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return forecast.Forecast{}, types.NewAppErrorWithDetails(types.ErrCodeNotFoundLocation,
			"forecast provider does not know this location", nil,
			map[string]any{"status": resp.StatusCode, "body": decodeError(resp)})
	case resp.StatusCode != http.StatusOK:
		body := decodeError(resp)
		c.logger.ErrorContext(ctx, "forecast provider rejected request",
			"status", resp.StatusCode,
			"body", body,
		)
		return forecast.Forecast{}, types.NewAppError(types.ErrCodeUpstreamForecast,
			fmt.Sprintf("forecast provider returned %d", resp.StatusCode), nil)
	}

	var payload owmForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return forecast.Forecast{}, types.NewAppError(types.ErrCodeUpstreamMalformedResponse,
			"failed to decode forecast response", err)
	}
	if len(payload.List) == 0 {
		return forecast.Forecast{}, types.NewAppError(types.ErrCodeNotFoundLocation,
			"forecast provider returned no samples", nil)
	}
	return payload.toForecast(), nil
}

func (p owmForecastResponse) toForecast() forecast.Forecast {
	f := forecast.Forecast{
		Place:   placeLabel(p.City.Name, p.City.Country),
		Samples: make(forecast.Set, 0, len(p.List)),
	}
	if p.City.Timezone != nil {
		f.Zone = fixedZone(*p.City.Timezone)
	}
	for _, item := range p.List {
		s := forecast.Sample{
			TemperatureC: item.Main.Temp,
			RainMm3h:     item.Rain.ThreeHours,
		}
		if w := item.Wind; w != nil {
			s.WindSpeedKph = forecast.MetersPerSecondToKph(w.Speed)
			// A calm 0/0 reading carries no direction.
			if w.Deg != nil && (w.Speed > 0 || *w.Deg != 0) {
				s.WindBearingDeg = forecast.BearingDeg(*w.Deg)
			}
		}
		if item.Dt > 0 {
			s.Timestamp = time.Unix(item.Dt, 0).UTC()
		}
		if len(item.Weather) > 0 {
			s.Description = item.Weather[0].Description
		}
		f.Samples = append(f.Samples, s)
	}
	return f
}

func placeLabel(name, country string) string {
	switch {
	case name == "":
		return ""
	case country == "":
		return name
	default:
		return name + ", " + country
	}
}

// fixedZone names the zone after its offset, e.g. "UTC+02:00".
func fixedZone(offsetSeconds int) *time.Location {
	sign := "+"
	abs := offsetSeconds
	if abs < 0 {
		sign, abs = "-", -abs
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, abs/3600, (abs%3600)/60)
	return time.FixedZone(name, offsetSeconds)
}
