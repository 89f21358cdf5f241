package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"toolbridge/internal/logging"
)

// WeatherReport is the structured current-conditions payload for a location.
type WeatherReport struct {
	Location    string  `json:"location"`
	Description string  `json:"description"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Units       string  `json:"units"`
	Summary     string  `json:"summary"`
}

// WeatherClient fetches current conditions from OpenWeatherMap. A client
// with no API key is constructible but degraded: every call reports a
// credential error instead of failing the process at startup.
type WeatherClient struct {
	apiKey     string
	baseURL    string
	units      string
	httpClient *http.Client
}

// NewWeatherClient creates a weather client. baseURL and units fall back to
// OpenWeatherMap defaults when empty.
func NewWeatherClient(apiKey, baseURL, units string, timeout time.Duration) *WeatherClient {
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org/data/2.5"
	}
	if units == "" {
		units = "imperial"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeatherClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		units:      units,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Available reports whether the weather capability has a credential.
func (c *WeatherClient) Available() bool {
	return c.apiKey != ""
}

// owmResponse is the slice of the OpenWeatherMap current-weather response
// this adapter reads.
type owmResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
}

// Current fetches current conditions for a location.
func (c *WeatherClient) Current(ctx context.Context, location string) (*WeatherReport, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("weather API key not configured")
	}
	if location == "" {
		return nil, fmt.Errorf("location is required")
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", c.apiKey)
	q.Set("units", c.units)
	reqURL := fmt.Sprintf("%s/weather?%s", c.baseURL, q.Encode())

	logging.API("Fetching weather for %q", location)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read weather response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("location %q not found", location)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API returned status %d: %s", resp.StatusCode, string(body))
	}

	var owm owmResponse
	if err := json.Unmarshal(body, &owm); err != nil {
		return nil, fmt.Errorf("failed to parse weather response: %w", err)
	}

	report := &WeatherReport{
		Location:    location,
		Temperature: owm.Main.Temp,
		FeelsLike:   owm.Main.FeelsLike,
		Humidity:    owm.Main.Humidity,
		WindSpeed:   owm.Wind.Speed,
		Units:       c.units,
	}
	if owm.Name != "" {
		report.Location = owm.Name
	}
	if len(owm.Weather) > 0 {
		report.Description = owm.Weather[0].Description
	}

	unit := "°F"
	if c.units == "metric" {
		unit = "°C"
	}
	report.Summary = fmt.Sprintf("%s: %.1f%s, %s, humidity: %d%%",
		report.Location, report.Temperature, unit, report.Description, report.Humidity)

	logging.APIDebug("Weather for %q: %s", location, report.Summary)
	return report, nil
}
