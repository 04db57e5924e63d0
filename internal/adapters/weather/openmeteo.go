// Package weather looks up current conditions through the Open-Meteo API.
package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/tidwall/gjson"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"

	Unknown = "Unknown"
)

var _ domain.WeatherProvider = (*OpenMeteo)(nil)

type OpenMeteo struct {
	geocodingURL string
	forecastURL  string
	client       *http.Client
}

func NewOpenMeteo(geocodingURL, forecastURL string) *OpenMeteo {
	if geocodingURL == "" {
		geocodingURL = DefaultGeocodingURL
	}
	if forecastURL == "" {
		forecastURL = DefaultForecastURL
	}
	return &OpenMeteo{
		geocodingURL: geocodingURL,
		forecastURL:  forecastURL,
		client:       &http.Client{Timeout: 5 * time.Second},
	}
}

// Current returns e.g. "18.5°C, Partly cloudy". Locations formatted as "City, Country"
// are geocoded by city.
func (o *OpenMeteo) Current(ctx context.Context, location string) (string, error) {
	city := strings.TrimSpace(strings.Split(location, ",")[0])
	if city == "" || city == Unknown {
		return Unknown, nil
	}

	geo, err := o.get(ctx, o.geocodingURL, url.Values{
		"name":     {city},
		"count":    {"1"},
		"language": {"en"},
		"format":   {"json"},
	})
	if err != nil {
		return Unknown, err
	}
	place := gjson.GetBytes(geo, "results.0")
	if !place.Exists() {
		return Unknown, nil
	}

	forecast, err := o.get(ctx, o.forecastURL, url.Values{
		"latitude":         {place.Get("latitude").String()},
		"longitude":        {place.Get("longitude").String()},
		"current":          {"temperature_2m,weather_code,is_day"},
		"temperature_unit": {"celsius"},
	})
	if err != nil {
		return Unknown, err
	}

	current := gjson.GetBytes(forecast, "current")
	if !current.Get("temperature_2m").Exists() {
		return Unknown, fmt.Errorf("%w: forecast without current conditions", domain.ErrExternalService)
	}
	return fmt.Sprintf("%s°C, %s",
		current.Get("temperature_2m").String(),
		Describe(int(current.Get("weather_code").Int()))), nil
}

func (o *OpenMeteo) get(ctx context.Context, base string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: open-meteo: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: open-meteo returned %d", domain.ErrExternalService, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

var descriptions = map[int]string{
	0: "Clear sky", 1: "Mainly clear", 2: "Partly cloudy", 3: "Overcast",
	45: "Fog", 48: "Depositing rime fog",
	51: "Light drizzle", 53: "Moderate drizzle", 55: "Dense drizzle",
	56: "Light freezing drizzle", 57: "Dense freezing drizzle",
	61: "Slight rain", 63: "Moderate rain", 65: "Heavy rain",
	66: "Light freezing rain", 67: "Heavy freezing rain",
	71: "Slight snow fall", 73: "Moderate snow fall", 75: "Heavy snow fall", 77: "Snow grains",
	80: "Slight rain showers", 81: "Moderate rain showers", 82: "Violent rain showers",
	85: "Slight snow showers", 86: "Heavy snow showers",
	95: "Thunderstorm", 96: "Thunderstorm with slight hail", 99: "Thunderstorm with heavy hail",
}

// Describe maps a WMO weather interpretation code to text.
func Describe(code int) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return Unknown
}
