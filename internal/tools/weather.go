package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	geocodeEndpoint       = "https://geocoding-api.open-meteo.com/v1/search"
	forecastEndpoint      = "https://api.open-meteo.com/v1/forecast"
	weatherTimeoutSeconds = 15
	maxForecastDays       = 16
)

// wmoCodes maps WMO weather interpretation codes to descriptions.
var wmoCodes = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snowfall",
	73: "Moderate snowfall",
	75: "Heavy snowfall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

func wmoDescription(code int) string {
	if desc, ok := wmoCodes[code]; ok {
		return desc
	}
	return fmt.Sprintf("Unknown (%d)", code)
}

type geoPlace struct {
	Lat      float64
	Lon      float64
	Timezone string
	Name     string
}

// knownCities skips geocoding for a handful of frequent targets.
var knownCities = map[string]geoPlace{
	"lviv":     {49.8397, 24.0297, "Europe/Kyiv", "Lviv, Ukraine"},
	"kyiv":     {50.4501, 30.5234, "Europe/Kyiv", "Kyiv, Ukraine"},
	"london":   {51.5074, -0.1278, "Europe/London", "London, UK"},
	"new york": {40.7128, -74.0060, "America/New_York", "New York, USA"},
	"tokyo":    {35.6762, 139.6503, "Asia/Tokyo", "Tokyo, Japan"},
	"berlin":   {52.5200, 13.4050, "Europe/Berlin", "Berlin, Germany"},
	"paris":    {48.8566, 2.3522, "Europe/Paris", "Paris, France"},
	"warsaw":   {52.2297, 21.0122, "Europe/Warsaw", "Warsaw, Poland"},
}

// WeatherTool reports current conditions and a daily forecast from the free
// Open-Meteo API. No key required.
type WeatherTool struct {
	defaultCity string
	client      *http.Client

	// endpoint overrides for tests
	geocodeURL  string
	forecastURL string
}

func NewWeatherTool(defaultCity string) *WeatherTool {
	if defaultCity == "" {
		defaultCity = "lviv"
	}
	return &WeatherTool{
		defaultCity: defaultCity,
		client:      &http.Client{Timeout: weatherTimeoutSeconds * time.Second},
		geocodeURL:  geocodeEndpoint,
		forecastURL: forecastEndpoint,
	}
}

func (t *WeatherTool) Name() string { return "weather" }

func (t *WeatherTool) Description() string {
	return "Get current weather and forecast for any city via Open-Meteo. No API key needed."
}

func (t *WeatherTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	city, _ := args["city"].(string)
	city = strings.TrimSpace(city)
	if city == "" {
		city = t.defaultCity
	}

	days := 7
	if d, ok := args["forecast_days"].(float64); ok {
		days = int(d)
	}
	days = clampDays(days)

	place, err := t.geocode(ctx, city)
	if err != nil {
		return ErrorResult(err.Error())
	}

	report, err := t.forecast(ctx, place, days)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return NewResult(report)
}

func clampDays(days int) int {
	if days < 1 {
		return 1
	}
	if days > maxForecastDays {
		return maxForecastDays
	}
	return days
}

func (t *WeatherTool) geocode(ctx context.Context, city string) (geoPlace, error) {
	if place, ok := knownCities[strings.ToLower(city)]; ok {
		return place, nil
	}

	q := url.Values{}
	q.Set("name", city)
	q.Set("count", "1")
	q.Set("language", "en")

	data, err := t.getJSON(ctx, t.geocodeURL+"?"+q.Encode())
	if err != nil {
		return geoPlace{}, fmt.Errorf("geocoding failed: %w", err)
	}

	var parsed struct {
		Results []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Timezone  string  `json:"timezone"`
			Name      string  `json:"name"`
			Country   string  `json:"country"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return geoPlace{}, fmt.Errorf("geocoding failed: %w", err)
	}
	if len(parsed.Results) == 0 {
		return geoPlace{}, fmt.Errorf("City not found: %s", city)
	}
	r := parsed.Results[0]
	tz := r.Timezone
	if tz == "" {
		tz = "UTC"
	}
	name := r.Name
	if name == "" {
		name = city
	}
	if r.Country != "" {
		name += ", " + r.Country
	}
	return geoPlace{Lat: r.Latitude, Lon: r.Longitude, Timezone: tz, Name: name}, nil
}

func (t *WeatherTool) forecast(ctx context.Context, place geoPlace, days int) (string, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", place.Lat))
	q.Set("longitude", fmt.Sprintf("%.4f", place.Lon))
	q.Set("timezone", place.Timezone)
	q.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m,wind_direction_10m,pressure_msl")
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,wind_speed_10m_max")
	q.Set("forecast_days", fmt.Sprintf("%d", days))

	data, err := t.getJSON(ctx, t.forecastURL+"?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("Weather API error: %w", err)
	}

	var parsed struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			FeelsLike   float64 `json:"apparent_temperature"`
			Humidity    float64 `json:"relative_humidity_2m"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			WindDir     float64 `json:"wind_direction_10m"`
			Pressure    float64 `json:"pressure_msl"`
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
		Daily struct {
			Time          []string  `json:"time"`
			WeatherCode   []int     `json:"weather_code"`
			TempMax       []float64 `json:"temperature_2m_max"`
			TempMin       []float64 `json:"temperature_2m_min"`
			Precipitation []float64 `json:"precipitation_sum"`
			WindMax       []float64 `json:"wind_speed_10m_max"`
		} `json:"daily"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("Weather API error: %w", err)
	}

	return formatWeatherReport(place, parsed.Current.Temperature, parsed.Current.FeelsLike,
		parsed.Current.Humidity, parsed.Current.WindSpeed, parsed.Current.Pressure,
		parsed.Current.WeatherCode, parsed.Daily.Time, parsed.Daily.WeatherCode,
		parsed.Daily.TempMax, parsed.Daily.TempMin, parsed.Daily.Precipitation), nil
}

func (t *WeatherTool) getJSON(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncateStr(string(body), 200))
	}
	return body, nil
}

// formatWeatherReport renders the human-readable block appended to the agent
// output.
func formatWeatherReport(place geoPlace, temp, feels, humidity, wind, pressure float64,
	code int, dates []string, codes []int, maxT, minT, precip []float64) string {

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Weather for %s (%s)\n\n", place.Name, place.Timezone))
	sb.WriteString(fmt.Sprintf("Now: %s, %.1f°C (feels like %.1f°C)\n", wmoDescription(code), temp, feels))
	sb.WriteString(fmt.Sprintf("Humidity: %.0f%%, Wind: %.1f km/h, Pressure: %.0f hPa\n", humidity, wind, pressure))

	if len(dates) > 0 {
		sb.WriteString("\nForecast:\n")
		for i, date := range dates {
			line := fmt.Sprintf("  %s: ", date)
			if i < len(codes) {
				line += wmoDescription(codes[i])
			}
			if i < len(minT) && i < len(maxT) {
				line += fmt.Sprintf(", %.1f..%.1f°C", minT[i], maxT[i])
			}
			if i < len(precip) && precip[i] > 0 {
				line += fmt.Sprintf(", %.1f mm precipitation", precip[i])
			}
			sb.WriteString(line + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
