package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestWeather_KnownCity verifies the shortcut map skips geocoding and the
// report carries current conditions plus the forecast.
func TestWeather_KnownCity(t *testing.T) {
	var geocodeCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "search") {
			geocodeCalls++
			http.Error(w, "should not be called", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"current": {"temperature_2m": 21.4, "apparent_temperature": 20.1,
				"relative_humidity_2m": 55, "wind_speed_10m": 12.3,
				"wind_direction_10m": 180, "pressure_msl": 1013, "weather_code": 2},
			"daily": {"time": ["2026-08-24", "2026-08-25"],
				"weather_code": [2, 61],
				"temperature_2m_max": [24.0, 19.5],
				"temperature_2m_min": [14.2, 12.8],
				"precipitation_sum": [0, 4.2],
				"wind_speed_10m_max": [15.0, 22.1]}
		}`)
	}))
	defer srv.Close()

	tool := NewWeatherTool("")
	tool.forecastURL = srv.URL + "/forecast"
	tool.geocodeURL = srv.URL + "/search"

	res := tool.Execute(context.Background(), map[string]interface{}{"city": "Lviv", "forecast_days": float64(2)})
	if res.IsError {
		t.Fatalf("error: %s", res.ForLLM)
	}
	if geocodeCalls != 0 {
		t.Errorf("geocoding called %d times for a known city", geocodeCalls)
	}
	for _, want := range []string{
		"Weather for Lviv, Ukraine (Europe/Kyiv)",
		"Partly cloudy, 21.4°C (feels like 20.1°C)",
		"2026-08-24: Partly cloudy, 14.2..24.0°C",
		"2026-08-25: Slight rain, 12.8..19.5°C, 4.2 mm precipitation",
	} {
		if !strings.Contains(res.ForLLM, want) {
			t.Errorf("report missing %q:\n%s", want, res.ForLLM)
		}
	}
}

// TestWeather_Geocode verifies unknown cities go through the geocoding
// endpoint.
func TestWeather_Geocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "search") {
			if got := r.URL.Query().Get("name"); got != "Reykjavik" {
				t.Errorf("geocode name = %q", got)
			}
			fmt.Fprint(w, `{"results": [{"latitude": 64.1466, "longitude": -21.9426,
				"timezone": "Atlantic/Reykjavik", "name": "Reykjavik", "country": "Iceland"}]}`)
			return
		}
		fmt.Fprint(w, `{"current": {"temperature_2m": 9.0, "weather_code": 3},
			"daily": {"time": [], "weather_code": []}}`)
	}))
	defer srv.Close()

	tool := NewWeatherTool("")
	tool.forecastURL = srv.URL + "/forecast"
	tool.geocodeURL = srv.URL + "/search"

	res := tool.Execute(context.Background(), map[string]interface{}{"city": "Reykjavik"})
	if res.IsError {
		t.Fatalf("error: %s", res.ForLLM)
	}
	if !strings.Contains(res.ForLLM, "Reykjavik, Iceland") {
		t.Errorf("report:\n%s", res.ForLLM)
	}
}

// TestWeather_CityNotFound verifies the empty-geocode error shape.
func TestWeather_CityNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results": []}`)
	}))
	defer srv.Close()

	tool := NewWeatherTool("")
	tool.geocodeURL = srv.URL + "/search"

	res := tool.Execute(context.Background(), map[string]interface{}{"city": "Atlantisville"})
	if !res.IsError || !strings.Contains(res.ForLLM, "City not found: Atlantisville") {
		t.Errorf("result = %+v", res)
	}
}

// TestClampDays covers the 1..16 bounds.
func TestClampDays(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {-3, 1}, {1, 1}, {7, 7}, {16, 16}, {30, 16},
	}
	for _, tt := range tests {
		if got := clampDays(tt.in); got != tt.want {
			t.Errorf("clampDays(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestWMODescription covers known and unknown codes.
func TestWMODescription(t *testing.T) {
	if got := wmoDescription(0); got != "Clear sky" {
		t.Errorf("code 0 = %q", got)
	}
	if got := wmoDescription(95); got != "Thunderstorm" {
		t.Errorf("code 95 = %q", got)
	}
	if got := wmoDescription(42); got != "Unknown (42)" {
		t.Errorf("code 42 = %q", got)
	}
}
