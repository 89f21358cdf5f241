package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const owmTokyoResponse = `{
	"weather": [{"description": "clear sky"}],
	"main": {"temp": 72.5, "feels_like": 70.1, "humidity": 40},
	"wind": {"speed": 5.2},
	"name": "Tokyo"
}`

func TestWeatherCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "Tokyo" {
			t.Errorf("unexpected location: %s", q.Get("q"))
		}
		if q.Get("appid") != "test-key" {
			t.Errorf("unexpected api key: %s", q.Get("appid"))
		}
		if q.Get("units") != "imperial" {
			t.Errorf("unexpected units: %s", q.Get("units"))
		}
		w.Write([]byte(owmTokyoResponse))
	}))
	defer srv.Close()

	c := NewWeatherClient("test-key", srv.URL, "imperial", 5*time.Second)
	report, err := c.Current(context.Background(), "Tokyo")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}

	if report.Location != "Tokyo" {
		t.Errorf("unexpected location: %s", report.Location)
	}
	if report.Temperature != 72.5 {
		t.Errorf("unexpected temperature: %v", report.Temperature)
	}
	if report.Description != "clear sky" {
		t.Errorf("unexpected description: %s", report.Description)
	}
	if report.Humidity != 40 {
		t.Errorf("unexpected humidity: %d", report.Humidity)
	}
	if !strings.Contains(report.Summary, "72.5°F") {
		t.Errorf("summary missing temperature: %s", report.Summary)
	}
}

func TestWeatherMissingCredential(t *testing.T) {
	c := NewWeatherClient("", "", "", 0)

	if c.Available() {
		t.Error("expected client without key to be unavailable")
	}

	_, err := c.Current(context.Background(), "Tokyo")
	if err == nil {
		t.Fatal("expected error without api key")
	}
	if !strings.Contains(err.Error(), "not configured") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWeatherLocationNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"cod": "404", "message": "city not found"}`))
	}))
	defer srv.Close()

	c := NewWeatherClient("test-key", srv.URL, "imperial", 5*time.Second)
	_, err := c.Current(context.Background(), "Nowheresville")
	if err == nil {
		t.Fatal("expected not-found error")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWeatherUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"cod": 401, "message": "Invalid API key"}`))
	}))
	defer srv.Close()

	c := NewWeatherClient("bad-key", srv.URL, "imperial", 5*time.Second)
	_, err := c.Current(context.Background(), "Tokyo")
	if err == nil {
		t.Fatal("expected error on 401")
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWeatherMetricSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"weather": [{"description": "light rain"}], "main": {"temp": 18.0, "humidity": 80}, "name": "Oslo"}`))
	}))
	defer srv.Close()

	c := NewWeatherClient("test-key", srv.URL, "metric", 5*time.Second)
	report, err := c.Current(context.Background(), "Oslo")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if !strings.Contains(report.Summary, "°C") {
		t.Errorf("metric summary should use celsius: %s", report.Summary)
	}
}
