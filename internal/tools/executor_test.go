package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"toolbridge/internal/registry"
)

func newTestExecutor(t *testing.T, deletePassword string) *Executor {
	t.Helper()

	reg, err := registry.Load()
	if err != nil {
		t.Fatalf("registry.Load failed: %v", err)
	}

	store, err := NewUserStore(filepath.Join(t.TempDir(), "test.db"), DefaultRetryPolicy())
	if err != nil {
		t.Fatalf("NewUserStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	weatherSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(owmTokyoResponse))
	}))
	t.Cleanup(weatherSrv.Close)

	launchSrv := newLaunchTestServer(t)
	t.Cleanup(launchSrv.Close)

	weather := NewWeatherClient("test-key", weatherSrv.URL, "imperial", 5*time.Second)
	launches := NewLaunchClient(launchSrv.URL, 5, 5*time.Second)

	return NewExecutor(reg, store, weather, launches, deletePassword)
}

func TestExecuteAddAndListUsers(t *testing.T) {
	e := newTestExecutor(t, "")
	ctx := context.Background()

	payload, err := e.Execute(ctx, "add_user", map[string]interface{}{
		"name":  "Alice Johnson",
		"email": "alice@example.com",
	})
	if err != nil {
		t.Fatalf("add_user failed: %v", err)
	}
	user, ok := payload.(*User)
	if !ok {
		t.Fatalf("unexpected payload type %T", payload)
	}
	if user.Name != "Alice Johnson" {
		t.Errorf("unexpected user: %+v", user)
	}

	payload, err = e.Execute(ctx, "list_users", nil)
	if err != nil {
		t.Fatalf("list_users failed: %v", err)
	}
	list, ok := payload.(*UserListResult)
	if !ok {
		t.Fatalf("unexpected payload type %T", payload)
	}
	if list.Count != 1 {
		t.Errorf("expected 1 user, got %d", list.Count)
	}
}

func TestExecuteFindAndCount(t *testing.T) {
	e := newTestExecutor(t, "")
	ctx := context.Background()

	if _, err := e.store.AddUser(ctx, "Bob Smith", "bob@example.com"); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}

	payload, err := e.Execute(ctx, "find_user", map[string]interface{}{"name": "Bob"})
	if err != nil {
		t.Fatalf("find_user failed: %v", err)
	}
	list := payload.(*UserListResult)
	if list.Count != 1 || list.Users[0].Email != "bob@example.com" {
		t.Errorf("unexpected result: %+v", list)
	}

	payload, err = e.Execute(ctx, "count_users", nil)
	if err != nil {
		t.Fatalf("count_users failed: %v", err)
	}
	if payload.(*CountResult).Count != 1 {
		t.Errorf("unexpected count: %+v", payload)
	}
}

func TestExecuteDeleteUserPasswordGate(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes disabled without configured password", func(t *testing.T) {
		e := newTestExecutor(t, "")
		_, err := e.Execute(ctx, "delete_user", map[string]interface{}{
			"name": "Bob Smith", "password": "anything",
		})
		var toolErr *ToolError
		if !errors.As(err, &toolErr) {
			t.Fatalf("expected ToolError, got %v", err)
		}
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		e := newTestExecutor(t, "secret")
		_, err := e.Execute(ctx, "delete_user", map[string]interface{}{
			"name": "Bob Smith", "password": "wrong",
		})
		var toolErr *ToolError
		if !errors.As(err, &toolErr) {
			t.Fatalf("expected ToolError, got %v", err)
		}
	})

	t.Run("correct password deletes", func(t *testing.T) {
		e := newTestExecutor(t, "secret")
		if _, err := e.store.AddUser(ctx, "Bob Smith", "bob@example.com"); err != nil {
			t.Fatalf("AddUser failed: %v", err)
		}

		payload, err := e.Execute(ctx, "delete_user", map[string]interface{}{
			"name": "Bob Smith", "password": "secret",
		})
		if err != nil {
			t.Fatalf("delete_user failed: %v", err)
		}
		if payload.(*DeleteResult).Deleted != 1 {
			t.Errorf("unexpected result: %+v", payload)
		}
	})
}

func TestExecuteWeatherAndLaunches(t *testing.T) {
	e := newTestExecutor(t, "")
	ctx := context.Background()

	payload, err := e.Execute(ctx, "get_weather", map[string]interface{}{"location": "Tokyo"})
	if err != nil {
		t.Fatalf("get_weather failed: %v", err)
	}
	if payload.(*WeatherReport).Location != "Tokyo" {
		t.Errorf("unexpected report: %+v", payload)
	}

	payload, err = e.Execute(ctx, "get_launches", map[string]interface{}{"topic": "rockets"})
	if err != nil {
		t.Fatalf("get_launches failed: %v", err)
	}
	if payload.(*LaunchReport).Topic != TopicRockets {
		t.Errorf("unexpected report: %+v", payload)
	}

	// topic is optional
	payload, err = e.Execute(ctx, "get_launches", nil)
	if err != nil {
		t.Fatalf("get_launches without topic failed: %v", err)
	}
	if payload.(*LaunchReport).Topic != TopicLaunches {
		t.Errorf("unexpected report: %+v", payload)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	e := newTestExecutor(t, "")

	_, err := e.Execute(context.Background(), "teleport", nil)
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if !errors.Is(err, registry.ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestExecuteWeatherUnavailable(t *testing.T) {
	reg, err := registry.Load()
	if err != nil {
		t.Fatalf("registry.Load failed: %v", err)
	}
	store, err := NewUserStore(filepath.Join(t.TempDir(), "test.db"), DefaultRetryPolicy())
	if err != nil {
		t.Fatalf("NewUserStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	e := NewExecutor(reg, store, NewWeatherClient("", "", "", 0), NewLaunchClient("", 5, 0), "")

	_, err = e.Execute(context.Background(), "get_weather", map[string]interface{}{"location": "Tokyo"})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError for missing credential, got %v", err)
	}
}

func TestCapabilities(t *testing.T) {
	e := newTestExecutor(t, "")

	caps := e.Capabilities(context.Background())
	if !caps["store"] {
		t.Error("expected store to be available")
	}
	if !caps["weather"] {
		t.Error("expected weather to be available with a key")
	}
	if !caps["launches"] {
		t.Error("expected launches to be available")
	}

	degraded := NewExecutor(e.registry, e.store, NewWeatherClient("", "", "", 0), e.launches, "")
	caps = degraded.Capabilities(context.Background())
	if caps["weather"] {
		t.Error("expected weather to be unavailable without a key")
	}
}
