package tools

import (
	"context"
	"fmt"

	"toolbridge/internal/logging"
	"toolbridge/internal/registry"
)

// UserListResult is the payload for list_users and find_user.
type UserListResult struct {
	Count int    `json:"count"`
	Users []User `json:"users"`
}

// CountResult is the payload for count_users.
type CountResult struct {
	Count int64 `json:"count"`
}

// DeleteResult is the payload for delete_user.
type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}

// Executor routes validated tool calls to their backend adapters. It only
// accepts tools the registry knows; the resolver has already validated
// parameters against the tool's schema by the time a call lands here.
type Executor struct {
	registry *registry.Registry
	store    *UserStore
	weather  *WeatherClient
	launches *LaunchClient

	// deletePassword gates delete_user. Empty disables deletes entirely.
	deletePassword string
}

// NewExecutor wires the adapters behind the registry's backends.
func NewExecutor(reg *registry.Registry, store *UserStore, weather *WeatherClient, launches *LaunchClient, deletePassword string) *Executor {
	return &Executor{
		registry:       reg,
		store:          store,
		weather:        weather,
		launches:       launches,
		deletePassword: deletePassword,
	}
}

// Capabilities reports per-backend availability for the health surface.
func (e *Executor) Capabilities(ctx context.Context) map[string]bool {
	storeOK := e.store != nil && e.store.Ping(ctx) == nil
	return map[string]bool{
		string(registry.BackendStore):    storeOK,
		string(registry.BackendWeather):  e.weather != nil && e.weather.Available(),
		string(registry.BackendLaunches): e.launches != nil,
	}
}

// Execute runs one tool call and returns its payload. All failures come
// back as *ToolError so a caller can distinguish execution failures from
// resolution failures.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]interface{}) (interface{}, error) {
	descriptor, err := e.registry.Lookup(toolName)
	if err != nil {
		return nil, toolErr(toolName, "unknown tool", err)
	}

	logging.Tools("Executing %s (backend=%s)", toolName, descriptor.Backend)

	switch toolName {
	case "add_user":
		return e.execAddUser(ctx, params)
	case "list_users":
		return e.execListUsers(ctx)
	case "find_user":
		return e.execFindUser(ctx, params)
	case "count_users":
		return e.execCountUsers(ctx)
	case "delete_user":
		return e.execDeleteUser(ctx, params)
	case "get_weather":
		return e.execGetWeather(ctx, params)
	case "get_launches":
		return e.execGetLaunches(ctx, params)
	default:
		// Registry knows the tool but the executor has no handler. A
		// manifest/dispatch mismatch, not a caller error.
		return nil, toolErr(toolName, "no handler for tool", nil)
	}
}

// stringParam extracts a string parameter. The resolver's schema validation
// guarantees type, so anything else here is a defect worth surfacing.
func stringParam(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name]
	if !ok {
		return "", fmt.Errorf("missing parameter %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q is not a string", name)
	}
	return s, nil
}

// optionalStringParam extracts a string parameter, empty when absent.
func optionalStringParam(params map[string]interface{}, name string) string {
	if v, ok := params[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (e *Executor) execAddUser(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	name, err := stringParam(params, "name")
	if err != nil {
		return nil, toolErr("add_user", "invalid parameters", err)
	}
	email, err := stringParam(params, "email")
	if err != nil {
		return nil, toolErr("add_user", "invalid parameters", err)
	}

	user, err := e.store.AddUser(ctx, name, email)
	if err != nil {
		logging.ToolsError("add_user failed: %v", err)
		return nil, toolErr("add_user", "store operation failed", err)
	}
	return user, nil
}

func (e *Executor) execListUsers(ctx context.Context) (interface{}, error) {
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		logging.ToolsError("list_users failed: %v", err)
		return nil, toolErr("list_users", "store operation failed", err)
	}
	if users == nil {
		users = []User{}
	}
	return &UserListResult{Count: len(users), Users: users}, nil
}

func (e *Executor) execFindUser(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	name, err := stringParam(params, "name")
	if err != nil {
		return nil, toolErr("find_user", "invalid parameters", err)
	}

	users, err := e.store.FindUser(ctx, name)
	if err != nil {
		logging.ToolsError("find_user failed: %v", err)
		return nil, toolErr("find_user", "store operation failed", err)
	}
	if users == nil {
		users = []User{}
	}
	return &UserListResult{Count: len(users), Users: users}, nil
}

func (e *Executor) execCountUsers(ctx context.Context) (interface{}, error) {
	count, err := e.store.CountUsers(ctx)
	if err != nil {
		logging.ToolsError("count_users failed: %v", err)
		return nil, toolErr("count_users", "store operation failed", err)
	}
	return &CountResult{Count: count}, nil
}

func (e *Executor) execDeleteUser(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	name, err := stringParam(params, "name")
	if err != nil {
		return nil, toolErr("delete_user", "invalid parameters", err)
	}

	if e.deletePassword == "" {
		return nil, toolErr("delete_user", "deletes are disabled (no delete password configured)", nil)
	}
	if optionalStringParam(params, "password") != e.deletePassword {
		return nil, toolErr("delete_user", "invalid or missing password", nil)
	}

	deleted, err := e.store.DeleteUser(ctx, name)
	if err != nil {
		logging.ToolsError("delete_user failed: %v", err)
		return nil, toolErr("delete_user", "store operation failed", err)
	}
	return &DeleteResult{Deleted: deleted}, nil
}

func (e *Executor) execGetWeather(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	location, err := stringParam(params, "location")
	if err != nil {
		return nil, toolErr("get_weather", "invalid parameters", err)
	}

	report, err := e.weather.Current(ctx, location)
	if err != nil {
		logging.ToolsError("get_weather failed: %v", err)
		return nil, toolErr("get_weather", "weather lookup failed", err)
	}
	return report, nil
}

func (e *Executor) execGetLaunches(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	topic := optionalStringParam(params, "topic")

	report, err := e.launches.Fetch(ctx, topic)
	if err != nil {
		logging.ToolsError("get_launches failed: %v", err)
		return nil, toolErr("get_launches", "launch lookup failed", err)
	}
	return report, nil
}
