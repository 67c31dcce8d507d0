package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/marsrover/config"
	"github.com/wricardo/marsrover/logging"
	"github.com/wricardo/marsrover/rover/journal"
	"github.com/wricardo/marsrover/transport/mcp"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Host: "localhost", Port: 3000, ReadTimeout: 15, WriteTimeout: 15},
		Log:     config.LogConfig{Level: "error", Format: "text"},
		Journal: config.JournalConfig{Capacity: 10},
		Rover:   config.RoverConfig{X: 0, Y: 0, Direction: "N"},
	}
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}
}

func TestNewApp(t *testing.T) {
	app := newApp()
	if app.Action == nil {
		t.Fatal("Expected a default action")
	}

	names := map[string]bool{}
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"serve", "mcp", "watch"} {
		if !names[want] {
			t.Errorf("Expected %s subcommand", want)
		}
	}
}

func TestApplyRoverArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		expectErr bool
		x, y      float64
		direction string
	}{
		{"no args keeps config", nil, false, 0, 0, "N"},
		{"full landing", []string{"-3.5", "7.25", "W"}, false, -3.5, 7.25, "W"},
		{"too few", []string{"1", "2"}, true, 0, 0, "N"},
		{"bad x", []string{"east", "2", "N"}, true, 0, 0, "N"},
		{"bad y", []string{"1", "north", "N"}, true, 0, 0, "N"},
		{"lowercase direction", []string{"1", "2", "n"}, true, 0, 0, "N"},
		{"unknown direction", []string{"1", "2", "Q"}, true, 0, 0, "N"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := testConfig()
			err := applyRoverArgs(cfg, test.args)

			if test.expectErr {
				if err == nil {
					t.Fatal("Expected error")
				}
			} else if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if cfg.Rover.X != test.x || cfg.Rover.Y != test.y || cfg.Rover.Direction != test.direction {
				t.Errorf("Unexpected rover config: %+v", cfg.Rover)
			}
		})
	}
}

// runLoadConfig parses args with the root flags and returns what loadConfig
// produced.
func runLoadConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var cfg *config.Config
	cmd := &cli.Command{
		Name:  "marsrover",
		Flags: newApp().Flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var err error
			cfg, err = loadConfig(cmd)
			return err
		},
	}
	err := cmd.Run(context.Background(), append([]string{"marsrover"}, args...))
	return cfg, err
}

func TestLoadConfig_OverridesBeforeValidation(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MARSROVER_ROVER_DIRECTION", "sideways")

	cfg, err := runLoadConfig(t, "--port=9090", "1.5", "2.5", "W")
	if err != nil {
		t.Fatalf("Expected positional direction to replace the invalid one, got %v", err)
	}
	if cfg.Rover.X != 1.5 || cfg.Rover.Y != 2.5 || cfg.Rover.Direction != "W" {
		t.Errorf("Unexpected rover config: %+v", cfg.Rover)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if _, err := runLoadConfig(t); err == nil {
		t.Error("Expected the invalid direction to fail without overrides")
	}
}

func TestOpenJournal(t *testing.T) {
	mem, err := openJournal(config.JournalConfig{Capacity: 5})
	if err != nil {
		t.Fatalf("openJournal failed: %v", err)
	}
	defer mem.Close()
	if _, ok := mem.(*journal.MemoryJournal); !ok {
		t.Errorf("Expected memory journal, got %T", mem)
	}

	db, err := openJournal(config.JournalConfig{Path: filepath.Join(t.TempDir(), "moves.db"), Capacity: 5})
	if err != nil {
		t.Fatalf("openJournal failed: %v", err)
	}
	defer db.Close()
	if _, ok := db.(*journal.SQLiteJournal); !ok {
		t.Errorf("Expected sqlite journal, got %T", db)
	}
}

func TestInitializeServices(t *testing.T) {
	cfg := testConfig()
	cfg.Rover.Direction = "E"

	a, err := initializeServices(context.Background(), cfg, logging.New(io.Discard, "error", "text"))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer a.Close()

	result, err := a.service.Execute(context.Background(), "ff")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success || result.EndDirection.String() != "E" {
		t.Errorf("Unexpected result: %+v", result)
	}

	state, err := a.service.State(context.Background())
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state.Position.X <= 0 {
		t.Errorf("Expected rover to move east, got %s", state.Position)
	}
}

func TestNewRouter_MCPEndpoint(t *testing.T) {
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("api"))
	})
	router := newRouter(apiHandler, mcp.NewClient("http://localhost:0"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/mcp", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /mcp, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"jsonrpc":"2.0"`) {
		t.Errorf("Expected JSON-RPC response, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/rover", nil))
	if rec.Body.String() != "api" {
		t.Errorf("Expected API handler at root, got %q", rec.Body.String())
	}
}

func TestAPIAvailable(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	if !apiAvailable(context.Background(), healthy.URL) {
		t.Error("Expected healthy API to be available")
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := down.URL
	down.Close()

	if apiAvailable(context.Background(), url) {
		t.Error("Expected closed server to be unavailable")
	}
}
