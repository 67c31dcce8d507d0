package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/marsrover/mercator"
	"github.com/wricardo/marsrover/rover/engine"
	"github.com/wricardo/marsrover/rover/service"
	"github.com/wricardo/marsrover/transport/websocket"
)

// MockRoverService implements service.RoverService for testing
type MockRoverService struct {
	ExecuteFunc func(ctx context.Context, commands string) (*service.BatchResult, error)
	StateFunc   func(ctx context.Context) (*engine.State, error)
	HistoryFunc func(ctx context.Context, opts service.HistoryOptions) (*service.HistoryResponse, error)
}

func (m *MockRoverService) Execute(ctx context.Context, commands string) (*service.BatchResult, error) {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, commands)
	}
	return &service.BatchResult{
		RequestedCommands: len(commands),
		CommandsExecuted:  len(commands),
		Success:           true,
		Rendered:          "position: 0 0\ndirection: N",
	}, nil
}

func (m *MockRoverService) State(ctx context.Context) (*engine.State, error) {
	if m.StateFunc != nil {
		return m.StateFunc(ctx)
	}
	return &engine.State{Direction: engine.North}, nil
}

func (m *MockRoverService) History(ctx context.Context, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, opts)
	}
	return &service.HistoryResponse{Moves: []engine.MoveHistoryEntry{}, Page: opts.Page, PageSize: opts.Limit}, nil
}

// newRealServer wires the API to a real service around r
func newRealServer(t *testing.T, r *engine.Rover) *Server {
	t.Helper()
	svc, err := service.NewRoverService(service.Dependencies{Rover: r})
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	return NewServer(svc, nil)
}

func postText(server http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestMove_TextProtocol(t *testing.T) {
	tests := []struct {
		name           string
		rover          *engine.Rover
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "forward from origin",
			rover:          engine.New(0, 0, engine.North),
			body:           "f",
			expectedStatus: http.StatusOK,
			expectedBody:   "position: 0 0.02712621553502488\ndirection: N",
		},
		{
			name:           "empty body renders state",
			rover:          engine.New(0, 0, engine.East),
			body:           "",
			expectedStatus: http.StatusOK,
			expectedBody:   "position: 0 0\ndirection: E",
		},
		{
			name:           "round trip",
			rover:          engine.New(0, 0, engine.North),
			body:           "fblr",
			expectedStatus: http.StatusOK,
			expectedBody:   "position: 0 0\ndirection: N",
		},
		{
			name:           "unrecognized command",
			rover:          engine.New(0, 0, engine.North),
			body:           "fx",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "unrecognized command x",
		},
		{
			name:           "trailing newline is a command",
			rover:          engine.New(0, 0, engine.North),
			body:           "l\n",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "unrecognized command \n",
		},
		{
			name:           "obstacle",
			rover:          engine.New(-10659954.353273375, 10659954, engine.East),
			body:           "f",
			expectedStatus: http.StatusConflict,
			expectedBody: "Error: obstacle detected moving forward (facing E, heading E) at (-10659954.32614716, 10659954), aborting\n" +
				"position: -10659954.353273375 10659954\ndirection: E",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := newRealServer(t, test.rover)
			w := postText(server, "/move", test.body)

			if w.Code != test.expectedStatus {
				t.Errorf("Expected status %d, got %d", test.expectedStatus, w.Code)
			}
			if w.Body.String() != test.expectedBody {
				t.Errorf("Expected body %q, got %q", test.expectedBody, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Errorf("Expected text/plain, got %s", ct)
			}
		})
	}
}

func TestMove_StatePersistsAcrossRequests(t *testing.T) {
	server := newRealServer(t, engine.New(0, 0, engine.North))

	postText(server, "/move", "f")
	w := postText(server, "/move", "b")

	if w.Body.String() != "position: 0 0\ndirection: N" {
		t.Errorf("Expected rover back at origin, got %q", w.Body.String())
	}
}

func TestMove_Errors(t *testing.T) {
	mockService := &MockRoverService{
		ExecuteFunc: func(ctx context.Context, commands string) (*service.BatchResult, error) {
			return nil, fmt.Errorf("%w: 2000 commands", service.ErrBatchTooLarge)
		},
	}
	server := NewServer(mockService, nil)

	w := postText(server, "/move", "ff")
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}

	w = postText(server, "/move", strings.Repeat("f", MaxBodyBytes+1))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413 for oversize body, got %d", w.Code)
	}
}

func TestRoutes_NotFoundAndMethod(t *testing.T) {
	server := NewServer(&MockRoverService{}, nil)

	tests := []struct {
		method         string
		path           string
		expectedStatus int
	}{
		{"GET", "/", http.StatusNotFound},
		{"POST", "/moves", http.StatusNotFound},
		{"GET", "/move", http.StatusNotFound},
		{"PUT", "/move", http.StatusNotFound},
		{"POST", "/api/rover", http.StatusNotFound},
		{"GET", "/healthz", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
	}

	for _, test := range tests {
		t.Run(test.method+" "+test.path, func(t *testing.T) {
			req := httptest.NewRequest(test.method, test.path, nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			if w.Code != test.expectedStatus {
				t.Errorf("Expected status %d, got %d", test.expectedStatus, w.Code)
			}
		})
	}
}

func TestGetState(t *testing.T) {
	mockService := &MockRoverService{
		StateFunc: func(ctx context.Context) (*engine.State, error) {
			return &engine.State{
				Position:  mercator.Coordinate{X: 12.5, Y: -3},
				Direction: engine.South,
			}, nil
		},
	}
	server := NewServer(mockService, nil)

	req := httptest.NewRequest("GET", "/api/rover", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var state engine.State
	if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if state.Position.X != 12.5 || state.Direction != engine.South {
		t.Errorf("Unexpected state: %+v", state)
	}
}

func TestCommands(t *testing.T) {
	var gotCommands string
	mockService := &MockRoverService{
		ExecuteFunc: func(ctx context.Context, commands string) (*service.BatchResult, error) {
			gotCommands = commands
			return &service.BatchResult{
				RequestedCommands: 3,
				CommandsExecuted:  1,
				StopReasonCode:    service.StopObstacle,
				StoppedOnCommand:  2,
			}, nil
		},
	}
	server := NewServer(mockService, nil)

	body, _ := json.Marshal(map[string]string{"commands": "fff"})
	req := httptest.NewRequest("POST", "/api/rover/commands", bytes.NewReader(body))
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotCommands != "fff" {
		t.Errorf("Expected commands fff, got %q", gotCommands)
	}

	var result service.BatchResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.StopReasonCode != service.StopObstacle || result.StoppedOnCommand != 2 {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestCommands_InvalidBody(t *testing.T) {
	server := NewServer(&MockRoverService{}, nil)

	req := httptest.NewRequest("POST", "/api/rover/commands", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["error"] == "" {
		t.Error("Expected error message in response")
	}
}

func TestGetHistory_QueryParsing(t *testing.T) {
	tests := []struct {
		query         string
		expectedPage  int
		expectedLimit int
		expectedOrder string
	}{
		{"", 1, 20, "desc"},
		{"?page=3&limit=5&order=asc", 3, 5, "asc"},
		{"?page=-1&limit=abc", 1, 20, "desc"},
	}

	for _, test := range tests {
		t.Run(test.query, func(t *testing.T) {
			var got service.HistoryOptions
			mockService := &MockRoverService{
				HistoryFunc: func(ctx context.Context, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{Moves: []engine.MoveHistoryEntry{}}, nil
				},
			}
			server := NewServer(mockService, nil)

			req := httptest.NewRequest("GET", "/api/rover/history"+test.query, nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got.Page != test.expectedPage || got.Limit != test.expectedLimit || got.Order != test.expectedOrder {
				t.Errorf("Unexpected options: %+v", got)
			}
		})
	}
}

func TestGetHistory_InvalidOrder(t *testing.T) {
	server := newRealServer(t, engine.New(0, 0, engine.North))

	req := httptest.NewRequest("GET", "/api/rover/history?order=sideways", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetHistory_AfterMoves(t *testing.T) {
	server := newRealServer(t, engine.New(0, 0, engine.North))
	postText(server, "/move", "frx")

	req := httptest.NewRequest("GET", "/api/rover/history?order=asc", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	var history service.HistoryResponse
	if err := json.NewDecoder(w.Body).Decode(&history); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if history.TotalMoves != 3 || len(history.Moves) != 3 {
		t.Fatalf("Expected 3 journaled moves, got %d", history.TotalMoves)
	}
	if history.Moves[2].Command != "x" || history.Moves[2].Success {
		t.Errorf("Expected failed x entry last, got %+v", history.Moves[2])
	}
}

func TestGetHistory_PageBeyondEnd(t *testing.T) {
	server := newRealServer(t, engine.New(0, 0, engine.North))
	postText(server, "/move", "ff")

	req := httptest.NewRequest("GET", "/api/rover/history?page=9223372036854775807&limit=100", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var history service.HistoryResponse
	if err := json.NewDecoder(w.Body).Decode(&history); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(history.Moves) != 0 || history.TotalMoves != 2 || history.HasNext {
		t.Errorf("Expected an empty last page, got %+v", history)
	}
}

func TestMove_BroadcastsToWebSocket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub(nil)
	go hub.Run(ctx)

	svc, _ := service.NewRoverService(service.Dependencies{Rover: engine.New(0, 0, engine.North)})
	httpServer := httptest.NewServer(NewServer(svc, hub))
	defer httpServer.Close()

	conn := dialWS(t, httpServer.URL)
	defer conn.Close()

	if msg := readWS(t, conn); msg.State == nil || msg.State.Position.Y != 0 {
		t.Fatalf("Expected initial state, got %+v", msg)
	}

	resp, err := http.Post(httpServer.URL+"/move", "text/plain", strings.NewReader("f"))
	if err != nil {
		t.Fatalf("POST /move failed: %v", err)
	}
	resp.Body.Close()

	msg := readWS(t, conn)
	if msg.Event != websocket.EventStateUpdate || msg.State.Position.Y != engine.Movement {
		t.Errorf("Expected broadcast after move, got %+v", msg)
	}
}

func TestWebSocket_DisabledWithoutHub(t *testing.T) {
	server := NewServer(&MockRoverService{}, nil)

	req := httptest.NewRequest("GET", "/ws", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	server := NewServer(&MockRoverService{}, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", resp)
	}
}

func TestConcurrentMoves(t *testing.T) {
	server := newRealServer(t, engine.New(0, 0, engine.North))

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			postText(server, "/move", "rrrr")
		}()
	}
	for i := 0; i < 20; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for concurrent moves")
		}
	}

	w := postText(server, "/move", "")
	if w.Body.String() != "position: 0 0\ndirection: N" {
		t.Errorf("Expected N after full rotations, got %q", w.Body.String())
	}
}
