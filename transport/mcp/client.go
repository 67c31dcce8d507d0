package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/marsrover/mercator"
	"github.com/wricardo/marsrover/rover/engine"
	"github.com/wricardo/marsrover/rover/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Mars Rover",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Mars Rover - MCP Interface

This is a thin client that proxies all requests to the rover REST API.

AVAILABLE TOOLS:
- rover_state: Get the rover position and heading
- rover_move: Send a command string (f, b, l, r) - requires intent explanation
- rover_history: View journaled moves
- rover_instructions: Command reference and surface rules

NOTE: The 'intent' parameter on rover_move serves as rubber duck debugging - explain your reasoning!`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rover_state",
		Description: "Get the current rover position, heading and lon/lat",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rover_move",
		Description: "Execute a command string. f=forward, b=backward, l=turn left, r=turn right. Execution stops at the first unknown command or obstacle.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"commands": map[string]interface{}{
					"type":        "string",
					"description": "Commands to execute in order, e.g. \"ffrff\"",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Why you are sending these commands",
				},
			},
			Required: []string{"commands", "intent"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rover_history",
		Description: "Get journaled moves with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"page": map[string]interface{}{
					"type":        "number",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Moves per page (default 20, max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"description": "asc or desc (default desc, newest first)",
					"enum":        []string{"asc", "desc"},
				},
			},
		},
	}, c.handleHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rover_instructions",
		Description: "Get the command reference and surface rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeStdio runs the MCP server over stdin/stdout until the client exits
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// Tool handlers

func (c *Client) handleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var state engine.State
	if err := c.apiCall(ctx, "GET", "/api/rover", nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	commands, _ := args["commands"].(string)
	intent, _ := args["intent"].(string)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = intent

	var result service.BatchResult
	err := c.apiCall(ctx, "POST", "/api/rover/commands", map[string]string{"commands": commands}, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBatchResult(&result)), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params.Set("order", order)
	}

	path := "/api/rover/history"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := fmt.Sprintf(`MARS ROVER - INSTRUCTIONS

COMMANDS:
- f: move forward one step in the facing direction
- b: move backward one step without turning
- l: turn 90 degrees left in place
- r: turn 90 degrees right in place

Commands run left to right. Execution stops at the first unknown
character or blocked move; earlier commands stay applied.

SURFACE:
- Positions are spherical-mercator coordinates, each axis in [-%[1]s, %[1]s].
- One step is %[2]s units.
- Crossing east or west wraps to the opposite edge.
- Crossing a pole lands on the far side and reverses the heading.

OBSTACLES:
- A step is refused when |sin(x) - cos(y)| < %[3]s at the target.
- A refused move changes nothing. Turn and try another way.

TIPS:
- Check rover_state before planning.
- Send short command strings near obstacles.
- rover_history shows every attempt, including refused ones.`,
		mercator.FormatFloat(mercator.MaxExtent),
		mercator.FormatFloat(engine.Movement),
		mercator.FormatFloat(engine.ObstacleThreshold))

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatState(state *engine.State) string {
	return fmt.Sprintf("Position: (%s, %s)\nDirection: %s\nLon/Lat: %.6f, %.6f\n",
		mercator.FormatFloat(state.Position.X),
		mercator.FormatFloat(state.Position.Y),
		state.Direction,
		state.Lon, state.Lat)
}

func formatBatchResult(result *service.BatchResult) string {
	var b strings.Builder

	if result.Success {
		fmt.Fprintf(&b, "✓ Executed %d/%d commands\n", result.CommandsExecuted, result.RequestedCommands)
	} else {
		fmt.Fprintf(&b, "✗ Stopped on command %d (%s): %s\n",
			result.StoppedOnCommand, result.StopReasonCode, result.StoppedReason)
		fmt.Fprintf(&b, "Executed %d/%d commands\n", result.CommandsExecuted, result.RequestedCommands)
	}

	if result.PoleCrossings > 0 {
		fmt.Fprintf(&b, "Pole crossings: %d\n", result.PoleCrossings)
	}

	fmt.Fprintf(&b, "From (%s) facing %s\n", result.StartPos, result.StartDirection)
	b.WriteString("\n")
	b.WriteString(formatState(&result.State))

	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d) - Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	if len(history.Moves) == 0 {
		b.WriteString("(no moves)\n")
		return b.String()
	}

	for _, move := range history.Moves {
		status := "✓"
		if !move.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. %s %s (%s) %s -> (%s) %s",
			move.MoveNumber, move.Command, status,
			move.From, move.FromDirection, move.To, move.ToDirection)
		if move.Error != "" {
			fmt.Fprintf(&b, " [%s]", move.Error)
		}
		b.WriteString("\n")
	}

	return b.String()
}
