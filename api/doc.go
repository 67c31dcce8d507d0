// Package api provides the HTTP handlers for the rover.
//
// The api package implements:
//   - The plain-text command protocol on POST /move
//   - JSON endpoints for state, command batches and move history
//   - Health and Prometheus endpoints
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Text protocol:
//   - POST /move - body is a command string such as "ffrl"
//
// JSON API:
//   - GET /api/rover - current state
//   - POST /api/rover/commands - {"commands": "ffrl"}, returns a BatchResult
//   - GET /api/rover/history?page=1&limit=20&order=desc - journaled moves
//
// Operations:
//   - GET /healthz
//   - GET /metrics
//   - GET /ws - state_update stream
//
// Text Protocol:
//
// A successful batch returns 200 with the rendered rover:
//
//	position: 0 0.02712621553502488
//	direction: N
//
// An unknown command character returns 400 with "unrecognized command <c>".
// Commands before it have already been applied. A blocked move returns 409
// with "Error: <message>" followed by the rendered rover.
//
// Usage:
//
//	server := api.NewServer(roverService, hub)
//	http.ListenAndServe(":3000", server)
//
// Error Handling:
//
// JSON endpoints return errors as {"error": "message"}. Request bodies
// larger than MaxBodyBytes are rejected with 413.
package api

//
// Batch Result (POST /api/rover/commands)
//   - requested_commands, commands_executed, success
//   - stopped_reason (text), stop_reason_code (unrecognized_command|obstacle), stopped_on_command (1-based)
//   - steps: [{ idx, command, from, to, from_direction, to_direction, pole_crossed? }]
//   - start_pos, end_pos, start_direction, end_direction, pole_crossings
//   - state: { position{x,y}, direction, lon, lat }, rendered
