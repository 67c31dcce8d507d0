// Package mcp exposes the rover REST API as Model Context Protocol tools.
//
// The mcp package implements:
//   - A thin MCP server that proxies every tool call to the HTTP API
//   - Tool definitions for rover operations
//   - Plain text formatting of states, batches and history pages
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - rover_state: Current position, heading and lon/lat
//   - rover_move: Execute a command string such as "ffrff"
//   - rover_history: Journaled moves with pagination
//   - rover_instructions: Command reference and surface rules
//
// Transport:
//
// The server runs over stdio for local MCP clients. The rover itself lives in
// the HTTP server process, so several agents can drive the same rover.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.ServeStdio(); err != nil {
//		log.Fatal(err)
//	}
package mcp
