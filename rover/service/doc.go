// Package service provides the business logic layer for the rover.
//
// The service package implements:
//   - Serialized command batches against the single rover instance
//   - Per-step tracing, stop reasons and pole-crossing counts
//   - Move journaling and paginated history
//   - Domain events for external subscribers
//
// Core Interfaces:
//
// RoverService is the interface the transports (HTTP, WebSocket, MCP) talk
// to. EventPublisher receives moved, turned, obstacle and pole_crossed
// events; NopPublisher is used when nothing is subscribed.
//
// Architecture:
//
// The service owns the engine.Rover and guards it with the injected
// sync.Locker for the whole of a batch, so concurrent batches never
// interleave. Journal and publisher failures are logged and never fail a
// batch.
//
// Usage:
//
//	r, _ := engine.NewFromStrings(0, 0, "N")
//	svc, err := service.NewRoverService(service.Dependencies{Rover: r})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := svc.Execute(ctx, "ffrl")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(result.Rendered)
package service
