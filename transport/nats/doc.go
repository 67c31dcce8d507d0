// Package natsevents publishes rover events to NATS and lets tools
// subscribe to them.
//
// Events are JSON-encoded service.Event values published on
// "<prefix>.<type>", e.g. rover.events.moved. Subscribers usually listen
// on "<prefix>.>".
package natsevents
