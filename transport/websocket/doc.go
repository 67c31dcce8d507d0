// Package websocket pushes rover state to browser clients.
//
// The package uses a hub-and-spoke model where a central Hub owns every
// connection from a single event-loop goroutine. Each client has a read
// pump that keeps the connection alive and a write pump that drains its
// send buffer.
//
// Message Protocol:
//
// Messages are JSON-encoded Message values, one per frame:
//
//	{"event":"state_update","state":{"position":{"x":0,"y":0.027},"direction":"N","lon":0,"lat":0}}
//
// A state_update is sent on connect and after every command batch.
// Clients do not send commands over the socket.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		state, _ := svc.State(r.Context())
//		hub.ServeWS(w, r, state)
//	})
package websocket
