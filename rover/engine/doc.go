// Package engine provides the rover state machine.
//
// The engine package implements:
//   - A four-way compass Orientation with opposite, left and right rotation
//   - Rover translation by one Movement step with a pre-move obstacle check
//   - Wrap-around at the projection extent, including pole crossings
//   - The single-character command protocol (f, b, l, r)
//
// Core Types:
//
// Rover holds a mercator.Coordinate position and an Orientation. Forward and
// Backward translate and may fail with an ObstacleError; Left and Right only
// rotate and never fail. ApplyCommand dispatches one protocol rune.
//
// Usage:
//
//	r, err := engine.NewFromStrings(0, 0, "N")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if _, err := engine.ApplyCommand(r, 'f'); err != nil {
//		fmt.Println("Error:", err)
//	}
//	fmt.Println(r)
//
// Obstacles:
//
// Terrain hazards are deterministic: a candidate coordinate is blocked when
// |sin(x) - cos(y)| < 0.25. A refused move leaves the rover untouched.
//
// The Rover type is not safe for concurrent use. The service package owns
// the instance and serializes access to it.
package engine
