package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/marsrover/mercator"
)

const (
	// Movement is the angular step, in degrees, taken by one forward or
	// backward command. It is 360000 / (2*pi*ReferenceRadius) up to the last
	// bit of float64 rounding; the literal is authoritative.
	Movement = 0.02712621553502488

	// ReferenceRadius is the sphere radius Movement is derived from.
	ReferenceRadius = 2112192.1500292975

	// ObstacleThreshold is the bound below which |sin(x) - cos(y)| means blocked.
	ObstacleThreshold = 0.25

	// MaxBatchCommands caps the number of commands accepted in one batch.
	MaxBatchCommands = 1024
)

var (
	ErrInvalidDirection    = errors.New("invalid direction")
	ErrObstacleDetected    = errors.New("obstacle detected")
	ErrUnrecognizedCommand = errors.New("unrecognized command")
)

// InvalidDirectionError is returned when a direction letter cannot be parsed.
type InvalidDirectionError struct {
	Raw string
}

func (e *InvalidDirectionError) Error() string {
	return fmt.Sprintf("unrecognized direction %q", e.Raw)
}

func (e *InvalidDirectionError) Unwrap() error { return ErrInvalidDirection }

// ObstacleError describes a blocked translation. No state was changed.
type ObstacleError struct {
	Action  string      // "forward" or "backward"
	Facing  Orientation // rover heading when the move was attempted
	Heading Orientation // direction the obstacle check looked in
	Target  mercator.Coordinate
}

func (e *ObstacleError) Error() string {
	return fmt.Sprintf("obstacle detected moving %s (facing %s, heading %s) at (%s, %s), aborting",
		e.Action, e.Facing, e.Heading, mercator.FormatFloat(e.Target.X), mercator.FormatFloat(e.Target.Y))
}

func (e *ObstacleError) Unwrap() error { return ErrObstacleDetected }

// UnrecognizedCommandError is returned for any command rune outside f/b/l/r.
type UnrecognizedCommandError struct {
	Command rune
}

func (e *UnrecognizedCommandError) Error() string {
	return fmt.Sprintf("unrecognized command %c", e.Command)
}

func (e *UnrecognizedCommandError) Unwrap() error { return ErrUnrecognizedCommand }

// State is a snapshot of the rover suitable for JSON responses.
type State struct {
	Position  mercator.Coordinate `json:"position"`
	Direction Orientation         `json:"direction"`
	Lon       float64             `json:"lon"`
	Lat       float64             `json:"lat"`
}

// MoveHistoryEntry records one applied (or refused) command.
type MoveHistoryEntry struct {
	MoveNumber    int                 `json:"move_number"`
	Command       string              `json:"command"`
	From          mercator.Coordinate `json:"from"`
	To            mercator.Coordinate `json:"to"`
	FromDirection Orientation         `json:"from_direction"`
	ToDirection   Orientation         `json:"to_direction"`
	Success       bool                `json:"success"`
	Error         string              `json:"error,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
}
