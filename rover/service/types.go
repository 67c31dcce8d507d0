package service

import (
	"time"

	"github.com/wricardo/marsrover/mercator"
	"github.com/wricardo/marsrover/rover/engine"
)

// Stop reason codes reported in BatchResult.StopReasonCode
const (
	StopUnrecognizedCommand = "unrecognized_command"
	StopObstacle            = "obstacle"
)

// Event types sent to the EventPublisher
const (
	EventMoved       = "moved"
	EventTurned      = "turned"
	EventObstacle    = "obstacle"
	EventPoleCrossed = "pole_crossed"
)

// BatchResult contains the result of a command batch
type BatchResult struct {
	// Summary
	RequestedCommands int          `json:"requested_commands"`
	CommandsExecuted  int          `json:"commands_executed"`
	Success           bool         `json:"success"`
	State             engine.State `json:"state"`
	Rendered          string       `json:"rendered"`                     // protocol text form of the final state
	StoppedReason     string       `json:"stopped_reason,omitempty"`     // human-readable reason
	StopReasonCode    string       `json:"stop_reason_code,omitempty"`   // unrecognized_command|obstacle
	StoppedOnCommand  int          `json:"stopped_on_command,omitempty"` // 1-based index of the failing command

	// Start/end snapshot
	StartPos       mercator.Coordinate `json:"start_pos"`
	EndPos         mercator.Coordinate `json:"end_pos"`
	StartDirection engine.Orientation  `json:"start_direction"`
	EndDirection   engine.Orientation  `json:"end_direction"`
	PoleCrossings  int                 `json:"pole_crossings"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`
}

// StepInfo is a compact record for each executed command in the batch
type StepInfo struct {
	Idx           int                 `json:"idx"`
	Command       string              `json:"command"`
	From          mercator.Coordinate `json:"from"`
	To            mercator.Coordinate `json:"to"`
	FromDirection engine.Orientation  `json:"from_direction"`
	ToDirection   engine.Orientation  `json:"to_direction"`
	PoleCrossed   bool                `json:"pole_crossed,omitempty"`
}

// Event represents something that happened to the rover
type Event struct {
	Type      string              `json:"type"`
	Command   string              `json:"command"`
	Position  mercator.Coordinate `json:"position"`
	Direction engine.Orientation  `json:"direction"`
	Message   string              `json:"message,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}
