package engine

import (
	"github.com/wricardo/marsrover/mercator"
)

// Command is a single-character instruction from the wire protocol.
type Command rune

const (
	CommandForward  Command = 'f'
	CommandBackward Command = 'b'
	CommandLeft     Command = 'l'
	CommandRight    Command = 'r'
)

var commandNames = map[Command]string{
	CommandForward:  "forward",
	CommandBackward: "backward",
	CommandLeft:     "left",
	CommandRight:    "right",
}

// ParseCommand validates a protocol rune.
func ParseCommand(c rune) (Command, error) {
	if _, ok := commandNames[Command(c)]; !ok {
		return 0, &UnrecognizedCommandError{Command: c}
	}
	return Command(c), nil
}

// Name returns the long form, e.g. "forward".
func (c Command) Name() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

func (c Command) String() string {
	return string(rune(c))
}

// IsTurn reports whether c only changes the heading.
func (c Command) IsTurn() bool {
	return c == CommandLeft || c == CommandRight
}

// ApplyCommand runs one protocol command against r and returns the
// resulting position.
func ApplyCommand(r *Rover, c rune) (mercator.Coordinate, error) {
	cmd, err := ParseCommand(c)
	if err != nil {
		return r.Position, err
	}

	switch cmd {
	case CommandForward:
		return r.Forward()
	case CommandBackward:
		return r.Backward()
	case CommandLeft:
		return r.Left(), nil
	default:
		return r.Right(), nil
	}
}

// Step is one attempted command as seen by a Run observer. Err is nil when
// the command was applied.
type Step struct {
	Index         int // 1-based position in the batch
	Command       rune
	From          mercator.Coordinate
	FromDirection Orientation
	Err           error
}

// Run applies commands left to right and stops at the first failure. It
// returns how many commands were applied. observe, if non-nil, is called
// after every attempted command, the failing one included.
func Run(r *Rover, commands string, observe func(Step)) (int, error) {
	applied := 0
	for _, c := range commands {
		step := Step{
			Index:         applied + 1,
			Command:       c,
			From:          r.Position,
			FromDirection: r.Direction,
		}
		_, step.Err = ApplyCommand(r, c)
		if observe != nil {
			observe(step)
		}
		if step.Err != nil {
			return applied, step.Err
		}
		applied++
	}
	return applied, nil
}
