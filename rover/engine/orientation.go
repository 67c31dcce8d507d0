package engine

import (
	"fmt"
)

// Orientation is one of the four compass headings a rover can face.
// The zero value is North.
type Orientation uint8

const (
	North Orientation = iota
	East
	South
	West
)

// orientationLetters maps every Orientation to its protocol letter.
var orientationLetters = [...]string{
	North: "N",
	East:  "E",
	South: "S",
	West:  "W",
}

var lettersToOrientation = func() map[string]Orientation {
	m := make(map[string]Orientation, len(orientationLetters))
	for o, letter := range orientationLetters {
		m[letter] = Orientation(o)
	}
	return m
}()

// AllOrientations returns every orientation in clockwise order starting at North.
func AllOrientations() []Orientation {
	return []Orientation{North, East, South, West}
}

// ParseOrientation accepts exactly "N", "S", "E" or "W".
func ParseOrientation(s string) (Orientation, error) {
	o, ok := lettersToOrientation[s]
	if !ok {
		return North, &InvalidDirectionError{Raw: s}
	}
	return o, nil
}

// IsValid reports whether o is one of the four defined orientations.
func (o Orientation) IsValid() bool {
	return int(o) < len(orientationLetters)
}

// String returns the single-letter form used by the command protocol.
func (o Orientation) String() string {
	if !o.IsValid() {
		return fmt.Sprintf("Orientation(%d)", uint8(o))
	}
	return orientationLetters[o]
}

// Opposite returns the heading 180 degrees away.
func (o Orientation) Opposite() Orientation {
	switch o {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	}
	return o
}

// Left rotates 90 degrees counter-clockwise.
func (o Orientation) Left() Orientation {
	switch o {
	case North:
		return West
	case West:
		return South
	case South:
		return East
	case East:
		return North
	}
	return o
}

// Right rotates 90 degrees clockwise.
func (o Orientation) Right() Orientation {
	switch o {
	case North:
		return East
	case East:
		return South
	case South:
		return West
	case West:
		return North
	}
	return o
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) {
	if !o.IsValid() {
		return nil, fmt.Errorf("cannot marshal %s", o)
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(text []byte) error {
	parsed, err := ParseOrientation(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
