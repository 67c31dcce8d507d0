package engine

import (
	"math"

	"github.com/wricardo/marsrover/mercator"
)

// Rover is a single vehicle on the projected surface. It is not safe for
// concurrent use; callers serialize access.
type Rover struct {
	Position  mercator.Coordinate
	Direction Orientation
}

// New creates a rover at x,y facing d.
func New(x, y float64, d Orientation) *Rover {
	return &Rover{
		Position:  mercator.Coordinate{X: x, Y: y},
		Direction: d,
	}
}

// NewFromStrings is New with the direction given as a protocol letter.
func NewFromStrings(x, y float64, direction string) (*Rover, error) {
	d, err := ParseOrientation(direction)
	if err != nil {
		return nil, err
	}
	return New(x, y, d), nil
}

// Forward moves one step in the facing direction.
func (r *Rover) Forward() (mercator.Coordinate, error) {
	return r.translate("forward", r.Direction)
}

// Backward moves one step away from the facing direction without turning.
func (r *Rover) Backward() (mercator.Coordinate, error) {
	return r.translate("backward", r.Direction.Opposite())
}

// Left turns 90 degrees counter-clockwise in place.
func (r *Rover) Left() mercator.Coordinate {
	r.Direction = r.Direction.Left()
	return r.Position
}

// Right turns 90 degrees clockwise in place.
func (r *Rover) Right() mercator.Coordinate {
	r.Direction = r.Direction.Right()
	return r.Position
}

// ObstacleAt reports whether a step towards heading would hit an obstacle.
func (r *Rover) ObstacleAt(heading Orientation) bool {
	return IsObstacle(step(r.Position, heading))
}

// IsObstacle is the terrain hazard function. It depends only on c.
func IsObstacle(c mercator.Coordinate) bool {
	return math.Abs(math.Sin(c.X)-math.Cos(c.Y)) < ObstacleThreshold
}

// State returns a JSON-friendly snapshot.
func (r *Rover) State() State {
	lon, lat := r.Position.LonLat()
	return State{
		Position:  r.Position,
		Direction: r.Direction,
		Lon:       lon,
		Lat:       lat,
	}
}

// String renders the protocol response body.
func (r *Rover) String() string {
	return "position: " + r.Position.String() + "\ndirection: " + r.Direction.String()
}

func (r *Rover) translate(action string, heading Orientation) (mercator.Coordinate, error) {
	target := step(r.Position, heading)
	if IsObstacle(target) {
		return r.Position, &ObstacleError{
			Action:  action,
			Facing:  r.Direction,
			Heading: heading,
			Target:  target,
		}
	}

	r.Position = target
	r.wrap()
	return r.Position, nil
}

// wrap folds the position back inside the projection extent. The checks
// are sequential: a pole crossing can also push x past the antimeridian.
func (r *Rover) wrap() {
	const e = mercator.MaxExtent
	p := &r.Position

	if p.Y > e {
		p.X += e
		p.Y = -e + (p.Y - e)
		r.Direction = r.Direction.Opposite()
	}
	if p.Y < -e {
		p.X += e
		p.Y = e + (p.Y + e)
		r.Direction = r.Direction.Opposite()
	}
	if p.X > e {
		p.X = -e + (p.X - e)
	}
	if p.X < -e {
		p.X = e + (p.X + e)
	}
}

// step returns the coordinate one Movement away from c towards heading.
func step(c mercator.Coordinate, heading Orientation) mercator.Coordinate {
	switch heading {
	case North:
		return c.Add(0, Movement)
	case South:
		return c.Add(0, -Movement)
	case East:
		return c.Add(Movement, 0)
	case West:
		return c.Add(-Movement, 0)
	}
	return c
}
