// Package mercator holds the spherical-mercator coordinate type used for the
// rover's position, along with the projection extent and WGS84 conversions.
package mercator

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// MaxExtent is the largest absolute projected value on either axis.
const MaxExtent = 20037508.342789244

// Coordinate is a projected x,y pair.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FromLonLat projects a WGS84 longitude/latitude into mercator space.
func FromLonLat(lon, lat float64) Coordinate {
	p := project.WGS84.ToMercator(orb.Point{lon, lat})
	return Coordinate{X: p.X(), Y: p.Y()}
}

// LonLat unprojects the coordinate back to WGS84.
func (c Coordinate) LonLat() (lon, lat float64) {
	p := project.Mercator.ToWGS84(orb.Point{c.X, c.Y})
	return p.Lon(), p.Lat()
}

// InBounds reports whether both axes lie within [-MaxExtent, MaxExtent].
func (c Coordinate) InBounds() bool {
	return c.X >= -MaxExtent && c.X <= MaxExtent && c.Y >= -MaxExtent && c.Y <= MaxExtent
}

// Add returns c translated by dx, dy.
func (c Coordinate) Add(dx, dy float64) Coordinate {
	return Coordinate{X: c.X + dx, Y: c.Y + dy}
}

// String renders "x y" using the shortest representation that round-trips.
func (c Coordinate) String() string {
	return FormatFloat(c.X) + " " + FormatFloat(c.Y)
}

// GoString is used by %#v.
func (c Coordinate) GoString() string {
	return fmt.Sprintf("mercator.Coordinate{X: %s, Y: %s}", FormatFloat(c.X), FormatFloat(c.Y))
}

// FormatFloat formats v in plain decimal notation without an exponent.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
