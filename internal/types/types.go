// README: Common value objects shared across modules.
package types

// ID is an opaque identifier for users, orders, and jobs.
type ID string

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}
