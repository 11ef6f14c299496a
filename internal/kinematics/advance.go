// Dead-reckoning for entities without fixed endpoints
package kinematics

import (
	"math"

	"flightops-sim/internal/geo"
)

const (
	// DefaultSpeedKnots applies when an entity is built without a speed.
	DefaultSpeedKnots = 400.0
	// NMPerDegreeLatitude is the flat-earth conversion used by Advance.
	NMPerDegreeLatitude = 60.0
	// MaxLatitude keeps entities off the poles.
	MaxLatitude = 85.0
	// MinCosLatitude floors the longitude scale factor near the poles.
	MinCosLatitude = 0.15
)

// Status is the movement state of a free-roaming entity.
type Status string

// Entity status constants. StatusLanded is terminal.
const (
	StatusEnRoute Status = "en-route"
	StatusHolding Status = "holding"
	StatusLanded  Status = "landed"
)

// Terminal reports whether the status freezes the entity in place.
func (s Status) Terminal() bool {
	return s == StatusLanded
}

// Entity is a marker moving on heading and speed alone, e.g. a live demo
// aircraft with no schedule.
type Entity struct {
	ID         string    `json:"id"`
	Position   geo.Point `json:"position"`
	HeadingDeg float64   `json:"heading_deg"`
	SpeedKnots float64   `json:"speed_knots"`
	Status     Status    `json:"status"`
}

// NewEntity builds an en-route entity. A nil speed uses DefaultSpeedKnots.
func NewEntity(id string, pos geo.Point, headingDeg float64, speedKnots *float64) Entity {
	speed := DefaultSpeedKnots
	if speedKnots != nil {
		speed = math.Max(*speedKnots, 0)
	}
	return Entity{
		ID:         id,
		Position:   geo.Point{Lat: clampLat(pos.Lat), Lng: geo.NormalizeLongitude(pos.Lng)},
		HeadingDeg: geo.NormalizeHeading(headingDeg),
		SpeedKnots: speed,
		Status:     StatusEnRoute,
	}
}

// Advance returns e moved along its heading for elapsedMinutes of simulated
// time. e itself is not modified. Terminal entities come back unchanged.
func Advance(e Entity, elapsedMinutes float64) Entity {
	if e.Status.Terminal() {
		return e
	}
	out := e
	out.HeadingDeg = geo.NormalizeHeading(e.HeadingDeg)

	speed := math.Max(e.SpeedKnots, 0)
	if elapsedMinutes <= 0 || speed == 0 || math.IsNaN(elapsedMinutes) {
		return out
	}

	distNM := speed * elapsedMinutes / 60
	hdg := out.HeadingDeg * math.Pi / 180

	lat := clampLat(e.Position.Lat)
	cosLat := math.Max(math.Cos(lat*math.Pi/180), MinCosLatitude)

	dLat := distNM * math.Cos(hdg) / NMPerDegreeLatitude
	dLng := distNM * math.Sin(hdg) / (NMPerDegreeLatitude * cosLat)

	out.Position = geo.Point{
		Lat: clampLat(lat + dLat),
		Lng: geo.NormalizeLongitude(e.Position.Lng + dLng),
	}
	return out
}

func clampLat(lat float64) float64 {
	return math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
}
