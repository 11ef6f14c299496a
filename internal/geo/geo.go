// Great-circle and planar route geometry for flight positions
package geo

import (
	"math"
	"time"
)

const (
	// EarthRadiusNM is the mean Earth radius in nautical miles.
	EarthRadiusNM = 3440.065

	// BezierOffsetFraction is the share of the planar origin-destination
	// distance used to offset the curve control point.
	BezierOffsetFraction = 0.15

	// DefaultCurveSegments is used by CurvedPath when segments <= 0.
	DefaultCurveSegments = 60

	// coincident angular distances (radians) below this collapse to the origin.
	coincidentEpsilon = 1e-12
	planarEpsilon     = 1e-12
)

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// Clamp01 limits v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NormalizeLongitude wraps lng into (-180, 180].
func NormalizeLongitude(lng float64) float64 {
	if lng > -180 && lng <= 180 {
		return lng
	}
	l := math.Mod(lng+180, 360)
	if l < 0 {
		l += 360
	}
	l -= 180
	if l <= -180 {
		l += 360
	}
	return l
}

// NormalizeHeading wraps h into [0, 360).
func NormalizeHeading(h float64) float64 {
	if h >= 0 && h < 360 {
		return h
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// AngularDistance returns the central angle between a and b in radians
// using the haversine formula.
func AngularDistance(a, b Point) float64 {
	phi1, phi2 := deg2rad(a.Lat), deg2rad(b.Lat)
	dPhi := phi2 - phi1
	dLambda := deg2rad(b.Lng - a.Lng)
	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	h = math.Min(math.Max(h, 0), 1)
	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceNM returns the great-circle distance between a and b in nautical miles.
func DistanceNM(a, b Point) float64 {
	return AngularDistance(a, b) * EarthRadiusNM
}

// InterpolateGreatCircle returns the point at fraction progress along the
// great-circle arc from origin to destination. progress is clamped to [0,1].
// Coincident endpoints return the origin. Antipodal endpoints have no unique
// great circle; those fall back to interpolating in degree space.
func InterpolateGreatCircle(origin, destination Point, progress float64) Point {
	p := Clamp01(progress)
	delta := AngularDistance(origin, destination)
	if delta < coincidentEpsilon {
		return Point{Lat: origin.Lat, Lng: NormalizeLongitude(origin.Lng)}
	}
	if p == 0 {
		return Point{Lat: origin.Lat, Lng: NormalizeLongitude(origin.Lng)}
	}
	if p == 1 {
		return Point{Lat: destination.Lat, Lng: NormalizeLongitude(destination.Lng)}
	}

	sinDelta := math.Sin(delta)
	if math.Abs(sinDelta) < coincidentEpsilon {
		return Point{
			Lat: origin.Lat + (destination.Lat-origin.Lat)*p,
			Lng: NormalizeLongitude(origin.Lng + (destination.Lng-origin.Lng)*p),
		}
	}

	a := math.Sin((1-p)*delta) / sinDelta
	b := math.Sin(p*delta) / sinDelta

	phi1, lambda1 := deg2rad(origin.Lat), deg2rad(origin.Lng)
	phi2, lambda2 := deg2rad(destination.Lat), deg2rad(destination.Lng)

	x := a*math.Cos(phi1)*math.Cos(lambda1) + b*math.Cos(phi2)*math.Cos(lambda2)
	y := a*math.Cos(phi1)*math.Sin(lambda1) + b*math.Cos(phi2)*math.Sin(lambda2)
	z := a*math.Sin(phi1) + b*math.Sin(phi2)

	return Point{
		Lat: rad2deg(math.Atan2(z, math.Sqrt(x*x+y*y))),
		Lng: NormalizeLongitude(rad2deg(math.Atan2(y, x))),
	}
}

// Bearing returns the initial great-circle course from origin to
// destination in degrees, normalized to [0, 360). Coincident points yield 0.
func Bearing(origin, destination Point) float64 {
	if AngularDistance(origin, destination) < coincidentEpsilon {
		return 0
	}
	phi1, phi2 := deg2rad(origin.Lat), deg2rad(destination.Lat)
	dLambda := deg2rad(destination.Lng - origin.Lng)
	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	return NormalizeHeading(rad2deg(math.Atan2(y, x)))
}

// FinalBearing returns the course on arrival at destination.
func FinalBearing(origin, destination Point) float64 {
	if AngularDistance(origin, destination) < coincidentEpsilon {
		return 0
	}
	return NormalizeHeading(Bearing(destination, origin) + 180)
}

// CurvedPath samples segments+1 points along a quadratic Bézier between
// origin and destination, treating lng/lat as planar coordinates. The
// control point sits on the perpendicular bisector, offset by
// BezierOffsetFraction of the chord length, which gives a visible arc.
func CurvedPath(origin, destination Point, segments int) []Point {
	if segments <= 0 {
		segments = DefaultCurveSegments
	}
	points := make([]Point, 0, segments+1)

	dx := destination.Lng - origin.Lng
	dy := destination.Lat - origin.Lat
	dist := math.Hypot(dx, dy)
	if dist < planarEpsilon {
		for i := 0; i <= segments; i++ {
			points = append(points, origin)
		}
		return points
	}

	// unit normal to the chord
	nx, ny := -dy/dist, dx/dist
	offset := dist * BezierOffsetFraction
	ctrl := Point{
		Lat: (origin.Lat+destination.Lat)/2 + ny*offset,
		Lng: (origin.Lng+destination.Lng)/2 + nx*offset,
	}

	for i := 0; i <= segments; i++ {
		t := float64(i) / float64(segments)
		u := 1 - t
		points = append(points, Point{
			Lat: u*u*origin.Lat + 2*u*t*ctrl.Lat + t*t*destination.Lat,
			Lng: u*u*origin.Lng + 2*u*t*ctrl.Lng + t*t*destination.Lng,
		})
	}
	return points
}

// LinearProgress returns how far now is between start and end, clamped to
// [0,1]. Malformed spans (end <= start) report 0 so a bad schedule reads as
// not yet departed.
func LinearProgress(start, end, now time.Time) float64 {
	if !end.After(start) {
		return 0
	}
	span := end.Sub(start)
	return Clamp01(float64(now.Sub(start)) / float64(span))
}
