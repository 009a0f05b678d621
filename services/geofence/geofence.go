// Package geofence decides whether the user is standing inside an authorized zone. The local
// decision made here is advisory; a Verifier gives the authoritative answer.
package geofence

import (
	"context"
	"math"
	"time"

	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"

	"github.com/boardlens/boardlens/utils"
)

const (
	// EarthRadiusMeters is the mean Earth radius used for all distance calculations.
	EarthRadiusMeters = 6371000.0
	// DefaultRadiusMeters is used for zones that do not set their own radius.
	DefaultRadiusMeters = 500.0
)

// ErrUnauthorized is returned when a position is outside every authorized zone.
var ErrUnauthorized = errors.New("position is outside every authorized zone")

// Position is a location fix. Staleness is not tracked; the latest fix is always used.
type Position struct {
	Point     *geo.Point
	Accuracy  float64
	Timestamp time.Time
}

// NewPosition returns a fix at lat/lng taken now.
func NewPosition(lat, lng float64) Position {
	return Position{Point: geo.NewPoint(lat, lng), Timestamp: time.Now()}
}

// Zone is a circular authorized area.
type Zone struct {
	Name         string
	Center       *geo.Point
	RadiusMeters float64
}

// Radius returns the zone radius, applying the default for unset radii.
func (z Zone) Radius() float64 {
	if z.RadiusMeters <= 0 {
		return DefaultRadiusMeters
	}
	return z.RadiusMeters
}

// GateDecision is the result of evaluating a position against a set of zones.
type GateDecision struct {
	Inside         bool
	ZoneName       string
	DistanceMeters float64
}

// A LocationProvider supplies the device's current location fix.
type LocationProvider interface {
	Position(ctx context.Context) (Position, error)
}

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b *geo.Point) float64 {
	lat1, lat2 := utils.DegToRad(a.Lat()), utils.DegToRad(b.Lat())
	dLat := lat2 - lat1
	dLng := utils.DegToRad(b.Lng() - a.Lng())
	h := utils.Square(math.Sin(dLat/2)) + math.Cos(lat1)*math.Cos(lat2)*utils.Square(math.Sin(dLng/2))
	h = math.Min(1, math.Max(0, h))
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Evaluate finds the zone nearest to pos. The position is inside when that distance is strictly less
// than the nearest zone's radius. With no zones or no fix, the decision is outside at +Inf meters.
func Evaluate(pos Position, zones []Zone) GateDecision {
	decision := GateDecision{DistanceMeters: math.Inf(1)}
	if pos.Point == nil {
		return decision
	}
	var nearest *Zone
	for i := range zones {
		if zones[i].Center == nil {
			continue
		}
		d := HaversineMeters(pos.Point, zones[i].Center)
		if d < decision.DistanceMeters {
			decision.DistanceMeters = d
			nearest = &zones[i]
		}
	}
	if nearest == nil {
		return decision
	}
	decision.ZoneName = nearest.Name
	decision.Inside = decision.DistanceMeters < nearest.Radius()
	return decision
}
