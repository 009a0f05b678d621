package geofence

import (
	"context"
	"math"
	"strings"

	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// A ZoneSource lists the authorized zones.
type ZoneSource interface {
	Zones(ctx context.Context) ([]Zone, error)
}

// StaticZones is a fixed zone list, usually from config.
type StaticZones []Zone

// Zones returns a copy of the list.
func (s StaticZones) Zones(ctx context.Context) ([]Zone, error) {
	return append([]Zone(nil), s...), nil
}

// CombinedZones concatenates the zones of several sources, failing if any source fails.
type CombinedZones []ZoneSource

// Zones lists every source in order.
func (c CombinedZones) Zones(ctx context.Context) ([]Zone, error) {
	var all []Zone
	for _, src := range c {
		zones, err := src.Zones(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, zones...)
	}
	return all, nil
}

// ParseCoordinate parses a "lat,lng" or "lat,lng,alt" string. Altitude is ignored.
func ParseCoordinate(s string) (*geo.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return nil, errors.Errorf("coordinate %q must be \"lat,lng\"", s)
	}
	lat, err := cast.ToFloat64E(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid latitude in coordinate %q", s)
	}
	lng, err := cast.ToFloat64E(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid longitude in coordinate %q", s)
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, errors.Errorf("coordinate %q out of range", s)
	}
	return geo.NewPoint(lat, lng), nil
}

// FormatCoordinate is the inverse of ParseCoordinate.
func FormatCoordinate(p *geo.Point) string {
	return cast.ToString(p.Lat()) + "," + cast.ToString(p.Lng())
}

// zoneFromDocument reads a zone directory entry. The zone is named by college_name, then filename.
func zoneFromDocument(doc map[string]interface{}) (Zone, error) {
	raw, ok := doc["coordinate"]
	if !ok {
		return Zone{}, errors.New("document has no coordinate")
	}
	coord, err := cast.ToStringE(raw)
	if err != nil {
		return Zone{}, errors.Wrap(err, "coordinate is not a string")
	}
	center, err := ParseCoordinate(coord)
	if err != nil {
		return Zone{}, err
	}
	name := "Unknown"
	for _, key := range []string{"college_name", "filename"} {
		if v := cast.ToString(doc[key]); v != "" {
			name = v
			break
		}
	}
	return Zone{
		Name:         name,
		Center:       center,
		RadiusMeters: cast.ToFloat64(doc["radius_m"]),
	}, nil
}
