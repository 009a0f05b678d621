package geofence

import (
	"math"
	"sync"

	"github.com/boardlens/boardlens/logging"
)

// Gate holds the latest decision for the most recent fix. It is written by one updater and read by
// any number of readers.
type Gate struct {
	mu       sync.RWMutex
	zones    []Zone
	position Position
	decision GateDecision
	updated  bool
	logger   logging.Logger
}

// NewGate returns a gate over zones that starts outside every zone.
func NewGate(zones []Zone, logger logging.Logger) *Gate {
	g := &Gate{logger: logger}
	g.SetZones(zones)
	return g
}

// SetZones replaces the zone list and re-evaluates the last fix against it.
func (g *Gate) SetZones(zones []Zone) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.zones = append([]Zone(nil), zones...)
	if g.updated {
		g.decision = Evaluate(g.position, g.zones)
	}
}

// Update evaluates a new fix and stores the decision.
func (g *Gate) Update(pos Position) GateDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	prev := g.decision
	g.position = pos
	g.decision = Evaluate(pos, g.zones)
	g.updated = true
	if prev.Inside != g.decision.Inside || prev.ZoneName != g.decision.ZoneName {
		g.logger.Infow("geofence decision changed",
			"inside", g.decision.Inside, "zone", g.decision.ZoneName, "distance_m", g.decision.DistanceMeters)
	}
	return g.decision
}

// Decision returns the latest decision and the fix it was made for. ok is false until the first
// Update.
func (g *Gate) Decision() (decision GateDecision, pos Position, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.updated {
		return GateDecision{DistanceMeters: math.Inf(1)}, Position{}, false
	}
	return g.decision, g.position, true
}

// Evaluate checks pos against the gate's zones without storing the decision.
func (g *Gate) Evaluate(pos Position) GateDecision {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Evaluate(pos, g.zones)
}
