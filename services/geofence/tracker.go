package geofence

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/boardlens/boardlens/logging"
	"github.com/boardlens/boardlens/utils"
)

// DefaultPollInterval is how often the location provider is polled.
const DefaultPollInterval = 10 * time.Second

// Tracker polls a LocationProvider on an interval and feeds every fix to a Gate. Zones are reloaded
// from the ZoneSource when the tracker starts.
type Tracker struct {
	provider LocationProvider
	zones    ZoneSource
	gate     *Gate
	interval time.Duration
	clock    clock.Clock
	logger   logging.Logger

	mu      sync.Mutex
	workers utils.StoppableWorkers
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) TrackerOption {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithZoneSource makes the tracker load zones into the gate on Start.
func WithZoneSource(src ZoneSource) TrackerOption {
	return func(t *Tracker) {
		t.zones = src
	}
}

// NewTracker returns a stopped tracker. A non-positive interval uses DefaultPollInterval.
func NewTracker(
	provider LocationProvider,
	gate *Gate,
	interval time.Duration,
	logger logging.Logger,
	opts ...TrackerOption,
) *Tracker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	t := &Tracker{
		provider: provider,
		gate:     gate,
		interval: interval,
		clock:    clock.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start loads zones, polls once and then keeps polling in the background until Stop.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.workers != nil {
		return errors.New("tracker already started")
	}
	if t.zones != nil {
		zones, err := t.zones.Zones(ctx)
		if err != nil {
			return errors.Wrap(err, "could not load zones")
		}
		t.logger.Infow("loaded zones", "count", len(zones))
		t.gate.SetZones(zones)
	}
	t.Poll(ctx)

	ticker := t.clock.Ticker(t.interval)
	t.workers = utils.NewStoppableWorkers(func(ctx context.Context) {
		defer ticker.Stop()
		for {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Poll(ctx)
			}
		}
	})
	return nil
}

// Poll reads one fix and updates the gate. A failed read keeps the previous decision.
func (t *Tracker) Poll(ctx context.Context) {
	pos, err := t.provider.Position(ctx)
	if err != nil {
		if ctx.Err() == nil {
			t.logger.Warnw("could not get location fix", "error", err)
		}
		return
	}
	if pos.Point == nil {
		t.logger.Debug("location provider returned no fix")
		return
	}
	decision := t.gate.Update(pos)
	t.logger.Debugw("polled location",
		"lat", pos.Point.Lat(), "lng", pos.Point.Lng(), "inside", decision.Inside, "distance_m", decision.DistanceMeters)
}

// Stop stops polling and waits for the poller to exit.
func (t *Tracker) Stop() {
	t.mu.Lock()
	workers := t.workers
	t.workers = nil
	t.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
}
