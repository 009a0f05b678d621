package geofence_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/benbjohnson/clock"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/boardlens/boardlens/logging"
	"github.com/boardlens/boardlens/services/geofence"
	"github.com/boardlens/boardlens/testutils/inject"
)

func TestTrackerPolls(t *testing.T) {
	logger := logging.NewTestLogger(t)
	mockClock := clock.NewMock()

	var calls atomic.Int32
	provider := &inject.LocationProvider{}
	provider.PositionFunc = func(ctx context.Context) (geofence.Position, error) {
		// walk into the zone on the second fix
		if calls.Add(1) == 1 {
			return geofence.NewPosition(10.1, 10), nil
		}
		return geofence.NewPosition(10, 10), nil
	}

	gate := geofence.NewGate(nil, logger)
	zones := geofence.StaticZones{{Name: "campus", Center: geo.NewPoint(10, 10)}}
	tracker := geofence.NewTracker(provider, gate, 0, logger,
		geofence.WithClock(mockClock), geofence.WithZoneSource(zones))
	test.That(t, tracker.Start(context.Background()), test.ShouldBeNil)
	defer tracker.Stop()

	test.That(t, tracker.Start(context.Background()), test.ShouldNotBeNil)

	d, _, ok := gate.Decision()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d.Inside, test.ShouldBeFalse)
	test.That(t, calls.Load(), test.ShouldEqual, int32(1))

	mockClock.Add(geofence.DefaultPollInterval)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		d, _, _ := gate.Decision()
		test.That(tb, d.Inside, test.ShouldBeTrue)
		test.That(tb, d.ZoneName, test.ShouldEqual, "campus")
	})
}

func TestTrackerKeepsDecisionOnError(t *testing.T) {
	logger := logging.NewTestLogger(t)
	zones := []geofence.Zone{{Name: "campus", Center: geo.NewPoint(10, 10)}}
	gate := geofence.NewGate(zones, logger)
	gate.Update(geofence.NewPosition(10, 10))

	provider := &inject.LocationProvider{}
	provider.PositionFunc = func(ctx context.Context) (geofence.Position, error) {
		return geofence.Position{}, errors.New("gps off")
	}
	tracker := geofence.NewTracker(provider, gate, 0, logger, geofence.WithClock(clock.NewMock()))
	tracker.Poll(context.Background())

	d, _, _ := gate.Decision()
	test.That(t, d.Inside, test.ShouldBeTrue)

	provider.PositionFunc = func(ctx context.Context) (geofence.Position, error) {
		return geofence.Position{}, nil
	}
	tracker.Poll(context.Background())
	d, _, _ = gate.Decision()
	test.That(t, d.Inside, test.ShouldBeTrue)
}

func TestTrackerZoneLoadFailure(t *testing.T) {
	logger := logging.NewTestLogger(t)
	provider := &inject.LocationProvider{}
	tracker := geofence.NewTracker(provider, geofence.NewGate(nil, logger), 0, logger,
		geofence.WithZoneSource(failingZones{}))
	err := tracker.Start(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "could not load zones")
	tracker.Stop()
}

type failingZones struct{}

func (failingZones) Zones(ctx context.Context) ([]geofence.Zone, error) {
	return nil, errors.New("directory offline")
}
