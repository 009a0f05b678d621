package inject

import (
	"context"

	"github.com/boardlens/boardlens/services/geofence"
)

// LocationProvider is an injected location provider.
type LocationProvider struct {
	geofence.LocationProvider
	PositionFunc func(ctx context.Context) (geofence.Position, error)
}

// Position calls the injected Position or the real version.
func (l *LocationProvider) Position(ctx context.Context) (geofence.Position, error) {
	if l.PositionFunc == nil {
		return l.LocationProvider.Position(ctx)
	}
	return l.PositionFunc(ctx)
}

// Verifier is an injected geofence verifier.
type Verifier struct {
	geofence.Verifier
	VerifyFunc func(ctx context.Context, pos geofence.Position) (geofence.Verification, error)
}

// Verify calls the injected Verify or the real version.
func (v *Verifier) Verify(ctx context.Context, pos geofence.Position) (geofence.Verification, error) {
	if v.VerifyFunc == nil {
		return v.Verifier.Verify(ctx, pos)
	}
	return v.VerifyFunc(ctx, pos)
}
