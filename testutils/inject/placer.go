package inject

import (
	"context"

	"github.com/boardlens/boardlens/controller"
	"github.com/boardlens/boardlens/services/resolver"
	"github.com/boardlens/boardlens/spatialmath"
)

// Placer is an injected scene placer.
type Placer struct {
	controller.Placer
	PlaceFunc  func(ctx context.Context, asset resolver.AssetRecord, pose spatialmath.Pose) error
	RemoveFunc func(ctx context.Context) error
}

// Place calls the injected Place or the real version.
func (p *Placer) Place(ctx context.Context, asset resolver.AssetRecord, pose spatialmath.Pose) error {
	if p.PlaceFunc == nil {
		return p.Placer.Place(ctx, asset, pose)
	}
	return p.PlaceFunc(ctx, asset, pose)
}

// Remove calls the injected Remove or the real version.
func (p *Placer) Remove(ctx context.Context) error {
	if p.RemoveFunc == nil {
		return p.Placer.Remove(ctx)
	}
	return p.RemoveFunc(ctx)
}
