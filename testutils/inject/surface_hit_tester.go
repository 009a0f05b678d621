package inject

import (
	"context"

	"github.com/golang/geo/r2"

	"github.com/boardlens/boardlens/services/placement"
)

// SurfaceHitTester is an injected AR hit tester.
type SurfaceHitTester struct {
	placement.SurfaceHitTester
	HitTestFunc func(ctx context.Context, screen r2.Point) (*placement.SurfaceHit, error)
}

// HitTest calls the injected HitTest or the real version.
func (s *SurfaceHitTester) HitTest(ctx context.Context, screen r2.Point) (*placement.SurfaceHit, error) {
	if s.HitTestFunc == nil {
		return s.SurfaceHitTester.HitTest(ctx, screen)
	}
	return s.HitTestFunc(ctx, screen)
}
