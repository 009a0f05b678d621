// Package placement converts a detected screen point into the pose at which content is shown.
package placement

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/boardlens/boardlens/logging"
	"github.com/boardlens/boardlens/spatialmath"
)

const (
	// DefaultStandoffMeters is how far in front of the hit surface content is placed.
	DefaultStandoffMeters = 0.3
	// DefaultFallbackMeters is how far in front of the camera content is placed without a hit.
	DefaultFallbackMeters = 0.5

	coincidentEpsilon = 1e-6
)

// Config holds placement distances in meters.
type Config struct {
	StandoffMeters float64 `json:"standoff_m"`
	FallbackMeters float64 `json:"fallback_m"`
}

// DefaultConfig returns the stock placement distances.
func DefaultConfig() Config {
	return Config{StandoffMeters: DefaultStandoffMeters, FallbackMeters: DefaultFallbackMeters}
}

// SurfaceHit is where a ray through a screen point meets a tracked surface.
type SurfaceHit struct {
	Position r3.Vector
	Normal   r3.Vector
}

// A SurfaceHitTester casts a ray through a normalized screen point. It returns a nil hit when the ray
// meets nothing.
type SurfaceHitTester interface {
	HitTest(ctx context.Context, screen r2.Point) (*SurfaceHit, error)
}

// facingFlip turns content around so its authored front faces the viewer.
var facingFlip = spatialmath.RotationAboutY(180)

// ComputePose places content for a detection at screen. With a hit, content sits StandoffMeters from
// the hit toward the camera, looking at the camera and then turned 180 degrees about its vertical
// axis. Without a hit, or when the hit coincides with the camera, content sits FallbackMeters along
// the camera's forward direction, facing along it, with the same turn.
func ComputePose(screen r2.Point, hit *SurfaceHit, camera spatialmath.Pose, cfg Config) spatialmath.Pose {
	if hit != nil {
		toCamera := camera.Position.Sub(hit.Position)
		if toCamera.Norm() >= coincidentEpsilon {
			dir := toCamera.Normalize()
			pos := hit.Position.Add(dir.Mul(standoff(cfg)))
			look := spatialmath.LookRotation(dir, spatialmath.WorldUp)
			return spatialmath.NewPose(pos, spatialmath.Compose(look, facingFlip))
		}
	}
	return fallbackPose(camera, cfg)
}

func fallbackPose(camera spatialmath.Pose, cfg Config) spatialmath.Pose {
	forward := camera.Forward()
	dist := cfg.FallbackMeters
	if dist <= 0 {
		dist = DefaultFallbackMeters
	}
	pos := camera.Position.Add(forward.Mul(dist))
	look := spatialmath.LookRotation(forward, camera.Up())
	return spatialmath.NewPose(pos, spatialmath.Compose(look, facingFlip))
}

func standoff(cfg Config) float64 {
	if cfg.StandoffMeters <= 0 {
		return DefaultStandoffMeters
	}
	return cfg.StandoffMeters
}

// Calculator hit-tests a detection and computes its pose.
type Calculator struct {
	tester SurfaceHitTester
	cfg    Config
	logger logging.Logger
}

// NewCalculator returns a Calculator. tester may be nil, in which case every placement falls back to
// the camera's forward direction.
func NewCalculator(tester SurfaceHitTester, cfg Config, logger logging.Logger) *Calculator {
	return &Calculator{tester: tester, cfg: cfg, logger: logger}
}

// Locate hit-tests screen and returns the content pose. A failing hit test is logged and treated as
// no hit.
func (c *Calculator) Locate(ctx context.Context, screen r2.Point, camera spatialmath.Pose) spatialmath.Pose {
	var hit *SurfaceHit
	if c.tester != nil {
		h, err := c.tester.HitTest(ctx, screen)
		if err != nil {
			c.logger.Warnw("surface hit test failed, placing in front of camera", "error", err)
		} else {
			hit = h
		}
	}
	pose := ComputePose(screen, hit, camera, c.cfg)
	c.logger.Debugw("computed placement", "screen", screen, "hit", hit != nil, "pose", pose.String())
	return pose
}
