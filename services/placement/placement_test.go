package placement

import (
	"context"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/boardlens/boardlens/logging"
	"github.com/boardlens/boardlens/spatialmath"
)

func almostVector(t *testing.T, got, want r3.Vector) {
	t.Helper()
	test.That(t, got.Sub(want).Norm(), test.ShouldBeLessThan, 1e-9)
}

func TestComputePoseWithHit(t *testing.T) {
	camera := spatialmath.NewPoseFromPoint(r3.Vector{X: 0, Y: 0, Z: 0})
	hit := &SurfaceHit{Position: r3.Vector{X: 0, Y: 0, Z: 2}}

	pose := ComputePose(r2.Point{X: 0.5, Y: 0.5}, hit, camera, DefaultConfig())
	almostVector(t, pose.Position, r3.Vector{Z: 1.7})
	// looking at the camera is -Z; the turn makes the content face +Z
	almostVector(t, pose.Forward(), r3.Vector{Z: 1})
	almostVector(t, pose.Up(), spatialmath.WorldUp)

	camera = spatialmath.NewPoseFromPoint(r3.Vector{X: 3, Y: 1, Z: -1})
	hit = &SurfaceHit{Position: r3.Vector{X: -1, Y: 0.5, Z: 4}}
	cfg := Config{StandoffMeters: 0.5}
	pose = ComputePose(r2.Point{}, hit, camera, cfg)
	toCamera := camera.Position.Sub(hit.Position).Normalize()
	almostVector(t, pose.Position, hit.Position.Add(toCamera.Mul(0.5)))
	test.That(t, pose.Position.Sub(hit.Position).Norm(), test.ShouldAlmostEqual, 0.5)
	almostVector(t, pose.Forward(), toCamera.Mul(-1))
}

func TestComputePoseFallback(t *testing.T) {
	camera := spatialmath.NewPose(r3.Vector{X: 1, Y: 1.5, Z: 0}, spatialmath.RotationAboutY(90))

	pose := ComputePose(r2.Point{X: 0.5, Y: 0.5}, nil, camera, DefaultConfig())
	almostVector(t, pose.Position, r3.Vector{X: 1.5, Y: 1.5, Z: 0})
	almostVector(t, pose.Forward(), r3.Vector{X: -1})

	// a hit at the camera position must not be normalized
	coincident := &SurfaceHit{Position: camera.Position}
	pose = ComputePose(r2.Point{X: 0.5, Y: 0.5}, coincident, camera, Config{FallbackMeters: 2})
	almostVector(t, pose.Position, r3.Vector{X: 3, Y: 1.5, Z: 0})
}

type fakeTester struct {
	hit *SurfaceHit
	err error
}

func (f fakeTester) HitTest(ctx context.Context, screen r2.Point) (*SurfaceHit, error) {
	return f.hit, f.err
}

func TestCalculatorLocate(t *testing.T) {
	logger := logging.NewTestLogger(t)
	camera := spatialmath.NewZeroPose()

	calc := NewCalculator(fakeTester{hit: &SurfaceHit{Position: r3.Vector{Z: 1}}}, DefaultConfig(), logger)
	pose := calc.Locate(context.Background(), r2.Point{X: 0.5, Y: 0.5}, camera)
	almostVector(t, pose.Position, r3.Vector{Z: 0.7})

	calc = NewCalculator(fakeTester{err: errors.New("tracking lost")}, DefaultConfig(), logger)
	pose = calc.Locate(context.Background(), r2.Point{X: 0.5, Y: 0.5}, camera)
	almostVector(t, pose.Position, r3.Vector{Z: 0.5})

	calc = NewCalculator(nil, DefaultConfig(), logger)
	pose = calc.Locate(context.Background(), r2.Point{X: 0.5, Y: 0.5}, camera)
	almostVector(t, pose.Position, r3.Vector{Z: 0.5})
}
