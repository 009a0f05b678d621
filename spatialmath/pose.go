package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/boardlens/boardlens/utils"
)

// Pose is a position in meters plus an orientation in the world frame.
type Pose struct {
	Position    r3.Vector
	Orientation quat.Number
}

// NewPose returns a pose with a normalized orientation.
func NewPose(position r3.Vector, orientation quat.Number) Pose {
	return Pose{Position: position, Orientation: Normalize(orientation)}
}

// NewZeroPose returns a pose at the origin facing +Z.
func NewZeroPose() Pose {
	return Pose{Orientation: quat.Number{Real: 1}}
}

// NewPoseFromPoint returns a pose at point with no rotation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return Pose{Position: point, Orientation: quat.Number{Real: 1}}
}

// Forward is the pose's local +Z in world coordinates.
func (p Pose) Forward() r3.Vector {
	return RotateVector(p.Orientation, LocalForward)
}

// Up is the pose's local +Y in world coordinates.
func (p Pose) Up() r3.Vector {
	return RotateVector(p.Orientation, WorldUp)
}

func (p Pose) String() string {
	aa := QuatToR4AA(p.Orientation)
	return fmt.Sprintf("position (%.3f, %.3f, %.3f) rotation %.1f deg about (%.3f, %.3f, %.3f)",
		p.Position.X, p.Position.Y, p.Position.Z, utils.RadToDeg(aa.Theta), aa.RX, aa.RY, aa.RZ)
}

// PoseAlmostCoincident reports whether two poses are equal within epsilon in position and rotation.
func PoseAlmostCoincident(a, b Pose, epsilon float64) bool {
	return a.Position.Sub(b.Position).Norm() <= epsilon &&
		QuaternionAlmostEqual(a.Orientation, b.Orientation, epsilon)
}
