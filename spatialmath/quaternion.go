package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/boardlens/boardlens/utils"
)

// vectorEpsilon is the length below which a direction is treated as zero.
const vectorEpsilon = 1e-9

var (
	// WorldUp is +Y.
	WorldUp = r3.Vector{X: 0, Y: 1, Z: 0}
	// LocalForward is the +Z axis every orientation rotates into its forward direction.
	LocalForward = r3.Vector{X: 0, Y: 0, Z: 1}
)

// Normalize scales q to unit length. The zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// RotateVector applies the rotation q to v.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	q = Normalize(q)
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Compose returns the rotation that applies b in a's local frame, i.e. a then b.
func Compose(a, b quat.Number) quat.Number {
	return Normalize(quat.Mul(a, b))
}

// RotationAboutY returns a rotation of degrees about +Y.
func RotationAboutY(degrees float64) quat.Number {
	return (&R4AA{Theta: utils.DegToRad(degrees), RY: 1}).ToQuat()
}

// LookRotation returns the rotation whose forward (+Z) points along forward and whose up is as close
// to up as possible. When forward is parallel to up another reference axis is used. A zero forward
// yields the identity.
func LookRotation(forward, up r3.Vector) quat.Number {
	if forward.Norm() < vectorEpsilon {
		return quat.Number{Real: 1}
	}
	z := forward.Normalize()
	if up.Norm() < vectorEpsilon {
		up = WorldUp
	}
	x := up.Cross(z)
	if x.Norm() < vectorEpsilon {
		// forward is parallel to up
		x = r3.Vector{X: 1}.Cross(z)
		if x.Norm() < vectorEpsilon {
			x = r3.Vector{Z: 1}.Cross(z)
		}
	}
	x = x.Normalize()
	y := z.Cross(x)
	return basisToQuat(x, y, z)
}

// basisToQuat converts the rotation matrix with columns x, y, z into a quaternion.
// See: https://www.euclideanspace.com/maths/geometry/rotations/conversions/matrixToQuaternion/
func basisToQuat(x, y, z r3.Vector) quat.Number {
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z

	var q quat.Number
	switch trace := m00 + m11 + m22; {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q = quat.Number{Real: s / 4, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = quat.Number{Real: (m21 - m12) / s, Imag: s / 4, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: s / 4, Kmag: (m12 + m21) / s}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: s / 4}
	}
	return Normalize(q)
}

// QuaternionAlmostEqual reports whether a and b describe the same rotation within tol. q and -q are
// the same rotation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	a, b = Normalize(a), Normalize(b)
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	return 1-math.Abs(dot) <= tol
}
