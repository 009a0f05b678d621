package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestClamp(t *testing.T) {
	test.That(t, Clamp(-0.1, 0, 1), test.ShouldEqual, 0)
	test.That(t, Clamp(1.1, 0, 1), test.ShouldEqual, 1)
	test.That(t, Clamp(0.3, 0, 1), test.ShouldEqual, 0.3)
	test.That(t, ClampInt(-5, 0, 639), test.ShouldEqual, 0)
	test.That(t, ClampInt(640, 0, 639), test.ShouldEqual, 639)
	test.That(t, ClampInt(12, 0, 639), test.ShouldEqual, 12)
}

func TestAngles(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90)
	test.That(t, Square(3), test.ShouldEqual, 9)
}
