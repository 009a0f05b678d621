package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Clamp returns current if it lies within [lower, upper], otherwise the nearest bound.
func Clamp(current, lower, upper float64) float64 {
	if current < lower {
		return lower
	}
	if current > upper {
		return upper
	}
	return current
}

// ClampInt is Clamp for ints.
func ClampInt(current, lower, upper int) int {
	if current < lower {
		return lower
	}
	if current > upper {
		return upper
	}
	return current
}

// Square returns n*n; math.Pow(x, 2) is slow.
func Square(n float64) float64 {
	return n * n
}
