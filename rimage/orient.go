package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Orient undoes a camera's reported video rotation so the frame is upright. rotationDegrees is the
// clockwise rotation the camera reports (0, 90, 180 or 270, negative values allowed).
func Orient(img image.Image, rotationDegrees int) (image.Image, error) {
	if rotationDegrees%90 != 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "rotation %d is not a multiple of 90", rotationDegrees)
	}
	// imaging rotates counter-clockwise, which undoes a clockwise camera rotation.
	switch ((rotationDegrees % 360) + 360) % 360 {
	case 90:
		return imaging.Rotate90(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate270(img), nil
	default:
		return img, nil
	}
}
