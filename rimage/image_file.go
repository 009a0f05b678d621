package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ReadImageFromFile decodes a PNG or JPEG file, applying any EXIF orientation it carries.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "could not read image %q", path)
	}
	return img, nil
}

// WriteImageToFile encodes img in the format implied by the extension of path.
func WriteImageToFile(path string, img image.Image) error {
	return errors.Wrapf(imaging.Save(img, path), "could not write image %q", path)
}

// ReadFrameFromFile reads an image file, undoes the camera rotation and returns it as a PixelBuffer.
func ReadFrameFromFile(path string, rotationDegrees int) (*PixelBuffer, error) {
	img, err := ReadImageFromFile(path)
	if err != nil {
		return nil, err
	}
	upright, err := Orient(img, rotationDegrees)
	if err != nil {
		return nil, err
	}
	return FromImage(upright), nil
}
