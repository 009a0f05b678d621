package rimage

import (
	"image"

	"github.com/pkg/errors"
)

// ErrInvalidInput is returned when a frame cannot be preprocessed: empty buffers, non-positive
// dimensions, or pixel data shorter than the dimensions claim.
var ErrInvalidInput = errors.New("invalid preprocessing input")

// PixelBuffer is an RGB frame stored row-major with three float components per pixel, each in [0,1].
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []float32
}

// NewPixelBuffer returns a black buffer of the given size.
func NewPixelBuffer(width, height int) *PixelBuffer {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &PixelBuffer{Width: width, Height: height, Pix: make([]float32, width*height*3)}
}

// FromImage converts any image into a PixelBuffer, scaling 16-bit color components into [0,1].
func FromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	buf := NewPixelBuffer(bounds.Dx(), bounds.Dy())
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			buf.SetRGB(x, y, float32(r)/0xffff, float32(g)/0xffff, float32(b)/0xffff)
		}
	}
	return buf
}

// Validate reports ErrInvalidInput for buffers that cannot be sampled.
func (pb *PixelBuffer) Validate() error {
	if pb == nil {
		return errors.Wrap(ErrInvalidInput, "nil pixel buffer")
	}
	if pb.Width <= 0 || pb.Height <= 0 {
		return errors.Wrapf(ErrInvalidInput, "source dimensions %dx%d", pb.Width, pb.Height)
	}
	if len(pb.Pix) < pb.Width*pb.Height*3 {
		return errors.Wrapf(ErrInvalidInput, "pixel data has %d values, need %d", len(pb.Pix), pb.Width*pb.Height*3)
	}
	return nil
}

// In reports whether (x, y) lies inside the buffer.
func (pb *PixelBuffer) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < pb.Width && y < pb.Height
}

func (pb *PixelBuffer) kxy(x, y int) int {
	return ((y * pb.Width) + x) * 3
}

// RGB returns the components at (x, y).
func (pb *PixelBuffer) RGB(x, y int) (float32, float32, float32) {
	k := pb.kxy(x, y)
	return pb.Pix[k], pb.Pix[k+1], pb.Pix[k+2]
}

// SetRGB sets the components at (x, y).
func (pb *PixelBuffer) SetRGB(x, y int, r, g, b float32) {
	k := pb.kxy(x, y)
	pb.Pix[k], pb.Pix[k+1], pb.Pix[k+2] = r, g, b
}
