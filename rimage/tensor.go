package rimage

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/boardlens/boardlens/utils"
)

// DefaultModelSize is the square input edge of the blackboard detector.
const DefaultModelSize = 640

// PrepareTensor resamples buf with nearest-neighbor lookup into a [1, 3, targetHeight, targetWidth]
// float32 tensor. Rows are flipped vertically: the row sampled for y is written to
// targetHeight-1-y. The detector was trained on bottom-up frames and misses boards without it.
func PrepareTensor(buf *PixelBuffer, targetWidth, targetHeight int) (*tensor.Dense, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if targetWidth <= 0 || targetHeight <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "target dimensions %dx%d", targetWidth, targetHeight)
	}

	plane := targetWidth * targetHeight
	out := make([]float32, 3*plane)
	for y := 0; y < targetHeight; y++ {
		srcY := NearestSource(y, buf.Height, targetHeight)
		dstRow := (targetHeight - 1 - y) * targetWidth
		for x := 0; x < targetWidth; x++ {
			srcX := NearestSource(x, buf.Width, targetWidth)
			r, g, b := buf.RGB(srcX, srcY)
			i := dstRow + x
			out[i] = normalize(r)
			out[plane+i] = normalize(g)
			out[2*plane+i] = normalize(b)
		}
	}
	return tensor.New(tensor.WithShape(1, 3, targetHeight, targetWidth), tensor.WithBacking(out)), nil
}

// NearestSource maps a destination coordinate to the source coordinate nearest-neighbor sampling
// reads from, clamped to [0, sourceSize-1].
func NearestSource(dst, sourceSize, targetSize int) int {
	// integer form of floor(dst * sourceSize/targetSize)
	src := (dst * sourceSize) / targetSize
	return utils.ClampInt(src, 0, sourceSize-1)
}

func normalize(v float32) float32 {
	return float32(utils.Clamp(float64(v), 0, 1))
}
