// Package objectdetection turns raw detector output into the single best blackboard candidate.
package objectdetection

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/boardlens/boardlens/rimage"
)

// DetectionResult is the outcome of one inference pass. CenterX and CenterY are normalized to [0,1]
// with the origin at the top-left of the model input; they are only meaningful when Found is true.
type DetectionResult struct {
	Confidence float64
	CenterX    float64
	CenterY    float64
	Found      bool
	BestIndex  int
}

func (d DetectionResult) String() string {
	if !d.Found {
		return fmt.Sprintf("no detection (best %.2f at anchor %d)", d.Confidence, d.BestIndex)
	}
	return fmt.Sprintf("detection %.2f at (%.3f, %.3f) anchor %d", d.Confidence, d.CenterX, d.CenterY, d.BestIndex)
}

// Detector runs a frame through preprocessing, inference and decoding.
type Detector func(ctx context.Context, frame *rimage.PixelBuffer) (DetectionResult, error)

// Postprocessor adjusts a decoded result before it is handed on.
type Postprocessor func(DetectionResult) DetectionResult

// Build chains a detector with postprocessors, applied in order to found results only.
func Build(det Detector, posts ...Postprocessor) (Detector, error) {
	if det == nil {
		return nil, errors.New("object detection pipeline must have a Detector")
	}
	return func(ctx context.Context, frame *rimage.PixelBuffer) (DetectionResult, error) {
		res, err := det(ctx, frame)
		if err != nil {
			return DetectionResult{}, err
		}
		if !res.Found {
			return res, nil
		}
		for _, p := range posts {
			if p != nil {
				res = p(res)
			}
		}
		return res, nil
	}, nil
}

// NewAxisAdjuster compensates for how the camera is mounted relative to the model input: swapXY
// exchanges the axes first, then flipX and flipY mirror them.
func NewAxisAdjuster(swapXY, flipX, flipY bool) Postprocessor {
	return func(in DetectionResult) DetectionResult {
		out := in
		if swapXY {
			out.CenterX, out.CenterY = out.CenterY, out.CenterX
		}
		if flipX {
			out.CenterX = 1 - out.CenterX
		}
		if flipY {
			out.CenterY = 1 - out.CenterY
		}
		return out
	}
}
