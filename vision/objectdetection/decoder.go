package objectdetection

import (
	"math"

	"github.com/pkg/errors"

	"github.com/boardlens/boardlens/ml"
	"github.com/boardlens/boardlens/rimage"
	"github.com/boardlens/boardlens/utils"
)

// CoordinateSpace is the unit the detector export writes box centers in.
type CoordinateSpace int

const (
	// CoordinatesModelPixels means cx/cy range over 0..ModelSize, as ultralytics exports do.
	CoordinatesModelPixels CoordinateSpace = iota
	// CoordinatesNormalized means cx/cy already range over 0..1.
	CoordinatesNormalized
)

// DefaultConfidenceThreshold is used when a deployment does not tune the threshold.
const DefaultConfidenceThreshold = 0.6

// DecoderConfig controls how raw output is decoded.
type DecoderConfig struct {
	// ConfidenceThreshold is exclusive: a detection needs a confidence strictly above it.
	ConfidenceThreshold float64
	CoordinateSpace     CoordinateSpace
	// ModelSize is the square input edge used to normalize CoordinatesModelPixels.
	ModelSize int
}

// DefaultDecoderConfig returns the decoder settings for the stock 640x640 export.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		CoordinateSpace:     CoordinatesModelPixels,
		ModelSize:           rimage.DefaultModelSize,
	}
}

// Decode finds the anchor with the highest value in the confidence channel with a single pass. Ties
// go to the lowest anchor index. Not finding a board is a normal result with Found=false; errors
// are only returned for a tensor that does not have the expected structure.
func Decode(t *ml.RawDetectionTensor, anchorCount, confidenceChannel int, cfg DecoderConfig) (DetectionResult, error) {
	if t == nil {
		return DetectionResult{}, errors.New("nil detection tensor")
	}
	if anchorCount <= 0 || anchorCount != t.Anchors() {
		return DetectionResult{}, errors.Errorf("anchor count %d does not match tensor with %d anchors", anchorCount, t.Anchors())
	}
	if confidenceChannel <= ml.ChannelCY || confidenceChannel >= t.Channels() {
		return DetectionResult{}, errors.Errorf(
			"confidence channel %d out of range for a %d channel tensor", confidenceChannel, t.Channels())
	}

	conf := t.Channel(confidenceChannel)
	best := 0
	maxConf := scoreOf(conf[0])
	for i := 1; i < anchorCount; i++ {
		if c := scoreOf(conf[i]); c > maxConf {
			maxConf = c
			best = i
		}
	}
	if math.IsInf(maxConf, -1) {
		maxConf = 0
	}

	res := DetectionResult{
		Confidence: maxConf,
		BestIndex:  best,
		Found:      maxConf > cfg.ConfidenceThreshold,
	}
	if !res.Found {
		return res, nil
	}
	res.CenterX = normalizeCoordinate(float64(t.At(ml.ChannelCX, best)), cfg)
	res.CenterY = normalizeCoordinate(float64(t.At(ml.ChannelCY, best)), cfg)
	return res, nil
}

// NaN scores never win.
func scoreOf(v float32) float64 {
	f := float64(v)
	if math.IsNaN(f) {
		return math.Inf(-1)
	}
	return f
}

func normalizeCoordinate(v float64, cfg DecoderConfig) float64 {
	if cfg.CoordinateSpace == CoordinatesModelPixels {
		size := cfg.ModelSize
		if size <= 0 {
			size = rimage.DefaultModelSize
		}
		v /= float64(size)
	}
	return utils.Clamp(v, 0, 1)
}
