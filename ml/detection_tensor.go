package ml

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Channel positions inside a detector output. The class channel only exists on six-channel exports.
const (
	ChannelCX = iota
	ChannelCY
	ChannelW
	ChannelH
	ChannelConfidence
	ChannelClass
)

// RawDetectionTensor is a detector output laid out channel-major: every channel holds one value per
// anchor, so the value for (channel, anchor) lives at channel*anchors+anchor.
type RawDetectionTensor struct {
	dense    *tensor.Dense
	data     []float32
	channels int
	anchors  int
}

// NewRawDetectionTensor wraps a flat channel-major buffer. len(data) must equal channels*anchors.
func NewRawDetectionTensor(data []float32, channels, anchors int) (*RawDetectionTensor, error) {
	if channels <= 0 || anchors <= 0 {
		return nil, errors.Errorf("invalid detection tensor shape %dx%d", channels, anchors)
	}
	if len(data) != channels*anchors {
		return nil, errors.Errorf(
			"detection tensor length %d does not match %d channels x %d anchors", len(data), channels, anchors)
	}
	dense := tensor.New(tensor.WithShape(1, channels, anchors), tensor.WithBacking(data))
	return &RawDetectionTensor{dense: dense, data: data, channels: channels, anchors: anchors}, nil
}

// RawDetectionTensorFromDense accepts a model output of shape [1, C, A] or [C, A].
func RawDetectionTensorFromDense(t *tensor.Dense) (*RawDetectionTensor, error) {
	if t == nil {
		return nil, errors.New("nil detection tensor")
	}
	shape := t.Shape()
	var channels, anchors int
	switch {
	case len(shape) == 3 && shape[0] == 1:
		channels, anchors = shape[1], shape[2]
	case len(shape) == 2:
		channels, anchors = shape[0], shape[1]
	default:
		return nil, errors.Errorf("unsupported detection tensor shape %v", shape)
	}
	data, err := ToFloat32Slice(t)
	if err != nil {
		return nil, err
	}
	return NewRawDetectionTensor(data, channels, anchors)
}

// Channels is the number of channels per anchor (5 or 6 for the supported exports).
func (r *RawDetectionTensor) Channels() int {
	return r.channels
}

// Anchors is the number of candidate slots.
func (r *RawDetectionTensor) Anchors() int {
	return r.anchors
}

// Len is channels*anchors.
func (r *RawDetectionTensor) Len() int {
	return len(r.data)
}

// At returns the value of channel for the given anchor.
func (r *RawDetectionTensor) At(channel, anchor int) float32 {
	return r.data[channel*r.anchors+anchor]
}

// Channel returns the slice of per-anchor values for one channel. It aliases the tensor data.
func (r *RawDetectionTensor) Channel(channel int) []float32 {
	return r.data[channel*r.anchors : (channel+1)*r.anchors]
}

// Dense returns the tensor as a [1, channels, anchors] dense value.
func (r *RawDetectionTensor) Dense() *tensor.Dense {
	return r.dense
}
