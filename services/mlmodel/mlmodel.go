// Package mlmodel defines the inference boundary: a service that takes a map of named input tensors,
// passes them through an inference engine, and returns a map of named output tensors. The engine
// itself lives outside this module.
package mlmodel

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/boardlens/boardlens/ml"
)

const (
	// DefaultInputName is the input tensor name of the exported blackboard detector.
	DefaultInputName = "images"
	// DefaultOutputName is the output tensor name of the exported blackboard detector.
	DefaultOutputName = "output0"
	// DefaultAnchors is the number of candidate slots a 640x640 export produces.
	DefaultAnchors = 8400
)

// Service runs inference.
type Service interface {
	Infer(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error)
	Metadata(ctx context.Context) (MLMetadata, error)
}

// MLMetadata describes a model's inputs and outputs.
type MLMetadata struct {
	ModelName        string
	ModelType        string // e.g. object_detector
	ModelDescription string
	Inputs           []TensorInfo
	Outputs          []TensorInfo
}

// TensorInfo describes one input or output tensor.
type TensorInfo struct {
	Name        string // e.g. images
	Description string
	DataType    string // e.g. float32
	Shape       []int
	Extra       map[string]interface{}
}

// DetectorMetadata returns the metadata of the blackboard detector export: a [1,3,640,640] float32
// input and a [1,channels,8400] output. channels is 6 with a class channel, 5 without.
func DetectorMetadata(channels int) MLMetadata {
	return MLMetadata{
		ModelName: "blackboard",
		ModelType: "object_detector",
		Inputs: []TensorInfo{{
			Name:     DefaultInputName,
			DataType: "float32",
			Shape:    []int{1, 3, 640, 640},
		}},
		Outputs: []TensorInfo{{
			Name:     DefaultOutputName,
			DataType: "float32",
			Shape:    []int{1, channels, DefaultAnchors},
		}},
	}
}

// InputSize returns the width and height of the first input, which may be laid out channel-first
// ([1,3,H,W]) or channel-last ([1,H,W,3]).
func (md MLMetadata) InputSize() (int, int, error) {
	if len(md.Inputs) == 0 {
		return 0, 0, errors.New("model metadata has no inputs")
	}
	shape := md.Inputs[0].Shape
	if len(shape) != 4 {
		return 0, 0, errors.Errorf("expected a 4 dimensional input, got shape %v", shape)
	}
	if getIndex(shape, 3) == 1 {
		return shape[3], shape[2], nil
	}
	return shape[2], shape[1], nil
}

// OutputChannelsAndAnchors returns the channel and anchor counts of the first output.
func (md MLMetadata) OutputChannelsAndAnchors() (int, int, error) {
	if len(md.Outputs) == 0 {
		return 0, 0, errors.New("model metadata has no outputs")
	}
	shape := md.Outputs[0].Shape
	switch len(shape) {
	case 3:
		return shape[1], shape[2], nil
	case 2:
		return shape[0], shape[1], nil
	default:
		return 0, 0, errors.Errorf("unsupported output shape %v", shape)
	}
}

// SelectOutput finds the named output, falling back to a case-insensitive substring match and then
// to the only tensor present.
func SelectOutput(out ml.Tensors, name string) (*tensor.Dense, error) {
	if t, ok := out[name]; ok {
		return t, nil
	}
	for n, t := range out {
		if strings.Contains(strings.ToLower(n), strings.ToLower(name)) {
			return t, nil
		}
	}
	if len(out) == 1 {
		for _, t := range out {
			return t, nil
		}
	}
	return nil, errors.Errorf("no tensor named %q among output tensors [%s]", name, strings.Join(out.Names(), ", "))
}

// getIndex returns the index of num in s, or -1.
func getIndex(s []int, num int) int {
	for i, v := range s {
		if v == num {
			return i
		}
	}
	return -1
}
