package mlmodel

import (
	"context"

	"github.com/pkg/errors"

	"github.com/boardlens/boardlens/ml"
)

// ReplayService answers every inference with recorded outputs. It stands in for an engine when
// replaying captured model output against live frames.
type ReplayService struct {
	outputs ml.Tensors
	md      MLMetadata
}

// NewReplayService returns a service that replays outputs. When md has no outputs, it is filled in
// from the recorded tensors.
func NewReplayService(outputs ml.Tensors, md MLMetadata) (*ReplayService, error) {
	if len(outputs) == 0 {
		return nil, errors.New("replay service needs at least one output tensor")
	}
	if len(md.Outputs) == 0 {
		for _, name := range outputs.Names() {
			md.Outputs = append(md.Outputs, TensorInfo{
				Name:     name,
				DataType: "float32",
				Shape:    []int(outputs[name].Shape()),
			})
		}
	}
	return &ReplayService{outputs: outputs, md: md}, nil
}

// Infer checks that the model inputs are present and returns the recorded outputs.
func (s *ReplayService) Infer(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, in := range s.md.Inputs {
		if _, ok := tensors[in.Name]; !ok {
			return nil, errors.Errorf("missing input tensor %q", in.Name)
		}
	}
	return s.outputs, nil
}

// Metadata returns the metadata the service was built with.
func (s *ReplayService) Metadata(ctx context.Context) (MLMetadata, error) {
	return s.md, nil
}
