package ml

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// tensorFile is the JSON form of a float32 tensor: its shape and row-major data.
type tensorFile struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// ReadTensorFile reads a tensor written by WriteTensorFile. A missing shape means a flat vector.
func ReadTensorFile(path string) (*tensor.Dense, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf tensorFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return nil, errors.Wrapf(err, "could not decode tensor file %q", path)
	}
	if len(tf.Shape) == 0 {
		tf.Shape = []int{len(tf.Data)}
	}
	size := 1
	for _, d := range tf.Shape {
		if d <= 0 {
			return nil, errors.Errorf("tensor file %q has invalid shape %v", path, tf.Shape)
		}
		size *= d
	}
	if size != len(tf.Data) {
		return nil, errors.Errorf("tensor file %q has %d values for shape %v", path, len(tf.Data), tf.Shape)
	}
	return tensor.New(tensor.WithShape(tf.Shape...), tensor.WithBacking(tf.Data)), nil
}

// WriteTensorFile writes t as JSON.
func WriteTensorFile(path string, t *tensor.Dense) error {
	data, err := ToFloat32Slice(t)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(tensorFile{Shape: []int(t.Shape()), Data: data})
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
