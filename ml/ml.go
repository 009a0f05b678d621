// Package ml provides the tensor types exchanged with the detection model.
package ml

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"gorgonia.org/tensor"
)

// Tensors maps a tensor name to its value. It is the unit passed to and returned from inference.
type Tensors map[string]*tensor.Dense

// Names returns all the names of the tensors.
func (t Tensors) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	return names
}

// number interface for converting between numbers.
type number interface {
	constraints.Integer | constraints.Float
}

// convertNumberSlice converts any number slice into another number slice.
func convertNumberSlice[T1, T2 number](t1 []T1) []T2 {
	t2 := make([]T2, len(t1))
	for i := range t1 {
		t2[i] = T2(t1[i])
	}
	return t2
}

// ToFloat32Slice returns the backing data of a dense tensor as []float32, converting from other
// numeric element types. A float32 tensor's backing slice is returned without copying.
func ToFloat32Slice(t *tensor.Dense) ([]float32, error) {
	if t == nil {
		return nil, errors.New("nil tensor")
	}
	switch v := t.Data().(type) {
	case []float32:
		return v, nil
	case float32:
		return []float32{v}, nil
	case []float64:
		return convertNumberSlice[float64, float32](v), nil
	case []uint8:
		return convertNumberSlice[uint8, float32](v), nil
	case []int8:
		return convertNumberSlice[int8, float32](v), nil
	case []int16:
		return convertNumberSlice[int16, float32](v), nil
	case []uint16:
		return convertNumberSlice[uint16, float32](v), nil
	case []int32:
		return convertNumberSlice[int32, float32](v), nil
	case []int64:
		return convertNumberSlice[int64, float32](v), nil
	case []int:
		return convertNumberSlice[int, float32](v), nil
	default:
		return nil, errors.Errorf("dont know how to convert tensor data of %T into a []float32", v)
	}
}
