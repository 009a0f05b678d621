package ml

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"
)

func TestTensorFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	in := tensor.New(tensor.WithShape(1, 5, 2), tensor.WithBacking([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))
	test.That(t, WriteTensorFile(path, in), test.ShouldBeNil)

	out, err := ReadTensorFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, []int(out.Shape()), test.ShouldResemble, []int{1, 5, 2})
	raw, err := RawDetectionTensorFromDense(out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, raw.At(ChannelConfidence, 1), test.ShouldEqual, float32(10))

	for name, body := range map[string]string{
		"bad_json.json": `{"shape": [2`,
		"mismatch.json": `{"shape": [1, 5, 3], "data": [1, 2]}`,
		"zero_dim.json": `{"shape": [0], "data": []}`,
	} {
		p := filepath.Join(dir, name)
		test.That(t, os.WriteFile(p, []byte(body), 0o644), test.ShouldBeNil)
		_, err := ReadTensorFile(p)
		test.That(t, err, test.ShouldNotBeNil)
	}

	flat := filepath.Join(dir, "flat.json")
	test.That(t, os.WriteFile(flat, []byte(`{"data": [0.5, 0.25]}`), 0o644), test.ShouldBeNil)
	out, err = ReadTensorFile(flat)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, []int(out.Shape()), test.ShouldResemble, []int{2})

	_, err = ReadTensorFile(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
