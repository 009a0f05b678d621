package mlmodel

import (
	"context"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"

	"github.com/boardlens/boardlens/ml"
)

func TestReplayService(t *testing.T) {
	_, err := NewReplayService(nil, MLMetadata{})
	test.That(t, err, test.ShouldNotBeNil)

	out := tensor.New(tensor.WithShape(1, 5, 3), tensor.WithBacking(make([]float32, 15)))
	md := MLMetadata{Inputs: DetectorMetadata(5).Inputs}
	svc, err := NewReplayService(ml.Tensors{"output0": out}, md)
	test.That(t, err, test.ShouldBeNil)

	got, err := svc.Metadata(context.Background())
	test.That(t, err, test.ShouldBeNil)
	c, a, err := got.OutputChannelsAndAnchors()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldEqual, 5)
	test.That(t, a, test.ShouldEqual, 3)

	_, err = svc.Infer(context.Background(), ml.Tensors{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, DefaultInputName)

	input := tensor.New(tensor.WithShape(1, 3, 2, 2), tensor.WithBacking(make([]float32, 12)))
	res, err := svc.Infer(context.Background(), ml.Tensors{DefaultInputName: input})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res["output0"], test.ShouldEqual, out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Infer(ctx, ml.Tensors{DefaultInputName: input})
	test.That(t, err, test.ShouldBeError, context.Canceled)
}
