package rimage

import (
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gorgonia.org/tensor"
)

func TestPrepareTensorInvalidInput(t *testing.T) {
	_, err := PrepareTensor(nil, 640, 640)
	test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)

	_, err = PrepareTensor(&PixelBuffer{}, 640, 640)
	test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)

	_, err = PrepareTensor(&PixelBuffer{Width: 2, Height: 2, Pix: make([]float32, 3)}, 640, 640)
	test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)

	_, err = PrepareTensor(NewPixelBuffer(2, 2), 0, 640)
	test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)

	_, err = PrepareTensor(NewPixelBuffer(-3, 2), 4, 4)
	test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)
}

func TestPrepareTensorFlipAndLayout(t *testing.T) {
	// 2x2 source: top row red, bottom row blue.
	buf := NewPixelBuffer(2, 2)
	buf.SetRGB(0, 0, 1, 0, 0)
	buf.SetRGB(1, 0, 1, 0, 0)
	buf.SetRGB(0, 1, 0, 0, 1)
	buf.SetRGB(1, 1, 0, 0, 1)

	out, err := PrepareTensor(buf, 2, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Shape(), test.ShouldResemble, tensor.Shape{1, 3, 2, 2})

	data := out.Data().([]float32)
	plane := 4
	// destination row 0 holds the source's last row (blue), row 1 holds red.
	test.That(t, data[0], test.ShouldEqual, float32(0))         // R at (0,0)
	test.That(t, data[2*plane+0], test.ShouldEqual, float32(1)) // B at (0,0)
	test.That(t, data[2], test.ShouldEqual, float32(1))         // R at (0,1)
	test.That(t, data[2*plane+2], test.ShouldEqual, float32(0)) // B at (0,1)
}

func TestPrepareTensorNormalizes(t *testing.T) {
	buf := NewPixelBuffer(1, 1)
	buf.SetRGB(0, 0, 1.5, -0.2, 0.25)
	out, err := PrepareTensor(buf, 3, 3)
	test.That(t, err, test.ShouldBeNil)
	for i, v := range out.Data().([]float32) {
		test.That(t, v, test.ShouldBeBetweenOrEqual, float32(0), float32(1))
		switch i / 9 {
		case 0:
			test.That(t, v, test.ShouldEqual, float32(1))
		case 1:
			test.That(t, v, test.ShouldEqual, float32(0))
		default:
			test.That(t, v, test.ShouldEqual, float32(0.25))
		}
	}
}

func TestNearestSourceStaysInBounds(t *testing.T) {
	sizes := []int{1, 2, 3, 7, 480, 640, 641, 1080, 1920}
	for _, src := range sizes {
		for _, dst := range sizes {
			for x := 0; x < dst; x++ {
				s := NearestSource(x, src, dst)
				if s < 0 || s >= src {
					t.Fatalf("source %d out of [0,%d) for dst %d/%d", s, src, x, dst)
				}
			}
		}
	}
	// upscaling repeats pixels, downscaling skips them
	test.That(t, NearestSource(3, 2, 4), test.ShouldEqual, 1)
	test.That(t, NearestSource(1, 1920, 640), test.ShouldEqual, 3)
}

func TestPrepareTensorAspectMismatch(t *testing.T) {
	for _, dims := range [][2]int{{640, 480}, {480, 640}, {1, 1000}, {1000, 1}, {33, 17}} {
		buf := NewPixelBuffer(dims[0], dims[1])
		out, err := PrepareTensor(buf, 64, 64)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Shape(), test.ShouldResemble, tensor.Shape{1, 3, 64, 64})
	}
}

func TestFromImageAndOrient(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 255, 0, 255})

	buf := FromImage(img)
	test.That(t, buf.Width, test.ShouldEqual, 2)
	test.That(t, buf.Height, test.ShouldEqual, 1)
	r, g, b := buf.RGB(0, 0)
	test.That(t, []float32{r, g, b}, test.ShouldResemble, []float32{1, 0, 0})

	rotated, err := Orient(img, 90)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rotated.Bounds().Dx(), test.ShouldEqual, 1)
	test.That(t, rotated.Bounds().Dy(), test.ShouldEqual, 2)
	// undoing a clockwise 90 turns the frame counter-clockwise: the right pixel (green) ends on top.
	_, gg, _, _ := rotated.At(0, 0).RGBA()
	test.That(t, gg, test.ShouldEqual, uint32(0xffff))

	same, err := Orient(img, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldEqual, image.Image(img))

	_, err = Orient(img, 45)
	test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)
}
