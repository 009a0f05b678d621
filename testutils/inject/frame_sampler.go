package inject

import (
	"context"

	"github.com/boardlens/boardlens/controller"
)

// FrameSampler is an injected frame sampler.
type FrameSampler struct {
	controller.FrameSampler
	NextFrameFunc func(ctx context.Context) (*controller.Frame, error)
}

// NextFrame calls the injected NextFrame or the real version.
func (s *FrameSampler) NextFrame(ctx context.Context) (*controller.Frame, error) {
	if s.NextFrameFunc == nil {
		return s.FrameSampler.NextFrame(ctx)
	}
	return s.NextFrameFunc(ctx)
}
