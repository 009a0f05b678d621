package inject

import (
	"context"

	"github.com/boardlens/boardlens/controller"
)

// DocumentOpener is an injected document viewer.
type DocumentOpener struct {
	controller.DocumentOpener
	OpenFunc func(ctx context.Context, link string) error
}

// Open calls the injected Open or the real version.
func (d *DocumentOpener) Open(ctx context.Context, link string) error {
	if d.OpenFunc == nil {
		return d.DocumentOpener.Open(ctx, link)
	}
	return d.OpenFunc(ctx, link)
}
