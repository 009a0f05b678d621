package inject

import (
	"context"

	"github.com/boardlens/boardlens/controller"
	"github.com/boardlens/boardlens/services/resolver"
)

// AssetResolver is an injected asset resolver.
type AssetResolver struct {
	controller.AssetResolver
	ResolveFunc func(
		ctx context.Context,
		sel resolver.SelectionContext,
		onProgress resolver.ProgressFunc,
	) (resolver.AssetRecord, error)
}

// Resolve calls the injected Resolve or the real version.
func (r *AssetResolver) Resolve(
	ctx context.Context,
	sel resolver.SelectionContext,
	onProgress resolver.ProgressFunc,
) (resolver.AssetRecord, error) {
	if r.ResolveFunc == nil {
		return r.AssetResolver.Resolve(ctx, sel, onProgress)
	}
	return r.ResolveFunc(ctx, sel, onProgress)
}
