package controller

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/boardlens/boardlens/services/geofence"
	"github.com/boardlens/boardlens/services/resolver"
)

// Tick is the update loop step. It applies completed background work, then samples a frame if a
// scan is waiting for one. Detection only runs on every SkipFrames-th delivered frame.
func (c *Controller) Tick(ctx context.Context) {
	tasks := c.queue.drain()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, task := range tasks {
		task()
	}
	if c.state != StateSampling || c.current == nil {
		return
	}
	cyc := c.current

	frame, err := c.deps.Sampler.NextFrame(ctx)
	if err != nil {
		c.logger.Debugw("no frame", "cycle", cyc.id, "error", err)
		return
	}
	if frame == nil || frame.Image == nil {
		return
	}
	cyc.frames++
	if cyc.frames%c.skipFrames != 0 {
		return
	}
	cyc.frame = frame
	c.decodeLocked(ctx, cyc)
}

// post queues a result for cyc. It is dropped if cyc is no longer the running cycle by the time Tick
// applies it.
func (c *Controller) post(cyc *cycle, apply func()) {
	c.queue.post(func() {
		if c.current != cyc {
			c.logger.Debugw("dropping result of a finished cycle", "cycle", cyc.id)
			return
		}
		apply()
	})
}

func (c *Controller) decodeLocked(ctx context.Context, cyc *cycle) {
	c.transitionLocked(StateDecoding, messageScanning)
	res, err := c.deps.Detector(ctx, cyc.frame.Image)
	if err != nil {
		c.logger.Warnw("detection failed", "cycle", cyc.id, "error", err)
		c.finishLocked(OutcomeBoardNotFound, messageDetectError)
		return
	}
	if !res.Found {
		c.logger.Infow("no board in frame", "cycle", cyc.id, "confidence", res.Confidence)
		c.finishLocked(OutcomeBoardNotFound, messageBoardNotFound)
		return
	}
	cyc.detection = res
	c.logger.Infow("board detected", "cycle", cyc.id,
		"confidence", res.Confidence, "x", res.CenterX, "y", res.CenterY)
	c.gateCheckLocked(cyc)
}

func (c *Controller) gateCheckLocked(cyc *cycle) {
	c.transitionLocked(StateGateCheck, messageVerifying)
	decision, pos, ok := c.deps.Gate.Decision()
	if !ok || !decision.Inside {
		c.logger.Infow("outside every zone", "cycle", cyc.id,
			"has_fix", ok, "zone", decision.ZoneName, "distance_m", decision.DistanceMeters)
		c.finishLocked(OutcomeAccessDenied, messageAccessDenied)
		return
	}
	cyc.position = pos

	verifier := c.deps.Verifier
	c.startLocked(cyc, func() {
		v, err := verifier.Verify(cyc.ctx, pos)
		c.post(cyc, func() { c.applyVerificationLocked(cyc, v, err) })
	})
}

// startLocked runs work in the background. The cycle is cancelled if the controller is closing.
func (c *Controller) startLocked(cyc *cycle, work func()) {
	if !c.workers.AddWorkers(func(context.Context) { work() }) {
		c.logger.Debugw("controller closing, abandoning cycle", "cycle", cyc.id)
		c.finishLocked(OutcomeCancelled, messageCancelled)
	}
}

func (c *Controller) applyVerificationLocked(cyc *cycle, v geofence.Verification, err error) {
	if err != nil {
		c.logger.Warnw("location verification failed", "cycle", cyc.id, "error", err)
		if errors.Is(err, geofence.ErrVerifyUnavailable) {
			c.finishLocked(OutcomeNetworkError, messageNetworkError)
			return
		}
		c.finishLocked(OutcomeAccessDenied, messageVerifyFailed)
		return
	}
	if !v.Authorized {
		c.logger.Infow("location not authorized", "cycle", cyc.id)
		c.finishLocked(OutcomeAccessDenied, messageAccessDenied)
		return
	}
	c.logger.Infow("location authorized", "cycle", cyc.id, "zone", v.ZoneName)
	c.resolveLocked(cyc)
}

func (c *Controller) resolveLocked(cyc *cycle) {
	c.transitionLocked(StateResolving, messageSearching)
	res := c.deps.Resolver
	sel := cyc.selection
	c.startLocked(cyc, func() {
		asset, err := res.Resolve(cyc.ctx, sel, func(p float64) {
			c.post(cyc, func() {
				c.setStatusLocked(Status{State: StateResolving, Message: downloadingMessage(p), Progress: p})
			})
		})
		c.post(cyc, func() { c.applyResolutionLocked(cyc, asset, err) })
	})
}

func (c *Controller) applyResolutionLocked(cyc *cycle, asset resolver.AssetRecord, err error) {
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		c.finishLocked(OutcomeCancelled, messageCancelled)
		return
	case errors.Is(err, resolver.ErrNetwork):
		c.logger.Warnw("could not reach the content server", "cycle", cyc.id, "error", err)
		c.finishLocked(OutcomeNetworkError, messageNetworkError)
		return
	case err != nil:
		c.logger.Warnw("could not resolve content", "cycle", cyc.id, "error", err)
		c.finishLocked(OutcomeResolveError, messageResolveError)
		return
	case !asset.Found:
		c.logger.Infow("no content for selection", "cycle", cyc.id, "subject", cyc.selection.Subject)
		c.finishLocked(OutcomeContentNotFound, messageContentNotFound)
		return
	}
	c.placeLocked(cyc, asset)
}

func (c *Controller) placeLocked(cyc *cycle, asset resolver.AssetRecord) {
	c.transitionLocked(StatePlacing, placedMessage(asset.DisplayName))
	screen := r2.Point{X: cyc.detection.CenterX, Y: cyc.detection.CenterY}
	pose := c.deps.Placement.Locate(cyc.ctx, screen, cyc.frame.CameraPose)

	kept := asset
	kept.Payload = nil
	if c.deps.Placer == nil {
		c.lastAsset = &kept
		c.finishLocked(OutcomeReady, "Content ready: "+asset.DisplayName)
		return
	}
	if c.placed {
		if err := c.deps.Placer.Remove(cyc.ctx); err != nil {
			c.logger.Warnw("could not remove previous content", "cycle", cyc.id, "error", err)
		}
		c.placed = false
	}
	if err := c.deps.Placer.Place(cyc.ctx, asset, pose); err != nil {
		c.logger.Warnw("could not place content", "cycle", cyc.id, "error", err)
		c.finishLocked(OutcomeResolveError, messageResolveError)
		return
	}
	c.placed = true
	c.lastAsset = &kept
	c.logger.Infow("content placed", "cycle", cyc.id, "name", asset.DisplayName, "pose", pose.String())
	c.finishLocked(OutcomePlaced, placedMessage(asset.DisplayName))
}
