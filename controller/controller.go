// Package controller runs the scan cycle: sample a frame, detect the board, check the geofence,
// resolve content and place it. All state changes happen inside Tick; network work runs in the
// background and hands its results back through a queue that Tick drains.
package controller

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/boardlens/boardlens/logging"
	"github.com/boardlens/boardlens/rimage"
	"github.com/boardlens/boardlens/services/geofence"
	"github.com/boardlens/boardlens/services/placement"
	"github.com/boardlens/boardlens/services/resolver"
	"github.com/boardlens/boardlens/spatialmath"
	"github.com/boardlens/boardlens/syllabus"
	"github.com/boardlens/boardlens/utils"
	"github.com/boardlens/boardlens/vision/objectdetection"
)

// ErrBusy is returned when a scan is triggered while another is running.
var ErrBusy = errors.New("a scan is already in progress")

// DefaultSkipFrames is how many delivered frames pass between detections.
const DefaultSkipFrames = 15

// Frame is a camera image plus the camera pose it was taken from.
type Frame struct {
	Image      *rimage.PixelBuffer
	CameraPose spatialmath.Pose
}

// A FrameSampler delivers the latest camera frame. It returns nil when no new frame is available.
type FrameSampler interface {
	NextFrame(ctx context.Context) (*Frame, error)
}

// A Placer shows downloaded content in the scene. At most one asset is shown at a time.
type Placer interface {
	Place(ctx context.Context, asset resolver.AssetRecord, pose spatialmath.Pose) error
	Remove(ctx context.Context) error
}

// A DocumentOpener hands a document link to an external viewer.
type DocumentOpener interface {
	Open(ctx context.Context, link string) error
}

// An AssetResolver finds and downloads content for a selection.
type AssetResolver interface {
	Resolve(ctx context.Context, sel resolver.SelectionContext, onProgress resolver.ProgressFunc) (resolver.AssetRecord, error)
}

// Dependencies are the collaborators a Controller drives. Placer, Status, Documents and Catalog are
// optional.
type Dependencies struct {
	Sampler   FrameSampler
	Detector  objectdetection.Detector
	Gate      *geofence.Gate
	Verifier  geofence.Verifier
	Resolver  AssetResolver
	Placement *placement.Calculator
	Placer    Placer
	Status    StatusSink
	Documents DocumentOpener
	Catalog   *syllabus.Catalog
}

// Config tunes the scan loop.
type Config struct {
	SkipFrames int
}

// cycle is the state owned by one scan from trigger to Idle.
type cycle struct {
	id        string
	selection resolver.SelectionContext
	ctx       context.Context
	cancel    context.CancelFunc
	frames    int
	frame     *Frame
	detection objectdetection.DetectionResult
	position  geofence.Position
}

// Controller is the scan state machine.
type Controller struct {
	deps       Dependencies
	skipFrames int
	logger     logging.Logger
	queue      taskQueue
	workers    utils.StoppableWorkers

	mu        sync.Mutex
	state     State
	status    Status
	current   *cycle
	placed    bool
	lastAsset *resolver.AssetRecord
}

// New returns an idle controller.
func New(deps Dependencies, cfg Config, logger logging.Logger) (*Controller, error) {
	switch {
	case deps.Sampler == nil:
		return nil, errors.New("controller needs a frame sampler")
	case deps.Detector == nil:
		return nil, errors.New("controller needs a detector")
	case deps.Gate == nil:
		return nil, errors.New("controller needs a geofence gate")
	case deps.Verifier == nil:
		return nil, errors.New("controller needs a geofence verifier")
	case deps.Resolver == nil:
		return nil, errors.New("controller needs an asset resolver")
	}
	if deps.Placement == nil {
		deps.Placement = placement.NewCalculator(nil, placement.DefaultConfig(), logger)
	}
	if deps.Status == nil {
		deps.Status = StatusFunc(func(Status) {})
	}
	skip := cfg.SkipFrames
	if skip <= 0 {
		skip = DefaultSkipFrames
	}
	return &Controller{
		deps:       deps,
		skipFrames: skip,
		logger:     logger,
		workers:    utils.NewStoppableWorkers(),
		status:     Status{State: StateIdle},
	}, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the last status shown.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastAsset returns the record of the last successful cycle. Its payload is not kept.
func (c *Controller) LastAsset() (resolver.AssetRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastAsset == nil {
		return resolver.AssetRecord{}, false
	}
	return *c.lastAsset, true
}

// TriggerScan starts a cycle for sel. It returns ErrBusy unless the controller is idle.
func (c *Controller) TriggerScan(sel resolver.SelectionContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrBusy
	}
	if c.deps.Catalog != nil {
		if err := c.deps.Catalog.Validate(sel); err != nil {
			c.setStatusLocked(Status{State: StateIdle, Outcome: OutcomeInvalidSelection, Message: err.Error()})
			return err
		}
	}
	ctx, cancel := context.WithCancel(c.workers.Context())
	c.current = &cycle{
		id:        uuid.NewString(),
		selection: sel,
		ctx:       ctx,
		cancel:    cancel,
	}
	c.logger.Infow("scan triggered", "cycle", c.current.id,
		"subject", sel.Subject, "branch", sel.Branch, "term", sel.Term)
	c.transitionLocked(StateSampling, messageScanning)
	return nil
}

// Cancel abandons the running cycle. Results that arrive for it later are dropped.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return
	}
	c.logger.Infow("scan cancelled", "cycle", c.current.id, "state", c.state.String())
	c.finishLocked(OutcomeCancelled, messageCancelled)
}

// OpenDocument opens the document of the last placed content.
func (c *Controller) OpenDocument(ctx context.Context) error {
	asset, ok := c.LastAsset()
	if !ok || asset.DocumentURL == nil {
		return errors.New("no document available")
	}
	if c.deps.Documents == nil {
		return errors.New("no document viewer configured")
	}
	return c.deps.Documents.Open(ctx, *asset.DocumentURL)
}

// Close cancels any running cycle and waits for background work to stop.
func (c *Controller) Close(ctx context.Context) error {
	c.Cancel()
	c.workers.Stop()
	return nil
}

func (c *Controller) transitionLocked(state State, message string) {
	c.state = state
	c.setStatusLocked(Status{State: state, Message: message})
}

// finishLocked ends the current cycle and returns to Idle with a final status.
func (c *Controller) finishLocked(outcome Outcome, message string) {
	id := ""
	if c.current != nil {
		id = c.current.id
		c.current.cancel()
		c.current = nil
	}
	c.state = StateIdle
	c.setStatusLocked(Status{State: StateIdle, Outcome: outcome, Message: message, CycleID: id})
}

func (c *Controller) setStatusLocked(s Status) {
	if s.CycleID == "" && c.current != nil {
		s.CycleID = c.current.id
	}
	c.status = s
	c.deps.Status.SetStatus(s)
}
