package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/boardlens/boardlens/config"
	"github.com/boardlens/boardlens/controller"
	"github.com/boardlens/boardlens/logging"
	"github.com/boardlens/boardlens/ml"
	"github.com/boardlens/boardlens/rimage"
	"github.com/boardlens/boardlens/services/geofence"
	"github.com/boardlens/boardlens/services/mlmodel"
	"github.com/boardlens/boardlens/services/placement"
	"github.com/boardlens/boardlens/services/resolver"
	"github.com/boardlens/boardlens/spatialmath"
	"github.com/boardlens/boardlens/syllabus"
	"github.com/boardlens/boardlens/vision/objectdetection"
)

const scanTickInterval = 10 * time.Millisecond

// stillSampler delivers the same frame on every tick.
type stillSampler struct {
	frame *controller.Frame
}

func (s stillSampler) NextFrame(ctx context.Context) (*controller.Frame, error) {
	return s.frame, nil
}

// fixedLocation reports the same fix on every poll.
type fixedLocation struct {
	pos geofence.Position
}

func (f fixedLocation) Position(ctx context.Context) (geofence.Position, error) {
	return f.pos, nil
}

// fileExporter "places" content by writing the model to a file.
type fileExporter struct {
	path   string
	logger logging.Logger
}

func (e fileExporter) Place(ctx context.Context, asset resolver.AssetRecord, pose spatialmath.Pose) error {
	if _, err := writeAsset(e.path, bytes.NewReader(asset.Payload)); err != nil {
		return err
	}
	e.logger.Infow("exported content", "path", e.path, "bytes", len(asset.Payload), "pose", pose.String())
	return nil
}

func (e fileExporter) Remove(ctx context.Context) error {
	return nil
}

// newReplayDetector builds the configured detector over a service that replays a recorded output.
func newReplayDetector(
	ctx context.Context, cfg *config.Config, tensorPath string, logger logging.Logger,
) (objectdetection.Detector, error) {
	output, err := ml.ReadTensorFile(tensorPath)
	if err != nil {
		return nil, err
	}
	detCfg := cfg.Detector.ObjectDetection()
	outputName := detCfg.OutputName
	if outputName == "" {
		outputName = mlmodel.DefaultOutputName
	}
	size := cfg.Detector.ModelSize
	svc, err := mlmodel.NewReplayService(ml.Tensors{outputName: output}, mlmodel.MLMetadata{
		ModelName: "replay",
		ModelType: "object_detector",
		Inputs: []mlmodel.TensorInfo{{
			Name:     detCfg.InputName,
			DataType: "float32",
			Shape:    []int{1, 3, size, size},
		}},
	})
	if err != nil {
		return nil, err
	}
	return objectdetection.NewModelDetector(ctx, svc, detCfg, logger.Sublogger("detector"))
}

// ScanAction is the corresponding Action for 'scan'. It wires a controller exactly as a device
// would, with the camera replaced by an image file and the engine by a recorded output.
func ScanAction(c *cli.Context) (err error) {
	ctx := c.Context
	logger := newLogger(c)
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}

	image, err := rimage.ReadFrameFromFile(c.String(preprocessFlagImage), cfg.Detector.CameraRotationDegrees)
	if err != nil {
		return err
	}
	detector, err := newReplayDetector(ctx, cfg, c.String(decodeFlagTensor), logger)
	if err != nil {
		return err
	}

	zones, closeZones, err := zoneSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, closeZones(ctx))
	}()
	gate := geofence.NewGate(nil, logger.Sublogger("gate"))
	pos := geofence.NewPosition(c.Float64(geofenceFlagLat), c.Float64(geofenceFlagLon))
	tracker := geofence.NewTracker(fixedLocation{pos: pos}, gate, cfg.Geofence.Interval(),
		logger.Sublogger("tracker"), geofence.WithZoneSource(zones))
	if err := tracker.Start(ctx); err != nil {
		return err
	}
	defer tracker.Stop()

	verifier, err := newVerifier(cfg, gate, logger)
	if err != nil {
		return err
	}
	res, err := newResolver(cfg, logger.Sublogger("resolver"))
	if err != nil {
		return err
	}

	deps := controller.Dependencies{
		Sampler:   stillSampler{frame: &controller.Frame{Image: image, CameraPose: spatialmath.NewZeroPose()}},
		Detector:  detector,
		Gate:      gate,
		Verifier:  verifier,
		Resolver:  res,
		Placement: placement.NewCalculator(nil, cfg.Placement, logger.Sublogger("placement")),
	}
	if out := c.String(outputFlagOut); out != "" {
		deps.Placer = fileExporter{path: out, logger: logger}
	}
	if cfg.Controller.ValidateSelection {
		deps.Catalog = syllabus.Default()
	}
	lastMessage := ""
	deps.Status = controller.StatusFunc(func(s controller.Status) {
		if s.Message != "" && s.Message != lastMessage {
			lastMessage = s.Message
			printf(c.App.Writer, "%s", s.Message)
		}
	})

	ctrl, err := controller.New(deps, controller.Config{SkipFrames: 1}, logger.Sublogger("controller"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, ctrl.Close(ctx))
	}()

	if err := ctrl.TriggerScan(selectionFromFlags(c)); err != nil {
		return err
	}
	for ctrl.State() != controller.StateIdle {
		if !goutils.SelectContextOrWait(ctx, scanTickInterval) {
			ctrl.Cancel()
			return ctx.Err()
		}
		ctrl.Tick(ctx)
	}

	status := ctrl.Status()
	switch status.Outcome {
	case controller.OutcomePlaced, controller.OutcomeReady:
		if asset, ok := ctrl.LastAsset(); ok && asset.DocumentURL != nil {
			printf(c.App.Writer, "document: %s", *asset.DocumentURL)
		}
		return nil
	default:
		return errors.Errorf("scan did not complete: %s", status.Message)
	}
}
