package objectdetection

import (
	"context"

	"github.com/pkg/errors"

	"github.com/boardlens/boardlens/logging"
	"github.com/boardlens/boardlens/ml"
	"github.com/boardlens/boardlens/rimage"
	"github.com/boardlens/boardlens/services/mlmodel"
)

// DetectorConfig describes how to drive a model service as a blackboard detector.
type DetectorConfig struct {
	Decoder DecoderConfig
	// InputName and OutputName default to the export's "images" and "output0".
	InputName  string
	OutputName string
	// InputWidth and InputHeight override the size read from the model metadata.
	InputWidth  int
	InputHeight int
	// ConfidenceChannel defaults to ml.ChannelConfidence.
	ConfidenceChannel int
	SwapXY            bool
	FlipX             bool
	FlipY             bool
}

// Decoder decodes model outputs with a fixed configuration.
type Decoder struct {
	cfg               DecoderConfig
	anchors           int
	confidenceChannel int
	outputName        string
	logger            logging.Logger
}

// NewDecoder returns a decoder that expects anchors candidates per output.
func NewDecoder(cfg DecoderConfig, anchors, confidenceChannel int, outputName string, logger logging.Logger) *Decoder {
	return &Decoder{
		cfg:               cfg,
		anchors:           anchors,
		confidenceChannel: confidenceChannel,
		outputName:        outputName,
		logger:            logger,
	}
}

// Decode picks the detector output out of a set of tensors and decodes it.
func (d *Decoder) Decode(out ml.Tensors) (DetectionResult, error) {
	dense, err := mlmodel.SelectOutput(out, d.outputName)
	if err != nil {
		return DetectionResult{}, err
	}
	raw, err := ml.RawDetectionTensorFromDense(dense)
	if err != nil {
		return DetectionResult{}, err
	}
	anchors := d.anchors
	if anchors <= 0 {
		anchors = raw.Anchors()
	}
	res, err := Decode(raw, anchors, d.confidenceChannel, d.cfg)
	if err != nil {
		return DetectionResult{}, err
	}
	d.logger.Debugw("decoded detector output", "found", res.Found, "confidence", res.Confidence, "anchor", res.BestIndex)
	return res, nil
}

// NewModelDetector reads the model metadata once and returns a Detector that prepares each frame,
// runs inference and decodes the output.
func NewModelDetector(
	ctx context.Context,
	svc mlmodel.Service,
	cfg DetectorConfig,
	logger logging.Logger,
) (Detector, error) {
	if svc == nil {
		return nil, errors.New("model service cannot be nil")
	}
	md, err := svc.Metadata(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not get model metadata")
	}

	width, height := cfg.InputWidth, cfg.InputHeight
	if width <= 0 || height <= 0 {
		width, height, err = md.InputSize()
		if err != nil {
			logger.Warnw("falling back to the default model size", "error", err)
			width, height = rimage.DefaultModelSize, rimage.DefaultModelSize
		}
	}
	anchors := 0
	if _, a, err := md.OutputChannelsAndAnchors(); err == nil && a > 0 {
		anchors = a
	}

	inputName := cfg.InputName
	if inputName == "" {
		inputName = mlmodel.DefaultInputName
		if len(md.Inputs) > 0 && md.Inputs[0].Name != "" {
			inputName = md.Inputs[0].Name
		}
	}
	outputName := cfg.OutputName
	if outputName == "" {
		outputName = mlmodel.DefaultOutputName
	}
	confChannel := cfg.ConfidenceChannel
	if confChannel == 0 {
		confChannel = ml.ChannelConfidence
	}
	decCfg := cfg.Decoder
	if decCfg.ModelSize <= 0 {
		decCfg.ModelSize = width
	}

	dec := NewDecoder(decCfg, anchors, confChannel, outputName, logger)
	logger.Infow("model detector ready",
		"model", md.ModelName, "input", inputName, "width", width, "height", height, "anchors", anchors,
		"threshold", decCfg.ConfidenceThreshold)

	det := func(ctx context.Context, frame *rimage.PixelBuffer) (DetectionResult, error) {
		input, err := rimage.PrepareTensor(frame, width, height)
		if err != nil {
			return DetectionResult{}, err
		}
		out, err := svc.Infer(ctx, ml.Tensors{inputName: input})
		if err != nil {
			return DetectionResult{}, errors.Wrap(err, "inference failed")
		}
		return dec.Decode(out)
	}
	if !cfg.SwapXY && !cfg.FlipX && !cfg.FlipY {
		return det, nil
	}
	return Build(det, NewAxisAdjuster(cfg.SwapXY, cfg.FlipX, cfg.FlipY))
}
