package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	goutils "go.viam.com/utils"

	"github.com/boardlens/boardlens/config"
	"github.com/boardlens/boardlens/logging"
	"github.com/boardlens/boardlens/ml"
	"github.com/boardlens/boardlens/rimage"
	"github.com/boardlens/boardlens/services/geofence"
	"github.com/boardlens/boardlens/services/resolver"
	"github.com/boardlens/boardlens/syllabus"
	"github.com/boardlens/boardlens/utils"
	"github.com/boardlens/boardlens/vision/objectdetection"
)

func newLogger(c *cli.Context) logging.Logger {
	level := zapcore.InfoLevel
	if c.Bool(generalFlagDebug) {
		level = zapcore.DebugLevel
	}
	return logging.NewStderrLogger("boardlens", level)
}

func readConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg, err := config.Read(c.Context, c.String(generalFlagConfig), logger)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read config %q", c.String(generalFlagConfig))
	}
	return cfg, nil
}

func selectionFromFlags(c *cli.Context) resolver.SelectionContext {
	return resolver.SelectionContext{
		Subject: strings.TrimSpace(c.String(selectionFlagSubject)),
		Branch:  strings.TrimSpace(c.String(selectionFlagBranch)),
		Term:    strings.TrimSpace(c.String(selectionFlagTerm)),
	}
}

// zoneSource returns the configured zones plus the zone directory when one is configured. The
// returned close func releases the directory connection.
func zoneSource(
	ctx context.Context, cfg *config.Config, logger logging.Logger,
) (geofence.ZoneSource, func(context.Context) error, error) {
	static, err := cfg.Geofence.StaticZones()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Mongo == nil {
		return static, func(context.Context) error { return nil }, nil
	}
	store, err := geofence.DialMongoZoneStore(
		ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, logger.Sublogger("zones"))
	if err != nil {
		return nil, nil, err
	}
	return geofence.CombinedZones{static, store}, store.Close, nil
}

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Resolver.Timeout()}
}

func newVerifier(cfg *config.Config, gate *geofence.Gate, logger logging.Logger) (geofence.Verifier, error) {
	if cfg.Geofence.OfflineVerification {
		return geofence.LocalVerifier{Gate: gate}, nil
	}
	remote, err := geofence.NewRemoteVerifier(cfg.Geofence.VerifyEndpoint, newHTTPClient(cfg), logger.Sublogger("verify"))
	if err != nil {
		return nil, err
	}
	return remote, nil
}

func newResolver(cfg *config.Config, logger logging.Logger) (*resolver.Resolver, error) {
	httpClient := newHTTPClient(cfg)
	client, err := resolver.NewClient(cfg.Resolver.Endpoint, httpClient, logger.Sublogger("lookup"))
	if err != nil {
		return nil, err
	}
	downloader := resolver.NewDownloader(httpClient, cfg.Resolver.MaxAssetBytes, logger.Sublogger("download"))
	return resolver.NewResolver(client, downloader, func(s resolver.State) {
		logger.Debugw("resolver state", "state", s.String())
	}, logger), nil
}

// DecodeAction is the corresponding Action for 'decode'.
func DecodeAction(c *cli.Context) error {
	logger := newLogger(c)
	decCfg := objectdetection.DefaultDecoderConfig()
	var adjust objectdetection.Postprocessor
	if c.IsSet(generalFlagConfig) {
		cfg, err := readConfig(c, logger)
		if err != nil {
			return err
		}
		det := cfg.Detector.ObjectDetection()
		decCfg = det.Decoder
		if det.SwapXY || det.FlipX || det.FlipY {
			adjust = objectdetection.NewAxisAdjuster(det.SwapXY, det.FlipX, det.FlipY)
		}
	}
	if c.IsSet(decodeFlagThreshold) {
		decCfg.ConfidenceThreshold = c.Float64(decodeFlagThreshold)
	}
	if c.Bool(decodeFlagNormalized) {
		decCfg.CoordinateSpace = objectdetection.CoordinatesNormalized
	}
	if c.IsSet(decodeFlagModelSize) {
		decCfg.ModelSize = c.Int(decodeFlagModelSize)
	}

	dense, err := ml.ReadTensorFile(c.String(decodeFlagTensor))
	if err != nil {
		return err
	}
	raw, err := ml.RawDetectionTensorFromDense(dense)
	if err != nil {
		return err
	}
	res, err := objectdetection.Decode(raw, raw.Anchors(), ml.ChannelConfidence, decCfg)
	if err != nil {
		return err
	}
	if adjust != nil && res.Found {
		res = adjust(res)
	}
	logger.Debugw("decoded", "channels", raw.Channels(), "anchors", raw.Anchors(), "result", res.String())

	if !res.Found {
		printf(c.App.Writer, "no board found (best confidence %.3f at anchor %d, threshold %.2f)",
			res.Confidence, res.BestIndex, decCfg.ConfidenceThreshold)
		return nil
	}
	printf(c.App.Writer, "board found at (%.3f, %.3f) with confidence %.3f, anchor %d",
		res.CenterX, res.CenterY, res.Confidence, res.BestIndex)
	return nil
}

// PreprocessAction is the corresponding Action for 'preprocess'.
func PreprocessAction(c *cli.Context) error {
	buf, err := rimage.ReadFrameFromFile(c.String(preprocessFlagImage), c.Int(preprocessFlagRotation))
	if err != nil {
		return err
	}
	size := c.Int(preprocessFlagSize)
	input, err := rimage.PrepareTensor(buf, size, size)
	if err != nil {
		return err
	}
	if err := ml.WriteTensorFile(c.String(outputFlagOut), input); err != nil {
		return errors.Wrap(err, "could not write tensor")
	}
	printf(c.App.Writer, "wrote %v tensor from %dx%d frame to %s", input.Shape(), buf.Width, buf.Height, c.String(outputFlagOut))
	return nil
}

// GeofenceAction is the corresponding Action for 'geofence'.
func GeofenceAction(c *cli.Context) (err error) {
	logger := newLogger(c)
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	src, closeZones, err := zoneSource(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, closeZones(c.Context))
	}()
	zones, err := src.Zones(c.Context)
	if err != nil {
		return err
	}
	if len(zones) == 0 {
		warningf(c.App.ErrWriter, "no zones configured")
	}

	pos := geofence.NewPosition(c.Float64(geofenceFlagLat), c.Float64(geofenceFlagLon))
	decision := geofence.Evaluate(pos, zones)
	switch {
	case decision.Inside:
		printf(c.App.Writer, "inside %s (%.1f m from its center)", decision.ZoneName, decision.DistanceMeters)
	case decision.ZoneName != "":
		printf(c.App.Writer, "outside every campus; nearest is %s at %.1f m", decision.ZoneName, decision.DistanceMeters)
	default:
		printf(c.App.Writer, "outside every campus")
	}

	if !c.Bool(geofenceFlagVerify) {
		return nil
	}
	gate := geofence.NewGate(zones, logger)
	gate.Update(pos)
	verifier, err := newVerifier(cfg, gate, logger)
	if err != nil {
		return err
	}
	v, err := verifier.Verify(c.Context, pos)
	if err != nil {
		return errors.Wrap(err, "could not verify location")
	}
	if v.Authorized {
		printf(c.App.Writer, "verified: authorized at %s", v.ZoneName)
	} else {
		printf(c.App.Writer, "verified: not authorized")
	}
	return nil
}

// ListZonesAction is the corresponding Action for 'zones list'.
func ListZonesAction(c *cli.Context) (err error) {
	logger := newLogger(c)
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	src, closeZones, err := zoneSource(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, closeZones(c.Context))
	}()
	zones, err := src.Zones(c.Context)
	if err != nil {
		return err
	}
	for _, z := range zones {
		printf(c.App.Writer, "%s\t%s\t%.0f m", z.Name, geofence.FormatCoordinate(z.Center), z.Radius())
	}
	return nil
}

// AddZoneAction is the corresponding Action for 'zones add'.
func AddZoneAction(c *cli.Context) (err error) {
	logger := newLogger(c)
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	if cfg.Mongo == nil {
		return errors.New("adding zones needs a mongo section in the config")
	}
	center, err := geofence.ParseCoordinate(c.String(zoneFlagCoordinate))
	if err != nil {
		return err
	}
	store, err := geofence.DialMongoZoneStore(
		c.Context, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, logger.Sublogger("zones"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, store.Close(c.Context))
	}()
	zone := geofence.Zone{Name: c.String(zoneFlagName), Center: center, RadiusMeters: c.Float64(zoneFlagRadius)}
	if err := store.AddZone(c.Context, zone); err != nil {
		return err
	}
	printf(c.App.Writer, "added %s at %s", zone.Name, geofence.FormatCoordinate(center))
	return nil
}

// ResolveAction is the corresponding Action for 'resolve'.
func ResolveAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	sel := selectionFromFlags(c)
	if cfg.Controller.ValidateSelection {
		if err := syllabus.Default().Validate(sel); err != nil {
			return err
		}
	}
	res, err := newResolver(cfg, logger)
	if err != nil {
		return err
	}

	lastTenth := -1
	asset, err := res.Resolve(c.Context, sel, func(p float64) {
		if tenth := int(p * 10); tenth > lastTenth {
			lastTenth = tenth
			printf(c.App.Writer, "downloading... %d%%", tenth*10)
		}
	})
	if err != nil {
		return err
	}
	if !asset.Found {
		return errors.Errorf("no content found for %s (%s %s)", sel.Subject, sel.Branch, sel.Term)
	}
	printf(c.App.Writer, "found %s", asset.DisplayName)
	if asset.ModelURL != nil {
		printf(c.App.Writer, "model: %s", *asset.ModelURL)
	}
	if asset.DocumentURL != nil {
		printf(c.App.Writer, "document: %s", *asset.DocumentURL)
	}
	out := c.String(outputFlagOut)
	if out == "" {
		printf(c.App.Writer, "downloaded %d bytes", len(asset.Payload))
		return nil
	}
	n, err := writeAsset(out, bytes.NewReader(asset.Payload))
	if err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %d bytes to %s", n, out)
	return nil
}

// writeAsset copies a model to path. A failed write leaves no partial file behind.
func writeAsset(path string, r io.Reader) (int64, error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "could not save model")
	}
	guard := utils.NewGuard(func() {
		goutils.UncheckedError(f.Close())
		goutils.UncheckedError(os.Remove(path))
	})
	defer guard.OnFail()

	n, err := io.Copy(f, r)
	if err != nil {
		return n, errors.Wrap(err, "could not save model")
	}
	if err := f.Close(); err != nil {
		return n, errors.Wrap(err, "could not save model")
	}
	guard.Success()
	return n, nil
}

// SubjectsAction is the corresponding Action for 'subjects'. With no flags it lists branches, with a
// branch it lists its terms, and with both it lists the subjects.
func SubjectsAction(c *cli.Context) error {
	catalog := syllabus.Default()
	branch, term := c.String(selectionFlagBranch), c.String(selectionFlagTerm)
	switch {
	case branch == "" && term != "":
		return errors.New("--term needs --branch")
	case branch == "":
		for _, b := range catalog.Branches() {
			printf(c.App.Writer, "%s", b)
		}
	case term == "":
		terms := catalog.Terms(branch)
		if len(terms) == 0 {
			return errors.Wrapf(syllabus.ErrUnknownBranch, "%q", branch)
		}
		for _, t := range terms {
			printf(c.App.Writer, "%s", t)
		}
	default:
		subjects, ok := catalog.Subjects(branch, term)
		if !ok {
			return errors.Wrapf(syllabus.ErrUnknownTerm, "%q for branch %q", term, branch)
		}
		for _, s := range subjects {
			printf(c.App.Writer, "%s", s)
		}
	}
	return nil
}
