// Package config defines the boardlens configuration document.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/boardlens/boardlens/rimage"
	"github.com/boardlens/boardlens/services/geofence"
	"github.com/boardlens/boardlens/services/mlmodel"
	"github.com/boardlens/boardlens/services/placement"
	"github.com/boardlens/boardlens/utils"
	"github.com/boardlens/boardlens/vision/objectdetection"
)

// Coordinate space names accepted in the detector section.
const (
	CoordinateSpaceModelPixels = "model_pixels"
	CoordinateSpaceNormalized  = "normalized"
)

// DefaultSkipFrames is how many delivered frames pass between inference runs.
const DefaultSkipFrames = 15

// Config is the full boardlens configuration.
type Config struct {
	ConfigFilePath string `json:"-"`

	Detector   DetectorConfig   `json:"detector"`
	Geofence   GeofenceConfig   `json:"geofence"`
	Resolver   ResolverConfig   `json:"resolver"`
	Placement  placement.Config `json:"placement"`
	Controller ControllerConfig `json:"controller"`
	Mongo      *MongoConfig     `json:"mongo,omitempty"`
}

// DetectorConfig configures preprocessing and decoding.
type DetectorConfig struct {
	// ConfidenceThreshold is unset when the document omits it; an explicit 0 is kept.
	ConfidenceThreshold   *float64 `json:"confidence_threshold,omitempty"`
	CoordinateSpace       string   `json:"coordinate_space,omitempty"`
	ModelSize             int      `json:"model_size,omitempty"`
	InputName             string   `json:"input_name,omitempty"`
	OutputName            string   `json:"output_name,omitempty"`
	SwapXY                bool     `json:"swap_xy,omitempty"`
	FlipX                 bool     `json:"flip_x,omitempty"`
	FlipY                 bool     `json:"flip_y,omitempty"`
	CameraRotationDegrees int      `json:"camera_rotation_degrees,omitempty"`
}

// ZoneConfig is one statically configured zone.
type ZoneConfig struct {
	Name         string  `json:"name"`
	Coordinate   string  `json:"coordinate"`
	RadiusMeters float64 `json:"radius_m,omitempty"`
}

// GeofenceConfig configures location polling and verification.
type GeofenceConfig struct {
	VerifyEndpoint string       `json:"verify_endpoint,omitempty"`
	PollInterval   string       `json:"poll_interval,omitempty"`
	Zones          []ZoneConfig `json:"zones,omitempty"`
	// OfflineVerification authorizes against the configured zones instead of the server.
	OfflineVerification bool `json:"offline_verification,omitempty"`
}

// ResolverConfig configures content lookup and download.
type ResolverConfig struct {
	Endpoint       string `json:"endpoint"`
	MaxAssetBytes  int64  `json:"max_asset_bytes,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
}

// ControllerConfig configures the scan loop.
type ControllerConfig struct {
	SkipFrames        int  `json:"skip_frames,omitempty"`
	ValidateSelection bool `json:"validate_selection,omitempty"`
}

// MongoConfig points at an optional zone directory.
type MongoConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database,omitempty"`
	Collection string `json:"collection,omitempty"`
}

// Ensure fills defaults and validates the config.
func (c *Config) Ensure() error {
	c.applyDefaults()
	return c.Validate()
}

func (c *Config) applyDefaults() {
	if c.Detector.ConfidenceThreshold == nil {
		c.Detector.ConfidenceThreshold = lo.ToPtr(objectdetection.DefaultConfidenceThreshold)
	}
	if c.Detector.CoordinateSpace == "" {
		c.Detector.CoordinateSpace = CoordinateSpaceModelPixels
	}
	if c.Detector.ModelSize == 0 {
		c.Detector.ModelSize = rimage.DefaultModelSize
	}
	if c.Placement.StandoffMeters == 0 {
		c.Placement.StandoffMeters = placement.DefaultStandoffMeters
	}
	if c.Placement.FallbackMeters == 0 {
		c.Placement.FallbackMeters = placement.DefaultFallbackMeters
	}
	if c.Controller.SkipFrames == 0 {
		c.Controller.SkipFrames = DefaultSkipFrames
	}
	if c.Mongo != nil {
		if c.Mongo.Database == "" {
			c.Mongo.Database = geofence.DefaultMongoDatabase
		}
		if c.Mongo.Collection == "" {
			c.Mongo.Collection = geofence.DefaultMongoCollection
		}
	}
}

// Validate returns every problem found in the config.
func (c *Config) Validate() error {
	errs := multierr.Combine(
		c.Detector.Validate("detector"),
		c.Geofence.Validate("geofence"),
		c.Resolver.Validate("resolver"),
		validatePlacement("placement", c.Placement),
		c.Controller.Validate("controller"),
	)
	if c.Mongo != nil {
		errs = multierr.Append(errs, c.Mongo.Validate("mongo"))
	}
	if !c.Geofence.OfflineVerification && c.Geofence.VerifyEndpoint == "" {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("geofence", "verify_endpoint"))
	}
	if c.Geofence.OfflineVerification && len(c.Geofence.Zones) == 0 && c.Mongo == nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError("geofence",
			errors.New("offline verification needs zones or a mongo zone directory")))
	}
	return errs
}

// Validate checks the detector section.
func (d DetectorConfig) Validate(path string) error {
	var errs error
	if t := d.Threshold(); t < 0 || t >= 1 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("confidence_threshold must be in [0,1), got %v", t)))
	}
	if d.CoordinateSpace != CoordinateSpaceModelPixels && d.CoordinateSpace != CoordinateSpaceNormalized {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("unknown coordinate_space %q", d.CoordinateSpace)))
	}
	if d.ModelSize < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("model_size must be positive, got %d", d.ModelSize)))
	}
	if d.CameraRotationDegrees%90 != 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("camera_rotation_degrees must be a multiple of 90, got %d", d.CameraRotationDegrees)))
	}
	return errs
}

// Threshold returns the configured confidence threshold, or the default when none is set.
func (d DetectorConfig) Threshold() float64 {
	if d.ConfidenceThreshold == nil {
		return objectdetection.DefaultConfidenceThreshold
	}
	return *d.ConfidenceThreshold
}

// ObjectDetection converts the section into detector settings.
func (d DetectorConfig) ObjectDetection() objectdetection.DetectorConfig {
	space := objectdetection.CoordinatesModelPixels
	if d.CoordinateSpace == CoordinateSpaceNormalized {
		space = objectdetection.CoordinatesNormalized
	}
	inputName := d.InputName
	if inputName == "" {
		inputName = mlmodel.DefaultInputName
	}
	return objectdetection.DetectorConfig{
		Decoder: objectdetection.DecoderConfig{
			ConfidenceThreshold: d.Threshold(),
			CoordinateSpace:     space,
			ModelSize:           d.ModelSize,
		},
		InputName:  inputName,
		OutputName: d.OutputName,
		SwapXY:     d.SwapXY,
		FlipX:      d.FlipX,
		FlipY:      d.FlipY,
	}
}

// Validate checks the geofence section.
func (g GeofenceConfig) Validate(path string) error {
	var errs error
	if g.VerifyEndpoint != "" {
		errs = multierr.Append(errs, validateHTTPURL(path, "verify_endpoint", g.VerifyEndpoint))
	}
	if g.PollInterval != "" {
		if d, err := time.ParseDuration(g.PollInterval); err != nil || d <= 0 {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path,
				errors.Errorf("invalid poll_interval %q", g.PollInterval)))
		}
	}
	for i, z := range g.Zones {
		zonePath := fmt.Sprintf("%s.zones.%d", path, i)
		if z.Name == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(zonePath, "name"))
		}
		if _, err := geofence.ParseCoordinate(z.Coordinate); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(zonePath, err))
		}
		if z.RadiusMeters < 0 {
			errs = multierr.Append(errs, utils.NewConfigValidationError(zonePath,
				errors.Errorf("radius_m must not be negative, got %v", z.RadiusMeters)))
		}
	}
	return errs
}

// Interval returns the poll interval, or the default when unset.
func (g GeofenceConfig) Interval() time.Duration {
	d, err := time.ParseDuration(g.PollInterval)
	if err != nil || d <= 0 {
		return geofence.DefaultPollInterval
	}
	return d
}

// StaticZones converts the configured zones.
func (g GeofenceConfig) StaticZones() (geofence.StaticZones, error) {
	zones := make(geofence.StaticZones, 0, len(g.Zones))
	for _, z := range g.Zones {
		center, err := geofence.ParseCoordinate(z.Coordinate)
		if err != nil {
			return nil, errors.Wrapf(err, "zone %q", z.Name)
		}
		zones = append(zones, geofence.Zone{Name: z.Name, Center: center, RadiusMeters: z.RadiusMeters})
	}
	return zones, nil
}

// Validate checks the resolver section.
func (r ResolverConfig) Validate(path string) error {
	if r.Endpoint == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "endpoint")
	}
	errs := validateHTTPURL(path, "endpoint", r.Endpoint)
	if r.MaxAssetBytes < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("max_asset_bytes must not be negative, got %d", r.MaxAssetBytes)))
	}
	if r.RequestTimeout != "" {
		if _, err := time.ParseDuration(r.RequestTimeout); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path,
				errors.Errorf("invalid request_timeout %q", r.RequestTimeout)))
		}
	}
	return errs
}

// Timeout returns the HTTP timeout for lookups and downloads. Zero means none.
func (r ResolverConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(r.RequestTimeout)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks the controller section.
func (c ControllerConfig) Validate(path string) error {
	if c.SkipFrames < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("skip_frames must be at least 1, got %d", c.SkipFrames))
	}
	return nil
}

// Validate checks the mongo section.
func (m MongoConfig) Validate(path string) error {
	if m.URI == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "uri")
	}
	return nil
}

func validatePlacement(path string, p placement.Config) error {
	if p.StandoffMeters < 0 || p.FallbackMeters < 0 {
		return utils.NewConfigValidationError(path, errors.New("placement distances must not be negative"))
	}
	return nil
}

func validateHTTPURL(path, field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return utils.NewConfigValidationError(path, errors.Wrapf(err, "invalid %s", field))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return utils.NewConfigValidationError(path, errors.Errorf("%s %q must be http or https", field, raw))
	}
	return nil
}
