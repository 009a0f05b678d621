package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"github.com/boardlens/boardlens/logging"
	"github.com/boardlens/boardlens/utils"
)

// Read reads a config from the given file, expanding ${VAR} references from the environment.
func Read(ctx context.Context, filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies where, if applicable, the file the
// reader originated from.
func FromReader(ctx context.Context, originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := Config{ConfigFilePath: originalPath}
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	cfg.applyEnvOverrides(logger)
	if err := cfg.Ensure(); err != nil {
		return nil, errors.Wrap(err, "failed to process Config")
	}
	logger.Debugw("read config", "path", originalPath, "threshold", cfg.Detector.Threshold())
	return &cfg, nil
}

func (c *Config) applyEnvOverrides(logger logging.Logger) {
	if t, ok := utils.LookupEnvFloat64(utils.ConfidenceThresholdEnvVar, logger); ok {
		c.Detector.ConfidenceThreshold = &t
	}
	c.Resolver.Endpoint = utils.GetenvString(utils.ResolverEndpointEnvVar, c.Resolver.Endpoint)
	c.Geofence.VerifyEndpoint = utils.GetenvString(utils.VerifyEndpointEnvVar, c.Geofence.VerifyEndpoint)
	if d := utils.GetenvDuration(utils.PollIntervalEnvVar, 0, logger); d > 0 {
		c.Geofence.PollInterval = d.String()
	}
}
