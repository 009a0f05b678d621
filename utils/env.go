package utils

import (
	"os"
	"time"

	"github.com/spf13/cast"

	"github.com/boardlens/boardlens/logging"
)

const (
	// EnvVarPrefix is the prefix for all boardlens environment variables.
	EnvVarPrefix = "BOARDLENS_"

	// ConfidenceThresholdEnvVar overrides the detector confidence threshold.
	ConfidenceThresholdEnvVar = "BOARDLENS_CONFIDENCE_THRESHOLD"

	// ResolverEndpointEnvVar overrides the asset resolution endpoint.
	ResolverEndpointEnvVar = "BOARDLENS_RESOLVER_ENDPOINT"

	// VerifyEndpointEnvVar overrides the remote geofence verification endpoint.
	VerifyEndpointEnvVar = "BOARDLENS_VERIFY_ENDPOINT"

	// PollIntervalEnvVar overrides how often the location is polled.
	PollIntervalEnvVar = "BOARDLENS_POLL_INTERVAL"
)

// LookupEnvFloat64 parses the named env var as a float64. ok is false when it is unset, empty or
// unparsable.
func LookupEnvFloat64(key string, logger logging.Logger) (float64, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return 0, false
	}
	val, err := cast.ToFloat64E(raw)
	if err != nil {
		logger.Warnw("ignoring unparsable env var", "name", key, "value", raw, "error", err)
		return 0, false
	}
	return val, true
}

// GetenvDuration returns the named env var parsed as a duration, or def when unset or unparsable.
func GetenvDuration(key string, def time.Duration, logger logging.Logger) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	val, err := cast.ToDurationE(raw)
	if err != nil {
		logger.Warnw("ignoring unparsable env var", "name", key, "value", raw, "error", err)
		return def
	}
	return val
}

// GetenvString returns the named env var or def when unset.
func GetenvString(key, def string) string {
	if raw, ok := os.LookupEnv(key); ok && raw != "" {
		return raw
	}
	return def
}
