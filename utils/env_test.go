package utils

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/boardlens/boardlens/logging"
)

func TestGetenv(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Setenv(ConfidenceThresholdEnvVar, "0.75")
	val, ok := LookupEnvFloat64(ConfidenceThresholdEnvVar, logger)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, val, test.ShouldEqual, 0.75)

	t.Setenv(ConfidenceThresholdEnvVar, "0")
	val, ok = LookupEnvFloat64(ConfidenceThresholdEnvVar, logger)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, val, test.ShouldEqual, 0.0)

	t.Setenv(ConfidenceThresholdEnvVar, "not-a-number")
	_, ok = LookupEnvFloat64(ConfidenceThresholdEnvVar, logger)
	test.That(t, ok, test.ShouldBeFalse)

	t.Setenv(PollIntervalEnvVar, "3s")
	test.That(t, GetenvDuration(PollIntervalEnvVar, 10*time.Second, logger), test.ShouldEqual, 3*time.Second)

	t.Setenv(ResolverEndpointEnvVar, "")
	test.That(t, GetenvString(ResolverEndpointEnvVar, "http://fallback"), test.ShouldEqual, "http://fallback")
}
