package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestSubloggerNaming(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	sub := logger.Sublogger("resolver")
	subsub := sub.Sublogger("download")

	subsub.Infow("progress", "fraction", 0.5)
	entries := observed.All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "resolver.download")
	test.That(t, entries[0].Message, test.ShouldEqual, "progress")
	test.That(t, entries[0].ContextMap()["fraction"], test.ShouldEqual, 0.5)
}

func TestLevelGating(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	sub := logger.Sublogger("gate")
	sub.SetLevel(zapcore.WarnLevel)

	sub.Debug("hidden")
	sub.Infof("hidden %d", 1)
	sub.Warnw("shown", "zone", "campus")
	logger.Debugw("parent unaffected")

	entries := observed.All()
	test.That(t, entries, test.ShouldHaveLength, 2)
	test.That(t, entries[0].Message, test.ShouldEqual, "shown")
	test.That(t, entries[1].Message, test.ShouldEqual, "parent unaffected")
	test.That(t, sub.GetLevel(), test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, logger.GetLevel(), test.ShouldEqual, zapcore.DebugLevel)
}

func TestGlobalReplace(t *testing.T) {
	prev := Global()
	defer ReplaceGlobal(prev)

	logger := NewBlankLogger("blank")
	ReplaceGlobal(logger)
	test.That(t, Global(), test.ShouldEqual, logger)
}

func TestStderrLoggerLevel(t *testing.T) {
	logger := NewStderrLogger("cli", zapcore.WarnLevel)
	test.That(t, logger.GetLevel(), test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, logger.Sublogger("scan").GetLevel(), test.ShouldEqual, zapcore.WarnLevel)
}
