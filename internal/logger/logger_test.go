package logger

import (
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
)

func TestGetReturnsNamedLogger(t *testing.T) {
	log := Get("mypackage")
	assert.NotNil(t, log.GetSink())
}

func TestReplaceLoggerSwapsTheSink(t *testing.T) {
	original := l
	t.Cleanup(func() { l = original })

	ReplaceLogger(testr.New(t))
	log := Get("swapped")
	assert.NotNil(t, log.GetSink())
}

func TestSetVerbosityDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { SetVerbosity(1) })
	t.Cleanup(func() { SetVerbosity(0) })
}
