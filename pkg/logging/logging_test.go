package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(logrus.StandardLogger().Out)
	SetLevel("info")
	defer SetLevel("warn")

	NewLogger("grove-playground.test").Info("hello")
	assert.Contains(t, buf.String(), "component=grove-playground.test")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestSetLevelFallsBackToWarn(t *testing.T) {
	SetLevel("loud")
	assert.Equal(t, logrus.WarnLevel, Base().GetLevel())

	SetLevel(" DEBUG ")
	assert.Equal(t, logrus.DebugLevel, Base().GetLevel())
	SetLevel("warn")
}
