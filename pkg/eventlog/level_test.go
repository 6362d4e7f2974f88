package eventlog

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLevelLogrusLevelMapping(t *testing.T) {
	assert.Equal(t, logrus.FatalLevel, LevelFatal.logrusLevel())
	assert.Equal(t, logrus.ErrorLevel, LevelError.logrusLevel())
	assert.Equal(t, logrus.WarnLevel, LevelWarn.logrusLevel())
	assert.Equal(t, logrus.InfoLevel, LevelInfo.logrusLevel())
	assert.Equal(t, logrus.DebugLevel, LevelDebug1.logrusLevel())
	assert.Equal(t, logrus.DebugLevel, LevelDebug2.logrusLevel())
	assert.Equal(t, logrus.DebugLevel, LevelDebug3.logrusLevel())
	assert.Equal(t, logrus.DebugLevel, LevelAll.logrusLevel())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "all", LevelAll.String())
	assert.Equal(t, "unknown", Level(99).String())
}
