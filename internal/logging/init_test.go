package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLogging(t *testing.T) {
	t.Helper()

	formatter, level := logrus.StandardLogger().Formatter, logrus.GetLevel()
	t.Cleanup(func() {
		viper.Reset()
		logrus.SetFormatter(formatter)
		logrus.SetLevel(level)
		logrus.SetReportCaller(false)
	})
	viper.Reset()
}

func TestInit_Defaults(t *testing.T) {
	resetLogging(t)

	Init()

	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)
	assert.True(t, logrus.StandardLogger().ReportCaller)
}

func TestInit_JSONWithLevel(t *testing.T) {
	resetLogging(t)
	viper.Set("log_format", "json")
	viper.Set("log_level", "warn")

	Init()

	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	formatter, ok := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	require.True(t, ok)
	assert.Equal(t, "2006-01-02 15:04:05", formatter.TimestampFormat)
}

func TestInit_DebugWins(t *testing.T) {
	resetLogging(t)
	viper.Set("debug", true)
	viper.Set("log_level", "error")

	Init()

	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}
