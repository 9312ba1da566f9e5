package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		verbose bool
		want    logrus.Level
	}{
		{name: "default", want: logrus.InfoLevel},
		{name: "verbose", verbose: true, want: logrus.DebugLevel},
		{name: "explicit level wins over verbose", level: "warn", verbose: true, want: logrus.WarnLevel},
		{name: "invalid level ignored", level: "loud", want: logrus.InfoLevel},
		{name: "invalid level with verbose", level: "loud", verbose: true, want: logrus.DebugLevel},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, New(tc.level, tc.verbose).GetLevel())
		})
	}
}

func TestNewWithOutput_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, "", false)

	logger.WithField("store", "Fresh Co").Info("Store processed")

	assert.Contains(t, buf.String(), `msg="Store processed"`)
	assert.Contains(t, buf.String(), `store="Fresh Co"`)
}
