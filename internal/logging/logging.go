// Package logging builds the logrus logger shared by the binaries.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LevelEnv names the environment variable that overrides the log level.
const LevelEnv = "LOG_LEVEL"

// New creates a text logger with millisecond timestamps. A valid level wins;
// otherwise verbose selects debug and the default is info.
func New(level string, verbose bool) *logrus.Logger {
	return NewWithOutput(os.Stderr, level, verbose)
}

// NewWithOutput is New writing to out.
func NewWithOutput(out io.Writer, level string, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if lvl, err := logrus.ParseLevel(level); level != "" && err == nil {
		logger.SetLevel(lvl)
	} else if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}
