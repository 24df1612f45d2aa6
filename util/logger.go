package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LogLevelEnv overrides the level passed to NewLogger
const LogLevelEnv = "SMNTFS_LOG"

// NewLogger creates the logger an executable hands to the packages of this
// module. level is a logrus level name; unknown names fall back to info.
// The SMNTFS_LOG environment variable, when set, takes precedence.
func NewLogger(level string) *logrus.Logger {
	if env := os.Getenv(LogLevelEnv); env != "" {
		level = env
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return l
}

// DiscardLogger returns a logger that drops everything. Packages default to
// it so that nothing is printed unless the embedding program asks for it.
func DiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
