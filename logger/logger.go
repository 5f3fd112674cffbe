package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is process-wide logger. Usable before Init with logrus defaults.
var Log = logrus.New()

// Init configures global logger. Empty level or format falls back to
// LOG_LEVEL / LOG_FORMAT environment, then to "info" / "text".
func Init(level, format string) {
	Setup(Log, os.Stdout, level, format)
}

func Setup(l *logrus.Logger, out io.Writer, level, format string) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.ToLower(format) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	l.SetOutput(out)
}
