// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup applies format and level to the standard logger. Production uses
// JSON lines; everything else gets the human readable text formatter. An
// unknown level falls back to info.
func Setup(environment, level string) {
	configure(logrus.StandardLogger(), os.Stdout, environment, level)
}

func configure(l *logrus.Logger, out io.Writer, environment, level string) {
	l.SetOutput(out)

	if strings.EqualFold(environment, "production") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
}
