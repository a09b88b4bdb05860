package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/exampleauth/authd/pkg/log"
)

var logLevels = []string{"debug", "info", "error"}

func newLogger(level, format string) (log.Logger, error) {
	l := logrus.New()

	switch strings.ToLower(level) {
	case "", "info":
		l.SetLevel(logrus.InfoLevel)
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		return nil, fmt.Errorf("log level is not one of the supported values (%s): %s", strings.Join(logLevels, ", "), level)
	}

	switch strings.ToLower(format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("log format is not one of the supported values (json, text): %s", format)
	}

	return log.NewLogrusLogger(l), nil
}
