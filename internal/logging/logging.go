// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging configures the shared logrus logger for the pipeline.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New returns a configured logger. An unparseable level falls back to info.
func New(level string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if out != nil {
		log.SetOutput(out)
	}
	return log
}

// Discard returns a logger that writes nowhere, for tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
