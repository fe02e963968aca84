package main

import (
	"io"

	"github.com/felixgeelhaar/bolt/v3"
)

func parseLevel(s string) bolt.Level {
	switch s {
	case "trace":
		return bolt.TRACE
	case "debug":
		return bolt.DEBUG
	case "warn":
		return bolt.WARN
	case "error":
		return bolt.ERROR
	default:
		return bolt.INFO
	}
}

// newLogger builds the process logger. Output must never be stdout when the
// stdio transport is in use.
func newLogger(level, format string, out io.Writer) *bolt.Logger {
	var handler bolt.Handler
	if format == "json" {
		handler = bolt.NewJSONHandler(out)
	} else {
		handler = bolt.NewConsoleHandler(out)
	}
	return bolt.New(handler).SetLevel(parseLevel(level))
}
