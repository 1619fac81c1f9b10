package server

import (
	"io"
	"log"
	"os"
)

// Package-level loggers. Debug output is discarded unless enabled; tests
// replace both to keep output clean.
var (
	debugLog = log.New(io.Discard, "DEBUG: ", log.LstdFlags)
	errorLog = log.New(os.Stderr, "ERROR: ", log.LstdFlags)
)

// EnableDebugLogging turns on debug output for the server package.
func (s *Server) EnableDebugLogging() {
	debugLog = log.New(os.Stdout, "DEBUG: ", log.LstdFlags|log.Lmicroseconds)
}
