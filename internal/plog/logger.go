// SPDX-License-Identifier: Apache-2.0

// Package plog defines the structured logging interface used across
// psqlpack's build/diff/publish pipeline. Nothing in this module reaches
// for a global logger; every component that logs takes a Sink.
package plog

import "github.com/pterm/pterm"

// Sink is the logging surface a build or publish run reports through.
type Sink interface {
	LogFileParsed(path string, statementCount int)
	LogParseWarning(path, message string)
	LogGraphSorted(nodeCount int)
	LogPackageWritten(path string, entryCount int)

	LogConnecting(database string)
	LogDatabaseMissing(database string)
	LogDatabaseRecreate(database string)

	LogDiffStart(database string)
	LogInstruction(kind, object string)
	LogDiffComplete(instructionCount int)

	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type ptermSink struct {
	logger pterm.Logger
}

// New returns a Sink backed by pterm's default structured logger.
func New() Sink {
	return &ptermSink{logger: pterm.DefaultLogger}
}

type noopSink struct{}

// NewNoop returns a Sink that discards everything, for tests and library
// callers that don't want psqlpack writing to stdout on their behalf.
func NewNoop() Sink { return &noopSink{} }

func (s *ptermSink) LogFileParsed(path string, statementCount int) {
	s.logger.Info("parsed source file", s.logger.Args("path", path, "statements", statementCount))
}

func (s *ptermSink) LogParseWarning(path, message string) {
	s.logger.Warn("parser warning", s.logger.Args("path", path, "message", message))
}

func (s *ptermSink) LogGraphSorted(nodeCount int) {
	s.logger.Info("dependency graph sorted", s.logger.Args("nodes", nodeCount))
}

func (s *ptermSink) LogPackageWritten(path string, entryCount int) {
	s.logger.Info("package written", s.logger.Args("path", path, "entries", entryCount))
}

func (s *ptermSink) LogConnecting(database string) {
	s.logger.Info("connecting", s.logger.Args("database", database))
}

func (s *ptermSink) LogDatabaseMissing(database string) {
	s.logger.Info("database does not exist", s.logger.Args("database", database))
}

func (s *ptermSink) LogDatabaseRecreate(database string) {
	s.logger.Info("recreating database", s.logger.Args("database", database))
}

func (s *ptermSink) LogDiffStart(database string) {
	s.logger.Info("computing changeset", s.logger.Args("database", database))
}

func (s *ptermSink) LogInstruction(kind, object string) {
	s.logger.Info("change instruction", s.logger.Args("kind", kind, "object", object))
}

func (s *ptermSink) LogDiffComplete(instructionCount int) {
	s.logger.Info("changeset complete", s.logger.Args("instructions", instructionCount))
}

func (s *ptermSink) Info(msg string, args ...any)  { s.logger.Info(msg, s.logger.Args(args...)) }
func (s *ptermSink) Warn(msg string, args ...any)  { s.logger.Warn(msg, s.logger.Args(args...)) }
func (s *ptermSink) Error(msg string, args ...any) { s.logger.Error(msg, s.logger.Args(args...)) }

func (n *noopSink) LogFileParsed(string, int)      {}
func (n *noopSink) LogParseWarning(string, string) {}
func (n *noopSink) LogGraphSorted(int)             {}
func (n *noopSink) LogPackageWritten(string, int)  {}
func (n *noopSink) LogConnecting(string)           {}
func (n *noopSink) LogDatabaseMissing(string)      {}
func (n *noopSink) LogDatabaseRecreate(string)     {}
func (n *noopSink) LogDiffStart(string)            {}
func (n *noopSink) LogInstruction(string, string)  {}
func (n *noopSink) LogDiffComplete(int)            {}
func (n *noopSink) Info(string, ...any)            {}
func (n *noopSink) Warn(string, ...any)            {}
func (n *noopSink) Error(string, ...any)           {}
