// Package ldfind reports which files the dynamic loader would pick for a set
// of library names in the running process, and from which search source.
package ldfind

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sliverarmory/ldfind/collect"
	"github.com/sliverarmory/ldfind/diag"
	"github.com/sliverarmory/ldfind/elfview"
	"github.com/sliverarmory/ldfind/emit"
	"github.com/sliverarmory/ldfind/loader"
	"github.com/sliverarmory/ldfind/query"
	"github.com/sliverarmory/ldfind/source"
)

// MaxNameLength bounds a single requested name. It matches the longest
// WHERE token the statement parser accepts.
const MaxNameLength = query.MaxTokenLength

// maxAttempts bounds collection restarts after the candidate buffer fills.
const maxAttempts = 8

var (
	ErrInvalidArgument   = errors.New("ldfind: invalid argument")
	ErrNameTooLong       = errors.New("ldfind: library name too long")
	ErrCapacity          = errors.New("ldfind: capacity exceeded")
	ErrCandidateCapacity = errors.New("ldfind: too many candidates")
)

// Result is the outcome of one resolution. Output holds Rows serialized as
// CSV records of number, source, path and warnings.
type Result struct {
	Rows    []emit.Row
	Output  []byte
	Sources []string
	Tokens  loader.Tokens
}

// Resolve answers statement, a query of the form
//
//	FROM source[,source...] WHERE name[,name...]
//
// where both clauses are optional. capacity bounds Result.Output in bytes.
//
// A syntax error or an output overflow returns the partial Result along with
// the error, so the diagnostic row or the overflow marker can be shown.
func Resolve(statement string, capacity int, opts ...Option) (*Result, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", ErrInvalidArgument, capacity)
	}
	cfg := newConfig(opts)

	stmt, err := query.Parse(statement)
	if err != nil {
		return syntaxFailure(err, capacity, cfg)
	}
	cfg.logger.Debug("parsed statement", "sources", stmt.Sources, "names", stmt.Names.String())
	return run(stmt, capacity, cfg)
}

// ResolveNames searches every standard source for names.
func ResolveNames(names []string, capacity int, opts ...Option) (*Result, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", ErrInvalidArgument, capacity)
	}
	var requested query.Names
	for _, name := range names {
		if len(name) > MaxNameLength {
			return nil, fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(name))
		}
		requested = requested.Add(name)
	}
	stmt := &query.Statement{Sources: query.StandardSources(), Names: requested}
	return run(stmt, capacity, newConfig(opts))
}

func syntaxFailure(parseErr error, capacity int, cfg *config) (*Result, error) {
	w := emit.NewWriter(capacity)
	row := emit.Row{Number: 1, Warnings: []diag.Warning{diag.New(diag.SyntaxError, "%s", strings.TrimPrefix(parseErr.Error(), "syntax error "))}}
	result := &Result{}
	if err := w.WriteRow(row); err != nil {
		result.Output = w.Bytes()
		return result, fmt.Errorf("%w: %w", ErrCapacity, err)
	}
	result.Rows = []emit.Row{row}
	result.Output = w.Bytes()
	cfg.logger.Debug("statement rejected", "err", parseErr)
	return result, parseErr
}

func run(stmt *query.Statement, capacity int, cfg *config) (*Result, error) {
	resolver := cfg.resolver
	if resolver == nil {
		resolver = loader.NewResolver(cfg.runner, cfg.logger)
	}
	tokens, notes := resolver.Resolve()

	dynamic, closeDynamic := cfg.dynamicReader()
	defer closeDynamic()

	enumerator := source.NewEnumerator(dynamic, cfg.extraPaths)
	enumerator.LookupEnv = cfg.lookupEnv

	collector := collect.NewCollector(stmt.Names, tokens, collect.NewCacheScanner(cfg.runner, cfg.logger), cfg.logger)
	collector.Fs = cfg.fs

	candidates, warnings, err := collectAll(stmt.Sources, enumerator, collector, cfg)
	if err != nil {
		return nil, err
	}
	notes = append(notes, warnings...)

	w := emit.NewWriter(capacity)
	emitter := emit.NewEmitter(cfg.emit, w, cfg.logger)
	if cfg.inspector != nil {
		emitter.Inspector = cfg.inspector
	}
	rows, err := emitter.Emit(notes, candidates)
	result := &Result{Rows: rows, Output: w.Bytes(), Sources: stmt.Sources, Tokens: tokens}
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrCapacity, err)
	}
	return result, nil
}

// collectAll gathers candidates from every source, starting over with a
// larger buffer whenever it fills.
func collectAll(sources []string, enumerator *source.Enumerator, collector *collect.Collector, cfg *config) ([]collect.Candidate, []diag.Warning, error) {
	capacity := cfg.candidateCapacity
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		buf := collect.NewBuffer(capacity)
		warnings, err := collectInto(buf, sources, enumerator, collector)
		if err == nil {
			return buf.Candidates(), warnings, nil
		}
		if !errors.Is(err, collect.ErrBufferFull) {
			return nil, nil, err
		}
		cfg.logger.Debug("candidate buffer full, restarting", "attempt", attempt, "capacity", capacity)
		capacity *= 2
	}
	return nil, nil, fmt.Errorf("%w: %w after %d attempts", ErrCapacity, ErrCandidateCapacity, maxAttempts)
}

func collectInto(buf *collect.Buffer, sources []string, enumerator *source.Enumerator, collector *collect.Collector) ([]diag.Warning, error) {
	var warnings []diag.Warning
	for _, name := range sources {
		src, lookupWarnings := enumerator.Lookup(name)
		warnings = append(warnings, lookupWarnings...)

		collectWarnings, err := collector.Collect(src, buf)
		warnings = append(warnings, collectWarnings...)
		if err != nil {
			return warnings, err
		}
	}
	return warnings, nil
}

// dynamicReader returns the configured reader, or the process's own image.
// The returned func releases whatever was opened.
func (c *config) dynamicReader() (source.DynamicReader, func()) {
	if c.dynamicSet {
		return c.dynamic, func() {}
	}
	image, err := elfview.OpenSelf()
	if err != nil {
		c.logger.Debug("own image unavailable", "err", err)
		return nil, func() {}
	}
	return image, func() { _ = image.Close() }
}
