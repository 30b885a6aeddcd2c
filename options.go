package ldfind

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/sliverarmory/ldfind/diag"
	"github.com/sliverarmory/ldfind/emit"
	"github.com/sliverarmory/ldfind/helper"
	"github.com/sliverarmory/ldfind/loader"
	"github.com/sliverarmory/ldfind/source"
	"github.com/spf13/afero"
)

// DefaultCandidateCapacity is the first candidate buffer size. It doubles on
// each restart.
const DefaultCandidateCapacity = 256

// TokenResolver supplies the loader token values.
type TokenResolver interface {
	Resolve() (loader.Tokens, []diag.Warning)
}

// Option configures a Resolve or ResolveNames call.
type Option func(*config)

type config struct {
	extraPaths        string
	emit              emit.Options
	logger            *log.Logger
	fs                afero.Fs
	lookupEnv         func(string) (string, bool)
	runner            helper.Runner
	dynamic           source.DynamicReader
	dynamicSet        bool
	resolver          TokenResolver
	inspector         emit.Inspector
	candidateCapacity int
}

func newConfig(opts []Option) *config {
	cfg := &config{
		emit:              emit.DefaultOptions(),
		logger:            log.New(io.Discard),
		fs:                afero.NewOsFs(),
		lookupEnv:         os.LookupEnv,
		candidateCapacity: DefaultCandidateCapacity,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithExtraPaths sets the extra_paths source, a ':' or ';' separated
// directory list searched last.
func WithExtraPaths(paths string) Option {
	return func(c *config) { c.extraPaths = paths }
}

// WithSymlinks controls whether symlinked candidates are reported.
func WithSymlinks(include bool) Option {
	return func(c *config) { c.emit.IncludeSymlinks = include }
}

// WithHardlinks controls whether repeated files are reported as duplicates
// or skipped.
func WithHardlinks(include bool) Option {
	return func(c *config) { c.emit.IncludeHardlinks = include }
}

// WithMaxIdentities bounds how many distinct files are tracked for duplicate
// detection. Non-positive values keep the default.
func WithMaxIdentities(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.emit.MaxIdentities = n
		}
	}
}

// WithWarningLevel drops warnings above level, from 0 (syntax errors only)
// to diag.MaxLevel (everything).
func WithWarningLevel(level int) Option {
	return func(c *config) {
		c.emit.Level = min(max(level, 0), diag.MaxLevel)
	}
}

// WithLogger sets the logger for resolution steps. The default discards.
func WithLogger(logger *log.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFs replaces the filesystem directories are listed from.
func WithFs(fs afero.Fs) Option {
	return func(c *config) { c.fs = fs }
}

// WithLookupEnv replaces how environment sources such as LD_LIBRARY_PATH are
// read.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(c *config) { c.lookupEnv = lookup }
}

// WithRunner replaces how helper programs (the loader trace, uname and
// ldconfig) are run.
func WithRunner(runner helper.Runner) Option {
	return func(c *config) { c.runner = runner }
}

// WithDynamicReader replaces the process's own dynamic section as the source
// of DT_RPATH and DT_RUNPATH. A nil reader makes both unavailable.
func WithDynamicReader(reader source.DynamicReader) Option {
	return func(c *config) {
		c.dynamic = reader
		c.dynamicSet = true
	}
}

// WithResolver replaces the loader trace that supplies $LIB, $PLATFORM and
// $ORIGIN.
func WithResolver(resolver TokenResolver) Option {
	return func(c *config) { c.resolver = resolver }
}

// WithInspector replaces the lstat/stat calls used for symlink and identity
// checks.
func WithInspector(inspector emit.Inspector) Option {
	return func(c *config) { c.inspector = inspector }
}

// WithCandidateCapacity sets the first candidate buffer size. Non-positive
// values keep DefaultCandidateCapacity.
func WithCandidateCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.candidateCapacity = n
		}
	}
}
