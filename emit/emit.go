// Package emit orders candidates, removes or annotates repeated files and
// serializes the result rows.
package emit

import (
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sliverarmory/ldfind/collect"
	"github.com/sliverarmory/ldfind/diag"
)

// DefaultMaxIdentities bounds the identity set.
const DefaultMaxIdentities = 100

// Identity is a file's device and inode.
type Identity struct {
	Dev uint64
	Ino uint64
}

// FileInfo is what the emitter needs to know about a candidate.
type FileInfo struct {
	Symlink  bool
	Identity Identity
}

// Inspector classifies a path without following a final symlink and
// identifies the file it resolves to.
type Inspector interface {
	Inspect(path string) (FileInfo, error)
}

type InspectorFunc func(path string) (FileInfo, error)

func (f InspectorFunc) Inspect(path string) (FileInfo, error) { return f(path) }

type Options struct {
	IncludeSymlinks  bool
	IncludeHardlinks bool
	MaxIdentities    int
	// Level drops warnings above it; rows are kept regardless.
	Level int
}

func DefaultOptions() Options {
	return Options{
		IncludeSymlinks:  true,
		IncludeHardlinks: true,
		MaxIdentities:    DefaultMaxIdentities,
		Level:            diag.MaxLevel,
	}
}

type Emitter struct {
	Options   Options
	Inspector Inspector
	Writer    *Writer
	Logger    *log.Logger
}

// NewEmitter returns an Emitter inspecting the real filesystem.
func NewEmitter(opts Options, w *Writer, logger *log.Logger) *Emitter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Emitter{
		Options:   opts,
		Inspector: SystemInspector{},
		Writer:    w,
		Logger:    logger,
	}
}

// Emit writes one row per diagnostic note, then one row per kept candidate
// in path order. It returns the rows written; on ErrOverflow those are the
// rows that fit.
func (e *Emitter) Emit(notes []diag.Warning, candidates []collect.Candidate) ([]Row, error) {
	var rows []Row
	write := func(row Row) error {
		row.Number = len(rows) + 1
		if err := e.Writer.WriteRow(row); err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	}

	for _, note := range notes {
		visible := diag.Filter([]diag.Warning{note}, e.Options.Level)
		if len(visible) == 0 {
			continue
		}
		if err := write(Row{Warnings: visible}); err != nil {
			return rows, err
		}
	}

	sorted := make([]collect.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	seen := make(map[Identity]int, e.Options.MaxIdentities)
	exhausted := false
	for _, c := range sorted {
		warnings := append([]diag.Warning(nil), c.Warnings...)

		info, err := e.Inspector.Inspect(c.Path)
		switch {
		case err != nil:
			warnings = append(warnings, diag.New(diag.StatFailed, "%v", err))
		default:
			if info.Symlink {
				if !e.Options.IncludeSymlinks {
					e.Logger.Debug("skipping symlink", "path", c.Path)
					continue
				}
				warnings = append(warnings, diag.New(diag.Symlink, ""))
			}
			if exhausted {
				break
			}
			if first, ok := seen[info.Identity]; ok {
				if !e.Options.IncludeHardlinks {
					e.Logger.Debug("skipping duplicate", "path", c.Path, "row", first)
					continue
				}
				warnings = append(warnings, diag.Warning{Code: diag.Duplicate, Ref: first})
				break
			}
			if len(seen) >= e.Options.MaxIdentities {
				exhausted = true
				warnings = append(warnings, diag.New(diag.IdentitySetFull, "%d identities recorded, later files unchecked", len(seen)))
				break
			}
			seen[info.Identity] = len(rows) + 1
		}

		row := Row{
			Source:   c.Source,
			Path:     strings.ReplaceAll(c.Path, "\n", ""),
			Warnings: diag.Filter(warnings, e.Options.Level),
		}
		if err := write(row); err != nil {
			return rows, err
		}
	}
	return rows, nil
}
