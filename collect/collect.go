// Package collect expands sources into candidate library files.
package collect

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sliverarmory/ldfind/diag"
	"github.com/sliverarmory/ldfind/helper"
	"github.com/sliverarmory/ldfind/loader"
	"github.com/sliverarmory/ldfind/query"
	"github.com/sliverarmory/ldfind/source"
	"github.com/spf13/afero"
)

type Collector struct {
	Fs         afero.Fs
	Names      query.Names
	Tokens     loader.Tokens
	Cache      *CacheScanner
	Executable func(path string) bool
	Logger     *log.Logger
}

// NewCollector returns a Collector over the OS filesystem.
func NewCollector(names query.Names, tokens loader.Tokens, cache *CacheScanner, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Collector{
		Fs:         afero.NewOsFs(),
		Names:      names,
		Tokens:     tokens,
		Cache:      cache,
		Executable: helper.Executable,
		Logger:     logger,
	}
}

// Collect appends the candidates src supplies to buf. The only error is
// ErrBufferFull; everything else degrades to warnings.
func (c *Collector) Collect(src source.Source, buf *Buffer) ([]diag.Warning, error) {
	if !src.Present {
		c.Logger.Debug("source absent", "source", src.Name)
		return nil, nil
	}

	if src.Kind == source.KindCache {
		if c.Cache == nil {
			return []diag.Warning{diag.New(diag.CacheToolMissing, "no cache scanner configured")}, nil
		}
		return c.Cache.Scan(c.Names, func(path string) error {
			return buf.Append(Candidate{Source: src.Name, Path: path})
		})
	}

	var warnings []diag.Warning
	for _, field := range Split(src.Raw, src.Delims[0], src.Delims[1]) {
		expanded, replaced, err := c.Tokens.Expand(field)
		if err != nil {
			warnings = append(warnings, diag.New(diag.PathTooLong, "%s: %v", field, err))
			continue
		}
		var notes []diag.Warning
		if replaced > 0 {
			notes = append(notes, diag.New(diag.Replaced, "%s with %s", field, expanded))
		}

		if src.Kind == source.KindFiles {
			if err := c.collectFile(src.Name, expanded, notes, buf); err != nil {
				return warnings, err
			}
			continue
		}
		if err := c.collectDir(src.Name, expanded, notes, buf); err != nil {
			return warnings, err
		}
	}
	return warnings, nil
}

func (c *Collector) collectFile(sourceName, path string, notes []diag.Warning, buf *Buffer) error {
	if !c.Names.Match(baseName(path)) {
		return nil
	}
	warnings := append([]diag.Warning(nil), notes...)
	if c.Executable != nil && !c.Executable(path) {
		warnings = append(warnings, diag.New(diag.NotExecutable, "access(X_OK) failed"))
	}
	return buf.Append(Candidate{Source: sourceName, Path: path, Warnings: warnings})
}

func (c *Collector) collectDir(sourceName, dir string, notes []diag.Warning, buf *Buffer) error {
	infos, err := afero.ReadDir(c.Fs, dir)
	if err != nil {
		c.Logger.Debug("skipping directory", "source", sourceName, "dir", dir, "err", err)
		return nil
	}
	for _, info := range infos {
		mode := info.Mode()
		if !mode.IsRegular() && mode&os.ModeSymlink == 0 {
			continue
		}
		if !c.Names.Match(info.Name()) {
			continue
		}
		candidate := Candidate{
			Source:   sourceName,
			Path:     joinDir(dir, info.Name()),
			Warnings: append([]diag.Warning(nil), notes...),
		}
		if err := buf.Append(candidate); err != nil {
			return err
		}
	}
	return nil
}

// Split cuts a path list at either delimiter, trims spaces from each field
// and drops empty fields.
func Split(raw string, delim1, delim2 byte) []string {
	var fields []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i < len(raw) && raw[i] != delim1 && raw[i] != delim2 {
			continue
		}
		if field := strings.Trim(raw[start:i], " "); field != "" {
			fields = append(fields, field)
		}
		start = i + 1
	}
	return fields
}

// joinDir keeps dir as written, adding a separator only when missing.
func joinDir(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
