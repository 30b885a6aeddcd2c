package collect

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sliverarmory/ldfind/diag"
	"github.com/sliverarmory/ldfind/helper"
	"github.com/sliverarmory/ldfind/query"
)

// DefaultCacheTools are the conventional ldconfig locations, tried in order
// before searching PATH.
var DefaultCacheTools = []string{"/sbin/ldconfig", "/usr/sbin/ldconfig", "/bin/ldconfig", "/usr/bin/ldconfig"}

// cacheDialects are the listing flags: glibc's indexed -p, then the BSD -r.
var cacheDialects = []string{"-p", "-r"}

// CacheScanner lists the system library cache through ldconfig.
type CacheScanner struct {
	Runner    helper.Runner
	Locations []string
	Locate    func(paths []string, lookName string) (string, bool)
	Environ   func() []string
	Logger    *log.Logger
}

func NewCacheScanner(runner helper.Runner, logger *log.Logger) *CacheScanner {
	if runner == nil {
		runner = helper.Exec{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CacheScanner{
		Runner:    runner,
		Locations: DefaultCacheTools,
		Locate:    helper.FirstExecutable,
		Environ:   os.Environ,
		Logger:    logger,
	}
}

// Scan calls add with the full path of every cached library whose file name
// matches names. An error from add stops the scan and is returned.
func (s *CacheScanner) Scan(names query.Names, add func(path string) error) ([]diag.Warning, error) {
	tool, ok := s.Locate(s.Locations, "ldconfig")
	if !ok {
		return []diag.Warning{diag.New(diag.CacheToolMissing, "no executable ldconfig")}, nil
	}

	// The scan must not be steered by the variables under inspection.
	env := helper.EditEnv(s.Environ(), nil, helper.Cleared(helper.LoaderVariables...)...)
	for _, dialect := range cacheDialects {
		out, err := s.Runner.Run(helper.Command{Path: tool, Args: []string{dialect}, Env: env})
		if err != nil {
			s.Logger.Debug("ldconfig listing failed", "tool", tool, "dialect", dialect, "err", err)
		}
		lines, err := parseCacheListing(out, names, add)
		if err != nil {
			return nil, err
		}
		if lines > 0 {
			return nil, nil
		}
	}
	return []diag.Warning{diag.New(diag.CacheToolFailed, "%s -p and %s -r listed nothing", tool, tool)}, nil
}

// parseCacheListing returns how many lines the listing had. Every line counts
// toward that total, but only entry lines ("name ... => /path") supply a
// path; header and search-directory lines are skipped.
func parseCacheListing(out []byte, names query.Names, add func(path string) error) (int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lines := 0
	for scanner.Scan() {
		lines++
		path, ok := cacheEntryPath(scanner.Text())
		if !ok {
			continue
		}
		if !names.Match(path[strings.LastIndexByte(path, '/')+1:]) {
			continue
		}
		if err := add(path); err != nil {
			return lines, err
		}
	}
	return lines, nil
}

func cacheEntryPath(line string) (string, bool) {
	_, target, ok := strings.Cut(line, "=>")
	if !ok {
		return "", false
	}
	path := strings.Trim(target, " \t\r\n")
	if !strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return "", false
	}
	return path, true
}
