//go:build linux

package elfview

import (
	"fmt"
	"os"
	"strings"
)

const (
	selfExe  = "/proc/self/exe"
	selfMaps = "/proc/self/maps"
)

// SelfPath returns the resolved path of the running executable.
func SelfPath() (string, error) {
	path, err := os.Readlink(selfExe)
	if err == nil && path != "" {
		return strings.TrimSuffix(path, " (deleted)"), nil
	}
	exe, exeErr := os.Executable()
	if exeErr != nil {
		return "", fmt.Errorf("readlink %s: %w", selfExe, err)
	}
	return exe, nil
}

// OpenSelf opens the running executable's image.
func OpenSelf() (*Image, error) {
	return Open(selfExe)
}

type procMapEntry struct {
	perms string
	path  string
}

// MappedLoader returns the dynamic loader mapped into this process, if any.
func MappedLoader() (string, bool) {
	entries, err := readProcMaps()
	if err != nil {
		return "", false
	}

	bestScore := -1
	best := ""
	for _, entry := range entries {
		score := loaderPathScore(entry.path)
		if score > bestScore {
			bestScore = score
			best = entry.path
		}
	}
	if bestScore < 0 || best == "" {
		return "", false
	}
	return best, true
}

func loaderPathScore(path string) int {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	switch {
	case strings.HasPrefix(base, "ld-linux"):
		return 100
	case strings.HasPrefix(base, "ld64.so"):
		return 95
	case strings.HasPrefix(base, "ld-musl"):
		return 90
	case strings.HasPrefix(base, "ld.so"):
		return 80
	default:
		return -1
	}
}

func readProcMaps() ([]procMapEntry, error) {
	raw, err := os.ReadFile(selfMaps)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", selfMaps, err)
	}
	return parseProcMaps(string(raw)), nil
}

func parseProcMaps(raw string) []procMapEntry {
	lines := strings.Split(raw, "\n")
	entries := make([]procMapEntry, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		if !strings.Contains(fields[1], "x") {
			continue
		}
		path := strings.Join(fields[5:], " ")
		path = strings.TrimSuffix(path, " (deleted)")
		if !strings.HasPrefix(path, "/") {
			continue
		}
		entries = append(entries, procMapEntry{perms: fields[1], path: path})
	}
	return entries
}
