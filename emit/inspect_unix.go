//go:build unix

package emit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SystemInspector classifies with lstat and identifies with stat.
type SystemInspector struct{}

func (SystemInspector) Inspect(path string) (FileInfo, error) {
	var lst unix.Stat_t
	if err := unix.Lstat(path, &lst); err != nil {
		return FileInfo{}, fmt.Errorf("lstat: %w", err)
	}
	info := FileInfo{Symlink: lst.Mode&unix.S_IFMT == unix.S_IFLNK}

	st := lst
	if info.Symlink {
		if err := unix.Stat(path, &st); err != nil {
			return FileInfo{}, fmt.Errorf("stat: %w", err)
		}
	}
	info.Identity = Identity{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}
	return info, nil
}
