//go:build unix

package helper

import (
	"os/exec"

	"golang.org/x/sys/unix"
)

// Executable reports whether path passes access(X_OK).
func Executable(path string) bool {
	if path == "" {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}

// FirstExecutable returns the first executable path in order. When none is
// executable and lookName is set, the caller's PATH is searched for it.
func FirstExecutable(paths []string, lookName string) (string, bool) {
	for _, path := range paths {
		if Executable(path) {
			return path, true
		}
	}
	if lookName != "" {
		if path, err := exec.LookPath(lookName); err == nil {
			return path, true
		}
	}
	return "", false
}

// Machine returns the uname(2) machine field.
func Machine() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uts.Machine[:]), nil
}
