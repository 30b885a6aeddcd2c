//go:build !linux

package elfview

import (
	"fmt"
	"os"
)

func SelfPath() (string, error) {
	return os.Executable()
}

func OpenSelf() (*Image, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return Open(path)
}

func MappedLoader() (string, bool) {
	return "", false
}
