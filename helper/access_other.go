//go:build !unix

package helper

import "errors"

func Executable(path string) bool {
	_ = path
	return false
}

func FirstExecutable(paths []string, lookName string) (string, bool) {
	_, _ = paths, lookName
	return "", false
}

func Machine() (string, error) {
	return "", errors.New("uname is only supported on unix")
}
