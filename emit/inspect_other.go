//go:build !unix

package emit

import "errors"

type SystemInspector struct{}

func (SystemInspector) Inspect(path string) (FileInfo, error) {
	return FileInfo{}, errors.ErrUnsupported
}
