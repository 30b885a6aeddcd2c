// Package elfview is a read-only view of an ELF image: its interpreter and
// the string-valued entries of its dynamic section. Every offset is resolved
// by debug/elf, which validates section and segment bounds before reading.
package elfview

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
)

// ErrNoDynamic is returned when the image has no dynamic section, as with
// statically linked executables.
var ErrNoDynamic = errors.New("image has no dynamic section")

// maxInterpLength bounds how much of PT_INTERP is read.
const maxInterpLength = 4096

type Image struct {
	path string
	file *elf.File
}

// Open parses the ELF file at path.
func Open(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open elf %s: %w", path, err)
	}
	return &Image{path: path, file: f}, nil
}

// NewImage parses an in-memory ELF image.
func NewImage(data []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid ELF image: %w", err)
	}
	return &Image{path: "<memory>", file: f}, nil
}

func (image *Image) Close() error {
	return image.file.Close()
}

// Interpreter returns the PT_INTERP path, if the image has one.
func (image *Image) Interpreter() (string, bool) {
	for _, prog := range image.file.Progs {
		if prog.Type != elf.PT_INTERP {
			continue
		}
		raw, err := io.ReadAll(io.LimitReader(prog.Open(), maxInterpLength))
		if err != nil {
			return "", false
		}
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			raw = raw[:i]
		}
		interp := strings.TrimSpace(string(raw))
		return interp, interp != ""
	}
	return "", false
}

// HasDynamic reports whether the image carries a dynamic section.
func (image *Image) HasDynamic() bool {
	if image.file.Section(".dynamic") != nil {
		return true
	}
	for _, prog := range image.file.Progs {
		if prog.Type == elf.PT_DYNAMIC {
			return true
		}
	}
	return false
}

// DynString returns the string values of tag, resolved through the image's
// dynamic string table. Multiple entries are joined with ':' as the loader
// concatenates them.
func (image *Image) DynString(tag elf.DynTag) (string, bool, error) {
	if !image.HasDynamic() {
		return "", false, ErrNoDynamic
	}
	values, err := image.file.DynString(tag)
	if err != nil {
		return "", false, fmt.Errorf("read %s from %s: %w", tag, image.path, err)
	}
	if len(values) == 0 {
		return "", false, nil
	}
	return strings.Join(values, ":"), true, nil
}

// DefaultInterpreter returns the conventional glibc loader path for goarch.
func DefaultInterpreter(goarch string) (string, error) {
	switch goarch {
	case "386":
		return "/lib/ld-linux.so.2", nil
	case "amd64":
		return "/lib64/ld-linux-x86-64.so.2", nil
	case "arm64":
		return "/lib/ld-linux-aarch64.so.1", nil
	case "arm":
		return "/lib/ld-linux-armhf.so.3", nil
	case "riscv64":
		return "/lib/ld-linux-riscv64-lp64d.so.1", nil
	case "ppc64le":
		return "/lib64/ld64.so.2", nil
	case "s390x":
		return "/lib/ld64.so.1", nil
	default:
		return "", fmt.Errorf("no conventional interpreter for architecture %s", goarch)
	}
}

// CurrentDefaultInterpreter is DefaultInterpreter for the running binary.
func CurrentDefaultInterpreter() (string, error) {
	return DefaultInterpreter(runtime.GOARCH)
}
