// Package source maps source selectors to their raw path lists and the
// splitting rules the loader applies to each.
package source

import (
	"debug/elf"
	"errors"
	"os"

	"github.com/sliverarmory/ldfind/diag"
	"github.com/sliverarmory/ldfind/elfview"
	"github.com/sliverarmory/ldfind/query"
)

// Origin says where a source's path list comes from.
type Origin int

const (
	OriginEnv Origin = iota
	OriginDynamic
	OriginConstant
	OriginCaller
)

// Kind says how a path-list field is turned into candidates.
type Kind int

const (
	// KindFiles fields name library files directly.
	KindFiles Kind = iota
	// KindDirs fields name directories to list.
	KindDirs
	// KindCache is the system library cache; there is no path list.
	KindCache
)

// DefaultPaths are the conventional system library directories.
const DefaultPaths = "/lib:/lib64:/usr/lib:/usr/lib64"

// Descriptor is an immutable source table entry.
type Descriptor struct {
	Name     string
	Origin   Origin
	Kind     Kind
	Delims   [2]byte
	Tag      elf.DynTag
	Constant string
}

var descriptors = [...]Descriptor{
	{Name: query.SourceAudit, Origin: OriginEnv, Kind: KindFiles, Delims: [2]byte{':', ':'}},
	{Name: query.SourcePreload, Origin: OriginEnv, Kind: KindFiles, Delims: [2]byte{':', ' '}},
	{Name: query.SourceRPath, Origin: OriginDynamic, Kind: KindDirs, Delims: [2]byte{':', ':'}, Tag: elf.DT_RPATH},
	{Name: query.SourceLibraryPath, Origin: OriginEnv, Kind: KindDirs, Delims: [2]byte{':', ';'}},
	{Name: query.SourceRunPath, Origin: OriginDynamic, Kind: KindDirs, Delims: [2]byte{':', ':'}, Tag: elf.DT_RUNPATH},
	{Name: query.SourceRunPathEnv, Origin: OriginEnv, Kind: KindDirs, Delims: [2]byte{':', ':'}},
	{Name: query.SourceCache, Origin: OriginConstant, Kind: KindCache},
	{Name: query.SourceDefaultPaths, Origin: OriginConstant, Kind: KindDirs, Delims: [2]byte{':', ';'}, Constant: DefaultPaths},
	{Name: query.SourceExtraPaths, Origin: OriginCaller, Kind: KindDirs, Delims: [2]byte{':', ';'}},
}

// Describe returns the descriptor for name. Names outside the standard table
// describe an environment variable holding a directory list.
func Describe(name string) Descriptor {
	for _, d := range descriptors {
		if d.Name == name {
			return d
		}
	}
	return Descriptor{Name: name, Origin: OriginEnv, Kind: KindDirs, Delims: [2]byte{':', ';'}}
}

// Source is a descriptor with its raw path list. Present is false when the
// source does not exist, such as an unset variable.
type Source struct {
	Descriptor
	Raw     string
	Present bool
}

// DynamicReader reads string-valued dynamic section entries.
type DynamicReader interface {
	DynString(tag elf.DynTag) (string, bool, error)
}

type Enumerator struct {
	LookupEnv  func(name string) (string, bool)
	Dynamic    DynamicReader
	ExtraPaths string
}

// NewEnumerator returns an Enumerator over the process environment. dynamic
// may be nil when the own image cannot be read.
func NewEnumerator(dynamic DynamicReader, extraPaths string) *Enumerator {
	return &Enumerator{
		LookupEnv:  os.LookupEnv,
		Dynamic:    dynamic,
		ExtraPaths: extraPaths,
	}
}

// Lookup resolves name to its raw path list.
func (e *Enumerator) Lookup(name string) (Source, []diag.Warning) {
	src := Source{Descriptor: Describe(name)}
	switch src.Origin {
	case OriginEnv:
		if name == "" {
			return src, nil
		}
		src.Raw, src.Present = e.LookupEnv(name)
	case OriginConstant:
		src.Raw, src.Present = src.Constant, true
	case OriginCaller:
		src.Raw, src.Present = e.ExtraPaths, e.ExtraPaths != ""
	case OriginDynamic:
		if e.Dynamic == nil {
			return src, []diag.Warning{diag.New(diag.DynamicUnavailable, "cannot read %s: own image unavailable", name)}
		}
		raw, ok, err := e.Dynamic.DynString(src.Tag)
		if err != nil {
			if errors.Is(err, elfview.ErrNoDynamic) {
				return src, []diag.Warning{diag.New(diag.DynamicUnavailable, "cannot read %s: %v", name, err)}
			}
			return src, []diag.Warning{diag.New(diag.DynamicUnavailable, "%v", err)}
		}
		src.Raw, src.Present = raw, ok
	}
	return src, nil
}
