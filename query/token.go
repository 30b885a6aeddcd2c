package query

import "fmt"

// Kind classifies a token.
type Kind int

const (
	KindEnd Kind = iota
	KindFrom
	KindWhere
	KindComma
	KindSource
	KindNonstandardSource
	KindName
)

func (k Kind) String() string {
	switch k {
	case KindEnd:
		return "end"
	case KindFrom:
		return "FROM"
	case KindWhere:
		return "WHERE"
	case KindComma:
		return "comma"
	case KindSource:
		return "source"
	case KindNonstandardSource:
		return "nonstandard source"
	case KindName:
		return "name"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token is one parsed unit of a statement. Text has quotes stripped.
type Token struct {
	Text string
	Kind Kind
}

// Standard source names in loader precedence order.
const (
	SourceAudit          = "LD_AUDIT"
	SourcePreload        = "LD_PRELOAD"
	SourceRPath          = "DT_RPATH"
	SourceLibraryPath    = "LD_LIBRARY_PATH"
	SourceRunPath        = "DT_RUNPATH"
	SourceRunPathEnv     = "LD_RUN_PATH"
	SourceCache          = "ld.so.cache"
	SourceDefaultPaths   = "default_paths"
	SourceExtraPaths     = "extra_paths"
	standardSourcesCount = 9
)

var standardSources = [standardSourcesCount]string{
	SourceAudit,
	SourcePreload,
	SourceRPath,
	SourceLibraryPath,
	SourceRunPath,
	SourceRunPathEnv,
	SourceCache,
	SourceDefaultPaths,
	SourceExtraPaths,
}

// StandardSources returns the standard source names in precedence order.
func StandardSources() []string {
	out := make([]string, len(standardSources))
	copy(out, standardSources[:])
	return out
}

// IsStandardSource matches name case-sensitively.
func IsStandardSource(name string) bool {
	for _, s := range standardSources {
		if s == name {
			return true
		}
	}
	return false
}
