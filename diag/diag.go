// Package diag defines the diagnostic annotations that travel with resolution
// output. Diagnostics are data: they end up in result rows, not in logs.
package diag

import (
	"fmt"
	"strings"
)

// Code identifies one kind of diagnostic.
type Code int

const (
	Symlink Code = iota + 1
	Duplicate
	StatFailed
	IdentitySetFull
	NotExecutable
	Replaced
	OriginUnknown
	InterpreterAssumed
	InterpreterUnusable
	NoHelper
	LibAssumed
	PlatformAssumed
	UnameFailed
	DynamicUnavailable
	CacheToolMissing
	CacheToolFailed
	PathTooLong
	SyntaxError
)

// MaxLevel is the most verbose warning level.
const MaxLevel = 4

var codeInfo = map[Code]struct {
	name  string
	level int
}{
	Symlink:             {"symlink", 3},
	Duplicate:           {"duplicate", 3},
	StatFailed:          {"stat failed", 2},
	IdentitySetFull:     {"identity set full", 2},
	NotExecutable:       {"not executable", 2},
	Replaced:            {"replaced", 4},
	OriginUnknown:       {"origin unknown", 2},
	InterpreterAssumed:  {"interpreter assumed", 2},
	InterpreterUnusable: {"interpreter unusable", 2},
	NoHelper:            {"no helper program", 2},
	LibAssumed:          {"lib assumed", 2},
	PlatformAssumed:     {"platform assumed", 2},
	UnameFailed:         {"uname failed", 2},
	DynamicUnavailable:  {"dynamic section unavailable", 1},
	CacheToolMissing:    {"ldconfig missing", 1},
	CacheToolFailed:     {"ldconfig failed", 1},
	PathTooLong:         {"path too long", 1},
	SyntaxError:         {"syntax error", 0},
}

func (code Code) String() string {
	if info, ok := codeInfo[code]; ok {
		return info.name
	}
	return fmt.Sprintf("code(%d)", int(code))
}

// Level is the lowest warning level at which the code is reported.
func (code Code) Level() int {
	if info, ok := codeInfo[code]; ok {
		return info.level
	}
	return MaxLevel
}

// Warning is a single diagnostic. Ref is a row number for Duplicate and zero
// otherwise.
type Warning struct {
	Code   Code
	Detail string
	Ref    int
}

// New returns a warning with a formatted detail.
func New(code Code, format string, args ...any) Warning {
	return Warning{Code: code, Detail: fmt.Sprintf(format, args...)}
}

func (w Warning) String() string {
	var b strings.Builder
	b.WriteString(w.Code.String())
	if w.Code == Duplicate && w.Ref > 0 {
		fmt.Fprintf(&b, " of row %d", w.Ref)
	}
	if w.Detail != "" {
		b.WriteString(": ")
		b.WriteString(w.Detail)
	}
	return b.String()
}

// Filter returns the warnings visible at level, keeping their order.
func Filter(warnings []Warning, level int) []Warning {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]Warning, 0, len(warnings))
	for _, w := range warnings {
		if w.Code.Level() <= level {
			out = append(out, w)
		}
	}
	return out
}

// Join renders warnings as a single field.
func Join(warnings []Warning) string {
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = w.String()
	}
	return strings.Join(parts, "; ")
}
