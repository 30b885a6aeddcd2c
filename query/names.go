package query

import "strings"

// Names is the ordered set of requested library names. The zero value
// matches every name.
type Names []string

// Add registers the colon-delimited names in list, skipping blanks. A name
// ends at the first space, as the loader's own soname lists do.
func (n Names) Add(list string) Names {
	for _, part := range strings.Split(list, ":") {
		part = strings.TrimLeft(part, " ")
		if i := strings.IndexByte(part, ' '); i >= 0 {
			part = part[:i]
		}
		if part == "" {
			continue
		}
		n = append(n, part)
	}
	return n
}

// Constrained reports whether any name was requested.
func (n Names) Constrained() bool {
	return len(n) > 0
}

// Match reports whether fileName is accepted. After trimming, fileName is
// accepted when it starts with a registered name, so "libc.so" accepts
// "libc.so.6".
//
// TODO: switch to whole-name equality once callers relying on prefix
// acceptance are identified.
func (n Names) Match(fileName string) bool {
	if len(n) == 0 {
		return strings.TrimSpace(fileName) != ""
	}
	line := trimCandidate(fileName)
	if line == "" {
		return false
	}
	for _, name := range n {
		if len(name) > 0 && len(name) <= len(line) && line[:len(name)] == name {
			return true
		}
	}
	return false
}

func trimCandidate(s string) string {
	i := 0
	for i < len(s) && s[i] <= ' ' {
		i++
	}
	s = s[i:]
	if len(s) > 1 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	return strings.TrimRight(s, " ")
}

// String renders the names in the colon-delimited form.
func (n Names) String() string {
	return strings.Join(n, ":")
}
