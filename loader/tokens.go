package loader

import (
	"errors"
	"strings"
)

// MaxPathLength bounds an expanded path-list field.
const MaxPathLength = 4096

var ErrPathTooLong = errors.New("ldfind: expanded path too long")

// Tokens holds the values the loader substitutes for $LIB, $PLATFORM and
// $ORIGIN.
type Tokens struct {
	Lib      string
	Platform string
	Origin   string
}

type replacement struct {
	forms [2]string
	value func(Tokens) string
}

var replacements = []replacement{
	{forms: [2]string{"$ORIGIN", "${ORIGIN}"}, value: func(t Tokens) string { return t.Origin }},
	{forms: [2]string{"$LIB", "${LIB}"}, value: func(t Tokens) string { return t.Lib }},
	{forms: [2]string{"$PLATFORM", "${PLATFORM}"}, value: func(t Tokens) string { return t.Platform }},
}

// Expand substitutes loader tokens in field and reports how many were
// replaced. Text after an unrecognized '$' is kept as is. Like the loader's
// own documentation warns, $LIB is also replaced inside $LIBFOO.
func (t Tokens) Expand(field string) (string, int, error) {
	if strings.IndexByte(field, '$') < 0 {
		return field, 0, nil
	}

	var b strings.Builder
	b.Grow(len(field))
	count := 0
	for i := 0; i < len(field); {
		matched := false
		if field[i] == '$' {
			for _, r := range replacements {
				for _, form := range r.forms {
					if strings.HasPrefix(field[i:], form) {
						b.WriteString(r.value(t))
						i += len(form)
						count++
						matched = true
						break
					}
				}
				if matched {
					break
				}
			}
		}
		if !matched {
			b.WriteByte(field[i])
			i++
		}
		if b.Len() > MaxPathLength {
			return "", count, ErrPathTooLong
		}
	}
	return b.String(), count, nil
}
