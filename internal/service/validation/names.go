package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	MinDisplayNameLen = 2
	MaxDisplayNameLen = 30
	MaxTitleLen       = 100
)

// CleanName applies NFKC, trims and collapses inner whitespace runs to one space.
func CleanName(s string) string {
	return strings.Join(strings.FieldsFunc(norm.NFKC.String(s), unicode.IsSpace), " ")
}

// NormalizeDisplayName returns the cleaned name or ErrDisplayNameLength.
// Length is counted in characters, not bytes.
func NormalizeDisplayName(s string) (string, error) {
	name := CleanName(s)
	n := utf8.RuneCountInString(name)
	if n < MinDisplayNameLen || n > MaxDisplayNameLen {
		return "", ErrDisplayNameLength
	}
	return name, nil
}

// NameKey is the comparison key for matching a typed name against a named seat:
// case and whitespace differences are ignored.
func NameKey(s string) string {
	return cases.Fold().String(CleanName(s))
}

func NamesMatch(a, b string) bool {
	ka := NameKey(a)
	return ka != "" && ka == NameKey(b)
}

func NormalizeTitle(s string) (string, error) {
	title := CleanName(s)
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", ErrTitleTooLong
	}
	return title, nil
}
