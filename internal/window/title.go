package window

import (
	"strings"

	"golang.org/x/text/cases"
)

// homoglyphs maps Cyrillic letters that render like Latin ones. Some game
// clients swap them into their window title at random moments. Lowercase в
// and н look like small capitals, so only their capitals are mapped.
var homoglyphs = strings.NewReplacer(
	"а", "a", "А", "A",
	"В", "B",
	"е", "e", "Е", "E",
	"ѕ", "s", "Ѕ", "S",
	"і", "i", "І", "I",
	"ј", "j", "Ј", "J",
	"к", "k", "К", "K",
	"м", "m", "М", "M",
	"Н", "H",
	"о", "o", "О", "O",
	"р", "p", "Р", "P",
	"с", "c", "С", "C",
	"т", "t", "Т", "T",
	"у", "y", "У", "Y",
	"х", "x", "Х", "X",
)

// NormalizeTitle replaces Cyrillic homoglyphs with their Latin look-alikes
// and case-folds the result.
func NormalizeTitle(title string) string {
	// Casers carry state and cannot be shared between goroutines
	return cases.Fold().String(homoglyphs.Replace(strings.TrimSpace(title)))
}

// Matcher matches window titles against a target after normalization
type Matcher struct {
	Title string
}

// Match reports whether title equals the target once both are normalized
func (m Matcher) Match(title string) bool {
	if m.Title == "" {
		return false
	}
	return NormalizeTitle(title) == NormalizeTitle(m.Title)
}
