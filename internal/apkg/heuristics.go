package apkg

import (
	"regexp"
	"strings"
)

// Field names recognized as the canonical headword or phonetic, matched
// against the lower-cased field name.
var (
	headwordNames = map[string]bool{
		"word":       true,
		"单词":         true,
		"expression": true,
		"front":      true,
		"term":       true,
	}
	phoneticNames = map[string]bool{
		"phonetic":    true,
		"音标":          true,
		"ipa":         true,
		"us phonetic": true,
		"uk phonetic": true,
	}
)

var (
	phoneticSegRe = regexp.MustCompile(`\[[^\]]*\]|/[^/]*/`)
	bracketSegRe  = regexp.MustCompile(`\[[^\]]*\]`)
	parenSegRe    = regexp.MustCompile(`\([^)]*\)`)
	slashSegRe    = regexp.MustCompile(`/[^/]*/`)
)

// ExtractWordPhonetic derives a clean headword and phonetic string from a
// note's fields, consulted in model order. Best effort: when nothing
// matches, both results are empty, never an error.
//
// The headword comes from the first field whose name is recognized, else
// the first field. The phonetic comes from a recognized phonetic field, or
// failing that from a bracketed or slash-delimited segment of the raw
// headword. The headword is then cleaned of bracketed, parenthetical and
// slash-delimited segments and cut to its first line.
func ExtractWordPhonetic(fields map[string]string, order []string) (word, phonetic string) {
	if len(order) == 0 {
		for name := range fields {
			order = append(order, name)
		}
	}

	wordField := ""
	for _, name := range order {
		if headwordNames[strings.ToLower(name)] {
			wordField = name
			break
		}
	}
	if wordField == "" && len(order) > 0 {
		wordField = order[0]
	}

	rawWord := ""
	if wordField != "" {
		rawWord = StripMarkup(fields[wordField])
	}

	rawPhonetic := ""
	for _, name := range order {
		if phoneticNames[strings.ToLower(name)] {
			rawPhonetic = StripMarkup(fields[name])
			break
		}
	}
	if rawPhonetic == "" && rawWord != "" {
		rawPhonetic = phoneticSegRe.FindString(rawWord)
	}

	word = bracketSegRe.ReplaceAllString(rawWord, "")
	word = parenSegRe.ReplaceAllString(word, "")
	word = slashSegRe.ReplaceAllString(word, "")
	if i := strings.IndexByte(word, '\n'); i >= 0 {
		word = word[:i]
	}
	word = strings.TrimSpace(word)

	return word, strings.TrimSpace(rawPhonetic)
}
