package apkg

import (
	"regexp"
	"strings"
)

var (
	htmlTagRe  = regexp.MustCompile(`<[^>]*>`)
	soundTagRe = regexp.MustCompile(`\[sound:[^\]]*\]`)
	braceTagRe = regexp.MustCompile(`\{\{[^}]*\}\}`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&amp;", "&",
)

// StripMarkup reduces a field value to plain text: HTML tags, [sound:...]
// references and leftover template tags are removed, common entities are
// decoded and the result is trimmed.
func StripMarkup(html string) string {
	if html == "" {
		return ""
	}
	text := htmlTagRe.ReplaceAllString(html, "")
	text = soundTagRe.ReplaceAllString(text, "")
	text = braceTagRe.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)
	return strings.TrimSpace(text)
}
