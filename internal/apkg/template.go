package apkg

import (
	"fmt"
	"regexp"
	"strings"
)

// RenderTemplate interprets the field-substitution micro-language of deck
// templates. Substitution runs field by field first ({{Field}},
// {{type:Field}} and {{text:Field}}, the last stripping markup), then the
// conditional blocks {{#Field}}...{{/Field}} and {{^Field}}...{{/Field}}
// are resolved, so field references inside a kept block are already
// substituted. Tags that reference unknown fields are left untouched; an
// unknown directive must not corrupt the surrounding content.
func RenderTemplate(template string, fields map[string]string) string {
	result := template

	for name, value := range fields {
		quoted := regexp.QuoteMeta(name)

		plainRe := regexp.MustCompile(fmt.Sprintf(`\{\{%s\}\}`, quoted))
		result = plainRe.ReplaceAllLiteralString(result, value)

		typeRe := regexp.MustCompile(fmt.Sprintf(`\{\{type:%s\}\}`, quoted))
		result = typeRe.ReplaceAllLiteralString(result, value)

		textRe := regexp.MustCompile(fmt.Sprintf(`\{\{text:%s\}\}`, quoted))
		result = textRe.ReplaceAllLiteralString(result, StripMarkup(value))
	}

	for name, value := range fields {
		quoted := regexp.QuoteMeta(name)
		hasContent := strings.TrimSpace(value) != ""

		posRe := regexp.MustCompile(fmt.Sprintf(`(?s)\{\{#%s\}\}(.*?)\{\{/%s\}\}`, quoted, quoted))
		if hasContent {
			result = posRe.ReplaceAllString(result, "$1")
		} else {
			result = posRe.ReplaceAllString(result, "")
		}

		negRe := regexp.MustCompile(fmt.Sprintf(`(?s)\{\{\^%s\}\}(.*?)\{\{/%s\}\}`, quoted, quoted))
		if hasContent {
			result = negRe.ReplaceAllString(result, "")
		} else {
			result = negRe.ReplaceAllString(result, "$1")
		}
	}

	return result
}
