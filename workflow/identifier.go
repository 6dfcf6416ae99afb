package workflow

import (
	"regexp"
	"strings"
)

const (
	minIdentifierLen = 3
	maxIdentifierLen = 100
)

// Lines the scanner's report template emits around the document name. A
// candidate whose first word is one of these is template noise, not a name.
var identifierStopWords = map[string]bool{
	"page":       true,
	"similarity": true,
	"ai":         true,
	"detection":  true,
	"report":     true,
	"overall":    true,
	"detected":   true,
	"turnitin":   true,
}

var (
	labeledFieldPattern  = regexp.MustCompile(`(?i)^\s*(document|file|name|title)\s*:\s*(.+)$`)
	fileNameTokenPattern = regexp.MustCompile(`[A-Za-z0-9_\- ]+(\s*\(\d+\))?(\.[A-Za-z0-9]+)?`)
	scoreLinePattern     = regexp.MustCompile(`^\d{1,3}%`)

	trailingExtensionPattern = regexp.MustCompile(`\.[a-z0-9]{1,8}$`)
	whitespaceRunPattern     = regexp.MustCompile(`\s+`)
)

// NormalizeName canonicalizes an identifier for comparison: lowercase, one
// trailing dot-extension stripped, whitespace runs collapsed, ends trimmed.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = trailingExtensionPattern.ReplaceAllString(s, "")
	s = whitespaceRunPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// namesEquivalent is the matching equality: normalized forms are equal, or one
// is a substring of the other. The substring half tolerates scanner tools that
// append suffixes or truncate names.
func namesEquivalent(a, b string) bool {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

type identifierRule struct {
	name    string
	extract func(text string) (string, bool)
}

// Precision-first cascade: the labeled field is the most reliable signal and
// is tried first; the bare line scan is a last resort.
var identifierRules = []identifierRule{
	{name: "labeled-field", extract: extractLabeledField},
	{name: "filename-token", extract: extractFileNameToken},
	{name: "first-line", extract: extractFirstSubstantialLine},
}

// ExtractIdentifier runs the heuristics in priority order against page-1 text
// and returns the first candidate, already normalized. ok is false when every
// heuristic comes up empty; that is a routine outcome, not an error.
func ExtractIdentifier(pageText string) (identifier string, ok bool) {
	for _, rule := range identifierRules {
		if candidate, found := rule.extract(pageText); found {
			return NormalizeName(candidate), true
		}
	}
	return "", false
}

func extractLabeledField(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		if m := labeledFieldPattern.FindStringSubmatch(line); m != nil {
			candidate := strings.TrimSpace(m[2])
			if candidate != "" {
				return candidate, true
			}
		}
	}
	return "", false
}

func extractFileNameToken(text string) (string, bool) {
	for _, token := range fileNameTokenPattern.FindAllString(text, -1) {
		candidate := strings.TrimSpace(token)
		if len(candidate) < minIdentifierLen || len(candidate) > maxIdentifierLen {
			continue
		}
		if startsWithStopWord(candidate) {
			continue
		}
		return candidate, true
	}
	return "", false
}

func extractFirstSubstantialLine(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		candidate := strings.TrimSpace(line)
		if candidate == "" {
			continue
		}
		if scoreLinePattern.MatchString(candidate) {
			continue
		}
		if startsWithStopWord(candidate) {
			continue
		}
		if len(candidate) >= minIdentifierLen && len(candidate) <= maxIdentifierLen {
			return candidate, true
		}
		return "", false
	}
	return "", false
}

func startsWithStopWord(candidate string) bool {
	fields := strings.Fields(strings.ToLower(candidate))
	if len(fields) == 0 {
		return false
	}
	return identifierStopWords[fields[0]]
}
