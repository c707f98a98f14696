package utils

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ExtractJsonBlock pulls a JSON object out of a model reply. It accepts a
// bare object, a fenced ```json block, or the span between the first '{'
// and the last '}'.
func ExtractJsonBlock(rawResponse string) (string, error) {
	trimmed := strings.TrimSpace(rawResponse)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		if json.Valid([]byte(trimmed)) {
			return trimmed, nil
		}
	}

	if start := strings.Index(trimmed, "```"); start != -1 {
		body := trimmed[start+3:]
		body = strings.TrimPrefix(body, "json")
		if end := strings.Index(body, "```"); end != -1 {
			candidate := strings.TrimSpace(body[:end])
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}

	firstBrace := strings.Index(rawResponse, "{")
	lastBrace := strings.LastIndex(rawResponse, "}")
	if firstBrace != -1 && lastBrace > firstBrace {
		extracted := rawResponse[firstBrace : lastBrace+1]
		if json.Valid([]byte(extracted)) {
			return extracted, nil
		}
	}

	return "", errors.New("could not extract valid JSON block from LLM response")
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}
