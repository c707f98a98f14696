package intent

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	minMatchScore  = 30.0
	minFuzzyRatio  = 0.3
	runningBoost   = 5.0
	exactScore     = 100.0
	prefixScore    = 80.0
	containsScore  = 50.0
	fuzzyScoreBase = 40.0
)

// score rates how well text names candidate; both are lower case.
func score(text, candidate string) float64 {
	switch {
	case candidate == text:
		return exactScore
	case strings.HasPrefix(candidate, text):
		return prefixScore + coverage(text, candidate)*10
	case strings.Contains(candidate, text):
		return containsScore + coverage(text, candidate)*10
	}
	if r := similarity(text, candidate); r > minFuzzyRatio {
		return r * fuzzyScoreBase
	}
	return 0
}

func coverage(text, candidate string) float64 {
	return float64(utf8.RuneCountInString(text)) / float64(utf8.RuneCountInString(candidate))
}

// similarity is 1 minus the edit distance normalised by the longer string.
func similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// MatchApp resolves spoken text to a known application. Running apps get a
// small boost so "code" prefers the editor that is already open.
func MatchApp(text string, running, installed []string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(text))
	if want == "" {
		return "", false
	}
	isRunning := make(map[string]bool, len(running))
	for _, a := range running {
		isRunning[a] = true
	}

	best, bestScore := "", 0.0
	consider := func(app string) {
		s := score(want, strings.ToLower(app))
		if isRunning[app] {
			s += runningBoost
		}
		if s > bestScore {
			best, bestScore = app, s
		}
	}
	for _, a := range running {
		consider(a)
	}
	for _, a := range installed {
		if !isRunning[a] {
			consider(a)
		}
	}
	return best, bestScore >= minMatchScore
}
