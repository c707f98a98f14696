package engine

import "strings"

// DefaultShorthands maps dotless site names to their hosts. Names missing
// here fall back to "<name>.com". A value carrying a scheme is used as is.
var DefaultShorthands = map[string]string{
	"gmail":      "mail.google.com",
	"calendar":   "calendar.google.com",
	"gcal":       "calendar.google.com",
	"drive":      "drive.google.com",
	"docs":       "docs.google.com",
	"sheets":     "sheets.google.com",
	"maps":       "maps.google.com",
	"meet":       "meet.google.com",
	"hn":         "news.ycombinator.com",
	"hackernews": "news.ycombinator.com",
	"twitter":    "x.com",
	"localhost":  "http://localhost",
}

// NormalizeURL turns what a user said into an openable URL:
//
//	"https://a.b/c" -> unchanged
//	"example.org"   -> "https://example.org"
//	"gmail"         -> "https://mail.google.com" (shorthand)
//	"chatgpt"       -> "https://chatgpt.com"
func NormalizeURL(raw string, shorthands map[string]string) string {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, "://") {
		return s
	}
	if strings.Contains(s, ".") {
		return "https://" + s
	}

	name := strings.ToLower(strings.Join(strings.Fields(s), ""))
	host, ok := shorthands[name]
	if !ok {
		host = name + ".com"
	}
	if strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}
