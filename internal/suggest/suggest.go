// Package suggest ranks live-typing completions for the palette. It only
// reads an in-memory corpus so every keystroke is answered without touching
// the desktop, the network or the intent parser.
package suggest

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/rafabd1/Paleta/internal/commands"
	"github.com/rafabd1/Paleta/internal/tabs"
)

const DefaultLimit = 8

// Corpus is the context the matcher draws candidates from.
type Corpus struct {
	Apps    []string
	Presets []string
	Tabs    []tabs.Indexed
	History []string
}

// Result is a ranked list plus the completion hint (its top entry).
type Result struct {
	Suggestions []string `json:"suggestions"`
	Hint        string   `json:"hint"`
}

type tier int

const (
	tierPrefix tier = iota
	tierSubstring
	tierFuzzy
)

type candidate struct {
	key  string // what the query is matched against
	text string // what is offered to the user
}

type ranked struct {
	text string
	tier tier
}

type verb struct {
	phrase string
	arg    commands.Arg
}

// Matcher is safe for concurrent use. Update swaps the corpus atomically
// with respect to Suggest.
type Matcher struct {
	verbs []verb
	limit int

	mu     sync.RWMutex
	corpus Corpus
}

func NewMatcher(reg *commands.Registry, limit int) *Matcher {
	if limit <= 0 {
		limit = DefaultLimit
	}
	m := &Matcher{limit: limit}
	for _, d := range reg.GetAll() {
		for _, v := range d.Verbs {
			m.verbs = append(m.verbs, verb{phrase: v, arg: d.Arg})
		}
	}
	// longest phrase first so "close tab" wins over "close"
	sort.SliceStable(m.verbs, func(i, j int) bool {
		return len(m.verbs[i].phrase) > len(m.verbs[j].phrase)
	})
	return m
}

func (m *Matcher) Update(c Corpus) {
	m.mu.Lock()
	m.corpus = c
	m.mu.Unlock()
}

func (m *Matcher) Corpus() Corpus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.corpus
}

// Suggest ranks completions for text. Exact-prefix matches come first,
// then substring matches, then fuzzy ones; ties go to the shorter and then
// the lexically smaller candidate.
func (m *Matcher) Suggest(text string) Result {
	query := strings.ToLower(strings.TrimLeft(text, " "))
	if strings.TrimSpace(query) == "" {
		return Result{Suggestions: []string{}}
	}
	corpus := m.Corpus()

	var cands []candidate
	for _, v := range m.verbs {
		cands = append(cands, candidate{key: v.phrase, text: v.phrase})
	}
	for _, h := range corpus.History {
		cands = append(cands, candidate{key: h, text: h})
	}
	for _, a := range corpus.Apps {
		cands = append(cands, candidate{key: a, text: a})
	}
	for _, p := range corpus.Presets {
		cands = append(cands, candidate{key: p, text: p})
	}
	cands = append(cands, tabCandidates(corpus.Tabs)...)
	best := rank(query, cands, nil)

	if v, rest, ok := m.splitVerb(query); ok {
		best = rank(strings.TrimSpace(rest), m.argCandidates(v, corpus), best)
	}
	return m.finish(best)
}

// splitVerb recognises "<verb> <partial argument>".
func (m *Matcher) splitVerb(query string) (verb, string, bool) {
	for _, v := range m.verbs {
		if v.arg == commands.ArgNone {
			continue
		}
		if strings.HasPrefix(query, v.phrase+" ") {
			return v, query[len(v.phrase)+1:], true
		}
	}
	return verb{}, "", false
}

func (m *Matcher) argCandidates(v verb, c Corpus) []candidate {
	var out []candidate
	switch v.arg {
	case commands.ArgApp:
		for _, a := range c.Apps {
			out = append(out, candidate{key: a, text: v.phrase + " " + a})
		}
	case commands.ArgPreset:
		for _, p := range c.Presets {
			out = append(out, candidate{key: p, text: v.phrase + " " + p})
		}
	case commands.ArgTab:
		out = tabCandidates(c.Tabs)
	case commands.ArgURL:
		for _, t := range c.Tabs {
			if d := t.Domain(); d != "" {
				out = append(out, candidate{key: d, text: v.phrase + " " + d})
			}
		}
	}
	return out
}

// tabCandidates offers "switch to tab N" for a tab's title or domain.
func tabCandidates(list []tabs.Indexed) []candidate {
	out := make([]candidate, 0, 2*len(list))
	for _, t := range list {
		text := fmt.Sprintf("switch to tab %d", t.Index)
		out = append(out, candidate{key: t.Title, text: text})
		if d := t.Domain(); d != "" {
			out = append(out, candidate{key: d, text: text})
		}
	}
	return out
}

// rank scores cands against query and merges them into seen, keeping the
// best tier per suggestion text.
func rank(query string, cands []candidate, seen map[string]ranked) map[string]ranked {
	if seen == nil {
		seen = make(map[string]ranked)
	}
	for _, c := range cands {
		t, ok := match(query, strings.ToLower(c.key))
		if !ok {
			continue
		}
		id := strings.ToLower(c.text)
		if prev, exists := seen[id]; exists && prev.tier <= t {
			continue
		}
		seen[id] = ranked{text: c.text, tier: t}
	}
	return seen
}

func (m *Matcher) finish(seen map[string]ranked) Result {
	list := make([]ranked, 0, len(seen))
	for _, r := range seen {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		la, lb := utf8.RuneCountInString(a.text), utf8.RuneCountInString(b.text)
		if la != lb {
			return la < lb
		}
		return a.text < b.text
	})
	if len(list) > m.limit {
		list = list[:m.limit]
	}

	res := Result{Suggestions: make([]string, len(list))}
	for i, r := range list {
		res.Suggestions[i] = r.text
	}
	if len(list) > 0 {
		res.Hint = list[0].text
	}
	return res
}

func match(query, key string) (tier, bool) {
	if strings.HasPrefix(key, query) {
		return tierPrefix, true
	}
	if query == "" {
		return 0, false
	}
	if strings.Contains(key, query) {
		return tierSubstring, true
	}
	n := utf8.RuneCountInString(query)
	budget := editBudget(n)
	if budget == 0 {
		return 0, false
	}
	head := key
	if r := []rune(key); len(r) > n {
		head = string(r[:n])
	}
	if levenshtein.ComputeDistance(query, head) <= budget {
		return tierFuzzy, true
	}
	return 0, false
}

// editBudget is the number of typos tolerated for a query of n runes.
func editBudget(n int) int {
	switch {
	case n < 3:
		return 0
	case n < 6:
		return 1
	default:
		return 2
	}
}
