package commands

import (
	"sync"

	"github.com/pkg/errors"
)

// Arg classifies what follows a verb when the user types a command.
type Arg int

const (
	ArgNone Arg = iota
	ArgApp
	ArgPreset
	ArgTab
	ArgURL
)

// Descriptor documents one command kind: the phrases that introduce it, the fields
// it carries and what it does.
type Descriptor struct {
	Kind        Kind
	Verbs       []string
	Arg         Arg
	Fields      string
	Description string
}

// Registry holds the command catalog used by prompts and suggestions.
type Registry struct {
	mu    sync.RWMutex
	descriptors map[Kind]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[Kind]Descriptor),
	}
}

// DefaultRegistry returns a registry describing every built-in kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range builtin {
		// builtin covers each kind exactly once
		_ = r.Register(s)
	}
	return r
}

var builtin = []Descriptor{
	{KindListApps, []string{"list apps", "show apps"}, ArgNone, "", "List running applications"},
	{KindFocusApp, []string{"focus"}, ArgApp, `"app_name": string`, "Bring an application to the front"},
	{KindPlaceApp, []string{"place", "move"}, ArgApp,
		`"app_name": string, "monitor": "main"|"left"|"right" OR "bounds": [left, top, right, bottom], "maximize"?: bool`,
		"Move an application window to a monitor or explicit bounds"},
	{KindCloseApp, []string{"close", "quit"}, ArgApp, `"app_name": string`, "Quit an application"},
	{KindListTabs, []string{"list tabs", "show tabs"}, ArgNone, "", "List open browser tabs with their global index"},
	{KindSwitchTab, []string{"switch to tab", "switch to"}, ArgTab, `"tab_index": positive int`, "Activate the tab at a global index"},
	{KindOpenURL, []string{"open"}, ArgURL, `"url": string`, "Open a URL or site name in a new tab"},
	{KindCloseTab, []string{"close tab", "close tabs"}, ArgNone, `"tab_indices": [positive int, ...]`, "Close the tabs at the given global indices"},
	{KindActivatePreset, []string{"activate", "load"}, ArgPreset, `"preset_name": string`, "Apply a saved window layout"},
	{KindQuery, []string{"what", "which", "how many"}, ArgNone, `"question": string`, "Answer a question about the current desktop"},
}

// Register adds a descriptor to the registry.
func (r *Registry) Register(s Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !knownKind(s.Kind) {
		return errors.Errorf("unknown command kind %q", s.Kind)
	}
	if _, exists := r.descriptors[s.Kind]; exists {
		return errors.Errorf("command %q already registered", s.Kind)
	}
	r.descriptors[s.Kind] = s
	return nil
}

// Get returns the descriptor for a kind.
func (r *Registry) Get(kind Kind) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.descriptors[kind]
	return s, ok
}

// GetAll returns all registered descriptors in schema order.
func (r *Registry) GetAll() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.descriptors))
	for _, k := range Kinds {
		if s, ok := r.descriptors[k]; ok {
			out = append(out, s)
		}
	}
	return out
}

func knownKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}
