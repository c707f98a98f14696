// Package presets loads named window layouts. A preset file maps each name
// to an ordered list of placements:
//
//	coding:
//	  - app_name: Google Chrome
//	    monitor: left
//	  - app_name: Cursor
//	    monitor: right
//	    maximize: true
//
// JSON preset files are accepted too, since YAML is a superset of JSON.
package presets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rafabd1/Paleta/internal/commands"
)

// Placement is one step of a preset.
type Placement struct {
	AppName  string `yaml:"app_name" json:"app_name"`
	Monitor  string `yaml:"monitor,omitempty" json:"monitor,omitempty"`
	Bounds   []int  `yaml:"bounds,omitempty" json:"bounds,omitempty"`
	Maximize bool   `yaml:"maximize,omitempty" json:"maximize,omitempty"`
}

// Command converts the placement into the place_app command it runs as.
func (p Placement) Command() commands.PlaceApp {
	c := commands.PlaceApp{
		AppName:  p.AppName,
		Monitor:  commands.Monitor(strings.ToLower(p.Monitor)),
		Maximize: p.Maximize,
	}
	if len(p.Bounds) == 4 {
		c.Bounds = &commands.Bounds{Left: p.Bounds[0], Top: p.Bounds[1], Right: p.Bounds[2], Bottom: p.Bounds[3]}
	}
	return c
}

// Definition is a named, ordered list of placements.
type Definition struct {
	Name       string
	Placements []Placement
}

// Commands expands the preset into place_app commands in listed order.
func (d Definition) Commands() []commands.Command {
	out := make([]commands.Command, len(d.Placements))
	for i, p := range d.Placements {
		out[i] = p.Command()
	}
	return out
}

// Table maps preset names to their placements.
type Table map[string][]Placement

// Parse decodes a preset file. Invalid presets are skipped and reported in
// the returned slice; valid ones are kept.
func Parse(data []byte) (Table, []error) {
	var raw map[string][]Placement
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, []error{errors.Wrap(err, "decode presets")}
	}

	table := make(Table, len(raw))
	var problems []error
	for _, name := range sortedKeys(raw) {
		if err := validate(name, raw[name]); err != nil {
			problems = append(problems, err)
			continue
		}
		table[name] = raw[name]
	}
	return table, problems
}

func validate(name string, placements []Placement) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("preset with empty name")
	}
	if len(placements) == 0 {
		return errors.Errorf("preset %q has no placements", name)
	}
	for i, p := range placements {
		if len(p.Bounds) != 0 && len(p.Bounds) != 4 {
			return errors.Errorf("preset %q entry %d: bounds must have 4 integers", name, i)
		}
		if err := commands.ValidateCommand(p.Command()); err != nil {
			var verr *commands.ValidationError
			if errors.As(err, &verr) {
				return errors.Errorf("preset %q entry %d: invalid %s: %s", name, i, verr.Field, verr.Reason)
			}
			return errors.Wrapf(err, "preset %q entry %d", name, i)
		}
	}
	return nil
}

// Names returns the preset names in lexical order.
func (t Table) Names() []string {
	return sortedKeys(t)
}

// Find resolves a spoken or typed name to its definition. See Resolve.
func (t Table) Find(name string) (Definition, bool) {
	n, ok := Resolve(name, t.Names())
	if !ok {
		return Definition{}, false
	}
	return Definition{Name: n, Placements: t[n]}, true
}

// Resolve picks the preset name meant by text. A case-insensitive exact
// match wins; otherwise a partial match is accepted only when it is unique.
func Resolve(text string, names []string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(text))
	if want == "" {
		return "", false
	}
	for _, n := range names {
		if strings.ToLower(n) == want {
			return n, true
		}
	}

	var hits []string
	for _, n := range names {
		lower := strings.ToLower(n)
		if strings.Contains(lower, want) || strings.Contains(want, lower) {
			hits = append(hits, n)
		}
	}
	if len(hits) != 1 {
		return "", false
	}
	return hits[0], true
}

// NotFoundError reports an unknown preset name.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("preset %q not found: no presets are defined", e.Name)
	}
	return fmt.Sprintf("preset %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
