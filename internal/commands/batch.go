package commands

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Batch is the ordered set of commands derived from one text submission.
type Batch struct {
	Commands            []Command
	NeedsClarification  bool
	ClarificationReason string
}

type wireBatch struct {
	Commands            []json.RawMessage `json:"commands"`
	NeedsClarification  bool              `json:"needs_clarification"`
	ClarificationReason *string           `json:"clarification_reason"`
}

// Decode parses and validates a batch object. It either returns a batch in
// which every command is valid or the error for the first invalid one.
func Decode(data []byte) (*Batch, error) {
	var w wireBatch
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ValidationError{Index: -1, Field: "batch", Reason: err.Error()}
	}
	if w.Commands == nil && !w.NeedsClarification {
		return nil, &ValidationError{Index: -1, Field: "commands", Reason: "is required"}
	}

	b := &Batch{NeedsClarification: w.NeedsClarification}
	if w.ClarificationReason != nil {
		b.ClarificationReason = *w.ClarificationReason
	}
	for i, raw := range w.Commands {
		cmd, err := decodeCommand(i, raw)
		if err != nil {
			return nil, err
		}
		b.Commands = append(b.Commands, cmd)
	}
	if err := Validate(b); err != nil {
		return nil, err
	}
	return b, nil
}

// MarshalJSON encodes the batch in the same shape Decode accepts.
func (b Batch) MarshalJSON() ([]byte, error) {
	cmds := make([]json.RawMessage, 0, len(b.Commands))
	for _, c := range b.Commands {
		raw, err := Encode(c)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, raw)
	}
	var reason *string
	if b.ClarificationReason != "" {
		reason = &b.ClarificationReason
	}
	return json.Marshal(wireBatch{
		Commands:            cmds,
		NeedsClarification:  b.NeedsClarification,
		ClarificationReason: reason,
	})
}

// Encode renders a single command with its "type" tag.
func Encode(c Command) ([]byte, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	obj := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(c.Kind())
	obj["type"] = tag
	return json.Marshal(obj)
}

func (b Bounds) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Slice())
}

// Validate checks every command of b. The first invalid command aborts the
// whole batch.
func Validate(b *Batch) error {
	for i, c := range b.Commands {
		if c == nil {
			return &UnknownCommandTypeError{Index: i}
		}
		if ferr := check(c); ferr != nil {
			return ferr.at(i)
		}
	}
	return nil
}

// ValidateCommand checks a single command outside of a batch.
func ValidateCommand(c Command) error {
	return Validate(&Batch{Commands: []Command{c}})
}

func check(c Command) *fieldError {
	switch c := c.(type) {
	case ListApps, ListTabs:
		return nil
	case FocusApp:
		return required("app_name", c.AppName)
	case CloseApp:
		return required("app_name", c.AppName)
	case PlaceApp:
		if ferr := required("app_name", c.AppName); ferr != nil {
			return ferr
		}
		switch {
		case c.Bounds != nil && c.Monitor != "":
			return invalid("monitor", "cannot be combined with bounds")
		case c.Bounds != nil:
			if reason := c.Bounds.Check(); reason != "" {
				return invalid("bounds", "%s", reason)
			}
		case c.Monitor == "":
			return invalid("monitor", "one of monitor or bounds is required")
		case !c.Monitor.Valid():
			return invalid("monitor", "must be one of main, left, right (got %q)", c.Monitor)
		}
		return nil
	case SwitchTab:
		if c.TabIndex < 1 {
			return invalid("tab_index", "must be a positive integer (got %d)", c.TabIndex)
		}
		return nil
	case OpenURL:
		return required("url", c.URL)
	case CloseTab:
		if len(c.TabIndices) == 0 {
			return invalid("tab_indices", "must be a non-empty list")
		}
		for i, idx := range c.TabIndices {
			if idx < 1 {
				return invalid(fmt.Sprintf("tab_indices[%d]", i), "must be a positive integer (got %d)", idx)
			}
		}
		return nil
	case ActivatePreset:
		return required("preset_name", c.PresetName)
	case Query:
		return required("question", c.Question)
	default:
		return invalid("type", "unsupported command %T", c)
	}
}

func required(field, value string) *fieldError {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "must be a non-empty string")
	}
	return nil
}

func decodeCommand(index int, raw json.RawMessage) (Command, error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return nil, &ValidationError{Index: index, Field: "command", Reason: "must be an object"}
	}
	tag, ferr := f.str("type")
	if ferr != nil {
		return nil, ferr.at(index)
	}

	var cmd Command
	switch Kind(tag) {
	case KindListApps:
		cmd = ListApps{}
	case KindListTabs:
		cmd = ListTabs{}
	case KindFocusApp:
		var c FocusApp
		c.AppName, ferr = f.str("app_name")
		cmd = c
	case KindCloseApp:
		var c CloseApp
		c.AppName, ferr = f.str("app_name")
		cmd = c
	case KindPlaceApp:
		var c PlaceApp
		var monitor string
		if c.AppName, ferr = f.str("app_name"); ferr == nil {
			if monitor, ferr = f.str("monitor"); ferr == nil {
				c.Monitor = Monitor(strings.ToLower(monitor))
				if c.Bounds, ferr = f.bounds("bounds"); ferr == nil {
					c.Maximize, ferr = f.boolean("maximize")
				}
			}
		}
		cmd = c
	case KindSwitchTab:
		var c SwitchTab
		c.TabIndex, ferr = f.integer("tab_index")
		cmd = c
	case KindOpenURL:
		var c OpenURL
		c.URL, ferr = f.str("url")
		cmd = c
	case KindCloseTab:
		var c CloseTab
		c.TabIndices, ferr = f.integers("tab_indices")
		cmd = c
	case KindActivatePreset:
		var c ActivatePreset
		c.PresetName, ferr = f.str("preset_name")
		cmd = c
	case KindQuery:
		var c Query
		c.Question, ferr = f.str("question")
		cmd = c
	default:
		return nil, &UnknownCommandTypeError{Index: index, Type: tag}
	}
	if ferr != nil {
		return nil, ferr.at(index)
	}
	return cmd, nil
}

// fields holds the raw members of one command object. Absent members and
// JSON null decode to zero values and are left to Validate.
type fields map[string]json.RawMessage

func (f fields) get(name string) (json.RawMessage, bool) {
	raw, ok := f[name]
	if !ok || string(raw) == "null" {
		return nil, false
	}
	return raw, true
}

func (f fields) str(name string) (string, *fieldError) {
	raw, ok := f.get(name)
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", invalid(name, "must be a string")
	}
	return s, nil
}

func (f fields) boolean(name string) (bool, *fieldError) {
	raw, ok := f.get(name)
	if !ok {
		return false, nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, invalid(name, "must be a boolean")
	}
	return v, nil
}

func (f fields) integer(name string) (int, *fieldError) {
	raw, ok := f.get(name)
	if !ok {
		return 0, nil
	}
	n, ok := asInt(raw)
	if !ok {
		return 0, invalid(name, "must be an integer")
	}
	return n, nil
}

func (f fields) integers(name string) ([]int, *fieldError) {
	raw, ok := f.get(name)
	if !ok {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, invalid(name, "must be a list of integers")
	}
	out := make([]int, len(items))
	for i, item := range items {
		n, ok := asInt(item)
		if !ok {
			return nil, invalid(fmt.Sprintf("%s[%d]", name, i), "must be an integer")
		}
		out[i] = n
	}
	return out, nil
}

func (f fields) bounds(name string) (*Bounds, *fieldError) {
	if _, ok := f.get(name); !ok {
		return nil, nil
	}
	v, ferr := f.integers(name)
	if ferr != nil {
		return nil, ferr
	}
	if len(v) != 4 {
		return nil, invalid(name, "must have exactly 4 integers [left, top, right, bottom] (got %d)", len(v))
	}
	return &Bounds{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

func asInt(raw json.RawMessage) (int, bool) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}
