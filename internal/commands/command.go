package commands

import (
	"fmt"
	"strings"
)

// Kind is the wire tag of a command.
type Kind string

const (
	KindListApps       Kind = "list_apps"
	KindFocusApp       Kind = "focus_app"
	KindPlaceApp       Kind = "place_app"
	KindCloseApp       Kind = "close_app"
	KindListTabs       Kind = "list_tabs"
	KindSwitchTab      Kind = "switch_tab"
	KindOpenURL        Kind = "open_url"
	KindCloseTab       Kind = "close_tab"
	KindActivatePreset Kind = "activate_preset"
	KindQuery          Kind = "query"
)

// Kinds lists every accepted tag in schema order.
var Kinds = []Kind{
	KindListApps, KindFocusApp, KindPlaceApp, KindCloseApp, KindListTabs,
	KindSwitchTab, KindOpenURL, KindCloseTab, KindActivatePreset, KindQuery,
}

// Command is one desktop operation. The set of implementations is closed:
// only the types in this file satisfy it.
type Command interface {
	Kind() Kind
	command()
}

// Monitor names one of the configured displays.
type Monitor string

const (
	MonitorMain  Monitor = "main"
	MonitorLeft  Monitor = "left"
	MonitorRight Monitor = "right"
)

// Valid reports whether m is one of the known monitors.
func (m Monitor) Valid() bool {
	switch m {
	case MonitorMain, MonitorLeft, MonitorRight:
		return true
	}
	return false
}

// Bounds is a window rectangle in screen pixels, encoded on the wire as
// [left, top, right, bottom].
type Bounds struct {
	Left, Top, Right, Bottom int
}

func (b Bounds) Width() int  { return b.Right - b.Left }
func (b Bounds) Height() int { return b.Bottom - b.Top }

// Check returns a reason when b does not describe a non-empty rectangle.
func (b Bounds) Check() string {
	if b.Left >= b.Right {
		return fmt.Sprintf("left (%d) must be less than right (%d)", b.Left, b.Right)
	}
	if b.Top >= b.Bottom {
		return fmt.Sprintf("top (%d) must be less than bottom (%d)", b.Top, b.Bottom)
	}
	return ""
}

func (b Bounds) Slice() []int { return []int{b.Left, b.Top, b.Right, b.Bottom} }

type ListApps struct{}

type FocusApp struct {
	AppName string `json:"app_name"`
}

// PlaceApp moves an application window onto a monitor or into explicit
// bounds. Exactly one of Monitor and Bounds is set.
type PlaceApp struct {
	AppName  string  `json:"app_name"`
	Monitor  Monitor `json:"monitor,omitempty"`
	Bounds   *Bounds `json:"bounds,omitempty"`
	Maximize bool    `json:"maximize,omitempty"`
}

type CloseApp struct {
	AppName string `json:"app_name"`
}

type ListTabs struct{}

type SwitchTab struct {
	TabIndex int `json:"tab_index"`
}

type OpenURL struct {
	URL string `json:"url"`
}

type CloseTab struct {
	TabIndices []int `json:"tab_indices"`
}

type ActivatePreset struct {
	PresetName string `json:"preset_name"`
}

type Query struct {
	Question string `json:"question"`
}

func (ListApps) Kind() Kind       { return KindListApps }
func (FocusApp) Kind() Kind       { return KindFocusApp }
func (PlaceApp) Kind() Kind       { return KindPlaceApp }
func (CloseApp) Kind() Kind       { return KindCloseApp }
func (ListTabs) Kind() Kind       { return KindListTabs }
func (SwitchTab) Kind() Kind      { return KindSwitchTab }
func (OpenURL) Kind() Kind        { return KindOpenURL }
func (CloseTab) Kind() Kind       { return KindCloseTab }
func (ActivatePreset) Kind() Kind { return KindActivatePreset }
func (Query) Kind() Kind          { return KindQuery }

func (ListApps) command()       {}
func (FocusApp) command()       {}
func (PlaceApp) command()       {}
func (CloseApp) command()       {}
func (ListTabs) command()       {}
func (SwitchTab) command()      {}
func (OpenURL) command()        {}
func (CloseTab) command()       {}
func (ActivatePreset) command() {}
func (Query) command()          {}

// ReadOnly reports whether executing c has no side effect on the desktop.
func ReadOnly(c Command) bool {
	switch c.(type) {
	case ListApps, ListTabs, Query:
		return true
	}
	return false
}

// Describe renders c for logs and failure listings.
func Describe(c Command) string {
	switch c := c.(type) {
	case FocusApp:
		return fmt.Sprintf("focus_app %q", c.AppName)
	case PlaceApp:
		where := string(c.Monitor)
		if c.Bounds != nil {
			where = fmt.Sprintf("%v", c.Bounds.Slice())
		}
		if c.Maximize {
			where += " maximized"
		}
		return fmt.Sprintf("place_app %q on %s", c.AppName, where)
	case CloseApp:
		return fmt.Sprintf("close_app %q", c.AppName)
	case SwitchTab:
		return fmt.Sprintf("switch_tab %d", c.TabIndex)
	case OpenURL:
		return fmt.Sprintf("open_url %q", c.URL)
	case CloseTab:
		parts := make([]string, len(c.TabIndices))
		for i, idx := range c.TabIndices {
			parts[i] = fmt.Sprint(idx)
		}
		return "close_tab " + strings.Join(parts, ",")
	case ActivatePreset:
		return fmt.Sprintf("activate_preset %q", c.PresetName)
	case Query:
		return fmt.Sprintf("query %q", c.Question)
	default:
		return string(c.Kind())
	}
}
