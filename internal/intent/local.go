package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rafabd1/Paleta/internal/commands"
	"github.com/rafabd1/Paleta/internal/presets"
	"github.com/rafabd1/Paleta/internal/types"
)

// hardcoded phrases need no context at all.
var hardcoded = map[string]commands.Command{
	"list apps":         commands.ListApps{},
	"list applications": commands.ListApps{},
	"what's running":    commands.ListApps{},
	"whats running":     commands.ListApps{},
	"show apps":         commands.ListApps{},
	"show applications": commands.ListApps{},
	"apps":              commands.ListApps{},
	"applications":      commands.ListApps{},
	"list tabs":         commands.ListTabs{},
	"show tabs":         commands.ListTabs{},
	"tabs":              commands.ListTabs{},
}

var (
	placePattern  = regexp.MustCompile(`^(?:place|put|move|show|open)\s+(.+?)\s+on\s+(?:the\s+)?(main|left|right|center)\s+(?:monitor|screen|display)(\s+and\s+maximi[sz]e)?$`)
	focusPattern  = regexp.MustCompile(`^(?:focus|bring|show|open|launch|switch\s+to)\s+(.+?)(?:\s+to\s+(?:the\s+)?front)?$`)
	closePattern  = regexp.MustCompile(`^(?:close|quit)\s+(.+)$`)
	switchPattern = regexp.MustCompile(`^(?:switch\s+to\s+tab|go\s+to\s+tab|tab)\s+(\d+)$`)
	closeTabs     = regexp.MustCompile(`^close\s+tabs?\s+(\d+(?:\s*(?:,|and)\s*\d+)*)$`)
	openURL       = regexp.MustCompile(`^(?:open|go\s+to|visit)\s+(\S+\.\S+)$`)
	presetPattern = regexp.MustCompile(`^(?:activate|load|set\s+up|switch\s+to)\s+(.+)$`)
	indexSplit    = regexp.MustCompile(`\s*(?:,|and)\s*`)
)

// Local understands fixed phrases and a handful of command shapes without
// calling out. Anything else is ErrNoMatch.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (l *Local) Parse(_ context.Context, text string, snap types.Snapshot) (*commands.Batch, error) {
	norm := normalize(text)
	if norm == "" {
		return nil, ErrNoMatch
	}
	if c, ok := hardcoded[norm]; ok {
		return single(c), nil
	}

	if m := switchPattern.FindStringSubmatch(norm); m != nil {
		n, _ := strconv.Atoi(m[1])
		return single(commands.SwitchTab{TabIndex: n}), nil
	}
	if m := closeTabs.FindStringSubmatch(norm); m != nil {
		var idx []int
		for _, part := range indexSplit.Split(m[1], -1) {
			n, _ := strconv.Atoi(part)
			idx = append(idx, n)
		}
		return single(commands.CloseTab{TabIndices: idx}), nil
	}
	if m := placePattern.FindStringSubmatch(norm); m != nil {
		if app, ok := MatchApp(m[1], snap.RunningApps, snap.InstalledApps); ok {
			monitor := commands.Monitor(m[2])
			if m[2] == "center" {
				monitor = commands.MonitorMain
			}
			return single(commands.PlaceApp{AppName: app, Monitor: monitor, Maximize: m[3] != ""}), nil
		}
	}
	if m := openURL.FindStringSubmatch(norm); m != nil {
		return single(commands.OpenURL{URL: m[1]}), nil
	}
	if m := presetPattern.FindStringSubmatch(norm); m != nil {
		if name, ok := presets.Resolve(m[1], snap.Presets); ok {
			return single(commands.ActivatePreset{PresetName: name}), nil
		}
	}
	if m := focusPattern.FindStringSubmatch(norm); m != nil {
		if app, ok := MatchApp(m[1], snap.RunningApps, snap.InstalledApps); ok {
			return single(commands.FocusApp{AppName: app}), nil
		}
	}
	if m := closePattern.FindStringSubmatch(norm); m != nil {
		if app, ok := MatchApp(m[1], snap.RunningApps, snap.InstalledApps); ok {
			return single(commands.CloseApp{AppName: app}), nil
		}
	}

	// a bare preset name, then a bare app name of a few words
	if name, ok := presets.Resolve(norm, snap.Presets); ok {
		return single(commands.ActivatePreset{PresetName: name}), nil
	}
	if len(strings.Fields(norm)) <= 3 {
		if app, ok := MatchApp(norm, snap.RunningApps, snap.InstalledApps); ok {
			return single(commands.FocusApp{AppName: app}), nil
		}
	}
	return nil, ErrNoMatch
}

// normalize lower-cases text, collapses whitespace and drops the trailing
// punctuation speech-to-text tends to add.
func normalize(text string) string {
	s := strings.ToLower(strings.Join(strings.Fields(text), " "))
	return strings.TrimRight(s, ".!?")
}

func single(c commands.Command) *commands.Batch {
	return &commands.Batch{Commands: []commands.Command{c}}
}
