// Package desktop adapts the host window manager and browser to the engine:
// it executes commands and enumerates running apps, installed apps and tabs.
package desktop

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned on platforms without a window backend.
var ErrUnsupported = errors.New("window control is not supported on this platform")

// Rect is a screen rectangle in pixels.
type Rect struct {
	Left, Top, Right, Bottom int
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// Windows controls application windows through the host window manager.
type Windows interface {
	RunningApps(ctx context.Context) ([]string, error)
	InstalledApps(ctx context.Context) ([]string, error)
	Focus(ctx context.Context, app string) error
	Place(ctx context.Context, app string, r Rect, maximize bool) error
	Close(ctx context.Context, app string) error
}

// AppNotRunningError means no window belongs to the named app.
type AppNotRunningError struct {
	App string
}

func (e *AppNotRunningError) Error() string {
	return "no window found for " + strconv.Quote(e.App)
}

// window is one row of `wmctrl -lx`.
type window struct {
	ID      string
	Desktop int
	Class   string
	Title   string
}

// App is the human name of the window's WM_CLASS, e.g. "Google-chrome"
// for "google-chrome.Google-chrome".
func (w window) App() string {
	if i := strings.LastIndex(w.Class, "."); i >= 0 && i < len(w.Class)-1 {
		return w.Class[i+1:]
	}
	return w.Class
}

// parseWindowList reads `wmctrl -lx` output:
//
//	0x03a00003  0 google-chrome.Google-chrome  host Inbox - Google Chrome
//
// Sticky windows report desktop -1; those are panels and docks.
func parseWindowList(out string) []window {
	var list []window
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 4 {
			continue
		}
		desk, err := strconv.Atoi(f[1])
		if err != nil || desk < 0 {
			continue
		}
		w := window{ID: f[0], Desktop: desk, Class: f[2]}
		if len(f) > 4 {
			w.Title = strings.Join(f[4:], " ")
		}
		list = append(list, w)
	}
	return list
}

// appNames returns the distinct app names of list in first-seen order.
func appNames(list []window) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range list {
		name := w.App()
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		out = append(out, name)
	}
	return out
}

// findWindow picks the first window whose class or title names app.
func findWindow(list []window, app string) (window, bool) {
	want := strings.ToLower(app)
	for _, w := range list {
		if strings.ToLower(w.App()) == want || strings.EqualFold(w.Class, app) {
			return w, true
		}
	}
	for _, w := range list {
		if strings.Contains(strings.ToLower(w.Class), want) || strings.Contains(strings.ToLower(w.Title), want) {
			return w, true
		}
	}
	return window{}, false
}

// parseDesktopEntry returns the Name of a freedesktop .desktop file, or
// false for hidden entries and non-applications.
func parseDesktopEntry(content string) (string, bool) {
	var name string
	inEntry := false
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "[") {
			inEntry = line == "[Desktop Entry]"
			continue
		}
		if !inEntry {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Name":
			if name == "" {
				name = strings.TrimSpace(val)
			}
		case "NoDisplay", "Hidden":
			if strings.EqualFold(strings.TrimSpace(val), "true") {
				return "", false
			}
		case "Type":
			if strings.TrimSpace(val) != "Application" {
				return "", false
			}
		}
	}
	return name, name != ""
}

// sortedUnique sorts names case-insensitively and drops duplicates.
func sortedUnique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := strings.ToLower(n)
		if n == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

// Runner runs an external tool and returns its trimmed stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
	Available(name string) bool
}

// scanApplications reads every .desktop file in dirs and maps display
// names to desktop file IDs. Earlier dirs win on conflicts.
func scanApplications(dirs []string) map[string]string {
	apps := make(map[string]string)
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".desktop") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			name, ok := parseDesktopEntry(string(data))
			if !ok {
				continue
			}
			if _, dup := apps[name]; !dup {
				apps[name] = strings.TrimSuffix(e.Name(), ".desktop")
			}
		}
	}
	return apps
}

// scanBundles lists the .app bundles directly inside dirs.
func scanBundles(dirs []string) []string {
	var names []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".app") {
				names = append(names, strings.TrimSuffix(e.Name(), ".app"))
			}
		}
	}
	return sortedUnique(names)
}
