//go:build darwin

package desktop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// appleScript drives apps through System Events. macOS has no maximize
// short of full screen, so maximize fills the target rectangle.
type appleScript struct {
	run    Runner
	logger *zap.Logger
	dirs   []string
}

func NewWindows(run Runner, logger *zap.Logger) (Windows, error) {
	if !run.Available("osascript") {
		return nil, errors.Wrap(ErrUnsupported, "osascript not found on PATH")
	}
	home, _ := os.UserHomeDir()
	return &appleScript{
		run:    run,
		logger: logger,
		dirs:   []string{"/Applications", "/System/Applications", "/System/Applications/Utilities", filepath.Join(home, "Applications")},
	}, nil
}

func (a *appleScript) script(ctx context.Context, src string) (string, error) {
	return a.run.Run(ctx, "osascript", "-e", src)
}

func (a *appleScript) RunningApps(ctx context.Context) ([]string, error) {
	out, err := a.script(ctx, `tell application "System Events" to get name of every application process whose background only is false`)
	if err != nil {
		return nil, errors.Wrap(err, "list running apps")
	}
	var apps []string
	for _, name := range strings.Split(out, ",") {
		if name = strings.TrimSpace(name); name != "" {
			apps = append(apps, name)
		}
	}
	return apps, nil
}

func (a *appleScript) InstalledApps(context.Context) ([]string, error) {
	return scanBundles(a.dirs), nil
}

// Focus activates the app, launching it if needed.
func (a *appleScript) Focus(ctx context.Context, app string) error {
	_, err := a.script(ctx, fmt.Sprintf(`tell application %q to activate`, app))
	return err
}

func (a *appleScript) Place(ctx context.Context, app string, r Rect, _ bool) error {
	src := fmt.Sprintf(`tell application "System Events" to tell process %q
	set frontmost to true
	set position of window 1 to {%d, %d}
	set size of window 1 to {%d, %d}
end tell`, app, r.Left, r.Top, r.Width(), r.Height())
	if _, err := a.script(ctx, src); err != nil {
		return errors.Wrapf(err, "place %s", app)
	}
	return nil
}

func (a *appleScript) Close(ctx context.Context, app string) error {
	_, err := a.script(ctx, fmt.Sprintf(`tell application %q to quit`, app))
	return err
}

func openCommand(url string) (string, []string) {
	return "open", []string{url}
}
