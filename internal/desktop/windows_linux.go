//go:build linux

package desktop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const installedTTL = 5 * time.Minute

// wmctrl drives EWMH window managers through the wmctrl tool and launches
// apps with gtk-launch.
type wmctrl struct {
	run    Runner
	logger *zap.Logger
	dirs   []string

	mu        sync.Mutex
	installed map[string]string
	scannedAt time.Time
}

// NewWindows returns the window backend for this platform.
func NewWindows(run Runner, logger *zap.Logger) (Windows, error) {
	if !run.Available("wmctrl") {
		return nil, errors.Wrap(ErrUnsupported, "wmctrl not found on PATH")
	}
	home, _ := os.UserHomeDir()
	return &wmctrl{
		run:    run,
		logger: logger,
		dirs: []string{
			filepath.Join(home, ".local/share/applications"),
			"/usr/local/share/applications",
			"/usr/share/applications",
			"/var/lib/flatpak/exports/share/applications",
			"/var/lib/snapd/desktop/applications",
		},
	}, nil
}

func (w *wmctrl) list(ctx context.Context) ([]window, error) {
	out, err := w.run.Run(ctx, "wmctrl", "-lx")
	if err != nil {
		return nil, errors.Wrap(err, "list windows")
	}
	return parseWindowList(out), nil
}

func (w *wmctrl) RunningApps(ctx context.Context) ([]string, error) {
	list, err := w.list(ctx)
	if err != nil {
		return nil, err
	}
	return appNames(list), nil
}

func (w *wmctrl) apps() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.installed == nil || time.Since(w.scannedAt) > installedTTL {
		w.installed = scanApplications(w.dirs)
		w.scannedAt = time.Now()
		w.logger.Debug("scanned installed applications", zap.Int("count", len(w.installed)))
	}
	return w.installed
}

func (w *wmctrl) InstalledApps(context.Context) ([]string, error) {
	apps := w.apps()
	names := make([]string, 0, len(apps))
	for n := range apps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (w *wmctrl) target(ctx context.Context, app string) (window, error) {
	list, err := w.list(ctx)
	if err != nil {
		return window{}, err
	}
	win, ok := findWindow(list, app)
	if !ok {
		return window{}, &AppNotRunningError{App: app}
	}
	return win, nil
}

// Focus raises the app's window, launching the app when it has none.
func (w *wmctrl) Focus(ctx context.Context, app string) error {
	win, err := w.target(ctx, app)
	var notRunning *AppNotRunningError
	if errors.As(err, &notRunning) {
		return w.launch(ctx, app)
	}
	if err != nil {
		return err
	}
	_, err = w.run.Run(ctx, "wmctrl", "-i", "-a", win.ID)
	return err
}

func (w *wmctrl) launch(ctx context.Context, app string) error {
	id, ok := w.apps()[app]
	if !ok {
		for name, candidate := range w.apps() {
			if strings.EqualFold(name, app) {
				id, ok = candidate, true
				break
			}
		}
	}
	if !ok {
		return &AppNotRunningError{App: app}
	}
	w.logger.Info("launching app", zap.String("app", app), zap.String("desktop_id", id))
	_, err := w.run.Run(ctx, "gtk-launch", id)
	return err
}

// Place un-maximizes the window, moves it into r and optionally maximizes
// it again on the monitor it now sits on.
func (w *wmctrl) Place(ctx context.Context, app string, r Rect, maximize bool) error {
	win, err := w.target(ctx, app)
	if err != nil {
		return err
	}
	if _, err := w.run.Run(ctx, "wmctrl", "-i", "-r", win.ID, "-b", "remove,maximized_vert,maximized_horz"); err != nil {
		return err
	}
	geometry := fmt.Sprintf("0,%d,%d,%d,%d", r.Left, r.Top, r.Width(), r.Height())
	if _, err := w.run.Run(ctx, "wmctrl", "-i", "-r", win.ID, "-e", geometry); err != nil {
		return err
	}
	if maximize {
		if _, err := w.run.Run(ctx, "wmctrl", "-i", "-r", win.ID, "-b", "add,maximized_vert,maximized_horz"); err != nil {
			return err
		}
	}
	_, err = w.run.Run(ctx, "wmctrl", "-i", "-a", win.ID)
	return err
}

func (w *wmctrl) Close(ctx context.Context, app string) error {
	win, err := w.target(ctx, app)
	if err != nil {
		return err
	}
	_, err = w.run.Run(ctx, "wmctrl", "-i", "-c", win.ID)
	return err
}

// openCommand opens a URL with the desktop's default handler.
func openCommand(url string) (string, []string) {
	return "xdg-open", []string{url}
}
