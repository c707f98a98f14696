package desktop

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rafabd1/Paleta/internal/commands"
	"github.com/rafabd1/Paleta/internal/tabs"
)

// Browser is the tab backend.
type Browser interface {
	Tabs(ctx context.Context) ([]tabs.Tab, error)
	Activate(ctx context.Context, id string) error
	CloseTab(ctx context.Context, id string) error
	Open(ctx context.Context, url string) error
}

// Monitors maps logical monitors to screen rectangles.
type Monitors map[commands.Monitor]Rect

// UnknownMonitorError means a command named a monitor with no rectangle.
type UnknownMonitorError struct {
	Monitor commands.Monitor
}

func (e *UnknownMonitorError) Error() string {
	return "monitor " + string(e.Monitor) + " is not configured"
}

// Executor carries out side-effecting commands on the desktop.
type Executor struct {
	windows  Windows
	browser  Browser
	monitors Monitors
	run      Runner
	logger   *zap.Logger
}

func NewExecutor(w Windows, b Browser, m Monitors, run Runner, logger *zap.Logger) *Executor {
	return &Executor{windows: w, browser: b, monitors: m, run: run, logger: logger}
}

func (x *Executor) Execute(ctx context.Context, cmd commands.Command) error {
	if commands.ReadOnly(cmd) {
		// answered by the engine from a snapshot
		return errors.Errorf("%s is not a desktop action", cmd.Kind())
	}
	switch c := cmd.(type) {
	case commands.FocusApp:
		if x.windows == nil {
			return ErrUnsupported
		}
		return x.windows.Focus(ctx, c.AppName)

	case commands.PlaceApp:
		if x.windows == nil {
			return ErrUnsupported
		}
		r, err := x.rect(c)
		if err != nil {
			return err
		}
		return x.windows.Place(ctx, c.AppName, r, c.Maximize)

	case commands.CloseApp:
		if x.windows == nil {
			return ErrUnsupported
		}
		return x.windows.Close(ctx, c.AppName)

	case commands.SwitchTab:
		t, err := x.tab(ctx, c.TabIndex)
		if err != nil {
			return err
		}
		return x.browser.Activate(ctx, t.ID)

	case commands.CloseTab:
		// one index per call; callers order them highest first
		for _, idx := range c.TabIndices {
			t, err := x.tab(ctx, idx)
			if err != nil {
				return err
			}
			if err := x.browser.CloseTab(ctx, t.ID); err != nil {
				return err
			}
		}
		return nil

	case commands.OpenURL:
		return x.open(ctx, c.URL)
	}
	return errors.Errorf("%s is not a desktop action", cmd.Kind())
}

func (x *Executor) rect(c commands.PlaceApp) (Rect, error) {
	if c.Bounds != nil {
		return Rect{Left: c.Bounds.Left, Top: c.Bounds.Top, Right: c.Bounds.Right, Bottom: c.Bounds.Bottom}, nil
	}
	r, ok := x.monitors[c.Monitor]
	if !ok {
		return Rect{}, &UnknownMonitorError{Monitor: c.Monitor}
	}
	return r, nil
}

// tab resolves a global index against a fresh enumeration.
func (x *Executor) tab(ctx context.Context, index int) (tabs.Indexed, error) {
	if x.browser == nil {
		return tabs.Indexed{}, errors.New("no browser configured")
	}
	list, err := x.browser.Tabs(ctx)
	if err != nil {
		return tabs.Indexed{}, err
	}
	return tabs.Lookup(tabs.Number(list), index)
}

// open prefers a new browser tab and falls back to the system URL handler
// when the browser cannot be reached.
func (x *Executor) open(ctx context.Context, url string) error {
	if x.browser != nil {
		err := x.browser.Open(ctx, url)
		if err == nil {
			return nil
		}
		x.logger.Info("browser open failed, using system handler", zap.String("url", url), zap.Error(err))
	}
	if x.run == nil {
		return errors.Errorf("cannot open %s: no browser or url handler", url)
	}
	name, args := openCommand(url)
	_, err := x.run.Run(ctx, name, args...)
	return err
}
