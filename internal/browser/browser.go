// Package browser enumerates and drives the tabs of a Chromium-family
// browser over the DevTools protocol.
package browser

import (
	"context"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rafabd1/Paleta/internal/tabs"
)

// ErrNotConnected means no browser with remote debugging could be reached.
var ErrNotConnected = errors.New("browser not connected")

type Config struct {
	// ControlURL is the DevTools websocket of a running browser. When
	// empty and Launch is set, the user's browser is started with
	// remote debugging enabled.
	ControlURL string
	Launch     bool
}

// Browser is a lazily connected DevTools client. Every call re-checks the
// connection so a restarted browser is picked up again.
type Browser struct {
	cfg    Config
	logger *zap.Logger

	mu  sync.Mutex
	rod *rod.Browser

	// client is replaced in tests.
	client func(ctx context.Context) (proto.Client, error)
}

func New(cfg Config, logger *zap.Logger) *Browser {
	b := &Browser{cfg: cfg, logger: logger}
	b.client = b.connect
	return b
}

func (b *Browser) connect(ctx context.Context) (proto.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rod != nil {
		if _, err := b.rod.Version(); err == nil {
			return b.rod.Context(ctx), nil
		}
		b.logger.Info("stale browser connection, reconnecting")
		b.rod = nil
	}

	controlURL := b.cfg.ControlURL
	if controlURL == "" {
		if !b.cfg.Launch {
			return nil, ErrNotConnected
		}
		u, err := launcher.NewUserMode().Launch()
		if err != nil {
			return nil, errors.Wrap(ErrNotConnected, err.Error())
		}
		controlURL = u
	}

	r := rod.New().ControlURL(controlURL)
	if err := r.Connect(); err != nil {
		return nil, errors.Wrapf(ErrNotConnected, "connect %s: %v", controlURL, err)
	}
	b.logger.Info("connected to browser", zap.String("control_url", controlURL))
	b.rod = r
	return r.Context(ctx), nil
}

// Tabs lists every open page target with the window it belongs to.
func (b *Browser) Tabs(ctx context.Context) ([]tabs.Tab, error) {
	c, err := b.client(ctx)
	if err != nil {
		return nil, err
	}
	res, err := proto.TargetGetTargets{}.Call(c)
	if err != nil {
		return nil, errors.Wrap(err, "get targets")
	}
	return collect(res.TargetInfos, func(id proto.TargetTargetID) (int, error) {
		w, err := proto.BrowserGetWindowForTarget{TargetID: id}.Call(c)
		if err != nil {
			return 0, err
		}
		return int(w.WindowID), nil
	}), nil
}

// collect keeps ordinary pages and tags each with its window. Targets whose
// window cannot be resolved are dropped; they are usually closing.
func collect(infos []*proto.TargetTargetInfo, windowOf func(proto.TargetTargetID) (int, error)) []tabs.Tab {
	positions := make(map[int]int)
	var out []tabs.Tab
	for _, info := range infos {
		if info.Type != proto.TargetTargetInfoTypePage || internalURL(info.URL) {
			continue
		}
		win, err := windowOf(info.TargetID)
		if err != nil {
			continue
		}
		out = append(out, tabs.Tab{
			WindowID: win,
			Position: positions[win],
			ID:       string(info.TargetID),
			Title:    info.Title,
			URL:      info.URL,
		})
		positions[win]++
	}
	return out
}

func internalURL(u string) bool {
	return strings.HasPrefix(u, "devtools://") || strings.HasPrefix(u, "chrome-extension://")
}

// Activate brings the tab with the given target ID to the front.
func (b *Browser) Activate(ctx context.Context, id string) error {
	c, err := b.client(ctx)
	if err != nil {
		return err
	}
	return errors.Wrap(proto.TargetActivateTarget{TargetID: proto.TargetTargetID(id)}.Call(c), "activate tab")
}

// CloseTab closes the tab with the given target ID.
func (b *Browser) CloseTab(ctx context.Context, id string) error {
	c, err := b.client(ctx)
	if err != nil {
		return err
	}
	if _, err := (proto.TargetCloseTarget{TargetID: proto.TargetTargetID(id)}).Call(c); err != nil {
		return errors.Wrap(err, "close tab")
	}
	return nil
}

// Open creates a new foreground tab for url.
func (b *Browser) Open(ctx context.Context, url string) error {
	c, err := b.client(ctx)
	if err != nil {
		return err
	}
	if _, err := (proto.TargetCreateTarget{URL: url}).Call(c); err != nil {
		return errors.Wrapf(err, "open %s", url)
	}
	return nil
}
