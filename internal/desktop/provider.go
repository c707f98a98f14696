package desktop

import (
	"context"

	"github.com/rafabd1/Paleta/internal/presets"
	"github.com/rafabd1/Paleta/internal/tabs"
)

// Presets is the subset of the preset store the provider reads.
type Presets interface {
	Find(name string) (presets.Definition, bool)
	Names() []string
}

// Provider enumerates desktop context for the engine and the suggestion
// matcher. Nothing is cached here: tabs in particular are read fresh on
// every call.
type Provider struct {
	windows Windows
	browser Browser
	presets Presets
}

func NewProvider(w Windows, b Browser, p Presets) *Provider {
	return &Provider{windows: w, browser: b, presets: p}
}

func (p *Provider) RunningApps(ctx context.Context) ([]string, error) {
	if p.windows == nil {
		return nil, ErrUnsupported
	}
	return p.windows.RunningApps(ctx)
}

func (p *Provider) InstalledApps(ctx context.Context) ([]string, error) {
	if p.windows == nil {
		return nil, ErrUnsupported
	}
	return p.windows.InstalledApps(ctx)
}

func (p *Provider) Tabs(ctx context.Context) ([]tabs.Tab, error) {
	if p.browser == nil {
		return nil, nil
	}
	return p.browser.Tabs(ctx)
}

func (p *Provider) Preset(name string) (presets.Definition, bool) {
	return p.presets.Find(name)
}

func (p *Provider) PresetNames() []string {
	return p.presets.Names()
}
