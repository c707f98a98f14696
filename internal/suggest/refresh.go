package suggest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rafabd1/Paleta/internal/tabs"
)

// Source enumerates the desktop context the corpus is built from.
type Source interface {
	RunningApps(ctx context.Context) ([]string, error)
	InstalledApps(ctx context.Context) ([]string, error)
	Tabs(ctx context.Context) ([]tabs.Tab, error)
	PresetNames() []string
}

// History returns recently submitted commands, newest first.
type History interface {
	RecentSubmissions(ctx context.Context, limit int) ([]string, error)
}

const historyDepth = 50

// Refresh rebuilds the corpus. A failing source only leaves its part empty.
func (m *Matcher) Refresh(ctx context.Context, src Source, hist History, logger *zap.Logger) {
	var c Corpus

	running, err := src.RunningApps(ctx)
	if err != nil {
		logger.Debug("suggest: running apps unavailable", zap.Error(err))
	}
	installed, err := src.InstalledApps(ctx)
	if err != nil {
		logger.Debug("suggest: installed apps unavailable", zap.Error(err))
	}
	c.Apps = mergeUnique(running, installed)

	list, err := src.Tabs(ctx)
	if err != nil {
		logger.Debug("suggest: tabs unavailable", zap.Error(err))
	}
	c.Tabs = tabs.Number(list)
	c.Presets = src.PresetNames()

	if hist != nil {
		if c.History, err = hist.RecentSubmissions(ctx, historyDepth); err != nil {
			logger.Debug("suggest: history unavailable", zap.Error(err))
		}
	}
	m.Update(c)
}

// Run refreshes immediately and then every interval until ctx ends.
func (m *Matcher) Run(ctx context.Context, interval time.Duration, src Source, hist History, logger *zap.Logger) error {
	m.Refresh(ctx, src, hist, logger)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Refresh(ctx, src, hist, logger)
		}
	}
}

func mergeUnique(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lists {
		for _, s := range l {
			if _, ok := seen[s]; ok || s == "" {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
