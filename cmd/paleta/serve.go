package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rafabd1/Paleta/internal/agent"
	"github.com/rafabd1/Paleta/internal/browser"
	"github.com/rafabd1/Paleta/internal/commands"
	"github.com/rafabd1/Paleta/internal/desktop"
	"github.com/rafabd1/Paleta/internal/engine"
	"github.com/rafabd1/Paleta/internal/intent"
	"github.com/rafabd1/Paleta/internal/memory"
	"github.com/rafabd1/Paleta/internal/presets"
	"github.com/rafabd1/Paleta/internal/server"
	"github.com/rafabd1/Paleta/internal/store"
	"github.com/rafabd1/Paleta/internal/suggest"
	"github.com/rafabd1/Paleta/internal/task"
)

const toolTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon that parses and executes commands",
	Long: `Starts the loopback HTTP daemon. It owns the window backend, the browser
connection, the preset file watcher and the suggestion corpus, and serves
the palette front-ends until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	reg := commands.DefaultRegistry()

	runner := task.NewRunner(logger, toolTimeout)
	windows, err := desktop.NewWindows(runner, logger)
	if err != nil {
		logger.Warn("window control unavailable, app commands will fail", zap.Error(err))
		windows = nil
	}
	tabsBrowser := browser.New(browser.Config{
		ControlURL: cfg.Browser.ControlURL,
		Launch:     cfg.Browser.Launch,
	}, logger)

	presetStore := presets.NewStore(cfg.Presets.File, logger)
	if err := presetStore.Load(); err != nil {
		// a broken file at startup is not fatal; fixing it triggers a reload
		logger.Warn("presets not loaded", zap.Error(err))
	}

	journal, err := memory.OpenJournal(cfg.History.Path)
	if err != nil {
		return err
	}
	defer journal.Close()

	answers, err := journal.RecentAnswers(ctx, cfg.Query.Memory)
	if err != nil {
		logger.Warn("earlier answers not loaded", zap.Error(err))
	}

	var answerer engine.Answerer
	tiers := []intent.Parser{intent.NewLocal()}
	gemini, err := intent.NewGemini(ctx, intent.GeminiOptions{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.ModelName,
		Timeout: cfg.LLM.Timeout,
	}, reg, logger)
	if err != nil {
		logger.Warn("gemini unavailable, only local parsing is active", zap.Error(err))
	} else {
		defer gemini.Close()
		tiers = append(tiers, gemini)
		answerer = gemini
	}

	provider := desktop.NewProvider(windows, tabsBrowser, presetStore)
	executor := desktop.NewExecutor(windows, tabsBrowser, monitors(), runner, logger)
	eng := engine.New(executor, provider, answerer,
		engine.WithLogger(logger),
		engine.WithShorthands(cfg.URLShorthands),
		engine.WithQueryMemory(cfg.Query.Memory),
		engine.WithQueryHistory(answers),
		engine.WithAnswerRecorder(journal),
	)

	st := store.New()
	ag := agent.New(ctx, eng, intent.NewChain(logger, tiers...), st, logger, agent.WithJournal(journal))
	defer ag.Close()

	matcher := suggest.NewMatcher(reg, suggest.DefaultLimit)
	srv := server.New(cfg.Server.Addr, ag, matcher, st, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error { return presetStore.Watch(gctx) })
	g.Go(func() error { return matcher.Run(gctx, cfg.Refresh.Interval, provider, journal, logger) })

	err = g.Wait()
	if summary := runner.FailureSummary(); summary != "" {
		logger.Info("tool failures this session", zap.String("summary", summary))
	}
	return err
}

func monitors() desktop.Monitors {
	m := desktop.Monitors{}
	for name, r := range map[commands.Monitor][]int{
		commands.MonitorMain:  cfg.Monitors.Main,
		commands.MonitorLeft:  cfg.Monitors.Left,
		commands.MonitorRight: cfg.Monitors.Right,
	} {
		if len(r) == 4 {
			m[name] = desktop.Rect{Left: r[0], Top: r[1], Right: r[2], Bottom: r[3]}
		}
	}
	return m
}
