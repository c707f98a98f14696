// Package engine executes validated command batches against the desktop.
// Only one batch runs at a time: callers take a Lease, and a second caller
// is turned away with ErrEngineBusy instead of waiting.
package engine

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rafabd1/Paleta/internal/commands"
	"github.com/rafabd1/Paleta/internal/intent"
	"github.com/rafabd1/Paleta/internal/memory"
	"github.com/rafabd1/Paleta/internal/presets"
	"github.com/rafabd1/Paleta/internal/tabs"
	"github.com/rafabd1/Paleta/internal/types"
)

// Executor performs one validated, side-effecting command.
type Executor interface {
	Execute(ctx context.Context, cmd commands.Command) error
}

// ContextProvider enumerates the live desktop. Tab enumerations are taken
// fresh on every call.
type ContextProvider interface {
	RunningApps(ctx context.Context) ([]string, error)
	InstalledApps(ctx context.Context) ([]string, error)
	Tabs(ctx context.Context) ([]tabs.Tab, error)
	Preset(name string) (presets.Definition, bool)
	PresetNames() []string
}

// Answerer answers free-form questions about the desktop.
type Answerer interface {
	Answer(ctx context.Context, question string, snap types.Snapshot, history []types.QA) (string, error)
}

// AnswerRecorder persists answered queries.
type AnswerRecorder interface {
	RecordAnswer(ctx context.Context, qa types.QA) error
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithShorthands adds site shorthands on top of DefaultShorthands.
func WithShorthands(m map[string]string) Option {
	return func(e *Engine) {
		for k, v := range m {
			e.shorthands[strings.ToLower(k)] = v
		}
	}
}

// WithQueryMemory sets how many answered queries follow up into the next.
func WithQueryMemory(n int) Option {
	return func(e *Engine) { e.queries = memory.NewRing(n) }
}

// WithQueryHistory seeds query memory with earlier answers, oldest first.
func WithQueryHistory(qas []types.QA) Option {
	return func(e *Engine) { e.seed = qas }
}

func WithAnswerRecorder(r AnswerRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

type Engine struct {
	exec     Executor
	provider ContextProvider
	answerer Answerer
	recorder AnswerRecorder
	logger   *zap.Logger

	shorthands map[string]string
	queries    *memory.Ring
	seed       []types.QA

	lock sync.Mutex
}

// New builds an engine. answerer may be nil, in which case queries fail
// with intent.ErrParserUnavailable.
func New(exec Executor, provider ContextProvider, answerer Answerer, opts ...Option) *Engine {
	e := &Engine{
		exec:       exec,
		provider:   provider,
		answerer:   answerer,
		logger:     zap.NewNop(),
		shorthands: make(map[string]string, len(DefaultShorthands)),
		queries:    memory.NewRing(memory.DefaultQueryMemory),
	}
	for k, v := range DefaultShorthands {
		e.shorthands[k] = v
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, qa := range e.seed {
		e.queries.Add(qa)
	}
	e.seed = nil
	return e
}

// Lease is exclusive permission to run batches. It must be released.
type Lease struct {
	engine   *Engine
	released atomic.Bool
}

// Acquire takes the execution lock without waiting.
func (e *Engine) Acquire() (*Lease, error) {
	if !e.lock.TryLock() {
		return nil, ErrEngineBusy
	}
	return &Lease{engine: e}, nil
}

// Release gives the lock back. Extra calls are no-ops.
func (l *Lease) Release() {
	if l.released.CompareAndSwap(false, true) {
		l.engine.lock.Unlock()
	}
}

// Run executes b in order and folds the per-command outcomes into one
// result. Validation and preset resolution happen before any side effect.
func (l *Lease) Run(ctx context.Context, b *commands.Batch) types.Result {
	e := l.engine
	if l.released.Load() {
		return types.Failure("internal error: run on a released lease")
	}
	if err := commands.Validate(b); err != nil {
		e.logger.Info("batch rejected", zap.Error(err))
		return types.Failure(err.Error())
	}
	steps, err := e.plan(b)
	if err != nil {
		e.logger.Info("batch rejected", zap.Error(err))
		return types.Failure(err.Error())
	}

	outcomes := make([]Outcome, 0, len(steps))
	for _, st := range steps {
		outcomes = append(outcomes, e.step(ctx, st)...)
	}
	res := Summarize(outcomes)
	e.logger.Info("batch finished",
		zap.Int("commands", len(b.Commands)),
		zap.Int("operations", len(outcomes)),
		zap.Bool("failed", res.IsError()))
	return res
}

type step struct {
	index int
	cmd   commands.Command
}

// plan expands presets into their placements.
func (e *Engine) plan(b *commands.Batch) ([]step, error) {
	steps := make([]step, 0, len(b.Commands))
	for i, c := range b.Commands {
		ap, ok := c.(commands.ActivatePreset)
		if !ok {
			steps = append(steps, step{index: i, cmd: c})
			continue
		}
		def, ok := e.provider.Preset(ap.PresetName)
		if !ok {
			return nil, &presets.NotFoundError{Name: ap.PresetName, Available: e.provider.PresetNames()}
		}
		for _, pc := range def.Commands() {
			if err := commands.ValidateCommand(pc); err != nil {
				return nil, errors.Wrapf(err, "preset %q", def.Name)
			}
			steps = append(steps, step{index: i, cmd: pc})
		}
	}
	return steps, nil
}

func (e *Engine) step(ctx context.Context, st step) []Outcome {
	switch c := st.cmd.(type) {
	case commands.ListApps:
		apps, err := e.provider.RunningApps(ctx)
		if err != nil {
			return []Outcome{{Index: st.index, Command: c, Err: errors.Wrap(err, "list running apps")}}
		}
		return []Outcome{{Index: st.index, Command: c, Display: &types.Result{Title: "Running Applications", Items: nonNil(apps)}}}

	case commands.ListTabs:
		list, err := e.provider.Tabs(ctx)
		if err != nil {
			return []Outcome{{Index: st.index, Command: c, Err: errors.Wrap(err, "list tabs")}}
		}
		numbered := tabs.Number(list)
		items := make([]string, len(numbered))
		for i, t := range numbered {
			items[i] = t.Label()
		}
		return []Outcome{{Index: st.index, Command: c, Display: &types.Result{Title: "Open Tabs", Items: items}}}

	case commands.Query:
		return []Outcome{e.answer(ctx, st.index, c)}

	case commands.SwitchTab:
		list, err := e.provider.Tabs(ctx)
		if err != nil {
			return []Outcome{{Index: st.index, Command: c, Err: errors.Wrap(err, "list tabs")}}
		}
		if _, err := tabs.Lookup(tabs.Number(list), c.TabIndex); err != nil {
			return []Outcome{{Index: st.index, Command: c, Err: err}}
		}
		return []Outcome{e.execute(ctx, st.index, c)}

	case commands.CloseTab:
		return e.closeTabs(ctx, st.index, c)

	case commands.OpenURL:
		c.URL = NormalizeURL(c.URL, e.shorthands)
		return []Outcome{e.execute(ctx, st.index, c)}

	default:
		return []Outcome{e.execute(ctx, st.index, c)}
	}
}

// closeTabs closes the requested tabs highest index first, one executor
// call each. Every index is checked against the tab count observed before
// the first closure; an out-of-range index fails alone.
func (e *Engine) closeTabs(ctx context.Context, index int, c commands.CloseTab) []Outcome {
	list, err := e.provider.Tabs(ctx)
	if err != nil {
		return []Outcome{{Index: index, Command: c, Err: errors.Wrap(err, "list tabs")}}
	}
	count := len(list)

	order := tabs.CloseOrder(c.TabIndices)
	out := make([]Outcome, 0, len(order))
	for _, idx := range order {
		one := commands.CloseTab{TabIndices: []int{idx}}
		if idx > count {
			out = append(out, Outcome{Index: index, Command: one, Err: &tabs.IndexOutOfRangeError{Index: idx, Count: count}})
			continue
		}
		out = append(out, e.execute(ctx, index, one))
	}
	return out
}

func (e *Engine) execute(ctx context.Context, index int, c commands.Command) Outcome {
	start := time.Now()
	err := e.exec.Execute(ctx, c)
	fields := []zap.Field{
		zap.Int("index", index),
		zap.String("command", commands.Describe(c)),
		zap.Duration("took", time.Since(start)),
	}
	if err != nil {
		e.logger.Warn("command failed", append(fields, zap.Error(err))...)
		return Outcome{Index: index, Command: c, Err: &ExecutorFailure{Command: c, Err: err}}
	}
	e.logger.Debug("command done", fields...)
	return Outcome{Index: index, Command: c}
}

func (e *Engine) answer(ctx context.Context, index int, q commands.Query) Outcome {
	if e.answerer == nil {
		return Outcome{Index: index, Command: q, Err: errors.Wrap(intent.ErrParserUnavailable, "no answerer configured")}
	}
	ans, err := e.answerer.Answer(ctx, q.Question, e.Snapshot(ctx), e.queries.Recent())
	if err != nil {
		return Outcome{Index: index, Command: q, Err: err}
	}

	qa := types.QA{Question: q.Question, Answer: ans, At: time.Now()}
	e.queries.Add(qa)
	if e.recorder != nil {
		if err := e.recorder.RecordAnswer(ctx, qa); err != nil {
			e.logger.Warn("could not record answer", zap.Error(err))
		}
	}
	return Outcome{Index: index, Command: q, Display: &types.Result{Title: q.Question, Items: lines(ans)}}
}

// Snapshot collects the context handed to the intent parser. Enumeration
// failures leave the matching part empty.
func (e *Engine) Snapshot(ctx context.Context) types.Snapshot {
	var snap types.Snapshot
	var err error
	if snap.RunningApps, err = e.provider.RunningApps(ctx); err != nil {
		e.logger.Debug("snapshot: running apps unavailable", zap.Error(err))
	}
	if snap.InstalledApps, err = e.provider.InstalledApps(ctx); err != nil {
		e.logger.Debug("snapshot: installed apps unavailable", zap.Error(err))
	}
	list, err := e.provider.Tabs(ctx)
	if err != nil {
		e.logger.Debug("snapshot: tabs unavailable", zap.Error(err))
	}
	snap.Tabs = tabs.Number(list)
	snap.Presets = e.provider.PresetNames()
	return snap
}

func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(strings.TrimSpace(s), "\n") {
		if l = strings.TrimRight(l, " \t\r"); l != "" {
			out = append(out, l)
		}
	}
	return nonNil(out)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
