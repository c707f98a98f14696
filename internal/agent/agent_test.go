package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/rafabd1/Paleta/internal/clarify"
	"github.com/rafabd1/Paleta/internal/commands"
	"github.com/rafabd1/Paleta/internal/engine"
	"github.com/rafabd1/Paleta/internal/intent"
	"github.com/rafabd1/Paleta/internal/presets"
	"github.com/rafabd1/Paleta/internal/store"
	"github.com/rafabd1/Paleta/internal/tabs"
	"github.com/rafabd1/Paleta/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingExecutor struct {
	mu    sync.Mutex
	calls []commands.Command
	gate  chan struct{}
}

func (c *countingExecutor) Execute(_ context.Context, cmd commands.Command) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, cmd)
	return nil
}

func (c *countingExecutor) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type emptyDesktop struct{}

func (emptyDesktop) RunningApps(context.Context) ([]string, error)   { return []string{"Slack"}, nil }
func (emptyDesktop) InstalledApps(context.Context) ([]string, error) { return nil, nil }
func (emptyDesktop) Tabs(context.Context) ([]tabs.Tab, error)        { return nil, nil }
func (emptyDesktop) Preset(string) (presets.Definition, bool)       { return presets.Definition{}, false }
func (emptyDesktop) PresetNames() []string                          { return nil }

// scriptedParser answers by exact text.
type scriptedParser map[string]*commands.Batch

func (s scriptedParser) Parse(_ context.Context, text string, _ types.Snapshot) (*commands.Batch, error) {
	if b, ok := s[text]; ok {
		return b, nil
	}
	if text == "offline" {
		return nil, errors.Wrap(intent.ErrParserUnavailable, "gemini api error 503")
	}
	return &commands.Batch{NeedsClarification: true, ClarificationReason: intent.ClarifyUnknown}, nil
}

type memJournal struct {
	mu    sync.Mutex
	texts []string
}

func (m *memJournal) RecordSubmission(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

var parser = scriptedParser{
	"focus slack": {Commands: []commands.Command{commands.FocusApp{AppName: "Slack"}}},
	"list apps":   {Commands: []commands.Command{commands.ListApps{}}},
}

func setup(t *testing.T, exec *countingExecutor) (*Agent, *store.Store) {
	t.Helper()
	st := store.New()
	eng := engine.New(exec, emptyDesktop{}, nil)
	a := New(context.Background(), eng, parser, st, zap.NewNop())
	t.Cleanup(a.Close)
	return a, st
}

func waitResult(t *testing.T, st *store.Store) types.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := st.Results.Wait(ctx)
	require.NoError(t, err)
	return res
}

func waitClarification(t *testing.T, st *store.Store) types.Clarification {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := st.Clarifications.Wait(ctx)
	require.NoError(t, err)
	return c
}

func TestSubmitSideEffectYieldsSentinel(t *testing.T) {
	exec := &countingExecutor{}
	j := &memJournal{}
	st := store.New()
	a := New(context.Background(), engine.New(exec, emptyDesktop{}, nil), parser, st, zap.NewNop(), WithJournal(j))
	defer a.Close()

	id, err := a.Submit("  focus slack ")
	require.NoError(t, err)
	res := waitResult(t, st)
	assert.True(t, res.IsDone())
	assert.Equal(t, id, res.ID)
	assert.Equal(t, 1, exec.count())
	assert.Equal(t, []string{"focus slack"}, j.texts)

	_, ok := st.Results.Take()
	assert.False(t, ok, "result is delivered once")
}

func TestSubmitDisplay(t *testing.T) {
	a, st := setup(t, &countingExecutor{})
	_, err := a.Submit("list apps")
	require.NoError(t, err)
	assert.Equal(t, "Running Applications", waitResult(t, st).Title)
}

func TestSubmitEmpty(t *testing.T) {
	a, _ := setup(t, &countingExecutor{})
	_, err := a.Submit("   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestBusyThenRetry(t *testing.T) {
	exec := &countingExecutor{gate: make(chan struct{})}
	a, st := setup(t, exec)

	_, err := a.Submit("focus slack")
	require.NoError(t, err)
	_, err = a.Submit("list apps")
	assert.ErrorIs(t, err, engine.ErrEngineBusy)

	close(exec.gate)
	assert.True(t, waitResult(t, st).IsDone())
	a.Wait()

	_, err = a.Submit("list apps")
	require.NoError(t, err)
	assert.Equal(t, "Running Applications", waitResult(t, st).Title)
}

func TestParserUnavailable(t *testing.T) {
	exec := &countingExecutor{}
	a, st := setup(t, exec)
	_, err := a.Submit("offline")
	require.NoError(t, err)
	res := waitResult(t, st)
	require.True(t, res.IsError())
	assert.Contains(t, res.Error, "503")
	assert.Zero(t, exec.count())
}

func TestClarificationCancel(t *testing.T) {
	exec := &countingExecutor{}
	a, st := setup(t, exec)

	_, err := a.Submit("fcs slk")
	require.NoError(t, err)
	c := waitClarification(t, st)
	assert.Equal(t, "fcs slk", c.Text)
	assert.Equal(t, intent.ClarifyUnknown, c.Reason)
	a.Wait()

	pending, ok := a.Clarification()
	require.True(t, ok)
	assert.Equal(t, c.ID, pending.ID)

	id, err := a.ResolveClarification(clarify.Resolution{Cancel: true})
	require.NoError(t, err)
	assert.Empty(t, id)
	a.Wait()

	assert.Zero(t, exec.count())
	_, ok = st.Results.Take()
	assert.False(t, ok)
	_, ok = a.Clarification()
	assert.False(t, ok)

	_, err = a.ResolveClarification(clarify.Resolution{Cancel: true})
	assert.ErrorIs(t, err, clarify.ErrNoPendingClarification)
}

func TestClarificationCorrected(t *testing.T) {
	exec := &countingExecutor{}
	a, st := setup(t, exec)

	_, err := a.Submit("fcs slk")
	require.NoError(t, err)
	waitClarification(t, st)
	a.Wait()

	_, err = a.ResolveClarification(clarify.Resolution{Text: "  "})
	assert.ErrorIs(t, err, clarify.ErrEmptyResolution)

	// the correction can itself be ambiguous
	_, err = a.ResolveClarification(clarify.Resolution{Text: "still unclear"})
	require.NoError(t, err)
	c := waitClarification(t, st)
	assert.Equal(t, "still unclear", c.Text)
	a.Wait()

	_, err = a.ResolveClarification(clarify.Resolution{Text: "focus slack"})
	require.NoError(t, err)
	assert.True(t, waitResult(t, st).IsDone())
	assert.Equal(t, 1, exec.count())
}

func TestSubmitSupersedesClarification(t *testing.T) {
	a, st := setup(t, &countingExecutor{})

	_, err := a.Submit("fcs slk")
	require.NoError(t, err)
	waitClarification(t, st)
	a.Wait()

	_, err = a.Submit("list apps")
	require.NoError(t, err)
	waitResult(t, st)
	_, ok := a.Clarification()
	assert.False(t, ok)
}

func TestClarificationKeepsUnreadResult(t *testing.T) {
	a, st := setup(t, &countingExecutor{})

	id, err := a.Submit("list apps")
	require.NoError(t, err)
	a.Wait()

	_, err = a.Submit("fcs slk")
	require.NoError(t, err)
	waitClarification(t, st)
	a.Wait()

	res, ok := st.Results.Take()
	require.True(t, ok, "an ambiguous submission leaves the result slot alone")
	assert.Equal(t, "Running Applications", res.Title)
	assert.Equal(t, id, res.ID)
}

type slowExecutor struct {
	delay time.Duration
	mu    sync.Mutex
	errs  []error
}

func (s *slowExecutor) Execute(ctx context.Context, _ commands.Command) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, ctx.Err())
	return ctx.Err()
}

func TestBatchOutlivesParseTimeout(t *testing.T) {
	exec := &slowExecutor{delay: 40 * time.Millisecond}
	two := scriptedParser{"arrange": {Commands: []commands.Command{
		commands.FocusApp{AppName: "Slack"},
		commands.FocusApp{AppName: "Firefox"},
	}}}
	st := store.New()
	a := New(context.Background(), engine.New(exec, emptyDesktop{}, nil), two, st, zap.NewNop(),
		WithTimeout(50*time.Millisecond))
	defer a.Close()

	_, err := a.Submit("arrange")
	require.NoError(t, err)
	res := waitResult(t, st)
	assert.True(t, res.IsDone(), res.Error)

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Equal(t, []error{nil, nil}, exec.errs)
}
