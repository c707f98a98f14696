package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/rafabd1/Paleta/internal/agent"
	"github.com/rafabd1/Paleta/internal/clarify"
	"github.com/rafabd1/Paleta/internal/client"
	"github.com/rafabd1/Paleta/internal/commands"
	"github.com/rafabd1/Paleta/internal/engine"
	"github.com/rafabd1/Paleta/internal/presets"
	"github.com/rafabd1/Paleta/internal/store"
	"github.com/rafabd1/Paleta/internal/suggest"
	"github.com/rafabd1/Paleta/internal/tabs"
	"github.com/rafabd1/Paleta/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type stubAgent struct {
	submitErr  error
	resolveErr error
	submitted  []string
	resolved   []clarify.Resolution
}

func (s *stubAgent) Submit(text string) (string, error) {
	if s.submitErr != nil {
		return "", s.submitErr
	}
	s.submitted = append(s.submitted, text)
	return "id-1", nil
}

func (s *stubAgent) ResolveClarification(r clarify.Resolution) (string, error) {
	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	s.resolved = append(s.resolved, r)
	return "id-2", nil
}

type stubSuggester struct{}

func (stubSuggester) Suggest(text string) suggest.Result {
	return suggest.Result{Suggestions: []string{text + "x"}, Hint: text + "x"}
}

func newTestServer(t *testing.T, a Agent, st *store.Store) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New("127.0.0.1:0", a, stubSuggester{}, st, zap.NewNop()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) (int, http.Header, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, resp.Header, out
}

func TestHealthAndCORS(t *testing.T) {
	ts := newTestServer(t, &stubAgent{}, store.New())

	code, h, body := do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))

	code, h, _ = do(t, http.MethodOptions, ts.URL+"/submit", "")
	assert.Equal(t, http.StatusNoContent, code)
	assert.Equal(t, "GET, POST, OPTIONS", h.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", h.Get("Access-Control-Allow-Headers"))
}

func TestSubmitStatuses(t *testing.T) {
	a := &stubAgent{}
	ts := newTestServer(t, a, store.New())

	code, _, body := do(t, http.MethodPost, ts.URL+"/submit", `{"command":"focus slack"}`)
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "id-1", body["id"])
	assert.Equal(t, []string{"focus slack"}, a.submitted)

	code, _, _ = do(t, http.MethodPost, ts.URL+"/submit", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	a.submitErr = agent.ErrEmptyCommand
	code, _, _ = do(t, http.MethodPost, ts.URL+"/submit", `{"command":""}`)
	assert.Equal(t, http.StatusBadRequest, code)

	a.submitErr = engine.ErrEngineBusy
	code, _, body = do(t, http.MethodPost, ts.URL+"/submit", `{"command":"x"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "engine busy", body["error"])

	code, _, _ = do(t, http.MethodGet, ts.URL+"/submit", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestResolveStatuses(t *testing.T) {
	a := &stubAgent{}
	ts := newTestServer(t, a, store.New())

	code, _, body := do(t, http.MethodPost, ts.URL+"/clarification", `{"cancel":true}`)
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "cancelled", body["status"])

	a.resolveErr = clarify.ErrNoPendingClarification
	code, _, _ = do(t, http.MethodPost, ts.URL+"/clarification", `{"text":"focus slack"}`)
	assert.Equal(t, http.StatusConflict, code)
}

func TestResultsPolling(t *testing.T) {
	st := store.New()
	ts := newTestServer(t, &stubAgent{}, st)

	_, _, body := do(t, http.MethodGet, ts.URL+"/results", "")
	assert.Equal(t, false, body["available"])
	assert.Equal(t, false, body["consumed"])
	assert.NotContains(t, body, "result")

	st.Results.Put(types.Result{Title: "Open Tabs", Items: []string{"1. Inbox (gmail.com)"}})

	_, _, body = do(t, http.MethodGet, ts.URL+"/results?peek=1", "")
	assert.Equal(t, true, body["available"])
	assert.Equal(t, false, body["consumed"])

	_, _, body = do(t, http.MethodGet, ts.URL+"/results", "")
	assert.Equal(t, true, body["available"])
	assert.Equal(t, map[string]any{"title": "Open Tabs", "items": []any{"1. Inbox (gmail.com)"}}, body["result"])

	_, _, body = do(t, http.MethodGet, ts.URL+"/results", "")
	assert.Equal(t, false, body["available"])
	assert.Equal(t, true, body["consumed"])

	_, _, body = do(t, http.MethodGet, ts.URL+"/results?wait=20ms", "")
	assert.Equal(t, false, body["available"])
	assert.Equal(t, true, body["consumed"])

	_, _, body = do(t, http.MethodGet, ts.URL+"/results?peek=1", "")
	assert.Equal(t, true, body["consumed"])

	code, _, _ := do(t, http.MethodGet, ts.URL+"/results?wait=soon", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestResultsLongPoll(t *testing.T) {
	st := store.New()
	ts := newTestServer(t, &stubAgent{}, st)

	go func() {
		time.Sleep(50 * time.Millisecond)
		st.Results.Put(types.Done())
	}()
	_, _, body := do(t, http.MethodGet, ts.URL+"/results?wait=2s", "")
	assert.Equal(t, true, body["available"])
	assert.Equal(t, map[string]any{"title": "", "items": []any{}}, body["result"])

	_, _, body = do(t, http.MethodGet, ts.URL+"/results?wait=20ms", "")
	assert.Equal(t, false, body["available"])
}

func TestFlags(t *testing.T) {
	ts := newTestServer(t, &stubAgent{}, store.New())

	_, _, body := do(t, http.MethodGet, ts.URL+"/palette", "")
	assert.Equal(t, false, body["show"])
	do(t, http.MethodPost, ts.URL+"/palette/show", "")
	_, _, body = do(t, http.MethodGet, ts.URL+"/palette", "")
	assert.Equal(t, true, body["show"])
	_, _, body = do(t, http.MethodGet, ts.URL+"/palette", "")
	assert.Equal(t, false, body["show"])

	do(t, http.MethodPost, ts.URL+"/close", "")
	_, _, body = do(t, http.MethodGet, ts.URL+"/close", "")
	assert.Equal(t, true, body["close"])
	_, _, body = do(t, http.MethodGet, ts.URL+"/close", "")
	assert.Equal(t, false, body["close"])
}

func TestSuggest(t *testing.T) {
	ts := newTestServer(t, &stubAgent{}, store.New())
	_, _, body := do(t, http.MethodGet, ts.URL+"/suggest?text=foc", "")
	assert.Equal(t, "focx", body["hint"])
}

type nopExecutor struct{}

func (nopExecutor) Execute(context.Context, commands.Command) error { return nil }

type quietDesktop struct{}

func (quietDesktop) RunningApps(context.Context) ([]string, error)   { return []string{"Slack"}, nil }
func (quietDesktop) InstalledApps(context.Context) ([]string, error) { return nil, nil }
func (quietDesktop) Tabs(context.Context) ([]tabs.Tab, error)        { return nil, nil }
func (quietDesktop) Preset(string) (presets.Definition, bool)       { return presets.Definition{}, false }
func (quietDesktop) PresetNames() []string                          { return nil }

type oneParser struct{}

func (oneParser) Parse(_ context.Context, text string, _ types.Snapshot) (*commands.Batch, error) {
	if text == "focus slack" {
		return &commands.Batch{Commands: []commands.Command{commands.FocusApp{AppName: "Slack"}}}, nil
	}
	return &commands.Batch{NeedsClarification: true, ClarificationReason: "Could not understand the command"}, nil
}

func TestEndToEndWithClient(t *testing.T) {
	st := store.New()
	a := agent.New(context.Background(), engine.New(nopExecutor{}, quietDesktop{}, nil), oneParser{}, st, zap.NewNop())
	defer a.Close()
	ts := newTestServer(t, a, st)
	c := client.New(ts.URL)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	_, err := c.Submit(ctx, "fcs slck")
	require.NoError(t, err)
	clar, ok, err := c.Clarification(ctx, 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fcs slck", clar.Text)
	a.Wait()

	id, err := c.Resolve(ctx, clarify.Resolution{Text: "focus slack"})
	require.NoError(t, err)
	res, ok, err := c.Result(ctx, 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, res.IsDone())
	assert.Equal(t, id, res.ID)
	a.Wait()

	_, err = c.Resolve(ctx, clarify.Resolution{Cancel: true})
	assert.ErrorIs(t, err, clarify.ErrNoPendingClarification)

	_, err = c.Submit(ctx, "")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	require.NoError(t, c.ShowPalette(ctx))
	show, err := c.PaletteRequested(ctx)
	require.NoError(t, err)
	assert.True(t, show)
}

func TestStartRejectsPublicAddress(t *testing.T) {
	s := New("0.0.0.0:0", &stubAgent{}, stubSuggester{}, store.New(), zap.NewNop())
	assert.Error(t, s.Start(context.Background()))
}

func TestStartAndShutdown(t *testing.T) {
	s := New("127.0.0.1:0", &stubAgent{}, stubSuggester{}, store.New(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return !strings.HasSuffix(s.Addr(), ":0") }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, client.New(s.Addr()).Health(context.Background()))

	cancel()
	assert.NoError(t, <-done)
}
