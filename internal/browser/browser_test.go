package browser

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCDP struct {
	mu      sync.Mutex
	targets []*proto.TargetTargetInfo
	windows map[proto.TargetTargetID]int
	methods []string
	params  []interface{}
}

func (f *fakeCDP) Call(_ context.Context, _, method string, params interface{}) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, method)
	f.params = append(f.params, params)

	switch p := params.(type) {
	case proto.TargetGetTargets:
		return json.Marshal(proto.TargetGetTargetsResult{TargetInfos: f.targets})
	case proto.BrowserGetWindowForTarget:
		w, ok := f.windows[p.TargetID]
		if !ok {
			return nil, errors.New("no window")
		}
		return json.Marshal(proto.BrowserGetWindowForTargetResult{WindowID: proto.BrowserWindowID(w), Bounds: &proto.BrowserBounds{}})
	case proto.TargetCreateTarget:
		return json.Marshal(proto.TargetCreateTargetResult{TargetID: "new"})
	case proto.TargetCloseTarget:
		return json.Marshal(proto.TargetCloseTargetResult{Success: true})
	}
	return []byte("{}"), nil
}

func newFake(f *fakeCDP) *Browser {
	b := New(Config{}, zap.NewNop())
	b.client = func(context.Context) (proto.Client, error) { return f, nil }
	return b
}

func page(id, title, url string) *proto.TargetTargetInfo {
	return &proto.TargetTargetInfo{TargetID: proto.TargetTargetID(id), Type: proto.TargetTargetInfoTypePage, Title: title, URL: url}
}

func TestTabsGroupsByWindow(t *testing.T) {
	f := &fakeCDP{
		targets: []*proto.TargetTargetInfo{
			page("a", "Inbox", "https://mail.google.com"),
			{TargetID: "w", Type: "service_worker", URL: "https://x.com/sw.js"},
			page("b", "Docs", "https://docs.google.com"),
			page("c", "DevTools", "devtools://devtools/bundled/inspector.html"),
			page("d", "Gone", "https://gone.example"),
			page("e", "Go", "https://go.dev"),
		},
		windows: map[proto.TargetTargetID]int{"a": 7, "b": 3, "c": 3, "e": 7},
	}

	list, err := newFake(f).Tabs(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, 7, list[0].WindowID)
	assert.Equal(t, 0, list[0].Position)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, 3, list[1].WindowID)
	assert.Equal(t, "e", list[2].ID)
	assert.Equal(t, 1, list[2].Position)
}

func TestTabActions(t *testing.T) {
	f := &fakeCDP{}
	b := newFake(f)

	require.NoError(t, b.Activate(context.Background(), "a"))
	require.NoError(t, b.CloseTab(context.Background(), "b"))
	require.NoError(t, b.Open(context.Background(), "https://go.dev"))

	assert.Equal(t, []string{"Target.activateTarget", "Target.closeTarget", "Target.createTarget"}, f.methods)
	assert.Equal(t, proto.TargetActivateTarget{TargetID: "a"}, f.params[0])
	assert.Equal(t, proto.TargetCreateTarget{URL: "https://go.dev"}, f.params[2])
}

func TestNotConnected(t *testing.T) {
	b := New(Config{}, zap.NewNop())
	_, err := b.Tabs(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}
