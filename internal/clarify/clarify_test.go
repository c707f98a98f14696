package clarify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestAndCancel(t *testing.T) {
	m := New()
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	req := m.Request("open crome", "App name not found")
	assert.Equal(t, AwaitingClarification, m.State())
	assert.Equal(t, "open crome", req.Text)
	assert.Equal(t, "App name not found", req.Reason)
	assert.Equal(t, fixed, req.CreatedAt)
	assert.NotEmpty(t, req.ID)

	pending, ok := m.Pending()
	require.True(t, ok)
	assert.Equal(t, req, pending)

	text, err := m.Resolve(Resolution{Cancel: true})
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, Idle, m.State())

	_, ok = m.Pending()
	assert.False(t, ok)
}

func TestCorrectionLoops(t *testing.T) {
	m := New()
	m.Request("open crome", "unknown app")

	text, err := m.Resolve(Resolution{Text: "  open chrom "})
	require.NoError(t, err)
	assert.Equal(t, "open chrom", text)
	assert.Equal(t, Idle, m.State())

	// the corrected text was ambiguous again
	m.Request(text, "still unknown")
	assert.Equal(t, AwaitingClarification, m.State())

	text, err = m.Resolve(Resolution{Text: "open chrome"})
	require.NoError(t, err)
	assert.Equal(t, "open chrome", text)
}

func TestResolveErrors(t *testing.T) {
	m := New()
	_, err := m.Resolve(Resolution{Text: "anything"})
	assert.ErrorIs(t, err, ErrNoPendingClarification)

	m.Request("x", "y")
	_, err = m.Resolve(Resolution{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyResolution)
	assert.Equal(t, AwaitingClarification, m.State(), "empty correction keeps the request")

	m.Reset()
	assert.Equal(t, Idle, m.State())
	assert.Equal(t, "idle", m.State().String())
}
