package display

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/session-keeper/internal/status"
)

// countingSource counts Snapshot calls.
type countingSource struct {
	agg   *status.Aggregator
	calls atomic.Int32
}

func (c *countingSource) Snapshot() status.Snapshot {
	c.calls.Add(1)
	return c.agg.Snapshot()
}

func TestModel_RefreshTakesSnapshot(t *testing.T) {
	src := &countingSource{agg: status.NewAggregator()}
	m := newModel(src, time.Second)
	before := src.calls.Load()

	src.agg.RecordEvent("acc-1", "Connecting...", status.SeverityInfo)
	next, cmd := m.Update(refreshMsg(time.Now()))

	assert.NotNil(t, cmd, "refresh must schedule the next tick")
	assert.Equal(t, before+1, src.calls.Load())
	assert.Contains(t, next.View(), "Connecting...")
}

func TestModel_Quit(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		m := newModel(&countingSource{agg: status.NewAggregator()}, time.Second)

		next, cmd := m.Update(key)

		require.NotNil(t, cmd, key.String())
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.Empty(t, next.View())
	}
}

func TestModel_OtherKeysIgnored(t *testing.T) {
	m := newModel(&countingSource{agg: status.NewAggregator()}, time.Second)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Nil(t, cmd)
}

func TestModel_WindowSize(t *testing.T) {
	m := newModel(&countingSource{agg: status.NewAggregator()}, time.Second)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Equal(t, 80, next.(model).width)
}

func TestTUI_StopsOnContextCancel(t *testing.T) {
	src := &countingSource{agg: status.NewAggregator()}
	var out bytes.Buffer
	tui := NewTUI(src, 10*time.Millisecond, WithIO(nil, &out))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- tui.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("TUI did not stop after context cancel")
	}
	assert.Greater(t, src.calls.Load(), int32(1), "display should refresh while running")
}
