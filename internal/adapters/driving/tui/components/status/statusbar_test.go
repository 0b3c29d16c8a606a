package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBar_States(t *testing.T) {
	b := NewBar(nil, nil)
	b.SetWidth(120)
	assert.Equal(t, StateReady, b.State())
	assert.Contains(t, b.View(), "Ready")

	b.SetState(StateQuerying)
	assert.Contains(t, b.View(), "Querying...")

	b.SetState(StateError)
	b.SetMessage("boom")
	assert.Contains(t, b.View(), "Error: boom")
	assert.Equal(t, "boom", b.Message())
}

func TestBar_Progress(t *testing.T) {
	b := NewBar(nil, nil)
	b.SetWidth(160)
	b.SetState(StateResults)

	b.SetProgress(3, 1, true, nil)
	view := b.View()
	assert.Contains(t, view, "3 items, 1 page")
	assert.Contains(t, view, "(more)")
	assert.Contains(t, view, "next page")

	b.SetProgress(5, 2, false, []string{"objkt"})
	view = b.View()
	assert.Contains(t, view, "5 items, 2 pages")
	assert.Contains(t, view, "(end)")
	assert.Contains(t, view, "failed: objkt")
	assert.Equal(t, 2, b.Pages())
	assert.False(t, b.More())

	b.Clear()
	assert.Equal(t, 0, b.ItemCount())
	assert.Equal(t, StateReady, b.State())
}
