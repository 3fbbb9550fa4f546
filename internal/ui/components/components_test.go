// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/ui/styles"
)

// =============================================================================
// CHUNK LIST TESTS
// =============================================================================

func TestChunkListStatesAreDistinct(t *testing.T) {
	theme := styles.NewThemeForMode("dark")
	list := NewChunkList(theme)
	list.SetWidth(200)

	loading := list.View()
	if !strings.Contains(loading, "Loading") {
		t.Errorf("loading view = %q, want a loading indicator", loading)
	}
	if strings.Contains(loading, EmptyChunksText) {
		t.Error("loading view must not show the empty placeholder")
	}

	list.SetChunks(nil)
	empty := list.View()
	if !strings.Contains(empty, EmptyChunksText) {
		t.Errorf("empty view = %q, want placeholder", empty)
	}
	if list.State() != ChunksLoaded {
		t.Errorf("State() = %v, want loaded", list.State())
	}

	list.SetChunks([]api.Chunk{
		{ID: 11, Text: "The term is twelve months.", Metadata: map[string]any{"page": float64(3), "source": "contract.pdf"}},
		{ID: 12, Text: "Either party may terminate."},
	})
	view := list.View()
	for _, want := range []string{"Chunk 1/2", "#11", "page 3", "source contract.pdf", "The term is twelve months.", "Either party may terminate."} {
		if !strings.Contains(view, want) {
			t.Errorf("list view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, EmptyChunksText) {
		t.Error("list view must not show the empty placeholder")
	}
}

func TestChunkListSetLoadingStartsSpinner(t *testing.T) {
	list := NewChunkList(styles.NewThemeForMode("dark"))
	list.SetChunks([]api.Chunk{{ID: 1, Text: "x"}})
	if cmd := list.SetLoading(); cmd == nil {
		t.Error("SetLoading should return the spinner tick")
	}
	if list.Len() != 0 || list.State() != ChunksLoading {
		t.Errorf("after SetLoading: len=%d state=%v", list.Len(), list.State())
	}
}

func TestFormatChunkMetadata(t *testing.T) {
	tests := []struct {
		meta map[string]any
		want string
	}{
		{nil, ""},
		{map[string]any{"page": float64(2)}, "page 2"},
		{map[string]any{"source": "a.txt", "page": float64(1), "b": "x", "a": 1.5}, "page 1 · source a.txt · a=1.5 · b=x"},
	}
	for _, tt := range tests {
		if got := FormatChunkMetadata(tt.meta); got != tt.want {
			t.Errorf("FormatChunkMetadata(%v) = %q, want %q", tt.meta, got, tt.want)
		}
	}
}

// =============================================================================
// WRAP TESTS
// =============================================================================

func TestWrap(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"hello world", 5, "hello\nworld"},
		{"a bb ccc dddd", 6, "a bb\nccc\ndddd"},
		{"abcdefghij", 4, "abcd\nefgh\nij"},
		{"keep\nlines", 10, "keep\nlines"},
		{"no wrap", 0, "no wrap"},
	}
	for _, tt := range tests {
		if got := Wrap(tt.in, tt.width); got != tt.want {
			t.Errorf("Wrap(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestWrapWideRunes(t *testing.T) {
	got := Wrap("日本語のテキスト", 6)
	for _, line := range strings.Split(got, "\n") {
		if w := runewidth.StringWidth(line); w > 6 {
			t.Errorf("line %q has width %d, want <= 6", line, w)
		}
	}
}

// =============================================================================
// TOAST TESTS
// =============================================================================

func TestToastManager(t *testing.T) {
	m := NewToastManager()
	m.AddStatus("one")
	m.AddError("two")
	m.AddSuccess("three")
	m.AddStatus("four")

	toasts := m.Toasts()
	if len(toasts) != 3 {
		t.Fatalf("len(Toasts()) = %d, want 3", len(toasts))
	}
	if toasts[0].Message != "four" {
		t.Errorf("newest toast = %q, want four", toasts[0].Message)
	}

	m.Dismiss()
	if got := m.Toasts()[0].Message; got != "three" {
		t.Errorf("after Dismiss newest = %q, want three", got)
	}

	if m.Tick(time.Now().Add(ErrorToastDuration + time.Second)) {
		t.Error("Tick should expire every toast")
	}
}

func TestRenderToastStack(t *testing.T) {
	out := RenderToastStack([]Toast{NewErrorToast("Failed to load chunks")}, 80)
	if !strings.Contains(out, "Failed to load chunks") || !strings.Contains(out, styles.StatusIndicators.Error) {
		t.Errorf("RenderToastStack() = %q", out)
	}
	if RenderToastStack(nil, 80) != "" {
		t.Error("empty stack should render nothing")
	}
}

// =============================================================================
// HEADER AND STATUS BAR
// =============================================================================

func TestHeaderView(t *testing.T) {
	h := NewHeader(styles.NewThemeForMode("dark"))
	h.SetWidth(80)
	h.Title = "contract.pdf"
	h.Subtitle = "indexed"
	h.User = "ada@example.com"
	out := h.View()
	for _, want := range []string{"docent", "contract.pdf", "indexed", "ada@example.com"} {
		if !strings.Contains(out, want) {
			t.Errorf("header missing %q: %q", want, out)
		}
	}
}

func TestStatusBarDropsHintsThatDoNotFit(t *testing.T) {
	bar := NewStatusBar(styles.NewThemeForMode("dark"))
	bar.Status = "ready"
	bar.Bindings = []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "context")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "a very long description that cannot fit")),
	}
	bar.SetWidth(40)
	out := bar.View()
	if !strings.Contains(out, "send") {
		t.Errorf("status bar = %q, want first hint", out)
	}
	if strings.Contains(out, "cannot fit") {
		t.Errorf("status bar = %q, long hint should be dropped", out)
	}
}
