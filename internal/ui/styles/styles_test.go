// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewThemeForMode(t *testing.T) {
	dark := NewThemeForMode("dark")
	if !dark.IsDark {
		t.Error("dark theme should report IsDark")
	}
	if dark.MarkdownStyle() != "dark" {
		t.Errorf("MarkdownStyle() = %q, want dark", dark.MarkdownStyle())
	}

	light := NewThemeForMode(" LIGHT ")
	if light.IsDark {
		t.Error("light theme should not report IsDark")
	}
	if light.MarkdownStyle() != "light" {
		t.Errorf("MarkdownStyle() = %q, want light", light.MarkdownStyle())
	}

	if NewTheme() == nil {
		t.Fatal("NewTheme returned nil")
	}
}

func TestLayoutMode(t *testing.T) {
	theme := NewThemeForMode("dark")
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	for _, tt := range tests {
		theme.SetSize(tt.width, 40)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("GetLayoutMode() at width %d = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestRenderHelpersCarryIndicators(t *testing.T) {
	tests := []struct {
		got       string
		indicator string
	}{
		{RenderSuccess("uploaded"), StatusIndicators.Success},
		{RenderError("failed"), StatusIndicators.Error},
		{RenderWarning("indexing"), StatusIndicators.Warning},
		{RenderInfo("note"), StatusIndicators.Info},
	}
	for _, tt := range tests {
		if !strings.Contains(tt.got, tt.indicator) {
			t.Errorf("%q does not contain %q", tt.got, tt.indicator)
		}
	}
}
