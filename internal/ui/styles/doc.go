// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the docent TUI.

All colors use Lip Gloss AdaptiveColor so they follow the terminal
background. The ui.theme setting can force "dark" or "light".

# Color System (colors.go)

  - Purple - assistant answers and selections
  - Cyan - brand, user questions, info
  - Emerald - success and indexed documents
  - Amber - warnings and documents still indexing
  - Rose - errors

StatusIndicators pair every status color with an ASCII shape.

# Theme System (theme.go)

	theme := styles.NewThemeForMode(cfg.UI.Theme)
	header := theme.HeaderTitle.Render("docent")
	md := theme.MarkdownStyle() // "dark" or "light", for glamour
*/
package styles
