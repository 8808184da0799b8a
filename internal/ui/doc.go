// Package ui implements an interactive terminal view of a warm run using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [WarmView] : Live progress while identifiers resolve through the proxy
//  2. [ResultView] : Summary counts and a scrollable list of every identifier's outcome
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the [tasks.Warmer], providing non-blocking status reporting during a run.
//
// Keyboard navigation uses vim-style bindings (j/k, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
