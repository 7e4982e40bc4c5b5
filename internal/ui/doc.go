// Package ui implements the watch view, an interactive terminal dashboard using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [StatusView] : One row per cached collection with item count, refresh age and state
//  2. [DetailView] : The items of the selected collection in a filterable list
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Coordinator events arrive over a subscription channel, so background refreshes show up without polling;
// silent refreshes are logged but never switch the view into a loading state.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r/R, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
