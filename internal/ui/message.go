package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/linesync/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCoordinatorEvent MsgKind = iota
	MsgEventsClosed
	MsgRefreshDone
	MsgTick
)

type refreshResult struct {
	resource tasks.ResourceType
	err      error
}

// eventMsg is the constructor for [MsgCoordinatorEvent]
func eventMsg(e tasks.Event) Msg {
	return Msg{kind: MsgCoordinatorEvent, data: e}
}

// eventsClosedMsg is the constructor for [MsgEventsClosed]
func eventsClosedMsg() Msg {
	return Msg{kind: MsgEventsClosed}
}

// refreshDoneMsg is the constructor for [MsgRefreshDone]
func refreshDoneMsg(t tasks.ResourceType, err error) Msg {
	return Msg{kind: MsgRefreshDone, data: refreshResult{resource: t, err: err}}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}
