package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ytmproxy/internal/tasks"
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
	MsgProgressUpdate MsgKind = iota
	MsgWarmComplete
)

type warmOutcome struct {
	result *tasks.WarmResult
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// warmCompleteMsg is the constructor for [MsgWarmComplete]
func warmCompleteMsg(result *tasks.WarmResult, err error) Msg {
	return Msg{kind: MsgWarmComplete, data: warmOutcome{result: result, err: err}}
}
