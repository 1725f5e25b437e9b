package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/birdseye/internal/models"
	"github.com/desertthunder/birdseye/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
	run  int // submission the message belongs to, for progress and completion
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLoginComplete MsgKind = iota
	MsgProgressUpdate
	MsgAnalysisComplete
	MsgRedirect
	MsgNotice
)

type loginResult struct {
	session models.Session
	err     error
}

type analysisResult struct {
	file   string
	result *models.AnalysisResult
	err    error
}

// loginCompleteMsg is the constructor for [MsgLoginComplete]
func loginCompleteMsg(sess models.Session, err error) Msg {
	return Msg{kind: MsgLoginComplete, data: loginResult{sess, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// analysisCompleteMsg is the constructor for [MsgAnalysisComplete]
func analysisCompleteMsg(file string, result *models.AnalysisResult, err error) Msg {
	return Msg{kind: MsgAnalysisComplete, data: analysisResult{file, result, err}}
}

// redirectMsg is the constructor for [MsgRedirect]
func redirectMsg() Msg {
	return Msg{kind: MsgRedirect}
}

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(text string) Msg {
	return Msg{kind: MsgNotice, data: text}
}
