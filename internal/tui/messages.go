package tui

import (
	"folio/internal/admin"
	"folio/internal/delivery"
	"folio/internal/model"
)

// Async message types for Bubble Tea commands.

type loginResultMsg struct {
	session model.Session
	err     error
}

type loadedMsg struct {
	snap admin.Snapshot
	err  error
}

type actionResultMsg struct {
	action string // "Mark read", "Mark unread", "Delete"
	id     string
	err    error
}

type replyResultMsg struct {
	res delivery.Result
	err error
}

// sessionChangedMsg carries an auth event from the session subscription.
type sessionChangedMsg struct {
	event model.AuthEvent
}

type statusMsg string
