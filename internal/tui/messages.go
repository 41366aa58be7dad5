package tui

import "github.com/rbright/drai/internal/session"

// SnapshotMsg carries the latest controller snapshot.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// UpdatesClosedMsg is sent once the controller stops publishing.
type UpdatesClosedMsg struct{}

// ActionResultMsg carries the outcome of a toggle or reset.
type ActionResultMsg struct {
	Action string
	Err    error
}

// CopyResultMsg carries the outcome of copying the note.
type CopyResultMsg struct {
	Err error
}

// ClearNoticeMsg clears a transient notice after a timeout.
type ClearNoticeMsg struct {
	Seq int
}
