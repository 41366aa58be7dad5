package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rbright/drai/internal/consultation"
	"github.com/rbright/drai/internal/fsm"
	"github.com/rbright/drai/internal/render"
	"github.com/rbright/drai/internal/session"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	snap      session.Snapshot
	updates   chan session.Snapshot
	toggles   int
	resets    int
	toggleErr error
}

func newFakeSession(state fsm.State) *fakeSession {
	return &fakeSession{
		snap:    session.Snapshot{State: state},
		updates: make(chan session.Snapshot, 1),
	}
}

func (f *fakeSession) Snapshot() session.Snapshot { return f.snap }
func (f *fakeSession) Updates() <-chan session.Snapshot { return f.updates }
func (f *fakeSession) Toggle(context.Context) error { f.toggles++; return f.toggleErr }
func (f *fakeSession) Reset() error { f.resets++; return nil }

func sized(m Model, width int) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: 60})
	return updated.(Model)
}

func withSnapshot(t *testing.T, m Model, snap session.Snapshot) Model {
	t.Helper()
	updated, cmd := m.Update(SnapshotMsg{Snapshot: snap})
	require.NotNil(t, cmd)
	return updated.(Model)
}

func key(m Model, k string) (Model, tea.Cmd) {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	if k == " " {
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func reviewData() *consultation.Data {
	return &consultation.Data{
		Transcript: []consultation.Segment{
			{Speaker: consultation.SpeakerDoctor, Timestamp: "00:00", Text: "What brings you in?"},
			{Speaker: consultation.SpeakerPatient, Timestamp: "00:03", Text: "Headache since Monday."},
		},
		Soap: consultation.SoapNote{ChiefComplaint: "Headache", Plan: "Hydration"},
		Flags: []consultation.Flag{
			{Field: "medications", Type: consultation.FlagMissingInfo, Reason: "No medication history"},
		},
	}
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := New(context.Background(), newFakeSession(fsm.StateIdle), nil)
	require.Equal(t, "Initializing...", m.View())
}

func TestIdleViewAndToggle(t *testing.T) {
	fake := newFakeSession(fsm.StateIdle)
	m := sized(New(context.Background(), fake, nil), 80)

	view := m.View()
	require.Contains(t, view, "Ready to Record")
	require.Contains(t, view, "Space")

	m, cmd := key(m, " ")
	require.NotNil(t, cmd)
	require.True(t, m.busy)

	_, again := key(m, "r")
	require.Nil(t, again)

	msg := cmd()
	require.Equal(t, ActionResultMsg{Action: "toggle"}, msg)
	require.Equal(t, 1, fake.toggles)

	updated, _ := m.Update(msg)
	require.False(t, updated.(Model).busy)
}

func TestRecordingViewShowsElapsed(t *testing.T) {
	m := sized(New(context.Background(), newFakeSession(fsm.StateIdle), nil), 80)
	m = withSnapshot(t, m, session.Snapshot{ID: "0123456789abcdef", State: fsm.StateRecording, Elapsed: 65})

	view := m.View()
	require.Contains(t, view, "● REC")
	require.Contains(t, view, "01:05")
	require.Contains(t, view, "01234567")
	require.NotContains(t, view, "0123456789abcdef")
}

func TestProcessingIgnoresToggleAndReset(t *testing.T) {
	fake := newFakeSession(fsm.StateProcessing)
	m := sized(New(context.Background(), fake, nil), 80)
	require.Contains(t, m.View(), "Analyzing Consultation")

	_, cmd := key(m, " ")
	require.Nil(t, cmd)
	_, cmd = key(m, "n")
	require.Nil(t, cmd)
}

func TestReviewViewRendersTranscriptNoteAndFlags(t *testing.T) {
	m := sized(New(context.Background(), newFakeSession(fsm.StateIdle), nil), 80)
	m = withSnapshot(t, m, session.Snapshot{State: fsm.StateReview, Data: reviewData()})

	view := m.View()
	require.Contains(t, view, "Consultation Transcript")
	require.Contains(t, view, "What brings you in?")
	require.Contains(t, view, "S - Subjective")
	require.Contains(t, view, "Headache")
	require.Contains(t, view, "(To be filled by physician)")
	require.Contains(t, view, "MISSING INFO in medications")
	require.Contains(t, view, "New Consultation")
}

func TestReviewMarksFlaggedSoapItems(t *testing.T) {
	m := sized(New(context.Background(), newFakeSession(fsm.StateIdle), nil), 80)
	m = withSnapshot(t, m, session.Snapshot{State: fsm.StateReview, Data: reviewData()})

	var marked []string
	for _, line := range strings.Split(m.View(), "\n") {
		if strings.Contains(line, "[1 flagged]") {
			marked = append(marked, line)
		}
	}
	require.Len(t, marked, 1)
	require.Contains(t, marked[0], "Medical History / Meds")
}

func TestReviewSplitsPanelsOnWideTerminals(t *testing.T) {
	m := sized(New(context.Background(), newFakeSession(fsm.StateIdle), nil), 140)
	m = withSnapshot(t, m, session.Snapshot{State: fsm.StateReview, Data: reviewData()})

	var found bool
	for _, line := range strings.Split(m.View(), "\n") {
		if strings.Contains(line, "Consultation Transcript") && strings.Contains(line, "SOAP Note") {
			found = true
		}
	}
	require.True(t, found)
}

func TestCopyPlacesSoapTextOnClipboard(t *testing.T) {
	var copied string
	copyFn := func(_ context.Context, text string) error {
		copied = text
		return nil
	}
	m := sized(New(context.Background(), newFakeSession(fsm.StateIdle), copyFn), 80)

	_, cmd := key(m, "c")
	require.Nil(t, cmd)

	data := reviewData()
	m = withSnapshot(t, m, session.Snapshot{State: fsm.StateReview, Data: data})
	_, cmd = key(m, "c")
	require.NotNil(t, cmd)

	msg := cmd()
	require.Equal(t, render.SoapText(data.Soap), copied)

	updated, clear := m.Update(msg)
	require.NotNil(t, clear)
	m = updated.(Model)
	require.Contains(t, m.View(), "SOAP note copied to clipboard")

	updated, _ = m.Update(ClearNoticeMsg{Seq: m.noticeSeq - 1})
	require.NotEmpty(t, updated.(Model).notice)
	updated, _ = m.Update(ClearNoticeMsg{Seq: m.noticeSeq})
	require.Empty(t, updated.(Model).notice)
}

func TestCopyFailureShowsNotice(t *testing.T) {
	m := sized(New(context.Background(), newFakeSession(fsm.StateIdle), nil), 80)
	updated, _ := m.Update(CopyResultMsg{Err: errors.New("wl-copy missing")})
	require.Contains(t, updated.(Model).View(), "copy failed: wl-copy missing")
}

func TestErrorViewAndReset(t *testing.T) {
	fake := newFakeSession(fsm.StateIdle)
	m := sized(New(context.Background(), fake, nil), 80)
	m = withSnapshot(t, m, session.Snapshot{State: fsm.StateError, Error: "could not reach Gemini"})

	view := m.View()
	require.Contains(t, view, "could not reach Gemini")
	require.Contains(t, view, "press n to try again")

	m, cmd := key(m, "n")
	require.NotNil(t, cmd)
	require.True(t, m.busy)
	require.Equal(t, ActionResultMsg{Action: "reset"}, cmd())
	require.Equal(t, 1, fake.resets)
}

func TestActionErrorShowsNotice(t *testing.T) {
	fake := newFakeSession(fsm.StateIdle)
	fake.toggleErr = errors.New("microphone access denied")
	m := sized(New(context.Background(), fake, nil), 80)

	m, cmd := key(m, " ")
	updated, _ := m.Update(cmd())
	require.Contains(t, updated.(Model).View(), "microphone access denied")
}

func TestQuitKeys(t *testing.T) {
	m := sized(New(context.Background(), newFakeSession(fsm.StateIdle), nil), 80)

	_, cmd := key(m, "q")
	require.IsType(t, tea.QuitMsg{}, cmd())

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, updated)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWaitForSnapshot(t *testing.T) {
	updates := make(chan session.Snapshot, 1)
	updates <- session.Snapshot{State: fsm.StateRecording}
	require.Equal(t, SnapshotMsg{Snapshot: session.Snapshot{State: fsm.StateRecording}}, waitForSnapshot(updates)())

	close(updates)
	require.Equal(t, UpdatesClosedMsg{}, waitForSnapshot(updates)())
}

func TestScrollStaysInBounds(t *testing.T) {
	m := New(context.Background(), newFakeSession(fsm.StateIdle), nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 10})
	m = updated.(Model)
	m = withSnapshot(t, m, session.Snapshot{State: fsm.StateReview, Data: reviewData()})

	m, _ = key(m, "k")
	require.Equal(t, 0, m.scroll)

	limit := m.maxScroll()
	require.Positive(t, limit)
	for i := 0; i < limit+5; i++ {
		m, _ = key(m, "j")
	}
	require.Equal(t, limit, m.scroll)
}

func TestWrapIndentsContinuationLines(t *testing.T) {
	require.Equal(t, "one two\n  three", wrap("one two three", 7))
	require.Equal(t, "single", wrap("single", 0))
}
