// Package tui is the interactive consultation review screen.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rbright/drai/internal/consultation"
	"github.com/rbright/drai/internal/fsm"
	"github.com/rbright/drai/internal/render"
	"github.com/rbright/drai/internal/session"
)

const (
	noticeTimeout = 4 * time.Second
	// Side by side panels below this width get too narrow to read.
	splitMinWidth = 100
)

// Session is the controller surface the TUI drives.
type Session interface {
	Snapshot() session.Snapshot
	Updates() <-chan session.Snapshot
	Toggle(ctx context.Context) error
	Reset() error
}

// CopyFunc places text on the clipboard.
type CopyFunc func(ctx context.Context, text string) error

// Model is the root bubbletea model.
type Model struct {
	ctx     context.Context
	session Session
	copy    CopyFunc
	title   string

	snap session.Snapshot
	busy bool

	notice    string
	noticeErr bool
	noticeSeq int

	width  int
	height int
	scroll int
}

// New builds a model seeded with the controller's current snapshot. A nil
// copy disables the copy key.
func New(ctx context.Context, s Session, copyFn CopyFunc) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	return Model{
		ctx:     ctx,
		session: s,
		copy:    copyFn,
		title:   "DRAI",
		snap:    s.Snapshot(),
	}
}

// Init starts listening for controller snapshots.
func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.session.Updates())
}

func waitForSnapshot(updates <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return UpdatesClosedMsg{}
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

func toggleCmd(ctx context.Context, s Session) tea.Cmd {
	return func() tea.Msg {
		return ActionResultMsg{Action: "toggle", Err: s.Toggle(ctx)}
	}
}

func resetCmd(s Session) tea.Cmd {
	return func() tea.Msg {
		return ActionResultMsg{Action: "reset", Err: s.Reset()}
	}
}

func copyCmd(ctx context.Context, copyFn CopyFunc, text string) tea.Cmd {
	return func() tea.Msg {
		return CopyResultMsg{Err: copyFn(ctx, text)}
	}
}

func clearNoticeCmd(seq int) tea.Cmd {
	return tea.Tick(noticeTimeout, func(time.Time) tea.Msg {
		return ClearNoticeMsg{Seq: seq}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scroll = min(m.scroll, m.maxScroll())
		return m, nil

	case SnapshotMsg:
		if msg.Snapshot.State != m.snap.State {
			m.scroll = 0
		}
		m.snap = msg.Snapshot
		return m, waitForSnapshot(m.session.Updates())

	case UpdatesClosedMsg:
		return m, nil

	case ActionResultMsg:
		m.busy = false
		if msg.Err != nil {
			return m.setNotice(msg.Err.Error(), true)
		}
		return m, nil

	case CopyResultMsg:
		if msg.Err != nil {
			return m.setNotice("copy failed: "+msg.Err.Error(), true)
		}
		return m.setNotice("SOAP note copied to clipboard", false)

	case ClearNoticeMsg:
		if msg.Seq == m.noticeSeq {
			m.notice = ""
			m.noticeErr = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) setNotice(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.noticeSeq++
	m.notice = text
	m.noticeErr = isErr
	return m, clearNoticeCmd(m.noticeSeq)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyQuit, keyCtrlC:
		return m, tea.Quit

	case keySpace, keyRecord:
		if m.busy {
			return m, nil
		}
		switch m.snap.State {
		case fsm.StateIdle, fsm.StateRecording:
			m.busy = true
			return m, toggleCmd(m.ctx, m.session)
		}
		return m, nil

	case keyNew:
		if m.busy {
			return m, nil
		}
		switch m.snap.State {
		case fsm.StateReview, fsm.StateError:
			m.busy = true
			return m, resetCmd(m.session)
		}
		return m, nil

	case keyCopy:
		if m.copy == nil || m.snap.State != fsm.StateReview || m.snap.Data == nil {
			return m, nil
		}
		return m, copyCmd(m.ctx, m.copy, render.SoapText(m.snap.Data.Soap))

	case keyUp, keyK:
		if m.scroll > 0 {
			m.scroll--
		}
		return m, nil

	case keyDown, keyJ:
		if m.scroll < m.maxScroll() {
			m.scroll++
		}
		return m, nil
	}

	return m, nil
}

func (m Model) bodyHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + divider(2) + notice(1) + footer(1)
	return max(5, m.height-5)
}

func (m Model) maxScroll() int {
	lines := len(m.bodyLines())
	return max(0, lines-m.bodyHeight())
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	divider := dividerStyle.Render(strings.Repeat("─", m.width))
	body := m.bodyLines()
	height := m.bodyHeight()
	start := min(m.scroll, max(0, len(body)-height))
	end := min(len(body), start+height)
	visible := body[start:end]
	for len(visible) < height {
		visible = append(visible, "")
	}

	sections := []string{
		m.renderHeader(),
		divider,
		strings.Join(visible, "\n"),
		divider,
		m.renderNotice(),
		m.renderFooter(),
	}
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	header := titleStyle.Render(m.title) + dimStyle.Render(" consultation scribe")
	if m.snap.ID != "" {
		header += dimStyle.Render(" · " + shortID(m.snap.ID))
	}
	return header
}

func (m Model) renderNotice() string {
	if m.notice == "" {
		return ""
	}
	if m.noticeErr {
		return errorTextStyle.Render(m.notice)
	}
	return noticeStyle.Render(m.notice)
}

func (m Model) bodyLines() []string {
	var block string
	switch m.snap.State {
	case fsm.StateRecording:
		block = recordingDotStyle.Render("● REC") + "  " + timerStyle.Render(render.Elapsed(m.snap.Elapsed)) +
			"\n\n" + dimStyle.Render("Recording audio...")
	case fsm.StateProcessing:
		block = processingStyle.Render("⟳ Analyzing Consultation…") +
			"\n\n" + dimStyle.Render("Generating transcript and SOAP note")
	case fsm.StateReview:
		block = m.renderReview()
	case fsm.StateError:
		block = errorStyle.Render("Error: ") + errorTextStyle.Render(wrap(m.snap.Error, max(20, m.width-8))) +
			"\n\n" + dimStyle.Render("press n to try again")
	default:
		block = readyStyle.Render("Ready to Record") +
			"\n\n" + dimStyle.Render("Press Space to start recording")
	}
	return strings.Split(block, "\n")
}

func (m Model) renderReview() string {
	if m.snap.Data == nil {
		return dimStyle.Render("No consultation data.")
	}
	data := *m.snap.Data

	if m.width < splitMinWidth {
		width := max(20, m.width-2)
		return renderTranscriptPanel(data.Transcript, width) + "\n\n" + renderSoapPanel(data, width)
	}

	left := max(30, m.width*40/100)
	right := max(30, m.width-left-3)
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.NewStyle().Width(left).Render(renderTranscriptPanel(data.Transcript, left)),
		dividerStyle.Render(" │ "),
		lipgloss.NewStyle().Width(right).Render(renderSoapPanel(data, right)),
	)
}

func renderTranscriptPanel(segments []consultation.Segment, width int) string {
	lines := []string{panelTitleStyle.Render("Consultation Transcript"), ""}
	if len(segments) == 0 {
		lines = append(lines, dimStyle.Render(render.TranscriptText(nil)))
		return strings.Join(lines, "\n")
	}
	for _, seg := range segments {
		head := speakerStyle(seg.Speaker).Render(render.SpeakerLabel(seg.Speaker))
		if seg.Timestamp != "" {
			head += " " + timestampStyle.Render(seg.Timestamp)
		}
		lines = append(lines, head, "  "+wrap(seg.Text, max(10, width-2)), "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func renderSoapPanel(data consultation.Data, width int) string {
	lines := []string{panelTitleStyle.Render("SOAP Note")}
	for _, section := range render.Sections(data.Soap) {
		lines = append(lines, "", sectionStyle.Render(section.Heading()))
		for _, item := range section.Items {
			label := labelStyle.Render(item.Label)
			if n := render.ItemFlags(data, item); n > 0 {
				label += " " + flagStyle.Render(fmt.Sprintf("[%d flagged]", n))
			}
			lines = append(lines, label)
			for _, value := range strings.Split(item.Value, "\n") {
				lines = append(lines, "  "+wrap(value, max(10, width-2)))
			}
		}
	}
	if len(data.Flags) > 0 {
		lines = append(lines, "", flagStyle.Render("Flags"))
		for _, flag := range data.Flags {
			lines = append(lines, flagStyle.Render("! "+render.FlagHeading(flag)))
			if detail := render.FlagDetail(flag); detail != "" {
				lines = append(lines, "  "+wrap(detail, max(10, width-2)))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func speakerStyle(speaker consultation.Speaker) lipgloss.Style {
	switch speaker {
	case consultation.SpeakerDoctor:
		return doctorStyle
	case consultation.SpeakerPatient:
		return patientStyle
	default:
		return otherSpeakerStyle
	}
}

func (m Model) renderFooter() string {
	var parts []string
	key := func(k, desc string) {
		parts = append(parts, footerKeyStyle.Render(k)+footerDescStyle.Render(" "+desc))
	}

	switch m.snap.State {
	case fsm.StateIdle:
		key("Space", "Record")
	case fsm.StateRecording:
		key("Space", "Stop")
	case fsm.StateReview:
		key("n", "New Consultation")
		if m.copy != nil {
			key("c", "Copy to HIS")
		}
		key("↑↓", "Scroll")
	case fsm.StateError:
		key("n", "Try Again")
	}
	key("q", "Quit")

	return strings.Join(parts, "  ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// wrap breaks text into lines of at most width columns, continuing with a
// two space indent.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			switch {
			case current == "":
				current = word
			case lipgloss.Width(current)+1+lipgloss.Width(word) <= width:
				current += " " + word
			default:
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	return strings.Join(lines, "\n  ")
}
