// Package render formats consultation data as plain text for the terminal,
// the clipboard, and notifications.
package render

import (
	"fmt"
	"strings"

	"github.com/rbright/drai/internal/consultation"
)

const (
	emptyValue      = "—"
	emptyExam       = "(To be filled by physician)"
	emptyExamCopy   = "None"
	emptyTranscript = "No transcript available."
)

// Item is one labelled value inside a SOAP section. Fields names the note
// keys the value was built from, which is what flags refer to.
type Item struct {
	Label  string
	Value  string
	Fields []string
}

// Section is one of the S, O, A, P blocks.
type Section struct {
	ID    string
	Title string
	Items []Item
}

// Heading is the "S - Subjective" style section header.
func (s Section) Heading() string {
	return s.ID + " - " + s.Title
}

// Elapsed formats whole seconds as zero padded MM:SS.
func Elapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Sections lays out the note for display. Empty values render as "—" and an
// empty physical exam is left for the physician.
func Sections(note consultation.SoapNote) []Section {
	exam := note.PhysicalExam
	if strings.TrimSpace(exam) == "" {
		exam = emptyExam
	}
	return []Section{
		{ID: "S", Title: "Subjective", Items: []Item{
			{Label: "Chief Complaint", Value: orDash(note.ChiefComplaint), Fields: []string{"chief_complaint"}},
			{Label: "History of Present Illness", Value: orDash(note.HPI), Fields: []string{"hpi"}},
			{Label: "Review of Systems", Value: orDash(note.ROS), Fields: []string{"ros"}},
			{
				Label:  "Medical History / Meds",
				Value:  orDash(joinNonEmpty("\n", note.PMH, note.Medications, note.Allergies)),
				Fields: []string{"pmh", "medications", "allergies"},
			},
		}},
		{ID: "O", Title: "Objective", Items: []Item{
			{Label: "Physical Exam", Value: exam, Fields: []string{"physical_exam"}},
		}},
		{ID: "A", Title: "Assessment", Items: []Item{
			{Label: "Assessment", Value: orDash(note.Assessment), Fields: []string{"assessment"}},
		}},
		{ID: "P", Title: "Plan", Items: []Item{
			{Label: "Plan", Value: orDash(note.Plan), Fields: []string{"plan"}},
		}},
	}
}

// SoapText is the clipboard form of the note, pasted into the hospital
// information system.
func SoapText(note consultation.SoapNote) string {
	exam := note.PhysicalExam
	if exam == "" {
		exam = emptyExamCopy
	}

	var b strings.Builder
	b.WriteString("S:\n")
	b.WriteString("CC: " + note.ChiefComplaint + "\n")
	b.WriteString("HPI: " + note.HPI + "\n")
	b.WriteString("ROS: " + note.ROS + "\n")
	b.WriteString("PMH/Meds/Allergies: " + note.PMH + ", " + note.Medications + ", " + note.Allergies + "\n")
	b.WriteString("\nO:\n" + exam + "\n")
	b.WriteString("\nA:\n" + note.Assessment + "\n")
	b.WriteString("\nP:\n" + note.Plan)
	return strings.TrimSpace(b.String())
}

// FlagHeading renders e.g. "CONTRADICTION in hpi". Flags without a type
// read as "FLAG" and flags without a field drop the location.
func FlagHeading(flag consultation.Flag) string {
	kind := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(string(flag.Type)), "_", " "))
	if kind == "" {
		kind = "FLAG"
	}
	if field := strings.TrimSpace(flag.Field); field != "" {
		return kind + " in " + field
	}
	return kind
}

// ItemFlags counts the flags raised against any field shown by item.
func ItemFlags(data consultation.Data, item Item) int {
	n := 0
	for _, field := range item.Fields {
		n += len(data.FlagsFor(field))
	}
	return n
}

// FlagDetail renders the reason followed by the quoted source content.
func FlagDetail(flag consultation.Flag) string {
	if flag.Content == "" {
		return flag.Reason
	}
	return flag.Reason + `: "` + flag.Content + `"`
}

func SpeakerLabel(speaker consultation.Speaker) string {
	if speaker == "" {
		return string(consultation.SpeakerOther)
	}
	return string(speaker)
}

// TranscriptText renders one "[MM:SS] Speaker: text" line per segment in order.
func TranscriptText(segments []consultation.Segment) string {
	if len(segments) == 0 {
		return emptyTranscript
	}
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		prefix := SpeakerLabel(seg.Speaker) + ":"
		if seg.Timestamp != "" {
			prefix = "[" + seg.Timestamp + "] " + prefix
		}
		lines = append(lines, prefix+" "+seg.Text)
	}
	return strings.Join(lines, "\n")
}

// Report is the full plain text review: transcript, flags, and note.
func Report(data consultation.Data) string {
	var b strings.Builder
	b.WriteString("Consultation Transcript\n")
	b.WriteString(TranscriptText(data.Transcript))
	b.WriteString("\n")

	if len(data.Flags) > 0 {
		b.WriteString("\nFlags\n")
		for _, flag := range data.Flags {
			b.WriteString("! " + FlagHeading(flag) + "\n")
			if detail := FlagDetail(flag); detail != "" {
				b.WriteString("  " + detail + "\n")
			}
		}
	}

	b.WriteString("\nSOAP Note\n")
	for _, section := range Sections(data.Soap) {
		b.WriteString("\n" + section.Heading() + "\n")
		for _, item := range section.Items {
			b.WriteString("  " + item.Label + ":\n")
			for _, line := range strings.Split(item.Value, "\n") {
				b.WriteString("    " + line + "\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return emptyValue
	}
	return value
}

func joinNonEmpty(sep string, values ...string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, sep)
}
