// Package consultation holds the structured result of one analyzed consultation.
package consultation

// Speaker identifies who is talking in a transcript segment.
type Speaker string

const (
	SpeakerDoctor      Speaker = "Doctor"
	SpeakerPatient     Speaker = "Patient"
	SpeakerPatientSide Speaker = "Patient Side" // family member or companion
	SpeakerOther       Speaker = "Other"
)

// Speakers lists every speaker value accepted from the model.
func Speakers() []Speaker {
	return []Speaker{SpeakerDoctor, SpeakerPatient, SpeakerPatientSide, SpeakerOther}
}

// Segment is one ordered utterance of the diarized transcript.
type Segment struct {
	Speaker    Speaker `json:"speaker"`
	Timestamp  string  `json:"timestamp"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// SoapNote is the clinical note. An empty field means the topic was not
// discussed and is left for the clinician.
type SoapNote struct {
	ChiefComplaint string `json:"chief_complaint"`
	HPI            string `json:"hpi"`
	ROS            string `json:"ros"`
	PMH            string `json:"pmh"`
	Medications    string `json:"medications"`
	Allergies      string `json:"allergies"`
	PhysicalExam   string `json:"physical_exam"`
	Assessment     string `json:"assessment"`
	Plan           string `json:"plan"`
}

type FlagType string

const (
	FlagContradiction FlagType = "contradiction"
	FlagLowConfidence FlagType = "low_confidence"
	FlagMissingInfo   FlagType = "missing_info"
)

// FlagTypes lists every flag type accepted from the model.
func FlagTypes() []FlagType {
	return []FlagType{FlagContradiction, FlagLowConfidence, FlagMissingInfo}
}

// Flag marks a note field that needs clinician attention.
type Flag struct {
	Field   string   `json:"field"`
	Type    FlagType `json:"type"`
	Content string   `json:"content"`
	Reason  string   `json:"reason"`
}

// Data is the full result of one successful analysis.
type Data struct {
	Transcript []Segment `json:"transcript"`
	Soap       SoapNote  `json:"soap"`
	Flags      []Flag    `json:"flags"`
}

// Normalize replaces nil collections with empty ones so callers can range
// and serialize without nil checks.
func (d Data) Normalize() Data {
	if d.Transcript == nil {
		d.Transcript = []Segment{}
	}
	if d.Flags == nil {
		d.Flags = []Flag{}
	}
	return d
}

// FlagsFor returns the flags attached to one SOAP field in original order.
func (d Data) FlagsFor(field string) []Flag {
	var out []Flag
	for _, flag := range d.Flags {
		if flag.Field == field {
			out = append(out, flag)
		}
	}
	return out
}
