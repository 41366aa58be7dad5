package gemini

import (
	"encoding/json"
	"testing"

	"github.com/rbright/drai/internal/consultation"
	"github.com/stretchr/testify/require"
)

func TestSystemInstructionLocalizesNoteLanguage(t *testing.T) {
	en := SystemInstruction(consultation.LanguageEnglish)
	require.Contains(t, en, "SOAP note in Professional English.")
	require.NotContains(t, en, "{{LANGUAGE}}")

	zh := SystemInstruction(consultation.LanguageTraditionalChinese)
	require.Contains(t, zh, "SOAP note in Traditional Chinese (繁體中文).")
	require.Contains(t, zh, `"Patient Side"`)
}

func TestSchemasAgreeWithDomainEnums(t *testing.T) {
	var validator struct {
		Properties struct {
			Transcript struct {
				Items struct {
					Properties struct {
						Speaker struct {
							Enum []string `json:"enum"`
						} `json:"speaker"`
					} `json:"properties"`
				} `json:"items"`
			} `json:"transcript"`
			Flags struct {
				Items struct {
					Properties struct {
						Type struct {
							Enum []string `json:"enum"`
						} `json:"type"`
					} `json:"properties"`
				} `json:"items"`
			} `json:"flags"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal([]byte(consultationSchemaJSON), &validator))

	var speakers []string
	for _, s := range consultation.Speakers() {
		speakers = append(speakers, string(s))
	}
	var flagTypes []string
	for _, f := range consultation.FlagTypes() {
		flagTypes = append(flagTypes, string(f))
	}

	require.ElementsMatch(t, speakers, validator.Properties.Transcript.Items.Properties.Speaker.Enum)
	require.ElementsMatch(t, flagTypes, validator.Properties.Flags.Items.Properties.Type.Enum)

	require.ElementsMatch(t, speakers, responseSchema.Properties["transcript"].Items.Properties["speaker"].Enum)
	require.ElementsMatch(t, flagTypes, responseSchema.Properties["flags"].Items.Properties["type"].Enum)
	require.ElementsMatch(t, soapFields, keys(responseSchema.Properties["soap"].Properties))
}

func TestResponseSchemaLeavesFlagsLoose(t *testing.T) {
	flags := responseSchema.Properties["flags"]
	require.NotContains(t, responseSchema.Required, "flags")
	require.NotNil(t, flags.Nullable)
	require.True(t, *flags.Nullable)
	require.Empty(t, flags.Items.Required)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestDecodeConsultationReportsViolationLocations(t *testing.T) {
	_, err := DecodeConsultation(`{"transcript":[{"speaker":"Nurse","text":"hi"}],"soap":{}}`)
	require.ErrorIs(t, err, ErrSchema)

	msg := err.Error()
	require.Contains(t, msg, "/transcript/0/speaker")
	require.Contains(t, msg, "/soap")
}

func TestDecodeConsultationRejectsTrailingGarbage(t *testing.T) {
	_, err := DecodeConsultation(`{"transcript":[],"soap":{"chief_complaint":"","hpi":"","assessment":"","plan":""}} trailing`)
	require.ErrorIs(t, err, ErrSchema)
	require.Contains(t, err.Error(), "invalid JSON")
}
