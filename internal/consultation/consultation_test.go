package consultation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFillsNilCollections(t *testing.T) {
	data := Data{Soap: SoapNote{ChiefComplaint: "cough"}}.Normalize()
	require.NotNil(t, data.Transcript)
	require.NotNil(t, data.Flags)
	require.Empty(t, data.Flags)
	require.Equal(t, "cough", data.Soap.ChiefComplaint)
}

func TestNormalizeKeepsExistingOrder(t *testing.T) {
	data := Data{
		Transcript: []Segment{
			{Speaker: SpeakerDoctor, Text: "What brings you in?"},
			{Speaker: SpeakerPatient, Text: "A cough."},
		},
		Flags: []Flag{{Field: "hpi", Type: FlagMissingInfo}},
	}.Normalize()

	require.Len(t, data.Transcript, 2)
	require.Equal(t, SpeakerDoctor, data.Transcript[0].Speaker)
	require.Len(t, data.Flags, 1)
}

func TestDataDecodesMissingConfidenceAsZero(t *testing.T) {
	var data Data
	err := json.Unmarshal([]byte(`{"transcript":[{"speaker":"Patient Side","timestamp":"00:03","text":"He fell."}],"soap":{"hpi":"fall"}}`), &data)
	require.NoError(t, err)
	require.Len(t, data.Transcript, 1)
	require.Equal(t, SpeakerPatientSide, data.Transcript[0].Speaker)
	require.Zero(t, data.Transcript[0].Confidence)
	require.Nil(t, data.Flags)
}

func TestFlagsForFiltersByField(t *testing.T) {
	data := Data{Flags: []Flag{
		{Field: "hpi", Type: FlagContradiction, Reason: "a"},
		{Field: "plan", Type: FlagMissingInfo},
		{Field: "hpi", Type: FlagLowConfidence, Reason: "b"},
	}}

	flags := data.FlagsFor("hpi")
	require.Len(t, flags, 2)
	require.Equal(t, "a", flags[0].Reason)
	require.Equal(t, "b", flags[1].Reason)
	require.Empty(t, data.FlagsFor("ros"))
}

func TestEnumListsAreComplete(t *testing.T) {
	require.Len(t, Speakers(), 4)
	require.Len(t, FlagTypes(), 3)
}
