package gemini

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/drai/internal/consultation"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"google.golang.org/genai"
)

//go:embed consultation.schema.json
var consultationSchemaJSON string

const consultationSchemaName = "consultation.schema.json"

var (
	consultationSchema = mustCompileSchema(consultationSchemaJSON, consultationSchemaName)
	schemaPrinter      = message.NewPrinter(language.English)
)

// responseSchema constrains generation to the consultation shape. Decoding
// is checked again against consultationSchema, which is the stricter
// validator; flags are optional and may be null.
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"transcript": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"speaker":    {Type: genai.TypeString, Enum: enumOf(consultation.Speakers())},
					"timestamp":  {Type: genai.TypeString},
					"text":       {Type: genai.TypeString},
					"confidence": {Type: genai.TypeNumber},
				},
				Required: []string{"speaker", "text"},
			},
		},
		"soap": {
			Type:       genai.TypeObject,
			Properties: stringProperties(soapFields...),
			Required:   []string{"chief_complaint", "hpi", "assessment", "plan"},
		},
		"flags": {
			Type:     genai.TypeArray,
			Nullable: genai.Ptr(true),
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"field":   {Type: genai.TypeString},
					"type":    {Type: genai.TypeString, Enum: enumOf(consultation.FlagTypes())},
					"content": {Type: genai.TypeString},
					"reason":  {Type: genai.TypeString},
				},
			},
		},
	},
	Required: []string{"transcript", "soap"},
}

var soapFields = []string{
	"chief_complaint", "hpi", "ros", "pmh", "medications",
	"allergies", "physical_exam", "assessment", "plan",
}

func stringProperties(names ...string) map[string]*genai.Schema {
	out := make(map[string]*genai.Schema, len(names))
	for _, name := range names {
		out[name] = &genai.Schema{Type: genai.TypeString}
	}
	return out
}

func enumOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return schema
}

// DecodeConsultation validates generated text against the consultation
// schema and decodes it. Every failure wraps ErrSchema.
func DecodeConsultation(text string) (consultation.Data, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return consultation.Data{}, fmt.Errorf("%w: empty response text", ErrSchema)
	}

	instance, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return consultation.Data{}, fmt.Errorf("%w: invalid JSON: %v", ErrSchema, err)
	}
	if err := consultationSchema.Validate(instance); err != nil {
		return consultation.Data{}, fmt.Errorf("%w: %s", ErrSchema, strings.Join(schemaViolations(err), "; "))
	}

	var data consultation.Data
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return consultation.Data{}, fmt.Errorf("%w: decode consultation: %v", ErrSchema, err)
	}
	return data.Normalize(), nil
}

func schemaViolations(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var out []string
	collectViolations(ve, &out)
	return out
}

func collectViolations(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*out = append(*out, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(schemaPrinter)))
		return
	}
	for _, cause := range ve.Causes {
		collectViolations(cause, out)
	}
}
