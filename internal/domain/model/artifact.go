package model

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	//go:embed schema/vectorizer.schema.json
	vectorizerSchemaJSON string

	//go:embed schema/model.schema.json
	modelSchemaJSON string

	vectorizerSchema = mustCompileSchema("vectorizer.schema.json", vectorizerSchemaJSON)
	modelSchema      = mustCompileSchema("model.schema.json", modelSchemaJSON)
)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("model: add schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("model: compile schema %s: %v", name, err))
	}
	return schema
}

// DecodeVectorizer parses, validates and builds a vectorizer artifact.
func DecodeVectorizer(data []byte) (*TFIDFVectorizer, error) {
	var spec VectorizerSpec
	if err := decodeValidated(data, vectorizerSchema, &spec); err != nil {
		return nil, fmt.Errorf("invalid vectorizer artifact: %w", err)
	}
	v, err := NewTFIDFVectorizer(&spec)
	if err != nil {
		return nil, fmt.Errorf("invalid vectorizer artifact: %w", err)
	}
	return v, nil
}

// DecodeModel parses, validates and builds a classifier artifact.
func DecodeModel(data []byte) (Model, error) {
	var spec ModelSpec
	if err := decodeValidated(data, modelSchema, &spec); err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}
	m, err := NewModel(&spec)
	if err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}
	return m, nil
}

func decodeValidated(data []byte, schema *jsonschema.Schema, out any) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	return nil
}

// Info summarizes a loaded vectorizer/model pair.
type Info struct {
	ModelKind      string `json:"model_kind"`
	VectorizerKind string `json:"vectorizer_kind"`
	VocabularySize int    `json:"vocabulary_size"`
	Features       int    `json:"features"`
	// Digest identifies the artifact bytes the pair was decoded from. It is
	// empty for pairs assembled in memory.
	Digest string `json:"digest,omitempty"`
}

// Describe builds the Info for a pair.
func Describe(v Vectorizer, m Model) Info {
	return Info{
		ModelKind:      m.Kind(),
		VectorizerKind: v.Kind(),
		VocabularySize: v.VocabularySize(),
		Features:       v.Dim(),
	}
}
