package core

// codec.go serializes a Configuration to the portable document users
// exchange to share a mapping. The format is indented JSON so documents
// stay human-diffable. Reads are forward-compatible: unknown attributes
// on a descriptor are ignored rather than fatal.

import (
	"encoding/json"

	"github.com/google/uuid"
)

// configDocVersion identifies the document layout for future readers.
const configDocVersion = 1

// configDocument is the on-disk envelope for a shared configuration.
type configDocument struct {
	Version int               `json:"version"`
	Fields  []FieldDescriptor `json:"fields"`
}

// MarshalConfiguration renders the configuration as an indented JSON
// document. Field order is preserved; the answer block appears only on
// smart-answer descriptors.
func MarshalConfiguration(cfg Configuration) ([]byte, error) {
	doc := configDocument{
		Version: configDocVersion,
		Fields:  cfg,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalConfiguration parses a configuration document.
//
// Malformed input yields a [ConfigParseError] and no configuration;
// callers retain whatever configuration they already have. Two repairs
// are applied silently on success: descriptors missing an ID (or reusing
// one) get a fresh ID, and a stray answer block on a non-smart-answer
// descriptor is dropped. A smart-answer descriptor without an answer
// block is malformed.
func UnmarshalConfiguration(data []byte) (Configuration, error) {
	var doc configDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigParseError{Reason: "not a valid configuration document", Err: err}
	}

	cfg := make(Configuration, 0, len(doc.Fields))
	seen := make(map[string]bool, len(doc.Fields))
	for _, d := range doc.Fields {
		if d.Kind != KindSmartAnswer {
			d.Answer = nil
		}
		if err := d.Validate(); err != nil {
			return nil, &ConfigParseError{Reason: "invalid field descriptor", Err: err}
		}
		if d.ID == "" || seen[d.ID] {
			d.ID = uuid.NewString()
		}
		seen[d.ID] = true
		cfg = append(cfg, d.clone())
	}
	return cfg, nil
}
