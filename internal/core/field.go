package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// FieldKind selects how a field descriptor computes its output cell.
type FieldKind string

const (
	// KindColumn copies a source column by index.
	KindColumn FieldKind = "column"
	// KindConstant emits a fixed literal for every row.
	KindConstant FieldKind = "constant"
	// KindFilename emits the source filename for every row.
	KindFilename FieldKind = "filename"
	// KindSmartAnswer decodes an answer-key cell, optionally following it
	// to the referenced option column.
	KindSmartAnswer FieldKind = "smartAnswer"
)

// AnswerMode selects what a smart-answer field emits.
type AnswerMode string

const (
	// ModeKey emits the normalized answer key itself.
	ModeKey AnswerMode = "key"
	// ModeContent emits the text of the option column the key points to.
	ModeContent AnswerMode = "content"
)

// OptionSlots is the number of answer choices a smart-answer field maps.
const OptionSlots = 4

// ColIndex is an optional source column index. The zero value is unset.
//
// Indices are not validated against the current grid when a descriptor is
// created or edited; validity is checked lazily at evaluation time, where
// unset or out-of-range indices degrade to empty output.
type ColIndex struct {
	N     int
	Valid bool
}

// Col returns a set ColIndex. Negative values yield the unset value.
func Col(n int) ColIndex {
	if n < 0 {
		return ColIndex{}
	}
	return ColIndex{N: n, Valid: true}
}

// MarshalJSON encodes a set index as its number and an unset one as null.
func (c ColIndex) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.N)
}

// UnmarshalJSON accepts a number, null, an empty string, or a numeric
// string. The string forms exist so hand-edited configuration documents
// round-trip without fuss.
func (c *ColIndex) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*c = ColIndex{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*c = ColIndex{}
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("column index %q: %w", s, err)
		}
		*c = Col(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Col(n)
	return nil
}

// AnswerConfig holds the smart-answer wiring for one field.
type AnswerConfig struct {
	// KeySource is the source column holding the encoded answer key.
	KeySource ColIndex `json:"keySource"`

	// Mode selects key or content output.
	Mode AnswerMode `json:"mode"`

	// Options maps answer position to the source column holding that
	// choice's text. Slots may individually be unset.
	Options [OptionSlots]ColIndex `json:"options"`
}

// clone returns an independent copy.
func (a *AnswerConfig) clone() *AnswerConfig {
	if a == nil {
		return nil
	}
	dup := *a
	return &dup
}

// FieldDescriptor defines one output column.
//
// Column is meaningful for KindColumn, Text for KindConstant, and Answer
// for KindSmartAnswer. Answer is non-nil if and only if the kind is
// KindSmartAnswer; the constructors and the codec maintain that invariant.
type FieldDescriptor struct {
	ID     string        `json:"id"`
	Header string        `json:"header"`
	Kind   FieldKind     `json:"kind"`
	Column ColIndex      `json:"column,omitzero"`
	Text   string        `json:"text,omitempty"`
	Answer *AnswerConfig `json:"answer,omitempty"`
}

// NewField creates a descriptor with a fresh unique ID. Smart-answer
// fields get an empty answer block in key mode.
func NewField(kind FieldKind, header string) FieldDescriptor {
	d := FieldDescriptor{
		ID:     uuid.NewString(),
		Header: header,
		Kind:   kind,
	}
	if kind == KindSmartAnswer {
		d.Answer = &AnswerConfig{Mode: ModeKey}
	}
	return d
}

// Validate checks the descriptor's structural invariants. It does not
// check indices against any grid; that is deliberate (lazy resolution).
func (d FieldDescriptor) Validate() error {
	switch d.Kind {
	case KindColumn, KindConstant, KindFilename:
		return nil
	case KindSmartAnswer:
		if d.Answer == nil {
			return fmt.Errorf("field %s: smartAnswer kind requires an answer block", d.ID)
		}
		switch d.Answer.Mode {
		case ModeKey, ModeContent:
			return nil
		default:
			return fmt.Errorf("field %s: unknown answer mode %q", d.ID, d.Answer.Mode)
		}
	default:
		return fmt.Errorf("field %s: unknown kind %q", d.ID, d.Kind)
	}
}

// clone returns an independent copy of the descriptor.
func (d FieldDescriptor) clone() FieldDescriptor {
	d.Answer = d.Answer.clone()
	return d
}

// FieldPatch is a partial descriptor update. Nil members leave the
// corresponding field untouched; the ID is never patchable.
type FieldPatch struct {
	Header *string       `json:"header"`
	Kind   *FieldKind    `json:"kind"`
	Column *ColIndex     `json:"column"`
	Text   *string       `json:"text"`
	Answer *AnswerConfig `json:"answer"`
}

// apply merges the patch into d and restores the answer-block invariant
// after any kind change.
func (p FieldPatch) apply(d *FieldDescriptor) {
	if p.Header != nil {
		d.Header = *p.Header
	}
	if p.Kind != nil {
		d.Kind = *p.Kind
	}
	if p.Column != nil {
		d.Column = *p.Column
	}
	if p.Text != nil {
		d.Text = *p.Text
	}
	if p.Answer != nil {
		d.Answer = p.Answer.clone()
	}

	if d.Kind == KindSmartAnswer {
		if d.Answer == nil {
			d.Answer = &AnswerConfig{Mode: ModeKey}
		}
		if d.Answer.Mode == "" {
			d.Answer.Mode = ModeKey
		}
	} else {
		d.Answer = nil
	}
}

// Configuration is the ordered list of field descriptors defining the
// whole output shape. Order is the output column order.
type Configuration []FieldDescriptor

// IndexOf returns the position of the descriptor with the given ID,
// or -1 if absent.
func (c Configuration) IndexOf(id string) int {
	for i, d := range c {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Headers returns the descriptor header labels in configuration order.
func (c Configuration) Headers() []string {
	headers := make([]string, len(c))
	for i, d := range c {
		headers[i] = d.Header
	}
	return headers
}

// Clone returns a deep copy; descriptors are never shared between
// configurations.
func (c Configuration) Clone() Configuration {
	if c == nil {
		return nil
	}
	dup := make(Configuration, len(c))
	for i, d := range c {
		dup[i] = d.clone()
	}
	return dup
}

// Append adds a descriptor at the end.
func (c *Configuration) Append(d FieldDescriptor) {
	*c = append(*c, d)
}

// RemoveByID deletes the descriptor with the given ID, preserving the
// order of the rest. Returns false if no descriptor matched.
func (c *Configuration) RemoveByID(id string) bool {
	i := c.IndexOf(id)
	if i < 0 {
		return false
	}
	*c = append((*c)[:i], (*c)[i+1:]...)
	return true
}

// UpdateByID applies a shallow patch to the descriptor with the given ID.
// Returns false if no descriptor matched.
func (c *Configuration) UpdateByID(id string, patch FieldPatch) bool {
	i := c.IndexOf(id)
	if i < 0 {
		return false
	}
	d := (*c)[i].clone()
	patch.apply(&d)
	(*c)[i] = d
	return true
}

// Move relocates the descriptor with the given ID to position to,
// shifting the others. Out-of-range targets are clamped. Returns false
// if no descriptor matched.
func (c *Configuration) Move(id string, to int) bool {
	from := c.IndexOf(id)
	if from < 0 {
		return false
	}
	if to < 0 {
		to = 0
	}
	if to >= len(*c) {
		to = len(*c) - 1
	}
	if to == from {
		return true
	}
	d := (*c)[from]
	*c = append((*c)[:from], (*c)[from+1:]...)
	rest := append(Configuration{}, (*c)[to:]...)
	*c = append(append((*c)[:to], d), rest...)
	return true
}

// DefaultConfiguration is the fallback mapping used when auto-suggestion
// is unavailable: a single column reference pointing at column 0.
func DefaultConfiguration() Configuration {
	d := NewField(KindColumn, "Column 1")
	d.Column = Col(0)
	return Configuration{d}
}
