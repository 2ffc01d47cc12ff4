package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// fullConfiguration builds a configuration exercising every descriptor
// kind, including a smart answer with both set and unset option slots.
func fullConfiguration() Configuration {
	question := NewField(KindColumn, "Question")
	question.Column = Col(0)

	source := NewField(KindConstant, "Source")
	source.Text = "bank-2024"

	file := NewField(KindFilename, "File")

	unsetRef := NewField(KindColumn, "Unset")

	answer := NewField(KindSmartAnswer, "Answer")
	answer.Answer.KeySource = Col(5)
	answer.Answer.Mode = ModeContent
	answer.Answer.Options = [OptionSlots]ColIndex{Col(1), Col(2), {}, Col(4)}

	keyOnly := NewField(KindSmartAnswer, "Key")
	keyOnly.Answer.KeySource = Col(5)

	return Configuration{question, source, file, unsetRef, answer, keyOnly}
}

func TestConfigurationCodec_RoundTrip(t *testing.T) {
	cfg := fullConfiguration()

	data, err := MarshalConfiguration(cfg)
	if err != nil {
		t.Fatalf("MarshalConfiguration() error = %v", err)
	}

	got, err := UnmarshalConfiguration(data)
	if err != nil {
		t.Fatalf("UnmarshalConfiguration() error = %v", err)
	}

	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("round trip changed configuration:\n got  %#v\n want %#v", got, cfg)
	}
}

func TestMarshalConfiguration_AnswerOnlyOnSmartFields(t *testing.T) {
	cfg := fullConfiguration()

	data, err := MarshalConfiguration(cfg)
	if err != nil {
		t.Fatalf("MarshalConfiguration() error = %v", err)
	}

	doc := string(data)
	if got := strings.Count(doc, `"answer"`); got != 2 {
		t.Errorf("document has %d answer blocks, want 2:\n%s", got, doc)
	}
	if !strings.Contains(doc, `"version"`) {
		t.Error("document missing version attribute")
	}
}

func TestUnmarshalConfiguration_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not JSON", input: "definitely not json"},
		{name: "wrong shape", input: `{"fields": "nope"}`},
		{name: "unknown kind", input: `{"version":1,"fields":[{"id":"a","kind":"wat"}]}`},
		{name: "smart answer without answer block", input: `{"version":1,"fields":[{"id":"a","kind":"smartAnswer"}]}`},
		{name: "bad answer mode", input: `{"version":1,"fields":[{"id":"a","kind":"smartAnswer","answer":{"keySource":1,"mode":"sideways","options":[null,null,null,null]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalConfiguration([]byte(tt.input))
			if err == nil {
				t.Fatal("UnmarshalConfiguration() expected error")
			}
			var parseErr *ConfigParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("error type = %T, want *ConfigParseError", err)
			}
		})
	}
}

func TestUnmarshalConfiguration_UnknownAttributesIgnored(t *testing.T) {
	doc := `{
	  "version": 7,
	  "futureTopLevel": true,
	  "fields": [
	    {"id": "a", "header": "Q", "kind": "column", "column": 0, "futureAttr": {"x": 1}}
	  ]
	}`

	cfg, err := UnmarshalConfiguration([]byte(doc))
	if err != nil {
		t.Fatalf("UnmarshalConfiguration() error = %v", err)
	}
	if len(cfg) != 1 || cfg[0].Kind != KindColumn || !cfg[0].Column.Valid || cfg[0].Column.N != 0 {
		t.Errorf("configuration = %#v", cfg)
	}
}

func TestUnmarshalConfiguration_StrayAnswerDropped(t *testing.T) {
	doc := `{"version":1,"fields":[{"id":"a","kind":"constant","text":"x","answer":{"keySource":1,"mode":"key","options":[null,null,null,null]}}]}`

	cfg, err := UnmarshalConfiguration([]byte(doc))
	if err != nil {
		t.Fatalf("UnmarshalConfiguration() error = %v", err)
	}
	if cfg[0].Answer != nil {
		t.Error("stray answer block on constant field survived import")
	}
}

func TestUnmarshalConfiguration_RepairsIDs(t *testing.T) {
	doc := `{"version":1,"fields":[
	  {"id":"", "kind":"filename"},
	  {"id":"dup", "kind":"constant", "text":"a"},
	  {"id":"dup", "kind":"constant", "text":"b"}
	]}`

	cfg, err := UnmarshalConfiguration([]byte(doc))
	if err != nil {
		t.Fatalf("UnmarshalConfiguration() error = %v", err)
	}

	seen := make(map[string]bool)
	for _, d := range cfg {
		if d.ID == "" {
			t.Error("descriptor imported with empty ID")
		}
		if seen[d.ID] {
			t.Errorf("descriptor ID %q not unique after import", d.ID)
		}
		seen[d.ID] = true
	}
}

func TestColIndexJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ColIndex
	}{
		{name: "number", input: "3", want: Col(3)},
		{name: "null", input: "null", want: ColIndex{}},
		{name: "empty string", input: `""`, want: ColIndex{}},
		{name: "numeric string", input: `"2"`, want: Col(2)},
		{name: "negative number unsets", input: "-1", want: ColIndex{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c ColIndex
			if err := c.UnmarshalJSON([]byte(tt.input)); err != nil {
				t.Fatalf("UnmarshalJSON(%s) error = %v", tt.input, err)
			}
			if c != tt.want {
				t.Errorf("UnmarshalJSON(%s) = %#v, want %#v", tt.input, c, tt.want)
			}
		})
	}

	if _, err := (ColIndex{}).MarshalJSON(); err != nil {
		t.Fatalf("MarshalJSON error = %v", err)
	}
	if data, _ := (ColIndex{}).MarshalJSON(); string(data) != "null" {
		t.Errorf("unset index marshals to %s, want null", data)
	}
	if data, _ := Col(5).MarshalJSON(); string(data) != "5" {
		t.Errorf("Col(5) marshals to %s, want 5", data)
	}

	var bad ColIndex
	if err := bad.UnmarshalJSON([]byte(`"abc"`)); err == nil {
		t.Error("UnmarshalJSON accepted non-numeric string")
	}
}
