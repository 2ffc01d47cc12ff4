package core

import (
	"reflect"
	"testing"
)

// quizRow mirrors a typical question-bank export row:
// question, four options, answer key.
var quizRow = Row{"Q1", "opt A", "opt B", "opt C", "opt D", "B"}

func smartField(mode AnswerMode, keySource ColIndex, options [OptionSlots]ColIndex) FieldDescriptor {
	d := NewField(KindSmartAnswer, "Answer")
	d.Answer.Mode = mode
	d.Answer.KeySource = keySource
	d.Answer.Options = options
	return d
}

var quizOptions = [OptionSlots]ColIndex{Col(1), Col(2), Col(3), Col(4)}

// ============================================================================
// NormalizeKey Tests
// ============================================================================

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "full-width upper letter", input: "Ａ", want: "A"},
		{name: "full-width lower letter", input: "ｂ", want: "B"},
		{name: "full-width digit", input: "３", want: "3"},
		{name: "half-width lower uppercased", input: "a", want: "A"},
		{name: "already normalized", input: "C", want: "C"},
		{name: "digit unchanged", input: "4", want: "4"},
		{name: "mixed text", input: "ａｂ１c", want: "AB1C"},
		{name: "non-key characters pass through", input: "答案: Ｂ", want: "答案: B"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.input); got != tt.want {
				t.Errorf("NormalizeKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================================
// Evaluate Tests
// ============================================================================

func TestEvaluate_BasicKinds(t *testing.T) {
	constant := NewField(KindConstant, "Source")
	constant.Text = "bank-2024"

	filename := NewField(KindFilename, "File")

	question := NewField(KindColumn, "Question")
	question.Column = Col(0)

	outOfRange := NewField(KindColumn, "Missing")
	outOfRange.Column = Col(99)

	unset := NewField(KindColumn, "Unset")

	cfg := Configuration{question, constant, filename, outOfRange, unset}

	got := Evaluate(cfg, quizRow, "bank.csv")
	want := []string{"Q1", "bank-2024", "bank.csv", "", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Evaluate() = %#v, want %#v", got, want)
	}
}

func TestEvaluate_OutputLengthMatchesConfig(t *testing.T) {
	cfg := Configuration{NewField(KindFilename, "f"), NewField(KindConstant, "c")}

	got := Evaluate(cfg, Row{}, "x.csv")
	if len(got) != len(cfg) {
		t.Fatalf("Evaluate() returned %d values for %d descriptors", len(got), len(cfg))
	}
}

// ============================================================================
// Smart-Answer Resolver Tests
// ============================================================================

func TestResolveAnswer(t *testing.T) {
	tests := []struct {
		name    string
		row     Row
		mode    AnswerMode
		key     ColIndex
		options [OptionSlots]ColIndex
		want    string
	}{
		{
			name:    "content mode follows letter key",
			row:     quizRow,
			mode:    ModeContent,
			key:     Col(5),
			options: quizOptions,
			want:    "opt B",
		},
		{
			name:    "key mode returns normalized key",
			row:     quizRow,
			mode:    ModeKey,
			key:     Col(5),
			options: quizOptions,
			want:    "B",
		},
		{
			name:    "digit key decodes one-based",
			row:     Row{"Q1", "opt A", "opt B", "opt C", "opt D", "3"},
			mode:    ModeContent,
			key:     Col(5),
			options: quizOptions,
			want:    "opt C",
		},
		{
			name:    "full-width key decodes",
			row:     Row{"Q1", "opt A", "opt B", "opt C", "opt D", "ｄ"},
			mode:    ModeContent,
			key:     Col(5),
			options: quizOptions,
			want:    "opt D",
		},
		{
			name:    "key mode folds full-width",
			row:     Row{"Q1", "opt A", "opt B", "opt C", "opt D", "３"},
			mode:    ModeKey,
			key:     Col(5),
			options: quizOptions,
			want:    "3",
		},
		{
			name:    "unset option slot falls back to raw key",
			row:     Row{"Q1", "opt A", "opt B", "opt C", "opt D", "4"},
			mode:    ModeContent,
			key:     Col(5),
			options: [OptionSlots]ColIndex{Col(1), Col(2), Col(3), {}},
			want:    "4",
		},
		{
			name:    "undecodable key falls back to raw key",
			row:     Row{"Q1", "opt A", "opt B", "opt C", "opt D", "BD"},
			mode:    ModeContent,
			key:     Col(5),
			options: quizOptions,
			want:    "BD",
		},
		{
			name:    "position beyond option slots falls back",
			row:     Row{"Q1", "opt A", "opt B", "opt C", "opt D", "Z"},
			mode:    ModeContent,
			key:     Col(5),
			options: quizOptions,
			want:    "Z",
		},
		{
			name:    "mapped column out of row range falls back",
			row:     Row{"Q1", "", "", "", "", "A"},
			mode:    ModeContent,
			key:     Col(5),
			options: [OptionSlots]ColIndex{Col(42), Col(2), Col(3), Col(4)},
			want:    "A",
		},
		{
			name:    "fallback preserves raw key case and width",
			row:     Row{"Q1", "opt A", "opt B", "opt C", "opt D", "ｘｙ"},
			mode:    ModeContent,
			key:     Col(5),
			options: quizOptions,
			want:    "ｘｙ",
		},
		{
			name:    "key cell trimmed before use",
			row:     Row{"Q1", "opt A", "opt B", "opt C", "opt D", "  b  "},
			mode:    ModeContent,
			key:     Col(5),
			options: quizOptions,
			want:    "opt B",
		},
		{
			name:    "unset key source yields empty",
			row:     quizRow,
			mode:    ModeContent,
			key:     ColIndex{},
			options: quizOptions,
			want:    "",
		},
		{
			name:    "key source out of range yields empty key",
			row:     Row{"Q1"},
			mode:    ModeKey,
			key:     Col(9),
			options: quizOptions,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Configuration{smartField(tt.mode, tt.key, tt.options)}
			got := Evaluate(cfg, tt.row, "quiz.csv")
			if got[0] != tt.want {
				t.Errorf("resolve = %q, want %q", got[0], tt.want)
			}
		})
	}
}

func TestResolveAnswer_NilAnswerConfig(t *testing.T) {
	// A descriptor violating the answer-block invariant must still
	// evaluate to empty, never panic.
	d := FieldDescriptor{ID: "x", Kind: KindSmartAnswer}
	got := Evaluate(Configuration{d}, quizRow, "quiz.csv")
	if got[0] != "" {
		t.Errorf("nil answer config resolved to %q, want empty", got[0])
	}
}

func TestDecodeKeyPosition(t *testing.T) {
	tests := []struct {
		key  string
		want int
	}{
		{"A", 0},
		{"B", 1},
		{"Z", 25},
		{"1", 0},
		{"9", 8},
		{"0", -1},
		{"", -1},
		{"AB", -1},
		{"?", -1},
	}

	for _, tt := range tests {
		if got := decodeKeyPosition(tt.key); got != tt.want {
			t.Errorf("decodeKeyPosition(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}
