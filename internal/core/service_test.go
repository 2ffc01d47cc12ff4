package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const quizCSV = "question,a,b,c,d,key\nQ1,opt A,opt B,opt C,opt D,B\nQ2,w,x,y,z,3\n"

func loadedService(t *testing.T) *Service {
	t.Helper()
	svc := NewService()
	if err := svc.LoadSource([]byte(quizCSV), "bank.csv", "utf-8"); err != nil {
		t.Fatalf("LoadSource() error = %v", err)
	}
	return svc
}

// ============================================================================
// Source lifecycle Tests
// ============================================================================

func TestServiceLoadSource(t *testing.T) {
	svc := loadedService(t)

	info := svc.Source()
	if !info.Loaded || info.Filename != "bank.csv" || info.Encoding != "utf-8" {
		t.Errorf("Source() = %#v", info)
	}
	if info.Rows != 3 || info.Columns != 6 {
		t.Errorf("Source() rows=%d columns=%d, want 3 and 6", info.Rows, info.Columns)
	}
	if info.Headers[0] != "question" {
		t.Errorf("Source() headers = %v", info.Headers)
	}
}

func TestServiceLoadSource_DecodeFailureRetainsBytes(t *testing.T) {
	svc := loadedService(t)

	bad := []byte{0xc4, 0xe3, 0xba, 0xc3} // GBK bytes, invalid as UTF-8
	if err := svc.LoadSource(bad, "gbk.csv", "utf-8"); err == nil {
		t.Fatal("LoadSource() expected decode error")
	}

	// Until a retry succeeds the session keeps describing the previous
	// source: the failed upload must not leak its filename into the
	// summary of the still-loaded old grid.
	info := svc.Source()
	if info.Filename != "bank.csv" || !info.Loaded || info.Rows != 3 {
		t.Errorf("Source() after failed load = %#v", info)
	}

	// The failed upload replaces the retained bytes, so a retry under the
	// right encoding decodes the new file without re-uploading.
	if err := svc.SetEncoding("gbk"); err != nil {
		t.Fatalf("SetEncoding(gbk) after failed load error = %v", err)
	}
	info = svc.Source()
	if info.Filename != "gbk.csv" || info.Encoding != "gbk" {
		t.Errorf("Source() after retry = %#v", info)
	}
	if got := svc.Grid().Headers(); len(got) != 1 || got[0] != "你好" {
		t.Errorf("grid after retry = %v", got)
	}
}

func TestServiceLoadSource_FirstUploadFailure(t *testing.T) {
	svc := NewService()
	if err := svc.LoadSource([]byte{0xff, 0xfe}, "x.csv", "utf-8"); err == nil {
		t.Fatal("LoadSource() expected decode error")
	}

	info := svc.Source()
	if info.Loaded || info.Filename != "" {
		t.Errorf("Source() after failed first upload = %#v", info)
	}
	if _, err := svc.Export(); !errors.Is(err, ErrNoSource) {
		t.Errorf("Export() error = %v, want ErrNoSource", err)
	}
}

func TestServiceSetEncoding(t *testing.T) {
	svc := loadedService(t)

	// Failed switch leaves grid and selection untouched.
	if err := svc.SetEncoding("ebcdic"); err == nil {
		t.Fatal("SetEncoding() expected error for unsupported encoding")
	}
	if info := svc.Source(); info.Encoding != "utf-8" || info.Rows != 3 {
		t.Errorf("state changed by failed SetEncoding: %#v", info)
	}

	// ASCII content survives a legitimate switch.
	if err := svc.SetEncoding("windows-1252"); err != nil {
		t.Fatalf("SetEncoding(windows-1252) error = %v", err)
	}
	if info := svc.Source(); info.Encoding != "windows-1252" || info.Rows != 3 {
		t.Errorf("Source() after switch = %#v", info)
	}
}

func TestServiceSetEncoding_BeforeUpload(t *testing.T) {
	svc := NewService()
	if err := svc.SetEncoding("gbk"); err != nil {
		t.Fatalf("SetEncoding() error = %v", err)
	}
	if err := svc.SetEncoding("nope"); err == nil {
		t.Error("SetEncoding() accepted unknown encoding with no source")
	}
	if info := svc.Source(); info.Encoding != "gbk" || info.Loaded {
		t.Errorf("Source() = %#v", info)
	}
}

// ============================================================================
// Configuration edits and the generation guard
// ============================================================================

func TestServiceFieldEdits(t *testing.T) {
	svc := NewService()

	_, gen0 := svc.Config()
	svc.AppendField(NewField(KindFilename, "File"))
	cfg, gen1 := svc.Config()
	if gen1 != gen0+1 {
		t.Errorf("generation after append = %d, want %d", gen1, gen0+1)
	}
	if len(cfg) != 1 || cfg[0].Header != "File" {
		t.Errorf("Config() = %#v", cfg)
	}

	id := cfg[0].ID
	newHeader := "Origin"
	if !svc.UpdateField(id, FieldPatch{Header: &newHeader}) {
		t.Fatal("UpdateField() = false")
	}
	if !svc.MoveField(id, 0) {
		t.Fatal("MoveField() = false")
	}
	if !svc.RemoveField(id) {
		t.Fatal("RemoveField() = false")
	}

	cfg, gen := svc.Config()
	if len(cfg) != 0 {
		t.Errorf("Config() after remove = %#v", cfg)
	}
	if gen != gen0+4 {
		t.Errorf("generation = %d, want %d", gen, gen0+4)
	}

	// Misses do not burn a generation.
	if svc.RemoveField("missing") || svc.UpdateField("missing", FieldPatch{}) || svc.MoveField("missing", 0) {
		t.Error("edit by unknown ID reported success")
	}
	if _, after := svc.Config(); after != gen {
		t.Errorf("generation moved on failed edits: %d", after)
	}
}

func TestServiceConfig_ReturnsCopy(t *testing.T) {
	svc := NewService()
	svc.AppendField(NewField(KindConstant, "c"))

	cfg, _ := svc.Config()
	cfg[0].Header = "mutated"

	fresh, _ := svc.Config()
	if fresh[0].Header != "c" {
		t.Error("Config() shares descriptors with the session")
	}
}

func TestServiceApplySuggestion(t *testing.T) {
	svc := NewService()
	_, gen := svc.Config()

	suggested := Configuration{NewField(KindColumn, "Question")}
	if !svc.ApplySuggestion(gen, suggested) {
		t.Fatal("ApplySuggestion() rejected a fresh generation")
	}
	if cfg, _ := svc.Config(); len(cfg) != 1 || cfg[0].Header != "Question" {
		t.Errorf("Config() after apply = %#v", cfg)
	}
}

func TestServiceApplySuggestion_StaleGenerationDropped(t *testing.T) {
	svc := NewService()
	_, gen := svc.Config()

	// The user edits while the suggestion request is in flight.
	svc.AppendField(NewField(KindConstant, "Manual"))

	if svc.ApplySuggestion(gen, Configuration{NewField(KindColumn, "Late")}) {
		t.Fatal("ApplySuggestion() applied a stale result")
	}
	cfg, _ := svc.Config()
	if len(cfg) != 1 || cfg[0].Header != "Manual" {
		t.Errorf("manual edit lost: %#v", cfg)
	}
}

// ============================================================================
// Preview / Export Tests
// ============================================================================

func TestServicePreview(t *testing.T) {
	svc := loadedService(t)

	q := NewField(KindColumn, "Question")
	q.Column = Col(0)
	svc.ReplaceConfig(Configuration{q})

	got := svc.Preview(0)
	want := [][]string{{"Question"}, {"Q1"}, {"Q2"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Preview(0) = %#v, want %#v", got, want)
	}

	if got := svc.Preview(1); len(got) != 2 || got[1][0] != "Q1" {
		t.Errorf("Preview(1) = %#v", got)
	}
}

func TestServiceExport(t *testing.T) {
	svc := NewService()
	if _, err := svc.Export(); !errors.Is(err, ErrNoSource) {
		t.Fatalf("Export() with no source error = %v, want ErrNoSource", err)
	}

	svc = loadedService(t)
	q := NewField(KindColumn, "Question")
	q.Column = Col(0)
	svc.ReplaceConfig(Configuration{q})

	doc, err := svc.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	want := "\ufeff" + "Question\n\"Q1\"\n\"Q2\""
	if string(doc) != want {
		t.Errorf("Export() = %q, want %q", doc, want)
	}
	if !strings.HasPrefix(string(doc), "\ufeff") {
		t.Error("Export() missing BOM")
	}
}
