package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/pppscrape/pkg/record"
)

var scrapedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testDocument(t *testing.T) record.Document {
	t.Helper()
	p := record.NewPartial("Acme Widgets")
	p.FirstDraw.Amount = record.AmountFromInt(150000)
	p.SetLender("First Bank")
	p.Note(record.NoteInfo, "Data extracted from SBA website")
	rec, err := p.Finalize("https://example.com/acme", scrapedAt)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return rec.Document()
}

// --- Format Tests ---

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSONL", FormatJSONL, false},
		{"yml", FormatYAML, false},
		{" yaml ", FormatYAML, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFormatForPath(t *testing.T) {
	if got := FormatForPath("out/loans.jsonl", FormatJSON); got != FormatJSONL {
		t.Errorf("expected jsonl, got %s", got)
	}
	if got := FormatForPath("out/loans.txt", FormatYAML); got != FormatYAML {
		t.Errorf("expected default, got %s", got)
	}
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Format("csv"))
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

// --- JSONWriter Tests ---

func TestJSONWriter_SingleDocument(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatJSON)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(testDocument(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a JSON object: %v\n%s", err, buf.String())
	}
	for _, key := range []string{"businessName", "firstDraw", "secondDraw", "lender", "notes", "sourceLink", "scrapedAt"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %s", key)
		}
	}
	if got["firstDraw"].(map[string]any)["amount"] != float64(150000) {
		t.Errorf("amount must be a bare number: %s", buf.String())
	}
	if second := got["secondDraw"].(map[string]any); second["amount"] != nil || second["date"] != nil {
		t.Errorf("unset draw must be null: %v", second)
	}
	if got["scrapedAt"] != "2024-03-01T12:00:00Z" {
		t.Errorf("unexpected scrapedAt %v", got["scrapedAt"])
	}
}

func TestJSONWriter_CloseAfterFlush(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")
	_ = w.Write(testDocument(t))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Errorf("expected one line of output, got %d:\n%s", n, buf.String())
	}
}

func TestJSONWriter_MultipleDocuments(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, true, "  ")
	_ = w.Write(testDocument(t))
	_ = w.Write(record.NewErrorRecord(errors.New("blocked"), "Acme", "https://example.com", scrapedAt).Document())
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("expected JSON array: %v", err)
	}
	if len(got) != 2 || got[1]["error"] != "blocked" {
		t.Errorf("unexpected output: %v", got)
	}
}

// --- JSONLWriter Tests ---

func TestJSONLWriter_OneLinePerDocument(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)
	for i := 0; i < 3; i++ {
		if err := w.Write(testDocument(t)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	_ = w.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for _, line := range lines {
		var doc map[string]any
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			t.Errorf("invalid JSON line %q: %v", line, err)
		}
	}
}

// --- YAMLWriter Tests ---

func TestYAMLWriter_SingleDocument(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewYAMLWriter(buf)
	_ = w.Write(testDocument(t))
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"businessName: Acme Widgets", "amount: 150000", "lender: First Bank", "forgiveness: null"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}

	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
}

// --- Create Tests ---

func TestCreate_AppendsJSONL(t *testing.T) {
	fs := afero.NewMemMapFs()
	for i := 0; i < 2; i++ {
		f, err := Create(fs, "out/loans.jsonl", FormatJSONL)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		w := NewJSONLWriter(f)
		_ = w.Write(testDocument(t))
		_ = w.Close()
		_ = f.Close()
	}

	data, err := afero.ReadFile(fs, "out/loans.jsonl")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("expected 2 appended lines, got %d", n)
	}
}

func TestCreate_TruncatesJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "loans.json", []byte(strings.Repeat("x", 4096)), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Create(fs, "loans.json", FormatJSON)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	w := NewJSONWriter(f, false, "")
	_ = w.Write(testDocument(t))
	_ = w.Close()
	_ = f.Close()

	data, _ := afero.ReadFile(fs, "loans.json")
	if strings.Contains(string(data), "xxx") {
		t.Error("existing content must be truncated")
	}
}
