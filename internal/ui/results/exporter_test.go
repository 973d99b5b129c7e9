package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sadopc/toydb/internal/session"
)

func explainResult() *session.Result {
	return &session.Result{
		Columns: []string{"column", "type", "key"},
		Rows: [][]string{
			{"id", "INT", "PRI"},
			{"name", "VARCHAR(20)", ""},
		},
	}
}

// --- CSV Tests ---

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, explainResult()); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}
	want := [][]string{
		{"column", "type", "key"},
		{"id", "INT", "PRI"},
		{"name", "VARCHAR(20)", ""},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("CSV mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV_SpecialCharacters(t *testing.T) {
	res := &session.Result{
		Columns: []string{"table"},
		Rows:    [][]string{{`with,comma`}, {`with "quote"`}, {"multi\nline"}},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, res); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	for i, row := range res.Rows {
		if records[i+1][0] != row[0] {
			t.Errorf("row %d = %q, want %q", i, records[i+1][0], row[0])
		}
	}
}

func TestWriteCSV_MessageOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, &session.Result{Message: "OK"}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

// --- JSON Tests ---

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, explainResult()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var got []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []map[string]string{
		{"column": "id", "type": "INT", "key": "PRI"},
		{"column": "name", "type": "VARCHAR(20)", "key": ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSON_EmptyRows(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, &session.Result{Columns: []string{"table"}}); err != nil {
		t.Fatal(err)
	}
	if got := bytes.TrimSpace(buf.Bytes()); string(got) != "[]" {
		t.Errorf("expected [], got %s", got)
	}
}

func TestWriteJSON_ShortRow(t *testing.T) {
	res := &session.Result{Columns: []string{"a", "b"}, Rows: [][]string{{"1"}}}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, res); err != nil {
		t.Fatal(err)
	}
	var got []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got[0]["b"] != "" {
		t.Errorf("missing cell = %q, want empty", got[0]["b"])
	}
}

func TestWriteJSON_MessageOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, &session.Result{Message: "1 table(s) dropped"}); err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["message"] != "1 table(s) dropped" {
		t.Errorf("message = %q", got["message"])
	}
}
