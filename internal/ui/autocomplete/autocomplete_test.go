package autocomplete

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/toydb/internal/completion"
	"github.com/sadopc/toydb/internal/schema"
	"github.com/sadopc/toydb/internal/theme"
)

func init() {
	theme.Current = theme.Default()
}

func testEngine() *completion.Engine {
	eng := completion.NewEngine("sqlite")
	eng.Update(schema.Snapshot{
		Databases: []string{"analytics", "shop"},
		Current:   "shop",
		Objects: []schema.Object{
			{ID: 1, Kind: schema.KindTable, Name: "orders"},
			{ID: 2, Kind: schema.KindTable, Name: "users"},
			{ID: 3, Kind: schema.KindView, Name: "user_names"},
		},
		Columns: map[string][]schema.Column{
			"users": {{Name: "id", DataType: "INT", IsPrimaryKey: true}},
		},
	})
	return eng
}

func selected(t *testing.T, cmd tea.Cmd) SelectedMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	sel, ok := cmd().(SelectedMsg)
	if !ok {
		t.Fatalf("expected SelectedMsg, got %T", cmd())
	}
	return sel
}

func TestNew(t *testing.T) {
	m := New(nil)

	if m.Visible() {
		t.Fatal("expected not visible initially")
	}
	if m.Engine() != nil {
		t.Fatal("expected nil engine")
	}
	if m.width != 40 {
		t.Fatalf("expected default width=40, got %d", m.width)
	}
}

func TestTrigger_NoEngine(t *testing.T) {
	m := New(nil)
	if cmd := m.Trigger("SELECT ", 7); cmd != nil {
		t.Fatal("expected no command without an engine")
	}
	if m.Visible() {
		t.Fatal("expected not visible when engine is nil")
	}
}

func TestTrigger_SingleCandidate(t *testing.T) {
	m := New(testEngine())
	text := "EXPLAIN ord"
	sel := selected(t, m.Trigger(text, len(text)))

	if sel.Text != "orders" || sel.Replace != 3 {
		t.Errorf("got %+v, want orders replacing 3", sel)
	}
	if m.Visible() {
		t.Error("list shown for a single candidate")
	}
}

func TestTrigger_CommonPrefix(t *testing.T) {
	m := New(testEngine())
	text := "CREATE VIEW v AS SELECT * FROM us"
	sel := selected(t, m.Trigger(text, len(text)))

	if sel.Text != "user" || sel.Replace != 2 {
		t.Errorf("got %+v, want user replacing 2", sel)
	}
}

func TestTrigger_ShowsList(t *testing.T) {
	m := New(testEngine())
	text := "EXPLAIN "
	if cmd := m.Trigger(text, len(text)); cmd != nil {
		t.Fatalf("expected no immediate selection, got %v", cmd())
	}
	if !m.Visible() {
		t.Fatal("expected list to be visible")
	}
	v := m.View()
	if !strings.Contains(v, "orders") || !strings.Contains(v, "users") {
		t.Errorf("list view missing tables: %q", v)
	}
}

func TestTrigger_NoCandidates(t *testing.T) {
	m := New(testEngine())
	text := "USE zzz"
	if cmd := m.Trigger(text, len(text)); cmd != nil {
		t.Fatal("expected no command")
	}
	if m.Visible() {
		t.Fatal("expected not visible")
	}
}

func TestUpdate_Navigation(t *testing.T) {
	m := New(testEngine())
	text := "USE "
	m.Trigger(text, len(text))
	if !m.Visible() {
		t.Fatal("expected list to be visible")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 1 {
		t.Fatalf("expected selected=1, got %d", m.selected)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 1 {
		t.Fatalf("selection moved past the end: %d", m.selected)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.selected != 0 {
		t.Fatalf("expected selected=0, got %d", m.selected)
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	sel := selected(t, cmd)
	if sel.Text != "analytics" || sel.Replace != 0 {
		t.Errorf("got %+v, want analytics replacing 0", sel)
	}
	if m.Visible() {
		t.Error("list still visible after accepting")
	}
}

func TestUpdate_Escape(t *testing.T) {
	m := New(testEngine())
	text := "USE "
	m.Trigger(text, len(text))

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.Visible() {
		t.Fatal("expected list dismissed")
	}
	if _, ok := cmd().(DismissMsg); !ok {
		t.Fatal("expected DismissMsg")
	}
}

func TestUpdate_HiddenIgnoresKeys(t *testing.T) {
	m := New(testEngine())
	m2, cmd := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if cmd != nil || m2.selected != 0 {
		t.Fatal("hidden list reacted to a key")
	}
}

func TestView_Hidden(t *testing.T) {
	m := New(testEngine())
	if v := m.View(); v != "" {
		t.Fatalf("expected empty view, got %q", v)
	}
}

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		text   string
		cursor int
		want   string
	}{
		{"SELECT na", 9, "na"},
		{"SELECT ", 7, ""},
		{"users.em", 8, "em"},
		{"f(x", 3, "x"},
		{"abc", 99, "abc"},
	}
	for _, tt := range tests {
		if got := extractPrefix(tt.text, tt.cursor); got != tt.want {
			t.Errorf("extractPrefix(%q, %d) = %q, want %q", tt.text, tt.cursor, got, tt.want)
		}
	}
}

func TestKindIcon(t *testing.T) {
	tests := []struct {
		kind completion.Kind
		want string
	}{
		{completion.KindTable, "T"},
		{completion.KindView, "V"},
		{completion.KindColumn, "C"},
		{completion.KindKeyword, "K"},
		{completion.KindFunction, "F"},
		{completion.KindDatabase, "D"},
		{completion.Kind(99), " "},
	}
	for _, tt := range tests {
		if got := kindIcon(tt.kind); got != tt.want {
			t.Errorf("kindIcon(%v) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
