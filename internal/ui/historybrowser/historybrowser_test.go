package historybrowser

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/toydb/internal/history"
)

func newHistory(t *testing.T, stmts ...string) *history.History {
	t.Helper()
	h, err := history.OpenDir(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("OpenDir() error = %v", err)
	}
	t.Cleanup(func() { h.Close() })

	base := time.Now().Add(-time.Hour)
	for i, s := range stmts {
		e := history.Entry{Statement: s, Dialect: "sqlite", ExecutedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := h.Add(context.Background(), e); err != nil {
			t.Fatalf("Add(%q) error = %v", s, err)
		}
	}
	return h
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestNilHistory(t *testing.T) {
	m := New(nil)
	m.Show()

	if !m.Visible() {
		t.Fatal("expected visible after Show()")
	}
	if len(m.entries) != 0 {
		t.Fatalf("expected 0 entries with nil history, got %d", len(m.entries))
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("enter with no entries should not select anything")
	}
	if !strings.Contains(m.View(), "no matching statements") {
		t.Errorf("View() = %q, want empty notice", m.View())
	}
}

func TestShowListsMostRecentFirst(t *testing.T) {
	m := New(newHistory(t, "CREATE DATABASE shop", "USE shop", "SHOW TABLES"))
	m.Show()

	var got []string
	for _, e := range m.entries {
		got = append(got, e.Statement)
	}
	want := []string{"SHOW TABLES", "USE shop", "CREATE DATABASE shop"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("entries = %v, want %v", got, want)
	}
}

func TestTypingFilters(t *testing.T) {
	m := New(newHistory(t, "CREATE DATABASE shop", "USE shop", "SHOW TABLES"))
	m.Show()
	m = typeText(m, "shop")

	if len(m.entries) != 2 {
		t.Fatalf("filtered entries = %d, want 2", len(m.entries))
	}
	if m.entries[0].Statement != "USE shop" {
		t.Errorf("first match = %q, want %q", m.entries[0].Statement, "USE shop")
	}
}

func TestSelectQueryMsg(t *testing.T) {
	m := New(newHistory(t, "SELECT 1", "SELECT 2"))
	m.Show()

	// Moving up goes further back in time.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.Visible() {
		t.Fatal("expected hidden after enter")
	}
	if cmd == nil {
		t.Fatal("expected cmd from enter")
	}
	sel, ok := cmd().(SelectQueryMsg)
	if !ok {
		t.Fatalf("expected SelectQueryMsg, got %T", cmd())
	}
	if sel.Statement != "SELECT 1" {
		t.Fatalf("Statement = %q, want %q", sel.Statement, "SELECT 1")
	}
}

func TestCursorBounds(t *testing.T) {
	m := New(newHistory(t, "SELECT 1", "SELECT 2"))
	m.Show()

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 0 {
		t.Errorf("cursor after down at newest = %d, want 0", m.cursor)
	}
	for i := 0; i < 5; i++ {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	}
	if m.cursor != 1 {
		t.Errorf("cursor after repeated up = %d, want 1", m.cursor)
	}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		offset time.Duration
		want   string
	}{
		{5 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{2 * time.Hour, "2h ago"},
		{36 * time.Hour, "yesterday"},
		{72 * time.Hour, "3d ago"},
	}
	for _, tt := range tests {
		got := RelativeTime(time.Now().Add(-tt.offset))
		if got != tt.want {
			t.Errorf("RelativeTime(-%v) = %q, want %q", tt.offset, got, tt.want)
		}
	}
}

func TestFormatEntryTruncation(t *testing.T) {
	m := New(nil)
	e := history.Entry{
		Statement:    "CREATE TABLE some_extremely_long_table_name (very_long_column_name_one INT, very_long_column_name_two TEXT)",
		DatabaseName: "shop",
		DurationMS:   42,
		ExecutedAt:   time.Now().Add(-5 * time.Minute),
	}

	got := m.formatEntry(e, 60)
	if w := runewidth.StringWidth(got); w != 60 {
		t.Errorf("formatEntry width = %d, want 60", w)
	}
	if !strings.Contains(got, "…") {
		t.Errorf("formatEntry = %q, want truncation marker", got)
	}
	if !strings.HasSuffix(got, "shop | 42ms | 5m ago") {
		t.Errorf("formatEntry = %q, want metadata suffix", got)
	}
}

func TestEscHides(t *testing.T) {
	m := New(nil)
	m.Show()

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	if m.Visible() {
		t.Fatal("esc should hide")
	}
	if m.View() != "" {
		t.Error("hidden panel should render nothing")
	}
}
