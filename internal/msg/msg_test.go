package msg

import (
	"testing"

	"github.com/sadopc/toydb/internal/catalogerr"
	"github.com/sadopc/toydb/internal/runner"
	"github.com/sadopc/toydb/internal/session"
)

func TestExecutedMsg_Err(t *testing.T) {
	boom := catalogerr.NotFound("table", "t")
	tests := []struct {
		name     string
		outcomes []runner.Outcome
		want     error
	}{
		{"empty", nil, nil},
		{"success", []runner.Outcome{{Result: &session.Result{Message: "OK"}}}, nil},
		{"failure last", []runner.Outcome{{}, {Err: boom}}, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExecutedMsg{Outcomes: tt.outcomes}.Err()
			if got != tt.want {
				t.Errorf("Err() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecutedMsg_Summary(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []runner.Outcome
		want     string
	}{
		{"empty", nil, ""},
		{"message", []runner.Outcome{
			{Result: &session.Result{Message: "database `a` created"}},
		}, "database `a` created"},
		{"uses last outcome", []runner.Outcome{
			{Result: &session.Result{Message: "first"}},
			{Result: &session.Result{Message: "second"}},
		}, "second"},
		{"one row", []runner.Outcome{
			{Result: &session.Result{Columns: []string{"table"}, Rows: [][]string{{"t"}}}},
		}, "1 row"},
		{"rows", []runner.Outcome{
			{Result: &session.Result{Columns: []string{"table"}, Rows: [][]string{{"a"}, {"b"}}}},
		}, "2 rows"},
		{"no rows", []runner.Outcome{
			{Result: &session.Result{Columns: []string{"table"}}},
		}, "0 rows"},
		{"failure", []runner.Outcome{
			{Err: catalogerr.NoDatabaseSelected()},
		}, catalogerr.KindNoDatabaseSelected.String()},
		{"nil result", []runner.Outcome{{}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (ExecutedMsg{Outcomes: tt.outcomes}).Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}
