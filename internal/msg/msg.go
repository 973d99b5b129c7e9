// Package msg defines the bubbletea messages exchanged between the REPL
// model and its components.
package msg

import (
	"strconv"
	"time"

	"github.com/sadopc/toydb/internal/runner"
	"github.com/sadopc/toydb/internal/schema"
)

// ExecuteMsg requests execution of one input line.
type ExecuteMsg struct {
	Line string
}

// ExecutedMsg is sent when a line has been run. Database is the selected
// database afterwards, empty when none is selected.
type ExecutedMsg struct {
	Line     string
	Outcomes []runner.Outcome
	Database string
	Elapsed  time.Duration
}

// Err returns the error that stopped the line, if any.
func (m ExecutedMsg) Err() error {
	for _, o := range m.Outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

// Summary describes the line for the status bar: the failure, or the last
// statement's message or row count.
func (m ExecutedMsg) Summary() string {
	if err := m.Err(); err != nil {
		return runner.ErrorKind(err)
	}
	if len(m.Outcomes) == 0 {
		return ""
	}
	res := m.Outcomes[len(m.Outcomes)-1].Result
	switch {
	case res == nil:
		return ""
	case len(res.Columns) > 0 && len(res.Rows) == 1:
		return "1 row"
	case len(res.Columns) > 0:
		return strconv.Itoa(len(res.Rows)) + " rows"
	default:
		return res.Message
	}
}

// SnapshotMsg carries the catalog snapshot used for completion.
type SnapshotMsg struct {
	Snapshot schema.Snapshot
	Err      error
}

// HistoryMsg carries previously entered lines, oldest first.
type HistoryMsg struct {
	Statements []string
	Err        error
}

// StatusMsg updates the status bar text.
type StatusMsg struct {
	Text     string
	IsError  bool
	Duration time.Duration
}
