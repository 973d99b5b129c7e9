package results

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/sadopc/toydb/internal/session"
)

// WriteCSV writes a header row followed by the result rows. A result
// without columns writes nothing.
func WriteCSV(w io.Writer, res *session.Result) error {
	if len(res.Columns) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return err
	}
	for _, row := range res.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the rows as an indented JSON array of objects mapping
// column names to values. A result without columns is written as
// {"message": ...}.
func WriteJSON(w io.Writer, res *session.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if len(res.Columns) == 0 {
		return enc.Encode(map[string]string{"message": res.Message})
	}

	objects := make([]map[string]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		obj := make(map[string]string, len(res.Columns))
		for j, name := range res.Columns {
			if j < len(row) {
				obj[name] = row[j]
			} else {
				obj[name] = ""
			}
		}
		objects = append(objects, obj)
	}
	return enc.Encode(objects)
}
