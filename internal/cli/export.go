package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/stepsim/internal/engine"
	"github.com/roach88/stepsim/internal/ir"
)

// columnStatus is the exported column holding the outcome of the session
// a record belongs to. Partial histories of failed sessions are exported
// with status "failed".
const columnStatus = "status"

// exportTable writes the trajectory of res to path. The format follows the
// extension: .csv for a flat table, .json for canonical JSON.
func exportTable(path string, res *engine.Result) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".json" {
		return fmt.Errorf("unsupported output format %q (use .csv or .json)", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	status := sessionStatuses(res.Sessions)
	if ext == ".csv" {
		err = writeCSV(f, res.Table, status)
	} else {
		err = writeCanonicalJSON(f, res.Table, res.Sessions)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

type sessionKey struct{ subset, run int }

func sessionStatuses(sessions []engine.SessionResult) map[sessionKey]string {
	out := make(map[sessionKey]string, len(sessions))
	for _, s := range sessions {
		out[sessionKey{s.Subset, s.Run}] = string(s.Status)
	}
	return out
}

// writeCSV writes the header row (state variables, tag columns, status)
// followed by one row per record.
func writeCSV(w io.Writer, t ir.Table, status map[sessionKey]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(t.Columns(), columnStatus)); err != nil {
		return err
	}
	for i := range t.Len() {
		row := t.Row(i)
		cells := make([]string, len(row), len(row)+1)
		for j, v := range row {
			cell, err := formatCell(v)
			if err != nil {
				return fmt.Errorf("record %d, column %s: %w", i, t.Columns()[j], err)
			}
			cells[j] = cell
		}
		r := t.Records[i]
		cells = append(cells, status[sessionKey{r.Subset, r.Run}])
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeCanonicalJSON writes the trajectory document: variables, records,
// the per-session outcomes and the trajectory digest.
func writeCanonicalJSON(w io.Writer, t ir.Table, sessions []engine.SessionResult) error {
	digest, err := ir.TableDigest(t)
	if err != nil {
		return err
	}

	vars := make([]any, len(t.Variables))
	for i, v := range t.Variables {
		vars[i] = v
	}
	records := make([]any, len(t.Records))
	for i, r := range t.Records {
		records[i] = map[string]any{
			ir.ColumnRun:      int64(r.Run),
			ir.ColumnSubset:   int64(r.Subset),
			ir.ColumnTimestep: int64(r.Timestep),
			ir.ColumnSubstep:  int64(r.Substep),
			"state":           r.State,
		}
	}
	outcomes := make([]any, len(sessions))
	for i, s := range sessions {
		o := map[string]any{
			ir.ColumnRun:    int64(s.Run),
			ir.ColumnSubset: int64(s.Subset),
			columnStatus:    string(s.Status),
		}
		if s.Err != nil {
			o["error"] = s.Err.Error()
		}
		outcomes[i] = o
	}

	data, err := ir.MarshalCanonical(map[string]any{
		"variables": vars,
		"records":   records,
		"sessions":  outcomes,
		"digest":    digest,
	})
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// formatCell renders one value for CSV. Strings and times are written
// bare, null is empty, everything else is canonical JSON.
func formatCell(v ir.Value) (string, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return "", nil
	case ir.String:
		return string(val), nil
	case ir.Time:
		return time.Time(val).UTC().Format(time.RFC3339Nano), nil
	default:
		data, err := ir.MarshalCanonical(val)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
