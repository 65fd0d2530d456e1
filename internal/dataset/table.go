package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is a CSV dataset kept as raw text cells.
type Table struct {
	Header []string
	Rows   [][]string
}

type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "dataset is missing required columns: " + strings.Join(e.Missing, ", ")
}

func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true
	}

	t := &Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func (t *Table) Len() int { return len(t.Rows) }

func (t *Table) columnIndex() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		idx[h] = i
	}
	return idx
}

// Require reports every column in cols that the table lacks.
func (t *Table) Require(cols []string) error {
	idx := t.columnIndex()
	var missing []string
	for _, c := range cols {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}

// Select projects the table onto cols, in that order.
func (t *Table) Select(cols []string) (*Table, error) {
	if err := t.Require(cols); err != nil {
		return nil, err
	}
	idx := t.columnIndex()
	out := &Table{Header: append([]string(nil), cols...), Rows: make([][]string, len(t.Rows))}
	for r, row := range t.Rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = row[idx[c]]
		}
		out.Rows[r] = cells
	}
	return out, nil
}

// Take returns the rows at idx, in idx order.
func (t *Table) Take(idx []int) *Table {
	out := &Table{Header: t.Header, Rows: make([][]string, len(idx))}
	for i, j := range idx {
		out.Rows[i] = t.Rows[j]
	}
	return out
}

func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile writes t to path and syncs it to disk.
func WriteFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return f.Close()
}
