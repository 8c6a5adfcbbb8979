package maptrack

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Dataset is a decoded tabular event log: a header row plus data rows.
// Rows may be ragged; missing cells read as "".
type Dataset struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// RequiredColumns are the columns every MapTrack export must carry.
// These three are matched by exact name; all other roles go through
// alias resolution.
var RequiredColumns = []string{"timestamp", "event_name", "event_detail"}

// ReadCSV decodes a MapTrack CSV export and validates the required columns.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty CSV file")
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	ds := NewDataset(header)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", len(ds.Rows)+1, err)
		}
		ds.Rows = append(ds.Rows, rec)
	}

	if err := ds.ValidateRequired(); err != nil {
		return nil, err
	}
	return ds, nil
}

// NewDataset builds an empty dataset with the given header.
func NewDataset(columns []string) *Dataset {
	cols := make([]string, len(columns))
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		c = strings.TrimSpace(c)
		cols[i] = c
		if _, ok := idx[c]; !ok {
			idx[c] = i
		}
	}
	return &Dataset{Columns: cols, index: idx}
}

// ValidateRequired reports the missing required columns, if any, as a
// single schema error. Nothing row-level is inspected here.
func (d *Dataset) ValidateRequired() error {
	var missing []string
	for _, c := range RequiredColumns {
		if !d.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("CSV is missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// HasColumn reports whether the dataset header contains the exact column name.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Cell returns the value at (row, column). Missing columns and cells
// beyond a short row both read as "".
func (d *Dataset) Cell(row int, column string) string {
	i, ok := d.index[column]
	if !ok || row < 0 || row >= len(d.Rows) {
		return ""
	}
	r := d.Rows[row]
	if i >= len(r) {
		return ""
	}
	return r[i]
}

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// UserIDColumn finds the user-id column by case-insensitive match on
// the literal name "userid". Empty string when absent.
func (d *Dataset) UserIDColumn() string {
	for _, c := range d.Columns {
		if strings.EqualFold(c, "userid") {
			return c
		}
	}
	return ""
}

// Subset returns a new dataset with the same header and the given rows
// (shared, not copied), preserving their relative order.
func (d *Dataset) Subset(rowIndexes []int) *Dataset {
	sub := NewDataset(d.Columns)
	sub.Rows = make([][]string, 0, len(rowIndexes))
	for _, i := range rowIndexes {
		if i >= 0 && i < len(d.Rows) {
			sub.Rows = append(sub.Rows, d.Rows[i])
		}
	}
	return sub
}

// FirstRow returns the first data row as a column->value map, or nil
// for an empty dataset. Soc-demo extraction reads from this.
func (d *Dataset) FirstRow() map[string]string {
	if len(d.Rows) == 0 {
		return nil
	}
	out := make(map[string]string, len(d.Columns))
	for _, c := range d.Columns {
		out[c] = d.Cell(0, c)
	}
	return out
}
