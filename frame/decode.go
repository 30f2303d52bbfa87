package frame

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var ErrUnknownFormat = errors.New("unknown data file format")

// Format identifies the serialization of a data file.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatFromExt maps a file extension, with or without the leading dot, to a Format.
func FormatFromExt(ext string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%q, %w", ext, ErrUnknownFormat)
	}
}

// Decode reads a frame in the given format.
func Decode(r io.Reader, format Format) (*Frame, error) {
	switch format {
	case FormatJSON:
		return DecodeJSON(r)
	case FormatCSV:
		return DecodeCSV(r)
	default:
		return nil, fmt.Errorf("%q, %w", format, ErrUnknownFormat)
	}
}

var timeLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01",
	"2006",
}

// ParseTime parses a date or timestamp in any of the layouts pandas commonly writes.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse %q as time, %w", s, ErrColumnType)
}

// DecodeJSON reads either records orientation, [{"ds": ..., "y": ...}, ...], or columns
// orientation, {"ds": [...], "y": [...]} or {"ds": {"0": ...}, "y": {"0": ...}}.
// Columns are ordered lexically since JSON objects carry no order.
func DecodeJSON(r io.Reader) (*Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read json, %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input, %w", ErrMalformed)
	}

	var cols map[string][]interface{}
	switch data[0] {
	case '[':
		cols, err = decodeRecords(data)
	case '{':
		cols, err = decodeColumns(data)
	default:
		err = fmt.Errorf("unexpected leading %q", data[0])
	}
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrMalformed)
	}

	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	n := -1
	for _, name := range names {
		if n == -1 {
			n = len(cols[name])
			continue
		}
		if len(cols[name]) != n {
			return nil, fmt.Errorf("column %q has %d rows, expected %d, %w", name, len(cols[name]), n, ErrMalformed)
		}
	}
	if n == -1 {
		n = 0
	}

	f := New(n)
	for _, name := range names {
		if err := f.addJSONColumn(name, cols[name]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func decodeRecords(data []byte) (map[string][]interface{}, error) {
	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	cols := make(map[string][]interface{})
	for _, rec := range records {
		for name := range rec {
			if _, exists := cols[name]; !exists {
				cols[name] = nil
			}
		}
	}
	for name := range cols {
		vals := make([]interface{}, len(records))
		for i, rec := range records {
			vals[i] = rec[name]
		}
		cols[name] = vals
	}
	return cols, nil
}

func decodeColumns(data []byte) (map[string][]interface{}, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	cols := make(map[string][]interface{}, len(raw))
	for name, msg := range raw {
		msg = bytes.TrimSpace(msg)
		if len(msg) > 0 && msg[0] == '{' {
			vals, err := decodeIndexed(msg)
			if err != nil {
				return nil, fmt.Errorf("column %q: %s", name, err.Error())
			}
			cols[name] = vals
			continue
		}
		var vals []interface{}
		if err := json.Unmarshal(msg, &vals); err != nil {
			return nil, fmt.Errorf("column %q: %s", name, err.Error())
		}
		cols[name] = vals
	}
	return cols, nil
}

// decodeIndexed reads a pandas index-keyed column, {"0": v0, "1": v1, ...}, ordered by index.
func decodeIndexed(msg []byte) ([]interface{}, error) {
	var byIndex map[string]interface{}
	if err := json.Unmarshal(msg, &byIndex); err != nil {
		return nil, err
	}
	type indexed struct {
		idx int
		val interface{}
	}
	rows := make([]indexed, 0, len(byIndex))
	for key, val := range byIndex {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("non-integer index %q", key)
		}
		rows = append(rows, indexed{idx: idx, val: val})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].idx < rows[j].idx
	})
	vals := make([]interface{}, len(rows))
	for i, row := range rows {
		vals[i] = row.val
	}
	return vals, nil
}

func (f *Frame) addJSONColumn(name string, vals []interface{}) error {
	kind := KindFloat
first:
	for _, v := range vals {
		switch v.(type) {
		case nil:
			continue
		case float64:
			kind = KindFloat
		case string:
			kind = KindTime
		default:
			return fmt.Errorf("column %q has unsupported value %v, %w", name, v, ErrMalformed)
		}
		break first
	}

	switch kind {
	case KindFloat:
		floats := make([]float64, len(vals))
		for i, v := range vals {
			switch val := v.(type) {
			case nil:
				floats[i] = math.NaN()
			case float64:
				floats[i] = val
			default:
				return fmt.Errorf("column %q row %d is not numeric, %w", name, i, ErrMalformed)
			}
		}
		return f.AddFloats(name, floats)
	default:
		strs := make([]string, len(vals))
		for i, v := range vals {
			switch val := v.(type) {
			case nil:
			case string:
				strs[i] = val
			default:
				return fmt.Errorf("column %q row %d is not a string, %w", name, i, ErrMalformed)
			}
		}
		return f.addTextColumn(name, strs)
	}
}

// addTextColumn stores a column of strings as times when every non-empty value parses
// as a time, and as strings otherwise.
func (f *Frame) addTextColumn(name string, strs []string) error {
	times := make([]time.Time, len(strs))
	var nonEmpty int
	for i, s := range strs {
		if s == "" {
			continue
		}
		t, err := ParseTime(s)
		if err != nil {
			return f.AddStrings(name, strs)
		}
		times[i] = t
		nonEmpty++
	}
	if nonEmpty == 0 {
		return f.AddStrings(name, strs)
	}
	return f.AddTimes(name, times)
}

// DecodeCSV reads a header row followed by data rows. A column is numeric when every
// non-empty cell parses as a float (empty cells become NaN), temporal when every
// non-empty cell parses as a time, and string otherwise.
func DecodeCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrMalformed)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header row, %w", ErrMalformed)
	}

	header := records[0]
	rows := records[1:]
	f := New(len(rows))
	for j, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("empty column name at position %d, %w", j, ErrMalformed)
		}
		cells := make([]string, len(rows))
		for i, row := range rows {
			cells[i] = strings.TrimSpace(row[j])
		}
		if err := f.addCSVColumn(name, cells); err != nil {
			if errors.Is(err, ErrColumnExists) {
				return nil, fmt.Errorf("%s, %w", err.Error(), ErrMalformed)
			}
			return nil, err
		}
	}
	return f, nil
}

func (f *Frame) addCSVColumn(name string, cells []string) error {
	floats := make([]float64, len(cells))
	numeric := true
	for i, cell := range cells {
		if cell == "" {
			floats[i] = math.NaN()
			continue
		}
		val, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			numeric = false
			break
		}
		floats[i] = val
	}
	if numeric {
		return f.AddFloats(name, floats)
	}
	return f.addTextColumn(name, cells)
}
