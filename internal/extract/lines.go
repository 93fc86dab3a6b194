package extract

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/franz/sparkify-etl/internal/util"
)

// readRecords decodes a newline-delimited JSON file one object at a time.
// Blank lines are ignored and do not advance the record index. The first
// malformed line fails the whole file.
func readRecords(path string, newRecord func() any, fn func(index int, rec any) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	lineNo := 0
	index := 0
	for {
		line, readErr := r.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			line = bytes.TrimSpace(line)
			if len(line) > 0 {
				rec := newRecord()
				if err := json.Unmarshal(line, rec); err != nil {
					return fmt.Errorf("%s:%d: %w: %v", path, lineNo, util.ErrMalformedInput, err)
				}
				if err := fn(index, rec); err != nil {
					return err
				}
				index++
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", path, readErr)
		}
	}
}

// Text is a JSON value kept in textual form. Strings are taken as-is,
// numbers keep their literal digits, null leaves Valid false.
type Text struct {
	Value string
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = Text{}
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text{Value: s, Valid: true}
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", b)
		}
		*t = Text{Value: n.String(), Valid: true}
	}
	return nil
}

// Present reports whether the value is non-null and non-empty
func (t Text) Present() bool {
	return t.Valid && t.Value != ""
}

// Ptr returns nil for a null value
func (t Text) Ptr() *string {
	if !t.Valid {
		return nil
	}
	v := t.Value
	return &v
}

// numberInt64 converts a JSON number to int64, accepting integral floats
// such as 1.541903636796e12.
func numberInt64(n json.Number) (int64, bool) {
	if n == "" {
		return 0, false
	}
	if v, err := n.Int64(); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}
