// Package pincode loads and matches the PIN code table.
// The table format is line-oriented text: one "CODE=function" pair per line,
// ';' starts a comment. '#' is a DTMF symbol and therefore data, not a
// comment marker.
package pincode

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

const (
	// MaxEntries bounds the number of codes loaded from one source.
	// Lines past the limit are ignored, not an error.
	MaxEntries = 100

	// MaxCodeLen is the longest accepted code. Longer codes are skipped
	// with a warning at load time.
	MaxCodeLen = 16
)

// Entry maps one code to its function label.
type Entry struct {
	Code  string
	Label string
}

// Table is an ordered, immutable set of code entries. Matching scans in
// load order, so duplicate codes resolve to the earliest entry. A Table is
// never mutated after Load returns; reloads build a new Table and swap it.
type Table struct {
	entries []Entry
}

// Load parses a code table from r. Malformed lines are skipped with a
// warning; only I/O failure on r is an error. The returned table contains
// the successfully parsed lines in source order.
func Load(r io.Reader) (*Table, error) {
	t := &Table{}
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		if len(t.entries) >= MaxEntries {
			break
		}

		line := strings.TrimRight(scanner.Text(), "\r\n")

		// Skip blanks and ';' comments. '#' is data.
		if line == "" || line[0] == ';' {
			continue
		}

		code, label, ok := strings.Cut(line, "=")
		if !ok {
			log.Printf("pincode: line %d: missing '=', skipped", lineNum)
			continue
		}

		code = strings.TrimSpace(code)
		label = strings.TrimSpace(label)

		if code == "" || label == "" {
			log.Printf("pincode: line %d: empty code or label, skipped", lineNum)
			continue
		}
		if len(code) > MaxCodeLen {
			log.Printf("pincode: line %d: code too long (max %d), skipped", lineNum, MaxCodeLen)
			continue
		}

		t.entries = append(t.entries, Entry{Code: code, Label: label})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read code table: %w", err)
	}

	return t, nil
}

// LoadFile loads a code table from the named file. A missing or unreadable
// file is returned as an error so the caller can keep its previous table.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open code table: %w", err)
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, err
	}
	log.Printf("pincode: loaded %d codes from %s", t.Len(), path)
	return t, nil
}

// Match returns the label of the first entry whose code equals s exactly.
// No prefix or wildcard matching.
func (t *Table) Match(s string) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, e := range t.entries {
		if e.Code == s {
			return e.Label, true
		}
	}
	return "", false
}

// Len returns the number of loaded entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of the table contents in load order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
