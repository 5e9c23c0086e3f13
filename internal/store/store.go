// Package store persists record sets as pretty-printed JSON arrays and
// merges new bars into them incrementally.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockbars/internal/bars"
)

// KeyMode selects how a cache path is derived.
type KeyMode string

const (
	// KeySymbol stores every fetch for a symbol in {symbol}.json.
	KeySymbol KeyMode = "symbol"
	// KeyRange names the file after the first and last dates of the fetch:
	// {symbol}_{first}_{last}.json. Different windows land in different files.
	KeyRange KeyMode = "range"
)

// ParseKeyMode maps a config value onto a KeyMode. Unknown values fall back
// to KeySymbol.
func ParseKeyMode(s string) KeyMode {
	if KeyMode(strings.ToLower(strings.TrimSpace(s))) == KeyRange {
		return KeyRange
	}
	return KeySymbol
}

type Store struct {
	dir string
	key KeyMode
}

func New(dir string, key KeyMode) *Store {
	if key == "" {
		key = KeySymbol
	}
	return &Store{dir: dir, key: key}
}

func (s *Store) Dir() string { return s.dir }

// Setup creates the cache directory. Safe to call more than once.
func (s *Store) Setup() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return nil
}

// Path returns the cache file for symbol. first and last are only used in
// KeyRange mode.
func (s *Store) Path(symbol, first, last string) string {
	name := sanitize(symbol)
	if s.key == KeyRange {
		name = fmt.Sprintf("%s_%s_%s", name, first, last)
	}
	return filepath.Join(s.dir, name+".json")
}

// Load reads a record set. A missing file, content that does not decode as a
// record array, or a record without a YYYYMMDD date yields an empty set and
// no error; only other I/O failures are returned.
func (s *Store) Load(path string) ([]bars.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache: %w", err)
	}
	var records []bars.Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, nil
	}
	for _, r := range records {
		if _, err := time.Parse(bars.DateLayout, r.Date); err != nil {
			return nil, nil
		}
	}
	return records, nil
}

// Save overwrites path with records. The file is written next to the target
// and renamed into place so a failed write leaves the previous content.
func (s *Store) Save(path string, records []bars.Record) error {
	if records == nil {
		records = []bars.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Merge appends every incoming record dated after the newest existing record.
// Existing records win on conflict and keep their order; the result is not
// re-sorted. With no existing records the result is a copy of incoming.
func Merge(existing, incoming []bars.Record) []bars.Record {
	out := make([]bars.Record, 0, len(existing)+len(incoming))
	out = append(out, existing...)
	if len(existing) == 0 {
		return append(out, incoming...)
	}
	latest := bars.MaxDate(existing)
	for _, r := range incoming {
		if r.Date > latest {
			out = append(out, r)
		}
	}
	return out
}

// sanitize keeps a symbol usable as a file name.
func sanitize(symbol string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(symbol))
}
