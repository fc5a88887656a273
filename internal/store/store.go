package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// #region store-struct
// Store gives every engine uniform access to the on-disk governance
// artifacts: JSON snapshots replaced atomically, JSONL logs appended.
// One writer role per artifact; readers never lock.
type Store struct {
	base    string
	backoff []time.Duration
}

// #endregion store-struct

// #region constructor
// Open returns a store rooted at base, creating the directory if needed.
func Open(base string) (*Store, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	return &Store{
		base:    base,
		backoff: []time.Duration{1 * time.Second, 3 * time.Second, 9 * time.Second},
	}, nil
}

// BaseDir resolves the store root from the environment, defaulting to
// the current directory.
func BaseDir() string {
	if v := os.Getenv(BaseDirEnv); v != "" {
		return v
	}
	return "."
}

// SetBackoff overrides the retry backoff schedule (tests pass zeros).
func (s *Store) SetBackoff(schedule []time.Duration) {
	s.backoff = schedule
}

// Path returns the absolute path of a named artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.base, name)
}

// #endregion constructor

// #region read-json
// ReadJSON loads a state snapshot into v. A missing or malformed file
// is a neutral outcome, not an error: the caller keeps its typed
// defaults and ok is false.
func (s *Store) ReadJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("[STORE] malformed %s, using defaults: %v", name, err)
		return false, nil
	}
	return true, nil
}

// #endregion read-json

// #region write-json
// WriteJSON persists a state snapshot via atomic replace: marshal,
// write a temp file, rename over the target. The rename is the only
// step that must be atomic. Wrapped in the bounded retry.
func (s *Store) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return s.WithRetry("write "+name, func() error {
		return replaceFile(s.Path(name), data)
	})
}

func replaceFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// #endregion write-json

// #region append-line
// AppendLine appends one JSON object as a line to an append-only log.
func (s *Store) AppendLine(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s line: %w", name, err)
	}
	return s.WithRetry("append "+name, func() error {
		f, err := os.OpenFile(s.Path(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = f.Write(append(data, '\n'))
		return err
	})
}

// EachLine streams a JSONL log line by line. A missing log is empty,
// not an error. Blank and unparseable lines are skipped by callers;
// this only hands out raw bytes.
func (s *Store) EachLine(name string, fn func(line []byte) error) error {
	f, err := os.Open(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// #endregion append-line

// #region summary-merge
// MergeSummary updates named top-level fields of the shared summary
// artifact without clobbering fields owned by other writers. Both the
// Response Planner and the Threshold Tuner update this file; updates
// are field-level merges by contract.
func (s *Store) MergeSummary(fields map[string]any) error {
	current := map[string]any{}
	if _, err := s.ReadJSON(SummaryFile, &current); err != nil {
		return err
	}
	for k, v := range fields {
		current[k] = v
	}
	return s.WriteJSON(SummaryFile, current)
}

// #endregion summary-merge
