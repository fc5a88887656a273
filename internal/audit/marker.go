// Package audit maintains the shared markdown audit summary. Each
// engine owns one HTML-comment marker line keyed by a unique prefix;
// every update removes any prior line with that prefix before
// appending the new one, so repeated runs leave exactly one line.
package audit

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// #region marker-prefixes
const (
	PrefixFusion          = "POLICY_FUSION"
	PrefixTrustGuard      = "TRUST_GUARD"
	PrefixSafetyBrake     = "SAFETY_BRAKE"
	PrefixResponse        = "AUTO_RESPONSE"
	PrefixRDGL            = "RDGL_POLICY"
	PrefixThresholdTuner  = "THRESHOLD_TUNER"
	PrefixRDGLIntegration = "RDGL_INTEGRATION"
)

// #endregion marker-prefixes

// #region writer

// Writer upserts marker lines into one audit file.
type Writer struct {
	path string
}

// NewWriter returns a writer for the audit file at path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Upsert replaces the single line owned by prefix with a new marker of
// the form `<!-- PREFIX: text -->`. Idempotent across any number of
// runs: exactly one line with the prefix survives.
func (w *Writer) Upsert(prefix, text string) error {
	tag := "<!-- " + prefix + ":"

	data, err := os.ReadFile(w.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read audit file: %w", err)
	}

	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), tag) {
			continue
		}
		kept = append(kept, line)
	}
	// Trim trailing blank lines so markers do not drift downward.
	for len(kept) > 0 && strings.TrimSpace(kept[len(kept)-1]) == "" {
		kept = kept[:len(kept)-1]
	}
	kept = append(kept, fmt.Sprintf("<!-- %s: %s -->", prefix, text))

	out := strings.Join(kept, "\n") + "\n"
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write audit file: %w", err)
	}
	return os.Rename(tmp, w.path)
}

// Stamp formats the conventional `<EVENT> <ISO8601> <detail>` marker body.
func Stamp(event string, at time.Time, detail string) string {
	body := event + " " + at.UTC().Format(time.RFC3339)
	if detail != "" {
		body += " " + detail
	}
	return body
}

// #endregion writer
