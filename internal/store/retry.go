package store

import (
	"fmt"
	"log"
	"time"
)

// #region with-retry

// WithRetry runs fn, retrying on failure once per backoff step.
// The schedule is fixed (1s/3s/9s by default); when every attempt
// fails the last error is returned wrapped with the operation name so
// callers can escalate with a FAILED marker and a distinct exit code.
func (s *Store) WithRetry(op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt >= len(s.backoff) {
			break
		}
		log.Printf("[STORE] %s failed (attempt %d): %v, retrying in %s",
			op, attempt+1, err, s.backoff[attempt])
		time.Sleep(s.backoff[attempt])
	}
	return fmt.Errorf("%s: retries exhausted: %w", op, err)
}

// #endregion with-retry
