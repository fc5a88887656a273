// Package cli carries the bootstrap and output helpers shared by the
// engine entrypoints.
package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/clinsight/governor/internal/audit"
	"github.com/clinsight/governor/internal/config"
	"github.com/clinsight/governor/internal/history"
	"github.com/clinsight/governor/internal/store"
)

// #region bootstrap

// Env is everything an engine entrypoint needs.
type Env struct {
	Store   *store.Store
	Config  config.Config
	Archive *history.Archive
}

// Bootstrap loads .env, opens the store at the configured base dir,
// loads the YAML config, and opens the metrics archive. An archive
// failure degrades to nil: archiving is best-effort, the JSONL logs
// stay canonical.
func Bootstrap() (Env, error) {
	_ = godotenv.Load()

	base := store.BaseDir()
	s, err := store.Open(base)
	if err != nil {
		return Env{}, err
	}

	cfgPath := os.Getenv(config.FileEnv)
	if cfgPath == "" {
		cfgPath = filepath.Join(base, "governor.yaml")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return Env{}, err
	}

	arch, err := history.Open(s.Path(store.ArchiveDBFile))
	if err != nil {
		log.Printf("[CLI] metrics archive unavailable: %v", err)
		arch = nil
	}

	return Env{Store: s, Config: cfg, Archive: arch}, nil
}

// Close releases the archive handle.
func (e Env) Close() {
	if e.Archive != nil {
		e.Archive.Close()
	}
}

// #endregion bootstrap

// #region output

var levelColors = map[string]*color.Color{
	"GREEN":  color.New(color.FgGreen, color.Bold),
	"YELLOW": color.New(color.FgYellow, color.Bold),
	"RED":    color.New(color.FgRed, color.Bold),
	"low":    color.New(color.FgGreen),
	"medium": color.New(color.FgYellow),
	"high":   color.New(color.FgRed),
}

// Colorize renders a risk or fusion level with its conventional color.
func Colorize(level string) string {
	if c, ok := levelColors[level]; ok {
		return c.Sprint(level)
	}
	return level
}

// Summary prints one structured key=value summary line to stdout so a
// CI pipeline can surface the decision without parsing the state
// store.
func Summary(engine string, fields ...string) {
	out := engine + ":"
	for _, f := range fields {
		out += " " + f
	}
	fmt.Println(out)
}

// #endregion output

// #region failure

// ExitWriteFailure marks retries-exhausted persistence failures.
const ExitWriteFailure = 2

// Escalate handles a persistent failure: write the FAILED marker for
// the engine and report the exit code. The marker write itself is
// best-effort at this point.
func Escalate(s *store.Store, prefix string, err error) int {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	w := audit.NewWriter(s.Path(store.AuditFile))
	if werr := w.Upsert(prefix, "FAILED "+err.Error()); werr != nil {
		log.Printf("[CLI] FAILED marker write failed: %v", werr)
	}
	return ExitWriteFailure
}

// #endregion failure
