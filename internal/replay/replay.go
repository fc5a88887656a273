// Package replay verifies fusion determinism: it re-runs the fusion
// rules over the inputs recorded in the fusion log and checks that
// levels and reason ordering reproduce byte-identically.
package replay

import (
	"encoding/json"
	"fmt"

	"github.com/clinsight/governor/internal/config"
	"github.com/clinsight/governor/internal/fusion"
	"github.com/clinsight/governor/internal/store"
)

// #region types

// Divergence is one log entry whose replayed output differed.
type Divergence struct {
	Index    int          `json:"index"`
	Recorded fusion.State `json:"recorded"`
	Replayed fusion.State `json:"replayed"`
	Detail   string       `json:"detail"`
}

// Summary aggregates one replay run.
type Summary struct {
	Total       int          `json:"total"`
	Matched     int          `json:"matched"`
	Divergences []Divergence `json:"divergences"`
}

// #endregion types

// #region replay

// Replay re-evaluates each recorded fusion entry with the thresholds
// it recorded and compares level and reasons. Operates entirely
// in-memory over the log.
func Replay(entries []fusion.State) Summary {
	sum := Summary{Total: len(entries)}

	for i, rec := range entries {
		engine := fusion.NewEngine(config.Fusion{
			ConsensusEscalationPct: rec.Thresholds.ConsensusEscalationPct,
		}, nil)
		got := engine.Evaluate(rec.Inputs)

		if detail := compare(rec, got); detail != "" {
			sum.Divergences = append(sum.Divergences, Divergence{
				Index:    i,
				Recorded: rec,
				Replayed: got,
				Detail:   detail,
			})
			continue
		}
		sum.Matched++
	}
	return sum
}

func compare(rec, got fusion.State) string {
	if got.Level != rec.Level {
		return fmt.Sprintf("level %s != recorded %s", got.Level, rec.Level)
	}
	if len(got.Reasons) != len(rec.Reasons) {
		return fmt.Sprintf("reason count %d != recorded %d", len(got.Reasons), len(rec.Reasons))
	}
	for j := range got.Reasons {
		if got.Reasons[j] != rec.Reasons[j] {
			return fmt.Sprintf("reason[%d] %q != recorded %q", j, got.Reasons[j], rec.Reasons[j])
		}
	}
	return ""
}

// #endregion replay

// #region load

// LoadLog reads every parseable entry of the fusion log.
func LoadLog(s *store.Store) ([]fusion.State, error) {
	var entries []fusion.State
	err := s.EachLine(store.FusionLogFile, func(line []byte) error {
		var st fusion.State
		if err := json.Unmarshal(line, &st); err != nil {
			return nil // malformed line, skip
		}
		entries = append(entries, st)
		return nil
	})
	return entries, err
}

// #endregion load
