package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/clinsight/governor/internal/brake"
	"github.com/clinsight/governor/internal/cli"
	"github.com/clinsight/governor/internal/fusion"
	"github.com/clinsight/governor/internal/rdgl"
	"github.com/clinsight/governor/internal/store"
	"github.com/clinsight/governor/internal/trustguard"
	"github.com/clinsight/governor/internal/tuner"
)

// #region main

// inspect dumps the current governance snapshots and recent log tails
// for operators. Read-only.
func main() {
	tail := flag.Int("tail", 5, "log lines to show per log")
	flag.Parse()

	env, err := cli.Bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(2)
	}
	defer env.Close()
	s := env.Store

	var fs fusion.State
	if ok, _ := s.ReadJSON(store.FusionStateFile, &fs); ok {
		fmt.Printf("fusion: level=%s computed_at=%s reasons=%v\n",
			cli.Colorize(string(fs.Level)), fs.ComputedAt.Format("2006-01-02 15:04:05"), fs.Reasons)
	} else {
		fmt.Println("fusion: no state")
	}

	var lock trustguard.LockState
	if ok, _ := s.ReadJSON(store.TrustLockStateFile, &lock); ok {
		fmt.Printf("trust:  locked=%v bypass=%v reason=%q manual_unlocks_today=%d\n",
			lock.Locked, lock.Bypass, lock.Reason, lock.ManualUnlocksToday)
	} else {
		fmt.Println("trust:  unlocked (no state)")
	}

	var bs brake.State
	if ok, _ := s.ReadJSON(store.SafetyBrakeStateFile, &bs); ok {
		fmt.Printf("brake:  engaged=%v count=%d/%d\n", bs.IsEngaged, bs.ResponseCount24, bs.MaxAllowed)
	} else {
		fmt.Println("brake:  clear (no state)")
	}

	var ps rdgl.PolicyScore
	if ok, _ := s.ReadJSON(store.RDGLAdjustmentsFile, &ps); ok {
		fmt.Printf("rdgl:   score=%.1f mode=%s trend=%s\n", ps.Score, ps.Mode, ps.Trend)
	} else {
		fmt.Println("rdgl:   no state")
	}

	var tp tuner.Policy
	if ok, _ := s.ReadJSON(store.ThresholdPolicyFile, &tp); ok {
		fmt.Printf("tuner:  status=%s stability=%.3f integrity=[%.1f/%.1f] consensus=[%.1f/%.1f]\n",
			tp.Status, tp.StabilityScore, tp.Integrity.Green, tp.Integrity.Yellow,
			tp.Consensus.Green, tp.Consensus.Yellow)
	} else {
		fmt.Println("tuner:  defaults (no state)")
	}

	for _, name := range []string{
		store.FusionLogFile,
		store.ResponseHistoryFile,
		store.ReversibleActionsFile,
		store.TrustLockLogFile,
	} {
		printTail(s, name, *tail)
	}
}

// printTail shows the last n lines of a JSONL log, compacted.
func printTail(s *store.Store, name string, n int) {
	var lines []string
	_ = s.EachLine(name, func(line []byte) error {
		var buf map[string]any
		if err := json.Unmarshal(line, &buf); err != nil {
			return nil
		}
		compact, _ := json.Marshal(buf)
		lines = append(lines, string(compact))
		return nil
	})
	if len(lines) == 0 {
		return
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	fmt.Printf("\n%s (last %d):\n", name, len(lines))
	for _, l := range lines {
		fmt.Println("  " + l)
	}
}

// #endregion main
