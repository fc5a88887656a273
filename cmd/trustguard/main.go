package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/clinsight/governor/internal/audit"
	"github.com/clinsight/governor/internal/cli"
	"github.com/clinsight/governor/internal/signal"
	"github.com/clinsight/governor/internal/trustguard"
)

// #region main

// Exit codes: 0 unlocked/no-op, 1 locked under --enforce or usage,
// 2 write failure, 4 manual-unlock limit exceeded.
func main() {
	check := flag.Bool("check", false, "evaluate breaches without gating the exit code")
	enforce := flag.Bool("enforce", false, "evaluate breaches; exit 1 when locked")
	forceUnlock := flag.Bool("force-unlock", false, "operator manual unlock (capped per day)")
	reason := flag.String("reason", "", "reason for --force-unlock")
	bypass := flag.Bool("bypass", false, "suppress the lock despite breaches")
	actor := flag.String("actor", "operator", "actor recorded for --force-unlock")
	flag.Parse()

	modes := 0
	for _, m := range []bool{*check, *enforce, *forceUnlock} {
		if m {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "usage: trustguard --check | --enforce | --force-unlock --reason <text>")
		os.Exit(1)
	}
	if *forceUnlock && *reason == "" {
		fmt.Fprintln(os.Stderr, "--force-unlock requires --reason")
		os.Exit(1)
	}

	env, err := cli.Bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(cli.ExitWriteFailure)
	}
	defer env.Close()

	guard := trustguard.NewGuard(env.Store, env.Config.TrustGuard, nil)

	if *forceUnlock {
		res, err := guard.ManualUnlock(*actor, *reason)
		if err != nil {
			os.Exit(cli.Escalate(env.Store, audit.PrefixTrustGuard, err))
		}
		if res.Transition == trustguard.TransitionLimitExceeded {
			cli.Summary("TRUST_GUARD", "result=limit_exceeded",
				fmt.Sprintf("max_per_day=%d", env.Config.TrustGuard.MaxManualUnlocksPerDay))
			os.Exit(4)
		}
		if env.Archive != nil {
			_ = env.Archive.RecordIntervention(time.Now().UTC(), "manual_unlock")
		}
		cli.Summary("TRUST_GUARD", "result=manual_unlock",
			"actor="+*actor, fmt.Sprintf("remaining_today=%d", res.Remaining))
		return
	}

	snap := signal.NewReader(env.Store, nil).Snapshot()
	res, err := guard.Check(trustguard.Metrics{
		IntegrityScore:  snap.IntegrityScore,
		ConsensusPct:    snap.ConsensusPct,
		ReputationIndex: snap.ReputationIndex,
	}, *bypass)
	if err != nil {
		os.Exit(cli.Escalate(env.Store, audit.PrefixTrustGuard, err))
	}

	cli.Summary("TRUST_GUARD",
		"transition="+string(res.Transition),
		fmt.Sprintf("locked=%v", res.State.Locked),
		"breaches=["+strings.Join(res.Breaches, ",")+"]",
	)
	if *enforce && res.State.Locked {
		os.Exit(1)
	}
}

// #endregion main
