package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/clinsight/governor/internal/audit"
	"github.com/clinsight/governor/internal/cli"
	"github.com/clinsight/governor/internal/rdgl"
)

// #region main

// Exit codes: 0 success, 2 write failure.
func main() {
	dryRun := flag.Bool("dry-run", false, "compute the cycle without persisting")
	flag.Parse()

	env, err := cli.Bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(cli.ExitWriteFailure)
	}
	defer env.Close()

	learner := rdgl.NewLearner(env.Store, env.Config.RDGL, env.Archive, nil)
	res, err := learner.Run(*dryRun)
	if err != nil {
		os.Exit(cli.Escalate(env.Store, audit.PrefixRDGL, err))
	}

	cli.Summary("RDGL",
		fmt.Sprintf("score=%.1f", res.State.Score),
		fmt.Sprintf("reward=%.2f", res.State.Reward24h),
		"mode="+string(res.State.Mode),
		"trend="+res.State.Trend,
		fmt.Sprintf("dry_run=%v", res.DryRun),
	)
}

// #endregion main
