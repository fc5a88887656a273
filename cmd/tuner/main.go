package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/clinsight/governor/internal/audit"
	"github.com/clinsight/governor/internal/cli"
	"github.com/clinsight/governor/internal/tuner"
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

	res, err := tuner.NewTuner(env.Store, env.Config, env.Archive, nil).Run(*dryRun)
	if err != nil {
		os.Exit(cli.Escalate(env.Store, audit.PrefixThresholdTuner, err))
	}

	cli.Summary("TUNER",
		"status="+res.Status,
		fmt.Sprintf("stability=%.3f", res.StabilityScore),
		"mode="+res.Policy.RDGLModeUsed,
		"reasons=["+strings.Join(res.Reasons, ",")+"]",
		fmt.Sprintf("dry_run=%v", res.DryRun),
	)
}

// #endregion main
