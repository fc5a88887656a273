package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/clinsight/governor/internal/cli"
	"github.com/clinsight/governor/internal/replay"
)

// #region main

// replay re-runs the fusion rules over the recorded fusion log and
// verifies levels and reason ordering reproduce exactly.
// Exit codes: 0 all matched, 1 divergences found, 2 load failure.
func main() {
	verbose := flag.Bool("verbose", false, "print each divergence")
	flag.Parse()

	env, err := cli.Bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(2)
	}
	defer env.Close()

	entries, err := replay.LoadLog(env.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fusion log: %v\n", err)
		os.Exit(2)
	}

	sum := replay.Replay(entries)
	cli.Summary("REPLAY",
		fmt.Sprintf("total=%d", sum.Total),
		fmt.Sprintf("matched=%d", sum.Matched),
		fmt.Sprintf("diverged=%d", len(sum.Divergences)),
	)
	if *verbose {
		for _, d := range sum.Divergences {
			fmt.Printf("  entry %d: %s\n", d.Index, d.Detail)
		}
	}
	if len(sum.Divergences) > 0 {
		os.Exit(1)
	}
}

// #endregion main
