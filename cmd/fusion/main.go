package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/clinsight/governor/internal/audit"
	"github.com/clinsight/governor/internal/cli"
	"github.com/clinsight/governor/internal/fusion"
)

// #region main

// Exit codes: 0 success, 1 usage, 2 write failure.
func main() {
	run := flag.Bool("run", false, "execute one fusion cycle")
	flag.Parse()

	if !*run {
		fmt.Fprintln(os.Stderr, "usage: fusion --run")
		os.Exit(1)
	}

	env, err := cli.Bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(cli.ExitWriteFailure)
	}
	defer env.Close()

	st, err := fusion.NewRunner(env.Store, env.Config, env.Archive).Run()
	if err != nil {
		os.Exit(cli.Escalate(env.Store, audit.PrefixFusion, err))
	}

	cli.Summary("FUSION",
		"level="+cli.Colorize(string(st.Level)),
		"reasons=["+strings.Join(st.Reasons, ",")+"]",
		fmt.Sprintf("consensus=%.1f", st.Inputs.ConsensusPct),
	)
}

// #endregion main
