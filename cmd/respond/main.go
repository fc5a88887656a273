package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/clinsight/governor/internal/audit"
	"github.com/clinsight/governor/internal/cli"
	"github.com/clinsight/governor/internal/fusion"
	"github.com/clinsight/governor/internal/response"
	"github.com/clinsight/governor/internal/store"
)

// #region main

// Exit codes: 0 no-op/preview/soft actions, 1 usage, 2 write failure,
// 3 hard actions applied, 4 gated and blocked, 7 persistent failure.
func main() {
	dryRun := flag.Bool("dry-run", false, "preview the plan, no side effects")
	apply := flag.Bool("apply", false, "execute the plan")
	level := flag.String("level", "", "override risk level (defaults to current fusion state)")
	flag.Parse()

	if *dryRun == *apply {
		fmt.Fprintln(os.Stderr, "usage: respond --dry-run | --apply [--level low|medium|high]")
		os.Exit(1)
	}

	env, err := cli.Bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(cli.ExitWriteFailure)
	}
	defer env.Close()

	risk := resolveRisk(env, *level)
	exec := response.NewExecutor(env.Store, env.Config, nil, env.Archive, nil)
	out, err := exec.Execute(risk, response.Options{DryRun: *dryRun})
	if err != nil {
		_ = cli.Escalate(env.Store, audit.PrefixResponse, err)
		os.Exit(7)
	}

	cli.Summary("RESPONSE",
		"id="+out.Record.ResponseID,
		"risk="+cli.Colorize(string(out.Record.RiskLevel)),
		"status="+out.Record.Status,
		"actions=["+strings.Join(out.Record.ActionsTaken, ",")+"]",
		fmt.Sprintf("dry_run=%v", out.DryRun),
	)
	if out.Blocked {
		cli.Summary("RESPONSE", "blocked_reason="+out.Record.BlockedReason,
			fmt.Sprintf("blocked_by_trust_lock=%v", out.BlockedByTrustLock))
		if !out.DryRun {
			os.Exit(4)
		}
		return
	}
	if out.HardApplied && !out.DryRun {
		os.Exit(3)
	}
}

// resolveRisk maps the flag override or the current fusion state to a
// risk category.
func resolveRisk(env cli.Env, override string) response.RiskLevel {
	if override != "" {
		return response.Normalize(override)
	}
	var fs fusion.State
	if ok, _ := env.Store.ReadJSON(store.FusionStateFile, &fs); ok {
		return response.FromFusion(fs.Level)
	}
	return response.RiskLow
}

// #endregion main
