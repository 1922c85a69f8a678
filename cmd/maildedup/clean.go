package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/maildedup/internal/deletion"
	"github.com/steveyegge/maildedup/internal/gates"
	"github.com/steveyegge/maildedup/internal/report"
)

func newCleanCmd(opts *rootOptions) *cobra.Command {
	var flags ingestFlags
	var yes, dryRun bool
	var deleteRate float64

	cmd := &cobra.Command{
		Use:   "clean DIR",
		Short: "Report duplicate messages and delete them after confirmation",
		Long: `Scan DIR like 'maildedup scan', print the report, then ask once before
deleting every duplicate. Exactly one copy of each message is kept.

Set MAILDEDUP_AUTO_APPROVE=true or pass --yes to skip the prompt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes {
				opts.cfg.AutoApprove = true
			}
			if cmd.Flags().Changed("delete-rate") {
				opts.cfg.DeleteRate = deleteRate
			}
			if err := flags.apply(cmd, opts); err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			res, err := scan(ctx, opts, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report.New(out, report.Options{OnlyDups: flags.onlyDups}).WriteText(res.document())

			dupes := res.result.Stats.DupeCount
			if dryRun {
				fmt.Fprintf(out, "\n%s %d file(s) would be deleted\n", color.CyanString("Dry run:"), dupes)
				return nil
			}

			safety, err := gates.NewSafetyGate(opts.fs, res.result)
			if err != nil {
				return err
			}
			approval, err := gates.NewApprovalGate(&gates.ApprovalConfig{
				Confirmer:   &gates.ReadlineConfirmer{Stdin: opts.stdin, Stdout: out},
				AutoApprove: opts.cfg.AutoApprove,
				Out:         out,
				DupeCount:   dupes,
				Bytes:       res.result.Stats.ReclaimableBytes,
			})
			if err != nil {
				return err
			}

			results, passed := gates.NewRunner(safety, approval).RunAll(ctx)
			if !passed {
				last := results[len(results)-1]
				if last.Error != nil {
					return fmt.Errorf("%s gate: %w", last.Gate, last.Error)
				}
				fmt.Fprintf(out, "%s\n", color.New(color.FgYellow).Sprint(last.Output))
				return nil
			}

			executor, err := deletion.NewExecutor(&deletion.ExecutorConfig{
				Fs:   opts.fs,
				Rate: opts.cfg.DeleteRate,
				Out:  out,
			})
			if err != nil {
				return err
			}

			rep, err := executor.Execute(ctx, res.result)
			printDeletionSummary(cmd, rep)
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the report and what would be deleted, delete nothing")
	cmd.Flags().Float64Var(&deleteRate, "delete-rate", 0, "maximum deletions per second (0 = unlimited)")
	return cmd
}

func printDeletionSummary(cmd *cobra.Command, rep *deletion.Report) {
	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(out, "\n%s Deleted %d file(s)\n", green("✓"), len(rep.Deleted))
	if len(rep.Refused) > 0 {
		fmt.Fprintf(out, "%s Refused %d kept file(s)\n", color.YellowString("!"), len(rep.Refused))
	}
	if len(rep.Failed) > 0 {
		fmt.Fprintf(out, "%s Failed to delete %d file(s):\n", red("✗"), len(rep.Failed))
		for _, f := range rep.Failed {
			fmt.Fprintf(out, "    %s\n", f.Error())
		}
	}
}
