package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/datasmiths/tabinspect/pkg/inspect"
)

// runSuite runs every configured inspector against every configured dataset
// once and exits. The exit status reflects data quality only: it is nonzero
// when a check failed or errored, never for sink delivery trouble.
func runSuite(cmd *cobra.Command, args []string) error {
	cfg, err := loadSuite()
	if err != nil {
		return err
	}

	sinks, store, err := buildSinks(cfg)
	if err != nil {
		return err
	}
	defer closeAll(sinks)
	if store != nil {
		defer store.Close()
	}

	inspectors, err := buildInspectors(cfg, sinks)
	if err != nil {
		return err
	}

	targets, err := loadTargets(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	sum := buildRunner(cfg, inspectors).Run(ctx, targets)
	renderSummary(sum)

	if !sum.Ok() {
		return fmt.Errorf("%d failing and %d errored of %d checks",
			sum.Failed(), sum.Errs(), len(sum.Entries))
	}
	return nil
}

func renderSummary(sum *inspect.Summary) {
	rows := pterm.TableData{{"INSPECTOR", "DATASET", "STATUS", "ROWS", "VIOLATIONS", "SINKS"}}
	for _, e := range sum.Entries {
		status := pterm.Green("PASS")
		totalRows, violations := "-", "-"
		switch {
		case e.Err != nil:
			status = pterm.Red("ERROR")
		case e.Report != nil:
			if !e.Report.Result.Passed {
				status = pterm.Red("FAIL")
			}
			totalRows = strconv.Itoa(e.Report.Result.TotalRows)
			violations = strconv.Itoa(len(e.Report.Result.FailingRows))
		}

		delivered := 0
		for _, o := range e.Outcomes {
			if o.Delivered {
				delivered++
			}
		}

		rows = append(rows, []string{
			e.Inspector, e.Dataset, status, totalRows, violations,
			fmt.Sprintf("%d/%d", delivered, len(e.Outcomes)),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	elapsed := sum.Duration.Round(time.Millisecond)
	if sum.Ok() {
		pterm.Success.Printf("%d checks passed in %s\n", sum.Passed(), elapsed)
	} else {
		pterm.Error.Printf("%d failed, %d errored of %d checks in %s\n",
			sum.Failed(), sum.Errs(), len(sum.Entries), elapsed)
	}
	if n := sum.SinkFailures(); n > 0 {
		pterm.Warning.Printf("%d sink deliveries failed, see logs\n", n)
	}
}
