package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lec/app"
	"github.com/kilianp07/lec/infra/logger"
)

var (
	runDays   int
	runOutput string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Optimize the scenario horizon by horizon",
	RunE:  run,
}

func init() {
	runCmd.Flags().IntVar(&runDays, "days", 0, "number of days to simulate, overrides runner.days")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output directory, overrides runner.output_dir")
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runDays > 0 {
		cfg.Runner.Days = runDays
	}
	if runOutput != "" {
		cfg.Runner.OutputDir = runOutput
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	logg := logger.New("main")
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	rep, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	logg.Infof("run %s: %d horizons, %d solved, %d without schedule, %d skipped",
		rep.RunID, rep.Horizons, rep.Solved, rep.Unsolved, len(rep.Skipped))
	for _, k := range []string{app.KeyTotalCost, app.KeyNetImportElec, app.KeyNetImportHeat, app.KeyTaxPaid, app.KeyGridFeesPaid} {
		cmd.Printf("%-22s %12.3f\n", k, rep.Results[k])
	}
	return nil
}
