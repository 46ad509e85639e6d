package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lec/app"
)

var precheckCmd = &cobra.Command{
	Use:   "precheck",
	Short: "Validate the scenario and list horizons with unfillable demand",
	RunE:  precheck,
}

func init() {
	rootCmd.AddCommand(precheckCmd)
}

func precheck(cmd *cobra.Command, args []string) error {
	cfg.Store.Disabled = true
	cfg.MQTT.Broker = ""
	cfg.Metrics.Sinks = nil
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	skipped, err := svc.Runner.Precheck(cmd.Context())
	if err != nil {
		return err
	}
	for _, s := range skipped {
		cmd.Printf("horizon %d %s %s: %v\n", s.Index, s.Start.Format("2006-01-02"), s.Subject, s.Err)
	}
	if len(skipped) > 0 {
		return fmt.Errorf("%d pre-check failures", len(skipped))
	}
	cmd.Println("all horizons pass the pre-check")
	return nil
}
