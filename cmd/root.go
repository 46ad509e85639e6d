package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lec/config"
	"github.com/kilianp07/lec/infra/logger"
)

var (
	cfgPath      string
	scenarioPath string
	cfg          *config.Config
)

var rootCmd = &cobra.Command{
	Use:               "lec",
	Short:             "Local energy community dispatch optimizer",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario file, overrides runner.scenario")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgPath)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		c = config.Default()
	case err != nil:
		return fmt.Errorf("load config: %w", err)
	}
	if scenarioPath != "" {
		c.Runner.Scenario = scenarioPath
	}
	if c.Runner.Scenario == "" {
		return fmt.Errorf("no scenario: set runner.scenario or --scenario")
	}
	if err := logger.SetLevel(c.Logging.Level); err != nil {
		return err
	}
	cfg = c
	return nil
}
