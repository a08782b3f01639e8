package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/qri-io/dggs-go"
)

// gridFlags are the persistent flags selecting a grid configuration
type gridFlags struct {
	configPath string
	grid       string
	level      int
	levelSet   bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &gridFlags{}
	root := &cobra.Command{
		Use:           "dggs",
		Short:         "Convert between DGGS cell identifiers and coordinates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			flags.levelSet = cmd.Flags().Changed("level")
			if flags.verbose {
				dggs.Logger().SetLevel(logrus.DebugLevel)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML file with grid_name and level")
	pf.StringVar(&flags.grid, "grid", "", "grid system name, overrides the config file")
	pf.IntVar(&flags.level, "level", 0, "refinement level, overrides the config file")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newCellsCmd(flags),
		newCentroidsCmd(flags),
		newBoundariesCmd(flags),
		newInspectCmd(),
		newGridsCmd(),
	)
	return root
}

// descriptor builds the grid configuration from the config file overlaid
// with --grid and --level
func (f *gridFlags) descriptor() (*dggs.Descriptor, error) {
	cfg := map[string]interface{}{}
	if f.configPath != "" {
		data, err := os.ReadFile(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.configPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("yaml parse %s: %w", f.configPath, err)
		}
	}
	if f.grid != "" {
		cfg[dggs.KeyGridName] = f.grid
	}
	if f.levelSet {
		cfg[dggs.KeyLevel] = f.level
	}
	return dggs.FromConfig(cfg)
}

func newGridsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grids",
		Short: "List supported grid systems and whether an engine is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			available := map[string]bool{}
			for _, n := range dggs.Engines() {
				available[n] = true
			}
			for _, n := range dggs.SupportedGrids() {
				state := "no engine"
				if available[n] {
					state = "available"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", n, state)
			}
			return nil
		},
	}
}
