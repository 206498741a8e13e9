// Command spiral generates Cathedral of Circuits spiral layouts from the
// command line: node queries, whole runs, layout scripts and STL export.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chazu/cathedral/internal/config"
	"github.com/chazu/cathedral/pkg/spiral"
)

// cli holds the global flags and the state built from them before each
// subcommand runs.
type cli struct {
	configPath string
	seed       string
	depth      int
	ratio      float64
	verbose    bool

	settings *config.Settings
	log      *zap.Logger
	ownLog   bool
}

// generator builds a generator from the resolved settings.
func (c *cli) generator() *spiral.Generator {
	return spiral.NewFromConfig(c.settings.Generator)
}

// newRootCmd builds the command tree. A nil logger is replaced by a zap
// production logger, at debug level when --verbose is set.
func newRootCmd(log *zap.Logger) *cobra.Command {
	c := &cli{log: log}

	root := &cobra.Command{
		Use:   "spiral",
		Short: "Procedural spiral generator for Cathedral of Circuits",
		Long: `spiral lays out the Cathedral of Circuits as a phyllotactic spiral.

Every node is a pure function of (seed, depth, ratio) and its index: the
same inputs always produce the same ids, archetypes, positions and
connections. Node i links to node i-1 and, from the second cycle on, to
the node one archetype cycle (22 nodes) below it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.log == nil {
				cfg := zap.NewProductionConfig()
				if c.verbose {
					cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
				}
				l, err := cfg.Build()
				if err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				c.log = l
				c.ownLog = true
			}

			s, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("seed") {
				s.Generator.Seed = c.seed
			}
			if flags.Changed("depth") {
				s.Generator.Depth = c.depth
			}
			if flags.Changed("ratio") {
				s.Generator.Ratio = c.ratio
			}
			c.settings = s

			c.log.Debug("settings resolved",
				zap.String("config", c.configPath),
				zap.String("seed", s.Generator.Seed),
				zap.Int("depth", s.Generator.Depth),
				zap.Float64("ratio", s.Generator.Ratio))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.ownLog {
				_ = c.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "YAML settings file")
	pf.StringVar(&c.seed, "seed", spiral.DefaultSeed, "generator seed")
	pf.IntVar(&c.depth, "depth", spiral.DefaultDepth, "nodes in a full run")
	pf.Float64Var(&c.ratio, "ratio", spiral.DefaultRatio, "spiral proportion constant")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newDescribeCmd(c),
		newNodeCmd(c),
		newSequenceCmd(c),
		newEvalCmd(c),
		newSTLCmd(c),
		newConfigCmd(c),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(nil).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
