package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/cathedral/pkg/engine"
	"github.com/chazu/cathedral/pkg/graph"
	"github.com/chazu/cathedral/pkg/kernel"
	"github.com/chazu/cathedral/pkg/kernel/sdfx"
	"github.com/chazu/cathedral/pkg/spiral"
	"github.com/chazu/cathedral/pkg/tessellate"
)

func newDescribeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print a one-line summary of the generator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), c.generator().Describe())
			return err
		},
	}
}

func newNodeCmd(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "node <index>",
		Short: "Generate the node at one index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index %q is not an integer", args[0])
			}
			n, err := c.generator().GenerateNode(index)
			if err != nil {
				return err
			}
			return writeValue(cmd.OutOrStdout(), format, n)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format: json or yaml")
	return cmd
}

func newSequenceCmd(c *cli) *cobra.Command {
	var (
		count   int
		workers int
		format  string
	)
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Generate nodes 0..count-1 (a full run when --count is omitted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatJSON, formatYAML, formatJSONL); err != nil {
				return err
			}
			gen := c.generator()
			if !cmd.Flags().Changed("count") {
				count = gen.Config().Depth
			}
			out := cmd.OutOrStdout()

			if format == formatJSONL {
				seq, err := gen.Sequence(count)
				if err != nil {
					return err
				}
				return writeLines(out, seq)
			}

			var (
				nodes []spiral.Node
				err   error
			)
			if workers > 0 {
				nodes, err = gen.GenerateParallel(cmd.Context(), count, workers)
			} else {
				nodes, err = gen.GenerateSequence(count)
			}
			if err != nil {
				return err
			}
			c.log.Debug("sequence generated", zap.Int("count", len(nodes)), zap.Int("workers", workers))
			return writeValue(out, format, nodes)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&count, "count", "n", 0, "number of nodes (default: --depth)")
	f.IntVarP(&workers, "parallel", "p", 0, "generate with this many workers (0: sequential)")
	f.StringVarP(&format, "format", "f", formatJSON, "output format: json, yaml or jsonl")
	return cmd
}

func newEvalCmd(c *cli) *cobra.Command {
	var (
		format      string
		fingerprint bool
	)
	cmd := &cobra.Command{
		Use:   "eval <script>",
		Short: "Evaluate a layout script and print the nodes it produced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := evalScript(c, args[0])
			if err != nil {
				return err
			}
			if fingerprint {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), l.Fingerprint())
				return err
			}
			return writeValue(cmd.OutOrStdout(), format, l.Ordered())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format: json or yaml")
	cmd.Flags().BoolVar(&fingerprint, "fingerprint", false, "print only the layout fingerprint")
	return cmd
}

func newSTLCmd(c *cli) *cobra.Command {
	var (
		script string
		links  bool
		cells  int
		solid  bool
	)
	cmd := &cobra.Command{
		Use:   "stl <out.stl>",
		Short: "Render a full run, or a script's layout, to a binary STL file",
		Long: `stl renders one marker per node, plus struts with --links. By default
every part is written as its own shell; --solid fuses them into a single
closed surface first, which slicers expect for printing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			render := &c.settings.Render
			if cmd.Flags().Changed("links") {
				render.Links = links
			}
			if cmd.Flags().Changed("cells") {
				render.MeshCells = cells
			}
			if err := c.settings.Validate(); err != nil {
				return err
			}

			var l *graph.Layout
			var err error
			if script != "" {
				l, err = evalScript(c, script)
			} else {
				l, err = runLayout(c.generator())
			}
			if err != nil {
				return err
			}

			k := sdfx.NewWithCells(render.MeshCells)
			var meshes []*kernel.Mesh
			if solid {
				m, err := tessellate.Solid(l, k, render.TessellateOptions())
				if err != nil {
					return err
				}
				meshes = []*kernel.Mesh{m}
			} else {
				meshes, err = tessellate.Tessellate(l, k, render.TessellateOptions())
				if err != nil {
					return err
				}
			}
			if err := writeSTLFile(args[0], meshes); err != nil {
				return err
			}

			triangles := 0
			for _, m := range meshes {
				triangles += m.TriangleCount()
			}
			c.log.Info("stl written",
				zap.String("path", args[0]),
				zap.Int("nodes", l.NodeCount()),
				zap.Int("meshes", len(meshes)),
				zap.Int("triangles", triangles),
				zap.Int("cells", k.Cells()),
				zap.Bool("solid", solid))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&script, "script", "", "render the layout produced by this script instead of a full run")
	f.BoolVar(&links, "links", false, "emit a strut per connection")
	f.IntVar(&cells, "cells", 0, "marching cubes resolution")
	f.BoolVar(&solid, "solid", false, "fuse all parts into one closed surface")
	return cmd
}

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the resolved settings",
	}
	cmd.AddCommand(newConfigShowCmd(c), newConfigInitCmd(c))
	return cmd
}

func newConfigShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the settings in effect as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeValue(cmd.OutOrStdout(), formatYAML, c.settings)
		},
	}
}

func newConfigInitCmd(c *cli) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the settings in effect to a YAML file",
		Long: `init saves defaults merged with --config, CATHEDRAL_* variables and
flags, ready to be edited and passed back with --config.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(c, args[0], force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// initConfig validates the resolved settings and saves them to path.
func initConfig(c *cli, path string, force bool) error {
	if err := c.settings.Validate(); err != nil {
		return err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := c.settings.Save(path); err != nil {
		return err
	}
	c.log.Info("config written", zap.String("path", path),
		zap.String("seed", c.settings.Generator.Seed),
		zap.Int("mesh_cells", c.settings.Render.MeshCells))
	return nil
}

// runLayout collects a full generation run into a layout.
func runLayout(gen *spiral.Generator) (*graph.Layout, error) {
	nodes, err := gen.Run()
	if err != nil {
		return nil, err
	}
	return graph.FromNodes(gen.Config(), nodes)
}

// evalScript evaluates the script at path and validates the resulting
// layout. Validation warnings are logged; errors fail the command.
func evalScript(c *cli, path string) (*graph.Layout, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	l, evalErrs, err := engine.NewEngine().Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, 0, len(evalErrs))
		for _, e := range evalErrs {
			errs = append(errs, e)
		}
		return nil, fmt.Errorf("%s: %w", path, errors.Join(errs...))
	}

	res := graph.ValidateAll(l)
	for _, w := range res.Warnings {
		c.log.Warn("layout warning", zap.String("script", path), zap.String("finding", w.Error()))
	}
	if !res.OK() {
		errs := make([]error, 0, len(res.Errors))
		for _, e := range res.Errors {
			errs = append(errs, e)
		}
		return nil, fmt.Errorf("%s: invalid layout: %w", path, errors.Join(errs...))
	}

	c.log.Debug("script evaluated",
		zap.String("script", path),
		zap.Int("nodes", l.NodeCount()),
		zap.Int("edges", l.EdgeCount()))
	return l, nil
}

func writeSTLFile(path string, meshes []*kernel.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := kernel.WriteSTL(f, meshes...); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
