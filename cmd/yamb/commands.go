package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/yamb/internal/artifact"
	"github.com/frederic-klein/yamb/internal/builder"
	"github.com/frederic-klein/yamb/internal/bundle"
	"github.com/frederic-klein/yamb/internal/depgraph"
	"github.com/frederic-klein/yamb/internal/moduleinfo"
	"github.com/frederic-klein/yamb/internal/resolver"
)

func runBundle(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(ctx context.Context, s *session) error {
		fs := afero.NewOsFs()
		bundles, err := bundle.NewLoader(fs).Load(definitions)
		if err != nil {
			return fmt.Errorf("loading bundle definitions: %w", err)
		}

		// warm the module info cache in parallel
		for _, r := range s.pool.Prefetch(ctx, s.pool.Names(), s.cfg.Workers) {
			if r.Error != nil {
				s.logger.Warn("analysis failed", "resource", r.Name, "err", r.Error)
			}
		}

		runtime, err := s.cfg.Runtime()
		if err != nil {
			return err
		}
		res := resolver.New(s.pool, s.logger)
		b := builder.New(s.pool,
			builder.WithLogger(s.logger),
			builder.WithMetrics(s.metrics),
			builder.WithRuntimeVersion(runtime),
		)

		var outputs []*builder.Output
		for i := range bundles {
			resolved, err := res.Resolve(ctx, &bundles[i])
			if err != nil {
				return err
			}
			outs, err := b.Build(ctx, resolved)
			if err != nil {
				return err
			}
			outputs = append(outputs, outs...)
		}

		if err := artifact.NewWriter(fs, s.cfg.Output).WriteAll(outputs); err != nil {
			return fmt.Errorf("writing bundles: %w", err)
		}
		s.logger.Info("bundles written", "count", len(outputs), "output", s.cfg.Output)
		return nil
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(ctx context.Context, s *session) error {
		names := args
		if len(names) == 0 {
			names = s.pool.Names()
		}

		var infos []*moduleinfo.ModuleInfo
		for _, r := range s.pool.Prefetch(ctx, names, s.cfg.Workers) {
			if r.Error != nil {
				return fmt.Errorf("analyzing %s: %w", r.Name, r.Error)
			}
			infos = append(infos, r.Info)
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	})
}

func runDeps(cmd *cobra.Command, args []string) error {
	return withSession(cmd.Context(), func(ctx context.Context, s *session) error {
		gb := depgraph.NewBuilder(s.pool, s.logger)
		g, err := gb.Build(ctx, args, conditional)
		if err != nil {
			return err
		}

		nodes := g.Nodes()
		if graphOutput {
			sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
			for _, n := range nodes {
				fmt.Println(n.Name)
				for _, dep := range g.Successors(n) {
					fmt.Printf("  -> %s\n", dep)
				}
			}
			return nil
		}

		names := make([]string, len(nodes))
		for i, n := range nodes {
			names[i] = n.Name
		}
		sorted, err := gb.TopologicalSort(ctx, names)
		if err != nil {
			return err
		}
		for _, name := range sorted {
			fmt.Println(name)
		}
		return nil
	})
}
