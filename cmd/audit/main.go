// Command audit drives the resolution engine from the terminal: seed the
// synthetic corpus, run the pipeline, evaluate against labels, or compare two
// raw addresses.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/address-audit/app/config"
	"github.com/address-audit/app/services"
	"github.com/address-audit/internal/alias"
	"github.com/address-audit/internal/parser"
	"github.com/address-audit/internal/store"
)

var (
	flagConfig string
	flagData   string
)

func main() {
	root := &cobra.Command{
		Use:   "audit",
		Short: "Address entity-resolution engine",
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "./data/config.default.json", "path to the JSON config file")
	root.PersistentFlags().StringVar(&flagData, "data", "./data", "directory holding the alias maps")

	root.AddCommand(seedCmd(), runCmd(), evaluateCmd(), compareCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles everything a command needs, built once per invocation.
type app struct {
	cfg      *config.Config
	repo     store.Repository
	pipeline *services.PipelineService
	seeder   *services.SeedService
	eval     *services.EvaluateService
	logger   *zap.Logger
}

func bootstrap(ctx context.Context) (*app, func(), error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("Cannot initialize logger:", err)
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	repo, err := store.NewMongo(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongodb: %w", err)
	}
	cleanup := func() {
		_ = repo.Close(context.Background())
		_ = logger.Sync()
	}

	aoiMap, err := alias.LoadMap(filepath.Join(flagData, "alias_aoi.json"))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("load aoi aliases: %w", err)
	}
	roadMap, err := alias.LoadMap(filepath.Join(flagData, "alias_road.json"))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("load road aliases: %w", err)
	}
	canon := alias.NewCanonicalizer(aoiMap, roadMap)

	llm := parser.NewOpenAIClient(logger)
	arbiter := parser.NewArbiter(llm)
	cache, err := services.NewParseCacheService(nil, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &app{
		cfg:      cfg,
		repo:     repo,
		pipeline: services.NewPipelineService(cfg, repo, llm, canon, arbiter, cache, logger),
		seeder:   services.NewSeedService(repo, nil, logger),
		eval:     services.NewEvaluateService(cfg, repo, logger),
		logger:   logger,
	}, cleanup, nil
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func seedCmd() *cobra.Command {
	var (
		nEntities int
		variants  int
		seed      int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Reset the database and load the synthetic corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			summary, err := a.seeder.Seed(cmd.Context(), nEntities, variants, seed)
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}
	cmd.Flags().IntVar(&nEntities, "entities", 40, "number of distinct physical locations")
	cmd.Flags().IntVar(&variants, "variants", 4, "noisy text variants per location")
	cmd.Flags().Int64Var(&seed, "seed", 42, "rng seed for reproducible corpora")
	return cmd
}

func runCmd() *cobra.Command {
	var useLLM bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full resolution pipeline over stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			summary, err := a.pipeline.Run(cmd.Context(), useLLM)
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}
	cmd.Flags().BoolVar(&useLLM, "llm", false, "let the judge consult the LLM arbitrator")
	return cmd
}

func evaluateCmd() *cobra.Command {
	var gridSearch bool
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score the last run's clusters against the labeled pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			if gridSearch {
				res, err := a.eval.GridSearch(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(res)
			}
			metrics, err := a.eval.EvaluateCurrent(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(metrics)
		},
	}
	cmd.Flags().BoolVar(&gridSearch, "grid", false, "sweep thresholds and weight scalings instead")
	return cmd
}

func compareCmd() *cobra.Command {
	var useLLM bool
	cmd := &cobra.Command{
		Use:   "compare <addr1> <addr2>",
		Short: "Judge whether two raw addresses denote the same location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := a.pipeline.ComparePair(cmd.Context(), args[0], args[1], useLLM)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().BoolVar(&useLLM, "llm", false, "let the judge consult the LLM arbitrator")
	return cmd
}
