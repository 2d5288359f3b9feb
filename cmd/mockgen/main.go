package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lighthouse/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Distribution to use: uniform, weibull")
	outDir := flag.String("out", "./.cache", "Output directory for mock files")
	teams := flag.Int("teams", 3, "Number of teams to generate")
	features := flag.Int("features", 12, "Number of features to generate")
	days := flag.Int("days", 90, "Days of throughput history per team")
	seed := flag.Uint64("seed", 1, "Random seed")
	format := flag.String("format", "yaml", "Output format: yaml, json")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario:     *scenario,
		Distribution: *distribution,
		Teams:        *teams,
		Features:     *features,
		Days:         *days,
		Seed:         *seed,
		Now:          time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, Teams: %d, Features: %d) to %s...\n", cfg.Scenario, cfg.Distribution, cfg.Teams, cfg.Features, *outDir)

	sc, err := engine.Generate(cfg)
	if err != nil {
		fmt.Printf("Failed to generate scenario: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fmt.Printf("Failed to create output directory: %v\n", err)
		os.Exit(1)
	}
	path := filepath.Join(*outDir, fmt.Sprintf("%s_%s.%s", cfg.Scenario, cfg.Distribution, *format))
	if err := sc.Save(path); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
