// ABOUTME: Command-line benchmark runner for the retrieval evaluation
// ABOUTME: Executes medical conversation scenarios and outputs JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/harper/optimedix/benchmarks/ragas"
	"github.com/harper/optimedix/internal/config"
	"github.com/harper/optimedix/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	testID := flag.String("test", "", "Run a specific built-in test (aspirin, chest-pain, cough). If empty, runs all tests.")
	scenariosPath := flag.String("scenarios", "", "YAML file of scenarios to run instead of the built-in ones")
	configPath := flag.String("config", "", "Config file (default: $OPTIMEDIX_CONFIG)")
	offline := flag.Bool("offline", false, "Use the hashing embedder and an extractive generator instead of remote providers")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (continuing anyway): %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scenarios, err := selectScenarios(*testID, *scenariosPath)
	if err != nil {
		log.Fatal(err)
	}

	var (
		cfg  *config.Config
		opts = ragas.Options{Out: os.Stdout, Verbose: *verbose}
	)
	if *offline {
		cfg = ragas.OfflineConfig()
		opts.Generator = ragas.ExtractiveGenerator{}
	} else {
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	logger, err := logging.New(logging.Config{Level: logging.LevelFromFlags(cfg.Log.Level, *verbose, false), Format: cfg.Log.Format})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	opts.Logger = logger

	fmt.Println("========================================")
	fmt.Println("OptiMedix Retrieval Benchmarks")
	fmt.Println("========================================")
	fmt.Println()

	runner, err := ragas.NewBenchmarkRunner(ctx, cfg, opts)
	if err != nil {
		log.Fatalf("Failed to create benchmark runner: %v", err)
	}

	fmt.Printf("Running %d scenario(s)...\n", len(scenarios))
	results, err := runner.RunAllTests(ctx, scenarios)
	if err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}

	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")

	for _, result := range results {
		fmt.Printf("\n%s: %s\n", result.TestID, result.TestName)
		fmt.Printf("  Faithfulness: %.2f\n", result.FaithfulnessScore)
		fmt.Printf("  Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Printf("  Overall: %.2f\n", result.OverallScore)
		fmt.Printf("  Status: %s\n", result.Status)
	}

	summary := ragas.Summarize(results)
	fmt.Println("\n========================================")
	fmt.Printf("Total Tests: %d\n", summary.TotalTests)
	fmt.Printf("Passed: %d\n", summary.Passed)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Println("========================================")

	if err := ragas.ExportResults(results, *outputPath); err != nil {
		log.Fatalf("Failed to export results: %v", err)
	}
	fmt.Printf("✓ Results exported to: %s\n", *outputPath)

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func selectScenarios(testID, path string) ([]ragas.TestScenario, error) {
	if path != "" {
		return ragas.LoadScenarios(path)
	}
	if testID == "" {
		return ragas.GetAllTests(), nil
	}
	scenario, ok := ragas.GetTest(testID)
	if !ok {
		return nil, fmt.Errorf("unknown test ID: %s (valid options: aspirin, chest-pain, cough)", testID)
	}
	return []ragas.TestScenario{scenario}, nil
}
