// Package main provides the encore-bench CLI tool for benchmarking cache
// configurations against synthetic access workloads.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/phansite/encore/benchmark/analysis"
	"github.com/phansite/encore/benchmark/reporting"
	"github.com/phansite/encore/benchmark/simulation"
	"github.com/phansite/encore/benchmark/workload"
)

var (
	patternName  string
	keyCount     int
	sessionCount int
	sessionLen   int
	seed         int64
	zipfS        float64
	configSpecs  []string
	accessStep   time.Duration
	outputFormat string
	outputFile   string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "encore-bench",
	Short: "Benchmark cache configurations for encore",
	Long: `encore-bench compares cache capacity and TTL configurations against
synthetic access workloads.

It generates per-session key access traces (zipf, uniform, or scan), replays
them against independently configured caches, and reports per-session hit
rates with statistical comparison.

Examples:
  # Run benchmark with default configs
  encore-bench run

  # Compare a tiny cache against a generous one on a hot-key workload
  encore-bench run --pattern zipf --configs tiny=32:1m,big=1024:5m

  # Output as markdown report
  encore-bench run --format markdown --output report.md`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark simulation",
	RunE:  runBenchmark,
}

var compareCmd = &cobra.Command{
	Use:   "compare <config1> <config2>",
	Short: "Statistically compare two configs",
	Long: `compare runs the workload against exactly two configs and prints the
statistical comparison: Mann-Whitney U, Cohen's d effect size, and a
bootstrap confidence interval for the hit rate difference.

Config format is name=capacity:ttl, e.g. small=64:1m.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	runCmd.Flags().StringVarP(&patternName, "pattern", "p", "zipf", "access pattern: zipf, uniform, scan")
	runCmd.Flags().IntVarP(&keyCount, "keys", "k", 1000, "size of the key universe")
	runCmd.Flags().IntVar(&sessionCount, "sessions", 200, "number of sessions to simulate")
	runCmd.Flags().IntVar(&sessionLen, "length", 500, "lookups per session")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "workload random seed")
	runCmd.Flags().Float64Var(&zipfS, "zipf-s", 1.1, "zipf skew parameter (zipf pattern only)")
	runCmd.Flags().StringSliceVarP(&configSpecs, "configs", "c", []string{"small=64:1m", "large=512:5m"}, "configs to compare, as name=capacity:ttl")
	runCmd.Flags().DurationVar(&accessStep, "step", time.Second, "simulated time between lookups")
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, markdown")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	compareCmd.Flags().StringVarP(&patternName, "pattern", "p", "zipf", "access pattern: zipf, uniform, scan")
	compareCmd.Flags().IntVarP(&keyCount, "keys", "k", 1000, "size of the key universe")
	compareCmd.Flags().IntVar(&sessionCount, "sessions", 200, "number of sessions to simulate")
	compareCmd.Flags().IntVar(&sessionLen, "length", 500, "lookups per session")
	compareCmd.Flags().Int64Var(&seed, "seed", 1, "workload random seed")
	compareCmd.Flags().Float64Var(&zipfS, "zipf-s", 1.1, "zipf skew parameter (zipf pattern only)")
	compareCmd.Flags().DurationVar(&accessStep, "step", time.Second, "simulated time between lookups")
	compareCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, markdown")
	compareCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	pattern, err := parsePattern(patternName)
	if err != nil {
		return err
	}

	configs := make([]simulation.Config, 0, len(configSpecs))
	for _, spec := range configSpecs {
		cfg, err := parseConfig(spec)
		if err != nil {
			return err
		}
		configs = append(configs, cfg)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Generating %d sessions of %d %s lookups over %d keys...\n",
			sessionCount, sessionLen, patternName, keyCount)
	}

	sessions, err := workload.Generate(workload.Spec{
		Pattern:  pattern,
		Keys:     keyCount,
		Sessions: sessionCount,
		Length:   sessionLen,
		Seed:     seed,
		ZipfS:    zipfS,
	})
	if err != nil {
		return fmt.Errorf("generating workload: %w", err)
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "Running simulation...")
	}

	sim := simulation.NewSimulator(accessStep, configs...)
	results, err := sim.SimulateSessions(sessions)
	if err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}

	var comparison *analysis.ConfigComparison
	if len(configs) >= 2 {
		comparison = analysis.CompareConfigs(
			results[configs[0].Name],
			results[configs[1].Name],
			10000, // Bootstrap iterations.
			0.95,  // 95% confidence.
		)
	}

	var output io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	switch outputFormat {
	case "markdown":
		return writeMarkdownReport(output, results, comparison)
	default:
		return writeTextReport(output, results, comparison)
	}
}

func runCompare(cmd *cobra.Command, args []string) error {
	pattern, err := parsePattern(patternName)
	if err != nil {
		return err
	}

	cfg1, err := parseConfig(args[0])
	if err != nil {
		return err
	}
	cfg2, err := parseConfig(args[1])
	if err != nil {
		return err
	}

	sessions, err := workload.Generate(workload.Spec{
		Pattern:  pattern,
		Keys:     keyCount,
		Sessions: sessionCount,
		Length:   sessionLen,
		Seed:     seed,
		ZipfS:    zipfS,
	})
	if err != nil {
		return fmt.Errorf("generating workload: %w", err)
	}

	sim := simulation.NewSimulator(accessStep, cfg1, cfg2)
	results, err := sim.SimulateSessions(sessions)
	if err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}

	comparison := analysis.CompareConfigs(results[cfg1.Name], results[cfg2.Name], 10000, 0.95)

	var output io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	if outputFormat == "markdown" {
		report := reporting.NewMarkdownReport(output)
		report.WriteHeader(fmt.Sprintf("%s vs %s", cfg1.Name, cfg2.Name))
		report.WriteMethodology(patternName, sessionCount, sessionLen)
		report.WriteSummaryTable(results)
		report.WriteComparison(comparison)
		report.WriteHitRateChart(cfg1.Name, results[cfg1.Name].HitRatePerSession)
		report.WriteHitRateChart(cfg2.Name, results[cfg2.Name].HitRatePerSession)
		report.WriteFooter()
		return nil
	}

	fmt.Fprintln(output, comparison.Summary())
	return nil
}

func parsePattern(name string) (workload.Pattern, error) {
	switch strings.ToLower(name) {
	case "zipf":
		return workload.PatternZipf, nil
	case "uniform":
		return workload.PatternUniform, nil
	case "scan":
		return workload.PatternScan, nil
	default:
		return "", fmt.Errorf("unknown pattern: %s", name)
	}
}

// parseConfig parses "name=capacity:ttl", e.g. "small=64:1m".
func parseConfig(spec string) (simulation.Config, error) {
	name, rest, ok := strings.Cut(spec, "=")
	if !ok {
		return simulation.Config{}, fmt.Errorf("invalid config %q: want name=capacity:ttl", spec)
	}

	capStr, ttlStr, ok := strings.Cut(rest, ":")
	if !ok {
		return simulation.Config{}, fmt.Errorf("invalid config %q: want name=capacity:ttl", spec)
	}

	capacity, err := strconv.Atoi(capStr)
	if err != nil {
		return simulation.Config{}, fmt.Errorf("invalid capacity in %q: %w", spec, err)
	}

	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return simulation.Config{}, fmt.Errorf("invalid ttl in %q: %w", spec, err)
	}

	return simulation.Config{Name: name, Capacity: capacity, TTL: ttl}, nil
}

func writeTextReport(w io.Writer, results map[string]*simulation.AggregateResult, comp *analysis.ConfigComparison) error {
	fmt.Fprintf(w, "Encore Cache Configuration Benchmark\n")
	fmt.Fprintf(w, "====================================\n\n")
	fmt.Fprintf(w, "Pattern:  %s\n", patternName)
	fmt.Fprintf(w, "Keys:     %d\n", keyCount)
	fmt.Fprintf(w, "Sessions: %d x %d lookups\n\n", sessionCount, sessionLen)

	fmt.Fprintf(w, "Results:\n")
	fmt.Fprintf(w, "--------\n\n")

	for _, spec := range configSpecs {
		name, _, _ := strings.Cut(spec, "=")
		res, ok := results[name]
		if !ok {
			continue
		}
		metrics := simulation.ComputeMetrics(res)
		fmt.Fprintf(w, "%s:\n", name)
		fmt.Fprintf(w, "  Hit rate:          %.1f%%\n", metrics.OverallHitRate)
		fmt.Fprintf(w, "  Median session:    %.1f%%\n", metrics.MedianSessionHitRate)
		fmt.Fprintf(w, "  P10 session:       %.1f%%\n", metrics.P10SessionHitRate)
		fmt.Fprintf(w, "  P90 session:       %.1f%%\n", metrics.P90SessionHitRate)
		fmt.Fprintf(w, "  Evictions:         %d\n", metrics.Evictions)
		fmt.Fprintf(w, "  Key concentration: %.2f\n\n", metrics.KeyConcentration)
	}

	if comp != nil {
		fmt.Fprintf(w, "Statistical Analysis:\n")
		fmt.Fprintf(w, "---------------------\n\n")
		fmt.Fprintln(w, comp.Summary())
	}

	return nil
}

func writeMarkdownReport(w io.Writer, results map[string]*simulation.AggregateResult, comp *analysis.ConfigComparison) error {
	report := reporting.NewMarkdownReport(w)
	report.WriteHeader("Encore Cache Configuration Benchmark")
	report.WriteMethodology(patternName, sessionCount, sessionLen)
	report.WriteSummaryTable(results)

	if comp != nil {
		report.WriteComparison(comp)
	}

	report.WriteFooter()
	return nil
}
