// Package reporting provides report generation for benchmark results.
package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/phansite/encore/benchmark/analysis"
	"github.com/phansite/encore/benchmark/simulation"
)

// MarkdownReport generates benchmark reports in Markdown format.
type MarkdownReport struct {
	w io.Writer
}

// NewMarkdownReport creates a new Markdown report writer.
func NewMarkdownReport(w io.Writer) *MarkdownReport {
	return &MarkdownReport{w: w}
}

// WriteHeader writes the report header.
func (r *MarkdownReport) WriteHeader(title string) {
	fmt.Fprintf(r.w, "# %s\n\n", title)
	fmt.Fprintf(r.w, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
}

// WriteMethodology writes the methodology section.
func (r *MarkdownReport) WriteMethodology(pattern string, sessions, lookups int) {
	fmt.Fprintln(r.w, "## Methodology")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Access pattern:** %s\n", pattern)
	fmt.Fprintf(r.w, "- **Sessions simulated:** %d\n", sessions)
	fmt.Fprintf(r.w, "- **Lookups per session:** %d\n", lookups)
	fmt.Fprintln(r.w, "- **Metric:** Per-session cache hit rate (higher is better)")
	fmt.Fprintln(r.w, "- **Statistical tests:** Mann-Whitney U (non-parametric), Cohen's d effect size")
	fmt.Fprintln(r.w)
}

// WriteSummaryTable writes the summary comparison table.
func (r *MarkdownReport) WriteSummaryTable(results map[string]*simulation.AggregateResult) {
	fmt.Fprintln(r.w, "## Summary")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Config | Hit Rate | Median Session | Evictions | Key Concentration |")
	fmt.Fprintln(r.w, "|--------|----------|----------------|-----------|-------------------|")

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		metrics := simulation.ComputeMetrics(results[name])
		fmt.Fprintf(r.w, "| %s | %.1f%% | %.1f%% | %d | %.2f |\n",
			name, metrics.OverallHitRate, metrics.MedianSessionHitRate,
			metrics.Evictions, metrics.KeyConcentration)
	}
	fmt.Fprintln(r.w)
}

// WriteComparison writes a detailed comparison section.
func (r *MarkdownReport) WriteComparison(comp *analysis.ConfigComparison) {
	fmt.Fprintf(r.w, "## %s vs %s\n\n", comp.Config1, comp.Config2)

	fmt.Fprintln(r.w, "### Descriptive Statistics")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Metric | "+comp.Config1+" | "+comp.Config2+" |")
	fmt.Fprintln(r.w, "|--------|"+strings.Repeat("-", len(comp.Config1)+2)+"|"+strings.Repeat("-", len(comp.Config2)+2)+"|")
	fmt.Fprintf(r.w, "| Mean | %.2f%% | %.2f%% |\n", comp.Stats1.Mean, comp.Stats2.Mean)
	fmt.Fprintf(r.w, "| Median | %.2f%% | %.2f%% |\n", comp.Stats1.Median, comp.Stats2.Median)
	fmt.Fprintf(r.w, "| Std Dev | %.2f | %.2f |\n", comp.Stats1.StdDev, comp.Stats2.StdDev)
	fmt.Fprintf(r.w, "| Min | %.2f%% | %.2f%% |\n", comp.Stats1.Min, comp.Stats2.Min)
	fmt.Fprintf(r.w, "| Max | %.2f%% | %.2f%% |\n", comp.Stats1.Max, comp.Stats2.Max)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Statistical Analysis")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Mann-Whitney U:** %.2f (z=%.2f, p=%.4f)\n",
		comp.MannWhitney.U, comp.MannWhitney.Z, comp.MannWhitney.PValue)
	fmt.Fprintf(r.w, "- **Effect size (Cohen's d):** %.2f (%s)\n",
		comp.EffectSize.CohensD, comp.EffectSize.Interpretation)
	fmt.Fprintf(r.w, "- **95%% CI for mean difference:** [%.2f, %.2f]\n",
		comp.BootstrapCI.LowerBound, comp.BootstrapCI.UpperBound)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Conclusion")
	fmt.Fprintln(r.w)
	if comp.WinnerConfident {
		fmt.Fprintf(r.w, "**%s** shows a statistically significant higher hit rate than %s ",
			comp.Winner, otherConfig(comp.Winner, comp.Config1, comp.Config2))
		fmt.Fprintf(r.w, "(p < 0.05, effect size: %s).\n", comp.EffectSize.Interpretation)
	} else {
		fmt.Fprintln(r.w, "No statistically significant difference detected between configs (p >= 0.05).")
	}
	fmt.Fprintln(r.w)
}

func otherConfig(winner, c1, c2 string) string {
	if winner == c1 {
		return c2
	}
	return c1
}

// WriteHitRateChart writes an ASCII histogram of per-session hit rates.
func (r *MarkdownReport) WriteHitRateChart(name string, rates []float64) {
	fmt.Fprintf(r.w, "### %s Session Hit Rate Distribution\n\n", name)
	fmt.Fprintln(r.w, "```")

	hist := makeHistogram(rates, 10)
	maxCount := 0
	for _, count := range hist {
		if count > maxCount {
			maxCount = count
		}
	}

	width := 40
	for i, count := range hist {
		barLen := 0
		if maxCount > 0 {
			barLen = count * width / maxCount
		}
		bar := strings.Repeat("█", barLen)
		fmt.Fprintf(r.w, "%3d%%-%3d%% │ %s %d\n", i*10, (i+1)*10, bar, count)
	}

	fmt.Fprintln(r.w, "```")
	fmt.Fprintln(r.w)
}

// makeHistogram buckets percentage hit rates (0..100) into fixed-width bins.
func makeHistogram(rates []float64, buckets int) []int {
	hist := make([]int, buckets)
	for _, v := range rates {
		bucket := int(v / 100 * float64(buckets))
		if bucket >= buckets {
			bucket = buckets - 1
		}
		if bucket < 0 {
			bucket = 0
		}
		hist[bucket]++
	}
	return hist
}

// WriteFooter writes the report footer.
func (r *MarkdownReport) WriteFooter() {
	fmt.Fprintln(r.w, "---")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "*Report generated by encore-bench*")
}
