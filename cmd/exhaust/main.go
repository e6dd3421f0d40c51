package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahrav/go-multiverse/infrastructure/middleware"
	"github.com/ahrav/go-multiverse/internal/application"
	"github.com/ahrav/go-multiverse/internal/domain"
	"github.com/ahrav/go-multiverse/internal/testutils"
)

func main() {
	var (
		designPath  = flag.String("design", "design.yaml", "Path to the design YAML file")
		size        = flag.Int("n", 1000, "Number of synthetic observations to draw")
		effect      = flag.Float64("effect", 0.5, "True effect size of x on y")
		confounding = flag.Float64("confounding", 1.0, "Strength of the confounder")
		seed        = flag.Uint64("seed", 1, "Random seed for the synthetic draw")
		concurrency = flag.Int("concurrency", 0, "Maximum concurrent protocol runs (0 = NumCPU)")
	)
	flag.Parse()

	ctx := context.Background()

	loader, err := application.NewDesignLoader(application.NewDefaultStepRegistry())
	if err != nil {
		log.Fatalf("Failed to create design loader: %v", err)
	}

	design, err := loader.LoadFromFile(*designPath)
	if err != nil {
		log.Fatalf("Failed to load design: %v", err)
	}

	input, err := testutils.NewConfoundedState(testutils.ConfoundedConfig{
		N:           *size,
		Effect:      *effect,
		Confounding: *confounding,
		NoiseSD:     1.0,
		Seed:        *seed,
	})
	if err != nil {
		log.Fatalf("Failed to generate input data: %v", err)
	}

	exhauster := application.NewExhauster()
	exhauster.SetConcurrencyLimit(*concurrency)
	exhauster.SetMetricsCollector(middleware.NewPrometheusMetrics(prometheus.DefaultRegisterer))

	table, err := exhauster.Exhaust(ctx, design, input)
	if err != nil {
		log.Fatalf("Exhaustion failed: %v", err)
	}

	if err := writeCSV(os.Stdout, table); err != nil {
		log.Fatalf("Failed to write results: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Design %q: %d protocols executed.\n", design.Name(), table.NumRows())
}

// writeCSV streams the result table as CSV with one header row.
func writeCSV(f *os.File, table *domain.Table) error {
	w := csv.NewWriter(f)

	if err := w.Write(table.Columns); err != nil {
		return err
	}
	for _, row := range table.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = formatCell(cell)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// formatCell renders one table cell for CSV output.
func formatCell(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
