// Command publisher renders dashboard JSON from the fact_values database:
// a meta file with the generation time and a latest file holding the most
// recent period of every metric per entity.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type metaFile struct {
	GeneratedAt string `json:"generated_at"`
}

type latestFile struct {
	GeneratedAt string        `json:"generated_at"`
	Fact        string        `json:"fact"`
	Rows        []latestEntry `json:"rows"`
}

type latestEntry struct {
	Entity  string             `json:"entity"`
	Period  string             `json:"period"`
	Metrics map[string]float64 `json:"metrics"`
}

type factRow struct {
	Entity string
	Period string
	Metric string
	Value  float64
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "build":
		build(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func build(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	outDir := fs.String("out", "site/data", "output directory")
	dbPath := fs.String("db", "macrofact.db", "sqlite database path")
	fact := fs.String("fact", "fact_core_province_quarter", "fact table to publish")
	fs.Parse(args)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "failed to create output dir:", err)
		os.Exit(1)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := writeJSON(filepath.Join(*outDir, "meta.json"), metaFile{GeneratedAt: now}); err != nil {
		fmt.Fprintln(os.Stderr, "failed to write meta.json:", err)
		os.Exit(1)
	}

	rows, err := loadFactValues(*dbPath, *fact)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load fact values:", err)
		os.Exit(1)
	}

	latest := buildLatest(rows)
	if err := writeJSON(filepath.Join(*outDir, "latest.json"), latestFile{GeneratedAt: now, Fact: *fact, Rows: latest}); err != nil {
		fmt.Fprintln(os.Stderr, "failed to write latest.json:", err)
		os.Exit(1)
	}

	fmt.Printf("publisher build complete (fact=%s entities=%d out=%s)\n", *fact, len(latest), *outDir)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: publisher build [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -out   output directory (default: site/data)")
	fmt.Fprintln(os.Stderr, "  -db    sqlite database path (default: macrofact.db)")
	fmt.Fprintln(os.Stderr, "  -fact  fact table to publish (default: fact_core_province_quarter)")
}

func writeJSON(path string, value any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func loadFactValues(dbPath, fact string) ([]factRow, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("db path is required")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ctx := context.Background()
	rows, err := db.QueryContext(ctx, `
		SELECT entity, period, metric, value
		FROM fact_values
		WHERE fact = ?
	`, fact)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]factRow, 0)
	for rows.Next() {
		var row factRow
		if err := rows.Scan(&row.Entity, &row.Period, &row.Metric, &row.Value); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// buildLatest keeps, per entity, the most recent period seen across the
// fact and every metric value recorded for it. Periods are ISO dates, so
// string comparison orders them.
func buildLatest(rows []factRow) []latestEntry {
	type entityState struct {
		period  string
		metrics map[string]float64
	}
	latest := make(map[string]*entityState)

	for _, row := range rows {
		state, ok := latest[row.Entity]
		if !ok {
			state = &entityState{metrics: make(map[string]float64)}
			latest[row.Entity] = state
		}
		if row.Period > state.period {
			state.period = row.Period
			state.metrics = make(map[string]float64)
		}
		if row.Period == state.period {
			state.metrics[row.Metric] = row.Value
		}
	}

	results := make([]latestEntry, 0, len(latest))
	for entity, state := range latest {
		if len(state.metrics) == 0 {
			continue
		}
		results = append(results, latestEntry{
			Entity:  entity,
			Period:  state.period,
			Metrics: state.metrics,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Entity < results[j].Entity })

	return results
}
