package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"macrofact/internal/boc"
	"macrofact/internal/frame"
	"macrofact/internal/pipeline"
	"macrofact/internal/statcan"
	"macrofact/internal/store"
	"macrofact/internal/store/sqlite"
)

func main() {
	app := &cli.App{
		Name:  "factbuilder",
		Usage: "build quarterly Canadian household macro fact tables",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Value: "output",
				Usage: "directory for CSV outputs",
			},
			&cli.StringFlag{
				Name:  "db",
				Value: "",
				Usage: "sqlite database path (empty disables persistence)",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Value: 0,
				Usage: "HTTP timeout in seconds (0 = env/default)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "core",
				Usage:  "build the core province-quarter fact table",
				Action: runCore,
			},
			{
				Name:   "stress",
				Usage:  "build the household stress fact table",
				Action: runStress,
			},
			{
				Name:  "dsr",
				Usage: "build the household debt service ratio fact table",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "start", Usage: "inclusive start quarter (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "end", Usage: "inclusive end quarter (YYYY-MM-DD)"},
				},
				Action: runDSR,
			},
			{
				Name:  "rates",
				Usage: "build the posted mortgage rate tables",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Usage: "Valet series group code"},
					&cli.StringFlag{Name: "start", Usage: "start date passed to the group endpoint"},
					&cli.StringFlag{Name: "end", Usage: "end date passed to the group endpoint"},
				},
				Action: runRates,
			},
			{
				Name:  "mortgages",
				Usage: "build the residential mortgage credit tables",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "start", Usage: "inclusive start month (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "end", Usage: "inclusive end month (YYYY-MM-DD)"},
				},
				Action: runMortgages,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "factbuilder:", err)
		os.Exit(1)
	}
}

type env struct {
	cfg    pipeline.Config
	tables *statcan.Client
	rates  *boc.Client
	store  store.Store
	outDir string
}

func buildEnv(c *cli.Context) (*env, error) {
	statcanCfg := statcan.ConfigFromEnv()
	bocCfg := boc.ConfigFromEnv()
	if seconds := c.Int("timeout"); seconds > 0 {
		statcanCfg.Timeout = time.Duration(seconds) * time.Second
		bocCfg.Timeout = time.Duration(seconds) * time.Second
	}

	st, err := openStore(c.String("db"))
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:    pipeline.Default(),
		tables: statcan.NewWithConfig(statcanCfg),
		rates:  boc.NewWithConfig(bocCfg),
		store:  st,
		outDir: c.String("out"),
	}, nil
}

func openStore(path string) (store.Store, error) {
	if strings.TrimSpace(path) == "" {
		return &store.NopStore{}, nil
	}
	return sqlite.New(path)
}

func runCore(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.store.Close()

	fact, summary, err := pipeline.BuildCoreFact(c.Context, e.cfg, e.tables, e.rates)
	if err != nil {
		return err
	}
	return finish(c.Context, e, summary, fact)
}

func runStress(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.store.Close()

	fact, summary, err := pipeline.BuildStressFact(c.Context, e.cfg, e.tables, e.rates)
	if err != nil {
		return err
	}
	return finish(c.Context, e, summary, fact)
}

func runDSR(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.store.Close()

	if v := c.String("start"); v != "" {
		e.cfg.DSRStartQuarter = v
	}
	if v := c.String("end"); v != "" {
		e.cfg.DSREndQuarter = v
	}
	fact, summary, err := pipeline.BuildDSRFact(c.Context, e.cfg, e.tables)
	if err != nil {
		return err
	}
	return finish(c.Context, e, summary, fact)
}

func runRates(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.store.Close()

	if v := c.String("group"); v != "" {
		e.cfg.MortgageRateGroup = v
	}
	if v := c.String("start"); v != "" {
		e.cfg.MortgageRateStart = v
	}
	if v := c.String("end"); v != "" {
		e.cfg.MortgageRateEnd = v
	}
	rates, summary, err := pipeline.BuildMortgageRates(c.Context, e.cfg, e.rates)
	if err != nil {
		return err
	}
	return finish(c.Context, e, summary, rates.FourColumn, rates.Wide, rates.SeriesMap)
}

func runMortgages(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.store.Close()

	if v := c.String("start"); v != "" {
		e.cfg.MortgageStartMonth = v
	}
	if v := c.String("end"); v != "" {
		e.cfg.MortgageEndMonth = v
	}
	out, summary, err := pipeline.BuildMortgageOutstanding(c.Context, e.cfg, e.tables)
	if err != nil {
		return err
	}
	return finish(c.Context, e, summary, out.Quarterly, out.Monthly)
}

// finish writes each frame as CSV, persists the numeric facts and prints
// the run summary for the primary (first) frame.
func finish(ctx context.Context, e *env, summary *pipeline.Summary, facts ...*frame.Frame) error {
	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return err
	}
	for _, fact := range facts {
		path := filepath.Join(e.outDir, fact.Name()+".csv")
		if err := writeCSV(fact, path); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s rows=%d\n", path, fact.Len())
		if err := e.store.SaveFact(ctx, fact); err != nil {
			return err
		}
	}
	summary.Print(os.Stdout)
	return nil
}

func writeCSV(fact *frame.Frame, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := frame.WriteCSV(fact, file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
