// README: Offline simulator; assembles routes with both dispatchers against a dataset and prints PASS/FAIL property checks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"shiftroute/internal/infra"
	"shiftroute/internal/modules/demand"
)

func main() {
	cfg := loadConfig()
	infra.SetupLogger(true, cfg.LogLevel)

	table, err := demand.LoadCSV(cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Dataset).Msg("cannot load dataset")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	sim := NewRunner(cfg, table)
	results := sim.RunAll(ctx)

	fmt.Println("\n== Summary ==")
	pass, fail, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case statusPass:
			pass++
		case statusFail:
			fail++
		case statusSkip:
			skipped++
		}
	}
	fmt.Printf("PASS=%d FAIL=%d SKIP=%d\n", pass, fail, skipped)

	if fail > 0 || (cfg.Strict && skipped > 0) {
		os.Exit(1)
	}
}

type Config struct {
	Dataset     string
	StartLat    float64
	StartLng    float64
	StartHour   int
	EndHour     int
	BreakStart  int
	BreakEnd    int
	Seeds       int
	Concurrency int
	Strict      bool
	Timeout     time.Duration
	LogLevel    string
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.Dataset, "dataset", envOrDefault("SHIFT_DATASET_PATH", "data/demand.csv"), "Demand CSV path")
	flag.Float64Var(&cfg.StartLat, "lat", 1.3521, "Start latitude")
	flag.Float64Var(&cfg.StartLng, "lng", 103.8198, "Start longitude")
	flag.IntVar(&cfg.StartHour, "start", 8, "Shift start hour")
	flag.IntVar(&cfg.EndHour, "end", 20, "Shift end hour")
	flag.IntVar(&cfg.BreakStart, "break-start", 12, "Break start hour")
	flag.IntVar(&cfg.BreakEnd, "break-end", 13, "Break end hour")
	flag.IntVar(&cfg.Seeds, "seeds", 5, "Random seeds per algorithm")
	flag.IntVar(&cfg.Concurrency, "concurrency", 8, "Concurrent requests for the planner case")
	flag.BoolVar(&cfg.Strict, "strict", false, "Fail on skipped cases")
	flag.DurationVar(&cfg.Timeout, "timeout", 5*time.Minute, "Total timeout")
	flag.StringVar(&cfg.LogLevel, "log-level", zerolog.WarnLevel.String(), "Log level")
	flag.Parse()
	cfg.Dataset = strings.TrimSpace(cfg.Dataset)
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
