// Command acsinfo runs the ACS lag pipeline on a YAML table description and
// prints a per-spectrum summary.
//
// Usage:
//
//	acsinfo [flags] table.yaml
//
// Examples:
//
//	acsinfo testdata/scan.yaml
//	acsinfo -vanvleck powerlevel -smoothing hamming testdata/scan.yaml
//	acsinfo -config pipeline.yaml -row 1 testdata/scan.yaml
//	acsinfo -fixlags -fixlagslog scan.fixed_lags testdata/scan.yaml
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-acs/acs"
	"github.com/cwbudde/algo-acs/config"
	"github.com/cwbudde/algo-acs/dsp/vanvleck"
	"github.com/cwbudde/algo-acs/dsp/window"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	vanVleck   string
	smoothing  string
	fixLags    bool
	fixLagsLog string
	row        int
	all        bool
	verbose    bool
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("acsinfo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.configPath, "config", "", "pipeline configuration (YAML)")
	fs.StringVar(&o.vanVleck, "vanvleck", "", "override the quantization correction: none, schwab, powerlevel")
	fs.StringVar(&o.smoothing, "smoothing", "", "override the lag window: none, hanning, hamming")
	fs.BoolVar(&o.fixLags, "fixlags", false, "repair lag anomalies")
	fs.StringVar(&o.fixLagsLog, "fixlagslog", "", "file receiving the anomaly report")
	fs.IntVar(&o.row, "row", 0, "row to process")
	fs.BoolVar(&o.all, "all", false, "process every row")
	fs.BoolVar(&o.verbose, "v", false, "log pipeline diagnostics")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: acsinfo [flags] table.yaml\n\n")
		fmt.Fprintf(stderr, "Converts the lags of an ACS table to spectra and summarizes each spectrum.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	cfg, err := buildConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	src, err := acs.LoadMemorySource(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if err := src.Seek(o.row); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	tab, err := acs.New(src, acs.WithConfig(cfg), acs.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	printHeader(stdout, tab)
	rows := []int{o.row}
	if o.all {
		rows = rows[:0]
		for r := 0; r < src.NumRows(); r++ {
			rows = append(rows, r)
		}
	}
	for _, r := range rows {
		if err := src.Seek(r); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		if err := printRow(stdout, tab, r); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}
	return 0
}

func buildConfig(o options) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.vanVleck != "" {
		m, err := vanvleck.ParseModel(o.vanVleck)
		if err != nil {
			return cfg, err
		}
		cfg.VanVleckCorr = m
	}
	if o.smoothing != "" {
		t, err := window.ParseType(o.smoothing)
		if err != nil {
			return cfg, err
		}
		cfg.Smoothing = t
	}
	if o.fixLags {
		cfg.FixLags = true
	}
	if o.fixLagsLog != "" {
		cfg.FixLagsLog = o.fixLagsLog
	}
	return cfg, cfg.Validate()
}

func printHeader(w io.Writer, tab *acs.Table) {
	cfg := tab.Config()
	layout := tab.Layout()
	fmt.Fprintf(w, "Table      %s (scan %d, bank %s)\n", tab.Timestamp(), tab.Scan(), tab.Bank())
	fmt.Fprintf(w, "Layout     %d lags, %d samplers, %d states, %d-level\n", layout.Lags, layout.Samplers, layout.States, tab.Level())
	fmt.Fprintf(w, "Pipeline   vanVleck=%s smoothing=%s fixlags=%t\n", cfg.VanVleckCorr, cfg.Smoothing, cfg.FixLags)
	fmt.Fprintf(w, "Channel    %.6g (k2 = %.2f)\n\n", tab.ChannelSpacing(), tab.NoiseFactor())
}

func printRow(w io.Writer, tab *acs.Table, row int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Row\tSampler\tState\tPhase\tZero Lag\tZero Chan\tScale\tPeak Chan\tPeak\tIntegrat [s]\tBad\n")
	fmt.Fprintf(tw, "---\t-------\t-----\t-----\t--------\t---------\t-----\t---------\t----\t------------\t---\n")

	layout := tab.Layout()
	res := tab.Resolver()
	for s := 0; s < layout.Samplers; s++ {
		raw, err := tab.RawData(s)
		if err != nil {
			return err
		}
		data, err := tab.Data(s)
		if err != nil {
			return err
		}
		zero, err := tab.ZeroChannel(s)
		if err != nil {
			return err
		}
		bad, err := tab.BadData(s)
		if err != nil {
			return err
		}
		scale := tab.Correction().Scale

		for state := 0; state < layout.States; state++ {
			spec := layout.Index(s, state)
			tint, err := tab.Integrat(s, state)
			if err != nil {
				tint = 0
			}
			peak, at := peakOf(data[state])
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.6g\t%.6g\t%.6g\t%d\t%.6g\t%.6g\t%t\n",
				row, res.Label(spec), state, res.Phase(spec),
				raw[state][0], zero[state], scale[spec], at, peak, tint, bad[state])
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func peakOf(x []float64) (float64, int) {
	if len(x) == 0 {
		return 0, 0
	}
	at := 0
	for i, v := range x {
		if v > x[at] {
			at = i
		}
	}
	return x[at], at
}
