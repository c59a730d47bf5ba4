package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/shuttlecast/app"
	coremon "github.com/kilianp07/shuttlecast/core/monitoring"
	"github.com/kilianp07/shuttlecast/core/scheduler"
	"github.com/kilianp07/shuttlecast/infra/logger"
	"github.com/kilianp07/shuttlecast/pkg/export"
)

type forecastFlags struct {
	input      string
	date       string
	start      string
	end        string
	interval   int
	windowFile string
	format     string
	out        string
}

var ff forecastFlags

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast shuttle saturation from a flight schedule",
	Example: `  shuttlecast forecast --input arrivals.xlsx --date 2024-03-04
  shuttlecast forecast -i arrivals.csv -d 2024-03-04 --start 10:00 --end 14:00 --format csv -o out.csv`,
	RunE: runForecast,
}

func init() {
	f := forecastCmd.Flags()
	f.StringVarP(&ff.input, "input", "i", "", "flight schedule (.csv or .xlsx)")
	f.StringVarP(&ff.date, "date", "d", "", "service date (YYYY-MM-DD)")
	f.StringVar(&ff.start, "start", "", "first departure (HH:MM), overrides config")
	f.StringVar(&ff.end, "end", "", "last departure (HH:MM), overrides config")
	f.IntVar(&ff.interval, "interval", 0, "minutes between departures, overrides config")
	f.StringVar(&ff.windowFile, "window", "", "window file (.yaml or .json)")
	f.StringVarP(&ff.format, "format", "f", "table", "output format: table, json or csv")
	f.StringVarP(&ff.out, "out", "o", "", "output file (default stdout)")
	_ = forecastCmd.MarkFlagRequired("input")
	_ = forecastCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, _ []string) error {
	defer coremon.Recover()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format, err := export.ParseFormat(ff.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if ff.windowFile != "" {
		wc, err := scheduler.LoadWindow(ff.windowFile)
		if err != nil {
			return fmt.Errorf("load window: %w", err)
		}
		cfg.Service.Window = wc
	}
	date, err := cfg.Service.ParseDate(ff.date)
	if err != nil {
		return err
	}
	window, err := app.WindowOverride(cfg.Service.Window, ff.start, ff.end, ff.interval)
	if err != nil {
		return err
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	in, err := os.Open(ff.input)
	if err != nil {
		return err
	}
	defer in.Close()
	batch, err := svc.Ingest(in, ff.input)
	if err != nil {
		return err
	}

	res, err := svc.Forecast(ctx, batch, app.Request{ServiceDate: date, Window: window, Source: filepath.Base(ff.input)})
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if ff.out != "" {
		f, err := os.Create(ff.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if format == export.FormatJSON {
		return export.WriteJSON(w, res)
	}
	return export.WriteReport(w, res.Report, format)
}
