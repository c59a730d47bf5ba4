package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/shuttlecast/app"
	"github.com/kilianp07/shuttlecast/core/reportlog"
	"github.com/kilianp07/shuttlecast/pkg/export"
)

var hf struct {
	date   string
	since  string
	until  string
	alerts bool
	limit  int
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded forecast runs",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVarP(&hf.date, "date", "d", "", "only runs for this service date (YYYY-MM-DD)")
	f.StringVar(&hf.since, "since", "", "only runs generated at or after (RFC3339)")
	f.StringVar(&hf.until, "until", "", "only runs generated at or before (RFC3339)")
	f.BoolVar(&hf.alerts, "alerts", false, "only runs with alert slots")
	f.IntVarP(&hf.limit, "limit", "n", 20, "most recent runs to show (0 for all)")
	f.StringVarP(&hf.format, "format", "f", "table", "output format: table, json or csv")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(hf.format)
	if err != nil {
		return err
	}
	q := reportlog.Query{ServiceDate: hf.date, AlertsOnly: hf.alerts, Limit: hf.limit}
	if q.Since, err = parseRFC3339("since", hf.since); err != nil {
		return err
	}
	if q.Until, err = parseRFC3339("until", hf.until); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	recs, err := svc.History(cmd.Context(), q)
	if err != nil {
		return err
	}
	return export.WriteHistory(cmd.OutOrStdout(), recs, format)
}

func parseRFC3339(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be RFC3339: %w", name, err)
	}
	return t, nil
}
