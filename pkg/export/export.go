// Package export renders forecast reports and run history as JSON, CSV or a
// console table.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/kilianp07/shuttlecast/core/forecast"
	"github.com/kilianp07/shuttlecast/core/reportlog"
)

// Format names an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json or csv)", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SlotRow is the flat CSV form of a slot.
type SlotRow struct {
	Slot       string  `csv:"slot"`
	Index      int     `csv:"index"`
	Flights    int     `csv:"flights"`
	ShortDelay int     `csv:"short_delay_flights"`
	LongDelay  int     `csv:"long_delay_flights"`
	Capacity   float64 `csv:"capacity"`
	// Predicted is empty when the prediction failed.
	Predicted string `csv:"predicted"`
	Tier      string `csv:"tier"`
	Alert     bool   `csv:"alert"`
	FlightIDs string `csv:"flight_ids"`
}

// SlotRows flattens the report slots.
func SlotRows(rep *forecast.Report) []*SlotRow {
	rows := make([]*SlotRow, len(rep.Slots))
	for i, s := range rep.Slots {
		rows[i] = &SlotRow{
			Slot:       s.SlotTime.Format(time.RFC3339),
			Index:      s.Index,
			Flights:    s.FlightCount,
			ShortDelay: s.ShortDelayFlights,
			LongDelay:  s.LongDelayFlights,
			Capacity:   s.Capacity,
			Predicted:  formatPredicted(s.Predicted, -1),
			Tier:       s.Tier,
			Alert:      s.Alert,
			FlightIDs:  strings.Join(s.FlightIDs, ";"),
		}
	}
	return rows
}

// WriteCSV writes one row per slot.
func WriteCSV(w io.Writer, rep *forecast.Report) error {
	return gocsv.Marshal(SlotRows(rep), w)
}

// WriteTable prints the non-empty slots and a summary.
func WriteTable(w io.Writer, rep *forecast.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Service day %s (%s), departures %s-%s every %d min\n\n",
		rep.ServiceDate, rep.Timezone, rep.Window.Start, rep.Window.End, rep.Window.IntervalMinutes)
	fmt.Fprintln(tw, "SLOT\tFLIGHTS\tSHORT\tLONG\tCAPACITY\tPREDICTED\tTIER\t")
	for _, s := range rep.Slots {
		if s.FlightCount == 0 && s.PredictionError == "" {
			continue
		}
		mark := ""
		if s.Alert {
			mark = "!"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.0f\t%s\t%s%s\t\n",
			s.SlotTime.Format("15:04"), s.FlightCount, s.ShortDelayFlights, s.LongDelayFlights,
			s.Capacity, formatPredicted(s.Predicted, 1), s.Tier, mark)
	}
	sum := rep.Summary
	fmt.Fprintf(tw, "\n%d slots, %d flights (%d unassigned), %d alert slots\n",
		sum.Slots, sum.Flights, sum.Unassigned, sum.AlertSlots)
	if sum.PeakSlot != "" {
		fmt.Fprintf(tw, "peak capacity %.0f seats at %s, max predicted %.1f\n", sum.PeakCapacity, sum.PeakSlot, sum.MaxPredicted)
	}
	if sum.ParseFailures > 0 || sum.PredictionFailures > 0 {
		fmt.Fprintf(tw, "%d rows rejected, %d predictions failed\n", sum.ParseFailures, sum.PredictionFailures)
	}
	return tw.Flush()
}

func formatPredicted(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// HistoryRow is the flat form of a recorded run.
type HistoryRow struct {
	RunID       string `csv:"run_id"`
	GeneratedAt string `csv:"generated_at"`
	ServiceDate string `csv:"service_date"`
	Source      string `csv:"source"`
	Slots       int    `csv:"slots"`
	Flights     int    `csv:"flights"`
	AlertSlots  int    `csv:"alert_slots"`
}

// HistoryRows flattens recorded runs.
func HistoryRows(recs []reportlog.Record) []*HistoryRow {
	rows := make([]*HistoryRow, len(recs))
	for i, r := range recs {
		row := &HistoryRow{
			RunID:       r.RunID,
			GeneratedAt: r.GeneratedAt.Format(time.RFC3339),
			ServiceDate: r.ServiceDate,
			Source:      r.Source,
		}
		if r.Report != nil {
			row.Slots = r.Report.Summary.Slots
			row.Flights = r.Report.Summary.Flights
			row.AlertSlots = r.Report.Summary.AlertSlots
		}
		rows[i] = row
	}
	return rows
}

// WriteHistory renders recorded runs in the given format.
func WriteHistory(w io.Writer, recs []reportlog.Record, f Format) error {
	rows := HistoryRows(recs)
	switch f {
	case FormatJSON:
		return WriteJSON(w, recs)
	case FormatCSV:
		return gocsv.Marshal(rows, w)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tGENERATED\tDATE\tSOURCE\tSLOTS\tFLIGHTS\tALERTS\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t\n",
			r.RunID, r.GeneratedAt, r.ServiceDate, r.Source, r.Slots, r.Flights, r.AlertSlots)
	}
	return tw.Flush()
}

// WriteReport renders rep in the given format.
func WriteReport(w io.Writer, rep *forecast.Report, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatCSV:
		return WriteCSV(w, rep)
	default:
		return WriteTable(w, rep)
	}
}
