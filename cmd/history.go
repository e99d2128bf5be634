package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/studyspot-cli/internal/model"
	"github.com/sells-group/studyspot-cli/internal/monitoring"
	"github.com/sells-group/studyspot-cli/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded queries",
	Long:  "Lists queries saved with recommend --save or served by the HTTP API, newest first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("history"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg, storeRequired)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		showStats, _ := cmd.Flags().GetBool("stats")

		if showStats {
			snap, err := monitoring.NewCollector(st).Collect(ctx, lookbackHours(since))
			if err != nil {
				return eris.Wrap(err, "history stats")
			}
			formatSnapshot(cmd.OutOrStdout(), snap)
			return nil
		}

		filter, err := historyFilter(cmd, since)
		if err != nil {
			return err
		}

		records, err := st.ListQueries(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "history list")
		}
		if len(records) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No queries found.")
			return nil
		}

		formatQueryList(cmd.OutOrStdout(), records)
		return nil
	},
}

// -- history show --

var historyShowCmd = &cobra.Command{
	Use:   "show <query-id>",
	Short: "Show a recorded query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("history"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg, storeRequired)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := st.GetQuery(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "history show")
		}

		return writeQueryRecord(cmd.OutOrStdout(), rec)
	},
}

func init() {
	historyFlags(historyCmd.Flags())

	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func historyFlags(f *pflag.FlagSet) {
	f.Int("limit", 20, "max number of queries to display")
	f.Int("offset", 0, "number of queries to skip")
	f.String("mode", "", "filter by requested mode (strict, weighted, auto)")
	f.String("origin", "", "filter by origin (sinseol, dongdaemun)")
	f.Duration("since", 0, "only queries newer than this (e.g. 24h, 168h; 0=all)")
	f.Bool("stats", false, "show aggregate statistics instead of the list")
}

// historyFilter builds a list filter from the history flags.
func historyFilter(cmd *cobra.Command, since time.Duration) (store.QueryFilter, error) {
	var filter store.QueryFilter
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	filter.Offset, _ = cmd.Flags().GetInt("offset")

	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		mode, err := model.ParseQueryMode(v)
		if err != nil {
			return filter, eris.Wrap(err, "history: --mode")
		}
		filter.Mode = mode
	}
	if v, _ := cmd.Flags().GetString("origin"); v != "" {
		origin, err := model.ParseOrigin(v)
		if err != nil {
			return filter, eris.Wrap(err, "history: --origin")
		}
		filter.Origin = origin
	}
	if since > 0 {
		filter.Since = time.Now().Add(-since)
	}
	return filter, nil
}

// lookbackHours converts a --since window to whole hours, rounding up so a
// window shorter than an hour is not mistaken for "all history".
func lookbackHours(since time.Duration) int {
	if since <= 0 {
		return 0
	}
	h := int(since / time.Hour)
	if since%time.Hour != 0 {
		h++
	}
	return h
}

// formatQueryList writes a tabular list of recorded queries to out.
func formatQueryList(out io.Writer, records []model.QueryRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tMODE\tORIGIN\tMAX_MIN\tRESULTS\tFELL_BACK\tTOP")
	_, _ = fmt.Fprintln(w, "--\t-------\t----\t------\t-------\t-------\t---------\t---")

	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Mode,
			r.Origin,
			r.MaxMinutes,
			r.ResultCount,
			model.Want(r.FellBack).String(),
			truncate(r.TopName, 30),
		)
	}
	_ = w.Flush()
}

// formatSnapshot writes aggregate query stats to out.
func formatSnapshot(out io.Writer, s *monitoring.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	window := "all time"
	if s.LookbackHours > 0 {
		window = fmt.Sprintf("last %dh", s.LookbackHours)
	}
	_, _ = fmt.Fprintf(w, "Window:\t%s\n", window)
	_, _ = fmt.Fprintf(w, "Total queries:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "  Strict:\t%d\n", s.Strict)
	_, _ = fmt.Fprintf(w, "  Weighted:\t%d\n", s.Weighted)
	_, _ = fmt.Fprintf(w, "  Auto:\t%d\n", s.Auto)
	_, _ = fmt.Fprintf(w, "Fell back:\t%d\n", s.FellBack)
	if s.Auto > 0 {
		_, _ = fmt.Fprintf(w, "Fallback rate:\t%.1f%%\n", s.FallbackRate*100)
	}
	_, _ = fmt.Fprintf(w, "Empty results:\t%d\n", s.EmptyResults)
	_ = w.Flush()
}

// writeQueryRecord prints a record as indented JSON with the stored request
// inlined rather than base64 encoded.
func writeQueryRecord(out io.Writer, rec *model.QueryRecord) error {
	view := struct {
		*model.QueryRecord
		Request json.RawMessage `json:"request,omitempty"`
	}{QueryRecord: rec}
	if json.Valid(rec.Request) {
		view.Request = rec.Request
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(view), "history show: encode")
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
