package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/studyspot-cli/internal/config"
	"github.com/sells-group/studyspot-cli/internal/intake"
	"github.com/sells-group/studyspot-cli/internal/model"
	"github.com/sells-group/studyspot-cli/internal/monitoring"
	"github.com/sells-group/studyspot-cli/internal/scorer"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Find study spots that fit your preferences",
	Long: `Match study spots against a travel limit and six optional preferences.

Each preference takes a value or "skip". In weighted mode every spot is scored
by the weights (1-5) of the preferences it meets, and each result explains
which preferences matched. Auto mode tries strict first and falls back to
weighted when nothing matches exactly.

Examples:
  # Quiet, free spots within 15 minutes of Sinseol-dong
  recommend --origin sinseol --max-minutes 15 --vibe quiet --price free

  # Weighted ranking that cares most about outlets
  recommend --origin dongdaemun --max-minutes 20 --outlet yes --outlet-weight 5 --mode weighted

  # Describe what you want in plain words
  recommend --origin sinseol --max-minutes 30 --describe "somewhere cozy with plugs, open late"

  # Export the top 5 to a spreadsheet
  recommend --origin sinseol --max-minutes 30 --mode weighted --top 5 --format xlsx --output spots.xlsx`,
	RunE: runRecommend,
}

// attributeFlags maps attribute flags to request field names.
var attributeFlags = []struct{ flag, field string }{
	{"work", "work_type"},
	{"outlet", "outlet_pref"},
	{"vibe", "vibe_pref"},
	{"seating", "seating_pref"},
	{"price", "price_pref"},
	{"late", "open_late"},
}

func init() {
	recommendFlags(recommendCmd.Flags())
	_ = recommendCmd.MarkFlagRequired("origin")
	_ = recommendCmd.MarkFlagRequired("max-minutes")

	rootCmd.AddCommand(recommendCmd)
}

func recommendFlags(f *pflag.FlagSet) {
	f.String("origin", "", "starting point: sinseol or dongdaemun")
	f.Int("max-minutes", 0, "longest acceptable travel time in minutes")
	f.String("work", model.SkipValue, "work type: deep_focus, casual, group or skip")
	f.String("outlet", model.SkipValue, "power outlets: yes, limited, no or skip")
	f.String("vibe", model.SkipValue, "vibe: quiet, cozy, lively or skip")
	f.String("seating", model.SkipValue, "seating: booth, open_table, lounge, individual_desk or skip")
	f.String("price", model.SkipValue, "price: free, low, medium or skip")
	f.String("late", model.SkipValue, "open late: yes, no or skip")

	f.Int("travel-weight", 1, "importance of travel time (1-5)")
	f.Int("work-weight", 1, "importance of work type (1-5)")
	f.Int("outlet-weight", 1, "importance of outlets (1-5)")
	f.Int("vibe-weight", 1, "importance of vibe (1-5)")
	f.Int("seating-weight", 1, "importance of seating (1-5)")
	f.Int("price-weight", 1, "importance of price (1-5)")
	f.Int("late-weight", 1, "importance of opening late (1-5)")

	f.String("explain", "", "explanation style: short or long (default from config)")
	f.Int("top", 0, "number of weighted results (0=use config default)")
	f.String("mode", string(model.ModeAuto), "query mode: strict, weighted or auto")
	f.String("describe", "", "free-text description; fills preferences not given by flags")
	f.String("format", formatTable, "output format: table, csv, json or xlsx")
	f.String("output", "", "output file path (default: stdout)")
	f.Bool("save", false, "record the query in the history store")
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("recommend"); err != nil {
		return err
	}
	if err := scorer.ValidateConfig(cfg.Recommend); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "recommend"))

	modeFlag, _ := cmd.Flags().GetString("mode")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	save, _ := cmd.Flags().GetBool("save")

	mode, err := model.ParseQueryMode(modeFlag)
	if err != nil {
		monitoring.RecordInvalidInput()
		return eris.Wrap(err, "recommend: --mode")
	}
	if err := checkFormat(format, outputPath); err != nil {
		return err
	}

	req, desc := buildRequest(cmd.Flags(), cfg.Recommend)
	stderr := cmd.ErrOrStderr()
	if desc != nil {
		printDescription(stderr, *desc)
	}

	pref, err := parseRequest(req, mode)
	if err != nil {
		monitoring.RecordInvalidInput()
		return eris.Wrap(err, "recommend")
	}

	st, err := initStore(ctx, cfg, storeNeedFor(needsStore(cfg, save)))
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close() //nolint:errcheck
	}

	cat, err := loadCatalog(ctx, cfg, st)
	if err != nil {
		return err
	}
	monitoring.SetCatalogSize(cat.Len())

	log.Info("running query",
		zap.String("mode", string(mode)),
		zap.String("origin", string(pref.Origin)),
		zap.Int("max_minutes", pref.MaxMinutes),
		zap.Int("skipped", pref.SkippedCount()),
	)

	start := time.Now()
	out, err := scorer.NewEngine(cfg.Recommend).Recommend(ctx, cat, pref, mode)
	if err != nil {
		return eris.Wrap(err, "recommend")
	}
	monitoring.RecordQuery(string(mode), time.Since(start), out.FellBack, out.Shortfall())

	if err := writeOutput(cmd.OutOrStdout(), outputPath, func(w io.Writer) error {
		return writeOutcome(w, out, format, pref.Explain)
	}); err != nil {
		return err
	}
	printMatchSummary(stderr, out, pref, cfg.Recommend.SkipWarning)

	if save {
		body, err := json.Marshal(req)
		if err != nil {
			return eris.Wrap(err, "recommend: encode request")
		}
		rec := out.Record(pref, body)
		if err := st.RecordQuery(ctx, rec); err != nil {
			return eris.Wrap(err, "recommend: save")
		}
		_, _ = fmt.Fprintf(stderr, "Saved query %s to %s\n", rec.ID, st.Name())
	}

	return nil
}

// buildRequest assembles a request from flags, filling unset values from the
// recommend config. With --describe, described values replace attributes
// whose flags were not set explicitly.
func buildRequest(flags *pflag.FlagSet, rc config.RecommendConfig) (intake.WeightedRequest, *intake.Description) {
	top, _ := flags.GetInt("top")
	if top <= 0 {
		top = rc.DefaultTopN
	}
	explain, _ := flags.GetString("explain")
	if explain == "" {
		explain = rc.ExplainMode
	}

	req := intake.NewWeightedRequest(top, model.ExplainMode(explain))
	req.Origin, _ = flags.GetString("origin")
	req.MaxMinutes, _ = flags.GetInt("max-minutes")

	attrs := []*string{
		&req.WorkType, &req.OutletPref, &req.VibePref,
		&req.SeatingPref, &req.PricePref, &req.OpenLate,
	}
	for i, a := range attributeFlags {
		*attrs[i], _ = flags.GetString(a.flag)
	}

	weights := []struct {
		flag string
		dst  *int
	}{
		{"travel-weight", &req.TravelWeight},
		{"work-weight", &req.WorkWeight},
		{"outlet-weight", &req.OutletWeight},
		{"vibe-weight", &req.VibeWeight},
		{"seating-weight", &req.SeatingWeight},
		{"price-weight", &req.PriceWeight},
		{"late-weight", &req.LateWeight},
	}
	for _, w := range weights {
		*w.dst, _ = flags.GetInt(w.flag)
	}

	text, _ := flags.GetString("describe")
	if text == "" {
		return req, nil
	}

	desc := intake.Describe(text)
	keep := make(map[string]bool, len(attributeFlags))
	for _, a := range attributeFlags {
		keep[a.field] = flags.Changed(a.flag)
	}
	desc.Apply(&req.StrictRequest, keep)
	return req, &desc
}

// parseRequest validates req for mode. Strict queries ignore weights; auto
// queries need them for the fallback.
func parseRequest(req intake.WeightedRequest, mode model.QueryMode) (model.Preference, error) {
	if mode == model.ModeStrict {
		return req.StrictRequest.Parse()
	}
	return req.Parse()
}

func printDescription(w io.Writer, d intake.Description) {
	_, _ = fmt.Fprintln(w, "Understood from your description:")
	fields := d.Fields()
	for _, a := range attributeFlags {
		_, _ = fmt.Fprintf(w, "  %-13s %s\n", a.field, fields[a.field])
	}
	if d.NeedsGuidance() {
		_, _ = fmt.Fprintln(w, "Most preferences could not be read from the description. "+
			"Try mentioning work style, outlets, vibe, seating, price or late hours, or set them with flags.")
	}
}

// printMatchSummary reports how each mode fared and warns about short or
// under-specified answers.
func printMatchSummary(w io.Writer, out *scorer.Outcome, pref model.Preference, skipWarning int) {
	_, _ = fmt.Fprintln(w, "\nMatch Summary:")
	if out.Requested != model.ModeWeighted {
		_, _ = fmt.Fprintf(w, "  Strict mode found: %d match(es)\n", out.StrictCount)
	}
	if out.Ranking != nil {
		_, _ = fmt.Fprintf(w, "  Weighted mode found: %d match(es)\n", len(out.Ranking.Results))
	}
	if out.FellBack {
		_, _ = fmt.Fprintln(w, "  No exact match; showing weighted recommendations instead.")
	}
	if out.Shortfall() {
		_, _ = fmt.Fprintf(w, "Only %d result(s) matched your preferences (requested %d).\n",
			len(out.Ranking.Results), out.Ranking.Requested)
	}
	if skipWarning > 0 && pref.SkippedCount() >= skipWarning {
		_, _ = fmt.Fprintf(w, "Warning: %d preferences were skipped. Try giving more preferences for better matches.\n",
			pref.SkippedCount())
	}
}
