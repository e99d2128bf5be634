package scorer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/studyspot-cli/internal/catalog"
	"github.com/sells-group/studyspot-cli/internal/config"
	"github.com/sells-group/studyspot-cli/internal/model"
)

// Engine answers queries against a catalog. It holds no per-query state and
// is safe for concurrent use.
type Engine struct {
	cfg config.RecommendConfig
}

// NewEngine creates an Engine. A non-positive worker count scores on one
// goroutine.
func NewEngine(cfg config.RecommendConfig) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{cfg: cfg}
}

// Outcome is the answer to a Recommend call. Mode is the mode that produced
// the results; it differs from Requested only when auto mode fell back.
type Outcome struct {
	Requested   model.QueryMode `json:"requested_mode"`
	Mode        model.QueryMode `json:"mode"`
	Matches     []model.Match   `json:"matches,omitempty"`
	Ranking     *model.Ranking  `json:"ranking,omitempty"`
	StrictCount int             `json:"strict_count"`
	FellBack    bool            `json:"fell_back"`
}

// Count returns the number of results in whichever mode answered.
func (o *Outcome) Count() int {
	if o.Ranking != nil {
		return len(o.Ranking.Results)
	}
	return len(o.Matches)
}

// TopName returns the name of the first result, or "" when there is none.
func (o *Outcome) TopName() string {
	if o.Ranking != nil && len(o.Ranking.Results) > 0 {
		return o.Ranking.Results[0].Name
	}
	if len(o.Matches) > 0 {
		return o.Matches[0].Name
	}
	return ""
}

// Shortfall reports whether a weighted answer returned fewer results than
// requested.
func (o *Outcome) Shortfall() bool {
	return o.Ranking != nil && o.Ranking.Shortfall
}

// Record builds the history entry for this outcome. request is the raw
// request as JSON.
func (o *Outcome) Record(pref model.Preference, request []byte) *model.QueryRecord {
	return &model.QueryRecord{
		Mode:        o.Requested,
		Origin:      pref.Origin,
		MaxMinutes:  pref.MaxMinutes,
		Request:     request,
		ResultCount: o.Count(),
		FellBack:    o.FellBack,
		TopName:     o.TopName(),
	}
}

// Strict returns every spot that satisfies all stated preferences, in catalog
// order. No match yields an empty slice and a nil error.
func (e *Engine) Strict(ctx context.Context, cat *catalog.Catalog, pref model.Preference) ([]model.Match, error) {
	if err := pref.ValidateStrict(); err != nil {
		return nil, err
	}

	matches := []model.Match{}
	for i := 0; i < cat.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "scorer: strict match")
		}
		s := cat.At(i)
		if MatchesStrict(pref, s) {
			matches = append(matches, model.Match{Name: s.Name, Link: s.Link})
		}
	}

	zap.L().Debug("scorer: strict match complete",
		zap.String("origin", string(pref.Origin)),
		zap.Int("candidates", cat.Len()),
		zap.Int("matched", len(matches)),
	)

	return matches, nil
}

// Weighted scores every spot, ranks by score, and returns the top pref.TopN.
func (e *Engine) Weighted(ctx context.Context, cat *catalog.Catalog, pref model.Preference) (*model.Ranking, error) {
	if err := pref.ValidateWeighted(); err != nil {
		return nil, err
	}

	scored, err := e.scoreAll(ctx, cat, pref)
	if err != nil {
		return nil, err
	}
	ranking := Rank(cat, pref, scored)

	zap.L().Debug("scorer: weighted ranking complete",
		zap.String("origin", string(pref.Origin)),
		zap.Int("candidates", len(scored)),
		zap.Int("returned", len(ranking.Results)),
		zap.Int("max_score", ranking.MaxScore),
		zap.Bool("shortfall", ranking.Shortfall),
	)

	return ranking, nil
}

// scoreAll scores each record on a bounded pool of goroutines. Results land
// at their catalog index so ordering does not depend on scheduling.
func (e *Engine) scoreAll(ctx context.Context, cat *catalog.Catalog, pref model.Preference) ([]model.ScoredResult, error) {
	results := make([]model.ScoredResult, cat.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = ScoreSpot(pref, i, cat.At(i))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scorer: score spots")
	}

	return results, nil
}

// Recommend answers a query in the given mode. Auto mode runs strict first
// and, when nothing matches and auto fallback is enabled, answers with a
// weighted ranking instead.
func (e *Engine) Recommend(ctx context.Context, cat *catalog.Catalog, pref model.Preference, mode model.QueryMode) (*Outcome, error) {
	out := &Outcome{Requested: mode, Mode: mode}

	switch mode {
	case model.ModeStrict:
		matches, err := e.Strict(ctx, cat, pref)
		if err != nil {
			return nil, err
		}
		out.Matches = matches
		out.StrictCount = len(matches)

	case model.ModeWeighted:
		ranking, err := e.Weighted(ctx, cat, pref)
		if err != nil {
			return nil, err
		}
		out.Ranking = ranking

	case model.ModeAuto:
		matches, err := e.Strict(ctx, cat, pref)
		if err != nil {
			return nil, err
		}
		out.StrictCount = len(matches)
		if len(matches) > 0 || !e.cfg.AutoFallback {
			out.Mode = model.ModeStrict
			out.Matches = matches
			break
		}

		ranking, err := e.Weighted(ctx, cat, pref)
		if err != nil {
			return nil, err
		}
		out.Mode = model.ModeWeighted
		out.Ranking = ranking
		out.FellBack = true

		zap.L().Info("scorer: no strict match, fell back to weighted",
			zap.String("origin", string(pref.Origin)),
			zap.Int("returned", len(ranking.Results)),
		)

	default:
		return nil, eris.Wrapf(model.ErrInvalidInput, "mode: %q is not one of strict, weighted, auto", mode)
	}

	return out, nil
}
