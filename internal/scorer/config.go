// Package scorer answers study-spot queries. Strict mode keeps only spots
// that satisfy every stated preference; weighted mode scores every spot by
// the weights of the preferences it meets, explains each dimension, and
// ranks the results.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/studyspot-cli/internal/config"
	"github.com/sells-group/studyspot-cli/internal/model"
)

// DefaultRecommendConfig returns a config.RecommendConfig with the same
// values config.Load defaults to.
func DefaultRecommendConfig() config.RecommendConfig {
	return config.RecommendConfig{
		DefaultTopN:  3,
		ExplainMode:  string(model.ExplainLong),
		Workers:      4,
		AutoFallback: true,
		SkipWarning:  3,
	}
}

// ValidateConfig checks that a RecommendConfig is internally consistent.
func ValidateConfig(c config.RecommendConfig) error {
	var errs []string

	if c.Workers < 1 {
		errs = append(errs, "workers must be >= 1")
	}
	if c.DefaultTopN < 1 {
		errs = append(errs, "default_top_n must be >= 1")
	}
	if !model.ExplainMode(c.ExplainMode).Valid() {
		errs = append(errs, fmt.Sprintf("explain_mode %q must be short or long", c.ExplainMode))
	}
	if c.SkipWarning < 0 || c.SkipWarning > model.DimensionCount {
		errs = append(errs, fmt.Sprintf("skip_warning must be between 0 and %d", model.DimensionCount))
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
