// Package catalog loads and holds the fixed table of study spots. A Catalog
// is read-only once built and safe for concurrent use.
package catalog

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/studyspot-cli/internal/model"
	"github.com/sells-group/studyspot-cli/internal/resilience"
)

// ErrCatalogUnavailable is returned when a catalog cannot be loaded or fails
// validation. No query can run without one.
var ErrCatalogUnavailable = eris.New("catalog unavailable")

// Catalog is an ordered, validated set of study spots. Order is the order
// the source produced and is the tie-break order for ranking.
type Catalog struct {
	source string
	spots  []model.StudySpot
	byName map[string]int
}

// New validates spots and builds a catalog from deep copies of them.
func New(spots []model.StudySpot) (*Catalog, error) {
	if len(spots) == 0 {
		return nil, eris.Wrap(ErrCatalogUnavailable, "catalog: no study spots")
	}

	c := &Catalog{
		spots:  make([]model.StudySpot, 0, len(spots)),
		byName: make(map[string]int, len(spots)),
	}

	var errs []string
	// record index in spots, by name key
	firstSeen := make(map[string]int, len(spots))
	for i, s := range spots {
		if err := s.Validate(); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		key := nameKey(s.Name)
		if prev, dup := firstSeen[key]; dup {
			errs = append(errs, "duplicate name "+quote(s.Name)+" at records "+itoa(prev)+" and "+itoa(i))
			continue
		}
		firstSeen[key] = i
		c.byName[key] = len(c.spots)
		c.spots = append(c.spots, s.Clone())
	}

	if len(errs) > 0 {
		return nil, eris.Wrapf(ErrCatalogUnavailable, "catalog: %s", strings.Join(errs, "; "))
	}
	return c, nil
}

// Load reads spots from src and builds a catalog. Transient source failures
// are retried with the default policy; pass WithRetry to change it.
func Load(ctx context.Context, src Source, opts ...LoadOption) (*Catalog, error) {
	lo := loadOptions{retry: resilience.DefaultRetryConfig()}
	for _, opt := range opts {
		opt(&lo)
	}
	if lo.retry.OnRetry == nil {
		lo.retry.OnRetry = resilience.RetryLogger(src.Name(), "load_catalog")
	}

	spots, err := resilience.DoVal(ctx, lo.retry, src.Load)
	if err != nil {
		return nil, eris.Wrapf(ErrCatalogUnavailable, "catalog: load from %s: %v", src.Name(), err)
	}

	c, err := New(spots)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: build from %s", src.Name())
	}
	c.source = src.Name()

	zap.L().Info("catalog: loaded",
		zap.String("source", c.source),
		zap.Int("spots", c.Len()),
	)
	return c, nil
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	retry resilience.RetryConfig
}

// WithRetry sets the retry policy for the source read.
func WithRetry(cfg resilience.RetryConfig) LoadOption {
	return func(o *loadOptions) { o.retry = cfg }
}

// Source names where the catalog came from. Empty for catalogs built with New.
func (c *Catalog) Source() string { return c.source }

// Len returns the number of spots.
func (c *Catalog) Len() int { return len(c.spots) }

// At returns a copy of the spot at catalog position i. It panics when i is
// out of range, like slice indexing.
func (c *Catalog) At(i int) model.StudySpot { return c.spots[i].Clone() }

// Spots returns copies of every spot in catalog order.
func (c *Catalog) Spots() []model.StudySpot {
	out := make([]model.StudySpot, len(c.spots))
	for i := range c.spots {
		out[i] = c.spots[i].Clone()
	}
	return out
}

// Lookup finds a spot by name, ignoring case and surrounding space.
func (c *Catalog) Lookup(name string) (model.StudySpot, bool) {
	i, ok := c.byName[nameKey(name)]
	if !ok {
		return model.StudySpot{}, false
	}
	return c.spots[i].Clone(), true
}

// Link returns the map link for the referenced spot.
func (c *Catalog) Link(ref model.SpotRef) string {
	if ref.Index < 0 || ref.Index >= len(c.spots) {
		return ""
	}
	return c.spots[ref.Index].Link
}

func nameKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }
