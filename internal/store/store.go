// Package store persists catalog records and answered-query history.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/studyspot-cli/internal/config"
	"github.com/sells-group/studyspot-cli/internal/model"
)

// QueryFilter specifies criteria for listing recorded queries.
type QueryFilter struct {
	Mode   model.QueryMode `json:"mode,omitempty"`
	Origin model.Origin    `json:"origin,omitempty"`
	Since  time.Time       `json:"since,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// QueryStats aggregates recorded queries over a window.
type QueryStats struct {
	Total    int `json:"total"`
	Strict   int `json:"strict"`
	Weighted int `json:"weighted"`
	Auto     int `json:"auto"`
	FellBack int `json:"fell_back"`
	Empty    int `json:"empty"`
}

// Store defines the persistence interface. Every Store is also a catalog
// source: Name and Load return the persisted spots in insertion order.
type Store interface {
	Name() string
	Load(ctx context.Context) ([]model.StudySpot, error)

	// Spots
	ReplaceSpots(ctx context.Context, spots []model.StudySpot) error
	UpsertSpots(ctx context.Context, spots []model.StudySpot) (int64, error)
	CountSpots(ctx context.Context) (int, error)

	// Query history
	RecordQuery(ctx context.Context, rec *model.QueryRecord) error
	GetQuery(ctx context.Context, id string) (*model.QueryRecord, error)
	ListQueries(ctx context.Context, filter QueryFilter) ([]model.QueryRecord, error)
	QueryStats(ctx context.Context, since time.Time) (*QueryStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and runs migrations. It returns
// (nil, nil) when the driver is "none".
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case config.DriverNone, "":
		return nil, nil
	case config.DriverSQLite:
		st, err = NewSQLite(cfg.DatabaseURL)
	case config.DriverPostgres:
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// spotColumns are the persisted spot fields in COPY/INSERT order.
var spotColumns = []string{"pos", "name", "link", "travel_minutes", "work_types", "outlets", "vibe", "seating", "price", "open_late"}

// spotJSON holds the JSON-encoded multi-valued fields of a spot.
type spotJSON struct {
	travel, work, seating []byte
}

func encodeSpot(s model.StudySpot) (spotJSON, error) {
	var (
		out spotJSON
		err error
	)
	if out.travel, err = json.Marshal(s.TravelMinutes); err != nil {
		return out, eris.Wrapf(err, "store: marshal travel_minutes for %s", s.Name)
	}
	if out.work, err = json.Marshal(s.WorkTypes); err != nil {
		return out, eris.Wrapf(err, "store: marshal work_types for %s", s.Name)
	}
	if out.seating, err = json.Marshal(s.Seating); err != nil {
		return out, eris.Wrapf(err, "store: marshal seating for %s", s.Name)
	}
	return out, nil
}

func decodeSpot(s *model.StudySpot, enc spotJSON) error {
	if err := json.Unmarshal(enc.travel, &s.TravelMinutes); err != nil {
		return eris.Wrapf(err, "store: unmarshal travel_minutes for %s", s.Name)
	}
	if err := json.Unmarshal(enc.work, &s.WorkTypes); err != nil {
		return eris.Wrapf(err, "store: unmarshal work_types for %s", s.Name)
	}
	if err := json.Unmarshal(enc.seating, &s.Seating); err != nil {
		return eris.Wrapf(err, "store: unmarshal seating for %s", s.Name)
	}
	return nil
}

func validateSpots(spots []model.StudySpot) error {
	for _, s := range spots {
		if err := s.Validate(); err != nil {
			return eris.Wrap(err, "store: invalid spot")
		}
	}
	return nil
}

// prepareRecord fills the generated fields of a query record.
func prepareRecord(rec *model.QueryRecord, newID func() string) error {
	if rec == nil {
		return eris.New("store: nil query record")
	}
	if _, err := model.ParseQueryMode(string(rec.Mode)); err != nil {
		return eris.Wrap(err, "store: record query")
	}
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Request == nil {
		rec.Request = []byte("{}")
	}
	return nil
}

func listLimit(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
