package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/studyspot-cli/internal/model"
)

// Source produces the raw spot records of a catalog.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]model.StudySpot, error)
}

//go:embed seed.yaml
var seedYAML []byte

type builtinSource struct{}

// Builtin returns the catalog shipped with the binary.
func Builtin() Source { return builtinSource{} }

func (builtinSource) Name() string { return "builtin" }

func (builtinSource) Load(_ context.Context) ([]model.StudySpot, error) {
	spots, err := DecodeYAML(seedYAML)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: decode builtin seed")
	}
	return spots, nil
}

// FileSource reads a catalog from a YAML (.yaml, .yml), JSON (.json) or
// spreadsheet (.xlsx) file.
type FileSource struct {
	Path string
}

// Name implements Source.
func (f FileSource) Name() string { return "file:" + f.Path }

// Load implements Source.
func (f FileSource) Load(_ context.Context) ([]model.StudySpot, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", f.Path)
	}

	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	case ".json":
		return DecodeJSON(data)
	case ".xlsx":
		return DecodeXLSX(data)
	default:
		return nil, eris.Errorf("catalog: unsupported file type %q (want .yaml, .yml, .json or .xlsx)", filepath.Ext(f.Path))
	}
}

type document struct {
	Spots []model.StudySpot `json:"spots" yaml:"spots"`
}

// DecodeYAML parses a catalog document of the form `spots: [...]`.
func DecodeYAML(data []byte) ([]model.StudySpot, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "catalog: parse yaml")
	}
	return doc.Spots, nil
}

// DecodeJSON parses a catalog document of the form {"spots": [...]}.
func DecodeJSON(data []byte) ([]model.StudySpot, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "catalog: parse json")
	}
	return doc.Spots, nil
}

// EncodeYAML writes spots in the document form DecodeYAML reads.
func EncodeYAML(spots []model.StudySpot) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(document{Spots: spots}); err != nil {
		return nil, eris.Wrap(err, "catalog: encode yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, eris.Wrap(err, "catalog: encode yaml")
	}
	return buf.Bytes(), nil
}

func quote(s string) string { return strconv.Quote(s) }

func itoa(i int) string { return strconv.Itoa(i) }
