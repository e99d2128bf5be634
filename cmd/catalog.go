package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/studyspot-cli/internal/catalog"
	"github.com/sells-group/studyspot-cli/internal/model"
	"github.com/sells-group/studyspot-cli/internal/store"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and manage the study spot catalog",
}

// -- catalog list --

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("catalog"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg, storeNeedFor(needsStore(cfg, false)))
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

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "yaml":
			data, err := catalog.EncodeYAML(cat.Spots())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return eris.Wrap(err, "catalog list")
		case formatTable:
			formatSpotList(cmd.OutOrStdout(), cat.Spots())
			return nil
		default:
			return eris.Errorf("catalog list: --format must be table or yaml (got %q)", format)
		}
	},
}

// -- catalog validate --

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a catalog file without importing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := readCatalogFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d study spots OK\n", args[0], cat.Len())
		return nil
	},
}

// -- catalog import --

var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a catalog file into the configured store",
	Long: `Import study spots from a YAML, JSON or XLSX file into the store.

By default spots are upserted by name: existing spots are updated in place
and new ones are appended. With --replace the stored catalog is replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		cat, err := readCatalogFile(ctx, args[0])
		if err != nil {
			return err
		}

		st, err := initStore(ctx, cfg, storeRequired)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		replace, _ := cmd.Flags().GetBool("replace")
		n, err := importSpots(ctx, st, cat.Spots(), replace)
		if err != nil {
			return err
		}

		zap.L().Info("catalog import complete",
			zap.String("file", args[0]),
			zap.String("store", st.Name()),
			zap.Int64("written", n),
			zap.Bool("replace", replace),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d study spots into %s\n", n, st.Name())
		return nil
	},
}

func init() {
	catalogListCmd.Flags().String("format", formatTable, "output format: table or yaml")
	catalogImportCmd.Flags().Bool("replace", false, "replace the stored catalog instead of upserting")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogImportCmd)
	rootCmd.AddCommand(catalogCmd)
}

// readCatalogFile loads and validates a catalog file without retries.
func readCatalogFile(ctx context.Context, path string) (*catalog.Catalog, error) {
	spots, err := catalog.FileSource{Path: path}.Load(ctx)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.New(spots)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: validate %s", path)
	}
	return cat, nil
}

// importSpots writes spots to st and returns how many were written.
func importSpots(ctx context.Context, st store.Store, spots []model.StudySpot, replace bool) (int64, error) {
	if replace {
		if err := st.ReplaceSpots(ctx, spots); err != nil {
			return 0, eris.Wrap(err, "catalog import: replace")
		}
		return int64(len(spots)), nil
	}
	n, err := st.UpsertSpots(ctx, spots)
	if err != nil {
		return 0, eris.Wrap(err, "catalog import: upsert")
	}
	return n, nil
}

// formatSpotList writes a tabular list of spots to out.
func formatSpotList(out io.Writer, spots []model.StudySpot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSINSEOL\tDONGDAEMUN\tWORK\tOUTLETS\tVIBE\tSEATING\tPRICE\tLATE")
	_, _ = fmt.Fprintln(w, "----\t-------\t----------\t----\t-------\t----\t-------\t-----\t----")

	for _, s := range spots {
		work := make([]string, len(s.WorkTypes))
		for i, wt := range s.WorkTypes {
			work[i] = string(wt)
		}
		seating := make([]string, len(s.Seating))
		for i, st := range s.Seating {
			seating[i] = string(st)
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(s.Name, 34),
			s.TravelMinutes[model.OriginSinseol],
			s.TravelMinutes[model.OriginDongdaemun],
			strings.Join(work, ","),
			s.Outlets,
			s.Vibe,
			strings.Join(seating, ","),
			s.Price,
			model.Want(s.OpenLate).String(),
		)
	}
	_ = w.Flush()
}
