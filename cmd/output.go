package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/studyspot-cli/internal/model"
	"github.com/sells-group/studyspot-cli/internal/scorer"
)

// Output formats.
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
	formatXLSX  = "xlsx"
)

// percentBarWidth is the number of cells in the table's match meter.
const percentBarWidth = 10

func checkFormat(format, outputPath string) error {
	switch format {
	case formatTable, formatCSV, formatJSON:
		return nil
	case formatXLSX:
		if outputPath == "" {
			return eris.New("output: --format xlsx needs --output")
		}
		return nil
	default:
		return eris.Errorf("output: --format must be table, csv, json or xlsx (got %q)", format)
	}
}

// writeOutput runs write against the file at path, or stdout when path is
// empty.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "output: create output file %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "output: close %s", path)
}

// writeOutcome renders an answer in the requested format.
func writeOutcome(w io.Writer, out *scorer.Outcome, format string, explain model.ExplainMode) error {
	switch format {
	case formatTable:
		if out.Ranking != nil {
			return writeRankingTable(w, out.Ranking, explain)
		}
		return writeMatchTable(w, out.Matches)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(out), "output: encode json")
	case formatCSV:
		header, rows := outcomeRows(out)
		return writeCSV(w, header, rows)
	case formatXLSX:
		header, rows := outcomeRows(out)
		return writeXLSX(w, header, rows)
	default:
		return eris.Errorf("output: unsupported format %q", format)
	}
}

// outcomeRows flattens an answer into a header and string rows.
func outcomeRows(out *scorer.Outcome) ([]string, [][]string) {
	if out.Ranking == nil {
		header := []string{"rank", "name", "link"}
		rows := make([][]string, 0, len(out.Matches))
		for i, m := range out.Matches {
			rows = append(rows, []string{strconv.Itoa(i + 1), m.Name, m.Link})
		}
		return header, rows
	}

	header := []string{"rank", "name", "score", "max_score", "match_percent", "match_bar", "summary", "explanation", "link"}
	rows := make([][]string, 0, len(out.Ranking.Results))
	for _, r := range out.Ranking.Results {
		rows = append(rows, []string{
			strconv.Itoa(r.Rank),
			r.Name,
			strconv.Itoa(r.Score),
			strconv.Itoa(r.MaxScore),
			strconv.Itoa(r.MatchPercent),
			r.MatchBar,
			r.Summary,
			r.Explanation,
			r.Link,
		})
	}
	return header, rows
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "output: write CSV header")
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "output: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "output: flush CSV")
}

func writeXLSX(w io.Writer, header []string, rows [][]string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Study Spots")
	if err != nil {
		return eris.Wrap(err, "output: add sheet")
	}
	for _, data := range append([][]string{header}, rows...) {
		row := sheet.AddRow()
		for _, v := range data {
			row.AddCell().SetString(v)
		}
	}
	return eris.Wrap(f.Write(w), "output: write xlsx")
}

func writeMatchTable(w io.Writer, matches []model.Match) error {
	if len(matches) == 0 {
		_, err := fmt.Fprintln(w, "No study spots matched every preference.")
		return eris.Wrap(err, "output: write table")
	}
	if _, err := fmt.Fprintf(w, "%-4s %-36s %s\n", "#", "Name", "Link"); err != nil {
		return eris.Wrap(err, "output: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 80)); err != nil {
		return eris.Wrap(err, "output: write table separator")
	}
	for i, m := range matches {
		if _, err := fmt.Fprintf(w, "%-4d %-36s %s\n", i+1, truncate(m.Name, 36), m.Link); err != nil {
			return eris.Wrap(err, "output: write table row")
		}
	}
	return nil
}

func writeRankingTable(w io.Writer, r *model.Ranking, explain model.ExplainMode) error {
	if len(r.Results) == 0 {
		_, err := fmt.Fprintln(w, "No study spots to rank.")
		return eris.Wrap(err, "output: write table")
	}
	for _, rec := range r.Results {
		lines := []string{
			fmt.Sprintf("#%d %s", rec.Rank, rec.Name),
			fmt.Sprintf("   Score:  %d / %d", rec.Score, rec.MaxScore),
			fmt.Sprintf("   Match:  %s %3d%%  %s", percentBar(rec.MatchPercent), rec.MatchPercent, rec.MatchBar),
			"   " + rec.Summary,
		}
		for _, e := range scorer.ExplainLines(rec.Verdicts, explain) {
			lines = append(lines, "     "+e)
		}
		if rec.Link != "" {
			lines = append(lines, "   Map:    "+rec.Link)
		}
		if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")+"\n"); err != nil {
			return eris.Wrap(err, "output: write table row")
		}
	}
	return nil
}

// percentBar draws pct as a fixed-width meter of filled and empty cells.
func percentBar(pct int) string {
	filled := max(0, min(percentBarWidth, pct*percentBarWidth/100))
	return strings.Repeat("█", filled) + strings.Repeat("░", percentBarWidth-filled)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
