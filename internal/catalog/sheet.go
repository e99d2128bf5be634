package catalog

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/studyspot-cli/internal/model"
)

// Spreadsheet columns. Travel times use one travel_<origin> column per
// origin; multi-valued cells separate values with commas or semicolons.
const (
	colName     = "name"
	colLink     = "link"
	colWork     = "work_types"
	colOutlets  = "outlets"
	colVibe     = "vibe"
	colSeating  = "seating"
	colPrice    = "price"
	colOpenLate = "open_late"
)

func travelColumn(o model.Origin) string { return "travel_" + string(o) }

// DecodeXLSX reads spots from the first sheet of a workbook. The first row is
// a header naming the columns; blank rows are skipped.
func DecodeXLSX(data []byte) ([]model.StudySpot, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("catalog: xlsx has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("catalog: xlsx sheet is empty")
	}

	cols, err := headerIndex(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var (
		spots []model.StudySpot
		errs  []string
	)
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if blank(cells) {
			continue
		}
		s, err := spotFromRow(cells, cols)
		if err != nil {
			errs = append(errs, "row "+strconv.Itoa(i+2)+": "+err.Error())
			continue
		}
		spots = append(spots, s)
	}
	if len(errs) > 0 {
		return nil, eris.Errorf("catalog: parse xlsx: %s", strings.Join(errs, "; "))
	}
	return spots, nil
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	required := []string{colName, colLink, colWork, colOutlets, colVibe, colSeating, colPrice, colOpenLate}
	for _, o := range model.Origins {
		required = append(required, travelColumn(o))
	}
	var missing []string
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("catalog: xlsx header missing columns %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func spotFromRow(cells []string, cols map[string]int) (model.StudySpot, error) {
	get := func(col string) string {
		i := cols[col]
		if i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}
	enum := func(col string) string { return strings.ToLower(get(col)) }

	s := model.StudySpot{
		Name:          get(colName),
		Link:          get(colLink),
		TravelMinutes: make(map[model.Origin]int, len(model.Origins)),
		Outlets:       model.OutletLevel(enum(colOutlets)),
		Vibe:          model.Vibe(enum(colVibe)),
		Price:         model.PriceTier(enum(colPrice)),
	}

	for _, o := range model.Origins {
		raw := get(travelColumn(o))
		m, err := strconv.Atoi(raw)
		if err != nil {
			return s, eris.Errorf("%s %q is not a whole number of minutes", travelColumn(o), raw)
		}
		s.TravelMinutes[o] = m
	}
	for _, v := range splitList(enum(colWork)) {
		s.WorkTypes = append(s.WorkTypes, model.WorkType(v))
	}
	for _, v := range splitList(enum(colSeating)) {
		s.Seating = append(s.Seating, model.Seating(v))
	}

	late, err := model.ParseYesNo(get(colOpenLate))
	if err != nil {
		return s, eris.Errorf("open_late %q must be yes or no", get(colOpenLate))
	}
	s.OpenLate = late
	return s, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
