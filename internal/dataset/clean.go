package dataset

import "strings"

// droppedColumns are the training-time irrelevant columns every raw census
// extract carries. The transform is strict: all of them must be present.
var droppedColumns = []string{
	"class",
	"education_institute",
	"unemployment_reason",
	"is_labor_union",
	"occupation_code_main",
	"under_18_family",
	"veterans_admin_questionnaire",
	"migration_code_change_in_msa",
	"migration_prev_sunbelt",
	"migration_code_move_within_reg",
	"migration_code_change_in_reg",
	"residence_1_year_ago",
	"old_residence_reg",
	"old_residence_state",
}

const (
	missingSentinel  = "?"
	ethnicityColumn  = "is_hispanic"
	ethnicitySentinel = "NA"
	ethnicityRecode  = "All other"
)

// Clean applies the uniform cleaning transform to a chunk: drops the known
// irrelevant columns, trims whitespace on every cell, normalizes the "?"
// sentinel to the missing marker, and recodes "NA" to "All other" in the
// hispanic-ethnicity column only. The input chunk is not modified.
func Clean(c *Chunk) (*Chunk, error) {
	drop := make(map[string]bool, len(droppedColumns))
	for _, col := range droppedColumns {
		drop[col] = false
	}
	for _, col := range c.Header {
		if _, ok := drop[col]; ok {
			drop[col] = true
		}
	}

	var missing []string
	for _, col := range droppedColumns {
		if !drop[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	keep := make([]int, 0, len(c.Header))
	header := make([]string, 0, len(c.Header))
	for i, col := range c.Header {
		if _, dropped := drop[col]; dropped {
			continue
		}
		keep = append(keep, i)
		header = append(header, col)
	}

	cleaned := &Chunk{Header: header, Page: c.Page}
	for _, record := range c.Records {
		row := make([]string, len(keep))
		for j, idx := range keep {
			var cell string
			if idx < len(record) {
				cell = strings.TrimSpace(record[idx])
			}
			if cell == missingSentinel {
				cell = ""
			}
			if header[j] == ethnicityColumn && cell == ethnicitySentinel {
				cell = ethnicityRecode
			}
			row[j] = cell
		}
		cleaned.Records = append(cleaned.Records, row)
	}
	return cleaned, nil
}
