package features

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Missing marks a value that was absent or recorded as the "?" sentinel in
// the source data. It maps to -1 in the numeric vector fed to a model.
const Missing = ""

// Record is a validated feature record keyed by the schema columns.
// It always carries every column in Schema and nothing else.
type Record struct {
	vals map[string]string
}

// Get returns the raw value stored for col.
func (r Record) Get(col string) string {
	return r.vals[col]
}

// Values returns the raw values in schema order, as written to history logs.
func (r Record) Values() []string {
	out := make([]string, len(Schema))
	for i, col := range Schema {
		out[i] = r.vals[col]
	}
	return out
}

// Map returns a copy of the record keyed by column name.
func (r Record) Map() map[string]string {
	out := make(map[string]string, len(r.vals))
	for k, v := range r.vals {
		out[k] = v
	}
	return out
}

// MarshalJSON renders the record as a column-keyed object.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.vals)
}

// UnmarshalJSON restores a record from its column-keyed form. It does not
// re-validate; use FromForm or FromRow for untrusted input.
func (r *Record) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.vals)
}

// FromForm builds a Record from submitted form values. Every schema key must
// be present and type-check; numeric fields are range-checked and extra keys
// are rejected. All problems are reported together in a ValidationError.
func FromForm(values map[string]any) (Record, error) {
	var issues []FieldIssue
	vals := make(map[string]string, len(Schema))

	for _, col := range Schema {
		raw, ok := values[col]
		if !ok {
			issues = append(issues, FieldIssue{Field: col, Reason: "missing"})
			continue
		}

		if nf, numeric := numericFields[col]; numeric {
			v, err := toFloat(raw)
			if err != nil {
				issues = append(issues, FieldIssue{Field: col, Reason: "not a number"})
				continue
			}
			if reason := nf.check(v); reason != "" {
				issues = append(issues, FieldIssue{Field: col, Reason: reason})
				continue
			}
			vals[col] = strconv.FormatFloat(v, 'f', -1, 64)
			continue
		}

		s, ok := raw.(string)
		if !ok {
			issues = append(issues, FieldIssue{Field: col, Reason: "not a string"})
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			issues = append(issues, FieldIssue{Field: col, Reason: "empty"})
			continue
		}
		vals[col] = s
	}

	for key := range values {
		if !schemaHas(key) {
			issues = append(issues, FieldIssue{Field: key, Reason: "unknown field"})
		}
	}

	if len(issues) > 0 {
		return Record{}, &ValidationError{Issues: issues}
	}
	return Record{vals: vals}, nil
}

// FromRow builds a Record from a dataset row. The row's column set must be a
// superset of expected; extra columns such as the bulk ID are ignored. Values
// are taken as-is, the cleaning transform having already run upstream.
func FromRow(row map[string]string, expected []string) (Record, error) {
	var missing []string
	for _, col := range expected {
		if _, ok := row[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Record{}, &SchemaMismatchError{Missing: missing}
	}

	vals := make(map[string]string, len(Schema))
	for _, col := range Schema {
		vals[col] = strings.TrimSpace(row[col])
	}
	return Record{vals: vals}, nil
}

// Vector encodes the record as an ordered numeric vector using the model's
// categorical vocabularies. Missing values and categories outside the
// vocabulary encode as -1.
func (r Record) Vector(vocab map[string][]string) ([]float64, error) {
	vec := make([]float64, len(Schema))
	for i, col := range Schema {
		val := r.vals[col]
		if val == Missing {
			vec[i] = -1
			continue
		}
		if IsNumeric(col) {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: non-numeric value %q", col, val)
			}
			vec[i] = f
			continue
		}
		vec[i] = float64(categoryIndex(vocab[col], val))
	}
	return vec, nil
}

func (nf numericField) check(v float64) string {
	if nf.integer && v != math.Trunc(v) {
		return "must be a whole number"
	}
	if v < nf.min {
		return fmt.Sprintf("must be at least %v", nf.min)
	}
	if nf.bounded && v > nf.max {
		return fmt.Sprintf("must be between %v and %v", nf.min, nf.max)
	}
	return ""
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func schemaHas(col string) bool {
	for _, c := range Schema {
		if c == col {
			return true
		}
	}
	return false
}

func categoryIndex(vocab []string, val string) int {
	for i, v := range vocab {
		if v == val {
			return i
		}
	}
	return -1
}
