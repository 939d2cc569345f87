// Package features defines the feature schema the income classifiers were
// trained on and builds validated feature records from raw input.
//
// A record is only ever constructed through FromForm or FromRow, so any
// record reaching the inference engine is guaranteed to carry the full
// ordered schema. Unknown or missing keys are rejected at this boundary
// rather than deferred to inference-time failure.
package features

// Schema lists the feature columns in the exact order the models expect.
// The order is part of the trained artifact contract and must not change.
var Schema = []string{
	"age",
	"gender",
	"education",
	"marital_status",
	"race",
	"is_hispanic",
	"employment_commitment",
	"employment_stat",
	"wage_per_hour",
	"working_week_per_year",
	"industry_code",
	"industry_code_main",
	"occupation_code",
	"total_employed",
	"household_stat",
	"household_summary",
	"vet_benefit",
	"tax_status",
	"gains",
	"losses",
	"stocks_status",
	"citizenship",
	"mig_year",
	"country_of_birth_own",
	"country_of_birth_father",
	"country_of_birth_mother",
	"importance_of_record",
}

// IDColumn is the identifier column bulk datasets carry alongside the schema.
// It is retained in bulk history output but never fed to a model.
const IDColumn = "ID"

// numericField describes the accepted range for a numeric feature.
// Fields without an entry are categorical and kept as raw strings.
type numericField struct {
	min, max float64
	bounded  bool // max is enforced only when bounded
	integer  bool
}

var numericFields = map[string]numericField{
	"age":                   {min: 0, integer: true},
	"employment_stat":       {min: 0, max: 2, bounded: true, integer: true},
	"wage_per_hour":         {min: 0, integer: true},
	"working_week_per_year": {min: 0, integer: true},
	"industry_code":         {min: 0, integer: true},
	"occupation_code":       {min: 0, integer: true},
	"total_employed":        {min: 0, integer: true},
	"vet_benefit":           {min: 0, max: 2, bounded: true, integer: true},
	"gains":                 {min: 0, integer: true},
	"losses":                {min: 0, integer: true},
	"stocks_status":         {min: 0, integer: true},
	"mig_year":              {min: 94, max: 95, bounded: true, integer: true},
	"importance_of_record":  {min: 0},
}

// IsNumeric reports whether col is a numeric feature column.
func IsNumeric(col string) bool {
	_, ok := numericFields[col]
	return ok
}
