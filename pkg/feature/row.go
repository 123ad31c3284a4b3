package feature

import (
	"log/slog"
	"slices"
)

const (
	defaultEducationCode = 1
	defaultMarriageCode  = 1
)

// Lookup returns the raw value of a named input field, nil when absent.
type Lookup func(name string) any

// MapLookup reads fields from a decoded JSON object or a CSV record.
func MapLookup(m map[string]any) Lookup {
	return func(name string) any {
		return m[name]
	}
}

// Row is a complete feature row: every one of the fixed feature names and
// nothing else. Rows are immutable once built.
type Row struct {
	values map[string]float64
	// raw categorical codes the dummies were expanded from, nil for encoded rows
	codes map[string]int
}

// Get returns the value of the named feature.
func (r Row) Get(name string) (float64, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Value returns the named feature or 0 when it is not part of the row.
func (r Row) Value(name string) float64 {
	return r.values[name]
}

// Code returns the raw categorical code (EDUCATION or MARRIAGE) the row was
// built from. It reports false for rows built from pre-encoded columns.
func (r Row) Code(field string) (int, bool) {
	c, ok := r.codes[field]
	return c, ok
}

// Len returns the number of features in the row.
func (r Row) Len() int {
	return len(r.values)
}

// Names returns the row's feature names in canonical order.
func (r Row) Names() []string {
	names := make([]string, 0, len(r.values))
	for _, n := range AllFeatures {
		if _, ok := r.values[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// Map returns a copy of the row values.
func (r Row) Map() map[string]float64 {
	m := make(map[string]float64, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// BuildRow maps loosely typed raw fields onto the fixed feature schema.
// It never fails: malformed or missing fields take their defaults.
func BuildRow(lookup Lookup) Row {
	if lookup == nil {
		lookup = func(string) any { return nil }
	}

	values := make(map[string]float64, len(AllFeatures))

	values[FieldAge] = float64(CoerceInt(lookup(FieldAge), 0))
	values[FieldLimit] = CoerceFloat(lookup(FieldLimit), 0)

	// SEX arrives already encoded as 0/1
	values[FieldSex] = float64(CoerceInt(lookup(FieldSex), 0))

	for _, name := range PayStatusFeatures {
		values[name] = float64(CoerceInt(lookup(name), 0))
	}

	for _, name := range concat(BillFeatures, PaymentFeatures) {
		values[name] = CoerceFloat(lookup(name), 0)
	}

	edu := CoerceInt(lookup(FieldEducation), defaultEducationCode)
	oneHot(values, EducationDummies, educationCodes, edu)

	mar := CoerceInt(lookup(FieldMarriage), defaultMarriageCode)
	oneHot(values, MarriageDummies, marriageCodes, mar)

	if !slices.Contains(educationCodes, edu) || !slices.Contains(marriageCodes, mar) {
		// all-zero dummy group, a category the model never saw
		slog.Debug("categorical code outside known set", "education", edu, "marriage", mar)
	}

	for _, name := range AllFeatures {
		if _, ok := values[name]; !ok {
			values[name] = 0
		}
	}

	return Row{
		values: values,
		codes: map[string]int{
			FieldEducation: edu,
			FieldMarriage:  mar,
		},
	}
}

// RowFromEncoded builds a row from a record that already carries every
// encoded feature column. Missing or non-numeric columns are reported
// together in a SchemaError; unknown extra keys are ignored.
func RowFromEncoded(record map[string]any) (Row, error) {
	values := make(map[string]float64, len(AllFeatures))
	var missing, invalid []string

	for _, name := range AllFeatures {
		v, ok := record[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			invalid = append(invalid, name)
			continue
		}
		values[name] = f
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return Row{}, &SchemaError{Missing: missing, Invalid: invalid}
	}

	return Row{values: values}, nil
}

func oneHot(values map[string]float64, columns []string, codes []int, code int) {
	for i, col := range columns {
		if codes[i] == code {
			values[col] = 1
		} else {
			values[col] = 0
		}
	}
}
