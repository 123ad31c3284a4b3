package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowWith(overrides map[string]any) Row {
	in := sampleInput()
	for k, v := range overrides {
		in[k] = v
	}
	return BuildRow(MapLookup(in))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeStrict, m)

	m, err = ParseMode(" Lenient ")
	require.NoError(t, err)
	assert.Equal(t, ModeLenient, m)

	_, err = ParseMode("paranoid")
	assert.Error(t, err)
}

func TestNewValidator_DefaultsStrict(t *testing.T) {
	assert.Equal(t, ModeStrict, NewValidator("").Mode())
	assert.Equal(t, ModeLenient, NewValidator(ModeLenient).Mode())
}

func TestValidate_PayStatus(t *testing.T) {
	v := NewValidator(ModeStrict)

	tests := []struct {
		field string
		value any
		ok    bool
	}{
		{"PAY_0", 0, false},
		{"PAY_0", -1, true},
		{"PAY_0", 8, true},
		{"PAY_0", 1, true},
		{"PAY_0", 9, false},
		{"PAY_0", -2, false},
		{"PAY_4", 0, false},
		{"PAY_4", 1, true},
		{"PAY_5", 1, false},
		{"PAY_5", 0, false},
		{"PAY_5", 2, true},
		{"PAY_6", 1, false},
		{"PAY_6", 8, true},
		{"PAY_6", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			err := v.Validate(rowWith(map[string]any{tt.field: tt.value}))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var de *DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.field, de.Field)
			assert.Equal(t, CoerceFloat(tt.value, 0), de.Value)
			assert.NotEmpty(t, de.Rule)
		})
	}
}

func TestValidate_PayStatusOutOfRange(t *testing.T) {
	v := NewValidator(ModeStrict)
	for _, val := range []float64{1e300, -1e300, 9, -1.5} {
		in := sampleEncoded()
		in["PAY_0"] = val
		row, err := RowFromEncoded(in)
		require.NoError(t, err)

		var de *DomainError
		require.ErrorAs(t, v.Validate(row), &de)
		assert.Equal(t, "PAY_0", de.Field)
		assert.Equal(t, val, de.Value)
	}
}

func TestPayStatusCodes(t *testing.T) {
	assert.Equal(t, []int{-1, 1, 2, 3, 4, 5, 6, 7, 8}, PayStatusCodes("PAY_0"))
	assert.Equal(t, []int{-1, 2, 3, 4, 5, 6, 7, 8}, PayStatusCodes("PAY_6"))
	assert.Nil(t, PayStatusCodes("AGE"))

	v := NewValidator(ModeStrict)
	for _, name := range PayStatusFeatures {
		for _, c := range PayStatusCodes(name) {
			assert.NoError(t, v.Validate(rowWith(map[string]any{name: c})), "%s=%d", name, c)
		}
	}
	for _, c := range EducationCodes() {
		assert.NoError(t, v.Validate(rowWith(map[string]any{FieldEducation: c})))
	}
	for _, c := range MarriageCodes() {
		assert.NoError(t, v.Validate(rowWith(map[string]any{FieldMarriage: c})))
	}
}

func TestValidate_FirstViolationWins(t *testing.T) {
	v := NewValidator(ModeStrict)
	err := v.Validate(rowWith(map[string]any{"PAY_6": 0, "PAY_2": 0}))
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "PAY_2", de.Field)
}

func TestValidate_Categories(t *testing.T) {
	v := NewValidator(ModeStrict)

	err := v.Validate(rowWith(map[string]any{"EDUCATION": 2}))
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, FieldEducation, de.Field)
	assert.Equal(t, 2.0, de.Value)
	assert.Contains(t, de.Rule, "{1, 3, 4}")

	err = v.Validate(rowWith(map[string]any{"MARRIAGE": 0}))
	require.ErrorAs(t, err, &de)
	assert.Equal(t, FieldMarriage, de.Field)

	assert.NoError(t, v.Validate(rowWith(map[string]any{"EDUCATION": 4, "MARRIAGE": 3})))
}

func TestValidate_Lenient(t *testing.T) {
	v := NewValidator(ModeLenient)
	assert.NoError(t, v.Validate(rowWith(map[string]any{"PAY_0": 0, "PAY_5": 1, "EDUCATION": 7})))

	var nilValidator *Validator
	assert.NoError(t, nilValidator.Validate(rowWith(nil)))
}

func TestValidate_Encoded(t *testing.T) {
	v := NewValidator(ModeStrict)

	row, err := RowFromEncoded(sampleEncoded())
	require.NoError(t, err)
	assert.NoError(t, v.Validate(row))

	in := sampleEncoded()
	in["EDUCATION_3"] = 1.0
	row, err = RowFromEncoded(in)
	require.NoError(t, err)
	var de *DomainError
	require.ErrorAs(t, v.Validate(row), &de)
	assert.Equal(t, FieldEducation, de.Field)
	assert.Equal(t, 2.0, de.Value)

	in = sampleEncoded()
	in["MARRIAGE_2"] = 0.5
	row, err = RowFromEncoded(in)
	require.NoError(t, err)
	require.ErrorAs(t, v.Validate(row), &de)
	assert.Equal(t, "MARRIAGE_2", de.Field)

	in = sampleEncoded()
	in["PAY_3"] = 1.5
	row, err = RowFromEncoded(in)
	require.NoError(t, err)
	require.ErrorAs(t, v.Validate(row), &de)
	assert.Equal(t, "PAY_3", de.Field)
}

func TestDomainError_Message(t *testing.T) {
	err := &DomainError{Field: "PAY_5", Value: 1, Rule: "must be -1"}
	assert.Equal(t, "invalid PAY_5 value 1: must be -1", err.Error())
}
