package feature

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Mode selects how the validator treats domain-impossible codes.
type Mode string

const (
	// ModeStrict rejects impossible payment-status and categorical codes.
	ModeStrict Mode = "strict"
	// ModeLenient passes every coerced value through to the model.
	ModeLenient Mode = "lenient"
)

const (
	payOnTime   = -1
	payDelayMax = 8
)

// payStatusFloor is the smallest delay code observed for each month.
// Months 5 and 6 never carried 0 or 1 in the source data.
var payStatusFloor = map[string]int{
	"PAY_0": 1,
	"PAY_2": 1,
	"PAY_3": 1,
	"PAY_4": 1,
	"PAY_5": 2,
	"PAY_6": 2,
}

// ParseMode converts a config string into a Mode. Empty means strict.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStrict:
		return ModeStrict, nil
	case ModeLenient:
		return ModeLenient, nil
	default:
		return "", fmt.Errorf("unknown validation mode: %q", s)
	}
}

// Validator enforces the value domains of the ordinal and categorical fields.
type Validator struct {
	mode Mode
}

// NewValidator returns a validator for the given mode; unknown modes are strict.
func NewValidator(mode Mode) *Validator {
	if mode != ModeLenient {
		mode = ModeStrict
	}
	return &Validator{mode: mode}
}

// Mode returns the validation mode.
func (v *Validator) Mode() Mode {
	return v.mode
}

// Validate returns nil when the row is acceptable, otherwise a *DomainError
// for the first offending field in schema order.
func (v *Validator) Validate(row Row) error {
	if v == nil || v.mode == ModeLenient {
		return nil
	}

	for _, name := range PayStatusFeatures {
		if err := checkPayStatus(name, row.Value(name)); err != nil {
			return err
		}
	}

	if err := checkCategory(row, FieldEducation, EducationDummies, educationCodes); err != nil {
		return err
	}
	return checkCategory(row, FieldMarriage, MarriageDummies, marriageCodes)
}

func checkPayStatus(name string, value float64) error {
	floor := payStatusFloor[name]
	rule := fmt.Sprintf("must be %d (paid on time) or a delay between %d and %d months", payOnTime, floor, payDelayMax)

	if value == math.Trunc(value) &&
		(value == payOnTime || (value >= float64(floor) && value <= payDelayMax)) {
		return nil
	}
	return &DomainError{Field: name, Value: value, Rule: rule}
}

// PayStatusCodes returns the codes strict mode accepts for a payment-status
// field, on-time first. Unknown fields get nil.
func PayStatusCodes(name string) []int {
	floor, ok := payStatusFloor[name]
	if !ok {
		return nil
	}
	codes := []int{payOnTime}
	for c := floor; c <= payDelayMax; c++ {
		codes = append(codes, c)
	}
	return codes
}

// EducationCodes returns the accepted EDUCATION codes.
func EducationCodes() []int {
	return slices.Clone(educationCodes)
}

// MarriageCodes returns the accepted MARRIAGE codes.
func MarriageCodes() []int {
	return slices.Clone(marriageCodes)
}

func checkCategory(row Row, field string, dummies []string, codes []int) error {
	allowed := formatCodes(codes)

	if code, ok := row.Code(field); ok {
		if slices.Contains(codes, code) {
			return nil
		}
		return &DomainError{Field: field, Value: float64(code), Rule: "must be one of " + allowed}
	}

	// pre-encoded row, the group itself has to be one-hot
	sum := 0.0
	for _, col := range dummies {
		val := row.Value(col)
		if val != 0 && val != 1 {
			return &DomainError{Field: col, Value: val, Rule: "dummy columns must be 0 or 1"}
		}
		sum += val
	}
	if sum != 1 {
		return &DomainError{
			Field: field,
			Value: sum,
			Rule:  fmt.Sprintf("exactly one of %s must be 1 (codes %s)", strings.Join(dummies, ", "), allowed),
		}
	}
	return nil
}

func formatCodes(codes []int) string {
	s := make([]string, len(codes))
	for i, c := range codes {
		s[i] = fmt.Sprint(c)
	}
	return "{" + strings.Join(s, ", ") + "}"
}
