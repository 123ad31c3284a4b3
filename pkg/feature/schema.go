// Package feature turns raw card-holder fields into the ordered feature
// vector the default-risk model expects.
package feature

// Raw input field names.
const (
	FieldAge       = "AGE"
	FieldLimit     = "LIMIT_BAL"
	FieldSex       = "SEX"
	FieldEducation = "EDUCATION"
	FieldMarriage  = "MARRIAGE"
)

var (
	// PayStatusFeatures are the ordinal payment-status codes, most recent month first.
	PayStatusFeatures = []string{"PAY_0", "PAY_2", "PAY_3", "PAY_4", "PAY_5", "PAY_6"}

	// BillFeatures are the monthly billing amounts.
	BillFeatures = []string{"BILL_AMT1", "BILL_AMT2", "BILL_AMT3", "BILL_AMT4", "BILL_AMT5", "BILL_AMT6"}

	// PaymentFeatures are the monthly payment amounts.
	PaymentFeatures = []string{"PAY_AMT1", "PAY_AMT2", "PAY_AMT3", "PAY_AMT4", "PAY_AMT5", "PAY_AMT6"}

	// NumericFeatures is the direct numeric block in the order the model was trained with.
	NumericFeatures = concat(
		[]string{FieldAge},
		BillFeatures,
		[]string{FieldLimit},
		PayStatusFeatures,
		PaymentFeatures,
		[]string{FieldSex},
	)

	// EducationDummies and MarriageDummies are the one-hot groups.
	// EDUCATION code 2 was folded into 1 before training so it has no column.
	EducationDummies = []string{"EDUCATION_1", "EDUCATION_3", "EDUCATION_4"}
	MarriageDummies  = []string{"MARRIAGE_1", "MARRIAGE_2", "MARRIAGE_3"}

	// DummyFeatures are the one-hot columns, education group first.
	DummyFeatures = concat(EducationDummies, MarriageDummies)

	// AllFeatures is the canonical fallback order: numeric block then dummies.
	AllFeatures = concat(NumericFeatures, DummyFeatures)

	educationCodes = []int{1, 3, 4}
	marriageCodes  = []int{1, 2, 3}

	featureSet = toSet(AllFeatures)
)

// IsFeature reports whether name is one of the fixed feature names.
func IsFeature(name string) bool {
	_, ok := featureSet[name]
	return ok
}

func concat(parts ...[]string) []string {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]string, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, v := range list {
		m[v] = struct{}{}
	}
	return m
}
