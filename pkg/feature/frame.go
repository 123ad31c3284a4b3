package feature

import "slices"

// Order sources.
const (
	OrderSourceModel     = "model"
	OrderSourceCanonical = "canonical"
)

// Order is the column ordering frames are assembled in. It is resolved
// once at startup and shared read-only afterwards.
type Order struct {
	columns []string
	source  string
}

// ResolveOrder prefers the columns the model declares and falls back to
// the canonical order when it declares none.
func ResolveOrder(declared []string) Order {
	if len(declared) > 0 {
		return Order{columns: slices.Clone(declared), source: OrderSourceModel}
	}
	return CanonicalOrder()
}

// CanonicalOrder returns the fallback order: numeric features then dummies.
func CanonicalOrder() Order {
	return Order{columns: slices.Clone(AllFeatures), source: OrderSourceCanonical}
}

// Columns returns a copy of the ordered column names.
func (o Order) Columns() []string {
	return slices.Clone(o.columns)
}

// Source reports whether the order came from the model or the fallback.
func (o Order) Source() string {
	return o.source
}

// Len returns the number of columns.
func (o Order) Len() int {
	return len(o.columns)
}

// Unknown returns the ordered columns that are not part of the feature schema.
// Those are always assembled as 0.
func (o Order) Unknown() []string {
	var out []string
	for _, c := range o.columns {
		if !IsFeature(c) {
			out = append(out, c)
		}
	}
	return out
}

// Frame is a row projected onto an Order; it is what crosses the model boundary.
type Frame struct {
	Columns []string  `json:"columns" yaml:"columns"`
	Values  []float64 `json:"values" yaml:"values"`
}

// Assemble projects row onto order. Columns the row doesn't carry are 0.
func Assemble(row Row, order Order) Frame {
	if order.columns == nil {
		order = CanonicalOrder()
	}
	values := make([]float64, len(order.columns))
	for i, name := range order.columns {
		if v, ok := row.Get(name); ok {
			values[i] = v
		}
	}
	return Frame{Columns: order.Columns(), Values: values}
}
