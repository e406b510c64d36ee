// Package types contains the tagged scalar value shared across the application.
package types

import "strconv"

// Kind discriminates the scalar carried by a TypedValue.
type Kind uint8

// Supported kinds. Text is the zero value so an empty TypedValue is Text("").
const (
	KindText Kind = iota
	KindFloat
	KindInteger
)

// String returns the lower-case kind name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFloat:
		return "float"
	case KindInteger:
		return "integer"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// TypedValue is a tagged union over Text(string), Float(float64) and Integer(int32).
// Only the field matching Kind is meaningful.
type TypedValue struct {
	Kind    Kind
	Text    string
	Float   float64
	Integer int32
}

// Text builds a Text value.
func Text(s string) TypedValue { return TypedValue{Kind: KindText, Text: s} }

// Float builds a Float value.
func Float(f float64) TypedValue { return TypedValue{Kind: KindFloat, Float: f} }

// Integer builds an Integer value.
func Integer(i int32) TypedValue { return TypedValue{Kind: KindInteger, Integer: i} }

// Native returns the Go value for the active tag: string, float64 or int32.
// Encoders rely on the concrete type to pick the wire type.
func (v TypedValue) Native() any {
	switch v.Kind {
	case KindFloat:
		return v.Float
	case KindInteger:
		return v.Integer
	default:
		return v.Text
	}
}

// String renders the value for logging.
func (v TypedValue) String() string {
	switch v.Kind {
	case KindFloat:
		return v.Kind.String() + "(" + strconv.FormatFloat(v.Float, 'g', -1, 64) + ")"
	case KindInteger:
		return v.Kind.String() + "(" + strconv.FormatInt(int64(v.Integer), 10) + ")"
	default:
		return v.Kind.String() + "(" + strconv.Quote(v.Text) + ")"
	}
}
