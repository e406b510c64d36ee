// Package classifier infers the scalar type of a raw payload.
//
// Rules are evaluated in a fixed order and the first match wins:
//  1. any ASCII letter            -> Text (verbatim)
//  2. ^[+-]?[0-9]*\.[0-9]+$       -> Float
//  3. ^[+-]?[0-9]+$               -> Integer (32-bit)
//  4. anything else               -> Text (verbatim)
package classifier

import (
	"errors"
	"math"
	"regexp"
	"strconv"

	"github.com/okian/topicsink/internal/domain/types"
)

// OverflowPolicy controls numeric tokens that do not fit the target width.
type OverflowPolicy string

const (
	// OverflowSaturate clamps to the nearest representable value.
	OverflowSaturate OverflowPolicy = "saturate"
	// OverflowText keeps the payload as Text.
	OverflowText OverflowPolicy = "text"
)

var (
	letterPattern  = regexp.MustCompile(`[A-Za-z]`)
	floatPattern   = regexp.MustCompile(`^[+-]?[0-9]*\.[0-9]+$`)
	integerPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)
)

// Option configures a Classifier.
type Option func(*Classifier)

// WithOverflowPolicy sets the overflow policy. Unknown values are ignored.
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(c *Classifier) {
		switch p {
		case OverflowSaturate, OverflowText:
			c.overflow = p
		}
	}
}

// Classifier is safe for concurrent use; it holds no mutable state.
type Classifier struct {
	overflow OverflowPolicy
}

// New creates a Classifier. The default overflow policy is OverflowSaturate.
func New(opts ...Option) *Classifier {
	c := &Classifier{overflow: OverflowSaturate}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OverflowPolicy returns the active policy.
func (c *Classifier) OverflowPolicy() OverflowPolicy { return c.overflow }

// Classify maps payload to a TypedValue. It never fails.
func (c *Classifier) Classify(payload string) types.TypedValue {
	switch {
	case HasLetter(payload):
		return types.Text(payload)
	case IsFloat(payload):
		return c.parseFloat(payload)
	case IsInteger(payload):
		return c.parseInteger(payload)
	default:
		return types.Text(payload)
	}
}

// HasLetter reports whether s contains an ASCII letter.
func HasLetter(s string) bool { return letterPattern.MatchString(s) }

// IsFloat reports whether s is a signed decimal with a mandatory fraction.
func IsFloat(s string) bool { return floatPattern.MatchString(s) }

// IsInteger reports whether s is a signed run of digits.
func IsInteger(s string) bool { return integerPattern.MatchString(s) }

func (c *Classifier) parseFloat(s string) types.TypedValue {
	f, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return types.Float(f)
	}
	if !errors.Is(err, strconv.ErrRange) || c.overflow == OverflowText {
		return types.Text(s)
	}
	// ParseFloat yields ±Inf on overflow.
	if math.IsInf(f, -1) {
		return types.Float(-math.MaxFloat64)
	}
	return types.Float(math.MaxFloat64)
}

func (c *Classifier) parseInteger(s string) types.TypedValue {
	n, err := strconv.ParseInt(s, 10, 32)
	if err == nil {
		return types.Integer(int32(n))
	}
	if !errors.Is(err, strconv.ErrRange) || c.overflow == OverflowText {
		return types.Text(s)
	}
	// ParseInt already returns the clamped bound on ErrRange.
	return types.Integer(int32(n))
}

var defaultClassifier = New()

// Classify uses a saturating classifier.
func Classify(payload string) types.TypedValue {
	return defaultClassifier.Classify(payload)
}
