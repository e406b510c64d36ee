// Package collection maps broker topics onto document-store collection names.
package collection

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Sentinel errors.
var (
	ErrEmptyTopic   = errors.New("empty topic")
	ErrInvalidName  = errors.New("topic is not a valid collection name")
	ErrUnknownRule  = errors.New("unknown collection policy")
	ErrNameTooLong  = errors.New("collection namespace exceeds limit")
	errReservedName = errors.New("reserved collection prefix")
	errForbidden    = errors.New("contains '$' or NUL")
	errBadEncoding  = errors.New("not valid UTF-8")
)

// Policy decides what happens to topics that are not valid collection names.
type Policy string

// Supported policies.
const (
	PolicySanitize Policy = "sanitize"
	PolicyReject   Policy = "reject"
)

const (
	// MaxNamespaceBytes is the store limit for "<database>.<collection>".
	MaxNamespaceBytes = 255

	reservedPrefix = "system."
	replacement    = "_"
)

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicySanitize:
		return PolicySanitize, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRule, s)
	}
}

// Namer resolves topics to collection names within one database.
type Namer struct {
	database string
	policy   Policy
}

// NewNamer creates a Namer for database using policy.
func NewNamer(database string, policy Policy) *Namer {
	if policy != PolicyReject {
		policy = PolicySanitize
	}
	return &Namer{database: database, policy: policy}
}

// Policy returns the active policy.
func (n *Namer) Policy() Policy { return n.policy }

// Resolve returns the collection name for topic. A valid topic is returned
// unchanged. Otherwise the policy either rewrites it or rejects it with
// ErrInvalidName. An empty topic always fails with ErrEmptyTopic.
func (n *Namer) Resolve(topic string) (string, error) {
	if topic == "" {
		return "", ErrEmptyTopic
	}

	problem := n.validate(topic)
	if problem == nil {
		return topic, nil
	}
	if n.policy == PolicyReject {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidName, topic, problem)
	}
	return n.sanitize(topic), nil
}

func (n *Namer) budget() int {
	return MaxNamespaceBytes - len(n.database) - 1
}

func (n *Namer) validate(name string) error {
	switch {
	case strings.ContainsAny(name, "$\x00"):
		return errForbidden
	case strings.HasPrefix(name, reservedPrefix):
		return errReservedName
	case len(name) > n.budget():
		return ErrNameTooLong
	case !utf8.ValidString(name):
		return errBadEncoding
	}
	return nil
}

func (n *Namer) sanitize(name string) string {
	name = strings.ToValidUTF8(name, replacement)
	name = strings.NewReplacer("$", replacement, "\x00", replacement).Replace(name)
	if strings.HasPrefix(name, reservedPrefix) {
		name = replacement + name
	}
	return truncate(name, n.budget())
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return replacement
	}
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
