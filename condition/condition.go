// Package condition evaluates the KEY:VALUE constraints carried in session
// claims against the runtime parameters of an operation.
//
// The set of recognized keys is a [Vocabulary]: an externally configured
// table binding each key to the operation parameter it constrains and the
// comparator used. Keys outside the vocabulary are ignored. An operation
// declares the parameters it carries; a recognized condition on a declared
// parameter that the invocation leaves out is unmet. A condition on a
// parameter the operation does not declare imposes nothing.
package condition

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

var (
	// ErrMalformedCondition is returned when a recognized condition has an unusable VALUE.
	ErrMalformedCondition = errors.New("malformed contextual condition")
	// ErrMalformedParameter is returned when a runtime parameter cannot be compared.
	ErrMalformedParameter = errors.New("malformed operation parameter")
	// ErrUnknownComparator is returned when a vocabulary rule names no known comparator.
	ErrUnknownComparator = errors.New("unknown condition comparator")
)

// MaxTransactionValue caps the monetary value of a single operation.
const MaxTransactionValue = "MAX_TRANSACTION_VALUE"

// Condition is one parsed KEY:VALUE constraint.
type Condition struct {
	Key   string
	Value string
	Raw   string
}

// Parse splits raw at the first colon. The key is trimmed and upper-cased,
// the value is trimmed. A missing colon yields the key with an empty
// value and [ErrMalformedCondition].
func Parse(raw string) (Condition, error) {
	key, value, found := strings.Cut(raw, ":")
	c := Condition{
		Key:   strings.ToUpper(strings.TrimSpace(key)),
		Value: strings.TrimSpace(value),
		Raw:   raw,
	}
	if !found {
		return c, fmt.Errorf("%w: %q has no KEY:VALUE separator", ErrMalformedCondition, raw)
	}
	if c.Key == "" {
		return c, fmt.Errorf("%w: %q has an empty key", ErrMalformedCondition, raw)
	}
	return c, nil
}

// String renders the condition in canonical KEY:VALUE form.
func (c Condition) String() string {
	return c.Key + ":" + c.Value
}

// Params are the runtime parameters of one operation invocation.
type Params map[string]string

// Rule binds a condition key to the parameter it constrains.
type Rule struct {
	Key        string `yaml:"key"`
	Parameter  string `yaml:"parameter"`
	Comparator string `yaml:"comparator"`
}

type boundRule struct {
	Rule
	compare Comparator
}

// Vocabulary is an immutable table of recognized condition keys.
type Vocabulary struct {
	rules map[string]boundRule
}

// DefaultRules is the built-in vocabulary.
var DefaultRules = []Rule{
	{Key: MaxTransactionValue, Parameter: "transaction_value", Comparator: CompareLTE},
}

// NewVocabulary validates rules and binds their comparators.
func NewVocabulary(rules ...Rule) (*Vocabulary, error) {
	v := &Vocabulary{rules: make(map[string]boundRule, len(rules))}
	for _, r := range rules {
		r.Key = strings.ToUpper(strings.TrimSpace(r.Key))
		r.Parameter = strings.TrimSpace(r.Parameter)
		r.Comparator = strings.ToLower(strings.TrimSpace(r.Comparator))
		if r.Key == "" || r.Parameter == "" {
			return nil, fmt.Errorf("condition rule requires key and parameter, got %+v", r)
		}
		if _, exists := v.rules[r.Key]; exists {
			return nil, fmt.Errorf("condition key %s registered twice", r.Key)
		}
		cmp, ok := comparators[r.Comparator]
		if !ok {
			return nil, fmt.Errorf("%w: %q for key %s", ErrUnknownComparator, r.Comparator, r.Key)
		}
		v.rules[r.Key] = boundRule{Rule: r, compare: cmp}
	}
	return v, nil
}

// DefaultVocabulary returns a vocabulary holding [DefaultRules].
func DefaultVocabulary() *Vocabulary {
	v, err := NewVocabulary(DefaultRules...)
	if err != nil {
		panic("condition: default vocabulary: " + err.Error())
	}
	return v
}

// Keys returns the recognized keys, sorted.
func (v *Vocabulary) Keys() []string {
	out := make([]string, 0, len(v.rules))
	for k := range v.rules {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Recognizes reports whether key is in the vocabulary.
func (v *Vocabulary) Recognizes(key string) bool {
	_, ok := v.rules[strings.ToUpper(strings.TrimSpace(key))]
	return ok
}

// Result describes the outcome of [Vocabulary.Check].
type Result struct {
	Satisfied bool
	// Failed holds recognized conditions the parameters violated.
	Failed []Condition
	// Ignored holds conditions whose key is not in the vocabulary.
	Ignored []Condition
	// Missing holds recognized conditions on a declared parameter that the
	// invocation did not supply.
	Missing []Condition
	// Unconstrained holds recognized conditions on parameters the
	// operation does not declare.
	Unconstrained []Condition
}

// Check evaluates every condition against params. declared names the
// parameters the operation carries. Recognized conditions must all pass.
// Any error means the caller must deny.
func (v *Vocabulary) Check(conditions []string, params Params, declared ...string) (Result, error) {
	res := Result{Satisfied: true}
	for _, raw := range conditions {
		c, parseErr := Parse(raw)
		rule, known := v.rules[c.Key]
		if !known {
			res.Ignored = append(res.Ignored, c)
			continue
		}
		if parseErr != nil {
			return Result{}, parseErr
		}
		if c.Value == "" {
			return Result{}, fmt.Errorf("%w: %s has an empty value", ErrMalformedCondition, c.Key)
		}

		actual, present := params[rule.Parameter]
		if !present {
			if slices.Contains(declared, rule.Parameter) {
				res.Satisfied = false
				res.Missing = append(res.Missing, c)
			} else {
				res.Unconstrained = append(res.Unconstrained, c)
			}
			continue
		}

		ok, err := rule.compare(c.Value, actual)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", c.Key, err)
		}
		if !ok {
			res.Satisfied = false
			res.Failed = append(res.Failed, c)
		}
	}
	return res, nil
}
