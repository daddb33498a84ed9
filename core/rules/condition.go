package rules

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
	json "github.com/goccy/go-json"
)

// ConditionKind enumerates the recognized condition families. Unrecognized
// condition strings map to KindOther, which always evaluates to a pass:
// a rule-authoring typo must never block a legitimate submission.
type ConditionKind int

// Condition kinds.
const (
	// KindNotEmpty fails when the trimmed cell value is empty.
	KindNotEmpty ConditionKind = iota
	// KindNumeric fails when the value does not parse as a finite number.
	KindNumeric
	// KindRange fails when the parsed number lies outside [Min, Max].
	KindRange
	// KindEquals fails unless the value exactly equals the expected string.
	KindEquals
	// KindRegex fails unless the value matches the compiled pattern.
	KindRegex
	// KindOneOf fails unless the value is one of the enumerated choices.
	KindOneOf
	// KindLogic evaluates a JsonLogic expression against the cell.
	KindLogic
	// KindOther is the fail-open fallback for unrecognized conditions.
	KindOther
)

// Condition is a parsed rule condition ready for repeated evaluation.
type Condition struct {
	Kind    ConditionKind
	Raw     string
	Min     float64
	Max     float64
	Pattern *regexp.Regexp
	Choices []string
	Logic   string
	Expect  string
}

// rangePattern matches "min,max" numeric pair conditions.
var rangePattern = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*$`)

// ParseCondition classifies a rule's condition string. It never fails:
// anything it cannot recognize becomes KindOther, preserving the fail-open
// contract for condition typos. The rule type disambiguates bare strings
// (a plain string on a custom rule is an exact-equality predicate).
func ParseCondition(ruleType RuleType, raw string) Condition {
	c := Condition{Raw: raw}
	trimmed := strings.TrimSpace(raw)
	lowered := strings.ToLower(trimmed)

	switch lowered {
	case "not_empty", "notempty", "required":
		c.Kind = KindNotEmpty
		return c
	case "numeric", "number":
		c.Kind = KindNumeric
		return c
	}

	if ruleType == TypeRequired && trimmed == "" {
		c.Kind = KindNotEmpty
		return c
	}
	if ruleType == TypeFormat && (lowered == "" || strings.HasPrefix(lowered, "format=number")) {
		c.Kind = KindNumeric
		return c
	}

	if m := rangePattern.FindStringSubmatch(trimmed); m != nil {
		min, errMin := strconv.ParseFloat(m[1], 64)
		max, errMax := strconv.ParseFloat(m[2], 64)
		if errMin == nil && errMax == nil && min <= max {
			c.Kind = KindRange
			c.Min = min
			c.Max = max
			return c
		}
	}

	if strings.HasPrefix(lowered, "regex:") {
		pat, err := regexp.Compile(trimmed[len("regex:"):])
		if err != nil {
			// Unusable pattern: authoring typo, fail open.
			c.Kind = KindOther
			return c
		}
		c.Kind = KindRegex
		c.Pattern = pat
		return c
	}

	if strings.HasPrefix(lowered, "in:") {
		parts := strings.FieldsFunc(trimmed[len("in:"):], func(r rune) bool {
			return r == '|' || r == ','
		})
		for _, p := range parts {
			if v := strings.TrimSpace(p); v != "" {
				c.Choices = append(c.Choices, v)
			}
		}
		if len(c.Choices) > 0 {
			c.Kind = KindOneOf
			return c
		}
		c.Kind = KindOther
		return c
	}

	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		c.Kind = KindLogic
		c.Logic = trimmed
		return c
	}

	if ruleType == TypeCustom && trimmed != "" {
		c.Kind = KindEquals
		c.Expect = trimmed
		return c
	}

	c.Kind = KindOther
	return c
}

// Evaluate applies the condition to one resolved cell value at the given
// 1-indexed coordinate. The coordinate is only consulted by JsonLogic
// conditions, which see {"value": ..., "row": ..., "column": ...}.
func (c Condition) Evaluate(value string, row, col int) bool {
	trimmed := strings.TrimSpace(value)

	switch c.Kind {
	case KindNotEmpty:
		return trimmed != ""

	case KindNumeric:
		return isNumeric(trimmed)

	case KindRange:
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return false
		}
		return n >= c.Min && n <= c.Max

	case KindEquals:
		return trimmed == c.Expect

	case KindRegex:
		return c.Pattern.MatchString(trimmed)

	case KindOneOf:
		for _, choice := range c.Choices {
			if trimmed == choice {
				return true
			}
		}
		return false

	case KindLogic:
		ok, err := applyLogic(c.Logic, value, row, col)
		if err != nil {
			// Broken logic expression: authoring error, fail open.
			return true
		}
		return ok

	default:
		// KindOther: informational pass.
		return true
	}
}

// isNumeric reports whether s parses as a finite decimal number.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	// ParseFloat accepts "Inf" and "NaN" spellings; reject them.
	return n == n && n-n == 0
}

// applyLogic evaluates a JsonLogic expression against the cell data.
func applyLogic(logic, value string, row, col int) (bool, error) {
	data := map[string]any{
		"value":  value,
		"row":    row,
		"column": col,
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		data["number"] = n
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return false, err
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(logic), bytes.NewReader(dataJSON), &out); err != nil {
		return false, err
	}

	var res any
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		return false, err
	}
	b, ok := res.(bool)
	if !ok {
		return false, fmt.Errorf("logic result %T is not a boolean", res)
	}
	return b, nil
}
