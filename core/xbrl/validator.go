package xbrl

import (
	"fmt"
	"strconv"
	"strings"
)

// Report is the outcome of validating an instance against a template.
// Errors and Warnings accumulate every violation found in one pass; the
// validator never stops at the first problem and never returns a Go error
// for data violations.
type Report struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate checks a parsed instance against a taxonomy-derived template:
// required concepts must all be reported (one aggregated error lists every
// missing name), each fact must satisfy the template rules for its concept,
// and every context must carry an entity.
func Validate(inst *Instance, tmpl *Template) *Report {
	report := &Report{Errors: []string{}, Warnings: []string{}}

	reported := make(map[string]bool, len(inst.Facts))
	for _, fact := range inst.Facts {
		reported[fact.Name] = true
	}

	var missing []string
	for _, name := range tmpl.RequiredConcepts {
		if !reported[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		report.Errors = append(report.Errors,
			fmt.Sprintf("missing required concepts: %s", strings.Join(missing, ", ")))
	}

	rulesByConcept := make(map[string][]ConceptRule, len(tmpl.Rules))
	for _, rule := range tmpl.Rules {
		rulesByConcept[rule.Concept] = append(rulesByConcept[rule.Concept], rule)
	}

	for _, fact := range inst.Facts {
		for _, rule := range rulesByConcept[fact.Name] {
			if msg := checkFactRule(fact, rule); msg != "" {
				report.Errors = append(report.Errors, msg)
			}
		}
	}

	for _, ctx := range inst.Contexts {
		if strings.TrimSpace(ctx.Entity) == "" {
			report.Errors = append(report.Errors,
				fmt.Sprintf("context %s has no entity identifier", ctx.ID))
		}
	}

	report.IsValid = len(report.Errors) == 0
	return report
}

// checkFactRule applies one template rule to one fact, returning a message
// when the fact violates it and "" otherwise.
func checkFactRule(fact Fact, rule ConceptRule) string {
	switch rule.Rule {
	case "numeric":
		if _, err := strconv.ParseFloat(strings.TrimSpace(fact.Value), 64); err != nil {
			return failMessage(rule, fmt.Sprintf("%s: value %q is not numeric", fact.Name, fact.Value))
		}
	case "required":
		if strings.TrimSpace(fact.Value) == "" {
			return failMessage(rule, fmt.Sprintf("%s: value is required", fact.Name))
		}
	}
	return ""
}

func failMessage(rule ConceptRule, fallback string) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fallback
}
