package model

import "strings"

// Category is one of the independent analysis dimensions.
type Category string

const (
	CategorySecurity    Category = "security"
	CategoryCodeQuality Category = "code_quality"
	CategoryUIUX        Category = "ui_ux"

	// CategorySystem tags synthetic issues raised by the orchestrator itself.
	// It never has an analyzer or a weight.
	CategorySystem Category = "system"
)

// Categories returns the analysis categories in their canonical order.
// Aggregation iterates categories in this order, which keeps merge order stable.
func Categories() []Category {
	return []Category{CategorySecurity, CategoryCodeQuality, CategoryUIUX}
}

// Valid reports whether c is one of the analysis categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySecurity, CategoryCodeQuality, CategoryUIUX:
		return true
	}
	return false
}

// Title renders the category for humans, e.g. "code_quality" -> "Code Quality".
func (c Category) Title() string {
	if c == CategoryUIUX {
		return "UI/UX"
	}
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Severity is a human-level severity bucket.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities returns every severity from most to least urgent.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
}

// ParseSeverity normalizes free-form severity text. ok is false when the value
// is not recognized; the returned severity is then medium.
func ParseSeverity(s string) (sev Severity, ok bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical, true
	case SeverityHigh:
		return SeverityHigh, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityLow:
		return SeverityLow, true
	}
	return SeverityMedium, false
}
