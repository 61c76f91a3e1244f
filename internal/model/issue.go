package model

// Issue is one finding. Identity is derived from its content (see scoring.IssueKey),
// never assigned.
type Issue struct {
	// Severity drives both score deduction and report ordering.
	Severity Severity `json:"severity" yaml:"severity"`

	// Title is a brief issue title.
	Title string `json:"title" yaml:"title"`

	// Description is a detailed description of the issue.
	Description string `json:"description" yaml:"description"`

	// LineNumber is the 1-based line where the issue occurs, if known.
	LineNumber *int `json:"line_number,omitempty" yaml:"line_number,omitempty"`

	// CodeSnippet is the relevant code, if known.
	CodeSnippet *string `json:"code_snippet,omitempty" yaml:"code_snippet,omitempty"`

	// Recommendation is the suggested fix.
	Recommendation string `json:"recommendation" yaml:"recommendation"`

	// Categories starts as a singleton and grows when equivalent findings are merged.
	// Insertion order is preserved and entries are unique.
	Categories []Category `json:"categories" yaml:"categories"`
}

// HasCategory reports whether c is already in the issue's category set.
func (i *Issue) HasCategory(c Category) bool {
	for _, have := range i.Categories {
		if have == c {
			return true
		}
	}
	return false
}

// AddCategory adds c to the category set if it is not present.
func (i *Issue) AddCategory(c Category) {
	if !i.HasCategory(c) {
		i.Categories = append(i.Categories, c)
	}
}

// Clone returns a deep copy so callers can mutate the copy without touching
// a result owned by someone else.
func (i Issue) Clone() Issue {
	out := i
	if i.LineNumber != nil {
		n := *i.LineNumber
		out.LineNumber = &n
	}
	if i.CodeSnippet != nil {
		s := *i.CodeSnippet
		out.CodeSnippet = &s
	}
	out.Categories = append([]Category(nil), i.Categories...)
	return out
}

// Line is a helper for building issues with a line number.
func Line(n int) *int { return &n }

// Snippet is a helper for building issues with a code snippet.
func Snippet(s string) *string { return &s }
