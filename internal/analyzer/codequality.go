package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/model"
)

const (
	maxFunctionLines = 50
	maxNestingDepth  = 4
	maxFileLines     = 500
	maxSyntaxIssues  = 3
)

var todoPattern = regexp.MustCompile(`\b(?:TODO|FIXME|XXX|HACK)\b`)

var nestingNodes = map[string]bool{
	"if_statement":     true,
	"for_statement":    true,
	"for_in_statement": true,
	"while_statement":  true,
	"do_statement":     true,
	"switch_statement": true,
	"try_statement":    true,
}

var functionNodes = map[string]bool{
	"function_declaration":           true,
	"function_expression":            true,
	"function":                       true,
	"generator_function_declaration": true,
	"arrow_function":                 true,
	"method_definition":              true,
}

// CodeQualityAnalyzer parses JavaScript and TypeScript with tree-sitter and
// reports structural and maintainability problems.
type CodeQualityAnalyzer struct {
	logger logging.Logger
}

func NewCodeQualityAnalyzer(logger logging.Logger) *CodeQualityAnalyzer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &CodeQualityAnalyzer{logger: logger.With(logging.Field{Key: "component", Value: "code_quality_analyzer"})}
}

func (a *CodeQualityAnalyzer) Category() model.Category { return model.CategoryCodeQuality }

func (a *CodeQualityAnalyzer) Name() string { return analyzerName(model.CategoryCodeQuality) }

func languageFor(ext string) *sitter.Language {
	switch strings.ToLower(ext) {
	case ".tsx":
		return tsx.GetLanguage()
	case ".ts":
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

func (a *CodeQualityAnalyzer) Analyze(ctx context.Context, req model.AnalysisRequest) (*Output, error) {
	src := []byte(req.Content)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(languageFor(req.Metadata.Extension))

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", req.Metadata.Name, err)
	}
	defer tree.Close()

	w := &qualityWalker{src: src, lines: strings.Split(req.Content, "\n")}
	w.walk(tree.RootNode(), 0)

	out := &Output{Issues: w.issues()}
	out.Recommendations = w.recommendations()

	a.logger.Debug("code quality scan finished",
		logging.Field{Key: "issues", Value: len(out.Issues)},
		logging.Field{Key: "syntax_errors", Value: len(w.syntax)})
	return out, nil
}

// occurrence is the first place a repeated finding was seen plus a count.
type occurrence struct {
	node  *sitter.Node
	count int
}

func (o *occurrence) add(n *sitter.Node) {
	if o.node == nil {
		o.node = n
	}
	o.count++
}

type qualityWalker struct {
	src   []byte
	lines []string

	syntax       []*sitter.Node
	longFuncs    []*sitter.Node
	deepNesting  []*sitter.Node
	emptyCatches []*sitter.Node

	vars      occurrence
	looseEq   occurrence
	consoles  occurrence
	todos     occurrence
	anyTypes  occurrence
	debuggers occurrence
}

func (w *qualityWalker) walk(n *sitter.Node, depth int) {
	if n == nil {
		return
	}

	switch t := n.Type(); {
	case t == "ERROR" || n.IsMissing():
		if len(w.syntax) < maxSyntaxIssues {
			w.syntax = append(w.syntax, n)
		}
	case functionNodes[t]:
		if lines := int(n.EndPoint().Row-n.StartPoint().Row) + 1; lines > maxFunctionLines {
			w.longFuncs = append(w.longFuncs, n)
		}
		// Nesting is measured per function.
		depth = 0
	case nestingNodes[t]:
		depth++
		if depth == maxNestingDepth+1 {
			w.deepNesting = append(w.deepNesting, n)
		}
	case t == "variable_declaration":
		if n.ChildCount() > 0 && n.Child(0).Type() == "var" {
			w.vars.add(n)
		}
	case t == "binary_expression":
		if op := n.ChildByFieldName("operator"); op != nil && (op.Type() == "==" || op.Type() == "!=") {
			w.looseEq.add(n)
		}
	case t == "call_expression":
		if fn := n.ChildByFieldName("function"); fn != nil && fn.Type() == "member_expression" {
			if obj := fn.ChildByFieldName("object"); obj != nil && obj.Content(w.src) == "console" {
				w.consoles.add(n)
			}
		}
	case t == "catch_clause":
		if body := n.ChildByFieldName("body"); body != nil && body.NamedChildCount() == 0 {
			w.emptyCatches = append(w.emptyCatches, n)
		}
	case t == "comment":
		if todoPattern.MatchString(n.Content(w.src)) {
			w.todos.add(n)
		}
	case t == "predefined_type":
		if n.Content(w.src) == "any" {
			w.anyTypes.add(n)
		}
	case t == "debugger_statement":
		w.debuggers.add(n)
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), depth)
	}
}

func (w *qualityWalker) issue(n *sitter.Node, sev model.Severity, title, desc, rec string) RawIssue {
	line := int(n.StartPoint().Row) + 1
	is := RawIssue{
		Severity:       string(sev),
		Title:          title,
		Description:    desc,
		LineNumber:     &line,
		Recommendation: rec,
	}
	if line-1 < len(w.lines) {
		s := snippetOf(w.lines[line-1])
		is.CodeSnippet = &s
	}
	return is
}

func plural(count int, one, many string) string {
	if count == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", count, many)
}

func (w *qualityWalker) issues() []RawIssue {
	var out []RawIssue

	for _, n := range w.syntax {
		out = append(out, w.issue(n, model.SeverityCritical, "Syntax error",
			"The parser could not make sense of the code here. The file will fail to build or run.",
			"Fix the syntax error before anything else."))
	}
	for _, n := range w.longFuncs {
		lines := int(n.EndPoint().Row-n.StartPoint().Row) + 1
		out = append(out, w.issue(n, model.SeverityMedium, "Long function",
			fmt.Sprintf("This function spans %d lines, which makes it hard to read and test.", lines),
			"Split the function into smaller, single-purpose functions or components."))
	}
	for _, n := range w.deepNesting {
		out = append(out, w.issue(n, model.SeverityMedium, "Deeply nested logic",
			fmt.Sprintf("Control flow is nested more than %d levels deep.", maxNestingDepth),
			"Use early returns or extract the inner blocks into helper functions."))
	}
	for _, n := range w.emptyCatches {
		out = append(out, w.issue(n, model.SeverityMedium, "Empty catch block",
			"Errors are caught and silently discarded, which hides failures.",
			"Handle the error, surface it to the user or at least report it."))
	}
	if w.vars.count > 0 {
		out = append(out, w.issue(w.vars.node, model.SeverityLow, "Use of var",
			plural(w.vars.count, "var declaration", "var declarations")+" found. var is function-scoped and easy to misuse.",
			"Use const, or let when reassignment is needed."))
	}
	if w.looseEq.count > 0 {
		out = append(out, w.issue(w.looseEq.node, model.SeverityLow, "Loose equality comparison",
			plural(w.looseEq.count, "comparison uses", "comparisons use")+" == or != and rely on type coercion.",
			"Use === and !== instead."))
	}
	if w.consoles.count > 0 {
		out = append(out, w.issue(w.consoles.node, model.SeverityLow, "Console statements left in code",
			plural(w.consoles.count, "console call", "console calls")+" found.",
			"Remove debugging output before shipping."))
	}
	if w.debuggers.count > 0 {
		out = append(out, w.issue(w.debuggers.node, model.SeverityMedium, "Debugger statement",
			"A debugger statement pauses execution whenever dev tools are open.",
			"Remove debugger statements."))
	}
	if w.anyTypes.count > 0 {
		out = append(out, w.issue(w.anyTypes.node, model.SeverityLow, "Use of any type",
			plural(w.anyTypes.count, "any annotation", "any annotations")+" weaken type checking.",
			"Replace any with a specific type or unknown."))
	}
	if w.todos.count > 0 {
		out = append(out, w.issue(w.todos.node, model.SeverityLow, "Unfinished work markers",
			plural(w.todos.count, "TODO/FIXME comment", "TODO/FIXME comments")+" found.",
			"Resolve the pending work or track it outside the code."))
	}
	if len(w.lines) > maxFileLines {
		n := len(w.lines)
		out = append(out, RawIssue{
			Severity:       string(model.SeverityLow),
			Title:          "Large file",
			Description:    fmt.Sprintf("The file has %d lines.", n),
			Recommendation: "Split the file into focused modules.",
		})
	}
	return out
}

func (w *qualityWalker) recommendations() []string {
	var recs []string
	if len(w.syntax) > 0 {
		recs = append(recs, "Make sure the file builds cleanly before reviewing anything else.")
	}
	if len(w.longFuncs) > 0 || len(w.deepNesting) > 0 {
		recs = append(recs, "Break large components and functions into smaller units.")
	}
	if len(w.emptyCatches) > 0 {
		recs = append(recs, "Handle errors explicitly and give users a way to recover.")
	}
	if w.vars.count > 0 || w.looseEq.count > 0 || w.consoles.count > 0 || w.debuggers.count > 0 {
		recs = append(recs, "Add a linter (ESLint) to the build to catch common mistakes automatically.")
	}
	if w.anyTypes.count > 0 {
		recs = append(recs, "Tighten TypeScript types to get value from the compiler.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Code structure looks healthy. Keep functions small and typed.")
	}
	return recs
}
