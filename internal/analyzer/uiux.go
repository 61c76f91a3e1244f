package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/render"
)

const (
	panelWidth        = 350
	maxCustomColors   = 8
	minWhitespace     = 0.2
	maxColorDiversity = 0.5
)

var (
	hexColorPattern = regexp.MustCompile(`#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)
	widthPattern    = regexp.MustCompile(`(?i)\b(?:min-?width|width)["']?\s*:\s*["']?(\d{3,})px`)
	wordPattern     = regexp.MustCompile(`[A-Za-z]+`)
)

var lowContrastColors = []string{"#cccccc", "#ffff99", "#e0e0e0", "#d0d0d0", "#c0c0c0"}

// British spellings and their US forms.
var usSpelling = map[string]string{
	"colour":    "color",
	"colours":   "colors",
	"realise":   "realize",
	"centre":    "center",
	"organise":  "organize",
	"favourite": "favorite",
	"behaviour": "behavior",
	"analyse":   "analyze",
	"customise": "customize",
	"optimise":  "optimize",
	"cancelled": "canceled",
	"grey":      "gray",
}

var uiuxRules = []lineRule{
	{
		pattern:        regexp.MustCompile(`(?i)Times New Roman|Comic Sans|Courier New|Papyrus`),
		severity:       model.SeverityMedium,
		title:          "Off-brand typography",
		description:    "The app sets a font family that clashes with Canva Sans.",
		recommendation: "Use the Text and Title components, which apply Canva typography.",
		advice:         "Use the App UI Kit typography components instead of custom fonts.",
		once:           true,
	},
	{
		pattern:        regexp.MustCompile(`(?i)\b(?:padding|margin)["']?\s*:\s*["']?[123]px\b`),
		severity:       model.SeverityLow,
		title:          "Insufficient spacing",
		description:    "Spacing below 4px makes the panel feel cramped.",
		recommendation: "Use the 4/8/16/24px spacing scale through layout components.",
		advice:         "Manage spacing with Rows, Columns and Box rather than per-element margins.",
		once:           true,
	},
	{
		pattern:        regexp.MustCompile(`(?i)text-?decoration["']?\s*:\s*["']?underline`),
		severity:       model.SeverityLow,
		title:          "Underline used for emphasis",
		description:    "Underlined text reads as a link.",
		recommendation: "Emphasize with weight or size instead; reserve underline for links.",
		once:           true,
	},
	{
		pattern:        regexp.MustCompile(`(?i)overflow-?x["']?\s*:\s*["']?scroll|white-?space["']?\s*:\s*["']?nowrap`),
		severity:       model.SeverityMedium,
		title:          "Horizontal scrolling risk",
		description:    "Content that refuses to wrap can force horizontal scrolling inside the panel.",
		recommendation: "Let text wrap and stack content vertically.",
		advice:         "Design for a single vertical scroll in a 350px panel.",
		once:           true,
	},
	{
		pattern:        regexp.MustCompile(`(?i)position["']?\s*:\s*["']?(?:sticky|fixed)`),
		severity:       model.SeverityLow,
		title:          "Sticky positioning",
		description:    "Sticky or fixed elements take space from a small panel.",
		recommendation: "Avoid sticky positioning unless the information must always be visible.",
		once:           true,
	},
}

// UIUXAnalyzer checks accessibility, layout and content conventions. It reads
// the rendered DOM when a renderer is available and the source otherwise.
type UIUXAnalyzer struct {
	renderer render.Renderer
	logger   logging.Logger
}

func NewUIUXAnalyzer(renderer render.Renderer, logger logging.Logger) *UIUXAnalyzer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &UIUXAnalyzer{
		renderer: renderer,
		logger:   logger.With(logging.Field{Key: "component", Value: "uiux_analyzer"}),
	}
}

func (a *UIUXAnalyzer) Category() model.Category { return model.CategoryUIUX }

func (a *UIUXAnalyzer) Name() string { return analyzerName(model.CategoryUIUX) }

func (a *UIUXAnalyzer) Analyze(ctx context.Context, req model.AnalysisRequest) (*Output, error) {
	markup := req.Content
	var att *render.Attachment
	if a.renderer != nil && a.renderer.Supports(req.Metadata.Extension) {
		var err error
		att, err = a.renderer.Render(ctx, req)
		if err != nil {
			a.logger.Warn("rendering failed, falling back to code-only analysis", logging.Field{Key: "error", Value: err})
			att = nil
		} else if att.DOM != "" {
			markup = att.DOM
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	issues, advice := scanLines(req.Content, uiuxRules)

	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	domIssues, domAdvice := accessibilityIssues(doc)
	issues = append(issues, domIssues...)
	advice = append(advice, domAdvice...)

	issues = append(issues, colorIssues(req.Content)...)
	if is, ok := panelWidthIssue(req.Content); ok {
		issues = append(issues, is)
		advice = append(advice, "Design for a single vertical scroll in a 350px panel.")
	}
	if is, ok := spellingIssue(visibleText(root)); ok {
		issues = append(issues, is)
		advice = append(advice, "Follow the Canva writing guidelines: US spelling, sentence case, second person.")
	}
	if att != nil && att.Metrics != nil {
		issues = append(issues, visualIssues(att.Metrics)...)
	}

	if len(issues) == 0 {
		advice = append(advice, "The interface follows the common layout and accessibility conventions.")
	}

	a.logger.Debug("ui/ux scan finished",
		logging.Field{Key: "issues", Value: len(issues)},
		logging.Field{Key: "rendered", Value: att != nil})
	return &Output{Issues: issues, Recommendations: dedupeStrings(advice)}, nil
}

func outerSnippet(sel *goquery.Selection) *string {
	h, err := goquery.OuterHtml(sel.First())
	if err != nil || h == "" {
		return nil
	}
	s := snippetOf(strings.ReplaceAll(h, "\n", " "))
	return &s
}

func countedIssue(sel *goquery.Selection, sev model.Severity, title, what, rec string) RawIssue {
	return RawIssue{
		Severity:       string(sev),
		Title:          title,
		Description:    plural(sel.Length(), what, what+"s") + " affected.",
		CodeSnippet:    outerSnippet(sel),
		Recommendation: rec,
	}
}

// accessibilityIssues inspects images, form controls and buttons.
func accessibilityIssues(doc *goquery.Document) ([]RawIssue, []string) {
	var (
		issues []RawIssue
		advice []string
	)

	noAlt := doc.Find("img").FilterFunction(func(_ int, s *goquery.Selection) bool {
		_, ok := s.Attr("alt")
		return !ok
	})
	if noAlt.Length() > 0 {
		issues = append(issues, countedIssue(noAlt, model.SeverityHigh, "Image missing alt text", "image",
			"Describe what the image does or shows in an alt attribute."))
	}

	labelled := map[string]bool{}
	doc.Find("label").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"for", "htmlfor"} {
			if v, ok := s.Attr(attr); ok {
				labelled[v] = true
			}
		}
	})

	var placeholderOnly, unlabeled []*html.Node
	doc.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		if t, _ := s.Attr("type"); t == "hidden" || t == "submit" || t == "button" {
			return
		}
		if hasAccessibleName(s, labelled) {
			return
		}
		if _, ok := s.Attr("placeholder"); ok {
			placeholderOnly = append(placeholderOnly, s.Get(0))
		} else {
			unlabeled = append(unlabeled, s.Get(0))
		}
	})
	if len(unlabeled) > 0 {
		sel := doc.FindNodes(unlabeled...)
		issues = append(issues, countedIssue(sel, model.SeverityHigh, "Form control without a label", "control",
			"Associate a label with every control, or use the FormField component."))
	}
	if len(placeholderOnly) > 0 {
		sel := doc.FindNodes(placeholderOnly...)
		issues = append(issues, countedIssue(sel, model.SeverityMedium, "Placeholder used as label", "control",
			"Keep a visible label; placeholders disappear while typing."))
	}
	if len(unlabeled)+len(placeholderOnly) > 0 {
		advice = append(advice, "Give every interactive element an accessible name.")
	}

	emptyButtons := doc.Find("button").FilterFunction(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) != "" {
			return false
		}
		if v, ok := s.Attr("aria-label"); ok && strings.TrimSpace(v) != "" {
			return false
		}
		_, ok := s.Attr("aria-labelledby")
		return !ok
	})
	if emptyButtons.Length() > 0 {
		issues = append(issues, countedIssue(emptyButtons, model.SeverityHigh, "Button without accessible name", "button",
			"Give the button visible text or an aria-label."))
		advice = append(advice, "Give every interactive element an accessible name.")
	}

	return issues, advice
}

func hasAccessibleName(s *goquery.Selection, labelled map[string]bool) bool {
	if v, ok := s.Attr("aria-label"); ok && strings.TrimSpace(v) != "" {
		return true
	}
	if _, ok := s.Attr("aria-labelledby"); ok {
		return true
	}
	if id, ok := s.Attr("id"); ok && labelled[id] {
		return true
	}
	return s.ParentsFiltered("label").Length() > 0
}

func colorIssues(src string) []RawIssue {
	var issues []RawIssue

	seen := map[string]int{}
	for _, loc := range hexColorPattern.FindAllStringIndex(src, -1) {
		c := strings.ToLower(src[loc[0]:loc[1]])
		if _, ok := seen[c]; !ok {
			seen[c] = loc[0]
		}
	}
	if len(seen) > maxCustomColors {
		colors := make([]string, 0, len(seen))
		for c := range seen {
			colors = append(colors, c)
		}
		sort.Strings(colors)
		issues = append(issues, RawIssue{
			Severity:       string(model.SeverityMedium),
			Title:          "Too many custom colors",
			Description:    fmt.Sprintf("The app hard-codes %d distinct colors, which breaks theme consistency and dark mode.", len(colors)),
			Recommendation: "Use the functional theme colors from the App UI Kit.",
		})
	}

	for _, c := range lowContrastColors {
		if off, ok := seen[c]; ok {
			line := lineOf(src, off)
			issues = append(issues, RawIssue{
				Severity:       string(model.SeverityMedium),
				Title:          "Low-contrast color",
				Description:    fmt.Sprintf("%s is too light to read on a light background.", c),
				LineNumber:     &line,
				Recommendation: "Use typography colors from the theme, which meet WCAG AA contrast.",
			})
			break
		}
	}
	return issues
}

func panelWidthIssue(src string) (RawIssue, bool) {
	for _, m := range widthPattern.FindAllStringSubmatchIndex(src, -1) {
		px, err := strconv.Atoi(src[m[2]:m[3]])
		if err != nil || px <= panelWidth {
			continue
		}
		line := lineOf(src, m[0])
		snippet := snippetOf(strings.Split(src, "\n")[line-1])
		return RawIssue{
			Severity:       string(model.SeverityHigh),
			Title:          "Content wider than the app panel",
			Description:    fmt.Sprintf("A fixed width of %dpx exceeds the %dpx app panel and causes horizontal scrolling.", px, panelWidth),
			LineNumber:     &line,
			CodeSnippet:    &snippet,
			Recommendation: "Use full-width, fluid layouts instead of fixed pixel widths.",
		}, true
	}
	return RawIssue{}, false
}

// visibleText collects text nodes outside script and style elements.
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func spellingIssue(text string) (RawIssue, bool) {
	var found []string
	seen := map[string]bool{}
	for _, w := range wordPattern.FindAllString(text, -1) {
		lw := strings.ToLower(w)
		if us, ok := usSpelling[lw]; ok && !seen[lw] {
			seen[lw] = true
			found = append(found, fmt.Sprintf("%q → %q", lw, us))
		}
	}
	if len(found) == 0 {
		return RawIssue{}, false
	}
	return RawIssue{
		Severity:       string(model.SeverityLow),
		Title:          "Non-US spelling in UI text",
		Description:    "Visible text uses British spelling: " + strings.Join(found, ", ") + ".",
		Recommendation: "Use US spelling throughout the interface.",
	}, true
}

func visualIssues(m *render.VisualMetrics) []RawIssue {
	var issues []RawIssue
	if m.Width > panelWidth {
		issues = append(issues, RawIssue{
			Severity:       string(model.SeverityHigh),
			Title:          "Rendered app overflows the panel",
			Description:    fmt.Sprintf("The rendered page is %dpx wide, wider than the %dpx panel.", m.Width, panelWidth),
			Recommendation: "Remove fixed widths so content fits the panel.",
		})
	}
	if m.WhitespaceRatio < minWhitespace {
		issues = append(issues, RawIssue{
			Severity:       string(model.SeverityMedium),
			Title:          "Cramped layout",
			Description:    fmt.Sprintf("Only %.0f%% of the rendered app is whitespace.", m.WhitespaceRatio*100),
			Recommendation: "Add spacing between sections (24px) and within them (8px).",
		})
	}
	if m.ComplexityLevel == "high" {
		issues = append(issues, RawIssue{
			Severity:       string(model.SeverityMedium),
			Title:          "Visually busy interface",
			Description:    fmt.Sprintf("Visual complexity scores %.2f.", m.ComplexityScore),
			Recommendation: "Simplify the screen: fewer colors, borders and competing elements.",
		})
	}
	if m.ColorDiversity > maxColorDiversity {
		issues = append(issues, RawIssue{
			Severity:       string(model.SeverityLow),
			Title:          "High color diversity",
			Description:    fmt.Sprintf("The rendered app uses %d distinct colors.", m.UniqueColors),
			Recommendation: "Limit the palette to theme colors.",
		})
	}
	if !m.WellBalanced {
		issues = append(issues, RawIssue{
			Severity:       string(model.SeverityLow),
			Title:          "Unbalanced layout",
			Description:    fmt.Sprintf("Layout balance is %.2f; content is concentrated on one side.", m.LayoutBalance),
			Recommendation: "Stack full-width components vertically.",
		})
	}
	return issues
}
