package analyzer

import (
	"fmt"
	"strings"

	"github.com/raysh454/appreviewer/internal/model"
	"github.com/raysh454/appreviewer/internal/render"
)

const systemPrompt = "You are an expert reviewer of Canva apps. You answer with a single JSON object and nothing else."

// responseSchema is the structured output requested from providers that
// support strict JSON schemas. Strict mode needs every field present, so an
// unknown line is 0 and a missing snippet is empty.
type responseSchema struct {
	Issues          []schemaIssue `json:"issues"`
	Recommendations []string      `json:"recommendations" jsonschema_description:"High-level recommendations"`
}

type schemaIssue struct {
	Severity       string `json:"severity" jsonschema:"enum=critical,enum=high,enum=medium,enum=low"`
	Title          string `json:"title" jsonschema_description:"Brief issue title"`
	Description    string `json:"description"`
	LineNumber     int    `json:"line_number" jsonschema_description:"1-based line number, 0 when unknown"`
	CodeSnippet    string `json:"code_snippet" jsonschema_description:"Relevant code, empty when none"`
	Recommendation string `json:"recommendation" jsonschema_description:"Specific fix recommendation"`
}

const responseFormat = `
Respond with a JSON object in the following format:
{
    "issues": [
        {
            "severity": "critical|high|medium|low",
            "title": "Brief issue title",
            "description": "Detailed description of the issue",
            "line_number": number or null,
            "code_snippet": "relevant code or null",
            "recommendation": "Specific fix recommendation"
        }
    ],
    "recommendations": [
        "High-level recommendation 1",
        "High-level recommendation 2"
    ]
}

Important:
- Only include actual issues found in the code
- Be specific about line numbers when possible
- Provide actionable recommendations
- Focus on the most important issues first
`

var categoryFocus = map[model.Category]string{
	model.CategorySecurity: `As an expert security analyst specializing in Canva app security, analyze this file for vulnerabilities.

Focus EXCLUSIVELY on security issues. Do NOT report code quality, performance or UI/UX concerns.

Check for:
1. Content Security Policy violations: third-party JavaScript or CSS, frames, web workers, the base element, form action attributes.
2. Cross-origin handling: wrong app origin assumptions, missing CORS or preflight handling in backend code.
3. Authentication: backend calls without a Canva JWT, JWTs not sent as Bearer tokens or not verified (aud, brandId, userId).
4. Data security: hardcoded secrets, sensitive data in logs, plain HTTP, unencrypted local storage of sensitive data.
5. Code injection: eval(), Function(), setTimeout with strings, dynamic code from user input.
6. Cross-site scripting: innerHTML, dangerouslySetInnerHTML, unescaped user input.
7. Input validation with security impact: ReDoS-prone expressions, unsafe file uploads.
8. Third-party dependencies: known vulnerable packages, unauthorized external calls.

Severity: critical (immediately exploitable), high (significant risk), medium (moderate concern), low (minor issue).`,

	model.CategoryCodeQuality: `As an expert code quality analyst, analyze this Canva app file ONLY for code quality, performance and maintainability.

Do NOT report security vulnerabilities, UI/UX design issues or accessibility concerns.

Check for:
1. Structure: function and component size, separation of concerns, naming, duplication, import organization.
2. Performance: inefficient algorithms, memory leaks, unnecessary re-renders, blocking work on the main thread, missing memoization.
3. React and TypeScript practice: hook usage, component composition, state management, type safety, list keys.
4. Error handling: missing try/catch, unhandled promise rejections, silent failures.
5. Maintainability: magic numbers, dead or commented-out code, TODOs, complex conditionals.
6. Testability: tight coupling, hidden side effects.
7. Conventions: lint violations, inconsistent formatting, unclear names.
8. Canva SDK usage patterns and app architecture.

Severity: critical (breaks functionality or build), high (significant maintainability impact), medium (moderate impact), low (minor improvement).`,

	model.CategoryUIUX: `As an expert UI/UX analyst specializing in Canva app design, analyze this file for user experience, accessibility and design issues.

Focus EXCLUSIVELY on UI/UX. Do NOT report security or code quality issues.

Check for:
1. Design principles: great defaults, simple enough for non-designers, clear words, human tone.
2. Layout: ~350px app panel, vertical stacking, full-width controls, no horizontal scrolling, no cropped elements, single scrollbar.
3. Typography: Canva Text and Title components, sentence case, no underlining except links.
4. Written content: US spelling, second person, uppercase file extensions, concise language.
5. Color: functional theme colors rather than hard-coded values, dark and light mode.
6. Spacing: 16px panel margins, 8px within sections, 24px between sections, 4px between labels and controls.
7. Accessibility (WCAG 2.1): semantic HTML, ARIA relationships, labels rather than placeholders, keyboard navigation, focus order, alt text.
8. Forms: pre-built form components, label association, clear error states.
9. Error messages: specific, actionable, blame-free.
10. Empty states, mobile behavior and consistency with the Canva design system.

Severity: critical (breaks core usability), high (significant UX impact), medium (moderate friction), low (minor improvement).`,
}

// BuildPrompt renders the prompt for one category. att may be nil.
func BuildPrompt(category model.Category, req model.AnalysisRequest, att *render.Attachment) string {
	var b strings.Builder

	ext := strings.TrimPrefix(req.Metadata.Extension, ".")
	fmt.Fprintf(&b, "You are analyzing a Canva app file for quality, security, and best practices.\n\n")
	fmt.Fprintf(&b, "**File Information:**\n- File Name: %s\n- File Size: %d bytes\n- File Type: %s\n\n",
		req.Metadata.Name, req.Metadata.Size, ext)
	fmt.Fprintf(&b, "**File Content:**\n```%s\n%s\n```\n\n", ext, req.Content)
	b.WriteString("**Context:**\nThis file belongs to a Canva app, which runs sandboxed inside Canva's design platform. " +
		"Apps should follow security best practices, keep code quality high and provide an excellent user experience.\n\n")

	b.WriteString(categoryFocus[category])
	b.WriteString("\n")

	if att != nil {
		b.WriteString("\n**Rendered App:**\nA screenshot of the app rendered in a 350px wide panel is attached. " +
			"Judge the visual result as well as the code.\n")
		if m := att.Metrics; m != nil {
			fmt.Fprintf(&b, "- Dimensions: %dx%d\n- Unique colors: %d (diversity %.3f)\n- Whitespace ratio: %.3f (%s content)\n"+
				"- Edge density: %.3f\n- Layout balance: %.3f\n- Visual complexity: %s (%.3f)\n",
				m.Width, m.Height, m.UniqueColors, m.ColorDiversity, m.WhitespaceRatio, m.ContentDensity,
				m.EdgeDensity, m.LayoutBalance, m.ComplexityLevel, m.ComplexityScore)
		}
	}

	b.WriteString(responseFormat)
	return b.String()
}
