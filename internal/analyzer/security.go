package analyzer

import (
	"context"
	"regexp"

	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/model"
)

var securityRules = []lineRule{
	{
		pattern:        regexp.MustCompile(`\beval\s*\(`),
		severity:       model.SeverityCritical,
		title:          "Code injection via eval()",
		description:    "eval() executes arbitrary strings as code. Any attacker-influenced input reaching it becomes script execution.",
		recommendation: "Replace eval() with explicit parsing such as JSON.parse or a lookup table.",
		advice:         "Remove all dynamic code execution (eval, Function, string timers).",
	},
	{
		pattern:        regexp.MustCompile(`\bnew\s+Function\s*\(`),
		severity:       model.SeverityCritical,
		title:          "Code injection via Function constructor",
		description:    "The Function constructor compiles strings into code at runtime and is equivalent to eval().",
		recommendation: "Define the function statically instead of building it from strings.",
		advice:         "Remove all dynamic code execution (eval, Function, string timers).",
	},
	{
		pattern:        regexp.MustCompile("\\bset(?:Timeout|Interval)\\s*\\(\\s*[\"'`]"),
		severity:       model.SeverityHigh,
		title:          "String evaluated by timer",
		description:    "Passing a string to setTimeout or setInterval evaluates it as code.",
		recommendation: "Pass a function to setTimeout/setInterval instead of a string.",
		advice:         "Remove all dynamic code execution (eval, Function, string timers).",
	},
	{
		pattern:        regexp.MustCompile(`\.(?:inner|outer)HTML\s*\+?=`),
		severity:       model.SeverityHigh,
		title:          "XSS via innerHTML",
		description:    "Assigning markup through innerHTML renders unescaped content and enables cross-site scripting.",
		recommendation: "Use textContent or build nodes with document.createElement.",
		advice:         "Render user-visible content through safe DOM APIs or React's escaping.",
	},
	{
		pattern:        regexp.MustCompile(`dangerouslySetInnerHTML`),
		severity:       model.SeverityHigh,
		title:          "XSS via dangerouslySetInnerHTML",
		description:    "dangerouslySetInnerHTML bypasses React's escaping.",
		recommendation: "Render the content as React children, or sanitize it with a vetted sanitizer first.",
		advice:         "Render user-visible content through safe DOM APIs or React's escaping.",
	},
	{
		pattern:        regexp.MustCompile(`\bdocument\.write(?:ln)?\s*\(`),
		severity:       model.SeverityHigh,
		title:          "Unsafe document.write",
		description:    "document.write injects raw markup into the page.",
		recommendation: "Create elements with DOM APIs instead of writing markup.",
		advice:         "Render user-visible content through safe DOM APIs or React's escaping.",
	},
	{
		pattern:        regexp.MustCompile(`(?i)\b(?:api[_-]?key|secret|client[_-]?secret|access[_-]?token|auth[_-]?token|password|passwd)\b["']?\s*[:=]\s*["'][^"']{8,}["']`),
		severity:       model.SeverityCritical,
		title:          "Hardcoded secret",
		description:    "A credential is embedded in client code, where anyone using the app can read it.",
		recommendation: "Move the secret to the app backend and fetch data through authenticated requests.",
		advice:         "Keep credentials out of frontend bundles.",
	},
	{
		pattern:        regexp.MustCompile(`\b(?:sk-[A-Za-z0-9]{20,}|AKIA[0-9A-Z]{16}|ghp_[A-Za-z0-9]{36})\b`),
		severity:       model.SeverityCritical,
		title:          "Hardcoded secret",
		description:    "A string matching a well-known API key format is embedded in client code.",
		recommendation: "Revoke the key and move it to the app backend.",
		advice:         "Keep credentials out of frontend bundles.",
	},
	{
		pattern:        regexp.MustCompile("[\"'`]http://[^\"'`\\s]+"),
		exclude:        regexp.MustCompile(`http://(?:localhost|127\.0\.0\.1|0\.0\.0\.0)`),
		severity:       model.SeverityMedium,
		title:          "Insecure HTTP URL",
		description:    "Data sent over plain HTTP can be read or modified in transit.",
		recommendation: "Use HTTPS for every external request.",
		advice:         "Serve and request everything over HTTPS.",
		once:           true,
	},
	{
		pattern:        regexp.MustCompile(`(?i)(?:local|session)Storage\.setItem\s*\(\s*["'][^"']*(?:token|jwt|secret|password|auth)`),
		severity:       model.SeverityHigh,
		title:          "Sensitive data in web storage",
		description:    "Tokens or credentials in localStorage/sessionStorage are readable by any script on the page.",
		recommendation: "Keep tokens in memory and request a fresh Canva JWT when needed.",
		advice:         "Request Canva user tokens on demand instead of persisting them.",
	},
	{
		pattern:        regexp.MustCompile(`(?i)<iframe\b|createElement\(\s*["']iframe["']`),
		severity:       model.SeverityHigh,
		title:          "Nested browsing context",
		description:    "Canva apps may not create frames.",
		recommendation: "Remove the iframe and render the content directly.",
		advice:         "Stay within the app sandbox's content security policy.",
	},
	{
		pattern:        regexp.MustCompile(`\bnew\s+(?:Shared)?Worker\s*\(`),
		severity:       model.SeverityMedium,
		title:          "Web worker usage",
		description:    "Canva apps may not start web workers.",
		recommendation: "Move the work to the main thread in small chunks or to the app backend.",
		advice:         "Stay within the app sandbox's content security policy.",
	},
	{
		pattern:        regexp.MustCompile(`(?i)<script[^>]+\bsrc\s*=\s*["']?(?:https?:)?//|\.src\s*=\s*["']https?://[^"']+\.js["']`),
		severity:       model.SeverityHigh,
		title:          "Third-party script loading",
		description:    "Loading JavaScript from third-party sources violates the app content security policy.",
		recommendation: "Bundle the dependency with the app instead of loading it at runtime.",
		advice:         "Stay within the app sandbox's content security policy.",
	},
	{
		pattern:        regexp.MustCompile(`(?i)<link[^>]+rel\s*=\s*["']stylesheet["'][^>]*href\s*=\s*["']https?://`),
		severity:       model.SeverityMedium,
		title:          "External stylesheet",
		description:    "Loading CSS from external origins violates the app content security policy.",
		recommendation: "Bundle styles with the app.",
		advice:         "Stay within the app sandbox's content security policy.",
	},
	{
		pattern:        regexp.MustCompile(`(?i)<base\b`),
		severity:       model.SeverityMedium,
		title:          "Base element usage",
		description:    "The base element is prohibited in Canva apps.",
		recommendation: "Use absolute or module-relative URLs instead.",
		advice:         "Stay within the app sandbox's content security policy.",
	},
	{
		pattern:        regexp.MustCompile(`(?i)<form[^>]*\baction\s*=`),
		severity:       model.SeverityMedium,
		title:          "Form action attribute",
		description:    "Form submissions through the action attribute are prohibited.",
		recommendation: "Handle submission in onSubmit and call preventDefault().",
		advice:         "Stay within the app sandbox's content security policy.",
	},
	{
		pattern:        regexp.MustCompile(`(?i)console\.(?:log|debug|info|warn)\s*\(.*\b(?:token|password|secret|jwt)\b`),
		severity:       model.SeverityMedium,
		title:          "Sensitive data logged",
		description:    "Credentials written to the console can leak through logs and shared screenshots.",
		recommendation: "Remove the log statement or redact the value.",
		advice:         "Keep credentials out of frontend bundles.",
	},
}

const securityCleanAdvice = "No common security anti-patterns detected. Keep verifying Canva JWTs on the backend."

// SecurityAnalyzer flags security anti-patterns with line-based rules. It
// works offline and is the default when no model is configured.
type SecurityAnalyzer struct {
	logger logging.Logger
}

func NewSecurityAnalyzer(logger logging.Logger) *SecurityAnalyzer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &SecurityAnalyzer{logger: logger.With(logging.Field{Key: "component", Value: "security_analyzer"})}
}

func (a *SecurityAnalyzer) Category() model.Category { return model.CategorySecurity }

func (a *SecurityAnalyzer) Name() string { return analyzerName(model.CategorySecurity) }

func (a *SecurityAnalyzer) Analyze(ctx context.Context, req model.AnalysisRequest) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	issues, advice := scanLines(req.Content, securityRules)
	if len(issues) == 0 {
		advice = []string{securityCleanAdvice}
	}
	a.logger.Debug("security scan finished", logging.Field{Key: "issues", Value: len(issues)})
	return &Output{Issues: issues, Recommendations: dedupeStrings(advice)}, nil
}
