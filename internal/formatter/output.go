// Package formatter renders analysis reports for the command line.
package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/raysh454/appreviewer/internal/model"
)

const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats lists the accepted output formats.
func Formats() []string { return []string{FormatHuman, FormatJSON, FormatYAML} }

// ValidFormat reports whether f is one of Formats.
func ValidFormat(f string) bool {
	for _, v := range Formats() {
		if f == v {
			return true
		}
	}
	return false
}

// DisplayReport writes report to w in the requested format. Unknown formats
// fall back to human output.
func DisplayReport(w io.Writer, report *model.AnalysisReport, format string) error {
	switch format {
	case FormatJSON:
		return displayJSON(w, report)
	case FormatYAML:
		return displayYAML(w, report)
	case FormatHuman:
		fallthrough
	default:
		displayHuman(w, report)
	}
	return nil
}

func displayJSON(w io.Writer, report *model.AnalysisReport) error {
	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func displayYAML(w io.Writer, report *model.AnalysisReport) error {
	output, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, string(output))
	return err
}

func displayHuman(w io.Writer, report *model.AnalysisReport) {
	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	cyan.Fprintf(w, "ANALYSIS REPORT: %s\n", report.FileName)
	fmt.Fprintf(w, "   %s\n\n", report.Summary)

	scoreColor(report.OverallScore).Fprintf(w, "OVERALL SCORE: %d/100\n", report.OverallScore)
	for _, c := range model.Categories() {
		b, ok := report.ScoreBreakdown[c]
		if !ok {
			continue
		}
		line := fmt.Sprintf("   %-13s %3d  (weight %.2f, %d issue(s))", c.Title(), b.Score, b.Weight, b.IssueCount)
		if b.Error != "" {
			line += "  " + color.RedString("failed: %s", b.Error)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	if len(report.Issues) > 0 {
		yellow.Fprintf(w, "ISSUES FOUND (%d, %d critical, %d high):\n", report.TotalIssues, report.CriticalIssues, report.HighIssues)
		for i, is := range report.Issues {
			sev := severityColor(is.Severity).Sprintf("[%s]", strings.ToUpper(string(is.Severity)))
			fmt.Fprintf(w, "   %d. %s %s%s\n", i+1, sev, is.Title, location(is))
			if is.Description != "" {
				fmt.Fprintln(w, wrapText(is.Description, 80, "      "))
			}
			if is.CodeSnippet != nil {
				fmt.Fprintf(w, "      Code: %s\n", color.YellowString(firstLine(*is.CodeSnippet)))
			}
			if is.Recommendation != "" {
				fmt.Fprintf(w, "      Fix: %s\n", color.GreenString(is.Recommendation))
			}
			fmt.Fprintln(w)
		}
	}

	if len(report.Recommendations) > 0 {
		white.Fprintln(w, "RECOMMENDATIONS:")
		for _, r := range report.Recommendations {
			fmt.Fprintf(w, "   %s\n", r)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "%s\n", color.HiBlackString("Analyzed in %.2fs. Run with -o json or -o yaml for machine-readable output", report.DurationSeconds))
}

func location(is model.Issue) string {
	var parts []string
	if is.LineNumber != nil {
		parts = append(parts, fmt.Sprintf("line %d", *is.LineNumber))
	}
	if len(is.Categories) > 0 {
		names := make([]string, len(is.Categories))
		for i, c := range is.Categories {
			names[i] = string(c)
		}
		parts = append(parts, strings.Join(names, ", "))
	}
	if len(parts) == 0 {
		return ""
	}
	return color.HiBlackString(" (%s)", strings.Join(parts, "; "))
}

func scoreColor(score int) *color.Color {
	switch {
	case score >= 80:
		return color.New(color.FgGreen, color.Bold)
	case score >= 60:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func severityColor(s model.Severity) *color.Color {
	switch s {
	case model.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case model.SeverityHigh:
		return color.New(color.FgRed)
	case model.SeverityMedium:
		return color.New(color.FgYellow)
	case model.SeverityLow:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		current := indent
		for _, word := range words {
			switch {
			case len(current)+len(word)+1 > width && current != indent:
				result.WriteString(current + "\n")
				current = indent + word
			case current == indent:
				current += word
			default:
				current += " " + word
			}
		}
		if current != indent {
			result.WriteString(current + "\n")
		}
	}
	return strings.TrimSuffix(result.String(), "\n")
}
