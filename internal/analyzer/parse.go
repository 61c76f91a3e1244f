package analyzer

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// ParsingErrorRecommendation replaces the recommendations of a response that
// could not be decoded.
const ParsingErrorRecommendation = "[high] Analysis parsing error: The analysis could not be properly parsed. Please try again."

var (
	fencePattern  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

type llmIssue struct {
	Severity       string          `json:"severity"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	LineNumber     json.RawMessage `json:"line_number"`
	CodeSnippet    *string         `json:"code_snippet"`
	Recommendation string          `json:"recommendation"`
}

type llmResponse struct {
	Issues          []llmIssue        `json:"issues"`
	Recommendations []json.RawMessage `json:"recommendations"`
}

type llmRecommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// ParseResponse extracts an Output from free-form model text. Code fences are
// stripped and the outermost JSON object is decoded. Text that does not decode
// yields no issues and a single parsing-error recommendation; it is not an
// error.
func ParseResponse(text string) *Output {
	body := text
	if m := fencePattern.FindStringSubmatch(body); m != nil {
		body = m[1]
	}
	if m := objectPattern.FindString(body); m != "" {
		body = m
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return parsingFailure()
	}

	out := &Output{
		Issues:          make([]RawIssue, 0, len(resp.Issues)),
		Recommendations: make([]string, 0, len(resp.Recommendations)),
	}
	for _, is := range resp.Issues {
		out.Issues = append(out.Issues, RawIssue{
			Severity:       is.Severity,
			Title:          is.Title,
			Description:    is.Description,
			LineNumber:     parseLine(is.LineNumber),
			CodeSnippet:    is.CodeSnippet,
			Recommendation: is.Recommendation,
		})
	}
	for _, raw := range resp.Recommendations {
		if r := recommendationText(raw); r != "" {
			out.Recommendations = append(out.Recommendations, r)
		}
	}
	return out
}

func parsingFailure() *Output {
	return &Output{
		Issues:          []RawIssue{},
		Recommendations: []string{ParsingErrorRecommendation},
	}
}

// parseLine accepts a number, a numeric string or null.
func parseLine(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		v := int(n)
		return &v
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return &v
		}
	}
	return nil
}

// recommendationText flattens a recommendation that is either a plain string
// or an object with title, description and priority.
func recommendationText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var rec llmRecommendation
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ""
	}
	text := strings.TrimSpace(rec.Title)
	if d := strings.TrimSpace(rec.Description); d != "" {
		if text != "" {
			text += ": " + d
		} else {
			text = d
		}
	}
	if text == "" {
		return ""
	}
	if p := strings.ToLower(strings.TrimSpace(rec.Priority)); p != "" {
		text = "[" + p + "] " + text
	}
	return text
}
