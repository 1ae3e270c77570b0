package retrieval

import (
	"fmt"
	"math"
	"strings"
)

// DisplaySimilarity rounds s to 3 decimals for output only.
func DisplaySimilarity(s float64) float64 {
	return math.Round(s*1000) / 1000
}

// DisplayResults returns a copy of results with similarities rounded for
// output. Ranking is unaffected.
func DisplayResults(results []Result) []Result {
	out := make([]Result, len(results))
	for i, r := range results {
		r.Similarity = DisplaySimilarity(r.Similarity)
		out[i] = r
	}
	return out
}

// FormatCategory renders a category as numbered source blocks for a prompt.
func FormatCategory(c CategoryResult) string {
	if len(c.Results) == 0 {
		return fmt.Sprintf("No specific %s information found.", c.Section)
	}

	parts := make([]string, 0, len(c.Results))
	for i, r := range c.Results {
		parts = append(parts, fmt.Sprintf("[%s Source %d - %s (Page %s)]\n%s",
			c.Section, i+1, titleOrUnknown(r.SourceTitle), pageLabel(r.PageNumber), r.Text))
	}
	return strings.Join(parts, "\n\n")
}

// FormatSources renders single-query results as the chat context block.
func FormatSources(results []Result) string {
	parts := make([]string, 0, len(results))
	for i, r := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "[Source %d [Book: %s]", i+1, titleOrUnknown(r.SourceTitle))
		if r.PageNumber != nil {
			fmt.Fprintf(&b, " (Page %d)", *r.PageNumber)
		}
		b.WriteString("]\n")
		b.WriteString(r.Text)
		b.WriteString("\n")
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n---\n")
}

func titleOrUnknown(title string) string {
	if title == "" {
		return "Unknown"
	}
	return title
}

func pageLabel(page *int) string {
	if page == nil {
		return "?"
	}
	return fmt.Sprint(*page)
}
