package mcpserver

import (
	"github.com/DreamCats/medindex/internal/retrieval"
	"github.com/DreamCats/medindex/internal/store"
)

// SearchInput defines inputs for the medindex_search MCP tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"clinical question or search text"`
	Book  string `json:"book,omitempty" jsonschema:"exact book title, 'auto' to route by keywords, empty for all books"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to return"`
}

// SearchOutput is the output for medindex_search.
type SearchOutput struct {
	Query    string             `json:"query"`
	Book     string             `json:"book,omitempty"`
	Count    int                `json:"count"`
	Results  []retrieval.Result `json:"results"`
	Context  string             `json:"context,omitempty"`
	Degraded string             `json:"degraded,omitempty"`
}

// BooksInput defines inputs for the medindex_books MCP tool.
type BooksInput struct{}

// BooksOutput is the output for medindex_books.
type BooksOutput struct {
	Count int            `json:"count"`
	Books []store.Source `json:"books"`
}

// ReportInput defines inputs for the medindex_report MCP tool.
type ReportInput struct {
	Diagnosis    string `json:"diagnosis,omitempty" jsonschema:"primary diagnosis (optional)"`
	VentSettings string `json:"vent_settings,omitempty" jsonschema:"ventilator settings, if ventilated"`
	Drips        string `json:"drips,omitempty" jsonschema:"continuous infusions"`
	Medications  string `json:"medications,omitempty" jsonschema:"scheduled medications"`
}

// ReportCategory is one rendered category of a report.
type ReportCategory struct {
	Name    string             `json:"name"`
	Section string             `json:"section"`
	Count   int                `json:"count"`
	Results []retrieval.Result `json:"results"`
	Context string             `json:"context"`
}

// ReportOutput is the output for medindex_report.
type ReportOutput struct {
	Categories []ReportCategory `json:"categories"`
	Degraded   []string         `json:"degraded,omitempty"`
}
