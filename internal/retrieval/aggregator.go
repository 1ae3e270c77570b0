package retrieval

import (
	"context"
	"fmt"
	"slices"
)

// Searcher runs a single query. Retriever implements it.
type Searcher interface {
	Search(ctx context.Context, q Query) (Outcome, error)
}

// Category is a named group of searches merged into one ranked list.
type Category struct {
	Name     string
	Section  string // label used when rendering context
	Searches []Query
}

// Plan lists categories in priority order. Cap bounds each merged list.
type Plan struct {
	Categories []Category
	Cap        int
}

// CategoryResult is one merged, ranked category.
type CategoryResult struct {
	Name    string   `json:"name"`
	Section string   `json:"section"`
	Results []Result `json:"results"`
}

// DegradedSearch records a search that returned nothing because a
// collaborator was unavailable.
type DegradedSearch struct {
	Category string `json:"category"`
	Query    string `json:"query"`
	Source   string `json:"source,omitempty"`
	Err      error  `json:"-"`
}

// Aggregation is the output of one aggregation pass.
type Aggregation struct {
	Categories []CategoryResult `json:"categories"`
	Seen       IDSet            `json:"-"`
	Degraded   []DegradedSearch `json:"degraded,omitempty"`
}

// Category returns the named category, or nil.
func (a *Aggregation) Category(name string) *CategoryResult {
	for i := range a.Categories {
		if a.Categories[i].Name == name {
			return &a.Categories[i]
		}
	}
	return nil
}

// IDSet is a set of chunk ids.
type IDSet map[int64]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s IDSet) Add(id int64) {
	s[id] = struct{}{}
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Aggregator executes a Plan against a Searcher.
type Aggregator struct {
	searcher Searcher
}

// NewAggregator creates an aggregator
func NewAggregator(searcher Searcher) *Aggregator {
	return &Aggregator{searcher: searcher}
}

// Run executes every search sequentially in plan order. A chunk id already
// claimed by an earlier search in this pass, or present in seen, is skipped.
// Each category is then sorted by similarity and cut to plan.Cap; ids cut
// this way still count as seen. seen may be nil; it is not modified.
func (a *Aggregator) Run(ctx context.Context, plan Plan, seen IDSet) (*Aggregation, error) {
	claimed := make(IDSet, len(seen))
	for id := range seen {
		claimed.Add(id)
	}

	agg := &Aggregation{
		Categories: make([]CategoryResult, 0, len(plan.Categories)),
		Seen:       claimed,
	}

	for _, cat := range plan.Categories {
		merged := []Result{}
		for _, q := range cat.Searches {
			out, err := a.searcher.Search(ctx, q)
			if err != nil {
				return nil, fmt.Errorf("%s search %q: %w", cat.Name, q.Text, err)
			}
			if out.Degraded != nil {
				agg.Degraded = append(agg.Degraded, DegradedSearch{
					Category: cat.Name,
					Query:    q.Text,
					Source:   q.Source,
					Err:      out.Degraded,
				})
			}
			for _, r := range out.Results {
				if claimed.Has(r.ID) {
					continue
				}
				claimed.Add(r.ID)
				merged = append(merged, r)
			}
		}

		sortBySimilarity(merged)
		if plan.Cap > 0 && len(merged) > plan.Cap {
			merged = merged[:plan.Cap]
		}
		agg.Categories = append(agg.Categories, CategoryResult{
			Name:    cat.Name,
			Section: cat.Section,
			Results: merged,
		})
	}

	return agg, nil
}
