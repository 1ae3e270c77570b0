// Package chunker splits document text into overlapping word windows.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidWindow is returned when size and overlap cannot make progress.
var ErrInvalidWindow = errors.New("invalid chunk window")

// Chunk is a contiguous window of words from one document.
type Chunk struct {
	Text      string
	StartWord int
	EndWord   int // exclusive

	// PageNumber is nil when no page marker was found in Text.
	PageNumber *int
}

// Chunker produces fixed-size windows advancing by Size-Overlap words.
type Chunker struct {
	size    int
	overlap int
}

// New validates the window parameters.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidWindow, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidWindow, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the window width in words.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of words shared by consecutive windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the windows for text. Empty or whitespace-only text yields none.
func (c *Chunker) Split(text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]Chunk, 0, len(words)/step+1)
	for i := 0; i < len(words); i += step {
		end := min(i+c.size, len(words))
		body := strings.Join(words[i:end], " ")
		chunks = append(chunks, Chunk{
			Text:       body,
			StartWord:  i,
			EndWord:    end,
			PageNumber: PageNumber(body),
		})
	}
	return chunks
}

var pageMarker = regexp.MustCompile(`---\s*Page\s+([^-]*?)\s*---`)

// PageNumber returns N from the first "--- Page N ---" marker in text.
// Markers that do not carry a plain integer, such as
// "--- Page 4 (fallback extraction) ---", yield nil.
func PageNumber(text string) *int {
	m := pageMarker.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(m[1]))
	if err != nil {
		return nil
	}
	return &n
}
