package extract

import (
	"bytes"
	"fmt"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"
)

// Extractor defines a minimal interface for content extraction strategies.
// Implementations can swap readability tactics without changing callers.
type Extractor interface {
	// Extract converts raw HTML bytes into a Document. It never fails;
	// unusable input yields an empty Document.
	Extract(input []byte) Document
}

// SelectorExtractor runs the priority selector cascade of FromHTML.
type SelectorExtractor struct{}

func (SelectorExtractor) Extract(input []byte) Document {
	return FromHTML(input)
}

// ReadabilityExtractor scores the DOM with go-readability and falls back to
// the selector cascade when readability finds nothing.
type ReadabilityExtractor struct{}

func (ReadabilityExtractor) Extract(input []byte) Document {
	article, err := readability.FromReader(bytes.NewReader(input), nil)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		if err != nil {
			log.Debug().Err(err).Msg("readability failed; using selectors")
		}
		return FromHTML(input)
	}
	title := collapseSpaces(article.Title)
	if title == "" {
		title = FromHTML(input).Title
	}
	return Document{Title: title, Text: Normalize(article.TextContent)}
}

// New returns the extractor for a strategy name. Empty means "selectors".
func New(strategy string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", "selectors":
		return SelectorExtractor{}, nil
	case "readability":
		return ReadabilityExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown extract strategy %q", strategy)
	}
}
