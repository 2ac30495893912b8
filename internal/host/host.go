// Package host answers page-context requests: given the page a user is on,
// return its readable text and title.
package host

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/clarity/internal/extract"
)

// ActionGetPageText asks for the page's readable text and title.
const ActionGetPageText = "getPageText"

// ErrUnknownAction is returned for any action other than ActionGetPageText.
var ErrUnknownAction = errors.New("unknown action")

// Request is the message sent to the page context.
type Request struct {
	Action string `json:"action"`
}

// Response carries the extracted article.
type Response struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

// Host delivers a Request to the context of pageURL.
type Host interface {
	Send(ctx context.Context, pageURL string, req Request) (Response, error)
}

// Fetcher retrieves a page body and its content type.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// FetchHost loads the page over HTTP and runs Extractor on it.
type FetchHost struct {
	Fetcher   Fetcher
	Extractor extract.Extractor
}

func (h *FetchHost) Send(ctx context.Context, pageURL string, req Request) (Response, error) {
	if req.Action != ActionGetPageText {
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	if strings.TrimSpace(pageURL) == "" {
		return Response{}, errors.New("page url is empty")
	}
	body, _, err := h.Fetcher.Get(ctx, pageURL)
	if err != nil {
		return Response{}, fmt.Errorf("load page: %w", err)
	}
	ex := h.Extractor
	if ex == nil {
		ex = extract.SelectorExtractor{}
	}
	doc := ex.Extract(body)
	log.Debug().Str("url", pageURL).Int("bytes", len(body)).Int("text_len", len(doc.Text)).Msg("page extracted")
	return Response{Text: doc.Text, Title: doc.Title}, nil
}

// HTMLHost answers from page HTML that was handed over directly, as a
// content script does when it posts the DOM it sees.
type HTMLHost struct {
	HTML      []byte
	Extractor extract.Extractor
}

func (h *HTMLHost) Send(_ context.Context, _ string, req Request) (Response, error) {
	if req.Action != ActionGetPageText {
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	ex := h.Extractor
	if ex == nil {
		ex = extract.SelectorExtractor{}
	}
	doc := ex.Extract(h.HTML)
	return Response{Text: doc.Text, Title: doc.Title}, nil
}
