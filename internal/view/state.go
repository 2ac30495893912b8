// Package view drives the popup state machine: idle, loading and result.
// Every transition returns a new State; a State is never modified in place.
package view

import (
	"errors"
	"fmt"
	"time"

	"github.com/hyperifyio/clarity/internal/extract"
	"github.com/hyperifyio/clarity/internal/normalize"
	"github.com/hyperifyio/clarity/internal/summarize"
)

// View names the visible panel.
type View string

const (
	Idle    View = "idle"
	Loading View = "loading"
	Result  View = "result"
)

// Failure is the dismissible error message shown after a failed action.
type Failure struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// State is one snapshot of the popup.
type State struct {
	View View `json:"view"`
	URL  string `json:"url,omitempty"`
	// Article is the extracted page; empty when the result came from history.
	Article     extract.Document   `json:"article"`
	Summary     *normalize.Summary `json:"summary,omitempty"`
	ReadTime    int                `json:"readTime,omitempty"`
	FromHistory bool               `json:"fromHistory,omitempty"`
	Error       *Failure           `json:"error,omitempty"`
	Question    string             `json:"question,omitempty"`
	Answer      string             `json:"answer,omitempty"`
}

// Initial is the idle state with nothing loaded.
func Initial() State { return State{View: Idle} }

// Sentinel errors for rejected actions.
var (
	ErrBusy          = errors.New("a summary is already in progress")
	ErrNoArticle     = errors.New("no article text loaded; summarize the page first")
	ErrEmptyQuestion = errors.New("question is empty")
	ErrNoSummary     = errors.New("no summary loaded")
)

// Error kinds reported to clients.
const (
	KindConfiguration = "configuration"
	KindAPI           = "api"
	KindTransport     = "transport"
	KindParse         = "parse"
	KindBusy          = "busy"
	KindInvalid       = "invalid"
	KindHost          = "host"
)

// Kind classifies err for display and status mapping.
func Kind(err error) string {
	var (
		cfgErr   *summarize.ConfigurationError
		apiErr   *summarize.APIError
		tErr     *summarize.TransportError
		parseErr *normalize.ParseError
	)
	switch {
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &apiErr):
		return KindAPI
	case errors.As(err, &tErr):
		return KindTransport
	case errors.As(err, &parseErr):
		return KindParse
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrNoArticle), errors.Is(err, ErrEmptyQuestion), errors.Is(err, ErrNoSummary):
		return KindInvalid
	default:
		return KindHost
	}
}

func failure(err error) *Failure {
	return &Failure{Message: err.Error(), Kind: Kind(err)}
}

// RelativeTime renders ts the way the history list does: "just now",
// "5m ago", "3h ago", then a short date such as "Mar 4".
func RelativeTime(ts, now time.Time) string {
	mins := int(now.Sub(ts) / time.Minute)
	switch {
	case mins < 1:
		return "just now"
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case mins < 1440:
		return fmt.Sprintf("%dh ago", mins/60)
	default:
		return ts.Format("Jan 2")
	}
}
