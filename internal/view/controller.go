package view

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/clarity/internal/extract"
	"github.com/hyperifyio/clarity/internal/history"
	"github.com/hyperifyio/clarity/internal/host"
	"github.com/hyperifyio/clarity/internal/normalize"
	"github.com/hyperifyio/clarity/internal/summarize"
)

// Summarizer calls the model. summarize.Client satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, text, title string) (string, error)
	AnswerQuestion(ctx context.Context, text, title, question string) (string, error)
}

// Recorder persists finished summaries. history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Controller runs user actions against its collaborators.
type Controller struct {
	Host       host.Host
	Summarizer Summarizer
	History    Recorder
	// OnTransition, when set, observes intermediate states such as loading.
	OnTransition func(State)

	busy atomic.Bool
}

func (c *Controller) publish(st State) {
	if c.OnTransition != nil {
		c.OnTransition(st)
	}
}

// Summarize extracts the page at url, asks the model and normalizes the
// reply. On success the result is recorded in history; on any failure the
// returned state is idle with Error set and the error is returned too.
// A call while another is in flight returns st unchanged and ErrBusy.
func (c *Controller) Summarize(ctx context.Context, st State, url string) (State, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return st, ErrBusy
	}
	defer c.busy.Store(false)

	cycle := uuid.NewString()
	logger := log.With().Str("cycle", cycle).Str("url", url).Logger()

	loading := State{View: Loading, URL: url}
	c.publish(loading)
	logger.Info().Msg("summarize started")

	fail := func(stage string, err error) (State, error) {
		logger.Warn().Err(err).Str("stage", stage).Str("kind", Kind(err)).Msg("summarize failed")
		out := State{View: Idle, URL: url, Error: failure(err)}
		c.publish(out)
		return out, err
	}

	resp, err := c.Host.Send(ctx, url, host.Request{Action: host.ActionGetPageText})
	if err != nil {
		return fail("host", err)
	}
	article := extract.Document{Title: resp.Title, Text: resp.Text}
	readTime := summarize.ReadTime(article.Text)

	raw, err := c.Summarizer.Summarize(ctx, article.Text, article.Title)
	if err != nil {
		return fail("model", err)
	}
	s, err := normalize.Normalize(raw)
	if err != nil {
		return fail("normalize", err)
	}

	if c.History != nil {
		entry := history.Entry{URL: url, Title: article.Title, Summary: s}
		if err := c.History.Record(ctx, entry); err != nil {
			logger.Warn().Err(err).Msg("history record failed")
		}
	}

	out := State{View: Result, URL: url, Article: article, Summary: &s, ReadTime: readTime}
	logger.Info().Int("read_time", readTime).Str("type", s.ArticleType).Msg("summarize finished")
	c.publish(out)
	return out, nil
}

// Redo returns to idle, keeping nothing but the URL.
func (c *Controller) Redo(st State) State {
	out := State{View: Idle, URL: st.URL}
	c.publish(out)
	return out
}

// Select shows a stored entry directly. There is no article text and no
// read time for history results.
func (c *Controller) Select(_ State, e history.Entry) State {
	s := e.Summary.Canonical()
	out := State{
		View:        Result,
		URL:         e.URL,
		Article:     extract.Document{Title: e.Title},
		Summary:     &s,
		FromHistory: true,
	}
	c.publish(out)
	return out
}

// Dismiss clears the error message.
func (c *Controller) Dismiss(st State) State {
	st.Error = nil
	return st
}

// Ask answers a question about the loaded article. Errors are returned with
// their real cause and st is returned unchanged.
func (c *Controller) Ask(ctx context.Context, st State, question string) (State, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return st, ErrEmptyQuestion
	}
	if strings.TrimSpace(st.Article.Text) == "" {
		return st, ErrNoArticle
	}
	answer, err := c.Summarizer.AnswerQuestion(ctx, st.Article.Text, st.Article.Title, question)
	if err != nil {
		log.Warn().Err(err).Str("url", st.URL).Str("kind", Kind(err)).Msg("ask failed")
		return st, err
	}
	st.Question = question
	st.Answer = strings.TrimSpace(answer)
	return st, nil
}

// Busy reports whether a summarize cycle is in flight.
func (c *Controller) Busy() bool { return c.busy.Load() }
