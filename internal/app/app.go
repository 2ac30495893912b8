package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/clarity/internal/cache"
	"github.com/hyperifyio/clarity/internal/card"
	"github.com/hyperifyio/clarity/internal/export"
	"github.com/hyperifyio/clarity/internal/extract"
	"github.com/hyperifyio/clarity/internal/fetch"
	"github.com/hyperifyio/clarity/internal/history"
	"github.com/hyperifyio/clarity/internal/host"
	"github.com/hyperifyio/clarity/internal/kv"
	"github.com/hyperifyio/clarity/internal/llm"
	"github.com/hyperifyio/clarity/internal/normalize"
	"github.com/hyperifyio/clarity/internal/settings"
	"github.com/hyperifyio/clarity/internal/share"
	"github.com/hyperifyio/clarity/internal/summarize"
	"github.com/hyperifyio/clarity/internal/view"
)

// ErrNotInHistory is returned when a URL has no stored summary.
var ErrNotInHistory = errors.New("no stored summary for that url")

// App wires the stores, the page host and the model client behind one popup
// session. The session State is shared by every caller of the App.
type App struct {
	cfg        Config
	store      kv.Store
	history    *history.Store
	host       host.Host
	extractor  extract.Extractor
	httpClient *http.Client
	llmCache   *cache.LLMCache
	cards      *card.Renderer
	controller *view.Controller

	// newLLM builds a model client for a credential. Tests replace it.
	newLLM func(apiKey string) llm.Client

	mu    sync.Mutex
	state view.State
}

// Option adjusts an App during New.
type Option func(*App)

// WithStore uses s instead of opening the configured backend.
func WithStore(s kv.Store) Option { return func(a *App) { a.store = s } }

// WithHost replaces the page host.
func WithHost(h host.Host) Option { return func(a *App) { a.host = h } }

// WithLLM replaces the model client factory.
func WithLLM(f func(apiKey string) llm.Client) Option { return func(a *App) { a.newLLM = f } }

// New validates cfg and opens everything the App needs.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	ex, err := extract.New(cfg.ExtractStrategy)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:        cfg,
		extractor:  ex,
		httpClient: newHTTPClient(cfg.LLMTimeout + 30*time.Second),
		cards:      &card.Renderer{Choose: card.NewChooser(cfg.CardSeed)},
		state:      view.Initial(),
	}
	for _, o := range opts {
		o(a)
	}

	var httpCache *cache.HTTPCache
	if strings.TrimSpace(cfg.CacheDir) != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge, time.Now())
			if err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("cache entries purged")
			}
		}
		httpCache = &cache.HTTPCache{Dir: filepath.Join(cfg.CacheDir, "http"), StrictPerms: cfg.CacheStrictPerms}
		if cfg.LLMCache {
			a.llmCache = &cache.LLMCache{Dir: filepath.Join(cfg.CacheDir, "llm"), StrictPerms: cfg.CacheStrictPerms}
		}
	}

	if a.store == nil {
		s, err := kv.Open(ctx, kv.Options{
			Backend:       cfg.StoreBackend,
			Dir:           cfg.StoreDir,
			StrictPerms:   cfg.CacheStrictPerms,
			SQLitePath:    sqlitePath(cfg),
			RedisAddr:     cfg.RedisAddr,
			RedisPassword: cfg.RedisPassword,
			RedisDB:       cfg.RedisDB,
			RedisPrefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = s
	}
	a.history = history.New(a.store)

	if a.host == nil {
		ua := cfg.UserAgent
		if ua == "" {
			ua = UserAgent()
		}
		a.host = &host.FetchHost{
			Fetcher: &fetch.Client{
				HTTPClient:        a.httpClient,
				UserAgent:         ua,
				MaxAttempts:       cfg.FetchAttempts,
				PerRequestTimeout: cfg.FetchTimeout,
				Cache:             httpCache,
				MaxBodyBytes:      cfg.MaxBodyBytes,
			},
			Extractor: ex,
		}
	}
	if a.newLLM == nil {
		a.newLLM = func(apiKey string) llm.Client {
			return llm.NewOpenAI(apiKey, cfg.LLMBaseURL, a.httpClient)
		}
	}

	a.controller = &view.Controller{
		Host:         a.host,
		Summarizer:   &keyedSummarizer{app: a},
		History:      a.history,
		OnTransition: a.setState,
	}
	log.Debug().Str("store", cfg.StoreBackend).Str("extract", cfg.ExtractStrategy).Str("model", a.model()).Msg("app ready")
	return a, nil
}

func sqlitePath(cfg Config) string {
	if cfg.SQLitePath != "" {
		return cfg.SQLitePath
	}
	return filepath.Join(cfg.StoreDir, "clarity.db")
}

// Close releases the store.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *App) model() string {
	if strings.TrimSpace(a.cfg.LLMModel) == "" {
		return summarize.DefaultModel
	}
	return a.cfg.LLMModel
}

func (a *App) setState(st view.State) {
	a.mu.Lock()
	a.state = st
	a.mu.Unlock()
}

// State returns the current session state.
func (a *App) State() view.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// keyedSummarizer resolves the credential on every call so a key saved in
// settings takes effect without a restart.
type keyedSummarizer struct {
	app *App
}

func (k *keyedSummarizer) client(ctx context.Context) *summarize.Client {
	a := k.app
	s, err := settings.Load(ctx, a.store)
	if err != nil {
		log.Warn().Err(err).Msg("settings load failed; using configured key only")
	}
	key := settings.EffectiveKey(a.cfg.LLMAPIKey, s)
	return &summarize.Client{
		LLM:            a.newLLM(key),
		APIKey:         key,
		Model:          a.cfg.LLMModel,
		Timeout:        a.cfg.LLMTimeout,
		Cache:          a.llmCache,
		SummaryPrompt:  a.cfg.SummaryPrompt,
		QuestionPrompt: a.cfg.QuestionPrompt,
	}
}

func (k *keyedSummarizer) Summarize(ctx context.Context, text, title string) (string, error) {
	return k.client(ctx).Summarize(ctx, text, title)
}

func (k *keyedSummarizer) AnswerQuestion(ctx context.Context, text, title, question string) (string, error) {
	return k.client(ctx).AnswerQuestion(ctx, text, title, question)
}

// Summarize runs a summarize cycle for url against the session.
func (a *App) Summarize(ctx context.Context, url string) (view.State, error) {
	st, err := a.controller.Summarize(ctx, a.State(), strings.TrimSpace(url))
	if errors.Is(err, view.ErrBusy) {
		return a.State(), err
	}
	a.setState(st)
	return st, err
}

// Redo returns the session to idle.
func (a *App) Redo() view.State {
	st := a.controller.Redo(a.State())
	a.setState(st)
	return st
}

// Dismiss clears the session error.
func (a *App) Dismiss() view.State {
	st := a.controller.Dismiss(a.State())
	a.setState(st)
	return st
}

// Ask answers a question about the session article.
func (a *App) Ask(ctx context.Context, question string) (view.State, error) {
	st, err := a.controller.Ask(ctx, a.State(), question)
	if err != nil {
		return st, err
	}
	a.setState(st)
	return st, nil
}

// History lists stored summaries, newest first.
func (a *App) History(ctx context.Context) ([]history.Entry, error) {
	return a.history.List(ctx)
}

// ClearHistory removes every stored summary.
func (a *App) ClearHistory(ctx context.Context) error {
	return a.history.Clear(ctx)
}

// SelectHistory shows the stored summary for url.
func (a *App) SelectHistory(ctx context.Context, url string) (view.State, error) {
	e, ok, err := a.history.Find(ctx, url)
	if err != nil {
		return a.State(), err
	}
	if !ok {
		return a.State(), fmt.Errorf("%w: %s", ErrNotInHistory, url)
	}
	st := a.controller.Select(a.State(), e)
	a.setState(st)
	return st, nil
}

// Load shows a summary for url: the stored one unless refresh is set or
// none exists, else a fresh summarize cycle.
func (a *App) Load(ctx context.Context, url string, refresh bool) (view.State, error) {
	if !refresh {
		st, err := a.SelectHistory(ctx, url)
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, ErrNotInHistory) {
			return st, err
		}
	}
	return a.Summarize(ctx, url)
}

func (a *App) current() (view.State, error) {
	st := a.State()
	if st.View != view.Result || st.Summary == nil {
		return st, view.ErrNoSummary
	}
	return st, nil
}

// CardPNG renders the share card of the current result.
func (a *App) CardPNG() ([]byte, error) {
	st, err := a.current()
	if err != nil {
		return nil, err
	}
	return a.renderCard(st)
}

func (a *App) renderCard(st view.State) ([]byte, error) {
	img, err := a.cards.Render(*st.Summary, st.URL)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := card.EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ShareLinks are the outbound links of the current result.
type ShareLinks struct {
	TweetText string            `json:"tweetText"`
	TweetURL  string            `json:"tweetUrl"`
	Search    map[string]string `json:"search"`
}

// Share builds the tweet intent and a search link per tag and entity.
func (a *App) Share() (ShareLinks, error) {
	st, err := a.current()
	if err != nil {
		return ShareLinks{}, err
	}
	s := *st.Summary
	links := ShareLinks{TweetText: share.TweetText(s), TweetURL: share.TweetURL(s), Search: map[string]string{}}
	for _, t := range s.Tags {
		links.Search[t] = share.SearchURL(t)
	}
	for _, group := range [][]string{names(s.Entities.People), names(s.Entities.Companies), names(s.Entities.Products)} {
		for _, n := range group {
			links.Search[n] = share.SearchURL(n)
		}
	}
	return links, nil
}

// ExportPDF writes the current result, with its card, as PDF.
func (a *App) ExportPDF(w io.Writer) error {
	st, err := a.current()
	if err != nil {
		return err
	}
	png, err := a.renderCard(st)
	if err != nil {
		return err
	}
	e := history.Entry{URL: st.URL, Title: st.Article.Title, Summary: *st.Summary, Timestamp: time.Now().UnixMilli()}
	return export.WritePDF(w, e, png)
}

// Settings returns the stored settings.
func (a *App) Settings(ctx context.Context) (settings.Settings, error) {
	return settings.Load(ctx, a.store)
}

// UpdateSettings applies p to the stored settings and saves them.
func (a *App) UpdateSettings(ctx context.Context, p settings.Patch) (settings.Settings, error) {
	cur, err := settings.Load(ctx, a.store)
	if err != nil {
		return cur, err
	}
	next := p.Apply(cur)
	if err := settings.Save(ctx, a.store, next); err != nil {
		return cur, err
	}
	return next, nil
}

// Badges is the result meta row of the current state under stored settings.
func (a *App) Badges(ctx context.Context) ([]view.Badge, error) {
	s, err := a.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return view.Badges(a.State(), s), nil
}

// Message delivers a host request for pageURL. With html set the page is
// taken from it instead of being loaded.
func (a *App) Message(ctx context.Context, pageURL string, req host.Request, html []byte) (host.Response, error) {
	if len(html) > 0 {
		h := &host.HTMLHost{HTML: html, Extractor: a.extractor}
		return h.Send(ctx, pageURL, req)
	}
	return a.host.Send(ctx, pageURL, req)
}

func names(list []normalize.Entity) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Name)
	}
	return out
}
