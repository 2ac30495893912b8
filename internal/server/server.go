// Package server exposes a Clarity session over HTTP for a browser popup or
// any other local client.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/clarity/internal/app"
	"github.com/hyperifyio/clarity/internal/history"
	"github.com/hyperifyio/clarity/internal/host"
	"github.com/hyperifyio/clarity/internal/settings"
	"github.com/hyperifyio/clarity/internal/view"
)

// maxRequestBody caps JSON bodies, including page HTML posted to /api/message.
const maxRequestBody = 4 << 20

// Session is the part of app.App the handlers use.
type Session interface {
	State() view.State
	Summarize(ctx context.Context, url string) (view.State, error)
	Load(ctx context.Context, url string, refresh bool) (view.State, error)
	Redo() view.State
	Dismiss() view.State
	Ask(ctx context.Context, question string) (view.State, error)
	History(ctx context.Context) ([]history.Entry, error)
	ClearHistory(ctx context.Context) error
	SelectHistory(ctx context.Context, url string) (view.State, error)
	CardPNG() ([]byte, error)
	Share() (app.ShareLinks, error)
	ExportPDF(w io.Writer) error
	Settings(ctx context.Context) (settings.Settings, error)
	UpdateSettings(ctx context.Context, p settings.Patch) (settings.Settings, error)
	Badges(ctx context.Context) ([]view.Badge, error)
	Message(ctx context.Context, pageURL string, req host.Request, html []byte) (host.Response, error)
}

type server struct {
	session Session
	metrics *metrics
	now     func() time.Time
}

// New returns the router with every route and /metrics mounted.
func New(s Session) http.Handler {
	srv := &server{session: s, metrics: newMetrics(), now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(srv.metrics.middleware)

	r.Get("/health", srv.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(srv.metrics.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", srv.handleState)
		r.Post("/summarize", srv.handleSummarize)
		r.Post("/redo", srv.handleRedo)
		r.Post("/dismiss", srv.handleDismiss)
		r.Post("/ask", srv.handleAsk)
		r.Get("/history", srv.handleHistory)
		r.Delete("/history", srv.handleClearHistory)
		r.Post("/history/select", srv.handleSelect)
		r.Get("/card.png", srv.handleCard)
		r.Get("/share", srv.handleShare)
		r.Get("/export.pdf", srv.handleExport)
		r.Get("/settings", srv.handleSettings)
		r.Put("/settings", srv.handleUpdateSettings)
		r.Post("/message", srv.handleMessage)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// stateResponse is a session state plus the meta badges it renders with.
type stateResponse struct {
	view.State
	Badges []view.Badge `json:"badges"`
}

// historyItem is a stored entry in its wire form plus a relative time.
func historyItem(e history.Entry, now time.Time) (map[string]any, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var item map[string]any
	if err := json.Unmarshal(b, &item); err != nil {
		return nil, err
	}
	item["ago"] = view.RelativeTime(e.Time(), now)
	return item, nil
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, r, s.session.State())
}

func (s *server) writeState(w http.ResponseWriter, r *http.Request, st view.State) {
	badges, err := s.session.Badges(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("badges unavailable")
	}
	if badges == nil {
		badges = []view.Badge{}
	}
	writeJSON(w, http.StatusOK, stateResponse{State: st, Badges: badges})
}

type summarizeRequest struct {
	URL string `json:"url"`
	// UseHistory shows a stored summary for URL when one exists.
	UseHistory bool `json:"useHistory"`
}

func (s *server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url is required", Kind: view.KindInvalid})
		return
	}
	start := s.now()
	var (
		st  view.State
		err error
	)
	if req.UseHistory {
		st, err = s.session.Load(r.Context(), req.URL, false)
	} else {
		st, err = s.session.Summarize(r.Context(), req.URL)
	}
	s.metrics.observeSummary(err, s.now().Sub(start))
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeState(w, r, st)
}

func (s *server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, r, s.session.Redo())
}

func (s *server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, r, s.session.Dismiss())
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := s.session.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"question": st.Question, "answer": st.Answer})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	list, err := s.session.History(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	now := s.now()
	out := make([]map[string]any, 0, len(list))
	for _, e := range list {
		item, err := historyItem(e, now)
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ClearHistory(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectRequest struct {
	URL string `json:"url"`
}

func (s *server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := s.session.SelectHistory(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeState(w, r, st)
}

func (s *server) handleCard(w http.ResponseWriter, r *http.Request) {
	b, err := s.session.CardPNG()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="clarity-summary.png"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	_, _ = w.Write(b)
}

func (s *server) handleShare(w http.ResponseWriter, r *http.Request) {
	links, err := s.session.Share()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.session.ExportPDF(&buf); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="clarity-summary.pdf"`)
	_, _ = buf.WriteTo(w)
}

func (s *server) handleSettings(w http.ResponseWriter, r *http.Request) {
	set, err := s.session.Settings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set.Masked())
}

func (s *server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var p settings.Patch
	if !decode(w, r, &p) {
		return
	}
	set, err := s.session.UpdateSettings(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set.Masked())
}

type messageRequest struct {
	URL    string `json:"url"`
	Action string `json:"action"`
	HTML   string `json:"html,omitempty"`
}

func (s *server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := s.session.Message(r.Context(), req.URL, host.Request{Action: req.Action}, []byte(req.HTML))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error(), Kind: view.KindInvalid})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, app.ErrNotInHistory) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Kind: view.KindInvalid})
		return
	}
	if errors.Is(err, host.ErrUnknownAction) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: view.KindInvalid})
		return
	}
	kind := view.Kind(err)
	writeJSON(w, statusFor(kind), errorResponse{Error: err.Error(), Kind: kind})
}

func statusFor(kind string) int {
	switch kind {
	case view.KindConfiguration, view.KindInvalid:
		return http.StatusBadRequest
	case view.KindAPI, view.KindHost:
		return http.StatusBadGateway
	case view.KindTransport:
		return http.StatusGatewayTimeout
	case view.KindParse:
		return http.StatusUnprocessableEntity
	case view.KindBusy:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Debug().Err(err).Msg("write response failed")
	}
}
