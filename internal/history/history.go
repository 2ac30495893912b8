// Package history keeps the bounded list of past summaries, newest first,
// with at most one entry per article URL.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/clarity/internal/kv"
	"github.com/hyperifyio/clarity/internal/normalize"
)

const (
	// Slot is the storage key holding the whole list.
	Slot = "clarityHistory"
	// Limit is the maximum number of kept entries.
	Limit = 15
)

// Entry is one stored summary.
type Entry struct {
	URL     string
	Title   string
	Summary normalize.Summary
	// Timestamp is unix milliseconds.
	Timestamp int64
}

// Time returns the entry timestamp.
func (e Entry) Time() time.Time { return time.UnixMilli(e.Timestamp) }

type wireEntry struct {
	Title        string             `json:"title"`
	URL          string             `json:"url"`
	TLDR         string             `json:"tldr"`
	Type         string             `json:"type"`
	Tone         normalize.Tone     `json:"tone"`
	Tags         []string           `json:"tags"`
	KeyTakeaways []string           `json:"key_takeaways"`
	Entities     normalize.Entities `json:"entities"`
	Date         int64              `json:"date"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	s := e.Summary.Canonical()
	return json.Marshal(wireEntry{
		Title:        e.Title,
		URL:          e.URL,
		TLDR:         s.TLDR,
		Type:         s.ArticleType,
		Tone:         s.Tone,
		Tags:         s.Tags,
		KeyTakeaways: s.KeyTakeaways,
		Entities:     s.Entities,
		Date:         e.Timestamp,
	})
}

// UnmarshalJSON accepts stored entries of any vintage; the summary fields go
// through the same normalization as a fresh model reply.
func (e *Entry) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return err
	}
	if obj == nil {
		return fmt.Errorf("history entry is not an object")
	}
	str := func(k string) string {
		s, _ := obj[k].(string)
		return s
	}
	*e = Entry{URL: str("url"), Title: str("title"), Summary: normalize.FromMap(obj)}
	if n, ok := obj["date"].(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			e.Timestamp = i
		} else if f, err := n.Float64(); err == nil {
			e.Timestamp = int64(f)
		}
	}
	return nil
}

// Store is the history list persisted in one kv slot. Every mutation is a
// read-modify-write of the whole list under mu.
type Store struct {
	KV  kv.Store
	Now func() time.Time

	mu sync.Mutex
}

// New returns a Store over s.
func New(s kv.Store) *Store {
	return &Store{KV: s}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Record upserts e by URL at the front of the list and trims to Limit. A
// zero Timestamp is set to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.URL) == "" {
		return fmt.Errorf("history entry needs a url")
	}
	if e.Timestamp == 0 {
		e.Timestamp = s.now().UnixMilli()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	out := make([]Entry, 0, len(list)+1)
	out = append(out, e)
	for _, h := range list {
		if h.URL != e.URL {
			out = append(out, h)
		}
	}
	if len(out) > Limit {
		out = out[:Limit]
	}
	return s.save(ctx, out)
}

// List returns the entries, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Find returns the entry for url.
func (s *Store) Find(ctx context.Context, url string) (Entry, bool, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range list {
		if e.URL == url {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.KV.Delete(ctx, Slot)
}

func (s *Store) load(ctx context.Context) ([]Entry, error) {
	raw, ok, err := s.KV.Get(ctx, Slot)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return []Entry{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Warn().Err(err).Msg("history slot unreadable; starting empty")
		return []Entry{}, nil
	}
	list := make([]Entry, 0, len(items))
	for _, item := range items {
		var e Entry
		if err := json.Unmarshal(item, &e); err != nil || e.URL == "" {
			continue
		}
		list = append(list, e)
	}
	return list, nil
}

func (s *Store) save(ctx context.Context, list []Entry) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	if err := s.KV.Set(ctx, Slot, b); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
