package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/clarity/internal/kv"
	"github.com/hyperifyio/clarity/internal/normalize"
)

func entry(url, tldr string) Entry {
	return Entry{URL: url, Title: "T " + url, Summary: normalize.Summary{TLDR: tldr}}
}

func TestRecordUpsertsAtFront(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemoryStore())
	require.NoError(t, s.Record(ctx, entry("https://a", "first")))
	require.NoError(t, s.Record(ctx, entry("https://b", "second")))
	require.NoError(t, s.Record(ctx, entry("https://a", "again")))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "https://a", list[0].URL)
	require.Equal(t, "again", list[0].Summary.TLDR)
	require.Equal(t, "https://b", list[1].URL)
}

func TestRecordKeepsLimit(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemoryStore())
	for i := 0; i < Limit+5; i++ {
		require.NoError(t, s.Record(ctx, entry(fmt.Sprintf("https://x/%d", i), "t")))
	}
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, Limit)
	require.Equal(t, fmt.Sprintf("https://x/%d", Limit+4), list[0].URL)
	require.Equal(t, "https://x/5", list[Limit-1].URL)
}

func TestRecordSetsTimestamp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(kv.NewMemoryStore())
	s.Now = func() time.Time { return now }
	require.NoError(t, s.Record(ctx, entry("https://a", "t")))
	e, ok, err := s.Find(ctx, "https://a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, now.UnixMilli(), e.Timestamp)
	require.True(t, e.Time().Equal(now))
}

func TestRecordRejectsEmptyURL(t *testing.T) {
	require.Error(t, New(kv.NewMemoryStore()).Record(context.Background(), entry("", "t")))
}

func TestClearAndFind(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemoryStore())
	require.NoError(t, s.Record(ctx, entry("https://a", "t")))
	require.NoError(t, s.Clear(ctx))
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
	_, ok, err := s.Find(ctx, "https://a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoredFormat(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	s := New(store)
	score := 90.0
	e := Entry{
		URL:       "https://a",
		Title:     "A",
		Timestamp: 1700000000000,
		Summary: normalize.Summary{
			TLDR:        "tl",
			ArticleType: "News",
			Tone:        normalize.Tone{Primary: "Neutral", ConfidenceScore: &score},
		},
	}
	require.NoError(t, s.Record(ctx, e))
	raw, ok, err := store.Get(ctx, Slot)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `[{
	  "title":"A","url":"https://a","tldr":"tl","type":"News",
	  "tone":{"primary":"Neutral","confidence_score":90},
	  "tags":[],"key_takeaways":[],
	  "entities":{"people":[],"companies":[],"products":[]},
	  "date":1700000000000
	}]`, string(raw))
}

func TestLoadToleratesLegacyShapes(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	legacy := `[
	  {"title":"A","url":"https://a","tldr":"x","type":"Blog","tone":"Critical","entities":{"people":["Ada"]},"date":1.7e12},
	  {"title":"no url"},
	  "garbage"
	]`
	require.NoError(t, store.Set(ctx, Slot, []byte(legacy)))
	list, err := New(store).List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	require.Equal(t, "Blog", got.Summary.ArticleType)
	require.Equal(t, "Critical", got.Summary.Tone.Primary)
	require.Equal(t, []normalize.Entity{{Name: "Ada"}}, got.Summary.Entities.People)
	require.NotNil(t, got.Summary.Tags)
	require.Equal(t, int64(1.7e12), got.Timestamp)
}

func TestLoadCorruptSlotStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, Slot, []byte(`{not json`)))
	s := New(store)
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
	require.NoError(t, s.Record(ctx, entry("https://a", "t")))
}

func TestConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemoryStore())
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, s.Record(ctx, entry(fmt.Sprintf("https://c/%d", i), "t")))
		}(i)
	}
	wg.Wait()
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 10)
}

func TestEntryJSONRoundTripThroughAPI(t *testing.T) {
	b, err := json.Marshal([]Entry{entry("https://a", "t")})
	require.NoError(t, err)
	var back []Entry
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, "https://a", back[0].URL)
	require.Equal(t, "T https://a", back[0].Title)
}
