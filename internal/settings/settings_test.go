package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/clarity/internal/kv"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	s, err := Load(context.Background(), kv.NewMemoryStore())
	require.NoError(t, err)
	require.Equal(t, Defaults(), s)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, Slot, []byte(`{"showTone":false,"apiKey":"sk-1"}`)))
	s, err := Load(ctx, store)
	require.NoError(t, err)
	require.False(t, s.ShowTone)
	require.True(t, s.ShowEntities)
	require.True(t, s.ShowReadTime)
	require.Equal(t, "sk-1", s.APIKey)
}

func TestLoadCorruptUsesDefaults(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, Slot, []byte(`[`)))
	s, err := Load(ctx, store)
	require.NoError(t, err)
	require.Equal(t, Defaults(), s)
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	in := Settings{ShowTone: false, ShowEntities: false, ShowReadTime: true, APIKey: "  sk-2 "}
	require.NoError(t, Save(ctx, store, in))
	out, err := Load(ctx, store)
	require.NoError(t, err)
	require.Equal(t, Settings{ShowReadTime: true, APIKey: "sk-2"}, out)
}

func TestEffectiveKey(t *testing.T) {
	require.Equal(t, "stored", EffectiveKey(" cfg ", Settings{APIKey: " stored "}))
	require.Equal(t, "stored", EffectiveKey("", Settings{APIKey: "stored"}))
	require.Equal(t, "cfg", EffectiveKey(" cfg ", Settings{APIKey: "  "}))
	require.Equal(t, "", EffectiveKey("", Settings{}))
}

func TestPatchApply(t *testing.T) {
	off := false
	key := " sk-3 "
	got := Patch{ShowTone: &off, APIKey: &key}.Apply(Defaults())
	require.False(t, got.ShowTone)
	require.True(t, got.ShowEntities)
	require.Equal(t, "sk-3", got.APIKey)
}

func TestMasked(t *testing.T) {
	require.Equal(t, "••••••••cdef", Settings{APIKey: "sk-abcdef"}.Masked().APIKey)
	require.Equal(t, "••••••••", Settings{APIKey: "abc"}.Masked().APIKey)
	require.Equal(t, "", Settings{}.Masked().APIKey)
}
