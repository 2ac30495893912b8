// Package settings persists the user-facing display toggles and the stored
// API credential.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/clarity/internal/kv"
)

// Slot is the storage key holding the settings object.
const Slot = "claritySettings"

// Settings are the user preferences.
type Settings struct {
	ShowTone     bool   `json:"showTone"`
	ShowEntities bool   `json:"showEntities"`
	ShowReadTime bool   `json:"showReadTime"`
	APIKey       string `json:"apiKey"`
}

// Defaults shows everything and has no key.
func Defaults() Settings {
	return Settings{ShowTone: true, ShowEntities: true, ShowReadTime: true}
}

// Load merges the stored object over Defaults. Keys absent from the stored
// object keep their default values. An unreadable slot yields Defaults.
func Load(ctx context.Context, store kv.Store) (Settings, error) {
	s := Defaults()
	raw, ok, err := store.Get(ctx, Slot)
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if !ok {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		log.Warn().Err(err).Msg("settings slot unreadable; using defaults")
		return Defaults(), nil
	}
	return s, nil
}

// Save replaces the stored settings.
func Save(ctx context.Context, store kv.Store, s Settings) error {
	s.APIKey = strings.TrimSpace(s.APIKey)
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, Slot, b); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// EffectiveKey picks the stored credential when non-empty, else the
// configured one.
func EffectiveKey(configured string, s Settings) string {
	if k := strings.TrimSpace(s.APIKey); k != "" {
		return k
	}
	return strings.TrimSpace(configured)
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	ShowTone     *bool   `json:"showTone,omitempty"`
	ShowEntities *bool   `json:"showEntities,omitempty"`
	ShowReadTime *bool   `json:"showReadTime,omitempty"`
	APIKey       *string `json:"apiKey,omitempty"`
}

// Apply returns s with the non-nil fields of p applied.
func (p Patch) Apply(s Settings) Settings {
	if p.ShowTone != nil {
		s.ShowTone = *p.ShowTone
	}
	if p.ShowEntities != nil {
		s.ShowEntities = *p.ShowEntities
	}
	if p.ShowReadTime != nil {
		s.ShowReadTime = *p.ShowReadTime
	}
	if p.APIKey != nil {
		s.APIKey = strings.TrimSpace(*p.APIKey)
	}
	return s
}

// Masked returns s with all but the last four characters of the key hidden.
func (s Settings) Masked() Settings {
	k := s.APIKey
	if len(k) > 4 {
		s.APIKey = strings.Repeat("•", 8) + k[len(k)-4:]
	} else if k != "" {
		s.APIKey = strings.Repeat("•", 8)
	}
	return s
}
