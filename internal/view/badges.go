package view

import (
	"strconv"

	"github.com/hyperifyio/clarity/internal/normalize"
	"github.com/hyperifyio/clarity/internal/settings"
)

// Badge is one chip in the result meta row. Search is the text a click
// searches for; it is empty for non-entity badges.
type Badge struct {
	Kind   string `json:"kind"`
	Label  string `json:"label"`
	Title  string `json:"title,omitempty"`
	Search string `json:"search,omitempty"`
}

// Badges builds the meta row for st under the display settings: the type
// badge always, the tone badge when ShowTone, up to two people, two
// companies and one product when ShowEntities, and the read time when
// ShowReadTime and known.
func Badges(st State, set settings.Settings) []Badge {
	if st.Summary == nil {
		return nil
	}
	s := st.Summary
	articleType := s.ArticleType
	if articleType == "" {
		articleType = "Article"
	}
	out := []Badge{{Kind: "type", Label: normalize.TypeIcon(articleType) + " " + articleType}}

	if set.ShowTone && s.Tone.Primary != "" {
		label := "◐ " + s.Tone.Primary
		if s.Tone.ConfidenceScore != nil {
			label += " · " + strconv.FormatFloat(*s.Tone.ConfidenceScore, 'f', -1, 64) + "%"
		}
		out = append(out, Badge{Kind: "tone", Label: label})
	}

	if set.ShowEntities {
		out = appendEntities(out, "person", "👤", s.Entities.People, 2)
		out = appendEntities(out, "company", "🏢", s.Entities.Companies, 2)
		out = appendEntities(out, "product", "📦", s.Entities.Products, 1)
	}

	if set.ShowReadTime && st.ReadTime > 0 {
		out = append(out, Badge{Kind: "readTime", Label: "~" + strconv.Itoa(st.ReadTime) + " min read"})
	}
	return out
}

func appendEntities(out []Badge, kind, icon string, list []normalize.Entity, max int) []Badge {
	for i, e := range list {
		if i == max {
			break
		}
		out = append(out, Badge{Kind: kind, Label: icon + " " + e.Name, Title: e.Context, Search: e.Name})
	}
	return out
}
