package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/clarity/internal/card"
	"github.com/hyperifyio/clarity/internal/history"
	"github.com/hyperifyio/clarity/internal/normalize"
)

func sampleEntry() history.Entry {
	score := 80.0
	return history.Entry{
		URL:       "https://example.com/a",
		Title:     "Café chips",
		Timestamp: 1700000000000,
		Summary: normalize.Summary{
			TLDR:         "Company X raised $50M to build AI chips.",
			KeyTakeaways: []string{"Round led by Y", "Chips ship in 2026"},
			ArticleType:  "News",
			Tone:         normalize.Tone{Primary: "Neutral", ConfidenceScore: &score},
			Tags:         []string{"AI", "Chips"},
			Entities: normalize.Entities{
				People:    []normalize.Entity{{Name: "Ada", Context: "CEO"}},
				Companies: []normalize.Entity{{Name: "Company X"}},
			},
		},
	}
}

func TestWritePDFWithoutCard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, sampleEntry(), nil))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	require.Contains(t, buf.String(), "%%EOF")
}

func TestWritePDFWithCard(t *testing.T) {
	e := sampleEntry()
	img, err := (&card.Renderer{Choose: func(int) int { return 2 }}).Render(e.Summary, e.URL)
	require.NoError(t, err)
	var png bytes.Buffer
	require.NoError(t, card.EncodePNG(&png, img))

	var plain, withCard bytes.Buffer
	require.NoError(t, WritePDF(&plain, e, nil))
	require.NoError(t, WritePDF(&withCard, e, png.Bytes()))
	require.Greater(t, withCard.Len(), plain.Len())
}

func TestWritePDFRejectsBadImage(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, WritePDF(&buf, sampleEntry(), []byte("not a png")))
}

func TestWritePDFEmptyEntry(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, history.Entry{}, nil))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestMetaLine(t *testing.T) {
	score := 72.5
	require.Equal(t, "News · Neutral · 72.5%", MetaLine(normalize.Summary{ArticleType: "News", Tone: normalize.Tone{Primary: "Neutral", ConfidenceScore: &score}}))
	require.Equal(t, "", MetaLine(normalize.Summary{}))
}
