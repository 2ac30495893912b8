package card

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"

	"github.com/hyperifyio/clarity/internal/normalize"
)

func TestHeightFormula(t *testing.T) {
	require.Equal(t, 240, Height(0))
	require.Equal(t, 282, Height(1))
	require.Equal(t, 90+50+3*42+20+80, Height(3))
}

func TestMeasureEmptyTLDR(t *testing.T) {
	l, err := Measure("")
	require.NoError(t, err)
	require.Empty(t, l.Lines)
	require.Equal(t, Height(0), l.Height)
	require.Equal(t, Width, l.Width)
}

func TestHeightMonotonicInWordCount(t *testing.T) {
	words := strings.Fields(strings.Repeat("the quick brown fox jumps over the lazy dog ", 12))
	prev := 0
	for n := 1; n <= len(words); n++ {
		l, err := Measure(strings.Join(words[:n], " "))
		require.NoError(t, err)
		require.GreaterOrEqual(t, l.Height, prev, "height shrank at %d words", n)
		prev = l.Height
	}
	require.Greater(t, prev, Height(1))
}

func TestWrapRespectsWidth(t *testing.T) {
	f, err := loadFaces()
	require.NoError(t, err)
	text := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	lines := Wrap(f.tldr, strings.TrimSpace(text), ContentWidth)
	require.Greater(t, len(lines), 1)
	for _, line := range lines {
		require.LessOrEqual(t, measure(f, line), ContentWidth)
	}
	require.Equal(t, strings.TrimSpace(text), strings.Join(lines, " "))
}

func TestWrapLongWordGetsOwnLine(t *testing.T) {
	f, err := loadFaces()
	require.NoError(t, err)
	long := strings.Repeat("W", 200)
	lines := Wrap(f.tldr, "a "+long+" b", ContentWidth)
	require.Equal(t, []string{"a", long, "b"}, lines)
}

func TestRenderSizeAndBackground(t *testing.T) {
	score := 80.0
	s := normalize.Summary{
		TLDR:        "Company X raised $50M to build AI chips.",
		ArticleType: "News",
		Tone:        normalize.Tone{Primary: "Optimistic", ConfidenceScore: &score},
	}
	r := &Renderer{Choose: func(int) int { return 0 }}
	img, err := r.Render(s, "https://www.example.com/a")
	require.NoError(t, err)
	l, err := Measure(s.TLDR)
	require.NoError(t, err)
	require.Equal(t, Width, img.Bounds().Dx())
	require.Equal(t, l.Height, img.Bounds().Dy())

	// The bottom-left corner is outside the first accent, so it is plain background.
	c := img.RGBAAt(1, img.Bounds().Dy()-2)
	require.Equal(t, background, c)

	// Near the first accent's centre the background is tinted.
	tinted := img.RGBAAt(Width-80, 80)
	require.NotEqual(t, background, tinted)

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, img))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestRenderUsesChooser(t *testing.T) {
	var gotN int
	r := &Renderer{Choose: func(n int) int { gotN = n; return n - 1 }}
	_, err := r.Render(normalize.Summary{TLDR: "x"}, "")
	require.NoError(t, err)
	require.Equal(t, 5, gotN)
}

func TestNewChooserSeeded(t *testing.T) {
	a, b := NewChooser(42), NewChooser(42)
	for i := 0; i < 20; i++ {
		x := a(5)
		require.Equal(t, x, b(5))
		require.True(t, x >= 0 && x < 5)
	}
	require.NotNil(t, NewChooser(0))
}

func TestFooter(t *testing.T) {
	score := 72.5
	require.Equal(t, "Neutral  ·  72.5%   News", Footer(normalize.Summary{ArticleType: "News", Tone: normalize.Tone{Primary: "Neutral", ConfidenceScore: &score}}))
	require.Equal(t, "Critical", Footer(normalize.Summary{Tone: normalize.Tone{Primary: "Critical"}}))
	require.Equal(t, "Blog", Footer(normalize.Summary{ArticleType: "Blog"}))
	require.Equal(t, "", Footer(normalize.Summary{}))
}

func TestDomain(t *testing.T) {
	require.Equal(t, "example.com", Domain("https://www.example.com/path?q=1"))
	require.Equal(t, "news.example.org", Domain("http://news.example.org"))
	require.Equal(t, "", Domain("::not a url"))
	require.Equal(t, "mywww.site.com", Domain("https://mywww.site.com/"))
	require.Equal(t, "news.www.example.com", Domain("https://news.www.example.com/a"))
}

func measure(f *faces, s string) int {
	return font.MeasureString(f.tldr, s).Ceil()
}
