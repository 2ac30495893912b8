package share

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/clarity/internal/normalize"
)

func TestTweetTextExample(t *testing.T) {
	s := normalize.Summary{TLDR: "Company X raised $50M to build AI chips.", Tags: []string{"AI", "Chips", "Funding"}}
	require.Equal(t, "Company X raised $50M to build AI chips.\n\n#AI #Chips #Funding\n\nSummarized with Clarity 🧠", TweetText(s))
}

func TestTweetTextTakesThreeTagsAndKeepsHashes(t *testing.T) {
	s := normalize.Summary{TLDR: "t", Tags: []string{"#Go", "Rust", "Zig", "C"}}
	require.Equal(t, "t\n\n#Go #Rust #Zig\n\n"+Signature, TweetText(s))
}

func TestTweetTextNoTags(t *testing.T) {
	require.Equal(t, "t\n\n\n\n"+Signature, TweetText(normalize.Summary{TLDR: "t"}))
}

func TestTweetURLDecodesBackToText(t *testing.T) {
	s := normalize.Summary{TLDR: "Rates (again) up 5% & more!", Tags: []string{"Econ"}}
	u := TweetURL(s)
	require.Contains(t, u, "https://twitter.com/intent/tweet?text=")
	parsed, err := url.Parse(u)
	require.NoError(t, err)
	require.Equal(t, TweetText(s), parsed.Query().Get("text"))
}

func TestEncodeURIComponent(t *testing.T) {
	require.Equal(t, "a%20b", EncodeURIComponent("a b"))
	require.Equal(t, "(x)!*'~-_.", EncodeURIComponent("(x)!*'~-_."))
	require.Equal(t, "%23AI%0A%26%3D%2B", EncodeURIComponent("#AI\n&=+"))
	require.Equal(t, "%F0%9F%A7%A0", EncodeURIComponent("🧠"))
}

func TestSearchURL(t *testing.T) {
	require.Equal(t, "https://www.google.com/search?q=Sam%20Altman", SearchURL("Sam Altman"))
	require.Equal(t, "https://www.google.com/search?q=AI", SearchURL("#AI"))
}
