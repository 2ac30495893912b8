package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFullObject(t *testing.T) {
	raw := `{
	  "tldr": "X happened.",
	  "key_takeaways": ["a", "b"],
	  "article_type": "News",
	  "tone": {"primary": "Neutral", "confidence_score": 80},
	  "tags": ["AI"],
	  "entities": {
	    "people": [{"name": "Ada", "role_or_context": "engineer"}],
	    "companies": [{"name": "Acme", "industry_or_context": "tools"}],
	    "products": [{"name": "Widget", "context": "gadget"}]
	  }
	}`
	s, err := Normalize(raw)
	require.NoError(t, err)
	require.Equal(t, "X happened.", s.TLDR)
	require.Equal(t, []string{"a", "b"}, s.KeyTakeaways)
	require.Equal(t, "News", s.ArticleType)
	require.Equal(t, "Neutral", s.Tone.Primary)
	require.NotNil(t, s.Tone.ConfidenceScore)
	require.Equal(t, 80.0, *s.Tone.ConfidenceScore)
	require.Equal(t, []string{"AI"}, s.Tags)
	require.Equal(t, []Entity{{Name: "Ada", Context: "engineer"}}, s.Entities.People)
	require.Equal(t, []Entity{{Name: "Acme", Context: "tools"}}, s.Entities.Companies)
	require.Equal(t, []Entity{{Name: "Widget", Context: "gadget"}}, s.Entities.Products)
}

func TestNormalizeStripsFences(t *testing.T) {
	s, err := Normalize("```json\n{\"tldr\":\"fenced\"}\n```")
	require.NoError(t, err)
	require.Equal(t, "fenced", s.TLDR)

	s, err = Normalize("  ```\n{\"tldr\":\"plain fence\"}```  ")
	require.NoError(t, err)
	require.Equal(t, "plain fence", s.TLDR)

	s, err = Normalize("```JSON\n{\"tldr\":\"upper\"}\n```")
	require.NoError(t, err)
	require.Equal(t, "upper", s.TLDR)
}

func TestStripFencesOnlyTouchesEnds(t *testing.T) {
	require.Equal(t, "{\n```\n}", StripFences("{\n```\n}"))
	require.Equal(t, "a\n```\nb", StripFences("```json\na\n```\nb\n```"))
	require.Equal(t, "{\"tldr\":\"use ``` fences\"}", StripFences("```\n{\"tldr\":\"use ``` fences\"}\n```"))
}

func TestNormalizeAliasesAndBareTone(t *testing.T) {
	s, err := Normalize(`{"tldr":"Y","points":["p1"],"type":"Blog","tone":"Critical"}`)
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, s.KeyTakeaways)
	require.Equal(t, "Blog", s.ArticleType)
	require.Equal(t, "Critical", s.Tone.Primary)
	require.Nil(t, s.Tone.ConfidenceScore)
}

func TestNormalizePrefersCanonicalKeys(t *testing.T) {
	s, err := Normalize(`{"type":"Blog","article_type":"News","points":["old"],"key_takeaways":["new"]}`)
	require.NoError(t, err)
	require.Equal(t, "News", s.ArticleType)
	require.Equal(t, []string{"new"}, s.KeyTakeaways)
}

func TestNormalizeDefaultsAreEmptyNotNil(t *testing.T) {
	s, err := Normalize(`{}`)
	require.NoError(t, err)
	require.Equal(t, "", s.TLDR)
	require.NotNil(t, s.KeyTakeaways)
	require.Empty(t, s.KeyTakeaways)
	require.NotNil(t, s.Tags)
	require.NotNil(t, s.Entities.People)
	require.NotNil(t, s.Entities.Companies)
	require.NotNil(t, s.Entities.Products)
	require.Equal(t, "", s.Tone.Primary)
	require.Nil(t, s.Tone.ConfidenceScore)
}

func TestNormalizeBareStringEntitiesAndMissingNames(t *testing.T) {
	s, err := Normalize(`{"entities":{"people":["Grace", {"role_or_context":"nameless"}, ""],"companies":[{"name":"Initech","context":"generic"}]}}`)
	require.NoError(t, err)
	require.Equal(t, []Entity{{Name: "Grace"}}, s.Entities.People)
	require.Equal(t, []Entity{{Name: "Initech", Context: "generic"}}, s.Entities.Companies)
	require.Empty(t, s.Entities.Products)
}

func TestNormalizeConfidenceAsString(t *testing.T) {
	s, err := Normalize(`{"tone":{"primary":"Optimistic","confidence_score":"72"}}`)
	require.NoError(t, err)
	require.NotNil(t, s.Tone.ConfidenceScore)
	require.Equal(t, 72.0, *s.Tone.ConfidenceScore)

	s, err = Normalize(`{"tone":{"primary":"Optimistic","confidence_score":"high"}}`)
	require.NoError(t, err)
	require.Nil(t, s.Tone.ConfidenceScore)
}

func TestNormalizeListItems(t *testing.T) {
	s, err := Normalize(`{"key_takeaways":["a", "", 3, {"k":"v"}], "tags":"solo"}`)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "3", `{"k":"v"}`}, s.KeyTakeaways)
	require.Equal(t, []string{"solo"}, s.Tags)
}

func TestNormalizeCapsTags(t *testing.T) {
	s, err := Normalize(`{"tags":["1","2","3","4","5","6","7","8"]}`)
	require.NoError(t, err)
	require.Len(t, s.Tags, MaxTags)
	require.Equal(t, "6", s.Tags[5])
}

func TestNormalizeParseErrors(t *testing.T) {
	for _, raw := range []string{"", "not json", "[1,2]", `"string"`, `{"a":1} {"b":2}`, "{\"tldr\": "} {
		_, err := Normalize(raw)
		var perr *ParseError
		require.Truef(t, errors.As(err, &perr), "expected ParseError for %q, got %v", raw, err)
		require.Equal(t, raw, perr.Raw)
	}
}

func TestCanonicalFillsNilSlices(t *testing.T) {
	s := Summary{TLDR: "t"}.Canonical()
	require.NotNil(t, s.KeyTakeaways)
	require.NotNil(t, s.Tags)
	require.NotNil(t, s.Entities.People)
	require.NotNil(t, s.Entities.Companies)
	require.NotNil(t, s.Entities.Products)
}

func TestHashtag(t *testing.T) {
	require.Equal(t, "#AI", Hashtag("AI"))
	require.Equal(t, "#AI", Hashtag("#AI"))
}

func TestTypeIcon(t *testing.T) {
	require.Equal(t, "📰", TypeIcon("News"))
	require.Equal(t, "📣", TypeIcon("Marketing"))
	require.Equal(t, "📄", TypeIcon("Something"))
	require.Equal(t, "📄", TypeIcon(""))
}
