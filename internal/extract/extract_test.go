package extract

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func longParagraph(word string, n int) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func TestFromHTML_PrefersArticleOverBody(t *testing.T) {
	body := longParagraph("story", 60)
	html := fmt.Sprintf(`<!doctype html>
    <html>
      <head><title>Test Page</title></head>
      <body>
        <nav>Nav should be ignored</nav>
        <article>
          <h1>Main Heading</h1>
          <p>%s</p>
        </article>
        <footer>Footer text</footer>
      </body>
    </html>`, body)

	doc := FromHTML([]byte(html))
	if doc.Title != "Test Page" {
		t.Fatalf("expected title 'Test Page', got %q", doc.Title)
	}
	if !strings.HasPrefix(doc.Text, "Main Heading") {
		t.Fatalf("expected text to start with heading, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "Nav should be ignored") || strings.Contains(doc.Text, "Footer text") {
		t.Fatalf("did not expect text outside the article: %q", doc.Text)
	}
}

func TestFromHTML_ShortMatchSkippedForLaterSelector(t *testing.T) {
	html := fmt.Sprintf(`<html><body>
      <article>Teaser only.</article>
      <div class="entry-content"><p>%s</p></div>
    </body></html>`, longParagraph("entry", 50))

	doc := FromHTML([]byte(html))
	if strings.Contains(doc.Text, "Teaser only.") {
		t.Fatalf("short article should have been rejected: %q", doc.Text)
	}
	if !strings.HasPrefix(doc.Text, "entry entry") {
		t.Fatalf("expected entry-content text, got %q", doc.Text)
	}
}

func TestFromHTML_RoleMainBeforeClassConventions(t *testing.T) {
	html := fmt.Sprintf(`<html><body>
      <div class="post-content"><p>%s</p></div>
      <div role="main"><p>%s</p></div>
    </body></html>`, longParagraph("post", 50), longParagraph("role", 50))

	doc := FromHTML([]byte(html))
	if !strings.HasPrefix(doc.Text, "role role") {
		t.Fatalf("expected role=main to win, got %q", doc.Text[:20])
	}
}

func TestFromHTML_FallbackToBody(t *testing.T) {
	html := `<!doctype html>
    <html>
      <head><title>No Main</title></head>
      <body>
        <main>Short main.</main>
        <h2>Body Heading</h2>
        <p>Body paragraph</p>
      </body>
    </html>`

	doc := FromHTML([]byte(html))
	if doc.Title != "No Main" {
		t.Fatalf("expected title 'No Main', got %q", doc.Title)
	}
	for _, want := range []string{"Short main.", "Body Heading", "Body paragraph"} {
		if !strings.Contains(doc.Text, want) {
			t.Fatalf("expected body text to contain %q, got %q", want, doc.Text)
		}
	}
}

func TestFromHTML_SkipsScriptsAndHidden(t *testing.T) {
	html := `<html><body>
      <script>var x = "script text";</script>
      <style>.a{}</style>
      <p>Visible</p>
      <div hidden>Hidden attr</div>
      <div style="display: none">Hidden style</div>
      <div class="cookie-banner">We use cookies</div>
    </body></html>`

	doc := FromHTML([]byte(html))
	if doc.Text != "Visible" {
		t.Fatalf("expected only visible text, got %q", doc.Text)
	}
}

func TestFromHTML_OpenGraphTitleFallback(t *testing.T) {
	html := `<html><head><meta property="og:title" content="OG Title"></head><body><p>x</p></body></html>`
	doc := FromHTML([]byte(html))
	if doc.Title != "OG Title" {
		t.Fatalf("expected og:title fallback, got %q", doc.Title)
	}
}

func TestFromHTML_EmptyInput(t *testing.T) {
	doc := FromHTML(nil)
	if doc.Text != "" {
		t.Fatalf("expected empty text, got %q", doc.Text)
	}
}

func TestFromHTML_PreservesPreformatted(t *testing.T) {
	html := `<html><body><pre>line one
line two</pre></body></html>`
	doc := FromHTML([]byte(html))
	if !strings.Contains(doc.Text, "line one\nline two") {
		t.Fatalf("expected pre newlines preserved, got %q", doc.Text)
	}
}

func TestNormalize_CollapsesAndTrims(t *testing.T) {
	in := "  \n\nA  b\t\tc\n\n\n\n\nd   e \n\n"
	got := Normalize(in)
	if got != "A b c\n\nd e" {
		t.Fatalf("unexpected normalize output %q", got)
	}
}

func TestNormalize_Invariants(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 3000; i++ {
		sb.WriteString("word \t  ")
		if i%7 == 0 {
			sb.WriteString("\n\n\n\n")
		}
	}
	got := Normalize(sb.String())
	if n := utf8.RuneCountInString(got); n > MaxTextChars {
		t.Fatalf("expected at most %d runes, got %d", MaxTextChars, n)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("found 3+ consecutive newlines")
	}
	if strings.Contains(got, "  ") || strings.Contains(got, "\t\t") || strings.Contains(got, " \t") || strings.Contains(got, "\t ") {
		t.Fatalf("found a run of 2+ spaces/tabs")
	}
}

func TestFromHTML_LengthCapCountsRunes(t *testing.T) {
	html := "<html><body><article><p>" + strings.Repeat("ä", MaxTextChars+500) + "</p></article></body></html>"
	doc := FromHTML([]byte(html))
	if n := utf8.RuneCountInString(doc.Text); n != MaxTextChars {
		t.Fatalf("expected %d runes, got %d", MaxTextChars, n)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestNew_Strategies(t *testing.T) {
	if _, err := New(""); err != nil {
		t.Fatalf("default strategy: %v", err)
	}
	if _, ok := mustNew(t, "readability").(ReadabilityExtractor); !ok {
		t.Fatalf("expected ReadabilityExtractor")
	}
	if _, err := New("magic"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func mustNew(t *testing.T, s string) Extractor {
	t.Helper()
	e, err := New(s)
	if err != nil {
		t.Fatalf("New(%q): %v", s, err)
	}
	return e
}

func TestReadabilityExtractor_FallsBackOnEmpty(t *testing.T) {
	doc := ReadabilityExtractor{}.Extract([]byte(`<html><head><title>T</title></head><body></body></html>`))
	if doc.Title != "T" {
		t.Fatalf("expected title from fallback, got %q", doc.Title)
	}
}
