package extract

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

const (
	// MinContentChars is the rendered length a selector match must exceed
	// before it is accepted over the next candidate.
	MinContentChars = 200
	// MaxTextChars caps the extracted text, counted in runes.
	MaxTextChars = 10000
)

// Selectors are tried in order. Semantic containers come first, generic
// content-class conventions last.
var Selectors = []string{
	"article",
	`[role="main"]`,
	".post-content",
	".article-body",
	".article-content",
	".entry-content",
	".story-body",
	".post-body",
	".content-body",
	"main",
}

// Document is the extracted article content of one page.
type Document struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// FromHTML picks the first selector match whose rendered text is longer than
// MinContentChars and falls back to <body>. The result is normalized with
// Normalize. Invalid input yields an empty Document.
func FromHTML(input []byte) Document {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return Document{}
	}
	title := pageTitle(doc, input)

	var text string
	found := false
	for _, sel := range Selectors {
		match := doc.Find(sel).First()
		if match.Length() == 0 {
			continue
		}
		rendered := strings.TrimSpace(RenderText(match.Get(0)))
		if utf8.RuneCountInString(rendered) > MinContentChars {
			text = rendered
			found = true
			break
		}
	}
	if !found {
		if body := doc.Find("body").First(); body.Length() > 0 {
			text = RenderText(body.Get(0))
		}
	}
	return Document{Title: title, Text: Normalize(text)}
}

func pageTitle(doc *goquery.Document, input []byte) string {
	title := collapseSpaces(strings.TrimSpace(doc.Find("title").First().Text()))
	if title != "" {
		return title
	}
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(input)); err == nil {
		return strings.TrimSpace(og.Title)
	}
	return ""
}

// RenderText approximates a browser's innerText for n: hidden and
// non-rendered subtrees are skipped, block elements break lines and each
// line is trimmed.
func RenderText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	collectText(&b, n, false)
	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.Trim(line, " ")
	}
	return strings.Join(lines, "\n")
}

func collectText(b *strings.Builder, n *html.Node, inPre bool) {
	if n.Type == html.ElementNode {
		if isHidden(n) || isBoilerplateContainer(n) {
			return
		}
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "template", "svg", "head", "iframe", "object":
			return
		case "pre", "textarea":
			inPre = true
			b.WriteString("\n")
		case "br":
			b.WriteString("\n")
			return
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote":
			b.WriteString("\n\n")
		case "div", "section", "article", "main", "header", "footer", "aside", "nav",
			"li", "ul", "ol", "dl", "dt", "dd", "tr", "table", "figure", "figcaption", "form", "hr":
			b.WriteString("\n")
		case "td", "th":
			b.WriteString("\t")
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.Map(func(r rune) rune {
				switch r {
				case '\n', '\r', '\t', '\f':
					return ' '
				}
				return r
			}, data)
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, inPre)
	}

	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote":
			b.WriteString("\n\n")
		case "div", "section", "article", "main", "header", "footer", "aside", "nav",
			"li", "ul", "ol", "dl", "dt", "dd", "tr", "table", "figure", "figcaption", "form",
			"pre", "textarea":
			b.WriteString("\n")
		}
	}
}

func isHidden(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "hidden":
			return true
		case "aria-hidden":
			if strings.EqualFold(strings.TrimSpace(attr.Val), "true") {
				return true
			}
		case "style":
			style := strings.ToLower(strings.ReplaceAll(attr.Val, " ", ""))
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

// isBoilerplateContainer returns true if the element looks like a cookie/consent banner.
func isBoilerplateContainer(n *html.Node) bool {
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" && key != "aria-label" {
			continue
		}
		val := strings.ToLower(attr.Val)
		if containsAny(val, []string{"cookie-banner", "cookiebar", "cookie-consent", "consent-banner", "consent-manager", "gdpr"}) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

var (
	manyNewlines = regexp.MustCompile(`\n{3,}`)
	manyBlanks   = regexp.MustCompile(`[ \t]{2,}`)
)

// Normalize collapses 3+ newlines to two, runs of spaces/tabs to one space,
// trims, and truncates to MaxTextChars runes.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = manyNewlines.ReplaceAllString(s, "\n\n")
	s = manyBlanks.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return Truncate(s, MaxTextChars)
}

// Truncate returns the first max runes of s.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	i := 0
	for pos := range s {
		if i == max {
			return s[:pos]
		}
		i++
	}
	return s
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
