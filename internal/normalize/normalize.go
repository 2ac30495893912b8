// Package normalize turns a model reply into a canonical Summary. The model
// is not trusted to follow the schema: every field may be missing or of the
// wrong type, and all of that is resolved here so consumers never look at
// raw shape again.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MaxTags is the display cap for tags.
const MaxTags = 6

// Entity is a named person, company or product with a short context.
type Entity struct {
	Name    string `json:"name"`
	Context string `json:"context"`
}

// Entities groups the entity lists of a summary.
type Entities struct {
	People    []Entity `json:"people"`
	Companies []Entity `json:"companies"`
	Products  []Entity `json:"products"`
}

// Tone is the primary register plus an optional 0-100 confidence.
type Tone struct {
	Primary         string   `json:"primary"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
}

// Summary is the canonical summary record.
type Summary struct {
	TLDR         string   `json:"tldr"`
	KeyTakeaways []string `json:"key_takeaways"`
	ArticleType  string   `json:"article_type"`
	Tone         Tone     `json:"tone"`
	Tags         []string `json:"tags"`
	Entities     Entities `json:"entities"`
}

// ParseError reports a reply that is not a JSON object after fence removal.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

const fence = "```"

// StripFences removes one leading code-fence marker (``` or ```json), one
// trailing ``` and surrounding whitespace. Backticks inside the body are
// left alone.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, fence) {
		s = s[len(fence):]
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), fence)
	return strings.TrimSpace(s)
}

// Normalize parses raw and resolves it into a Summary.
func Normalize(raw string) (Summary, error) {
	cleaned := StripFences(raw)
	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Summary{}, &ParseError{Raw: raw, Err: err}
	}
	if dec.More() {
		return Summary{}, &ParseError{Raw: raw, Err: fmt.Errorf("trailing data after JSON value")}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return Summary{}, &ParseError{Raw: raw, Err: fmt.Errorf("expected a JSON object, got %s", kindOf(v))}
	}
	return FromMap(obj), nil
}

// FromMap resolves a decoded JSON object into a Summary.
func FromMap(obj map[string]any) Summary {
	s := Summary{
		TLDR:         scalar(obj["tldr"]),
		KeyTakeaways: stringList(first(obj, "key_takeaways", "points")),
		ArticleType:  scalar(first(obj, "article_type", "type")),
		Tone:         tone(obj["tone"]),
		Tags:         stringList(obj["tags"]),
		Entities:     entities(obj["entities"]),
	}
	if len(s.Tags) > MaxTags {
		s.Tags = s.Tags[:MaxTags]
	}
	return s
}

// Canonical returns s with every nil slice replaced by an empty one. Records
// decoded from storage go through it so the empty-default invariant holds.
func (s Summary) Canonical() Summary {
	s.KeyTakeaways = nonNil(s.KeyTakeaways)
	s.Tags = nonNil(s.Tags)
	if s.Entities.People == nil {
		s.Entities.People = []Entity{}
	}
	if s.Entities.Companies == nil {
		s.Entities.Companies = []Entity{}
	}
	if s.Entities.Products == nil {
		s.Entities.Products = []Entity{}
	}
	return s
}

// first returns the first key present with a non-null value.
func first(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			s := listItem(item)
			if s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// listItem renders a list element as text. Objects and arrays keep their
// JSON form so no content is silently lost.
func listItem(v any) string {
	switch t := v.(type) {
	case string, json.Number, bool:
		return scalar(t)
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func tone(v any) Tone {
	switch t := v.(type) {
	case string:
		return Tone{Primary: strings.TrimSpace(t)}
	case map[string]any:
		return Tone{Primary: scalar(t["primary"]), ConfidenceScore: number(first(t, "confidence_score", "confidence"))}
	default:
		return Tone{}
	}
}

func number(v any) *float64 {
	var f float64
	var err error
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return &f
}

func entities(v any) Entities {
	obj, _ := v.(map[string]any)
	return Entities{
		People:    entityList(obj["people"], "role_or_context"),
		Companies: entityList(obj["companies"], "industry_or_context"),
		Products:  entityList(obj["products"], "context"),
	}
}

func entityList(v any, contextKey string) []Entity {
	out := []Entity{}
	items, _ := v.([]any)
	for _, item := range items {
		var e Entity
		switch t := item.(type) {
		case string:
			e.Name = strings.TrimSpace(t)
		case map[string]any:
			e.Name = scalar(t["name"])
			e.Context = scalar(first(t, contextKey, "context"))
		}
		if e.Name != "" {
			out = append(out, e)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func kindOf(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Hashtag prefixes tag with "#" unless it already has one.
func Hashtag(tag string) string {
	if strings.HasPrefix(tag, "#") {
		return tag
	}
	return "#" + tag
}

var typeIcons = map[string]string{
	"News":      "📰",
	"Opinion":   "💬",
	"Research":  "🔬",
	"Tutorial":  "📖",
	"Analysis":  "📊",
	"Marketing": "📣",
	"Interview": "🎙",
	"Blog":      "✍️",
	"Report":    "📋",
	"Review":    "⭐",
	"Other":     "📄",
}

// TypeIcon returns the badge icon for an article type. Unknown types get
// the generic document icon.
func TypeIcon(articleType string) string {
	if icon, ok := typeIcons[articleType]; ok {
		return icon
	}
	return "📄"
}
