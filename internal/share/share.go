// Package share builds outbound share text and links for a summary.
package share

import (
	"strings"

	"github.com/hyperifyio/clarity/internal/normalize"
)

const (
	// TweetTags is how many hashtags a tweet carries.
	TweetTags = 3
	// Signature closes every tweet.
	Signature = "Summarized with Clarity 🧠"

	tweetIntent = "https://twitter.com/intent/tweet?text="
	searchBase  = "https://www.google.com/search?q="
)

// TweetText is the TL;DR, the first three tags as hashtags and the
// signature, separated by blank lines.
func TweetText(s normalize.Summary) string {
	tags := s.Tags
	if len(tags) > TweetTags {
		tags = tags[:TweetTags]
	}
	hashtags := make([]string, 0, len(tags))
	for _, t := range tags {
		hashtags = append(hashtags, normalize.Hashtag(t))
	}
	return s.TLDR + "\n\n" + strings.Join(hashtags, " ") + "\n\n" + Signature
}

// TweetURL is the tweet-intent link prefilled with TweetText.
func TweetURL(s normalize.Summary) string {
	return tweetIntent + EncodeURIComponent(TweetText(s))
}

// SearchURL is a web search for name. A leading "#" is dropped so tags and
// entity names search the same way.
func SearchURL(name string) string {
	return searchBase + EncodeURIComponent(strings.Replace(name, "#", "", 1))
}

// EncodeURIComponent percent-encodes every byte outside
// A-Z a-z 0-9 - _ . ! ~ * ' ( ), matching the browser function of the same
// name. url.QueryEscape differs on space and on ! * ' ( ).
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
