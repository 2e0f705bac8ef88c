package feed

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/lysyi3m/beam-comb/app/beam"
)

// Words per minute used for reading time estimates.
const readingSpeed = 200

type ReadingTimeEstimator struct{}

func NewReadingTimeEstimator() *ReadingTimeEstimator {
	return &ReadingTimeEstimator{}
}

// Run fills in reading_time for entries that have content but no
// publisher-provided estimate. Entries without content are left alone.
func (e *ReadingTimeEstimator) Run(entry *beam.Entry) {
	if entry.ReadingTime != nil || entry.Content == nil {
		return
	}

	text := e.plainText(*entry.Content, entry.URL)
	words := len(strings.Fields(text))
	if words == 0 {
		return
	}

	minutes := (words + readingSpeed - 1) / readingSpeed
	entry.ReadingTime = &minutes
}

// plainText strips markup from content HTML. Readability handles full
// documents and fragments alike; on failure fall back to a crude tag strip.
func (e *ReadingTimeEstimator) plainText(content, entryURL string) string {
	pageURL, err := url.Parse(entryURL)
	if err != nil {
		pageURL = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(content), pageURL)
	if err == nil && article.TextContent != "" {
		return article.TextContent
	}

	return stripTags(content)
}

func stripTags(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
