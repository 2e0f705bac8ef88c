package beam

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDecodeMinimalFeed(t *testing.T) {
	data := []byte(`{"version":"1.0","title":"Test Blog","feed_url":"https://test.example.com/feed.json","items":[{"id":"test-post-1","title":"Test Post","url":"https://test.example.com/test-post","published":"2025-06-29T12:00:00Z"}]}`)

	feed, err := Decode(data)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if feed.Title != "Test Blog" {
		t.Errorf("Expected title 'Test Blog', got: %s", feed.Title)
	}
	if len(feed.Items) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(feed.Items))
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	for _, data := range []string{"{not json", "", "{\"version\": \"1.0\""} {
		_, err := Decode([]byte(data))
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("Expected *DecodeError, got: %v", err)
		}
		if !decodeErr.Malformed() {
			t.Errorf("Expected malformed JSON error for %q, got: %v", data, err)
		}
	}
}

func TestDecodeSurfacesViolations(t *testing.T) {
	data := []byte(`{"version":"1.0","feed_url":"ftp://example.com/feed.json"}`)

	_, err := Decode(data)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected *DecodeError, got: %v", err)
	}
	if decodeErr.Malformed() {
		t.Fatal("Expected a validation failure, not a parse failure")
	}
	if !hasViolation(decodeErr.Violations, CodeMissingField, "title") {
		t.Errorf("Expected missing title to be reported, got: %v", decodeErr.Violations)
	}
	if !hasViolation(decodeErr.Violations, CodeInvalidField, "feed_url") {
		t.Errorf("Expected non-http feed_url to be reported, got: %v", decodeErr.Violations)
	}
	if !hasViolation(decodeErr.Violations, CodeMissingField, "items") {
		t.Errorf("Expected missing items to be reported, got: %v", decodeErr.Violations)
	}
}

func TestDecodeLenientKeepsUsableEntries(t *testing.T) {
	data := []byte(`{
		"version": "1.0",
		"title": "Mixed Blog",
		"feed_url": "https://example.com/feed.json",
		"items": [
			{"id": "ok", "title": "Fine", "url": "https://example.com/ok", "published": "2025-06-29T12:00:00Z"},
			{"id": "bad", "title": "Broken", "url": "https://example.com/bad", "published": "sometime"}
		]
	}`)

	feed, violations, err := DecodeLenient(data)
	if err != nil {
		t.Fatalf("Expected lenient decode to succeed, got: %v", err)
	}
	if len(violations) == 0 {
		t.Fatal("Expected violations to be reported")
	}
	if len(feed.Items) != 1 || feed.Items[0].ID != "ok" {
		t.Errorf("Expected only the usable entry to survive, got: %+v", feed.Items)
	}
}

func TestDecodeLenientVersionStillFatal(t *testing.T) {
	feed, violations, err := DecodeLenient([]byte(`{"version":"0.9","title":"T","feed_url":"https://example.com/f.json","items":[]}`))
	if err == nil || feed != nil {
		t.Fatal("Expected unsupported version to be fatal even in lenient mode")
	}
	if len(violations) != 1 || violations[0].Code != CodeUnsupportedVersion {
		t.Errorf("Expected a single unsupported_version violation, got: %v", violations)
	}
}

func fullFeedFixture() *Feed {
	desc := "A blog about everything"
	home := "https://example.com"
	lang := "en"
	email := "jane@example.com"
	summary := "Short version"
	content := "<p>Long version</p>"
	category := "tech"
	image := "https://example.com/cover.png"
	readingTime := 4
	lastUpdated := time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC)
	updated := time.Date(2025, 6, 29, 18, 30, 0, 0, time.UTC)

	return &Feed{
		Version:     Version,
		Title:       "Full Blog",
		FeedURL:     "https://example.com/feed.json",
		Description: &desc,
		HomePageURL: &home,
		Language:    &lang,
		Author:      &Author{Name: "Jane Doe", Email: &email},
		LastUpdated: &lastUpdated,
		Items: []Entry{
			{
				ID:          "post-1",
				Title:       "First Post",
				URL:         "https://example.com/post-1",
				Published:   time.Date(2025, 6, 29, 12, 0, 0, 0, time.UTC),
				Content:     &content,
				Summary:     &summary,
				Updated:     &updated,
				Author:      &Author{Name: "Jane Doe"},
				Tags:        []string{"go", "beam", "go"},
				Category:    &category,
				Image:       &image,
				ReadingTime: &readingTime,
				Extensions: map[string]json.RawMessage{
					"_analytics": json.RawMessage(`{"views":1234}`),
				},
			},
			{
				ID:        "post-2",
				Title:     "Second Post",
				URL:       "https://example.com/post-2",
				Published: time.Date(2025, 6, 30, 9, 15, 0, 0, time.UTC),
			},
		},
		Extensions: map[string]json.RawMessage{
			"_monetization": json.RawMessage(`{"wallet":"$example.com/pay"}`),
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := fullFeedFixture()

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Expected encode to succeed, got: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Expected round trip decode to succeed, got: %v", err)
	}

	if decoded.Title != original.Title || decoded.FeedURL != original.FeedURL {
		t.Error("Expected feed identity fields to survive the round trip")
	}
	if decoded.Description == nil || *decoded.Description != *original.Description {
		t.Error("Expected description to survive the round trip")
	}
	if decoded.Language == nil || *decoded.Language != *original.Language {
		t.Error("Expected language to survive the round trip")
	}
	if decoded.Author == nil || decoded.Author.Name != "Jane Doe" || decoded.Author.Email == nil {
		t.Error("Expected feed author to survive the round trip")
	}
	if decoded.LastUpdated == nil || !decoded.LastUpdated.Equal(*original.LastUpdated) {
		t.Error("Expected last_updated to survive the round trip")
	}

	if len(decoded.Items) != len(original.Items) {
		t.Fatalf("Expected %d entries, got: %d", len(original.Items), len(decoded.Items))
	}
	for i := range original.Items {
		want, got := original.Items[i], decoded.Items[i]
		if got.ID != want.ID || got.Title != want.Title || got.URL != want.URL {
			t.Errorf("Entry %d: identity fields changed", i)
		}
		if !got.Published.Equal(want.Published) {
			t.Errorf("Entry %d: published changed: %v != %v", i, got.Published, want.Published)
		}
	}

	first := decoded.Items[0]
	if first.ReadingTime == nil || *first.ReadingTime != 4 {
		t.Error("Expected reading_time to survive the round trip")
	}
	if len(first.Tags) != 3 || first.Tags[2] != "go" {
		t.Error("Expected tags, including duplicates, to survive in order")
	}
	if !bytes.Equal(first.Extensions["_analytics"], []byte(`{"views":1234}`)) {
		t.Errorf("Expected entry extension to survive verbatim, got: %s", first.Extensions["_analytics"])
	}
	if !bytes.Equal(decoded.Extensions["_monetization"], []byte(`{"wallet":"$example.com/pay"}`)) {
		t.Errorf("Expected feed extension to survive verbatim, got: %s", decoded.Extensions["_monetization"])
	}
}

func TestEncodeDecodeRoundTripFractionalSeconds(t *testing.T) {
	data := []byte(`{
		"version": "1.0",
		"title": "Precise Blog",
		"feed_url": "https://example.com/feed.json",
		"last_updated": "2025-06-30T08:00:00.123456789Z",
		"items": [
			{"id": "p1", "title": "Post", "url": "https://example.com/p1",
			 "published": "2025-06-29T12:00:00.500Z",
			 "updated": "2025-06-29T18:30:00.25+02:00"}
		]
	}`)

	original, err := Decode(data)
	if err != nil {
		t.Fatalf("Expected decode to succeed, got: %v", err)
	}

	encoded, err := Encode(original)
	if err != nil {
		t.Fatalf("Expected encode to succeed, got: %v", err)
	}

	redecoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Expected round trip decode to succeed, got: %v", err)
	}

	got := redecoded.Items[0]
	want := original.Items[0]
	if !got.Published.Equal(want.Published) {
		t.Errorf("Round trip lost published precision: %v != %v", got.Published, want.Published)
	}
	if got.Updated == nil || !got.Updated.Equal(*want.Updated) {
		t.Errorf("Round trip lost updated precision: %v != %v", got.Updated, want.Updated)
	}
	if redecoded.LastUpdated == nil || !redecoded.LastUpdated.Equal(*original.LastUpdated) {
		t.Errorf("Round trip lost last_updated precision: %v != %v", redecoded.LastUpdated, original.LastUpdated)
	}
}

func TestEncodeOmitsAbsentOptionals(t *testing.T) {
	feed := &Feed{
		Version: Version,
		Title:   "Sparse Blog",
		FeedURL: "https://example.com/feed.json",
		Items: []Entry{{
			ID:        "p1",
			Title:     "Post",
			URL:       "https://example.com/p1",
			Published: time.Date(2025, 6, 29, 12, 0, 0, 0, time.UTC),
		}},
	}

	data, err := Encode(feed)
	if err != nil {
		t.Fatalf("Expected encode to succeed, got: %v", err)
	}

	out := string(data)
	if strings.Contains(out, "null") {
		t.Errorf("Expected absent optionals to be omitted, not null: %s", out)
	}
	for _, field := range []string{"description", "summary", "reading_time", "last_updated"} {
		if strings.Contains(out, field) {
			t.Errorf("Expected %q to be omitted entirely: %s", field, out)
		}
	}
}

func TestEncodeEmitsItemsForEmptyFeed(t *testing.T) {
	data, err := Encode(&Feed{Version: Version, Title: "T", FeedURL: "https://example.com/feed.json"})
	if err != nil {
		t.Fatalf("Expected encode to succeed, got: %v", err)
	}
	if !strings.Contains(string(data), `"items":[]`) {
		t.Errorf("Expected items to be emitted as an empty array: %s", data)
	}
}

func TestEncodeSchemaFieldOrder(t *testing.T) {
	data, err := Encode(fullFeedFixture())
	if err != nil {
		t.Fatalf("Expected encode to succeed, got: %v", err)
	}

	out := string(data)
	order := []string{`"version"`, `"title"`, `"feed_url"`, `"description"`, `"items"`}
	last := -1
	for _, field := range order {
		idx := strings.Index(out, field)
		if idx < 0 {
			t.Fatalf("Expected %s in output: %s", field, out)
		}
		if idx < last {
			t.Errorf("Expected %s to follow schema order", field)
		}
		last = idx
	}
}

func TestDecodePreservesExtensionValues(t *testing.T) {
	data := []byte(`{
		"version": "1.0",
		"title": "Ext Blog",
		"feed_url": "https://example.com/feed.json",
		"items": [],
		"_analytics": {"provider": "plausible", "id": 42}
	}`)

	feed, err := Decode(data)
	if err != nil {
		t.Fatalf("Expected decode to succeed, got: %v", err)
	}

	var parsed struct {
		Provider string `json:"provider"`
		ID       int    `json:"id"`
	}
	if err := json.Unmarshal(feed.Extensions["_analytics"], &parsed); err != nil {
		t.Fatalf("Expected extension value to stay valid JSON, got: %v", err)
	}
	if parsed.Provider != "plausible" || parsed.ID != 42 {
		t.Errorf("Expected extension content to be preserved, got: %+v", parsed)
	}

	// And it comes back out on encode.
	reencoded, err := Encode(feed)
	if err != nil {
		t.Fatalf("Expected encode to succeed, got: %v", err)
	}
	refeed, err := Decode(reencoded)
	if err != nil {
		t.Fatalf("Expected re-decode to succeed, got: %v", err)
	}
	if err := json.Unmarshal(refeed.Extensions["_analytics"], &parsed); err != nil || parsed.ID != 42 {
		t.Errorf("Expected extension to survive encode, got: %s", refeed.Extensions["_analytics"])
	}
}
