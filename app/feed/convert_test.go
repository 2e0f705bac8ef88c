package feed

import (
	"testing"
)

func TestConverterRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <language>en-us</language>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>Test Item 1 Description</description>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <author>test@example.com (Test Author)</author>
      <category>Technology</category>
      <category>Programming</category>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <description>Test Item 2 Description</description>
      <guid>item-2</guid>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	converter := NewConverter()
	feed, err := converter.Run([]byte(rssData), "https://example.com/feed.xml")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if feed.Version != "1.0" {
		t.Errorf("Expected version '1.0', got: %s", feed.Version)
	}
	if feed.Title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got: %s", feed.Title)
	}
	if feed.FeedURL != "https://example.com/feed.xml" {
		t.Errorf("Expected feed_url to be the subscription URL, got: %s", feed.FeedURL)
	}
	if feed.HomePageURL == nil || *feed.HomePageURL != "https://example.com" {
		t.Error("Expected home_page_url from channel link")
	}
	if feed.Language == nil || *feed.Language != "en-us" {
		t.Error("Expected language 'en-us'")
	}

	if len(feed.Items) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(feed.Items))
	}

	entry := feed.Items[0]
	if entry.ID != "item-1" {
		t.Errorf("Expected id 'item-1', got: %s", entry.ID)
	}
	if entry.URL != "https://example.com/item1" {
		t.Errorf("Expected url 'https://example.com/item1', got: %s", entry.URL)
	}
	if len(entry.Tags) != 2 {
		t.Errorf("Expected 2 tags, got: %d", len(entry.Tags))
	}
	if entry.Summary == nil || *entry.Summary != "Test Item 1 Description" {
		t.Error("Expected summary from item description")
	}
	if entry.Published.UTC().Hour() != 10 {
		t.Errorf("Expected published 10:00 UTC, got: %v", entry.Published)
	}
}

func TestConverterAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <author>
    <name>Test Author</name>
  </author>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Test Entry</title>
    <link href="https://example.com/entry1"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <content type="html">Test content</content>
  </entry>
</feed>`

	converter := NewConverter()
	feed, err := converter.Run([]byte(atomData), "https://example.com/atom.xml")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if feed.Title != "Test Atom Feed" {
		t.Errorf("Expected title 'Test Atom Feed', got: %s", feed.Title)
	}
	if feed.Author == nil || feed.Author.Name != "Test Author" {
		t.Error("Expected feed author 'Test Author'")
	}

	if len(feed.Items) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(feed.Items))
	}

	// Atom entries without <published> fall back to <updated>
	entry := feed.Items[0]
	if entry.ID != "urn:uuid:entry-1" {
		t.Errorf("Expected id 'urn:uuid:entry-1', got: %s", entry.ID)
	}
	if entry.Published.IsZero() {
		t.Error("Expected published to fall back to updated")
	}
}

func TestConverterSkipsUnconvertibleItems(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Sparse Feed</title>
    <link>https://example.com</link>
    <description>D</description>
    <item>
      <title>No date, no guid</title>
    </item>
    <item>
      <title>Complete</title>
      <link>https://example.com/ok</link>
      <guid>ok</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	converter := NewConverter()
	feed, err := converter.Run([]byte(rssData), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(feed.Items) != 1 || feed.Items[0].ID != "ok" {
		t.Errorf("Expected only the complete item to convert, got: %+v", feed.Items)
	}
}

func TestConverterInvalidData(t *testing.T) {
	converter := NewConverter()
	if _, err := converter.Run([]byte("not a feed"), "https://example.com/feed.xml"); err == nil {
		t.Error("Expected error for unparseable data")
	}
}

func TestContentHashStable(t *testing.T) {
	converter := NewConverter()
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>F</title>
    <link>https://example.com</link>
    <description>D</description>
    <item>
      <title>Item</title>
      <link>https://example.com/a</link>
      <guid>a</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`
	feed, err := converter.Run([]byte(rssData), "https://example.com/feed.xml")
	if err != nil {
		t.Fatal(err)
	}

	h1 := ContentHash(feed.Items[0])
	h2 := ContentHash(feed.Items[0])
	if h1 == "" || h1 != h2 {
		t.Error("Expected content hash to be stable and non-empty")
	}
}
