package feed

import (
	"testing"

	"github.com/lysyi3m/beam-comb/app/beam"
)

func entryWith(title, summary, category string, tags ...string) Entry {
	e := Entry{Entry: beam.Entry{Title: title, Tags: tags}}
	if summary != "" {
		e.Summary = &summary
	}
	if category != "" {
		e.Category = &category
	}
	return e
}

func TestFilterer_ApplyFilters_NoFilters(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		entryWith("Test Entry 1", "Test summary", ""),
		entryWith("Test Entry 2", "Another summary", ""),
	}

	feedConfig := &Config{
		Filters: []ConfigFilter{}, // No filters
	}

	result := filterer.Run(entries, feedConfig)

	if len(result) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(result))
	}

	// When no filters are applied, all entries should be unfiltered
	for i, entry := range result {
		if entry.IsFiltered {
			t.Errorf("Entry %d should not be filtered when no filters are configured", i)
		}
		if entry.FilterReason != "" {
			t.Errorf("Entry %d should have empty filter reason, got: %s", i, entry.FilterReason)
		}
	}
}

func TestFilterer_ApplyFilters_TitleIncludeFilter(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		entryWith("Breaking News: Important Update", "News summary", ""),
		entryWith("Sports Update", "Sports summary", ""),
		entryWith("Weather Report", "Weather summary", ""),
	}

	feedConfig := &Config{
		Filters: []ConfigFilter{
			{
				Field:    "title",
				Includes: []string{"news", "update"},
			},
		},
	}

	result := filterer.Run(entries, feedConfig)

	if len(result) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(result))
	}

	// First entry should pass (contains "news" and "update")
	if result[0].IsFiltered {
		t.Errorf("First entry should not be filtered, contains included terms")
	}

	// Second entry should pass (contains "update")
	if result[1].IsFiltered {
		t.Errorf("Second entry should not be filtered, contains 'update'")
	}

	// Third entry should be filtered (doesn't contain "news" or "update")
	if !result[2].IsFiltered {
		t.Errorf("Third entry should be filtered, doesn't contain included terms")
	}
	if result[2].FilterReason == "" {
		t.Errorf("Third entry should have filter reason")
	}
}

func TestFilterer_ApplyFilters_ExcludeFilter(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		entryWith("Breaking News", "News summary", ""),
		entryWith("Advertisement: Buy Now!", "Ad summary", ""),
	}

	feedConfig := &Config{
		Filters: []ConfigFilter{
			{
				Field:    "title",
				Excludes: []string{"advertisement"},
			},
		},
	}

	result := filterer.Run(entries, feedConfig)

	if result[0].IsFiltered {
		t.Errorf("First entry should not be filtered")
	}
	if !result[1].IsFiltered {
		t.Errorf("Second entry should be filtered, matches exclude pattern")
	}
}

func TestFilterer_ApplyFilters_TagsFilter(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		entryWith("Post A", "", "", "go", "programming"),
		entryWith("Post B", "", "", "cooking"),
	}

	feedConfig := &Config{
		Filters: []ConfigFilter{
			{
				Field:    "tags",
				Includes: []string{"programming"},
			},
		},
	}

	result := filterer.Run(entries, feedConfig)

	if result[0].IsFiltered {
		t.Errorf("Entry with matching tag should not be filtered")
	}
	if !result[1].IsFiltered {
		t.Errorf("Entry without matching tag should be filtered")
	}
}

func TestFilterer_ApplyFilters_CategoryAndSummary(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		entryWith("Post A", "weekly sponsor roundup", "sponsored"),
		entryWith("Post B", "a real article", "tech"),
	}

	feedConfig := &Config{
		Filters: []ConfigFilter{
			{
				Field:    "category",
				Excludes: []string{"sponsored"},
			},
		},
	}

	result := filterer.Run(entries, feedConfig)

	if !result[0].IsFiltered {
		t.Errorf("Sponsored entry should be filtered")
	}
	if result[1].IsFiltered {
		t.Errorf("Regular entry should not be filtered")
	}
}

func TestFilterer_ApplyFilters_NilOptionalFields(t *testing.T) {
	filterer := NewFilterer()

	// Entry with no summary, content, category or author at all
	entries := []Entry{{Entry: beam.Entry{Title: "Bare Post"}}}

	feedConfig := &Config{
		Filters: []ConfigFilter{
			{
				Field:    "summary",
				Includes: []string{"anything"},
			},
		},
	}

	result := filterer.Run(entries, feedConfig)

	// Absent field matches nothing, so the include filter rejects it
	if !result[0].IsFiltered {
		t.Errorf("Entry with absent summary should fail an include filter")
	}
}
