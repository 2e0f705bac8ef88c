package feed

import (
	"fmt"
	"strings"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

func (f *Filterer) Run(entries []Entry, feedConfig *Config) []Entry {
	if len(feedConfig.Filters) == 0 {
		return entries
	}

	filtered := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		isFiltered, filterReason := f.applyFilters(entry, feedConfig.Filters)
		entry.IsFiltered = isFiltered
		entry.FilterReason = filterReason
		filtered = append(filtered, entry)
	}

	return filtered
}

func (f *Filterer) applyFilters(entry Entry, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(entry, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(entry Entry, field string) string {
	switch field {
	case "title":
		return entry.Title
	case "summary":
		return deref(entry.Summary)
	case "content":
		return deref(entry.Content)
	case "author":
		if entry.Author == nil {
			return ""
		}
		return entry.Author.Name
	case "url":
		return entry.URL
	case "category":
		return deref(entry.Category)
	case "tags":
		return strings.Join(entry.Tags, " ")
	default:
		return ""
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
