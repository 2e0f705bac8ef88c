package beam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// ValidateFeed checks a structurally-decoded JSON object against the BEAM
// feed rules. It accumulates every independently-detectable violation
// rather than stopping at the first, with one exception: a missing or
// unsupported version is fatal, since nothing past it can be trusted.
//
// The returned feed is best-effort: non-nil whenever the version matched,
// with valid entries populated and invalid ones dropped. Callers wanting
// strict semantics must treat any returned violations as a hard failure.
func ValidateFeed(obj map[string]json.RawMessage) (*Feed, ValidationErrors) {
	version, ok := stringValue(obj["version"])
	if !ok || version != Version {
		return nil, ValidationErrors{unsupportedVersion(version)}
	}

	var errs ValidationErrors
	feed := &Feed{Version: version}

	if title, verr := requiredString(obj, "title"); verr != nil {
		errs = append(errs, *verr)
	} else {
		feed.Title = title
	}

	if feedURL, verr := requiredURL(obj, "feed_url"); verr != nil {
		errs = append(errs, *verr)
	} else {
		feed.FeedURL = feedURL
	}

	rawItems, present := obj["items"]
	switch {
	case !present || isNull(rawItems):
		errs = append(errs, missingField("items"))
	default:
		var elems []json.RawMessage
		if err := json.Unmarshal(rawItems, &elems); err != nil {
			errs = append(errs, invalidField("items", "not an array"))
			break
		}
		feed.Items = make([]Entry, 0, len(elems))
		seen := make(map[string]bool, len(elems))
		for i, elem := range elems {
			var entryObj map[string]json.RawMessage
			if err := json.Unmarshal(elem, &entryObj); err != nil {
				errs = append(errs, invalidField(fmt.Sprintf("items[%d]", i), "not an object"))
				continue
			}
			entry, entryErrs := ValidateEntry(entryObj)
			for _, verr := range entryErrs {
				verr.Field = fmt.Sprintf("items[%d].%s", i, verr.Field)
				errs = append(errs, verr)
			}
			if entry == nil {
				continue
			}
			// Entry ids are unique feed-wide: first occurrence wins,
			// every subsequent duplicate is reported and dropped.
			if seen[entry.ID] {
				errs = append(errs, duplicateEntryID(fmt.Sprintf("items[%d].id", i), entry.ID))
				continue
			}
			seen[entry.ID] = true
			feed.Items = append(feed.Items, *entry)
		}
	}

	feed.Description = optionalString(obj, "description", &errs)
	feed.HomePageURL = optionalURL(obj, "home_page_url", &errs)
	feed.Language = optionalLanguage(obj, &errs)
	feed.Author = optionalAuthor(obj, "author", &errs)
	feed.LastUpdated = optionalTimestamp(obj, "last_updated", &errs)
	feed.Extensions = extensionFields(obj)

	return feed, errs
}

// ValidateEntry mirrors ValidateFeed for a single entry object. The
// returned entry is nil when any of the four required fields (id, title,
// url, published) is missing or invalid; violations on optional fields
// leave that field unset but keep the entry.
func ValidateEntry(obj map[string]json.RawMessage) (*Entry, ValidationErrors) {
	var errs ValidationErrors
	entry := &Entry{}
	requiredOK := true

	if id, verr := requiredString(obj, "id"); verr != nil {
		errs = append(errs, *verr)
		requiredOK = false
	} else {
		entry.ID = id
	}

	if title, verr := requiredString(obj, "title"); verr != nil {
		errs = append(errs, *verr)
		requiredOK = false
	} else {
		entry.Title = title
	}

	if entryURL, verr := requiredURL(obj, "url"); verr != nil {
		errs = append(errs, *verr)
		requiredOK = false
	} else {
		entry.URL = entryURL
	}

	if published, verr := requiredTimestamp(obj, "published"); verr != nil {
		errs = append(errs, *verr)
		requiredOK = false
	} else {
		entry.Published = published
	}

	entry.Content = optionalString(obj, "content", &errs)
	entry.Summary = optionalString(obj, "summary", &errs)
	entry.Updated = optionalTimestamp(obj, "updated", &errs)
	entry.Author = optionalAuthor(obj, "author", &errs)
	entry.Category = optionalString(obj, "category", &errs)
	entry.Image = optionalURL(obj, "image", &errs)

	if raw, present := obj["tags"]; present && !isNull(raw) {
		var tags []string
		if err := json.Unmarshal(raw, &tags); err != nil {
			errs = append(errs, invalidField("tags", "not an array of strings"))
		} else {
			entry.Tags = tags
		}
	}

	if raw, present := obj["reading_time"]; present && !isNull(raw) {
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			errs = append(errs, invalidField("reading_time", "not a number"))
		} else if minutes, err := strconv.Atoi(num.String()); err != nil {
			errs = append(errs, invalidField("reading_time", "not an integer"))
		} else if minutes < 0 {
			errs = append(errs, invalidField("reading_time", "negative"))
		} else {
			entry.ReadingTime = &minutes
		}
	}

	entry.Extensions = extensionFields(obj)

	if !requiredOK {
		return nil, errs
	}
	return entry, errs
}

func validateAuthor(obj map[string]json.RawMessage, path string) (*Author, ValidationErrors) {
	var errs ValidationErrors
	author := &Author{}

	name, ok := stringValue(obj["name"])
	if !ok || name == "" {
		errs = append(errs, missingField(path+".name"))
		return nil, errs
	}
	author.Name = name

	if raw, present := obj["email"]; present && !isNull(raw) {
		if email, ok := stringValue(raw); ok {
			author.Email = &email
		} else {
			errs = append(errs, invalidField(path+".email", "not a string"))
		}
	}

	if raw, present := obj["url"]; present && !isNull(raw) {
		if u, ok := stringValue(raw); ok && isAbsoluteHTTPURL(u) {
			author.URL = &u
		} else {
			errs = append(errs, invalidField(path+".url", "not an absolute http(s) URL"))
		}
	}

	return author, errs
}

// -- field helpers --------------------------------------------------------

// Explicit JSON null on an optional field is treated the same as absence.

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringValue(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isAbsoluteHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// parseTimestamp accepts ISO 8601 with an explicit UTC offset only.
// Date-only ("2025-06-29") and offset-less timestamps are rejected.
func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func requiredString(obj map[string]json.RawMessage, field string) (string, *ValidationError) {
	raw, present := obj[field]
	if !present || isNull(raw) {
		verr := missingField(field)
		return "", &verr
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		verr := invalidField(field, "not a string")
		return "", &verr
	}
	if s == "" {
		verr := missingField(field)
		return "", &verr
	}
	return s, nil
}

func requiredURL(obj map[string]json.RawMessage, field string) (string, *ValidationError) {
	s, verr := requiredString(obj, field)
	if verr != nil {
		return "", verr
	}
	if !isAbsoluteHTTPURL(s) {
		verr := invalidField(field, "not an absolute http(s) URL")
		return "", &verr
	}
	return s, nil
}

func requiredTimestamp(obj map[string]json.RawMessage, field string) (time.Time, *ValidationError) {
	s, verr := requiredString(obj, field)
	if verr != nil {
		return time.Time{}, verr
	}
	t, err := parseTimestamp(s)
	if err != nil {
		verr := invalidField(field, "not an ISO 8601 timestamp with UTC offset")
		return time.Time{}, &verr
	}
	return t, nil
}

func optionalString(obj map[string]json.RawMessage, field string, errs *ValidationErrors) *string {
	raw, present := obj[field]
	if !present || isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		*errs = append(*errs, invalidField(field, "not a string"))
		return nil
	}
	return &s
}

func optionalURL(obj map[string]json.RawMessage, field string, errs *ValidationErrors) *string {
	raw, present := obj[field]
	if !present || isNull(raw) {
		return nil
	}
	s, ok := stringValue(raw)
	if !ok || !isAbsoluteHTTPURL(s) {
		*errs = append(*errs, invalidField(field, "not an absolute http(s) URL"))
		return nil
	}
	return &s
}

func optionalTimestamp(obj map[string]json.RawMessage, field string, errs *ValidationErrors) *time.Time {
	raw, present := obj[field]
	if !present || isNull(raw) {
		return nil
	}
	s, ok := stringValue(raw)
	if !ok {
		*errs = append(*errs, invalidField(field, "not a string"))
		return nil
	}
	t, err := parseTimestamp(s)
	if err != nil {
		*errs = append(*errs, invalidField(field, "not an ISO 8601 timestamp with UTC offset"))
		return nil
	}
	return &t
}

// optionalLanguage accepts anything x/text can make sense of as a
// language tag, which covers bare ISO 639-1 codes ("en") as well as
// region-qualified tags ("pt-BR"). The protocol only asks for a loose
// ISO 639-1-like check.
func optionalLanguage(obj map[string]json.RawMessage, errs *ValidationErrors) *string {
	raw, present := obj["language"]
	if !present || isNull(raw) {
		return nil
	}
	s, ok := stringValue(raw)
	if !ok {
		*errs = append(*errs, invalidField("language", "not a string"))
		return nil
	}
	if _, err := language.Parse(s); err != nil {
		*errs = append(*errs, invalidField("language", "not a language tag"))
		return nil
	}
	return &s
}

func optionalAuthor(obj map[string]json.RawMessage, field string, errs *ValidationErrors) *Author {
	raw, present := obj[field]
	if !present || isNull(raw) {
		return nil
	}
	var authorObj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &authorObj); err != nil {
		*errs = append(*errs, invalidField(field, "not an object"))
		return nil
	}
	author, authorErrs := validateAuthor(authorObj, field)
	*errs = append(*errs, authorErrs...)
	return author
}

func extensionFields(obj map[string]json.RawMessage) map[string]json.RawMessage {
	var ext map[string]json.RawMessage
	for key, raw := range obj {
		if !strings.HasPrefix(key, "_") {
			continue
		}
		if ext == nil {
			ext = make(map[string]json.RawMessage)
		}
		ext[key] = raw
	}
	return ext
}
