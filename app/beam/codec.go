package beam

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// Decode parses and strictly validates a BEAM document. On failure the
// returned error is a *DecodeError carrying either the JSON parse error
// or the full list of structural violations.
func Decode(data []byte) (*Feed, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	feed, violations := ValidateFeed(obj)
	if len(violations) > 0 {
		return nil, &DecodeError{Violations: violations}
	}
	return feed, nil
}

// DecodeLenient parses a BEAM document and returns a best-effort feed
// alongside any violations found, letting callers proceed with a
// partially-usable feed. Malformed JSON and an unsupported version are
// still fatal: there is nothing usable to return for either.
func DecodeLenient(data []byte) (*Feed, ValidationErrors, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, nil, err
	}
	feed, violations := ValidateFeed(obj)
	if feed == nil {
		return nil, violations, &DecodeError{Violations: violations}
	}
	return feed, violations, nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return obj, nil
}

// Encode serializes a feed as canonical BEAM JSON: fields in schema
// order, absent optionals omitted entirely, extension fields re-emitted
// verbatim at the level they were captured from.
func Encode(f *Feed) ([]byte, error) {
	return json.Marshal(f)
}

type feedJSON struct {
	Version     string  `json:"version"`
	Title       string  `json:"title"`
	FeedURL     string  `json:"feed_url"`
	Description *string `json:"description,omitempty"`
	HomePageURL *string `json:"home_page_url,omitempty"`
	Language    *string `json:"language,omitempty"`
	Author      *Author `json:"author,omitempty"`
	LastUpdated *string `json:"last_updated,omitempty"`
	Items       []Entry `json:"items"`
}

func (f *Feed) MarshalJSON() ([]byte, error) {
	out := feedJSON{
		Version:     f.Version,
		Title:       f.Title,
		FeedURL:     f.FeedURL,
		Description: f.Description,
		HomePageURL: f.HomePageURL,
		Language:    f.Language,
		Author:      f.Author,
		LastUpdated: formatTimestamp(f.LastUpdated),
		Items:       f.Items,
	}
	if out.Items == nil {
		out.Items = []Entry{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return spliceExtensions(data, f.Extensions)
}

type entryJSON struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Published   string   `json:"published"`
	Content     *string  `json:"content,omitempty"`
	Summary     *string  `json:"summary,omitempty"`
	Updated     *string  `json:"updated,omitempty"`
	Author      *Author  `json:"author,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Image       *string  `json:"image,omitempty"`
	ReadingTime *int     `json:"reading_time,omitempty"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{
		ID:          e.ID,
		Title:       e.Title,
		URL:         e.URL,
		Published:   e.Published.Format(time.RFC3339Nano),
		Content:     e.Content,
		Summary:     e.Summary,
		Updated:     formatTimestamp(e.Updated),
		Author:      e.Author,
		Tags:        e.Tags,
		Category:    e.Category,
		Image:       e.Image,
		ReadingTime: e.ReadingTime,
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return spliceExtensions(data, e.Extensions)
}

// RFC3339Nano keeps fractional seconds a publisher supplied; plain
// RFC3339 would truncate them and break round trips.
func formatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}

// spliceExtensions appends extension key/value pairs into an already
// marshaled JSON object. Keys are emitted in sorted order: the protocol
// guarantees semantic equivalence, not byte-identical output, so a
// stable order is all that matters.
func spliceExtensions(obj []byte, ext map[string]json.RawMessage) ([]byte, error) {
	if len(ext) == 0 {
		return obj, nil
	}
	keys := make([]string, 0, len(ext))
	for key := range ext {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Grow(len(obj) + 16*len(ext))
	buf.Write(obj[:len(obj)-1]) // reopen the object
	for _, key := range keys {
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(bytes.TrimSpace(ext[key]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
