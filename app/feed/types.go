package feed

import (
	"github.com/lysyi3m/beam-comb/app/beam"
)

// Subscription source formats. "rss" covers Atom too, gofeed detects both.
const (
	FormatBEAM = "beam"
	FormatRSS  = "rss"
)

// Entry wraps a protocol entry with service-level processing state. The
// core beam types stay free of archive concerns.
type Entry struct {
	beam.Entry

	ContentHash  string
	IsFiltered   bool
	FilterReason string
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Format   string         `yaml:"format"` // "beam" (default) or "rss"
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled             bool `yaml:"enabled"`
	RefreshInterval     int  `yaml:"refresh_interval"` // seconds
	MaxEntries          int  `yaml:"max_entries"`
	Timeout             int  `yaml:"timeout"` // seconds
	Lenient             bool `yaml:"lenient"` // keep usable entries on validation errors
	EstimateReadingTime bool `yaml:"estimate_reading_time"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
