package config

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// Entry represents a single configuration entry.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns the default configuration entries. They are
// registered as viper defaults, so any key may be left out of the file.
func DefaultEntries() []Entry {
	return []Entry{
		// Studio
		{
			Key:         "studio.base_url",
			Value:       "http://localhost:3000",
			Description: "Base URL of the generative service",
		},
		{
			Key:         "studio.api_key",
			Value:       "${STUDIO_API_KEY}",
			Description: "Bearer token for the generative service (uses environment variable)",
		},
		{
			Key:         "studio.timeout_seconds",
			Value:       300,
			Description: "HTTP timeout in seconds for one studio request",
		},
		{
			Key:         "studio.max_attempts",
			Value:       3,
			Description: "Attempts per studio request for transport errors, 429 and 5xx",
		},
		{
			Key:         "studio.retry_delay_ms",
			Value:       500,
			Description: "Initial delay between studio retries in milliseconds",
		},
		{
			Key:         "studio.requests_per_minute",
			Value:       0,
			Description: "Client-side request limit (0 = unlimited)",
		},

		// Scheduler
		{
			Key:         "scheduler.book_concurrency",
			Value:       3,
			Description: "Books planned concurrently per chunk",
		},
		{
			Key:         "scheduler.page_concurrency",
			Value:       3,
			Description: "Prompts improved concurrently per chunk",
		},
		{
			Key:         "scheduler.image_delay_ms",
			Value:       1000,
			Description: "Pause between image generations in milliseconds",
		},
		{
			Key:         "scheduler.enhance_delay_ms",
			Value:       500,
			Description: "Pause between enhancements in milliseconds",
		},

		// Stages
		{
			Key:         "stages.image_size",
			Value:       "1024x1536",
			Description: "Requested image size",
		},
		{
			Key:         "stages.validate_outline",
			Value:       true,
			Description: "Ask the service to check outlines are closed",
		},
		{
			Key:         "stages.validate_no_color",
			Value:       true,
			Description: "Ask the service to reject colored output",
		},
		{
			Key:         "stages.enhance_scale",
			Value:       2,
			Description: "Upscale factor for enhancement",
		},
		{
			Key:         "stages.margin_percent",
			Value:       5.0,
			Description: "Margin of the letter-size reframe in percent",
		},

		// Defaults for new ideas
		{
			Key:         "defaults.idea_count",
			Value:       3,
			Description: "Ideas requested per generation",
		},
		{
			Key:         "defaults.page_count",
			Value:       10,
			Description: "Pages per new book",
		},
		{
			Key:         "defaults.audience",
			Value:       "kids",
			Description: "Audience of new books (kids, teens, adults, all)",
		},
		{
			Key:         "defaults.book_type",
			Value:       "scenes",
			Description: "Type of new books (scenes, quotes)",
		},
		{
			Key:         "defaults.book_mode",
			Value:       "varied",
			Description: "Mode of new books (storybook, varied)",
		},

		// Export
		{
			Key:         "export.include_title_page",
			Value:       true,
			Description: "Add a title page to PDF exports",
		},
		{
			Key:         "export.include_copyright_page",
			Value:       false,
			Description: "Add a copyright page to PDF exports",
		},
		{
			Key:         "export.include_belongs_to_page",
			Value:       false,
			Description: "Add a 'this book belongs to' page to PDF exports",
		},
		{
			Key:         "export.insert_blank_pages",
			Value:       false,
			Description: "Insert a blank page after every image",
		},
		{
			Key:         "export.author",
			Value:       "",
			Description: "Author printed on the title page",
		},
		{
			Key:         "export.copyright_text",
			Value:       "",
			Description: "Text of the copyright page",
		},
		{
			Key:         "export.handoff_ttl_minutes",
			Value:       60,
			Description: "Lifetime of an export hand-off in minutes",
		},

		// Server
		{
			Key:         "server.host",
			Value:       "127.0.0.1",
			Description: "Listen host",
		},
		{
			Key:         "server.port",
			Value:       "8080",
			Description: "Listen port",
		},
	}
}

// GetDefault returns the default entry for a key.
func GetDefault(key string) (Entry, error) {
	for _, e := range DefaultEntries() {
		if e.Key == key {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNoDefault, key)
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}
