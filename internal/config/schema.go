package config

import (
	"time"
)

// Config holds colorbook configuration.
// Stored at: {home}/config.yaml or ./config.yaml
type Config struct {
	Studio    StudioCfg    `mapstructure:"studio" yaml:"studio"`
	Scheduler SchedulerCfg `mapstructure:"scheduler" yaml:"scheduler"`
	Stages    StagesCfg    `mapstructure:"stages" yaml:"stages"`
	Defaults  DefaultsCfg  `mapstructure:"defaults" yaml:"defaults"`
	Export    ExportCfg    `mapstructure:"export" yaml:"export"`
	Server    ServerCfg    `mapstructure:"server" yaml:"server"`
}

// StudioCfg configures the remote generative service.
type StudioCfg struct {
	BaseURL           string `mapstructure:"base_url" yaml:"base_url"`
	APIKey            string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	TimeoutSeconds    int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxAttempts       int    `mapstructure:"max_attempts" yaml:"max_attempts"`
	RetryDelayMs      int    `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute"` // 0 = unlimited
}

// SchedulerCfg sizes the chunked stages and paces the sequential ones.
type SchedulerCfg struct {
	BookConcurrency int `mapstructure:"book_concurrency" yaml:"book_concurrency"`
	PageConcurrency int `mapstructure:"page_concurrency" yaml:"page_concurrency"`
	ImageDelayMs    int `mapstructure:"image_delay_ms" yaml:"image_delay_ms"`
	EnhanceDelayMs  int `mapstructure:"enhance_delay_ms" yaml:"enhance_delay_ms"`
}

// StagesCfg holds per-stage request options.
type StagesCfg struct {
	ImageSize       string  `mapstructure:"image_size" yaml:"image_size"`
	ValidateOutline bool    `mapstructure:"validate_outline" yaml:"validate_outline"`
	ValidateNoColor bool    `mapstructure:"validate_no_color" yaml:"validate_no_color"`
	EnhanceScale    int     `mapstructure:"enhance_scale" yaml:"enhance_scale"`
	MarginPercent   float64 `mapstructure:"margin_percent" yaml:"margin_percent"`
}

// DefaultsCfg seeds new book ideas.
type DefaultsCfg struct {
	IdeaCount int    `mapstructure:"idea_count" yaml:"idea_count"`
	PageCount int    `mapstructure:"page_count" yaml:"page_count"`
	Audience  string `mapstructure:"audience" yaml:"audience"`
	BookType  string `mapstructure:"book_type" yaml:"book_type"`
	BookMode  string `mapstructure:"book_mode" yaml:"book_mode"`
}

// ExportCfg sets PDF front matter and the hand-off lifetime.
type ExportCfg struct {
	IncludeTitlePage  bool   `mapstructure:"include_title_page" yaml:"include_title_page"`
	IncludeCopyright  bool   `mapstructure:"include_copyright_page" yaml:"include_copyright_page"`
	IncludeBelongsTo  bool   `mapstructure:"include_belongs_to_page" yaml:"include_belongs_to_page"`
	InsertBlankPages  bool   `mapstructure:"insert_blank_pages" yaml:"insert_blank_pages"`
	Author            string `mapstructure:"author" yaml:"author"`
	CopyrightText     string `mapstructure:"copyright_text" yaml:"copyright_text"`
	HandoffTTLMinutes int    `mapstructure:"handoff_ttl_minutes" yaml:"handoff_ttl_minutes"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// Timeout is the per-request studio timeout.
func (c StudioCfg) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryDelay is the initial delay between studio retries.
func (c StudioCfg) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// ResolvedAPIKey returns the API key with ${ENV_VAR} references expanded.
func (c StudioCfg) ResolvedAPIKey() string {
	return ResolveEnvVars(c.APIKey)
}

// Delays returns the sequential stage delays.
func (c SchedulerCfg) Delays() (image, enhance time.Duration) {
	return time.Duration(c.ImageDelayMs) * time.Millisecond, time.Duration(c.EnhanceDelayMs) * time.Millisecond
}

// HandoffTTL is how long an export hand-off is kept.
func (c ExportCfg) HandoffTTL() time.Duration {
	return time.Duration(c.HandoffTTLMinutes) * time.Minute
}

// Addr is the listen address.
func (c ServerCfg) Addr() string {
	return c.Host + ":" + c.Port
}
