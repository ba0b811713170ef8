// Package standings defines the core types and interfaces for the league
// tracking pipeline: fetched pages, normalized standings rows, persisted
// channel state, and the Tracker orchestrator.
package standings

import (
	"net/http"
	"time"
)

// SourceKind identifies the HTML layout a league page uses.
type SourceKind string

// Supported source kinds.
const (
	SourceDevExpress SourceKind = "devexpress"
	SourceSimGrid    SourceKind = "simgrid"
)

// League is the per-league configuration the pipeline operates on.
type League struct {
	Name      string            `mapstructure:"name" json:"name"`
	Slug      string            `mapstructure:"slug" json:"slug"`
	URL       string            `mapstructure:"url" json:"url"`
	Kind      SourceKind        `mapstructure:"kind" json:"kind"`
	Marker    string            `mapstructure:"marker" json:"marker"`
	Schedule  string            `mapstructure:"schedule" json:"schedule"`
	ChannelID string            `mapstructure:"channel_id" json:"channel_id"`
	Tints     map[string]string `mapstructure:"tints" json:"tints,omitempty"`
}

// Page is the result of fetching a league URL, with or without JS execution.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	UsedJS     bool
	Duration   time.Duration
}

// ContentLength returns the body size in bytes.
func (p Page) ContentLength() int {
	return len(p.Body)
}

// Row is one normalized competitor record.
//
// Points and Diff stay strings: sources mix integers, decimals and empty
// leader diffs, and the renderer only ever right-aligns them as text.
type Row struct {
	Position  int    `json:"position"`
	Driver    string `json:"driver"`
	CarNumber string `json:"car_number,omitempty"`
	Class     string `json:"class,omitempty"`
	Points    string `json:"points,omitempty"`
	Diff      string `json:"diff,omitempty"`
	BadgeURL  string `json:"badge_url,omitempty"`
}

// Table is a fully parsed standings table for one league. Tints carries the
// league's class color overrides through to the renderer; it never
// participates in change detection.
type Table struct {
	League    string            `json:"league"`
	Title     string            `json:"title"`
	SourceURL string            `json:"source_url"`
	FetchedAt time.Time         `json:"fetched_at"`
	Rows      []Row             `json:"rows"`
	Tints     map[string]string `json:"tints,omitempty"`
}

// Snapshot is one archived table together with its digest.
type Snapshot struct {
	ID      string    `json:"id"`
	League  string    `json:"league"`
	Digest  string    `json:"digest"`
	TakenAt time.Time `json:"taken_at"`
	Table   Table     `json:"table"`
}

// Record is the small per-league state persisted between runs: which Discord
// message carries the current board, and the digest it was rendered from.
type Record struct {
	League     string    `json:"league"`
	ChannelID  string    `json:"channel_id"`
	MessageID  string    `json:"message_id"`
	Digest     string    `json:"digest"`
	RenderedAt time.Time `json:"rendered_at"`
	CheckedAt  time.Time `json:"checked_at"`
}

// RunResult summarizes a single pipeline run for one league.
type RunResult struct {
	League    string `json:"league"`
	Digest    string `json:"digest"`
	Rows      int    `json:"rows"`
	Changed   bool   `json:"changed"`
	Posted    bool   `json:"posted"`
	UsedJS    bool   `json:"used_js"`
	DurationM int64  `json:"duration_ms"`
}
