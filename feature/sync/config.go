package sync

import "time"

// Config holds the sync feature's windows and payload caps.
type Config struct {
	// LookbackDays is the default cursor window when a client supplies none.
	LookbackDays int `mapstructure:"lookback_days" default:"30"`
	// MaxBatchSize caps replay batches per request.
	MaxBatchSize int `mapstructure:"max_batch_size" default:"100"`
	// HistoryLimit caps incremental play-history changesets.
	HistoryLimit int `mapstructure:"history_limit" default:"100"`
	// NewSongsLimit caps the new-songs-from-followed-artists changeset.
	NewSongsLimit int `mapstructure:"new_songs_limit" default:"50"`
	// FullDownloadsLimit caps the full-sync download listing.
	FullDownloadsLimit int `mapstructure:"full_downloads_limit" default:"500"`
	// FullHistoryLimit caps the full-sync play-history window.
	FullHistoryLimit int `mapstructure:"full_history_limit" default:"100"`
	// StreamURLExpiryMinutes bounds presigned stream URLs.
	StreamURLExpiryMinutes int `mapstructure:"stream_url_expiry_minutes" default:"15"`
}

// Lookback returns the default cursor window as a duration.
func (c Config) Lookback() time.Duration {
	days := c.LookbackDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// StreamURLExpiry returns the presign lifetime as a duration.
func (c Config) StreamURLExpiry() time.Duration {
	min := c.StreamURLExpiryMinutes
	if min <= 0 {
		min = 15
	}
	return time.Duration(min) * time.Minute
}
