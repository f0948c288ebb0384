package models

import "time"

// SongSummary is the minimal song shape shipped inside changesets. The
// client is expected to hold richer metadata from earlier full syncs.
type SongSummary struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	ArtistName      string `json:"artist_name"`
	Album           string `json:"album,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	PlayCount       int64  `json:"play_count"`
	LikeCount       int64  `json:"like_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// DownloadedSong is one entry of the downloads changeset.
type DownloadedSong struct {
	SongSummary
	Quality      string    `json:"quality"`
	SizeBytes    int64     `json:"size_bytes"`
	DownloadedAt time.Time `json:"downloaded_at"`
	// StreamURL is a presigned link to the audio object, when the store
	// collaborator is available.
	StreamURL string `json:"stream_url,omitempty"`
}

// PlaylistEntry is one position of a playlist's membership.
type PlaylistEntry struct {
	SongID   uint `json:"song_id"`
	Position int  `json:"position"`
}

// PlaylistChange is a whole playlist re-sent on any change; membership
// level diffing is out of scope.
type PlaylistChange struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	IsPublic  bool            `json:"is_public"`
	UpdatedAt time.Time       `json:"updated_at"`
	Songs     []PlaylistEntry `json:"songs"`
}

// PlayHistoryItem is one play event, in both changesets and replay batches.
type PlayHistoryItem struct {
	SongID         uint      `json:"song_id"`
	PlayedAt       time.Time `json:"played_at"`
	DurationPlayed int       `json:"duration_played,omitempty"`
	Completed      bool      `json:"completed,omitempty"`
}

// UserSummary is the account block of a full sync.
type UserSummary struct {
	ID          uint      `json:"id"`
	Account     string    `json:"account"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Statistics are the aggregate totals of a full sync.
type Statistics struct {
	TotalDownloads  int64 `json:"total_downloads"`
	TotalPlaylists  int64 `json:"total_playlists"`
	TotalLikedSongs int64 `json:"total_liked_songs"`
	TotalPlayCount  int64 `json:"total_play_count"`
}

// SyncResponse is the unified envelope for both sync variants. Per-kind
// fields are pointers so that a requested-but-empty kind still marshals
// as an empty array while unrequested kinds disappear entirely.
type SyncResponse struct {
	SyncTimestamp time.Time  `json:"sync_timestamp"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	SyncType      string     `json:"sync_type,omitempty"`

	DownloadedSongs *[]DownloadedSong  `json:"downloaded_songs,omitempty"`
	Playlists       *[]PlaylistChange  `json:"playlists,omitempty"`
	LikedSongs      *[]uint            `json:"liked_songs,omitempty"`
	PlayHistory     *[]PlayHistoryItem `json:"play_history,omitempty"`
	Following       *[]uint            `json:"following,omitempty"`
	NewSongs        *[]SongSummary     `json:"new_songs_from_artists,omitempty"`

	UserSummary *UserSummary `json:"user_summary,omitempty"`
	Statistics  *Statistics  `json:"statistics,omitempty"`
}

// PlayBatch is the request body of a play-history replay.
type PlayBatch struct {
	Plays []PlayItem `json:"plays"`
}

// PlayItem is one client-recorded offline play. PlayedAt stays a string
// until validation so an unparseable timestamp is a shape error, not a
// silent zero time.
type PlayItem struct {
	SongID         uint   `json:"song_id"`
	PlayedAt       string `json:"played_at"`
	DurationPlayed int    `json:"duration_played,omitempty"`
	Completed      bool   `json:"completed,omitempty"`
}

// ActionBatch is the request body of a like/follow replay.
type ActionBatch struct {
	Likes   []LikeAction   `json:"likes,omitempty"`
	Follows []FollowAction `json:"follows,omitempty"`
}

// Action values accepted in replay batches.
const (
	ActionLike     = "like"
	ActionUnlike   = "unlike"
	ActionFollow   = "follow"
	ActionUnfollow = "unfollow"
)

// LikeAction is one offline like or unlike.
type LikeAction struct {
	SongID    uint   `json:"song_id"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp,omitempty"`
}

// FollowAction is one offline follow or unfollow.
type FollowAction struct {
	ArtistID  uint   `json:"artist_id"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ReplayError reports a single failed batch item by its natural identifier.
type ReplayError struct {
	Type     string `json:"type,omitempty"`
	SongID   uint   `json:"song_id,omitempty"`
	ArtistID uint   `json:"artist_id,omitempty"`
	Error    string `json:"error"`
}

// PlayReplayResult is the outcome of a play-history replay.
type PlayReplayResult struct {
	Synced int           `json:"synced"`
	Total  int           `json:"total"`
	Errors []ReplayError `json:"errors"`
}

// ActionReplayResult is the outcome of a like/follow replay.
type ActionReplayResult struct {
	LikesSynced   int           `json:"likes_synced"`
	FollowsSynced int           `json:"follows_synced"`
	Errors        []ReplayError `json:"errors"`
}
