package models

import (
	"time"
)

// User is an account row. Sync only reads it for summaries and identity
// checks; account management lives elsewhere.
type User struct {
	ID          uint   `gorm:"primaryKey"`
	Account     string `gorm:"size:64;uniqueIndex"`
	DisplayName string `gorm:"size:128"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Artist is a performer profile. Every artist is owned by a user account;
// follow relations point at that owning user id, not the artist row.
type Artist struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index"`
	StageName string    `gorm:"size:128"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SongStatus gates catalog visibility. Clients only ever see approved songs.
type SongStatus string

const (
	SongPending  SongStatus = "pending"
	SongApproved SongStatus = "approved"
	SongRejected SongStatus = "rejected"
)

// Song is a catalog track. PlayCount and LikeCount are server-maintained
// aggregates; the only code allowed to touch them is the guarded
// relation+counter pairing in the replay path.
type Song struct {
	ID              uint       `gorm:"primaryKey"`
	ArtistID        uint       `gorm:"index"`
	Title           string     `gorm:"size:255"`
	Album           string     `gorm:"size:255"`
	DurationSeconds int
	FileKey         string     `gorm:"size:255"`
	Status          SongStatus `gorm:"size:16;index"`
	PlayCount       int64
	LikeCount       int64
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time
}

// Download records that a client was issued a download URL for a song.
// Created by the catalog subsystem, read-only here.
type Download struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index:idx_downloads_user_created"`
	SongID    uint      `gorm:"index"`
	Quality   string    `gorm:"size:16"`
	SizeBytes int64
	CreatedAt time.Time `gorm:"index:idx_downloads_user_created"`
}

// Playlist is observed by sync through UpdatedAt; membership edits happen
// in the playlist subsystem and bump the timestamp there.
type Playlist struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index"`
	Name      string    `gorm:"size:255"`
	IsPublic  bool
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

// PlaylistSong is the ordered playlist membership.
type PlaylistSong struct {
	PlaylistID uint `gorm:"primaryKey"`
	SongID     uint `gorm:"primaryKey"`
	Position   int
}

// LikeTargetKind tags what a like points at. Only songs are likeable
// today; the tag keeps the relation honest when albums or playlists
// become likeable.
type LikeTargetKind string

const (
	// LikeTargetSong marks a like on a song.
	LikeTargetSong LikeTargetKind = "song"
)

// Like is set membership: existence means "liked". The unique index is
// the idempotency key making duplicate replays no-ops at the database.
type Like struct {
	ID         uint           `gorm:"primaryKey"`
	UserID     uint           `gorm:"uniqueIndex:uniq_like_target"`
	TargetKind LikeTargetKind `gorm:"size:16;uniqueIndex:uniq_like_target"`
	TargetID   uint           `gorm:"uniqueIndex:uniq_like_target"`
	CreatedAt  time.Time      `gorm:"index"`
}

// Follow links a follower to an artist's owning user id. Same set
// membership shape as Like, without a paired counter.
type Follow struct {
	ID          uint      `gorm:"primaryKey"`
	FollowerID  uint      `gorm:"uniqueIndex:uniq_follow_pair"`
	FollowingID uint      `gorm:"uniqueIndex:uniq_follow_pair"`
	CreatedAt   time.Time `gorm:"index"`
}

// PlayHistory is one play event. PlayedAt is the client's wall-clock time
// of the offline play, not server receipt time; (UserID, SongID, PlayedAt)
// is the idempotency key and carries a unique index so a concurrent replay
// of the same batch cannot double-insert.
type PlayHistory struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         uint      `gorm:"uniqueIndex:uniq_play_key"`
	SongID         uint      `gorm:"uniqueIndex:uniq_play_key"`
	PlayedAt       time.Time `gorm:"uniqueIndex:uniq_play_key"`
	DurationPlayed int
	Completed      bool
	CreatedAt      time.Time
}

// All returns every model the migrator should manage, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Artist{},
		&Song{},
		&Download{},
		&Playlist{},
		&PlaylistSong{},
		&Like{},
		&Follow{},
		&PlayHistory{},
	}
}
