package sync

import (
	"context"
	"fmt"
	"time"

	"tunesync/core/storage"
	"tunesync/feature/sync/models"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Assembler produces bandwidth-bounded per-kind changesets. Pure read
// path: it never mutates state, and an empty collection is a normal,
// common result rather than an error.
type Assembler struct {
	db     *gorm.DB
	store  storage.Client
	bucket string
	cfg    Config
	logger *zap.Logger
}

// NewAssembler creates a changeset assembler. store may be nil, in which
// case download changesets carry no stream URLs.
func NewAssembler(db *gorm.DB, store storage.Client, bucket string, cfg Config, logger *zap.Logger) *Assembler {
	return &Assembler{db: db, store: store, bucket: bucket, cfg: cfg, logger: logger}
}

// Downloads returns the user's download records strictly newer than the
// cursor, each joined with a song summary and a fresh stream URL.
func (a *Assembler) Downloads(ctx context.Context, userID uint, since time.Time, limit int) ([]models.DownloadedSong, error) {
	var downloads []models.Download
	q := a.db.WithContext(ctx).
		Where("user_id = ? AND created_at > ?", userID, since).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&downloads).Error; err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	if len(downloads) == 0 {
		return []models.DownloadedSong{}, nil
	}

	songIDs := lo.Uniq(lo.Map(downloads, func(d models.Download, _ int) uint { return d.SongID }))
	songs, err := a.songsByID(ctx, songIDs)
	if err != nil {
		return nil, err
	}
	summaries, err := a.summarize(ctx, lo.Values(songs))
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(summaries, func(s models.SongSummary) uint { return s.ID })

	out := make([]models.DownloadedSong, 0, len(downloads))
	for _, d := range downloads {
		summary, ok := byID[d.SongID]
		if !ok {
			// Song removed from the catalog since the download was issued.
			continue
		}
		entry := models.DownloadedSong{
			SongSummary:  summary,
			Quality:      d.Quality,
			SizeBytes:    d.SizeBytes,
			DownloadedAt: d.CreatedAt,
		}
		if song, ok := songs[d.SongID]; ok {
			entry.StreamURL = a.presign(ctx, song.FileKey)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Playlists returns the user's playlists touched after the cursor, each
// with its full ordered membership. Whole playlists are re-sent on any
// change; membership-level diffing is out of scope.
func (a *Assembler) Playlists(ctx context.Context, userID uint, since time.Time) ([]models.PlaylistChange, error) {
	var playlists []models.Playlist
	err := a.db.WithContext(ctx).
		Where("user_id = ? AND updated_at > ?", userID, since).
		Order("updated_at DESC").
		Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	if len(playlists) == 0 {
		return []models.PlaylistChange{}, nil
	}

	ids := lo.Map(playlists, func(p models.Playlist, _ int) uint { return p.ID })
	var membership []models.PlaylistSong
	err = a.db.WithContext(ctx).
		Where("playlist_id IN ?", ids).
		Order("playlist_id, position").
		Find(&membership).Error
	if err != nil {
		return nil, fmt.Errorf("list playlist songs: %w", err)
	}
	grouped := lo.GroupBy(membership, func(m models.PlaylistSong) uint { return m.PlaylistID })

	out := make([]models.PlaylistChange, 0, len(playlists))
	for _, p := range playlists {
		entries := lo.Map(grouped[p.ID], func(m models.PlaylistSong, _ int) models.PlaylistEntry {
			return models.PlaylistEntry{SongID: m.SongID, Position: m.Position}
		})
		if entries == nil {
			entries = []models.PlaylistEntry{}
		}
		out = append(out, models.PlaylistChange{
			ID:        p.ID,
			Name:      p.Name,
			IsPublic:  p.IsPublic,
			UpdatedAt: p.UpdatedAt,
			Songs:     entries,
		})
	}
	return out, nil
}

// LikedSongIDs returns ids only; the client already holds song metadata
// from earlier full syncs.
func (a *Assembler) LikedSongIDs(ctx context.Context, userID uint, since time.Time) ([]uint, error) {
	ids := []uint{}
	err := a.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND target_kind = ? AND created_at > ?", userID, models.LikeTargetSong, since).
		Order("created_at").
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list liked songs: %w", err)
	}
	return ids, nil
}

// FollowedUserIDs returns the artist-owning user ids the user followed
// after the cursor.
func (a *Assembler) FollowedUserIDs(ctx context.Context, userID uint, since time.Time) ([]uint, error) {
	ids := []uint{}
	err := a.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND created_at > ?", userID, since).
		Order("created_at").
		Pluck("following_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	return ids, nil
}

// History returns play events strictly newer than the cursor, newest
// first, capped.
func (a *Assembler) History(ctx context.Context, userID uint, since time.Time, limit int) ([]models.PlayHistoryItem, error) {
	var entries []models.PlayHistory
	err := a.db.WithContext(ctx).
		Where("user_id = ? AND played_at > ?", userID, since).
		Order("played_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list play history: %w", err)
	}
	return lo.Map(entries, func(e models.PlayHistory, _ int) models.PlayHistoryItem {
		return models.PlayHistoryItem{
			SongID:         e.SongID,
			PlayedAt:       e.PlayedAt,
			DurationPlayed: e.DurationPlayed,
			Completed:      e.Completed,
		}
	}), nil
}

// NewSongs resolves the user's followed artist-owner ids to artists and
// returns their approved songs published after the cursor, newest first,
// capped.
func (a *Assembler) NewSongs(ctx context.Context, userID uint, since time.Time, limit int) ([]models.SongSummary, error) {
	ownerIDs := []uint{}
	err := a.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("following_id", &ownerIDs).Error
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	if len(ownerIDs) == 0 {
		return []models.SongSummary{}, nil
	}

	artistIDs := []uint{}
	err = a.db.WithContext(ctx).
		Model(&models.Artist{}).
		Where("user_id IN ?", ownerIDs).
		Pluck("id", &artistIDs).Error
	if err != nil {
		return nil, fmt.Errorf("resolve followed artists: %w", err)
	}
	if len(artistIDs) == 0 {
		return []models.SongSummary{}, nil
	}

	var songs []models.Song
	err = a.db.WithContext(ctx).
		Where("artist_id IN ? AND status = ? AND created_at > ?", artistIDs, models.SongApproved, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&songs).Error
	if err != nil {
		return nil, fmt.Errorf("list new songs: %w", err)
	}
	return a.summarize(ctx, songs)
}

// Summary returns the account block of a full sync.
func (a *Assembler) Summary(ctx context.Context, userID uint) (*models.UserSummary, error) {
	var user models.User
	if err := a.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error; err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return &models.UserSummary{
		ID:          user.ID,
		Account:     user.Account,
		DisplayName: user.DisplayName,
		JoinedAt:    user.CreatedAt,
	}, nil
}

// Statistics returns the aggregate totals of a full sync.
func (a *Assembler) Statistics(ctx context.Context, userID uint) (*models.Statistics, error) {
	stats := &models.Statistics{}
	db := a.db.WithContext(ctx)

	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.Download{}).Where("user_id = ?", userID), &stats.TotalDownloads},
		{db.Model(&models.Playlist{}).Where("user_id = ?", userID), &stats.TotalPlaylists},
		{db.Model(&models.Like{}).Where("user_id = ? AND target_kind = ?", userID, models.LikeTargetSong), &stats.TotalLikedSongs},
		{db.Model(&models.PlayHistory{}).Where("user_id = ?", userID), &stats.TotalPlayCount},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("count for statistics: %w", err)
		}
	}
	return stats, nil
}

// songsByID loads songs keyed by id.
func (a *Assembler) songsByID(ctx context.Context, ids []uint) (map[uint]models.Song, error) {
	var songs []models.Song
	if err := a.db.WithContext(ctx).Where("id IN ?", ids).Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("load songs: %w", err)
	}
	return lo.KeyBy(songs, func(s models.Song) uint { return s.ID }), nil
}

// summarize joins songs with their artists' stage names.
func (a *Assembler) summarize(ctx context.Context, songs []models.Song) ([]models.SongSummary, error) {
	if len(songs) == 0 {
		return []models.SongSummary{}, nil
	}
	artistIDs := lo.Uniq(lo.Map(songs, func(s models.Song, _ int) uint { return s.ArtistID }))
	var artists []models.Artist
	if err := a.db.WithContext(ctx).Where("id IN ?", artistIDs).Find(&artists).Error; err != nil {
		return nil, fmt.Errorf("load artists: %w", err)
	}
	names := lo.SliceToMap(artists, func(ar models.Artist) (uint, string) { return ar.ID, ar.StageName })

	return lo.Map(songs, func(s models.Song, _ int) models.SongSummary {
		return models.SongSummary{
			ID:              s.ID,
			Title:           s.Title,
			ArtistName:      names[s.ArtistID],
			Album:           s.Album,
			DurationSeconds: s.DurationSeconds,
			PlayCount:       s.PlayCount,
			LikeCount:       s.LikeCount,
			CreatedAt:       s.CreatedAt,
		}
	}), nil
}

// presign returns a time-limited stream URL for the given object key, or
// "" when no store is wired or signing fails. A missing URL is not worth
// failing a changeset over; the client can re-request it.
func (a *Assembler) presign(ctx context.Context, fileKey string) string {
	if a.store == nil || fileKey == "" {
		return ""
	}
	u, err := a.store.PresignedGetObject(ctx, a.bucket, fileKey, a.cfg.StreamURLExpiry(), nil)
	if err != nil {
		a.logger.Warn("Presign failed", zap.String("key", fileKey), zap.Error(err))
		return ""
	}
	return u.String()
}
